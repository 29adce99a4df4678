package models

type Notification struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Time    int64  `json:"time"`
}
