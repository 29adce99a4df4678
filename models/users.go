package models

// DefaultAvatar - картинка профиля, если апстрим не отдал пользователя
const DefaultAvatar = "https://www.ankurhalder.in/apple-icon.png"

type Address struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type Company struct {
	Department string `json:"department"`
	Name       string `json:"name"`
	Title      string `json:"title"`
}

// User - пользователь апстрима. После загрузки не изменяется.
type User struct {
	ID         int64   `json:"id"`
	FirstName  string  `json:"firstName"`
	LastName   string  `json:"lastName"`
	MaidenName string  `json:"maidenName,omitempty"`
	Age        int     `json:"age,omitempty"`
	Gender     string  `json:"gender,omitempty"`
	Email      string  `json:"email,omitempty"`
	Phone      string  `json:"phone,omitempty"`
	Username   string  `json:"username"`
	BirthDate  string  `json:"birthDate,omitempty"`
	Image      string  `json:"image"`
	Address    Address `json:"address"`
	Company    Company `json:"company"`
}

const unknownUsername = "Unknown"

// UnknownUser возвращает пользователя-заглушку для постов с неизвестным автором
func UnknownUser() User {
	return User{ID: 0, Username: unknownUsername}
}

func (u User) IsPlaceholder() bool {
	return u == UnknownUser()
}

func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
