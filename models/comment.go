package models

import "time"

// CommentAuthor - краткая ссылка на автора комментария
type CommentAuthor struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
}

type Comment struct {
	ID        int64         `json:"id"`
	PostID    int64         `json:"postId"`
	Body      string        `json:"body"`
	Likes     int64         `json:"likes"`
	User      CommentAuthor `json:"user"`
	CreatedAt time.Time     `json:"createdAt"`
}

func (c Comment) AuthorID() int64 {
	return c.User.ID
}
