package models

import "time"

type Reactions struct {
	Likes    int64 `json:"likes"`
	Dislikes int64 `json:"dislikes"`
}

// Post - пост апстрима. Локально меняется только reactions.likes.
type Post struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags,omitempty"`
	Reactions Reactions `json:"reactions"`
	Views     int64     `json:"views,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// DenormalizedPost - пост со встроенными автором и комментариями
type DenormalizedPost struct {
	Post
	User     User      `json:"user"`
	Comments []Comment `json:"comments"`
}
