package services

import "socialfeed/models"

// IndexUsers строит индекс id -> пользователь. При дублях побеждает последний.
func IndexUsers(users []models.User) map[int64]models.User {
	index := make(map[int64]models.User, len(users))
	for _, u := range users {
		index[u.ID] = u
	}
	return index
}

// GroupComments группирует комментарии по postId, сохраняя исходный порядок
func GroupComments(comments []models.Comment) map[int64][]models.Comment {
	grouped := make(map[int64][]models.Comment)
	for _, c := range comments {
		grouped[c.PostID] = append(grouped[c.PostID], c)
	}
	return grouped
}

// Join собирает денормализованную ленту в порядке входных постов.
// Комментарии к несуществующим постам отбрасываются, неизвестный автор заменяется заглушкой.
func Join(users []models.User, posts []models.Post, comments []models.Comment) []models.DenormalizedPost {
	userIndex := IndexUsers(users)
	commentsByPost := GroupComments(comments)

	feed := make([]models.DenormalizedPost, 0, len(posts))
	for _, p := range posts {
		user, ok := userIndex[p.UserID]
		if !ok {
			user = models.UnknownUser()
		}

		postComments := make([]models.Comment, len(commentsByPost[p.ID]))
		copy(postComments, commentsByPost[p.ID])

		feed = append(feed, models.DenormalizedPost{
			Post:     p,
			User:     user,
			Comments: postComments,
		})
	}
	return feed
}
