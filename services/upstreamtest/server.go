// Package upstreamtest поднимает фейковый апстрим с limit/skip пагинацией для тестов.
package upstreamtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"socialfeed/models"

	"github.com/brianvoe/gofakeit/v7"
)

type Server struct {
	*httptest.Server

	mu       sync.Mutex
	users    []models.User
	posts    []models.Post
	comments []models.Comment
	failAt   map[string]int
	requests map[string]int
}

func New(users []models.User, posts []models.Post, comments []models.Comment) *Server {
	s := &Server{
		users:    users,
		posts:    posts,
		comments: comments,
		failAt:   make(map[string]int),
		requests: make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// FailCollection заставляет апстрим отвечать 500 на страницы коллекции начиная со skip
func (s *Server) FailCollection(collection string, skip int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAt[collection] = skip
}

func (s *Server) Heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAt = make(map[string]int)
}

func (s *Server) SetPosts(posts []models.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = posts
}

// Requests - сколько запросов страниц пришло по коллекции
func (s *Server) Requests(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[collection]
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	collection := parts[0]

	s.mu.Lock()
	defer s.mu.Unlock()

	var items []any
	switch collection {
	case "users":
		items = toAny(s.users)
	case "posts":
		items = toAny(s.posts)
	case "comments":
		items = toAny(s.comments)
	default:
		http.NotFound(w, r)
		return
	}

	if len(parts) == 2 {
		s.handleOne(w, collection, parts[1])
		return
	}

	s.requests[collection]++
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	if failSkip, ok := s.failAt[collection]; ok && skip >= failSkip {
		http.Error(w, "upstream failure", http.StatusInternalServerError)
		return
	}

	page := []any{}
	if skip < len(items) {
		end := min(skip+limit, len(items))
		page = items[skip:end]
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		collection: page,
		"total":    len(items),
		"skip":     skip,
		"limit":    limit,
	})
}

func (s *Server) handleOne(w http.ResponseWriter, collection, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || collection != "users" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if _, failing := s.failAt[collection]; failing {
		http.Error(w, "upstream failure", http.StatusInternalServerError)
		return
	}
	for _, u := range s.users {
		if u.ID == id {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(u)
			return
		}
	}
	http.Error(w, "not found", http.StatusNotFound)
}

func toAny[T any](in []T) []any {
	out := make([]any, len(in))
	for i := range in {
		out[i] = in[i]
	}
	return out
}

// Fixture генерирует пользователей, посты и комментарии. Часть постов ссылается на
// несуществующих авторов, часть комментариев - на несуществующие посты.
func Fixture(seed uint64, nUsers, nPosts, nComments int) ([]models.User, []models.Post, []models.Comment) {
	f := gofakeit.New(seed)

	users := make([]models.User, 0, nUsers)
	for i := 1; i <= nUsers; i++ {
		users = append(users, models.User{
			ID:        int64(i),
			FirstName: f.FirstName(),
			LastName:  f.LastName(),
			Username:  f.Username(),
			Email:     f.Email(),
			Image:     "https://example.com/avatar/" + strconv.Itoa(i) + ".png",
			Address:   models.Address{City: f.City()},
		})
	}

	posts := make([]models.Post, 0, nPosts)
	for i := 1; i <= nPosts; i++ {
		posts = append(posts, models.Post{
			ID:        int64(i),
			UserID:    int64(f.Number(1, nUsers+3)),
			Title:     f.Word() + " " + f.Word(),
			Body:      f.Word() + " " + f.Word() + " " + f.Word(),
			Reactions: models.Reactions{Likes: int64(f.Number(0, 100))},
		})
	}

	comments := make([]models.Comment, 0, nComments)
	for i := 1; i <= nComments; i++ {
		author := int64(f.Number(1, max(nUsers, 1)))
		comments = append(comments, models.Comment{
			ID:     int64(i),
			PostID: int64(f.Number(1, nPosts+5)),
			Body:   f.Word(),
			User:   models.CommentAuthor{ID: author, Username: f.Username()},
		})
	}
	return users, posts, comments
}
