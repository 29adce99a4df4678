package services

import (
	"context"
	"fmt"
	"strings"

	"socialfeed/models"
)

const (
	FeedPosts    = "posts"
	FeedProfiles = "profiles"
)

// Refresher - лента, которую можно перестроить по имени (очередь, админка)
type Refresher interface {
	Name() string
	Refresh(ctx context.Context) error
}

// PostFeed - лента денормализованных постов главного экрана
type PostFeed struct {
	*Feed[models.DenormalizedPost]
}

func NewPostFeed(fetcher *Fetcher, cache *CacheStore, opts FeedOptions) *PostFeed {
	load := func(ctx context.Context) ([]models.DenormalizedPost, error) {
		collections, err := fetcher.FetchAll(ctx)
		if err != nil {
			return nil, err
		}
		return Join(collections.Users, collections.Posts, collections.Comments), nil
	}
	return &PostFeed{Feed: NewFeed[models.DenormalizedPost](FeedPosts, cache, load, opts)}
}

// Like оптимистично меняет счетчик лайков в памяти. В кеш и апстрим изменение не попадает.
func (p *PostFeed) Like(postID int64, delta int64) (models.DenormalizedPost, error) {
	post, ok := p.Update(
		func(dp models.DenormalizedPost) bool { return dp.ID == postID },
		func(dp *models.DenormalizedPost) { dp.Reactions.Likes += delta },
	)
	if !ok {
		return post, fmt.Errorf("%w: %d", ErrPostNotFound, postID)
	}
	return post, nil
}

func (p *PostFeed) Post(postID int64) (models.DenormalizedPost, bool) {
	return p.Find(func(dp models.DenormalizedPost) bool { return dp.ID == postID })
}

// ProfileFeed - лента профилей пользователей
type ProfileFeed struct {
	*Feed[models.User]
}

func NewProfileFeed(fetcher *Fetcher, cache *CacheStore, opts FeedOptions) *ProfileFeed {
	return &ProfileFeed{Feed: NewFeed[models.User](FeedProfiles, cache, fetcher.FetchUsers, opts)}
}

func (p *ProfileFeed) User(userID int64) (models.User, bool) {
	return p.Find(func(u models.User) bool { return u.ID == userID })
}

// Search фильтрует видимое окно по имени, фамилии или username без учета регистра
func (p *ProfileFeed) Search(query string) []models.User {
	visible := p.Snapshot().Items
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return visible
	}
	found := make([]models.User, 0, len(visible))
	for _, u := range visible {
		if strings.Contains(strings.ToLower(u.FirstName), query) ||
			strings.Contains(strings.ToLower(u.LastName), query) ||
			strings.Contains(strings.ToLower(u.Username), query) {
			found = append(found, u)
		}
	}
	return found
}
