// internal/state/articles.go
package state

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/user/lector/internal/types"
)

// ArticleStore is a JSON-file-backed store of feeds and their items.
// Feeds live in feeds.json and items in items.json under the store root.
type ArticleStore struct {
	root string
	mu   sync.RWMutex
}

// NewArticleStore creates a file-backed ArticleStore rooted at the given directory.
func NewArticleStore(root string) *ArticleStore {
	return &ArticleStore{root: root}
}

func (s *ArticleStore) feedsPath() string {
	return filepath.Join(s.root, "feeds.json")
}

func (s *ArticleStore) itemsPath() string {
	return filepath.Join(s.root, "items.json")
}

func (s *ArticleStore) loadFeeds() ([]*types.Feed, error) {
	var feeds []*types.Feed
	if err := readJSON(s.feedsPath(), &feeds); err != nil {
		return nil, fmt.Errorf("read feeds: %w", err)
	}
	return feeds, nil
}

func (s *ArticleStore) loadItems() ([]*types.ArticleItem, error) {
	var items []*types.ArticleItem
	if err := readJSON(s.itemsPath(), &items); err != nil {
		return nil, fmt.Errorf("read items: %w", err)
	}
	return items, nil
}

// LoadItems returns the candidate items for a selector, newest first.
// An explicit item ID selects exactly that item regardless of filters.
func (s *ArticleStore) LoadItems(_ context.Context, sel types.ItemSelector, f types.LoadFilters) ([]*types.ArticleItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items, err := s.loadItems()
	if err != nil {
		return nil, err
	}

	if sel.ItemID != "" {
		for _, item := range items {
			if item.ID == sel.ItemID {
				return []*types.ArticleItem{item}, nil
			}
		}
		return nil, fmt.Errorf("item not found: %s", sel.ItemID)
	}

	now := time.Now()
	matched := []*types.ArticleItem{}
	for _, item := range items {
		if sel.FeedID != "" && item.FeedID != sel.FeedID {
			continue
		}
		if f.UnreadOnly && item.Consumed {
			continue
		}
		if f.MaxAge > 0 && now.Sub(item.PublishedAt) > f.MaxAge {
			continue
		}
		matched = append(matched, item)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].PublishedAt.After(matched[j].PublishedAt)
	})

	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, nil
}

// MarkConsumed flags an item as read.
func (s *ArticleStore) MarkConsumed(_ context.Context, id types.ItemID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.loadItems()
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.ID == id {
			item.Consumed = true
			return writeJSON(s.itemsPath(), items)
		}
	}
	return fmt.Errorf("item not found: %s", id)
}

// AddItems inserts items whose link is not yet present for their feed.
// Returns the number actually inserted.
func (s *ArticleStore) AddItems(_ context.Context, incoming []*types.ArticleItem) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.loadItems()
	if err != nil {
		return 0, err
	}

	seen := make(map[string]bool, len(items))
	for _, item := range items {
		seen[string(item.FeedID)+"|"+item.Link] = true
	}

	added := 0
	for _, item := range incoming {
		key := string(item.FeedID) + "|" + item.Link
		if seen[key] {
			continue
		}
		seen[key] = true
		if item.ID == "" {
			item.ID = types.NewItemID()
		}
		items = append(items, item)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	return added, writeJSON(s.itemsPath(), items)
}

// Feed returns the feed with the given ID.
func (s *ArticleStore) Feed(_ context.Context, id types.FeedID) (*types.Feed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	feeds, err := s.loadFeeds()
	if err != nil {
		return nil, err
	}
	for _, feed := range feeds {
		if feed.ID == id {
			return feed, nil
		}
	}
	return nil, fmt.Errorf("feed not found: %s", id)
}

// Feeds returns all feeds.
func (s *ArticleStore) Feeds(_ context.Context) ([]*types.Feed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	feeds, err := s.loadFeeds()
	if err != nil {
		return nil, err
	}
	if feeds == nil {
		feeds = []*types.Feed{}
	}
	return feeds, nil
}

// AddFeed appends a feed. Returns an error if the ID already exists.
func (s *ArticleStore) AddFeed(_ context.Context, feed *types.Feed) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	feeds, err := s.loadFeeds()
	if err != nil {
		return err
	}
	for _, existing := range feeds {
		if existing.ID == feed.ID {
			return fmt.Errorf("feed already exists: %s", feed.ID)
		}
	}
	feeds = append(feeds, feed)
	return writeJSON(s.feedsPath(), feeds)
}

// TouchFeed records a successful refresh time for the feed.
func (s *ArticleStore) TouchFeed(_ context.Context, id types.FeedID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	feeds, err := s.loadFeeds()
	if err != nil {
		return err
	}
	for _, feed := range feeds {
		if feed.ID == id {
			feed.LastRefreshed = at
			return writeJSON(s.feedsPath(), feeds)
		}
	}
	return fmt.Errorf("feed not found: %s", id)
}
