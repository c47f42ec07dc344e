// internal/feed/refresher.go

// Package feed pulls new items from RSS/Atom feeds and stores them as
// speakable articles. Entry bodies arrive as HTML and are converted to
// markdown text before storage so the speech engine never sees markup.
package feed

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/user/lector/internal/state"
	"github.com/user/lector/internal/types"
)

const maxBodyChars = 20000

// Refresher fetches feeds over HTTP and inserts unseen items into the
// article store.
type Refresher struct {
	store  *state.ArticleStore
	client *http.Client
}

// NewRefresher creates a Refresher backed by the given article store.
func NewRefresher(store *state.ArticleStore) *Refresher {
	return &Refresher{
		store:  store,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// LastRefreshed returns the feed's last successful refresh time, or the
// zero time when the feed is unknown.
func (r *Refresher) LastRefreshed(id types.FeedID) time.Time {
	feed, err := r.store.Feed(context.Background(), id)
	if err != nil {
		return time.Time{}
	}
	return feed.LastRefreshed
}

// Refresh fetches the feed and stores items not seen before. Returns the
// number of new items.
func (r *Refresher) Refresh(ctx context.Context, id types.FeedID) (int, error) {
	feed, err := r.store.Feed(ctx, id)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Lector/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("HTTP error: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read body: %w", err)
	}

	entries, err := parseEntries(body)
	if err != nil {
		return 0, fmt.Errorf("parse feed %s: %w", feed.URL, err)
	}

	items := make([]*types.ArticleItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, &types.ArticleItem{
			FeedID:      id,
			Title:       strings.TrimSpace(e.title),
			Body:        speakableBody(e.body),
			Link:        e.link,
			PublishedAt: e.published,
		})
	}

	added, err := r.store.AddItems(ctx, items)
	if err != nil {
		return 0, err
	}
	if err := r.store.TouchFeed(ctx, id, time.Now()); err != nil {
		slog.Warn("touch feed failed", "feed_id", id, "error", err)
	}
	return added, nil
}

// speakableBody converts entry HTML to markdown text and caps its length.
func speakableBody(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	md, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		// Fall back to the raw text; better spoken oddly than dropped.
		md = html
	}
	md = strings.TrimSpace(md)
	if len(md) > maxBodyChars {
		md = md[:maxBodyChars]
	}
	return md
}

type entry struct {
	title     string
	link      string
	body      string
	published time.Time
}

// rssDoc covers the subset of RSS 2.0 and Atom that feeds actually agree
// on: titles, links, a description/content blob, and a publish date.
type rssDoc struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

type atomDoc struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title string `xml:"title"`
	Links []struct {
		Href string `xml:"href,attr"`
		Rel  string `xml:"rel,attr"`
	} `xml:"link"`
	Content   string `xml:"content"`
	Summary   string `xml:"summary"`
	Updated   string `xml:"updated"`
	Published string `xml:"published"`
}

func parseEntries(data []byte) ([]entry, error) {
	var rss rssDoc
	if err := xml.Unmarshal(data, &rss); err == nil && len(rss.Channel.Items) > 0 {
		entries := make([]entry, 0, len(rss.Channel.Items))
		for _, item := range rss.Channel.Items {
			entries = append(entries, entry{
				title:     item.Title,
				link:      item.Link,
				body:      item.Description,
				published: parseDate(item.PubDate),
			})
		}
		return entries, nil
	}

	var atom atomDoc
	if err := xml.Unmarshal(data, &atom); err == nil && len(atom.Entries) > 0 {
		entries := make([]entry, 0, len(atom.Entries))
		for _, e := range atom.Entries {
			link := ""
			for _, l := range e.Links {
				if l.Rel == "" || l.Rel == "alternate" {
					link = l.Href
					break
				}
			}
			body := e.Content
			if body == "" {
				body = e.Summary
			}
			date := e.Published
			if date == "" {
				date = e.Updated
			}
			entries = append(entries, entry{
				title:     e.Title,
				link:      link,
				body:      body,
				published: parseDate(date),
			})
		}
		return entries, nil
	}

	return nil, fmt.Errorf("not a recognizable RSS or Atom document")
}

var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"2006-01-02T15:04:05Z",
}

func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now()
}
