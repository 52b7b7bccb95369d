package provider

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"marketlens/internal/model"
)

// FeedReader pulls news entries from RSS/Atom feeds. Each feed is parsed
// independently: a malformed or unreachable feed is skipped, never fatal to
// the batch.
type FeedReader struct {
	parser *gofeed.Parser
	log    zerolog.Logger
}

// NewFeedReader creates a feed reader with a bounded fetch timeout.
func NewFeedReader(log zerolog.Logger) *FeedReader {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: 20 * time.Second}
	return &FeedReader{
		parser: parser,
		log:    log.With().Str("provider", "rss").Logger(),
	}
}

// Fetch parses every feed and returns the normalized entries. Entries missing
// a title or link are dropped. When symbols are given, each entry gets a
// best-effort tag: the first symbol found in its title or summary,
// case-insensitive.
func (r *FeedReader) Fetch(ctx context.Context, feeds, symbols []string) []model.NewsItem {
	var items []model.NewsItem
	for _, feedURL := range feeds {
		feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			r.log.Warn().Err(err).Str("feed", feedURL).Msg("feed parse failed, skipping")
			continue
		}
		for _, entry := range feed.Items {
			if entry == nil || entry.Title == "" || entry.Link == "" {
				continue
			}
			published := entry.Published
			if published == "" {
				published = entry.Updated
			}
			items = append(items, model.NewsItem{
				Title:     strings.TrimSpace(entry.Title),
				URL:       strings.TrimSpace(entry.Link),
				Published: published,
				Summary:   entry.Description,
				Source:    feed.Title,
			})
		}
	}
	tagSymbols(items, symbols)
	return items
}

// tagSymbols assigns each item the first symbol whose ticker appears as a
// word in the item's title or summary. Tagging is best-effort, not
// authoritative; untagged items stay untagged.
func tagSymbols(items []model.NewsItem, symbols []string) {
	if len(symbols) == 0 {
		return
	}
	upper := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			upper = append(upper, s)
		}
	}
	for i := range items {
		text := " " + strings.ToUpper(items[i].Title+" "+items[i].Summary) + " "
		for _, sym := range upper {
			if strings.Contains(text, " "+sym+" ") {
				items[i].Symbol = sym
				break
			}
		}
	}
}
