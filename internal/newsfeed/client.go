package newsfeed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/rss"
	"golang.org/x/net/html"
)

// QueryPlaceholder marks where a feed URL takes the escaped search query.
const QueryPlaceholder = "{query}"

// DefaultFeedURL is the Google News search feed.
const DefaultFeedURL = "https://news.google.com/rss/search?q=" + QueryPlaceholder + "&hl=en-US&gl=US&ceid=US:en"

const (
	defaultSource = "Google News"
	sourceKey     = "source"
)

// ErrFeedURL is returned for a feed URL without QueryPlaceholder.
var ErrFeedURL = errors.New("feed url must contain " + QueryPlaceholder)

// Item is one entry from a news feed.
type Item struct {
	Title     string
	Link      string
	Summary   string
	Content   string
	Source    string
	Published *time.Time
}

// NewCachingHTTPClient returns a client that honours Cache-Control on feed responses. An empty
// cacheDir keeps the cache in memory.
func NewCachingHTTPClient(cacheDir string, timeout time.Duration) *http.Client {
	var cache httpcache.Cache = httpcache.NewMemoryCache()
	if cacheDir != "" {
		cache = diskcache.New(cacheDir)
	}
	return &http.Client{Transport: httpcache.NewTransport(cache), Timeout: timeout}
}

// sourceTranslator keeps the RSS <source> element, which the universal item drops.
type sourceTranslator struct {
	gofeed.DefaultRSSTranslator
}

func (t *sourceTranslator) Translate(feed interface{}) (*gofeed.Feed, error) {
	out, err := t.DefaultRSSTranslator.Translate(feed)
	if err != nil {
		return nil, err
	}
	raw, ok := feed.(*rss.Feed)
	if !ok || len(raw.Items) != len(out.Items) {
		return out, nil
	}
	for i, item := range raw.Items {
		if item.Source == nil || out.Items[i] == nil {
			continue
		}
		if out.Items[i].Custom == nil {
			out.Items[i].Custom = map[string]string{}
		}
		out.Items[i].Custom[sourceKey] = item.Source.Title
	}
	return out, nil
}

// Client searches an RSS or Atom news feed.
type Client struct {
	http    *http.Client
	feedURL string
}

// NewClient returns a feed client. feedURL defaults to DefaultFeedURL and must otherwise contain
// QueryPlaceholder; httpClient defaults to an in-memory caching client.
func NewClient(httpClient *http.Client, feedURL string) (*Client, error) {
	if feedURL == "" {
		feedURL = DefaultFeedURL
	}
	if !strings.Contains(feedURL, QueryPlaceholder) {
		return nil, fmt.Errorf("%w: %q", ErrFeedURL, feedURL)
	}
	if httpClient == nil {
		httpClient = NewCachingHTTPClient("", 15*time.Second)
	}
	return &Client{http: httpClient, feedURL: feedURL}, nil
}

// Search fetches the feed for keyword and returns its items in feed order.
func (c *Client) Search(ctx context.Context, keyword string) ([]Item, error) {
	target := strings.ReplaceAll(c.feedURL, QueryPlaceholder, url.QueryEscape(keyword+" business finance"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch news feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch news feed: unexpected status %d", resp.StatusCode)
	}

	// the cache only stores bodies that were read to EOF
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read news feed: %w", err)
	}

	parser := gofeed.NewParser()
	parser.RSSTranslator = &sourceTranslator{}
	feed, err := parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse news feed: %w", err)
	}

	items := make([]Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry != nil {
			items = append(items, toItem(entry))
		}
	}
	return items, nil
}

func toItem(entry *gofeed.Item) Item {
	it := Item{
		Title:   strings.TrimSpace(entry.Title),
		Link:    strings.TrimSpace(entry.Link),
		Content: strings.TrimSpace(entry.Description),
		Source:  strings.TrimSpace(entry.Custom[sourceKey]),
	}
	if it.Content == "" {
		it.Content = strings.TrimSpace(entry.Content)
	}
	if it.Title == "" {
		it.Title = "No Title"
	}
	if it.Source == "" {
		it.Source = defaultSource
	}
	it.Summary = plainText(it.Content)

	published := entry.PublishedParsed
	if published == nil {
		published = entry.UpdatedParsed
	}
	if published != nil {
		t := published.UTC()
		it.Published = &t
	}
	return it
}

// plainText drops markup and collapses whitespace.
func plainText(fragment string) string {
	var parts []string
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
		case html.TextToken:
			parts = append(parts, string(z.Text()))
		}
	}
}
