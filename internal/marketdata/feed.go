package marketdata

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/cloo-solutions/finsight/internal/domain"
)

// feedNamespace makes document IDs a pure function of the entry identity, so
// refetching a feed yields the same IDs and ingest stays idempotent.
var feedNamespace = uuid.MustParse("7c9e3aa1-44d2-4a30-8b21-d0c3f1b9a57e")

var feedDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999-07:00",
	"Mon, 2 Jan 2006 15:04:05 -0700",
}

type rssFeed struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Description string `xml:"description"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	PubDate     string `xml:"pubDate"`
}

type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title     string     `xml:"title"`
	Summary   string     `xml:"summary"`
	Content   string     `xml:"content"`
	ID        string     `xml:"id"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
	Links     []atomLink `xml:"link"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

// FeedSource fetches news documents from RSS 2.0 and Atom feeds.
type FeedSource struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewFeedSource creates a feed source over the given HTTP client.
func NewFeedSource(httpClient *http.Client) *FeedSource {
	return &FeedSource{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(float64(defaultRequestsPerMinute)/60.0), 1),
	}
}

// Name returns the source's display name.
func (s *FeedSource) Name() string { return "RSS" }

// Fetch downloads a feed and converts its entries into news documents for
// the symbol, sorted by publication time ascending. Entries without a
// parseable publication time are dropped.
func (s *FeedSource) Fetch(ctx context.Context, symbol, feedURL string) ([]domain.Document, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if feedURL == "" {
		return nil, fmt.Errorf("feed URL is required")
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", yahooUA)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDataUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", domain.ErrDataUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading feed: %v", domain.ErrDataUnavailable, err)
	}

	docs, err := parseFeed(symbol, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDataUnavailable, err)
	}

	sort.SliceStable(docs, func(i, j int) bool {
		if !docs[i].PublishedAt.Equal(docs[j].PublishedAt) {
			return docs[i].PublishedAt.Before(docs[j].PublishedAt)
		}
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

func parseFeed(symbol string, body []byte) ([]domain.Document, error) {
	var rss rssFeed
	if err := xml.Unmarshal(body, &rss); err == nil {
		return rssDocuments(symbol, rss), nil
	}

	var atom atomFeed
	if err := xml.Unmarshal(body, &atom); err == nil {
		return atomDocuments(symbol, atom), nil
	}

	return nil, fmt.Errorf("feed is neither RSS nor Atom")
}

func rssDocuments(symbol string, feed rssFeed) []domain.Document {
	docs := make([]domain.Document, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		published, ok := parseFeedTime(item.PubDate)
		if !ok {
			continue
		}
		identity := item.GUID
		if identity == "" {
			identity = item.Link
		}
		if identity == "" {
			identity = item.Title + "|" + item.PubDate
		}

		doc := domain.NewDocument(feedDocumentID(identity), symbol, domain.SourceTypeNews,
			strings.TrimSpace(item.Title), published)
		doc.Body = stripHTML(item.Description)
		docs = append(docs, *doc)
	}
	return docs
}

func atomDocuments(symbol string, feed atomFeed) []domain.Document {
	docs := make([]domain.Document, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		stamp := entry.Published
		if stamp == "" {
			stamp = entry.Updated
		}
		published, ok := parseFeedTime(stamp)
		if !ok {
			continue
		}
		identity := entry.ID
		if identity == "" {
			identity = entryLink(entry)
		}
		if identity == "" {
			identity = entry.Title + "|" + stamp
		}

		body := entry.Content
		if strings.TrimSpace(body) == "" {
			body = entry.Summary
		}

		doc := domain.NewDocument(feedDocumentID(identity), symbol, domain.SourceTypeNews,
			strings.TrimSpace(entry.Title), published)
		doc.Body = stripHTML(body)
		docs = append(docs, *doc)
	}
	return docs
}

func entryLink(entry atomEntry) string {
	for _, l := range entry.Links {
		if l.Rel == "" || l.Rel == "alternate" {
			return l.Href
		}
	}
	if len(entry.Links) > 0 {
		return entry.Links[0].Href
	}
	return ""
}

func feedDocumentID(identity string) string {
	return uuid.NewSHA1(feedNamespace, []byte(identity)).String()
}

func parseFeedTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range feedDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)
var spacePattern = regexp.MustCompile(`[ \t]+`)

// stripHTML reduces feed HTML to plain text: tags removed, entities
// unescaped, runs of spaces collapsed.
func stripHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
