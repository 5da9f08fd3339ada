package ingest

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"newswire/internal/services"
)

// Document is one raw candidate produced by an adapter. The stage decides
// whether it is new; adapters only extract.
type Document struct {
	URL         string
	Title       string
	Text        string
	PublishedAt *time.Time
}

// Fetcher retrieves candidate documents for one source.
type Fetcher struct {
	http *resty.Client
}

// NewFetcher builds a fetcher with sane network defaults.
func NewFetcher() *Fetcher {
	return &Fetcher{
		http: resty.New().
			SetTimeout(30 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(2 * time.Second).
			SetHeader("User-Agent", "newswire/1.0"),
	}
}

// Fetch dispatches to the adapter for the source kind.
func (f *Fetcher) Fetch(ctx context.Context, src Source) ([]Document, error) {
	body, err := f.get(ctx, src)
	if err != nil {
		return nil, err
	}
	switch src.Kind {
	case KindRSS:
		return parseFeed(src, body)
	case KindHTML:
		return parseListing(src, body)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "ingestion", "fetch",
			fmt.Sprintf("source %q has unknown kind %q", src.Name, src.Kind), nil)
	}
}

func (f *Fetcher) get(ctx context.Context, src Source) ([]byte, error) {
	resp, err := f.http.R().SetContext(ctx).Get(src.URL)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "ingestion", "fetch", src.Name, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, services.Wrap(services.ErrTransport, "ingestion", "fetch",
			fmt.Sprintf("%s: http %d", src.Name, resp.StatusCode()), nil)
	}
	return resp.Body(), nil
}

// rssFeed covers both RSS 2.0 (channel/item) and Atom (entry) documents;
// unmatched elements simply stay empty.
type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
	Entries []atomEntry `xml:"entry"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Content     string `xml:"encoded"`
	PubDate     string `xml:"pubDate"`
}

type atomEntry struct {
	Title string `xml:"title"`
	Link  struct {
		Href string `xml:"href,attr"`
	} `xml:"link"`
	Summary string `xml:"summary"`
	Content string `xml:"content"`
	Updated string `xml:"updated"`
}

func parseFeed(src Source, body []byte) ([]Document, error) {
	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, services.Wrap(services.ErrContentQuality, "ingestion", "parse feed", src.Name, err)
	}
	var docs []Document
	for _, item := range feed.Channel.Items {
		doc := Document{
			URL:         strings.TrimSpace(item.Link),
			Title:       strings.TrimSpace(item.Title),
			Text:        stripMarkup(firstOf(item.Content, item.Description)),
			PublishedAt: parseFeedTime(item.PubDate),
		}
		if doc.URL != "" {
			docs = append(docs, doc)
		}
	}
	for _, entry := range feed.Entries {
		doc := Document{
			URL:         strings.TrimSpace(entry.Link.Href),
			Title:       strings.TrimSpace(entry.Title),
			Text:        stripMarkup(firstOf(entry.Content, entry.Summary)),
			PublishedAt: parseFeedTime(entry.Updated),
		}
		if doc.URL != "" {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func parseListing(src Source, body []byte) ([]Document, error) {
	page, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, services.Wrap(services.ErrContentQuality, "ingestion", "parse listing", src.Name, err)
	}
	var docs []Document
	page.Find(src.Selectors.Item).Each(func(_ int, item *goquery.Selection) {
		link := item.Find(src.Selectors.Link).First()
		href, _ := link.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		if !strings.HasPrefix(href, "http") {
			href = strings.TrimRight(baseOf(src.URL), "/") + "/" + strings.TrimLeft(href, "/")
		}
		doc := Document{URL: href}
		if src.Selectors.Title != "" {
			doc.Title = strings.TrimSpace(item.Find(src.Selectors.Title).First().Text())
		}
		if doc.Title == "" {
			doc.Title = strings.TrimSpace(link.Text())
		}
		if src.Selectors.Summary != "" {
			doc.Text = strings.TrimSpace(item.Find(src.Selectors.Summary).First().Text())
		}
		if src.Selectors.Time != "" {
			stamp := item.Find(src.Selectors.Time).First()
			raw, ok := stamp.Attr("datetime")
			if !ok {
				raw = stamp.Text()
			}
			doc.PublishedAt = parseFeedTime(raw)
		}
		docs = append(docs, doc)
	})
	return docs, nil
}

func baseOf(rawURL string) string {
	if idx := strings.Index(rawURL, "://"); idx >= 0 {
		rest := rawURL[idx+3:]
		if slash := strings.IndexByte(rest, '/'); slash >= 0 {
			return rawURL[:idx+3+slash]
		}
	}
	return rawURL
}

func firstOf(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// stripMarkup flattens embedded HTML in feed descriptions to plain text.
func stripMarkup(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.ContainsAny(raw, "<&") {
		return raw
	}
	page, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return raw
	}
	return strings.TrimSpace(strings.Join(strings.Fields(page.Text()), " "))
}

var feedTimeLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseFeedTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range feedTimeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			utc := parsed.UTC()
			return &utc
		}
	}
	return nil
}
