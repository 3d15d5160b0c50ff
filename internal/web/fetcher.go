package web

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/leonardcser/litecache/internal/cache"
	"github.com/leonardcser/litecache/internal/logger"
)

const (
	RequestTimeout  = 20 * time.Second
	MaxResponseSize = 1 * 1024 * 1024 // 1MB
	MaxLinks        = 50

	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36"
)

// PageSummary is the cached result of fetching a page.
type PageSummary struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Text        string   `json:"text"`
	Links       []string `json:"links"`
}

// Fetcher retrieves pages and keeps their summaries in a cache until they expire.
type Fetcher struct {
	cache cache.Cache
	ttl   time.Duration
}

func NewFetcher(c cache.Cache, ttl time.Duration) *Fetcher {
	return &Fetcher{cache: c, ttl: ttl}
}

func cacheKey(rawURL string) string { return "web_fetch|" + rawURL }

// cached returns the unexpired summary for key, if any.
func (f *Fetcher) cached(key string) (*PageSummary, bool) {
	if expired, err := f.cache.IsExpired(key); err != nil || expired {
		return nil, false
	}
	ps, err := cache.Get[PageSummary](f.cache, key)
	if err != nil {
		logger.Warnf("web: cached %s: %v", key, err)
		return nil, false
	}
	if ps.URL == "" {
		return nil, false
	}
	return &ps, true
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*PageSummary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return nil, errors.New("url must start with http:// or https://")
	}
	key := cacheKey(rawURL)
	if ps, ok := f.cached(key); ok {
		return ps, nil
	}

	var (
		body        []byte
		finalURL    string
		contentType string
	)
	c := colly.NewCollector(colly.AllowURLRevisit(), colly.UserAgent(userAgent))
	c.SetRequestTimeout(RequestTimeout)
	c.MaxBodySize = MaxResponseSize
	c.Context = ctx
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})
	c.OnResponse(func(r *colly.Response) {
		finalURL = r.Request.URL.String()
		body = append([]byte(nil), r.Body...)
		contentType = r.Headers.Get("Content-Type")
	})
	if err := c.Visit(rawURL); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	ps, err := Summarize(finalURL, contentType, body)
	if err != nil {
		return nil, err
	}
	if ok, err := cache.Add(f.cache, key, *ps, f.ttl); err != nil || !ok {
		logger.Warnf("web: cache %s: ok=%v err=%v", key, ok, err)
	}
	return ps, nil
}

// Summarize extracts title, description, markdown text and links from a
// fetched body. Non-HTML text is returned as is; binary content is rejected.
func Summarize(pageURL, contentType string, body []byte) (*PageSummary, error) {
	if len(body) == 0 {
		return nil, errors.New("empty response body")
	}
	lowerCT := strings.ToLower(contentType)
	if !strings.HasPrefix(lowerCT, "text/") {
		return nil, errors.New("unsupported content type: binary files like images or PDFs are not supported")
	}
	if !strings.Contains(lowerCT, "text/html") {
		return &PageSummary{URL: pageURL, Text: string(body)}, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	// Remove non-visible elements
	doc.Find("script, style, noscript, iframe, object, embed, img, video, picture, svg, canvas, audio, source, track, map, area, form, label, input, button, select, textarea, progress").Remove()

	ps := &PageSummary{
		URL:         pageURL,
		Title:       strings.TrimSpace(doc.Find("head > title").First().Text()),
		Description: strings.TrimSpace(doc.Find("meta[name=description]").AttrOr("content", "")),
		Links:       extractLinks(doc, pageURL),
	}
	plain := strings.Join(strings.Fields(doc.Find("body").Text()), " ")

	doc.Find("a, header, footer, aside").Remove()
	html, err := doc.Html()
	if err != nil {
		return nil, err
	}
	if md, err := htmltomarkdown.ConvertString(html); err == nil {
		ps.Text = strings.TrimSpace(md)
	} else {
		ps.Text = plain
	}
	return ps, nil
}

// extractLinks returns up to MaxLinks absolute, fragment-free http(s) links, sorted.
func extractLinks(doc *goquery.Document, pageURL string) []string {
	base, _ := url.Parse(pageURL)
	set := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" {
			return
		}
		u, err := url.Parse(href)
		if err != nil {
			return
		}
		if !u.IsAbs() && base != nil {
			u = base.ResolveReference(u)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return
		}
		u.Fragment = ""
		set[u.String()] = struct{}{}
	})
	links := make([]string, 0, len(set))
	for l := range set {
		links = append(links, l)
	}
	sort.Strings(links)
	if len(links) > MaxLinks {
		links = links[:MaxLinks]
	}
	return links
}
