// Package scraper downloads policy documents from a URL list. PDFs are
// stored as-is; HTML pages are reduced to their main content and stored as
// markdown. Each stored document gets a metadata sidecar recording its
// provenance.
package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"

	"policypipe/pkg/config"
	errs "policypipe/pkg/errors"
	"policypipe/pkg/logger"
	"policypipe/pkg/metadata"
	"policypipe/pkg/ratelimit"
	"policypipe/pkg/retry"
	"policypipe/pkg/storage"
)

var (
	invalidFilenameChars = regexp.MustCompile(`[\\/:*?"<>|]+`)
	placeholderLine      = regexp.MustCompile(`(?i)^(n/?a|none|null)$`)
)

// noiseSelectors are HTML elements stripped before text extraction
var noiseSelectors = []string{
	"script", "style", "noscript",
	"nav", "footer", "header",
	"img", "picture", "figure", "figcaption",
	"iframe", "video", "audio",
	"svg", "canvas",
	"form", "button", "input", "select", "textarea",
}

// Result tallies the outcome of a scrape run
type Result struct {
	Saved   int
	Skipped int
	Failed  int
}

// Scraper fetches documents over HTTP with rate limiting and retries
type Scraper struct {
	client    *http.Client
	storage   *storage.Manager
	limiter   ratelimit.Limiter
	retryCfg  *retry.Config
	userAgent string
	overwrite bool
	log       logger.Logger
}

// New creates a scraper from configuration
func New(cfg *config.Config, log logger.Logger) (*Scraper, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	store, err := storage.NewManager(cfg.Scrape.OutputDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage manager: %w", err)
	}

	return &Scraper{
		client: &http.Client{
			Timeout: cfg.Scrape.Timeout,
		},
		storage:   store,
		limiter:   ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize),
		retryCfg:  retry.FromRetryConfig(&cfg.Retry, log),
		userAgent: cfg.Scrape.UserAgent,
		overwrite: cfg.Scrape.OverwriteLocal,
		log:       log,
	}, nil
}

// ReadURLList parses a URL list file: one URL per line, blank lines and
// placeholder values (n/a, none, null) skipped
func ReadURLList(data []byte) []string {
	var urls []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || placeholderLine.MatchString(line) {
			continue
		}
		urls = append(urls, line)
	}
	return urls
}

// Run fetches every URL in order. A failed URL is logged and counted, never
// fatal to the run; queue order is preserved so document indices are stable
// across reruns.
func (s *Scraper) Run(ctx context.Context, urls []string) (*Result, error) {
	result := &Result{}

	for i, rawURL := range urls {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		key := documentKey(rawURL, i+1)
		if !s.overwrite && s.storage.IsSaved(key) {
			s.log.DebugWithFields("document already saved, skipping", map[string]interface{}{
				"url": rawURL,
				"key": key,
			})
			result.Skipped++
			continue
		}

		if err := s.fetchDocument(ctx, rawURL, key); err != nil {
			s.log.ErrorWithFields("failed to fetch document", map[string]interface{}{
				"url":   rawURL,
				"error": err.Error(),
			})
			result.Failed++
			continue
		}
		result.Saved++
	}

	s.log.InfoWithFields("scrape complete", map[string]interface{}{
		"saved":   result.Saved,
		"skipped": result.Skipped,
		"failed":  result.Failed,
	})

	return result, nil
}

// fetchDocument downloads one URL and stores it with its metadata sidecar
func (s *Scraper) fetchDocument(ctx context.Context, rawURL, key string) error {
	cfg := *s.retryCfg
	cfg.Context = ctx

	fetched, err := retry.DoWithResult(func() (fetchResponse, error) {
		if err := s.limiter.Wait(ctx); err != nil {
			return fetchResponse{}, err
		}
		return s.fetchOnce(ctx, rawURL)
	}, &cfg)
	if err != nil {
		return err
	}
	body, contentType := fetched.body, fetched.contentType

	var (
		docPath string
		ext     string
	)
	if isPDF(rawURL, contentType, body) {
		ext = ".pdf"
		docPath, err = s.storage.SaveDocument(bytes.NewReader(body), key, ext)
	} else {
		text, convErr := htmlToText(string(body))
		if convErr != nil {
			return convErr
		}
		ext = ".md"
		docPath, err = s.storage.SaveDocument(strings.NewReader(text), key, ext)
	}
	if err != nil {
		return err
	}

	if err := metadata.Save(docPath, metadata.Document{
		URL:         rawURL,
		ContentType: contentType,
		FetchedAt:   time.Now().UTC(),
		Size:        int64(len(body)),
	}); err != nil {
		return err
	}

	s.log.InfoWithFields("document saved", map[string]interface{}{
		"url":  rawURL,
		"path": docPath,
	})

	return nil
}

type fetchResponse struct {
	body        []byte
	contentType string
}

func (s *Scraper) fetchOnce(ctx context.Context, rawURL string) (fetchResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fetchResponse{}, errs.New(errs.ErrorTypeParsing, err.Error())
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return fetchResponse{}, errs.New(errs.ErrorTypeNetwork, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fetchResponse{}, errs.FromStatusCode(resp.StatusCode, "document request failed")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fetchResponse{}, errs.New(errs.ErrorTypeNetwork, err.Error())
	}

	return fetchResponse{body: body, contentType: resp.Header.Get("Content-Type")}, nil
}

// isPDF detects PDFs by content type, magic bytes, or URL extension
func isPDF(rawURL, contentType string, body []byte) bool {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		if mt == "application/pdf" || mt == "application/x-pdf" {
			return true
		}
	}
	if bytes.HasPrefix(body, []byte("%PDF-")) {
		return true
	}
	if u, err := url.Parse(rawURL); err == nil {
		if strings.EqualFold(path.Ext(u.Path), ".pdf") {
			return true
		}
	}
	return false
}

// documentKey derives a stable storage key from the URL path, falling back
// to the queue index when the path has no usable name
func documentKey(rawURL string, index int) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Sprintf("document-%d", index)
	}

	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return fmt.Sprintf("document-%d", index)
	}

	name = strings.TrimSuffix(name, path.Ext(name))
	name = sanitizeFilename(name)
	if name == "" {
		return fmt.Sprintf("document-%d", index)
	}

	return name
}

// sanitizeFilename replaces characters unsafe on common filesystems
func sanitizeFilename(name string) string {
	return strings.TrimSpace(invalidFilenameChars.ReplaceAllString(name, "_"))
}

// htmlToText reduces an HTML page to markdown text: noise elements removed,
// the best content container isolated, then converted
func htmlToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", errs.New(errs.ErrorTypeParsing, fmt.Sprintf("parsing HTML: %v", err))
	}

	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}

	var content *goquery.Selection
	for _, tag := range []string{"main", "article", "body"} {
		sel := doc.Find(tag)
		if sel.Length() > 0 {
			content = sel.First()
			break
		}
	}
	if content == nil {
		return "", errs.New(errs.ErrorTypeParsing, "no content container found in HTML")
	}

	fragment, err := goquery.OuterHtml(content)
	if err != nil {
		return "", errs.New(errs.ErrorTypeParsing, fmt.Sprintf("serializing content: %v", err))
	}

	markdown, err := htmltomarkdown.ConvertString(fragment)
	if err != nil {
		return "", errs.New(errs.ErrorTypeParsing, fmt.Sprintf("converting HTML to markdown: %v", err))
	}

	return strings.TrimSpace(markdown), nil
}
