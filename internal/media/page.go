package media

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/legadoives/transcritor/internal/deadline"
	"github.com/legadoives/transcritor/internal/fault"
)

// LocatorRule is one ordered pattern for finding an embedded media id
// in a page body. Rules run most specific first so generic substrings
// cannot shadow an exact embed match; the list is injectable because
// the precedence is an editorial choice, not a contract.
type LocatorRule struct {
	Name    string
	Pattern *regexp.Regexp
}

// DefaultLocatorRules covers the embed shapes seen in the wild:
// iframes, direct links, data attributes and inline player configs.
func DefaultLocatorRules() []LocatorRule {
	return []LocatorRule{
		{Name: "iframe src", Pattern: regexp.MustCompile(`player\.vimeo\.com/video/(\d+)`)},
		{Name: "video link", Pattern: regexp.MustCompile(`vimeo\.com/video/(\d+)`)},
		{Name: "plain link", Pattern: regexp.MustCompile(`vimeo\.com/(\d+)`)},
		{Name: "data attribute", Pattern: regexp.MustCompile(`data-vimeo-id="(\d+)"`)},
		{Name: "json config", Pattern: regexp.MustCompile(`"vimeo_video_id":\s*"?(\d+)"?`)},
		{Name: "config variant", Pattern: regexp.MustCompile(`(?i)vimeo_id['":\s]+(\d+)`)},
		{Name: "alt embed", Pattern: regexp.MustCompile(`embed/vimeo/(\d+)`)},
	}
}

var (
	pageTitlePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<title>([^<]+)</title>`),
		regexp.MustCompile(`(?i)<h1[^>]*>([^<]+)</h1>`),
		regexp.MustCompile(`(?i)<h2[^>]*>([^<]+)</h2>`),
	}
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{2,4})`),
		regexp.MustCompile(`(\d{1,2}-\d{1,2}-\d{2,4})`),
	}
	guestPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Convidado[:\s]*<[^>]*>([^<]+)`),
		regexp.MustCompile(`(?i)Entrevistado[:\s]*<[^>]*>([^<]+)`),
		regexp.MustCompile(`Convidado[:\s]*([A-ZÀ-Ú][a-zà-ú]+(?:\s+[A-ZÀ-Ú][a-zà-ú]+)*)`),
	}
	tagPattern = regexp.MustCompile(`<[^>]*>`)
)

// defaultTitle is used when a page yields no usable title.
const defaultTitle = "Entrevista"

// PageInfo is what the extractor digs out of an HTML page: the embedded
// media id (mandatory) and descriptive metadata (best effort).
type PageInfo struct {
	MediaID string
	Meta    Metadata
}

// PageExtractor locates an embedded media id and descriptive metadata
// by pattern matching a page body fetched under a hard deadline.
type PageExtractor struct {
	client       *http.Client
	timeout      time.Duration
	locatorRules []LocatorRule
	titleSuffix  *regexp.Regexp
}

// NewPageExtractor builds an extractor. A nil rule slice selects the
// defaults; titleSuffix strips a site-specific trailer from page titles
// and may be empty.
func NewPageExtractor(client *http.Client, timeout time.Duration, rules []LocatorRule, titleSuffix string) *PageExtractor {
	if client == nil {
		client = http.DefaultClient
	}
	if rules == nil {
		rules = DefaultLocatorRules()
	}
	e := &PageExtractor{client: client, timeout: timeout, locatorRules: rules}
	if titleSuffix != "" {
		e.titleSuffix = regexp.MustCompile(titleSuffix)
	}
	return e
}

// Extract fetches the page and applies the locator rules in order,
// first match wins. Metadata extraction over the same body is
// best-effort: a page with no recognizable title or guest still
// resolves, only a missing media id is fatal.
func (e *PageExtractor) Extract(ctx context.Context, pageURL string) (*PageInfo, error) {
	body, err := deadline.Run(ctx, e.timeout, "fetch page", func(ctx context.Context) (string, error) {
		return e.fetch(ctx, pageURL)
	})
	if err != nil {
		return nil, err
	}

	info := &PageInfo{Meta: e.metadata(body, pageURL)}
	for _, rule := range e.locatorRules {
		if m := rule.Pattern.FindStringSubmatch(body); m != nil {
			info.MediaID = m[1]
			return info, nil
		}
	}
	return nil, fault.New(fault.KindLocatorNotFound, "extract page",
		"no embedded media identifier in %s", pageURL)
}

func (e *PageExtractor) fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := fault.FromStatus("fetch page", resp.StatusCode, ""); err != nil {
		return "", err
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

// metadata never fails: missing pieces degrade to defaults.
func (e *PageExtractor) metadata(body, pageURL string) Metadata {
	meta := Metadata{Title: defaultTitle}

	for _, p := range pageTitlePatterns {
		m := p.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		title := html.UnescapeString(m[1])
		if e.titleSuffix != nil {
			title = e.titleSuffix.ReplaceAllString(title, "")
		}
		if title = strings.TrimSpace(title); title != "" {
			meta.Title = title
			break
		}
	}

	for _, p := range datePatterns {
		if m := p.FindStringSubmatch(meta.Title); m != nil {
			meta.Date = strings.ReplaceAll(m[1], "-", "/")
			break
		}
		if m := p.FindStringSubmatch(pageURL); m != nil {
			meta.Date = strings.ReplaceAll(m[1], "-", "/")
			break
		}
	}

	for _, p := range guestPatterns {
		if m := p.FindStringSubmatch(body); m != nil {
			guest := tagPattern.ReplaceAllString(m[1], "")
			meta.Guest = strings.TrimSpace(html.UnescapeString(guest))
			break
		}
	}

	return meta
}
