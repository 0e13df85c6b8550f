package culler

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nikbrunner/vb/internal/model"
	"github.com/nikbrunner/vb/internal/youtube"
)

// Status represents the health of a video link.
type Status int

const (
	Healthy     Status = iota // 2xx or 3xx response
	Dead                      // 404, 410 Gone, or removed from the video host
	Unreachable               // timeout, DNS failure, connection refused, etc.
)

func (s Status) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Dead:
		return "dead"
	default:
		return "unreachable"
	}
}

// Result holds the check result for a single video.
type Result struct {
	Video      *model.Video
	Status     Status
	StatusCode int    // HTTP status code (0 if connection failed or the host API answered)
	Error      string // readable reason for unreachable links
}

// ProgressFunc is called after each link is checked.
type ProgressFunc func(completed, total int)

// VideoLookup asks the video host whether a video still exists.
// YouTube serves 200 pages for removed videos, so a plain HTTP check
// cannot tell.
type VideoLookup interface {
	Lookup(ctx context.Context, url string) (*youtube.Snippet, error)
}

// Options configures CheckURLs.
type Options struct {
	Concurrency    int           // defaults to 10
	Timeout        time.Duration // per request, defaults to 10s
	ExcludeDomains []string      // 404s on these domains count as possibly private
	Lookup         VideoLookup   // optional
	OnProgress     ProgressFunc  // optional
}

// CheckURLs checks all video links concurrently. Results keep the order of
// videos.
func CheckURLs(ctx context.Context, videos []model.Video, opts Options) []Result {
	if len(videos) == 0 {
		return nil
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 10
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	// Silence the HTTP client's protocol noise while checking
	originalOutput := log.Writer()
	log.SetOutput(io.Discard)
	defer log.SetOutput(originalOutput)

	excludeMap := make(map[string]bool)
	for _, domain := range opts.ExcludeDomains {
		excludeMap[strings.ToLower(domain)] = true
	}

	c := &checker{
		client: &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		lookup:  opts.Lookup,
		exclude: excludeMap,
	}

	results := make([]Result, len(videos))
	jobs := make(chan int, len(videos))
	var wg sync.WaitGroup

	var progressMu sync.Mutex
	completed := 0

	for w := 0; w < opts.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = c.check(ctx, &videos[idx])

				if opts.OnProgress != nil {
					progressMu.Lock()
					completed++
					opts.OnProgress(completed, len(videos))
					progressMu.Unlock()
				}
			}
		}()
	}

	for i := range videos {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

// DeadResults returns the results whose link is gone.
func DeadResults(results []Result) []Result {
	var dead []Result
	for _, r := range results {
		if r.Status == Dead {
			dead = append(dead, r)
		}
	}
	return dead
}

type checker struct {
	client  *http.Client
	lookup  VideoLookup
	exclude map[string]bool
}

func (c *checker) check(ctx context.Context, v *model.Video) Result {
	result := Result{Video: v}

	if c.lookup != nil {
		_, err := c.lookup.Lookup(ctx, v.URL)
		switch {
		case err == nil:
			result.Status = Healthy
			return result
		case errors.Is(err, youtube.ErrNoVideo):
			result.Status = Dead
			result.Error = "Removed from YouTube"
			return result
		}
		// Not a YouTube link or the API failed: fall back to HTTP
	}

	// HEAD first, GET for servers that reject HEAD
	resp, err := c.do(ctx, http.MethodHead, v.URL)
	if err != nil {
		resp, err = c.do(ctx, http.MethodGet, v.URL)
		if err != nil {
			result.Status = Unreachable
			result.Error = normalizeError(err.Error())
			return result
		}
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		result.Status = Healthy
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		if isExcludedDomain(v.URL, c.exclude) {
			result.Status = Unreachable
			result.Error = "Possibly private (auth required)"
		} else {
			result.Status = Dead
		}
	default:
		// 403, 5xx and friends may be temporary or need a login
		result.Status = Unreachable
		result.Error = http.StatusText(resp.StatusCode)
	}

	return result
}

func (c *checker) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return c.client.Do(req)
}

// isExcludedDomain reports whether the URL's host is an excluded domain or
// one of its subdomains.
func isExcludedDomain(rawURL string, excludeMap map[string]bool) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	if excludeMap[host] {
		return true
	}
	for domain := range excludeMap {
		if strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// normalizeError maps verbose transport errors to short reasons.
func normalizeError(errStr string) string {
	lower := strings.ToLower(errStr)

	switch {
	case strings.Contains(lower, "no such host"):
		return "DNS failure"
	case strings.Contains(lower, "context deadline exceeded"),
		strings.Contains(lower, "timeout"):
		return "Timeout"
	case strings.Contains(lower, "connection refused"):
		return "Connection refused"
	case strings.Contains(lower, "certificate"):
		return "TLS/certificate error"
	case strings.Contains(lower, "network is unreachable"):
		return "Network unreachable"
	case strings.Contains(lower, "tls:"):
		return "TLS error"
	case strings.Contains(lower, "unsupported protocol scheme"):
		return "Invalid link"
	default:
		return errStr
	}
}
