// Package fetch performs single-page retrievals against hostile sites:
// every request carries a randomized browser identity, waits out a
// jittered delay, and has its response classified into an explicit
// outcome instead of an exception.
package fetch

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Status classifies the outcome of one fetch.
type Status string

const (
	// StatusSuccess is HTTP 200 with no block markers.
	StatusSuccess Status = "success"
	// StatusSoftBlock is any other non-200 response; retry-friendly.
	StatusSoftBlock Status = "soft_block"
	// StatusHardBlock is explicit bot detection (403/429/503 or block
	// phrases); requires identity rotation and a cooldown.
	StatusHardBlock Status = "hard_block"
	// StatusCaptcha means the page served a CAPTCHA challenge. Never retried.
	StatusCaptcha Status = "captcha"
	// StatusNetworkError is a transport-level failure.
	StatusNetworkError Status = "network_error"
)

// blockPhrases are body markers that indicate a hard block even on HTTP 200.
var blockPhrases = []string{
	"Something went wrong",
	"Serve Protection",
}

// Result is the classified outcome of a single page fetch. Doc is non-nil
// only for StatusSuccess and StatusCaptcha.
type Result struct {
	Status     Status
	StatusCode int
	Doc        *goquery.Document
	Err        error
}

// Config controls fetcher throttling and timeouts.
type Config struct {
	Timeout       time.Duration // per-request socket timeout
	DelayMin      time.Duration // lower bound of the pre-request jitter
	DelayMax      time.Duration // upper bound of the pre-request jitter
	BlockCooldown time.Duration // extra wait after a hard block
	RateLimitRPS  float64       // per-domain token bucket rate
	RateBurst     int
}

// DefaultConfig returns throttling suited to anti-bot retail sites.
func DefaultConfig() Config {
	return Config{
		Timeout:       20 * time.Second,
		DelayMin:      2 * time.Second,
		DelayMax:      5 * time.Second,
		BlockCooldown: 10 * time.Second,
		RateLimitRPS:  0.5,
		RateBurst:     1,
	}
}

// Fetcher retrieves single pages with identity rotation, mandatory
// jittered delays, and per-domain rate limiting.
type Fetcher struct {
	cfg        Config
	identities *IdentityPool
	client     *http.Client

	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

// New creates a Fetcher with a keep-alive HTTP client.
func New(cfg Config, identities *IdentityPool) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  false,
	}
	return &Fetcher{
		cfg:        cfg,
		identities: identities,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		limiters: make(map[string]*rate.Limiter),
	}
}

// Fetch retrieves one URL. The jittered delay applies before every
// request, not only on retry; callers must treat the returned Status as
// the single source of truth about what happened.
func (f *Fetcher) Fetch(ctx context.Context, urlStr string) Result {
	if err := f.throttle(ctx, urlStr); err != nil {
		return Result{Status: StatusNetworkError, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return Result{Status: StatusNetworkError, Err: err}
	}
	for key, value := range f.identities.Headers() {
		req.Header.Set(key, value)
	}
	f.client.Jar = f.identities.Jar()

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		log.Debug().Str("url", urlStr).Err(err).Msg("Fetch transport error")
		return Result{Status: StatusNetworkError, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden ||
		resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode == http.StatusServiceUnavailable {
		log.Debug().Str("url", urlStr).Int("status", resp.StatusCode).Msg("Hard block status")
		return Result{Status: StatusHardBlock, StatusCode: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		log.Debug().Str("url", urlStr).Int("status", resp.StatusCode).Msg("Soft block status")
		return Result{Status: StatusSoftBlock, StatusCode: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return Result{Status: StatusNetworkError, StatusCode: resp.StatusCode, Err: err}
	}

	status := classifyBody(doc)
	log.Debug().
		Str("url", urlStr).
		Str("outcome", string(status)).
		Int64("response_time_ms", time.Since(start).Milliseconds()).
		Msg("Fetch completed")

	return Result{Status: status, StatusCode: resp.StatusCode, Doc: doc}
}

// RotateIdentity replaces the underlying client identity and cookie state
// entirely. Call after a hard block before the cooldown wait.
func (f *Fetcher) RotateIdentity() {
	f.identities.Rotate()
	log.Debug().Msg("Client identity rotated")
}

// Cooldown waits out the post-block cooldown, or returns early when the
// context is cancelled.
func (f *Fetcher) Cooldown(ctx context.Context) error {
	return sleepCtx(ctx, f.cfg.BlockCooldown)
}

// throttle applies the per-domain token bucket and the mandatory jitter.
func (f *Fetcher) throttle(ctx context.Context, urlStr string) error {
	if host := extractHost(urlStr); host != "" {
		if err := f.limiter(host).Wait(ctx); err != nil {
			return err
		}
	}
	delay := time.Duration(f.identities.jitter(int64(f.cfg.DelayMin), int64(f.cfg.DelayMax)))
	log.Debug().Str("url", urlStr).Dur("delay", delay).Msg("Throttling before fetch")
	return sleepCtx(ctx, delay)
}

// limiter returns or creates the rate limiter for a host.
func (f *Fetcher) limiter(host string) *rate.Limiter {
	f.mu.RLock()
	lim, ok := f.limiters[host]
	f.mu.RUnlock()
	if ok {
		return lim
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if lim, ok := f.limiters[host]; ok {
		return lim
	}
	rps := f.cfg.RateLimitRPS
	if rps <= 0 {
		rps = DefaultConfig().RateLimitRPS
	}
	burst := f.cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}
	lim = rate.NewLimiter(rate.Limit(rps), burst)
	f.limiters[host] = lim
	return lim
}

// classifyBody inspects a 200 response for CAPTCHA and block markers.
func classifyBody(doc *goquery.Document) Status {
	if doc.Find("input#captchacharacters").Length() > 0 {
		return StatusCaptcha
	}
	text := doc.Text()
	for _, phrase := range blockPhrases {
		if strings.Contains(text, phrase) {
			return StatusHardBlock
		}
	}
	return StatusSuccess
}

func extractHost(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Host
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
