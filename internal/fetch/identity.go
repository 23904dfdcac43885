package fetch

import (
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"sync"
)

// browserSignatures is a fixed pool of realistic client identities.
// Every request borrows one at random so consecutive fetches do not
// present an identical fingerprint.
var browserSignatures = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// IdentityPool hands out randomized browser identities and owns the
// cookie jar that ties a sequence of requests together. Rotating the
// pool replaces the jar entirely, which is what a hard block demands.
type IdentityPool struct {
	mu  sync.Mutex
	rng *rand.Rand
	jar http.CookieJar
}

// NewIdentityPool creates a pool seeded with the given source. A nil-safe
// fresh cookie jar is created up front.
func NewIdentityPool(seed int64) *IdentityPool {
	jar, _ := cookiejar.New(nil)
	return &IdentityPool{
		rng: rand.New(rand.NewSource(seed)),
		jar: jar,
	}
}

// Headers returns a full browser-like header set with a randomly selected
// User-Agent.
func (p *IdentityPool) Headers() map[string]string {
	p.mu.Lock()
	ua := browserSignatures[p.rng.Intn(len(browserSignatures))]
	p.mu.Unlock()

	return map[string]string{
		"User-Agent":                ua,
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.9",
		"Accept-Encoding":           "gzip, deflate, br",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
		"Sec-Fetch-User":            "?1",
		"Cache-Control":             "max-age=0",
	}
}

// Jar returns the current cookie jar.
func (p *IdentityPool) Jar() http.CookieJar {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.jar
}

// Rotate discards all accumulated cookie state, giving subsequent
// requests a completely fresh session.
func (p *IdentityPool) Rotate() {
	jar, _ := cookiejar.New(nil)
	p.mu.Lock()
	p.jar = jar
	p.mu.Unlock()
}

// jitter returns a uniformly random duration in [min, max].
func (p *IdentityPool) jitter(min, max int64) int64 {
	if max <= min {
		return min
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return min + p.rng.Int63n(max-min)
}
