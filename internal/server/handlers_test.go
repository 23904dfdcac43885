package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/law-makers/reviewlens/internal/analysis"
	"github.com/law-makers/reviewlens/internal/jobs"
	"github.com/law-makers/reviewlens/internal/store"
	"github.com/law-makers/reviewlens/pkg/models"
)

// newTestServer wires a server over in-memory stores. The tracker runs
// real workers, so these tests only submit invalid scrape requests; the
// full job lifecycle is covered in the jobs package.
func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	products := store.NewMemoryStore()
	runner := analysis.NewRunner(products, 5, 10, time.Hour)
	tracker := jobs.NewTracker(jobs.Config{Workers: 1, QueueSize: 4}, jobs.NewMemoryStore(), products, runner)
	t.Cleanup(tracker.Shutdown)
	return New(":0", tracker, products, runner), products
}

func seedServerProduct(t *testing.T, st store.Store, reviews ...models.Review) *models.Product {
	t.Helper()
	ctx := context.Background()
	p := &models.Product{URL: "https://www.amazon.in/dp/B0HANDLERS", Platform: "amazon", Name: "Handler Gadget"}
	require.NoError(t, st.CreateProduct(ctx, p))
	require.NoError(t, st.ReplaceReviews(ctx, p.ID, reviews))
	return p
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestScrapeCreate_MissingURL(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/api/scrape", `{"max_reviews":10}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "url is required")
}

func TestScrapeCreate_InvalidBody(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/api/scrape", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScrapeCreate_UnsupportedPlatform(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/api/scrape", `{"url":"https://www.ebay.com/itm/555"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported")
}

func TestScrapeStatus_UnknownJob(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/api/scrape/no-such-job/status", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScrapeCancel_UnknownJob(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(s, http.MethodDelete, "/api/scrape/no-such-job", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductList(t *testing.T) {
	s, st := newTestServer(t)
	seedServerProduct(t, st)

	rec := doRequest(s, http.MethodGet, "/api/products", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var products []models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products, 1)
	assert.Equal(t, "Handler Gadget", products[0].Name)
}

func TestProductGet(t *testing.T) {
	s, st := newTestServer(t)
	p := seedServerProduct(t, st)

	rec := doRequest(s, http.MethodGet, fmt.Sprintf("/api/products/%d", p.ID), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var got models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.URL, got.URL)
}

func TestProductGet_NotFound(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/api/products/999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductGet_InvalidID(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/api/products/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid product id")
}

func TestProductDelete(t *testing.T) {
	s, st := newTestServer(t)
	p := seedServerProduct(t, st)

	rec := doRequest(s, http.MethodDelete, fmt.Sprintf("/api/products/%d", p.ID), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodGet, fmt.Sprintf("/api/products/%d", p.ID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalysisStage(t *testing.T) {
	s, st := newTestServer(t)
	p := seedServerProduct(t, st,
		models.Review{Text: "Excellent battery, love this phone", Rating: 5, Date: time.Now(), Verified: true},
	)

	rec := doRequest(s, http.MethodGet, fmt.Sprintf("/api/analysis/%d/sentiment", p.ID), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var res models.SentimentResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 1, res.TotalReviews)
	assert.Equal(t, "positive", res.OverallLabel)
}

func TestAnalysisStage_UnknownStage(t *testing.T) {
	s, st := newTestServer(t)
	p := seedServerProduct(t, st)

	rec := doRequest(s, http.MethodGet, fmt.Sprintf("/api/analysis/%d/astrology", p.ID), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown analysis stage")
}

func TestAnalysisStage_UnknownProduct(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/api/analysis/999/sentiment", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalysisStage_ForceRefresh(t *testing.T) {
	s, st := newTestServer(t)
	ctx := context.Background()
	p := seedServerProduct(t, st,
		models.Review{Text: "Excellent battery, love this phone", Rating: 5, Date: time.Now(), Verified: true},
	)

	rec := doRequest(s, http.MethodGet, fmt.Sprintf("/api/analysis/%d/sentiment", p.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, st.ReplaceReviews(ctx, p.ID, []models.Review{
		{Text: "Terrible, broke immediately, waste of money", Rating: 1, Date: time.Now()},
	}))

	// Without force the cached positive verdict is served.
	rec = doRequest(s, http.MethodGet, fmt.Sprintf("/api/analysis/%d/sentiment", p.ID), "")
	var cached models.SentimentResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cached))
	assert.Equal(t, "positive", cached.OverallLabel)

	rec = doRequest(s, http.MethodGet, fmt.Sprintf("/api/analysis/%d/sentiment?force_refresh=true", p.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var fresh models.SentimentResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fresh))
	assert.Equal(t, "negative", fresh.OverallLabel)
}

func TestReanalyze(t *testing.T) {
	s, st := newTestServer(t)
	p := seedServerProduct(t, st,
		models.Review{Text: "Good value for the price overall", Rating: 4, Date: time.Now(), Verified: true},
	)

	rec := doRequest(s, http.MethodPost, fmt.Sprintf("/api/analysis/%d/reanalyze", p.ID), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"reanalyzed"}`, rec.Body.String())

	product, err := st.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.NotNil(t, product.LastAnalyzed)
}

func TestReanalyze_UnknownProduct(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/api/analysis/999/reanalyze", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
