// Package platform models the supported e-commerce sources as a closed
// set of variants. Adding a platform means adding a variant here plus its
// URL-building and extraction functions, not scattering string checks.
package platform

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/law-makers/reviewlens/pkg/models"
)

// ErrUnsupported is returned when a URL does not belong to any known platform.
var ErrUnsupported = errors.New("unsupported platform")

// Platform identifies one supported e-commerce source.
type Platform string

const (
	Amazon   Platform = "amazon"
	Flipkart Platform = "flipkart"
)

// Detect resolves the platform from a product URL.
func Detect(rawURL string) (Platform, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	host := strings.ToLower(u.Host)
	switch {
	case strings.Contains(host, "amazon"):
		return Amazon, nil
	case strings.Contains(host, "flipkart"):
		return Flipkart, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, host)
	}
}

// Canonical strips tracking noise from a product URL so it can serve as
// the product's unique key.
func (p Platform) Canonical(rawURL string) string {
	switch p {
	case Amazon:
		return amazonCanonicalURL(rawURL)
	case Flipkart:
		return flipkartCanonicalURL(rawURL)
	}
	return rawURL
}

// ReviewsURL builds the paginated reviews URL for the given page index
// (starting at 1).
func (p Platform) ReviewsURL(productURL string, page int) (string, error) {
	switch p {
	case Amazon:
		return amazonReviewsURL(productURL, page)
	case Flipkart:
		return flipkartReviewsURL(productURL, page), nil
	}
	return "", ErrUnsupported
}

// FallbackURL returns an alternate, non-paginated product URL to try when
// the reviews URL yields nothing on the first page.
func (p Platform) FallbackURL(productURL string) string {
	switch p {
	case Amazon:
		return amazonFallbackURL(productURL)
	case Flipkart:
		return flipkartCanonicalURL(productURL)
	}
	return productURL
}

// ExtractReviews pulls all review records out of a fetched page. It is a
// pure function over the document: a container that fails to yield
// nonempty review text is skipped, never fatal.
func (p Platform) ExtractReviews(doc *goquery.Document) []models.RawReview {
	switch p {
	case Amazon:
		return amazonExtractReviews(doc)
	case Flipkart:
		return flipkartExtractReviews(doc)
	}
	return nil
}

// ExtractTitle pulls the product title from a fetched page, returning ""
// when no heuristic matches.
func (p Platform) ExtractTitle(doc *goquery.Document) string {
	switch p {
	case Amazon:
		return amazonExtractTitle(doc)
	case Flipkart:
		return flipkartExtractTitle(doc)
	}
	return ""
}
