package platform

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/law-makers/reviewlens/pkg/models"
)

var (
	amazonASINPatterns = []*regexp.Regexp{
		regexp.MustCompile(`/dp/([A-Z0-9]{10})`),
		regexp.MustCompile(`/product/([A-Z0-9]{10})`),
		regexp.MustCompile(`/gp/product/([A-Z0-9]{10})`),
	}
	// Last resort: any token that looks like an ASIN.
	amazonLooseASIN = regexp.MustCompile(`([B0][A-Z0-9]{9})`)

	amazonRatingRe  = regexp.MustCompile(`(\d+(\.\d+)?)`)
	amazonDateRe    = regexp.MustCompile(`on (.+)$`)
	amazonHelpfulRe = regexp.MustCompile(`(\d+)`)
)

// amazonDateLayouts covers the formats Amazon renders review dates in.
var amazonDateLayouts = []string{
	"January 2, 2006",
	"2 January 2006",
	"January 2 2006",
}

func amazonASIN(productURL string) string {
	for _, re := range amazonASINPatterns {
		if m := re.FindStringSubmatch(productURL); m != nil {
			return m[1]
		}
	}
	if m := amazonLooseASIN.FindStringSubmatch(productURL); m != nil {
		return m[1]
	}
	return ""
}

func amazonDomain(productURL string) string {
	if strings.Contains(productURL, ".in") {
		return "www.amazon.in"
	}
	return "www.amazon.com"
}

func amazonCanonicalURL(productURL string) string {
	asin := amazonASIN(productURL)
	if asin == "" {
		return productURL
	}
	return fmt.Sprintf("https://%s/dp/%s", amazonDomain(productURL), asin)
}

func amazonReviewsURL(productURL string, page int) (string, error) {
	asin := amazonASIN(productURL)
	if asin == "" {
		return "", fmt.Errorf("could not extract ASIN from %q", productURL)
	}
	return fmt.Sprintf(
		"https://%s/product-reviews/%s/ref=cm_cr_arp_d_paging_btm_next_%d?ie=UTF8&reviewerType=all_reviews&sortBy=recent&pageNumber=%d",
		amazonDomain(productURL), asin, page, page,
	), nil
}

func amazonFallbackURL(productURL string) string {
	return amazonCanonicalURL(productURL)
}

func amazonExtractReviews(doc *goquery.Document) []models.RawReview {
	containers := doc.Find(`div[data-hook="review"]`)
	if containers.Length() == 0 {
		// Older layout fallback
		containers = doc.Find("div.a-section.review.aok-relative")
	}

	var reviews []models.RawReview
	containers.Each(func(i int, sel *goquery.Selection) {
		review, ok := amazonParseReview(sel)
		if !ok {
			log.Debug().Int("container", i).Msg("Skipping unparseable review container")
			return
		}
		reviews = append(reviews, review)
	})
	return reviews
}

// amazonParseReview extracts one review from its container. Missing
// optional fields get documented defaults; a missing body is the only
// condition that rejects the container.
func amazonParseReview(sel *goquery.Selection) (models.RawReview, bool) {
	text := strings.TrimSpace(sel.Find(`span[data-hook="review-body"]`).Text())
	if len(text) < 5 {
		// Fall back to the title when the body is empty
		text = strings.TrimSpace(sel.Find(`a[data-hook="review-title"]`).Text())
	}
	if text == "" {
		return models.RawReview{}, false
	}

	rating := 3
	ratingText := sel.Find(`i[data-hook="review-star-rating"]`).Text()
	if ratingText == "" {
		ratingText = sel.Find(`i[data-hook="cmps-review-star-rating"]`).Text()
	}
	// "4.0 out of 5 stars" -> 4
	if m := amazonRatingRe.FindStringSubmatch(ratingText); m != nil {
		if val, err := strconv.ParseFloat(m[1], 64); err == nil {
			r := int(math.Round(val))
			if r >= 1 && r <= 5 {
				rating = r
			}
		}
	}

	date := time.Now()
	// "Reviewed in India on January 15, 2024"
	if m := amazonDateRe.FindStringSubmatch(strings.TrimSpace(sel.Find(`span[data-hook="review-date"]`).Text())); m != nil {
		for _, layout := range amazonDateLayouts {
			if d, err := time.Parse(layout, strings.TrimSpace(m[1])); err == nil {
				date = d
				break
			}
		}
	}

	name := strings.TrimSpace(sel.Find("span.a-profile-name").First().Text())
	if name == "" {
		name = "Amazon Customer"
	}

	verified := sel.Find(`span[data-hook="avp-badge"]`).Length() > 0

	helpful := 0
	helpfulText := sel.Find(`span[data-hook="helpful-vote-statement"]`).Text()
	if m := amazonHelpfulRe.FindStringSubmatch(helpfulText); m != nil {
		helpful, _ = strconv.Atoi(m[1])
	} else if strings.Contains(helpfulText, "One person") {
		helpful = 1
	}

	return models.RawReview{
		Text:         text,
		Rating:       rating,
		Date:         date,
		ReviewerName: name,
		Verified:     verified,
		HelpfulCount: helpful,
	}, true
}

func amazonExtractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find(`a[data-hook="product-link"]`).First().Text()); title != "" {
		return title
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	title = strings.TrimPrefix(title, "Amazon.in:Customer reviews: ")
	title = strings.TrimPrefix(title, "Amazon.com:Customer reviews: ")
	return title
}
