package platform

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"

	"github.com/law-makers/reviewlens/pkg/models"
)

var (
	flipkartPageParamRe = regexp.MustCompile(`[?&]page=\d+`)
	flipkartTitleSuffix = regexp.MustCompile(`\s*(Reviews:|\|).*`)
)

var flipkartMonths = []string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

var flipkartDateLayouts = []string{
	"Jan, 2006",
	"2 Jan, 2006",
	"Jan 2, 2006",
	"Jan 2006",
}

func flipkartCanonicalURL(productURL string) string {
	// Only the path matters: /product-name/p/itmXXX
	u, err := url.Parse(productURL)
	if err != nil {
		return productURL
	}
	return "https://www.flipkart.com" + u.Path
}

// flipkartReviewsURL converts a product URL (/p/) to its reviews URL
// (/product-reviews/) and appends pagination.
func flipkartReviewsURL(productURL string, page int) string {
	base := productURL
	if !strings.Contains(base, "/product-reviews/") {
		base = strings.Replace(base, "/p/", "/product-reviews/", 1)
	}
	base = flipkartPageParamRe.ReplaceAllString(base, "")
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%smarketplace=FLIPKART&page=%d", base, sep, page)
}

// flipkartExtractReviews discovers review containers by walking up from
// "Certified Buyer" badges. Flipkart's class names are minified and
// unstable, so the structure around the badge text is the only durable
// anchor.
func flipkartExtractReviews(doc *goquery.Document) []models.RawReview {
	var containers []*html.Node
	seen := make(map[*html.Node]bool)

	for _, badge := range certifiedBuyerNodes(doc) {
		p := badge.Parent
		for depth := 0; depth < 15 && p != nil; depth++ {
			p = p.Parent
			if p == nil || p.Data != "div" || p.Type != html.ElementNode {
				continue
			}
			if countCertifiedBuyers(p) != 1 {
				continue
			}
			strs := strippedStrings(p)
			hasReadMore := false
			for _, s := range strs {
				if strings.Contains(s, "READ MORE") {
					hasReadMore = true
					break
				}
			}
			hasRating := len(strs) > 0 && isRatingDigit(strs[0])
			// A full review container carries rating + title + text +
			// READ MORE + metadata, so at least 8 strings.
			if (hasReadMore || hasRating) && len(strs) >= 8 {
				if !seen[p] {
					seen[p] = true
					containers = append(containers, p)
				}
				break
			}
		}
	}

	var reviews []models.RawReview
	for _, c := range containers {
		review, ok := flipkartParseStrings(strippedStrings(c))
		if !ok {
			log.Debug().Msg("Skipping unparseable Flipkart review container")
			continue
		}
		reviews = append(reviews, review)
	}
	return reviews
}

// flipkartParseStrings parses a review from the stripped text fragments of
// its container. Expected order: rating, title, text, READ MORE, then
// metadata (name, Certified Buyer, location, date, helpful counts).
func flipkartParseStrings(strs []string) (models.RawReview, bool) {
	if len(strs) < 4 {
		return models.RawReview{}, false
	}

	rating := 3
	if v, err := strconv.Atoi(strs[0]); err == nil && v >= 1 && v <= 5 {
		rating = v
	}

	title := strs[1]
	text := ""
	if len(strs) > 2 {
		text = strs[2]
	}
	if text == "READ MORE" {
		text = title
		title = ""
	}
	var fullText string
	if title != "" && text != "" && title != text {
		fullText = title + ". " + text
	} else if text != "" {
		fullText = text
	} else {
		fullText = title
	}
	fullText = strings.TrimSpace(strings.ReplaceAll(fullText, "READ MORE", ""))
	if len(fullText) < 3 {
		return models.RawReview{}, false
	}

	name := "Flipkart Customer"
	date := time.Now()
	verified := false
	helpful := 0

	for i, s := range strs {
		if s == "Certified Buyer" {
			verified = true
			if i > 0 {
				prev := strs[i-1]
				if prev != "READ MORE" && !isAllDigits(prev) && len(prev) < 40 {
					name = prev
				}
			}
		}

		// Dates render like "Jan, 2024"
		if strings.Contains(s, ",") && len(s) < 20 && containsMonth(s) {
			for _, layout := range flipkartDateLayouts {
				if d, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
					if !d.After(time.Now()) {
						date = d
					}
					break
				}
			}
		}

		if s == "Permalink" && i >= 2 {
			if v, err := strconv.Atoi(strings.ReplaceAll(strs[i-2], ",", "")); err == nil {
				helpful = v
			}
		}
	}

	return models.RawReview{
		Text:         fullText,
		Rating:       rating,
		Date:         date,
		ReviewerName: name,
		Verified:     verified,
		HelpfulCount: helpful,
	}, true
}

func flipkartExtractTitle(doc *goquery.Document) string {
	for _, selector := range []string{"span.B_NuCI", "h1.yhB1nd"} {
		if t := strings.TrimSpace(doc.Find(selector).First().Text()); t != "" {
			return t
		}
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	title = strings.TrimSpace(flipkartTitleSuffix.ReplaceAllString(title, ""))
	if len(title) > 5 {
		return title
	}
	return ""
}

// certifiedBuyerNodes returns the text nodes containing "Certified Buyer".
func certifiedBuyerNodes(doc *goquery.Document) []*html.Node {
	var nodes []*html.Node
	for _, root := range doc.Nodes {
		walkTextNodes(root, func(n *html.Node) {
			if strings.Contains(n.Data, "Certified Buyer") {
				nodes = append(nodes, n)
			}
		})
	}
	return nodes
}

func countCertifiedBuyers(n *html.Node) int {
	count := 0
	walkTextNodes(n, func(t *html.Node) {
		if strings.Contains(t.Data, "Certified Buyer") {
			count++
		}
	})
	return count
}

// strippedStrings collects the nonempty, whitespace-trimmed text fragments
// of a subtree in document order, mirroring what the page renders.
func strippedStrings(n *html.Node) []string {
	var strs []string
	walkTextNodes(n, func(t *html.Node) {
		if s := strings.TrimSpace(t.Data); s != "" {
			strs = append(strs, s)
		}
	})
	return strs
}

func walkTextNodes(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.TextNode {
		fn(n)
		return
	}
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkTextNodes(c, fn)
	}
}

func isRatingDigit(s string) bool {
	return len(s) == 1 && s[0] >= '1' && s[0] <= '5'
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func containsMonth(s string) bool {
	for _, m := range flipkartMonths {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
