package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/law-makers/reviewlens/internal/app"
	"github.com/law-makers/reviewlens/internal/fetch"
	"github.com/law-makers/reviewlens/internal/platform"
	"github.com/law-makers/reviewlens/internal/scrape"
	"github.com/law-makers/reviewlens/pkg/models"
)

var (
	scrapeSkipAnalysis bool
	scrapeOutput       string
)

// scrapeCmd scrapes one product synchronously, with a progress bar.
var scrapeCmd = &cobra.Command{
	Use:   "scrape <url>",
	Short: "Scrape reviews for a product URL",
	Long: `Scrapes reviews for an Amazon or Flipkart product URL, stores them,
and runs the analysis pipeline. Interrupting with Ctrl-C keeps whatever
was collected so far.`,
	Example: `  # Scrape up to the default number of reviews
  reviewlens scrape https://www.amazon.in/dp/B0EXAMPLE1

  # Scrape 50 reviews and write the summary to a file
  reviewlens scrape https://www.flipkart.com/some-product/p/itmexample --max-reviews 50 -o summary.json`,
	Args: cobra.ExactArgs(1),
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().BoolVar(&scrapeSkipAnalysis, "skip-analysis", false, "Store reviews without running the analysis pipeline")
	scrapeCmd.Flags().StringVarP(&scrapeOutput, "output", "o", "", "File path to write the JSON summary (default: stdout)")
}

func runScrape(cmd *cobra.Command, args []string) error {
	a := GetApp()
	productURL := args[0]

	plat, err := platform.Detect(productURL)
	if err != nil {
		return err
	}
	canonical := plat.Canonical(productURL)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bar := progressbar.NewOptions(a.Config.MaxReviews,
		progressbar.OptionSetDescription("Scraping reviews"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	progress := func(accumulated, _ int) {
		_ = bar.Set(accumulated)
	}

	fetcher := fetch.New(a.FetchConfig(), fetch.NewIdentityPool(time.Now().UnixNano()))
	session := scrape.NewSession(fetcher, plat, a.ScrapeConfig(), progress)

	res, err := session.Run(ctx, canonical)
	_ = bar.Finish()
	if err != nil && len(res.Reviews) == 0 {
		return err
	}

	product, err := commitScrape(cmd, a, plat, canonical, res)
	if err != nil {
		return err
	}

	if !scrapeSkipAnalysis && len(res.Reviews) > 0 {
		if err := a.Runner.RunAll(cmd.Context(), product.ID); err != nil {
			fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
		}
	}

	summary := map[string]any{
		"product_id":    product.ID,
		"product_name":  product.Name,
		"platform":      product.Platform,
		"reviews":       len(res.Reviews),
		"pages_fetched": res.PagesFetched,
		"outcome":       res.Outcome,
	}
	return writeJSON(scrapeOutput, summary)
}

// commitScrape upserts the product row and replaces its reviews.
func commitScrape(cmd *cobra.Command, a *app.Application, plat platform.Platform, canonical string, res scrape.Result) (*models.Product, error) {
	ctx := cmd.Context()

	product, err := a.Store.GetProductByURL(ctx, canonical)
	if err != nil {
		product = &models.Product{URL: canonical, Platform: string(plat)}
		if err := a.Store.CreateProduct(ctx, product); err != nil {
			return nil, err
		}
	}

	reviews := make([]models.Review, len(res.Reviews))
	var ratingSum int
	for i, raw := range res.Reviews {
		reviews[i] = models.Review{
			ProductID:    product.ID,
			Text:         raw.Text,
			Rating:       raw.Rating,
			Date:         raw.Date,
			ReviewerName: raw.ReviewerName,
			Verified:     raw.Verified,
			HelpfulCount: raw.HelpfulCount,
		}
		ratingSum += raw.Rating
	}
	if err := a.Store.ReplaceReviews(ctx, product.ID, reviews); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if res.ProductTitle != "" {
		product.Name = res.ProductTitle
	}
	product.TotalReviews = len(reviews)
	if len(reviews) > 0 {
		product.AvgRating = float64(ratingSum) / float64(len(reviews))
	}
	product.ScrapedAt = &now
	if err := a.Store.UpdateProduct(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// writeJSON marshals v indented to the given path, or stdout when empty.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Println(string(data))
		return nil
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// writeRawJSON re-indents an already-serialized payload and writes it to
// the given path, or stdout when empty.
func writeRawJSON(path string, raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		buf.Reset()
		buf.Write(raw)
	}
	if path == "" {
		fmt.Println(buf.String())
		return nil
	}
	buf.WriteByte('\n')
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
