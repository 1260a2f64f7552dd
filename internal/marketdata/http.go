package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/mdthewzrd/chartscan/internal/contracts"
	"github.com/mdthewzrd/chartscan/pkg/config"
	"github.com/mdthewzrd/chartscan/pkg/httputil"
	"github.com/mdthewzrd/chartscan/pkg/logger"
)

// HTTPStore fetches whole-market daily bars from the vendor's
// grouped-daily endpoint. One request returns every symbol's bar for a
// session, so a full fetch costs O(sessions) requests, not
// O(symbols x sessions). Implements contracts.BarStore.
type HTTPStore struct {
	client       *httputil.Client
	baseURL      string
	apiKey       string
	quotePageURL string
	limiter      *rate.Limiter
	logger       *logger.Logger
}

// NewHTTPStore creates a new HTTP bar store from config.
func NewHTTPStore(cfg *config.Config, client *httputil.Client, log *logger.Logger) *HTTPStore {
	rps := cfg.Market.RateLimit
	if rps <= 0 {
		rps = 5.0
	}
	return &HTTPStore{
		client:       client,
		baseURL:      strings.TrimRight(cfg.Market.BaseURL, "/"),
		apiKey:       cfg.Market.APIKey,
		quotePageURL: cfg.Market.QuotePageURL,
		limiter:      rate.NewLimiter(rate.Limit(rps), 1),
		logger:       log.WithField("module", "marketdata"),
	}
}

// groupedDailyResponse is the vendor's grouped-daily JSON payload.
type groupedDailyResponse struct {
	Date    string `json:"date"`
	Results []struct {
		Symbol string  `json:"symbol"`
		Open   float64 `json:"o"`
		High   float64 `json:"h"`
		Low    float64 `json:"l"`
		Close  float64 `json:"c"`
		Volume int64   `json:"v"`
	} `json:"results"`
}

// FetchSession returns all symbols' bars for one trading session.
// Requests are paced by the configured rate limit so the fetch worker
// pool cannot hammer the vendor.
func (s *HTTPStore) FetchSession(ctx context.Context, date time.Time) ([]contracts.Bar, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	day := date.Format("2006-01-02")
	url := fmt.Sprintf("%s/v1/grouped-daily/%s?apikey=%s", s.baseURL, day, s.apiKey)

	resp, err := s.client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("grouped daily request for %s: %w", day, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && s.quotePageURL != "" {
		// Vendor occasionally lags on recent sessions; the quote page
		// carries the same data a few minutes earlier.
		return s.fetchQuotePage(ctx, date)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("grouped daily for %s: unexpected status %d", day, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read grouped daily body: %w", err)
	}

	var payload groupedDailyResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse grouped daily for %s: %w", day, err)
	}

	bars := make([]contracts.Bar, 0, len(payload.Results))
	for _, r := range payload.Results {
		if r.Symbol == "" {
			continue
		}
		bars = append(bars, contracts.Bar{
			Symbol:      r.Symbol,
			SessionDate: date,
			Open:        r.Open,
			High:        r.High,
			Low:         r.Low,
			Close:       r.Close,
			Volume:      r.Volume,
		})
	}

	s.logger.WithFields(map[string]interface{}{
		"date":  day,
		"count": len(bars),
	}).Debug("Fetched session bars")

	return bars, nil
}

// fetchQuotePage scrapes the vendor's HTML quote table for a session.
func (s *HTTPStore) fetchQuotePage(ctx context.Context, date time.Time) ([]contracts.Bar, error) {
	day := date.Format("2006-01-02")
	url := fmt.Sprintf("%s?date=%s", s.quotePageURL, day)

	resp, err := s.client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("quote page request for %s: %w", day, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote page for %s: unexpected status %d", day, resp.StatusCode)
	}

	bars, err := ParseQuotePage(resp.Body, date)
	if err != nil {
		return nil, fmt.Errorf("parse quote page for %s: %w", day, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"date":  day,
		"count": len(bars),
	}).Debug("Fetched session bars from quote page")

	return bars, nil
}

// ParseQuotePage extracts bars from the vendor's quote table HTML.
// Rows with missing or non-numeric cells are skipped.
func ParseQuotePage(r io.Reader, date time.Time) ([]contracts.Bar, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	var bars []contracts.Bar
	doc.Find("table.quotes tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 6 {
			return
		}

		symbol := strings.TrimSpace(cells.Eq(0).Text())
		if symbol == "" {
			return
		}

		nums := make([]float64, 0, 5)
		ok := true
		cells.Slice(1, 6).Each(func(_ int, cell *goquery.Selection) {
			text := strings.ReplaceAll(strings.TrimSpace(cell.Text()), ",", "")
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				ok = false
				return
			}
			nums = append(nums, v)
		})
		if !ok || len(nums) != 5 {
			return
		}

		bars = append(bars, contracts.Bar{
			Symbol:      symbol,
			SessionDate: date,
			Open:        nums[0],
			High:        nums[1],
			Low:         nums[2],
			Close:       nums[3],
			Volume:      int64(nums[4]),
		})
	})

	return bars, nil
}
