package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/zfogg/watchfeed/internal/logger"
	"github.com/zfogg/watchfeed/internal/metrics"
	"github.com/zfogg/watchfeed/internal/models"
	"github.com/zfogg/watchfeed/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const serviceName = "catalog"

// ErrNotFound is returned when the catalog has no such title
var ErrNotFound = errors.New("catalog: title not found")

// StatusError is a non-2xx catalog response
type StatusError struct {
	StatusCode int
	Endpoint   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog %s: status %d", e.Endpoint, e.StatusCode)
}

// Config configures the catalog client
type Config struct {
	BaseURL           string
	APIKey            string
	RequestsPerSecond float64
	Timeout           time.Duration
	HTTPClient        *http.Client // optional; defaults to a traced client
}

// Client talks to the external media catalog (TMDB-compatible API).
// Sequential requests are paced to RequestsPerSecond and all calls share a
// circuit breaker so an unavailable catalog fails fast.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]byte]
}

// SimilarPage is one page of the similar-titles listing
type SimilarPage struct {
	Page       int
	TotalPages int
	Results    []models.CatalogCandidate
}

// NewClient creates a catalog client
func NewClient(cfg Config) *Client {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = telemetry.NewInstrumentedHTTPClient(telemetry.HTTPClientConfig{
			ServiceName: serviceName,
			Timeout:     cfg.Timeout,
		})
	}

	metrics.Get().CatalogBreakerState.WithLabelValues(serviceName).Set(0)

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    httpClient,
		// Burst of 1: every request waits out the full interval after the previous one
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		cb:      newBreaker(serviceName),
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker[[]byte] {
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		// A missing title is an answer, not an outage
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Log.Info("Catalog circuit breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.Get().CatalogBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// kindPath maps a media kind onto the catalog's URL segment
func kindPath(kind models.MediaKind) (string, error) {
	switch kind {
	case models.MediaSeries:
		return "tv", nil
	case models.MediaFilm:
		return "movie", nil
	}
	return "", fmt.Errorf("unknown media kind %q", kind)
}

type genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type detailResponse struct {
	ID     int64   `json:"id"`
	Genres []genre `json:"genres"`
}

// GetGenreIDs looks up a title's genre identifiers
func (c *Client) GetGenreIDs(ctx context.Context, kind models.MediaKind, catalogID int64) ([]int, error) {
	segment, err := kindPath(kind)
	if err != nil {
		return nil, err
	}

	body, err := c.get(ctx, "detail", fmt.Sprintf("/%s/%d", segment, catalogID), nil)
	if err != nil {
		return nil, err
	}

	var resp detailResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode title detail: %w", err)
	}

	ids := make([]int, 0, len(resp.Genres))
	for _, g := range resp.Genres {
		ids = append(ids, g.ID)
	}
	return ids, nil
}

type similarResult struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`  // series
	Title       string  `json:"title"` // films
	GenreIDs    []int   `json:"genre_ids"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
	Popularity  float64 `json:"popularity"`
}

type similarResponse struct {
	Page       int             `json:"page"`
	TotalPages int             `json:"total_pages"`
	Results    []similarResult `json:"results"`
}

// GetSimilarTitles fetches one page (1-based) of titles the catalog considers similar.
// Results keep the catalog's order.
func (c *Client) GetSimilarTitles(ctx context.Context, kind models.MediaKind, catalogID int64, page int) (*SimilarPage, error) {
	segment, err := kindPath(kind)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	body, err := c.get(ctx, "similar", fmt.Sprintf("/%s/%d/similar", segment, catalogID), query)
	if err != nil {
		return nil, err
	}

	var resp similarResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode similar titles: %w", err)
	}

	out := &SimilarPage{
		Page:       resp.Page,
		TotalPages: resp.TotalPages,
		Results:    make([]models.CatalogCandidate, 0, len(resp.Results)),
	}
	for _, r := range resp.Results {
		if r.ID <= 0 {
			continue
		}
		name := r.Name
		if name == "" {
			name = r.Title
		}
		out.Results = append(out.Results, models.CatalogCandidate{
			TitleID:     models.NewTitleID(kind, r.ID),
			CatalogID:   r.ID,
			Name:        name,
			MediaKind:   kind,
			GenreIDs:    r.GenreIDs,
			VoteAverage: r.VoteAverage,
			VoteCount:   r.VoteCount,
			Popularity:  r.Popularity,
		})
	}
	return out, nil
}

// get waits for the pacing limiter, then performs the request through the breaker
func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values) ([]byte, error) {
	start := time.Now()
	defer func() {
		metrics.Get().CatalogRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	ctx, span := telemetry.TraceExternalCall(ctx, telemetry.ExternalCallAttrs{
		Service:    serviceName,
		Operation:  endpoint,
		ResourceID: path,
	})
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		metrics.Get().CatalogRequests.WithLabelValues(endpoint, "canceled").Inc()
		telemetry.RecordExternalCallError(span, err, 0)
		return nil, err
	}

	if query == nil {
		query = url.Values{}
	}
	if c.apiKey != "" {
		query.Set("api_key", c.apiKey)
	}
	target := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		target += "?" + encoded
	}

	var status int
	body, err := c.cb.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()
		status = resp.StatusCode

		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		if resp.StatusCode >= 400 {
			return nil, &StatusError{StatusCode: resp.StatusCode, Endpoint: endpoint}
		}
		return io.ReadAll(resp.Body)
	})

	if err != nil {
		label := "error"
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			label = "rejected"
		case errors.Is(err, ErrNotFound):
			label = "not_found"
		}
		metrics.Get().CatalogRequests.WithLabelValues(endpoint, label).Inc()
		telemetry.RecordExternalCallError(span, err, status)
		return nil, err
	}

	metrics.Get().CatalogRequests.WithLabelValues(endpoint, "ok").Inc()
	telemetry.RecordExternalCallSuccess(span, status)
	return body, nil
}
