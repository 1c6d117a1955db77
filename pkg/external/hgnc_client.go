package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/parkinsons-variant-viewer/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ServiceHGNC names HGNC in errors and logs
const ServiceHGNC = "hgnc"

// HGNCClient handles interactions with the HUGO Gene Nomenclature Committee (HGNC) API
type HGNCClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

// HGNCResponse represents the JSON response structure from the HGNC fetch endpoint
type HGNCResponse struct {
	Response struct {
		NumFound int `json:"numFound"`
		Docs     []struct {
			Symbol   string `json:"symbol"`
			Name     string `json:"name"`
			Status   string `json:"status"`
			HGNCID   string `json:"hgnc_id"`
			Location string `json:"location"`
		} `json:"docs"`
	} `json:"response"`
}

// NewHGNCClient creates a new HGNC API client
func NewHGNCClient(config domain.HGNCConfig, breakerConfig domain.CircuitBreakerConfig, logger *logrus.Logger) *HGNCClient {
	if config.BaseURL == "" {
		config.BaseURL = "https://rest.genenames.org"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RateLimit <= 0 {
		config.RateLimit = 10
	}

	return &HGNCClient{
		baseURL: strings.TrimSuffix(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		breaker: newCircuitBreaker("HGNC", breakerConfig, logger),
		logger:  logger,
	}
}

// LookupHGNCID resolves a gene symbol to its HGNC id (e.g. "HGNC:6893").
// It is best effort: every failure is logged and reported as not found.
func (h *HGNCClient) LookupHGNCID(ctx context.Context, symbol string) (string, bool) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		h.logger.Warn("Skipping HGNC lookup for empty gene symbol")
		return "", false
	}

	id, err := h.fetchSymbol(ctx, symbol)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"gene_symbol": symbol,
			"error":       err.Error(),
		}).Warn("Failed to fetch HGNC ID")
		return "", false
	}
	if id == "" {
		h.logger.WithField("gene_symbol", symbol).Debug("No unique HGNC record for gene symbol")
		return "", false
	}
	return id, true
}

// fetchSymbol returns "" without error when the symbol does not resolve to exactly one record
func (h *HGNCClient) fetchSymbol(ctx context.Context, symbol string) (string, error) {
	requestURL := fmt.Sprintf("%s/fetch/symbol/%s", h.baseURL, url.PathEscape(symbol))

	resp, err := guardedGet(ctx, h.httpClient, h.limiter, h.breaker, requestURL, map[string]string{
		"Accept":     "application/json",
		"User-Agent": "parkinsons-variant-viewer/1.0",
	})
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.statusCode
		}
		return "", domain.NewExternalServiceError(ServiceHGNC, "fetch_symbol", status, err)
	}

	var parsed HGNCResponse
	if err := json.Unmarshal(resp.body, &parsed); err != nil {
		return "", fmt.Errorf("%w: failed to parse JSON response: %v", domain.ErrMalformedPayload, err)
	}

	if parsed.Response.NumFound <= 0 || len(parsed.Response.Docs) != 1 {
		return "", nil
	}
	return strings.TrimSpace(parsed.Response.Docs[0].HGNCID), nil
}
