package external

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/clbanning/mxj/v2"
	"github.com/parkinsons-variant-viewer/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ServiceClinVar names ClinVar in errors and logs
const ServiceClinVar = "clinvar"

// E-utilities operations
const (
	OperationSearch  = "esearch"
	OperationFetch   = "efetch"
	OperationSummary = "esummary"
)

// Payload is an XML document converted to nested maps. Repeated elements
// become []interface{}, attributes are keyed "-name" and mixed text "#text".
type Payload map[string]interface{}

// SearchResult is the outcome of an esearch query
type SearchResult struct {
	Found bool
	IDs   []string
}

// FirstID returns the first matching ClinVar id, or "" when nothing matched
func (r *SearchResult) FirstID() string {
	if r == nil || len(r.IDs) == 0 {
		return ""
	}
	return r.IDs[0]
}

// RecordPayloads holds the two raw documents describing one ClinVar record
type RecordPayloads struct {
	Detail  Payload
	Summary Payload
}

// ClinVarClient handles interactions with the ClinVar database via NCBI E-utilities
type ClinVarClient struct {
	baseURL    string
	apiKey     string
	email      string
	tool       string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

// NewClinVarClient creates a new ClinVar API client
func NewClinVarClient(config domain.ClinVarConfig, breakerConfig domain.CircuitBreakerConfig, logger *logrus.Logger) *ClinVarClient {
	if config.BaseURL == "" {
		config.BaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/"
	}
	if !strings.HasSuffix(config.BaseURL, "/") {
		config.BaseURL += "/"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit <= 0 {
		config.RateLimit = 3 // NCBI allows 3 requests per second without an API key
	}

	return &ClinVarClient{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		email:   config.Email,
		tool:    config.Tool,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		breaker: newCircuitBreaker("ClinVar", breakerConfig, logger),
		logger:  logger,
	}
}

// eSearchResult is the subset of the esearch response we need
type eSearchResult struct {
	XMLName xml.Name `xml:"eSearchResult"`
	Count   int      `xml:"Count"`
	IDList  struct {
		IDs []string `xml:"Id"`
	} `xml:"IdList"`
	ErrorList struct {
		PhraseNotFound []string `xml:"PhraseNotFound"`
	} `xml:"ErrorList"`
}

// Search looks up ClinVar record ids whose variant name matches hgvs
func (c *ClinVarClient) Search(ctx context.Context, hgvs string) (*SearchResult, error) {
	params := c.params()
	params.Set("term", fmt.Sprintf("\"%s\"[variant name]", hgvs))
	params.Set("retmode", "xml")

	body, err := c.get(ctx, OperationSearch, params)
	if err != nil {
		return nil, err
	}

	var parsed eSearchResult
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return nil, domain.NewExternalServiceError(ServiceClinVar, OperationSearch, 0,
			fmt.Errorf("failed to parse search response: %w", err))
	}

	ids := make([]string, 0, len(parsed.IDList.IDs))
	for _, id := range parsed.IDList.IDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	if len(ids) == 0 {
		c.logger.WithField("hgvs", hgvs).Warn("No ClinVar variants found")
		return &SearchResult{Found: false}, nil
	}

	c.logger.WithFields(logrus.Fields{
		"hgvs":  hgvs,
		"count": len(ids),
	}).Debug("ClinVar search matched")

	return &SearchResult{Found: true, IDs: ids}, nil
}

// Fetch retrieves the detail (efetch clinvarset) and summary (esummary) documents for id
func (c *ClinVarClient) Fetch(ctx context.Context, id string) (*RecordPayloads, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.NewExternalServiceError(ServiceClinVar, OperationFetch, 0, errors.New("empty ClinVar id"))
	}

	detailParams := c.params()
	detailParams.Set("id", id)
	detailParams.Set("rettype", "clinvarset")
	detailParams.Set("retmode", "xml")

	detail, err := c.fetchPayload(ctx, OperationFetch, detailParams)
	if err != nil {
		return nil, err
	}

	summaryParams := c.params()
	summaryParams.Set("id", id)
	summaryParams.Set("retmode", "xml")

	summary, err := c.fetchPayload(ctx, OperationSummary, summaryParams)
	if err != nil {
		return nil, err
	}

	return &RecordPayloads{Detail: detail, Summary: summary}, nil
}

func (c *ClinVarClient) fetchPayload(ctx context.Context, operation string, params url.Values) (Payload, error) {
	body, err := c.get(ctx, operation, params)
	if err != nil {
		return nil, err
	}

	payload, err := DecodePayload(body)
	if err != nil {
		return nil, domain.NewExternalServiceError(ServiceClinVar, operation, 0, err)
	}
	return payload, nil
}

// params returns the query parameters common to every E-utilities call
func (c *ClinVarClient) params() url.Values {
	params := url.Values{"db": {"clinvar"}}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	if c.tool != "" {
		params.Set("tool", c.tool)
	}
	if c.email != "" {
		params.Set("email", c.email)
	}
	return params
}

func (c *ClinVarClient) get(ctx context.Context, operation string, params url.Values) ([]byte, error) {
	requestURL := fmt.Sprintf("%s%s.fcgi?%s", c.baseURL, operation, params.Encode())

	resp, err := guardedGet(ctx, c.httpClient, c.limiter, c.breaker, requestURL, map[string]string{
		"User-Agent": "parkinsons-variant-viewer/1.0",
	})
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.statusCode
		}
		if isBreakerRejection(err) {
			c.logger.WithField("operation", operation).Warn("ClinVar circuit breaker rejected request")
		}
		return nil, domain.NewExternalServiceError(ServiceClinVar, operation, status, err)
	}

	return resp.body, nil
}

// DecodePayload converts an XML document into a Payload
func DecodePayload(body []byte) (Payload, error) {
	m, err := mxj.NewMapXml(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	if len(m) == 0 {
		return nil, fmt.Errorf("%w: document has no root element", domain.ErrMalformedPayload)
	}
	return Payload(m), nil
}
