package yahoo

import (
	"strings"

	"github.com/wonny/diamond/pkg/httputil"
	"github.com/wonny/diamond/pkg/logger"
)

// Client handles communication with the Yahoo Finance JSON endpoints
// ⭐ SSOT: Yahoo 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	chartURL   string
	summaryURL string
	suffix     string
}

// NewClient creates a new Yahoo client. suffix is appended to plain
// exchange symbols (".NS"); index symbols starting with "^" are sent as is.
func NewClient(httpClient *httputil.Client, log *logger.Logger, suffix string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithModule("yahoo"),
		chartURL:   "https://query1.finance.yahoo.com/v8/finance/chart",
		summaryURL: "https://query2.finance.yahoo.com/v10/finance/quoteSummary",
		suffix:     suffix,
	}
}

// WithBaseURL points both endpoints at baseURL (tests)
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.chartURL = baseURL + "/v8/finance/chart"
	c.summaryURL = baseURL + "/v10/finance/quoteSummary"
	return c
}

// Ticker maps an exchange symbol onto a Yahoo ticker
func (c *Client) Ticker(symbol string) string {
	if strings.HasPrefix(symbol, "^") || strings.Contains(symbol, ".") || c.suffix == "" {
		return symbol
	}
	return symbol + c.suffix
}
