package nse

import (
	"github.com/wonny/diamond/pkg/httputil"
	"github.com/wonny/diamond/pkg/logger"
)

// Client handles communication with the NSE archives
// ⭐ SSOT: NSE 아카이브 호출은 이 클라이언트에서만
type Client struct {
	httpClient       *httputil.Client
	logger           *logger.Logger
	listURL          string
	deliveryTemplate string
}

// NewClient creates a new NSE client.
// deliveryTemplate holds one %s verb for the DDMMYYYY date.
func NewClient(httpClient *httputil.Client, log *logger.Logger, listURL, deliveryTemplate string) *Client {
	return &Client{
		httpClient:       httpClient,
		logger:           log.WithModule("nse"),
		listURL:          listURL,
		deliveryTemplate: deliveryTemplate,
	}
}
