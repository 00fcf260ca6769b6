package nse

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// bhavcopy file names use DDMMYYYY
const bhavDateLayout = "02012006"

// FetchDelivery downloads the full bhavcopy for date and returns the
// delivery percentage of every EQ-series symbol.
func (c *Client) FetchDelivery(ctx context.Context, date time.Time) (map[string]float64, error) {
	fullURL := fmt.Sprintf(c.deliveryTemplate, date.Format(bhavDateLayout))

	body, err := c.httpClient.GetBytes(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("fetch bhavcopy %s: %w", date.Format("2006-01-02"), err)
	}

	out, err := parseDelivery(body)
	if err != nil {
		return nil, fmt.Errorf("bhavcopy %s: %w", date.Format("2006-01-02"), err)
	}

	c.logger.WithFields(map[string]interface{}{
		"date":    date.Format("2006-01-02"),
		"symbols": len(out),
	}).Debug("Fetched delivery data")

	return out, nil
}

func parseDelivery(body []byte) (map[string]float64, error) {
	records, err := readCSV(body)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("parse: empty file")
	}

	header := records[0]
	symCol := columnIndex(header, "SYMBOL")
	seriesCol := columnIndex(header, "SERIES")
	delivCol := columnIndex(header, "DELIV_PER")
	if symCol < 0 || seriesCol < 0 || delivCol < 0 {
		return nil, fmt.Errorf("parse: missing SYMBOL/SERIES/DELIV_PER columns")
	}

	out := make(map[string]float64)
	for _, row := range records[1:] {
		if symCol >= len(row) || seriesCol >= len(row) || delivCol >= len(row) {
			continue
		}
		if strings.TrimSpace(row[seriesCol]) != "EQ" {
			continue
		}
		// "-" when delivery is not reported
		pct, err := strconv.ParseFloat(strings.TrimSpace(row[delivCol]), 64)
		if err != nil {
			continue
		}
		out[strings.TrimSpace(row[symCol])] = pct
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("parse: no EQ rows")
	}
	return out, nil
}
