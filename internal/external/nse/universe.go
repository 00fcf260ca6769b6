package nse

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
)

// FetchUniverse downloads the index constituents list and returns the
// Symbol column in file order, de-duplicated.
func (c *Client) FetchUniverse(ctx context.Context) ([]string, error) {
	body, err := c.httpClient.GetBytes(ctx, c.listURL)
	if err != nil {
		return nil, fmt.Errorf("fetch universe list: %w", err)
	}

	symbols, err := parseUniverse(body)
	if err != nil {
		return nil, err
	}

	c.logger.WithField("count", len(symbols)).Info("Fetched universe")
	return symbols, nil
}

func parseUniverse(body []byte) ([]string, error) {
	records, err := readCSV(body)
	if err != nil {
		return nil, fmt.Errorf("parse universe list: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("parse universe list: empty file")
	}

	col := columnIndex(records[0], "SYMBOL")
	if col < 0 {
		return nil, fmt.Errorf("parse universe list: no Symbol column")
	}

	seen := make(map[string]bool)
	symbols := make([]string, 0, len(records)-1)
	for _, row := range records[1:] {
		if col >= len(row) {
			continue
		}
		sym := strings.TrimSpace(row[col])
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		symbols = append(symbols, sym)
	}

	if len(symbols) == 0 {
		return nil, fmt.Errorf("parse universe list: no symbols")
	}
	return symbols, nil
}

// readCSV reads a whole CSV body, tolerating ragged rows and a UTF-8 BOM
func readCSV(body []byte) ([][]string, error) {
	body = bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	return r.ReadAll()
}

// columnIndex finds a header cell, case and whitespace insensitive
func columnIndex(header []string, name string) int {
	for i, h := range header {
		if strings.ToUpper(strings.TrimSpace(h)) == name {
			return i
		}
	}
	return -1
}
