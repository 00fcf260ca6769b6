package notify

import (
	"context"
	"fmt"
	"html"
	"io"
	"os"
	"regexp"
	"strconv"
	"sync"

	"github.com/olekukonko/tablewriter"

	"github.com/wonny/diamond/internal/contracts"
)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// Console prints operator messages to a writer (no Telegram configured)
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole writes to stdout
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter writes to w (tests)
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// Send prints the message with HTML markup removed
func (c *Console) Send(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := fmt.Fprintln(c.out, PlainText(text))
	return err
}

// PlainText strips tags and unescapes entities
func PlainText(text string) string {
	return html.UnescapeString(tagPattern.ReplaceAllString(text, ""))
}

// SetupTable renders execution setups as a table
func SetupTable(w io.Writer, setups []contracts.ExecutionSetup) error {
	table := tablewriter.NewWriter(w)
	table.Header("#", "Symbol", "Score", "Price", "SL", "TGT", "Sector", "Del%")
	for i, s := range setups {
		if err := table.Append(
			strconv.Itoa(i+1),
			s.Symbol,
			strconv.Itoa(s.Score),
			formatPrice(s.Price),
			formatPrice(s.StopLoss),
			formatPrice(s.Target),
			s.Sector,
			strconv.FormatFloat(s.DeliveryPct, 'f', 1, 64),
		); err != nil {
			return err
		}
	}
	return table.Render()
}

// CandidateTable renders contract candidates as a table
func CandidateTable(w io.Writer, candidates []contracts.Candidate) error {
	table := tablewriter.NewWriter(w)
	table.Header("#", "Symbol", "Score", "Price", "SL", "TGT", "Sector", "Del%")
	for i, c := range candidates {
		if err := table.Append(
			strconv.Itoa(i+1),
			c.Symbol,
			strconv.Itoa(c.Score),
			formatPrice(c.Price),
			formatPrice(c.StopLoss),
			formatPrice(c.Target),
			c.Sector,
			strconv.FormatFloat(c.DeliveryPct, 'f', 1, 64),
		); err != nil {
			return err
		}
	}
	return table.Render()
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
