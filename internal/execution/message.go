package execution

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/diamond/internal/contracts"
)

// MessageInput is everything rendered into the operator alert
type MessageInput struct {
	RunID          string
	At             time.Time
	KillSwitch     bool
	Protocol       contracts.Protocol
	Shown          []contracts.ExecutionSetup
	Hidden         int
	HighConviction int
}

// FormatMessage renders the Telegram HTML alert
func FormatMessage(in MessageInput) string {
	kill := "OFF"
	if in.KillSwitch {
		kill = "ON"
	}

	lines := []string{
		"💎 <b>Diamond Execution</b>",
		fmt.Sprintf("🆔 Run: <code>%s</code>", in.RunID),
		fmt.Sprintf("📅 %s | 🚦 Kill switch %s", in.At.Format("02-Jan 15:04"), kill),
		fmt.Sprintf("⚖️ Protocol: <b>%s</b>", in.Protocol),
		"",
	}

	for _, s := range in.Shown {
		icon := "✅"
		if s.Score > in.HighConviction {
			icon = "🚀"
		}
		lines = append(lines, fmt.Sprintf(
			"%s <b>%s</b> (%d)\n   💰 ₹%s | 🏗️ %s\n   🎯 %s | 🛑 %s",
			icon, s.Symbol, s.Score, num(s.Price), s.Sector, num(s.Target), num(s.StopLoss),
		))
	}

	if in.Hidden > 0 {
		lines = append(lines, fmt.Sprintf("\n<i>...and %d more (Hidden by Protocol)</i>", in.Hidden))
	}

	return strings.Join(lines, "\n")
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
