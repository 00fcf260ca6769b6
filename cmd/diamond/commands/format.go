package commands

import (
	"fmt"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// StageHeader holds the header fields of one command run
type StageHeader struct {
	Title      string
	RunID      string
	Timestamp  string
	StrategyID string // Optional
	ConfigHash string // Optional
}

// PrintStageHeader prints a formatted stage header
func PrintStageHeader(h StageHeader) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", h.Title)
	PrintSeparator()
	fmt.Printf("  Run ID    : %s\n", h.RunID)
	fmt.Printf("  Time      : %s\n", h.Timestamp)

	if h.StrategyID != "" {
		fmt.Printf("  Strategy  : %s\n", h.StrategyID)
	}
	if h.ConfigHash != "" {
		fmt.Printf("  Config    : %s\n", shortHash(h.ConfigHash))
	}

	PrintSeparator()
}

// PrintCompletion prints the stage completion line
func PrintCompletion(title string, seconds float64) {
	fmt.Println()
	fmt.Printf("✅ %s completed in %.2fs\n", title, seconds)
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println()
	fmt.Printf("⚠️  %s\n", message)
	fmt.Println()
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Printf("ℹ️  %s\n", message)
}

// PrintList prints a bulleted list
func PrintList(items []string) {
	for _, item := range items {
		fmt.Printf("   • %s\n", item)
	}
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
