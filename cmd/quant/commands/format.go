package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/wonny/eds/backend/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintJobHeader prints a formatted run header
func PrintJobHeader(title string, tradeDate time.Time, extra map[string]string, keys ...string) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", title)
	PrintSeparator()
	fmt.Printf("  Trade Date : %s\n", tradeDate.Format("2006-01-02"))
	for _, k := range keys {
		fmt.Printf("  %-10s : %s\n", k, extra[k])
	}
	PrintSeparator()
}

// PrintJobCompletion prints the completion line
func PrintJobCompletion(title string, duration time.Duration) {
	fmt.Println()
	fmt.Printf("✅ %s completed in %.2fs\n", title, duration.Seconds())
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

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2
		}
	}
	for i := 0; i < totalWidth; i++ {
		fmt.Print("─")
	}
	fmt.Println()
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}

var dailyColumns = []string{"SYMBOL", "EXPIRY", "SCORE", "DECISION", "CONV", "STRUCTURE", "RR25", "PCR", "THRUST"}
var dailyWidths = []int{8, 10, 8, 16, 6, 14, 8, 7, 8}

// PrintDailyTable prints daily records in their given order
func PrintDailyTable(records []contracts.DailySignalRecord) {
	PrintTableHeader(dailyColumns, dailyWidths)
	for _, r := range records {
		b := r.Bundle
		expiry := "-"
		if b.EventExpiry != nil {
			expiry = b.EventExpiry.Format("2006-01-02")
		}
		PrintTableRow([]string{
			b.Symbol,
			expiry,
			fmtScore(r.Score),
			string(r.Decision),
			string(r.Conviction),
			string(r.Structure),
			fmtPtr(b.RR25, 4),
			fmtPtr(b.VolPCR, 2),
			fmtPtr(b.NetThrust, 3),
		}, dailyWidths)
	}
}

var intradayColumns = []string{"SYMBOL", "NOW", "EWMA", "DECISION", "STRUCTURE", "SIZE", "NOTES"}
var intradayWidths = []int{8, 8, 8, 10, 14, 5, 24}

// PrintIntradayTable prints intraday states
func PrintIntradayTable(records []contracts.IntradaySignalRecord) {
	PrintTableHeader(intradayColumns, intradayWidths)
	for _, r := range records {
		s := r.State
		PrintTableRow([]string{
			s.Symbol,
			fmtScore(s.ScoreNow),
			fmtScore(s.ScoreEWMA),
			string(s.Decision),
			string(s.Structure),
			strconv.FormatFloat(s.SizeReduction, 'f', 2, 64),
			s.Notes,
		}, intradayWidths)
	}
}

func fmtScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func fmtPtr(v *float64, prec int) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}
