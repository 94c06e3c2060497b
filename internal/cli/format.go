// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatMoney formats an amount in the given ISO currency using Spanish
// separators, e.g. 1234.5 -> "1.234,50 €". Unknown codes fall back to EUR.
func FormatMoney(amount float64, code string) string {
	cur := money.GetCurrency(code)
	if cur == nil {
		cur = money.GetCurrency(money.EUR)
	}
	minor := decimal.NewFromFloat(amount).Shift(int32(cur.Fraction)).Round(0).IntPart()
	m := money.New(minor, cur.Code)
	return money.NewFormatter(cur.Fraction, ",", ".", cur.Grapheme, "1 $").Format(m.Amount())
}

// FormatEUR formats a euro amount, e.g. -84.37 -> "-84,37 €".
func FormatEUR(amount float64) string {
	return FormatMoney(amount, money.EUR)
}

// FormatCompactEUR formats large euro amounts with a k/M suffix for cards.
// e.g. 48250.4 -> "48,3k €", 301200 -> "301k €", 950 -> "950 €"
func FormatCompactEUR(amount float64) string {
	abs := math.Abs(amount)
	switch {
	case abs >= 1_000_000:
		return strings.Replace(fmt.Sprintf("%.1fM €", amount/1_000_000), ".", ",", 1)
	case abs >= 100_000:
		return fmt.Sprintf("%.0fk €", amount/1_000)
	case abs >= 1_000:
		return strings.Replace(fmt.Sprintf("%.1fk €", amount/1_000), ".", ",", 1)
	default:
		return fmt.Sprintf("%.0f €", amount)
	}
}

// FormatDelta formats a signed amount with an explicit sign.
func FormatDelta(delta float64) string {
	if delta >= 0 {
		return "+" + FormatEUR(delta)
	}
	return FormatEUR(delta)
}

// FormatNumber adds dot separators to an integer.
// e.g., 1234567 -> "1.234.567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte('.')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPercent formats a 0-1 float as a percentage string.
func FormatPercent(f float64) string {
	return strings.Replace(fmt.Sprintf("%.1f %%", f*100), ".", ",", 1)
}

// FormatRate formats an annual interest rate already expressed in percent.
func FormatRate(r float64) string {
	return strings.Replace(fmt.Sprintf("%.2f %%", r), ".", ",", 1)
}

// FormatDate formats a date the way Spanish bank statements do.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02/01/2006")
}

var monthNames = []string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sep", "oct", "nov", "dic"}

// FormatMonth returns a short Spanish month label, e.g. "jun 2025".
func FormatMonth(t time.Time) string {
	return fmt.Sprintf("%s %d", monthNames[t.Month()-1], t.Year())
}

// FormatMonths formats a loan term, e.g. 208 -> "17a 4m".
func FormatMonths(n int) string {
	if n <= 0 {
		return "0m"
	}
	years, months := n/12, n%12
	if years > 0 {
		return fmt.Sprintf("%da %dm", years, months)
	}
	return fmt.Sprintf("%dm", months)
}

// FormatDuration formats seconds into a human-readable duration.
// e.g., 3725 -> "1h 2m", 125 -> "2m", 45 -> "45s"
func FormatDuration(secs int64) string {
	if secs <= 0 {
		return "0s"
	}

	hours := secs / 3600
	mins := (secs % 3600) / 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	if mins > 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%ds", secs)
}

// Truncate shortens s to at most n runes, marking the cut with "…".
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
