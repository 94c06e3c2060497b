package cli

import (
	"testing"
	"time"
)

func TestFormatEUR(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0,00 €"},
		{0.5, "0,50 €"},
		{84.37, "84,37 €"},
		{-84.37, "-84,37 €"},
		{1234.5, "1.234,50 €"},
		{1083.37, "1.083,37 €"},
		{301200, "301.200,00 €"},
		{1234567.891, "1.234.567,89 €"},
	}
	for _, tt := range tests {
		if got := FormatEUR(tt.in); got != tt.want {
			t.Errorf("FormatEUR(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatMoneyUnknownCurrency(t *testing.T) {
	if got := FormatMoney(10, "XXX-NOPE"); got != "10,00 €" {
		t.Errorf("FormatMoney unknown = %q, want euro fallback", got)
	}
}

func TestFormatCompactEUR(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{950, "950 €"},
		{48250.4, "48,3k €"},
		{301200, "301k €"},
		{2_500_000, "2,5M €"},
	}
	for _, tt := range tests {
		if got := FormatCompactEUR(tt.in); got != tt.want {
			t.Errorf("FormatCompactEUR(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatDelta(t *testing.T) {
	if got := FormatDelta(1150.4); got != "+1.150,40 €" {
		t.Errorf("FormatDelta(+) = %q", got)
	}
	if got := FormatDelta(-570.45); got != "-570,45 €" {
		t.Errorf("FormatDelta(-) = %q", got)
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1.000"},
		{1234567, "1.234.567"},
		{-1234, "-1.234"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatPercentAndRate(t *testing.T) {
	if got := FormatPercent(0.6667); got != "66,7 %" {
		t.Errorf("FormatPercent = %q", got)
	}
	if got := FormatRate(2.85); got != "2,85 %" {
		t.Errorf("FormatRate = %q", got)
	}
}

func TestFormatDates(t *testing.T) {
	d := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	if got := FormatDate(d); got != "20/06/2025" {
		t.Errorf("FormatDate = %q", got)
	}
	if got := FormatDate(time.Time{}); got != "-" {
		t.Errorf("FormatDate(zero) = %q", got)
	}
	if got := FormatMonth(d); got != "jun 2025" {
		t.Errorf("FormatMonth = %q", got)
	}
}

func TestFormatMonths(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0m"},
		{7, "7m"},
		{12, "1a 0m"},
		{208, "17a 4m"},
	}
	for _, tt := range tests {
		if got := FormatMonths(tt.in); got != tt.want {
			t.Errorf("FormatMonths(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0s"},
		{45, "45s"},
		{125, "2m"},
		{3725, "1h 2m"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("Comunidad de Propietarios", 10); got != "Comunidad…" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("Ático", 10); got != "Ático" {
		t.Errorf("Truncate short = %q", got)
	}
}
