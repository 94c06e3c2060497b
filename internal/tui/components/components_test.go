package components

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/atlas/internal/events"
)

func TestTabVisualWidthMatchesRender(t *testing.T) {
	for active := range Tabs {
		bar := RenderTabBar(active, 0)
		want := 0
		for i, tab := range Tabs {
			want += TabVisualWidth(tab, i == active)
		}
		want += len(Tabs) - 1 // separators

		got := lipgloss.Width(stripANSI(bar))
		if got != want {
			t.Errorf("active=%d rendered width %d, want %d", active, got, want)
		}
	}
}

func TestTabIdxByKey(t *testing.T) {
	if got := TabIdxByKey('l'); got != 2 {
		t.Errorf("TabIdxByKey('l') = %d, want 2", got)
	}
	if got := TabIdxByKey('z'); got != -1 {
		t.Errorf("TabIdxByKey('z') = %d, want -1", got)
	}
}

func TestColorForCoverage(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{0.03, "red"},
		{0.6, "orange"},
		{0.9, "yellow"},
		{1.6, "green"},
	}
	for _, tt := range tests {
		got := ColorForCoverage(tt.ratio)
		var want lipgloss.Color
		switch tt.want {
		case "red":
			want = themeActive().Red
		case "orange":
			want = themeActive().Orange
		case "yellow":
			want = themeActive().Yellow
		case "green":
			want = themeActive().Green
		}
		if got != want {
			t.Errorf("ColorForCoverage(%v) = %s, want %s", tt.ratio, got, tt.want)
		}
	}
}

func TestFormatCountdown(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		at   time.Time
		want string
	}{
		{time.Time{}, "-"},
		{now.Add(-48 * time.Hour), "vencido"},
		{now.Add(2 * time.Hour), "hoy"},
		{now.AddDate(0, 0, 19), "19d"},
		{now.AddDate(0, 0, 157), "5m"},
	}
	for _, tt := range tests {
		if got := FormatCountdown(now, tt.at); got != tt.want {
			t.Errorf("FormatCountdown(%v) = %q, want %q", tt.at, got, tt.want)
		}
	}
}

func TestStatusBarWidth(t *testing.T) {
	bar := RenderStatusBar(100, &events.Toast{Level: events.LevelSuccess, Message: "Factura validada"}, 3, time.Now(), false)
	if w := lipgloss.Width(bar); w != 100 {
		t.Errorf("status bar width = %d, want 100", w)
	}
	if !strings.Contains(bar, "Factura validada") || !strings.Contains(bar, "rev 3") {
		t.Errorf("status bar content missing: %q", bar)
	}
}

func TestFlowChart(t *testing.T) {
	out := FlowChart([]FlowRow{
		{Label: "jun", In: 5100, Out: 836.42},
		{Label: "jul", In: 5100, Out: 836.42},
	}, 60, func(v float64) string { return "x" })
	if got := len(strings.Split(out, "\n")); got != 4 {
		t.Fatalf("FlowChart lines = %d, want 4", got)
	}
	if FlowChart(nil, 60, nil) != "" {
		t.Fatal("empty FlowChart should render nothing")
	}
}
