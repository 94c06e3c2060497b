package theme

import (
	"testing"

	"github.com/theirongolddev/atlas/internal/model"
)

func TestByNameFallsBack(t *testing.T) {
	if got := ByName("tokyo-night").Name; got != "tokyo-night" {
		t.Errorf("ByName(tokyo-night) = %q", got)
	}
	if got := ByName("nope").Name; got != FlexokiDark.Name {
		t.Errorf("ByName(nope) = %q, want %q", got, FlexokiDark.Name)
	}
}

func TestSetActive(t *testing.T) {
	defer SetActive(FlexokiDark.Name)

	SetActive("terminal")
	if Active.Name != "terminal" {
		t.Fatalf("Active = %q, want terminal", Active.Name)
	}
}

func TestNames(t *testing.T) {
	names := Names()
	if len(names) != len(All) || names[0] != "flexoki-dark" {
		t.Fatalf("Names() = %v", names)
	}
}

func TestSemanticColors(t *testing.T) {
	th := FlexokiDark
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"health ok", string(th.ForHealth(model.HealthOK)), string(th.Green)},
		{"health critical", string(th.ForHealth(model.HealthCritical)), string(th.Red)},
		{"severity warning", string(th.ForSeverity(model.SeverityWarning)), string(th.Orange)},
		{"severity info", string(th.ForSeverity(model.SeverityInfo)), string(th.Blue)},
		{"income", string(th.ForAmount(1450)), string(th.GreenBright)},
		{"expense", string(th.ForAmount(-84.37)), string(th.Red)},
		{"validated", string(th.ForStatus(model.StatusValidated)), string(th.Green)},
		{"pending", string(th.ForStatus(model.StatusPending)), string(th.Yellow)},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.name, tt.got, tt.want)
		}
	}
}
