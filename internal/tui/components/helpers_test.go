package components

import (
	"regexp"

	"github.com/theirongolddev/atlas/internal/tui/theme"
)

var ansiRE = regexp.MustCompile("\x1b\\[[0-9;]*m")

func stripANSI(s string) string { return ansiRE.ReplaceAllString(s, "") }

func themeActive() theme.Theme { return theme.Active }
