package theme

import (
	"errors"
	"fmt"
	"strings"
)

// Theme is the effective visual theme of the dashboard.
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// Default is used whenever no valid preference has been persisted.
// It is fixed rather than derived from the system color scheme.
const Default = Light

// ErrUnknownTheme is returned by Parse for values outside {light, dark}.
var ErrUnknownTheme = errors.New("unknown theme")

// All returns every valid theme value.
func All() []Theme {
	return []Theme{Light, Dark}
}

// Parse validates a user-supplied theme name.
func Parse(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case Light:
		return Light, nil
	case Dark:
		return Dark, nil
	default:
		return "", fmt.Errorf("%w: %q (want light or dark)", ErrUnknownTheme, s)
	}
}

// Normalize maps a persisted value to a theme. Anything that is not exactly
// "dark" (including corrupted values) is light.
func Normalize(s string) Theme {
	if Theme(s) == Dark {
		return Dark
	}
	return Light
}

// Valid reports whether t is light or dark.
func (t Theme) Valid() bool {
	return t == Light || t == Dark
}

// Opposite returns the theme a toggle moves to.
func (t Theme) Opposite() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

func (t Theme) String() string {
	return string(t)
}
