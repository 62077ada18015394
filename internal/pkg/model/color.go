package model

import (
	"fmt"
	"strings"
)

type Color string

const (
	Red  Color = "RED"
	Blue Color = "BLUE"
)

func ParseColor(value string) (Color, error) {
	switch c := Color(strings.ToUpper(strings.TrimSpace(value))); c {
	case Red, Blue:
		return c, nil
	default:
		return "", fmt.Errorf("unsupported color %q", value)
	}
}
