package sysutil

import (
	"strings"

	"github.com/rs/zerolog"
)

// LevelForVerbosity maps the CLI verbosity flag to a zerolog level:
// 0 silences everything, 1 enables info, 2 or more enables debug.
func LevelForVerbosity(v int) zerolog.Level {
	switch {
	case v <= 0:
		return zerolog.Disabled
	case v == 1:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}

// FirstNonEmpty returns the first non-empty string from a variadic list.
// If all values are empty, it returns "".
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
