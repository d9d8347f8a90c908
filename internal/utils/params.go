// Package utils holds small helpers shared by the transport and service
// layers. Nothing here knows about flights.
package utils

import (
	"strconv"
	"strings"
)

// ParseInt64 parses a base-10 path or query value. Surrounding whitespace is
// ignored; an empty, malformed or out-of-range value yields def.
func ParseInt64(s string, def int64) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return n
}
