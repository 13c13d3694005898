package server

import (
	"strconv"
	"strings"

	"fx-agent/src/models"
)

// -----------------------------------------------------------------------------

func normalizePairs(pairs []string) []string {
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" && !contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

// -----------------------------------------------------------------------------

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------

// queryInt parses a positive integer query value, returning def otherwise.
func queryInt(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// -----------------------------------------------------------------------------

func isKnownPair(cfg *models.MConfig, pair string) bool {
	if len(cfg.Pairs) == 0 {
		return true
	}
	return contains(normalizePairs(cfg.Pairs), pair)
}
