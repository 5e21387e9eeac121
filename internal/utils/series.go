package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseSeries parses comma-separated numbers typed by the user.
// Every token must parse and at least one value is required.
func ParseSeries(input string) ([]float64, error) {
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("enter at least one value")
	}

	parts := strings.Split(input, ",")
	values := make([]float64, 0, len(parts))
	for i, p := range parts {
		tok := strings.TrimSpace(p)
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("value %d (%q) is not a number", i+1, tok)
		}
		values = append(values, v)
	}
	return values, nil
}
