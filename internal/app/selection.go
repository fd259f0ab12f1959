package app

import (
	"fmt"
	"strconv"
	"strings"
)

// parseSelection parses an interactive answer such as "1,3,5-7" or "all"
// against a list of n numbered items and returns 0-based indices in list
// order without duplicates. A blank answer selects nothing.
func parseSelection(input string, n int) ([]int, error) {
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" {
		return nil, nil
	}
	if input == "all" || input == "a" {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}

	chosen := make([]bool, n)
	for _, part := range strings.FieldsFunc(input, func(r rune) bool { return r == ',' || r == ' ' }) {
		lo, hi, err := parseRange(part)
		if err != nil {
			return nil, err
		}
		if lo < 1 || hi > n {
			return nil, fmt.Errorf("selection %q is out of range 1-%d", part, n)
		}
		for i := lo; i <= hi; i++ {
			chosen[i-1] = true
		}
	}

	var indices []int
	for i, ok := range chosen {
		if ok {
			indices = append(indices, i)
		}
	}
	return indices, nil
}

func parseRange(part string) (int, int, error) {
	from, to, isRange := strings.Cut(part, "-")
	lo, err := strconv.Atoi(strings.TrimSpace(from))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid selection %q", part)
	}
	if !isRange {
		return lo, lo, nil
	}
	hi, err := strconv.Atoi(strings.TrimSpace(to))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid selection %q", part)
	}
	if hi < lo {
		return 0, 0, fmt.Errorf("invalid range %q: end before start", part)
	}
	return lo, hi, nil
}
