package project

import (
	"fmt"
	"strings"
)

// SortKey selects the ordering applied to a project listing.
type SortKey string

const (
	SortBySize SortKey = "size" // largest first
	SortByName SortKey = "name" // alphabetical
	SortByAge  SortKey = "age"  // oldest build directory first
	SortByType SortKey = "type" // ecosystem priority, then name
)

// ParseSortKey validates a sort key. An empty string selects SortBySize.
func ParseSortKey(s string) (SortKey, error) {
	switch key := SortKey(strings.ToLower(strings.TrimSpace(s))); key {
	case "":
		return SortBySize, nil
	case SortBySize, SortByName, SortByAge, SortByType:
		return key, nil
	default:
		return "", fmt.Errorf("invalid sort key %q: must be one of: size, name, age, type", s)
	}
}

// TotalSize sums the build directory sizes of the given projects.
func TotalSize(projects []Project) int64 {
	var total int64
	for _, p := range projects {
		total += p.Build.Size
	}
	return total
}

// CountByKind returns how many projects belong to each ecosystem.
func CountByKind(projects []Project) map[Kind]int {
	counts := make(map[Kind]int, len(Kinds))
	for _, p := range projects {
		counts[p.Kind]++
	}
	return counts
}
