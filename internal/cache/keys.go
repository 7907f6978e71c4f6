package cache

import (
	"fmt"
	"strings"
)

// Key prefixes for different cache entry types
const (
	PrefixDefaultBranch = "default-branch"
)

// DefaultBranchKey generates the cache key for a repository's default branch
func DefaultBranchKey(owner, name string) string {
	return fmt.Sprintf("%s:%s/%s", PrefixDefaultBranch, strings.ToLower(owner), strings.ToLower(name))
}
