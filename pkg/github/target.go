package github

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidRepositoryURL is returned when a URL does not name a repository
var ErrInvalidRepositoryURL = errors.New("invalid GitHub repository URL")

var (
	hostPrefixRe = regexp.MustCompile(`^(https?://)?(www\.)?github\.com`)
	segmentRe    = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

// ParseRepositoryURL extracts owner and name from a GitHub repository URL
// such as https://github.com/mui-org/material-ui-pickers.git, or from a
// bare "owner/name".
func ParseRepositoryURL(raw string) (owner, name string, err error) {
	s := hostPrefixRe.ReplaceAllString(strings.TrimSpace(raw), "")
	s = strings.TrimSuffix(s, ".git")

	var parts []string
	for _, p := range strings.Split(s, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) != 2 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRepositoryURL, raw)
	}
	for _, p := range parts {
		if !segmentRe.MatchString(p) || p == "." || p == ".." {
			return "", "", fmt.Errorf("%w: %q", ErrInvalidRepositoryURL, raw)
		}
	}
	return parts[0], parts[1], nil
}
