// ABOUTME: Extracts (season, episode) identifiers from content paths
// ABOUTME: No fallback heuristics - absence in a sequential pool is a config error upstream

// Package seqid extracts SxxExx-style episode identifiers from paths.
package seqid

import (
	"regexp"
	"strconv"

	"chancycle/internal/model"
)

// sxxexxRe matches the first word-bounded, case-insensitive S<1-2 digits>E<1-2 digits> token.
var sxxexxRe = regexp.MustCompile(`(?i)\bS(\d{1,2})E(\d{1,2})\b`)

// Parse extracts the first SxxExx token from path. The second return value
// is false if no such token is present; callers in a sequential pool must
// treat that as a config error, not a silent default.
func Parse(path string) (model.EpisodeID, bool) {
	m := sxxexxRe.FindStringSubmatch(path)
	if m == nil {
		return model.EpisodeID{}, false
	}

	season, err := strconv.Atoi(m[1])
	if err != nil {
		return model.EpisodeID{}, false
	}

	episode, err := strconv.Atoi(m[2])
	if err != nil {
		return model.EpisodeID{}, false
	}

	return model.EpisodeID{Season: season, Episode: episode}, true
}
