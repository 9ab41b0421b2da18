// ABOUTME: Interleaves bumper breaks and block content into the final playlist cycle
// ABOUTME: Drops the trailing break so the loop seam never doubles a bumper run

// Package assemble builds the final playlist cycle from a solved schedule
// and a bumper selector.
package assemble

import (
	"chancycle/internal/bumpers"
	"chancycle/internal/model"
)

// Cycle emits, for each block in order, one break's worth of bumpers
// followed by the block's items. The break that would follow the final
// block is omitted, so the cycle always ends on content.
func Cycle(result model.SolveResult, selector *bumpers.Selector) model.Cycle {
	seen := make(map[string]bool)

	var entries []model.PlaylistEntry

	appendEntry := func(path string, mediaType model.MediaType) {
		include := !seen[path]
		seen[path] = true

		entries = append(entries, model.PlaylistEntry{
			Path:           path,
			MediaType:      mediaType,
			IncludeInGuide: include,
		})
	}

	for _, block := range result.Blocks {
		for _, b := range selector.NextBumpers() {
			appendEntry(b.Path, b.MediaType)
		}

		for _, it := range block.Items {
			appendEntry(it.Path, it.MediaType)
		}
	}

	return model.Cycle{Entries: entries}
}
