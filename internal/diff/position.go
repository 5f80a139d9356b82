// Package diff locates review suggestions inside unified-diff patches and
// derives per-file change signals for scoring.
package diff

import (
	"regexp"
	"strconv"
	"strings"
)

var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// MapPosition walks a unified-diff patch and returns the comment position for
// targetLine in the new file, following the position semantics of the GitHub
// review API: the first hunk header is position zero, every following patch
// line advances the position by one, and "\ No newline at end of file"
// markers are skipped. Deletion lines advance the position but not the
// new-file line counter.
//
// The boolean result is false when targetLine does not appear in any hunk;
// callers fall back to a file-level comment in that case.
func MapPosition(patch string, targetLine int) (int, bool) {
	if patch == "" || targetLine < 1 {
		return 0, false
	}

	position := 0
	newLine := 0
	seenHunk := false

	for _, line := range strings.Split(patch, "\n") {
		if m := hunkHeaderRe.FindStringSubmatch(line); m != nil {
			if seenHunk {
				position++
			}
			seenHunk = true

			newStart, err := strconv.Atoi(m[3])
			if err != nil {
				return 0, false
			}
			newLine = newStart - 1
			continue
		}

		if !seenHunk {
			// file headers before the first hunk
			continue
		}
		if line == "" {
			// trailing split artifact; real empty context lines carry a space
			continue
		}
		if strings.HasPrefix(line, `\`) {
			// "\ No newline at end of file"
			continue
		}

		position++

		switch line[0] {
		case '+', ' ':
			newLine++
			if newLine == targetLine {
				return position, true
			}
		case '-':
			// deletions do not advance the new-file counter
		default:
			// tolerate malformed lines the same way context is tolerated
			newLine++
			if newLine == targetLine {
				return position, true
			}
		}
	}

	return 0, false
}
