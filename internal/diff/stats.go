package diff

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// PatchStats summarizes a single-file patch.
type PatchStats struct {
	Additions int
	Deletions int
	Binary    bool
	Renamed   bool
}

// AnalyzePatch parses one file's patch text (as returned by the GitHub files
// API, starting at the first hunk header) and counts its changes. A patch
// that fails to parse is reported as an error; callers treat the file as
// review-only rather than dropping it.
func AnalyzePatch(path, patch string) (PatchStats, error) {
	if strings.TrimSpace(patch) == "" {
		return PatchStats{}, nil
	}

	// the files API strips the git header, go-gitdiff wants one
	raw := patch
	if !strings.HasPrefix(patch, "diff --git") {
		raw = fmt.Sprintf("diff --git a/%s b/%s\n--- a/%s\n+++ b/%s\n%s", path, path, path, path, patch)
	}

	files, _, err := gitdiff.Parse(strings.NewReader(raw))
	if err != nil {
		return PatchStats{}, fmt.Errorf("parsing patch for %s: %w", path, err)
	}

	var stats PatchStats
	for _, f := range files {
		if f.IsBinary {
			stats.Binary = true
		}
		if f.IsRename {
			stats.Renamed = true
		}
		for _, frag := range f.TextFragments {
			for _, line := range frag.Lines {
				switch line.Op {
				case gitdiff.OpAdd:
					stats.Additions++
				case gitdiff.OpDelete:
					stats.Deletions++
				}
			}
		}
	}
	return stats, nil
}

var languageByExt = map[string]string{
	".go":    "go",
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".java":  "java",
	".rb":    "ruby",
	".rs":    "rust",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".php":   "php",
	".swift": "swift",
	".kt":    "kotlin",
	".scala": "scala",
	".sh":    "shell",
	".sql":   "sql",
	".tf":    "terraform",
	".yaml":  "yaml",
	".yml":   "yaml",
}

// DetectLanguage maps a file path to a language identifier, or "" when the
// extension is not recognized.
func DetectLanguage(path string) string {
	return languageByExt[strings.ToLower(filepath.Ext(path))]
}

var excludedBasenames = map[string]struct{}{
	"go.sum":            {},
	"package-lock.json": {},
	"yarn.lock":         {},
	"pnpm-lock.yaml":    {},
	"pipfile.lock":      {},
	"poetry.lock":       {},
	"cargo.lock":        {},
	"gemfile.lock":      {},
	"composer.lock":     {},
}

var excludedDirs = []string{
	"vendor/",
	"node_modules/",
	"dist/",
	"build/",
	".next/",
}

// IsExcludedPath reports whether path is a lock file, build artifact or
// vendored dependency that should never be sent to the analysis oracle.
func IsExcludedPath(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	if _, ok := excludedBasenames[base]; ok {
		return true
	}
	if strings.HasSuffix(base, ".min.js") || strings.HasSuffix(base, ".min.css") {
		return true
	}
	normalized := filepath.ToSlash(path)
	for _, dir := range excludedDirs {
		if strings.HasPrefix(normalized, dir) || strings.Contains(normalized, "/"+dir) {
			return true
		}
	}
	return false
}
