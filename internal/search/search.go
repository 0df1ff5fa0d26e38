// Package search implements the Search Manager: grep
// over file contents and glob over paths, both bounded and stdlib-only so
// they don't depend on external binaries being present in the container.
package search

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ShayCichocki/foreman/pkg/models"
)

// MaxResults bounds grep/glob result counts before truncation.
const MaxResults = 1000

// GrepRow is one matched line.
type GrepRow struct {
	File string `json:"file"`
	Line int    `json:"line_no"`
	Text string `json:"line"`
}

// Manager performs regex grep and glob search, rooted at a default path
// when an action omits one.
type Manager struct {
	workDir string
}

// New creates a Search Manager.
func New(workDir string) *Manager {
	return &Manager{workDir: workDir}
}

// Grep searches file contents under path (default workDir) for pattern,
// optionally restricted to files matching the include glob.
func (m *Manager) Grep(pattern, path, include string) ([]GrepRow, models.ExecutionResult) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, models.Err(models.ErrorKindValidationError, fmt.Sprintf("invalid pattern: %v", err))
	}

	root := m.resolvePath(path)
	var rows []GrepRow
	truncated := false

	walkErr := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && d.Name() != "." {
				return filepath.SkipDir
			}
			return nil
		}
		if include != "" {
			matched, _ := filepath.Match(include, d.Name())
			if !matched {
				return nil
			}
		}
		if len(rows) >= MaxResults {
			truncated = true
			return nil
		}

		f, err := os.Open(p)
		if err != nil {
			return nil
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := scanner.Text()
			if re.MatchString(line) {
				rows = append(rows, GrepRow{File: p, Line: lineNo, Text: line})
				if len(rows) >= MaxResults {
					truncated = true
					break
				}
			}
		}
		return nil
	})
	if walkErr != nil {
		return nil, models.Err(models.ErrorKindNotFound, walkErr.Error())
	}

	if truncated {
		return rows, models.OkTruncated(fmt.Sprintf("%d matches (truncated)", len(rows)))
	}
	return rows, models.Ok(fmt.Sprintf("%d matches", len(rows)))
}

// Glob returns absolute paths under path (default workDir) matching a
// shell-style glob pattern, including "**" recursive segments.
func (m *Manager) Glob(pattern, path string) ([]string, models.ExecutionResult) {
	root := m.resolvePath(path)

	var matches []string
	truncated := false

	walkErr := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && d.Name() != "." {
				return filepath.SkipDir
			}
			return nil
		}
		if len(matches) >= MaxResults {
			truncated = true
			return nil
		}

		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return nil
		}
		if matchGlob(pattern, rel) {
			matches = append(matches, p)
			if len(matches) >= MaxResults {
				truncated = true
			}
		}
		return nil
	})
	if walkErr != nil {
		return nil, models.Err(models.ErrorKindNotFound, walkErr.Error())
	}

	if truncated {
		return matches, models.OkTruncated(fmt.Sprintf("%d matches (truncated)", len(matches)))
	}
	return matches, models.Ok(fmt.Sprintf("%d matches", len(matches)))
}

// matchGlob matches a relative path against a pattern that may contain "**"
// path-spanning wildcards, which filepath.Match alone cannot express.
func matchGlob(pattern, relPath string) bool {
	if !strings.Contains(pattern, "**") {
		matched, _ := filepath.Match(pattern, relPath)
		if matched {
			return true
		}
		// Allow a bare basename pattern ("*.go") to match at any depth.
		matched, _ = filepath.Match(pattern, filepath.Base(relPath))
		return matched
	}

	parts := strings.SplitN(pattern, "**", 2)
	prefix := strings.TrimSuffix(parts[0], "/")
	suffix := strings.TrimPrefix(parts[1], "/")

	if prefix != "" {
		if !strings.HasPrefix(relPath, prefix) {
			return false
		}
		relPath = strings.TrimPrefix(relPath, prefix)
		relPath = strings.TrimPrefix(relPath, "/")
	}

	if suffix == "" {
		return true
	}

	matched, _ := filepath.Match(suffix, filepath.Base(relPath))
	if matched {
		return true
	}
	matched, _ = filepath.Match(suffix, relPath)
	return matched
}

func (m *Manager) resolvePath(path string) string {
	if path == "" {
		return m.workDir
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(m.workDir, path)
}
