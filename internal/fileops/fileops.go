// Package fileops implements the File Manager:
// read/write/edit/multi_edit/metadata over absolute paths inside the task
// container.
package fileops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ShayCichocki/foreman/pkg/models"
)

// Manager performs filesystem operations. Every path it accepts must
// already be absolute; there is no working-directory resolution.
type Manager struct{}

// New creates a File Manager.
func New() *Manager {
	return &Manager{}
}

// checkAbs enforces the rule that every path must be absolute.
func checkAbs(path string) models.ExecutionResult {
	if !filepath.IsAbs(path) {
		return models.Err(models.ErrorKindInvalidPath, fmt.Sprintf("path must be absolute: %q", path))
	}
	return models.ExecutionResult{}
}

// Read returns content prefixed with line numbers, cat -n style.
func (m *Manager) Read(path string, offset, limit int) models.ExecutionResult {
	if res := checkAbs(path); res.ErrorKind != "" {
		return res
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.Err(models.ErrorKindNotFound, fmt.Sprintf("not found: %s", path))
		}
		if os.IsPermission(err) {
			return models.Err(models.ErrorKindPermissionDenied, fmt.Sprintf("permission denied: %s", path))
		}
		return models.Err(models.ErrorKindNotFound, err.Error())
	}
	if info.IsDir() {
		return models.Err(models.ErrorKindNotAFile, fmt.Sprintf("not a file: %s", path))
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return models.Err(models.ErrorKindPermissionDenied, err.Error())
		}
		return models.Err(models.ErrorKindNotFound, err.Error())
	}

	lines := strings.Split(string(content), "\n")

	start := 0
	if offset > 0 {
		start = offset - 1
		if start >= len(lines) {
			return models.Err(models.ErrorKindNotFound, "offset beyond end of file")
		}
	}

	end := len(lines)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		fmt.Fprintf(&b, "%6d\t%s\n", i+1, lines[i])
	}

	return models.Ok(b.String())
}

// Write overwrites or creates path. The parent directory must already
// exist; there is no implicit mkdir.
func (m *Manager) Write(path, content string) models.ExecutionResult {
	if res := checkAbs(path); res.ErrorKind != "" {
		return res
	}

	parent := filepath.Dir(path)
	if info, err := os.Stat(parent); err != nil || !info.IsDir() {
		return models.Err(models.ErrorKindMissingParent, fmt.Sprintf("parent directory does not exist: %s", parent))
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		if os.IsPermission(err) {
			return models.Err(models.ErrorKindPermissionDenied, err.Error())
		}
		return models.Err(models.ErrorKindMissingParent, err.Error())
	}

	return models.Ok(fmt.Sprintf("wrote %d bytes to %s", len(content), path))
}

// Edit performs a literal (non-regex), exact-whitespace string replacement.
// With replaceAll false, oldString must occur exactly once.
func (m *Manager) Edit(path, oldString, newString string, replaceAll bool) models.ExecutionResult {
	if res := checkAbs(path); res.ErrorKind != "" {
		return res
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return models.Err(models.ErrorKindNotFound, err.Error())
	}

	newContent, result := applyEdit(string(content), oldString, newString, replaceAll)
	if result.ErrorKind != "" {
		return result
	}

	if err := os.WriteFile(path, []byte(newContent), 0644); err != nil {
		return models.Err(models.ErrorKindPermissionDenied, err.Error())
	}

	return result
}

// applyEdit is the pure string-transform half of Edit, split out so
// multi_edit can reuse it without touching disk between edits.
func applyEdit(content, oldString, newString string, replaceAll bool) (string, models.ExecutionResult) {
	count := strings.Count(content, oldString)
	if count == 0 {
		return content, models.Err(models.ErrorKindNotFound, "old_string not found in file")
	}
	if !replaceAll && count > 1 {
		return content, models.Err(models.ErrorKindAmbiguousEdit,
			fmt.Sprintf("old_string found %d times; must be unique or use replace_all", count))
	}

	if replaceAll {
		return strings.ReplaceAll(content, oldString, newString), models.Ok(fmt.Sprintf("replaced %d occurrences", count))
	}
	return strings.Replace(content, oldString, newString, 1), models.Ok("edit applied")
}

// MultiEdit applies edits sequentially, each seeing the prior's result.
// It aborts atomically on the first failure: the file is either fully
// updated or left untouched.
func (m *Manager) MultiEdit(path string, edits []models.FileEdit) models.ExecutionResult {
	if res := checkAbs(path); res.ErrorKind != "" {
		return res
	}

	original, err := os.ReadFile(path)
	if err != nil {
		return models.Err(models.ErrorKindNotFound, err.Error())
	}

	content := string(original)
	for i, edit := range edits {
		var result models.ExecutionResult
		content, result = applyEdit(content, edit.OldString, edit.NewString, edit.ReplaceAll)
		if result.ErrorKind != "" {
			result.ErrorMessage = fmt.Sprintf("edit %d/%d: %s", i+1, len(edits), result.ErrorMessage)
			return result
		}
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return models.Err(models.ErrorKindPermissionDenied, err.Error())
	}

	return models.Ok(fmt.Sprintf("applied %d edits", len(edits)))
}

// FileStat is one entry of a Metadata result.
type FileStat struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size,omitempty"`
	Mode    string    `json:"mode,omitempty"`
	ModTime time.Time `json:"mtime,omitempty"`
	IsDir   bool      `json:"is_dir,omitempty"`
	Missing bool      `json:"missing,omitempty"`
}

// Metadata reports size/mode/mtime/file_type for up to 10 paths. A missing
// path is reported inline, not treated as fatal.
func (m *Manager) Metadata(paths []string) ([]FileStat, models.ExecutionResult) {
	if len(paths) > 10 {
		return nil, models.Err(models.ErrorKindValidationError, "metadata accepts at most 10 paths")
	}

	stats := make([]FileStat, 0, len(paths))
	for _, p := range paths {
		if !filepath.IsAbs(p) {
			return nil, models.Err(models.ErrorKindInvalidPath, fmt.Sprintf("path must be absolute: %q", p))
		}

		info, err := os.Stat(p)
		if err != nil {
			stats = append(stats, FileStat{Path: p, Missing: true})
			continue
		}
		stats = append(stats, FileStat{
			Path:    p,
			Size:    info.Size(),
			Mode:    info.Mode().String(),
			ModTime: info.ModTime(),
			IsDir:   info.IsDir(),
		})
	}

	return stats, models.Ok("")
}
