package activity

import (
	"path/filepath"
	"strings"
)

// Scope limits recording to files under one project folder of the
// workspace, e.g. <root>/csc111.
type Scope struct {
	WorkspaceRoot string
	ProjectFolder string
}

// Dir returns the folder events must come from, or "" when no workspace is
// open.
func (s Scope) Dir() string {
	if s.WorkspaceRoot == "" {
		return ""
	}
	return filepath.Join(s.WorkspaceRoot, s.ProjectFolder)
}

// Contains reports whether path is the project folder or lies beneath it.
// Sibling folders that merely share the prefix do not match.
func (s Scope) Contains(path string) bool {
	dir := s.Dir()
	if dir == "" || path == "" {
		return false
	}

	rel, err := filepath.Rel(dir, filepath.Clean(path))
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
