package diagfmt

import (
	"path/filepath"

	"borrowinfer/internal/source"
)

func formatPath(f *source.File, mode PathMode, baseDir string) string {
	if f == nil {
		return "<unknown>"
	}
	switch mode {
	case PathModeAbsolute:
		return f.Path
	case PathModeBasename:
		return filepath.Base(f.Path)
	case PathModeRelative:
		if baseDir == "" {
			return f.Path
		}
		if rel, err := filepath.Rel(baseDir, f.Path); err == nil {
			return filepath.ToSlash(rel)
		}
		return f.Path
	default:
		return f.DisplayPath()
	}
}
