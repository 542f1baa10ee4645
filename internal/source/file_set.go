package source

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"fortio.org/safecast"
)

// FileSet owns every source file referenced by diagnostics of one run.
type FileSet struct {
	files []File
	index map[string]FileID // path -> latest id
}

// NewFileSet creates a new empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{
		files: make([]File, 0, 4),
		index: make(map[string]FileID),
	}
}

// Add stores normalized content and returns a fresh FileID.
// A second Add for the same path shadows the earlier entry in the index.
func (fs *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	lenFiles, err := safecast.Conv[uint32](len(fs.files))
	if err != nil {
		panic(fmt.Errorf("len files overflow: %w", err))
	}
	id := FileID(lenFiles)
	normalized := normalizePath(path)
	fs.files = append(fs.files, File{
		ID:      id,
		Path:    normalized,
		Content: content,
		LineIdx: buildLineIndex(content),
		Hash:    sha256.Sum256(content),
		Flags:   flags,
	})
	fs.index[normalized] = id
	return id
}

// AddVirtual registers a file that has no backing content on disk.
func (fs *FileSet) AddVirtual(name string, content []byte) FileID {
	return fs.Add(name, content, FileVirtual)
}

// Load reads a file from disk, strips a BOM and normalizes CRLF.
func (fs *FileSet) Load(path string) (FileID, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	content, hadBOM := removeBOM(content)
	content, hadCRLF := normalizeCRLF(content)
	var flags FileFlags
	if hadBOM {
		flags |= FileHadBOM
	}
	if hadCRLF {
		flags |= FileNormalizedCRLF
	}
	return fs.Add(path, content, flags), nil
}

// Get returns the file for id or nil when id is unknown.
func (fs *FileSet) Get(id FileID) *File {
	if fs == nil || int(id) >= len(fs.files) {
		return nil
	}
	return &fs.files[id]
}

// Lookup returns the latest file registered under path.
func (fs *FileSet) Lookup(path string) (*File, bool) {
	if fs == nil {
		return nil, false
	}
	id, ok := fs.index[normalizePath(path)]
	if !ok {
		return nil, false
	}
	return &fs.files[id], true
}

// Len returns the number of registered files.
func (fs *FileSet) Len() int {
	if fs == nil {
		return 0
	}
	return len(fs.files)
}

// Resolve converts a span into 1-based line/column positions.
func (fs *FileSet) Resolve(span Span) (start, end LineCol) {
	f := fs.Get(span.File)
	if f == nil {
		return LineCol{Line: 1, Col: span.Start + 1}, LineCol{Line: 1, Col: span.End + 1}
	}
	return toLineCol(f.LineIdx, span.Start), toLineCol(f.LineIdx, span.End)
}

// GetLine returns the 1-based line lineNum without its newline.
func (f *File) GetLine(lineNum uint32) string {
	if f == nil || lineNum == 0 || len(f.Content) == 0 {
		return ""
	}
	var start int
	if lineNum > 1 {
		prev := int(lineNum) - 2
		if prev >= len(f.LineIdx) {
			return ""
		}
		start = int(f.LineIdx[prev]) + 1
	}
	end := len(f.Content)
	if cur := int(lineNum) - 1; cur < len(f.LineIdx) {
		end = int(f.LineIdx[cur])
	}
	if start >= len(f.Content) || start > end {
		return ""
	}
	return string(f.Content[start:end])
}

// DisplayPath shortens long absolute paths to their base name.
func (f *File) DisplayPath() string {
	if f == nil {
		return "<unknown>"
	}
	if len(f.Path) < 40 || !filepath.IsAbs(f.Path) {
		return f.Path
	}
	return filepath.Base(f.Path)
}
