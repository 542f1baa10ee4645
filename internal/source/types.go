package source

// FileID identifies a source file within a FileSet.
type FileID uint32

// FileFlags encodes metadata about a source file.
type FileFlags uint8

const (
	// FileVirtual marks content that did not come from disk (tests, wire dumps).
	FileVirtual FileFlags = 1 << iota
	FileHadBOM
	FileNormalizedCRLF
)

// File captures metadata and content for a single source file.
// Content may be empty when a wire dump references a file that is not
// available locally; spans then still resolve to byte offsets.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32
	Hash    [32]byte
	Flags   FileFlags
}

// LineCol represents a human-readable position in a source file.
type LineCol struct {
	Line uint32 // 1-based
	Col  uint32 // 1-based
}
