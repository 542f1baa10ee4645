package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"borrowinfer/internal/diag"
	"borrowinfer/internal/hir"
	"borrowinfer/internal/ownership"
)

// Current schema version - increment when DiskPayload format changes
const diskCacheSchemaVersion uint16 = 1

// DiskCache хранит результаты анализа функций по Fingerprint на диске.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// DiskPayload is everything needed to replay the analysis of one function
// without running it: the annotations in walk order, the summary callers
// read, diagnostics and stats.
type DiskPayload struct {
	// Schema version for safe invalidation when format changes
	Schema uint16
	Func   string

	Exprs  []ExprNote    // indexed by NodeID-1
	Params []BindingNote // receiver, params, then closure params in walk order
	Lets   []BindingNote // let statements in walk order
	Loops  []LoopNote    // for statements in walk order

	Summary *ownership.Summary
	Diags   []diag.Diagnostic
	Stats   ownership.Stats
}

type ExprNote struct {
	Action   hir.Action
	Deref    bool
	Reason   string
	Captures []hir.Capture
}

type BindingNote struct {
	Ownership hir.Ownership
	NeedsMut  bool
}

type LoopNote struct {
	Iter     hir.IterMode
	NeedsMut bool
}

// OpenDiskCache initializes and returns a disk cache at the standard location.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenDiskCacheAt(filepath.Join(base, app))
}

// OpenDiskCacheAt uses dir as the cache root.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *DiskCache) pathFor(key Digest) string {
	// подкаталог "funcs" — чтобы DropAll не задевал чужие файлы рядом
	return filepath.Join(c.dir, "funcs", key.String()+".mp")
}

// Put serializes and writes a payload to the disk cache.
func (c *DiskCache) Put(key Digest, payload *DiskPayload) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	payload.Schema = diskCacheSchemaVersion
	if err = msgpack.NewEncoder(f).Encode(payload); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	return os.Rename(f.Name(), p)
}

// Get reads and deserializes a payload from the disk cache. A payload
// written under another schema is a miss.
func (c *DiskCache) Get(key Digest, out *DiskPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, fmt.Errorf("cache entry %s: %w", key, err)
	}
	if out.Schema != diskCacheSchemaVersion {
		return false, nil
	}
	return true, nil
}

// DropAll invalidates the cache, useful after format changes.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	// переименуем каталог и удалим
	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}

// snapshotFunc records what the engine wrote into fn.
func snapshotFunc(fn *hir.Func, res *ownership.Result) *DiskPayload {
	p := &DiskPayload{
		Func:    fn.Name,
		Summary: res.Summary,
		Diags:   res.Diags,
		Stats:   res.Stats,
	}
	for _, e := range hir.Exprs(fn) {
		note := ExprNote{Action: e.Own.Action, Deref: e.Own.Deref, Reason: e.Own.Reason}
		if c, ok := e.Data.(*hir.ClosureData); ok {
			note.Captures = c.Captures
		}
		p.Exprs = append(p.Exprs, note)
	}
	for _, param := range funcParams(fn) {
		p.Params = append(p.Params, BindingNote{Ownership: param.Ownership, NeedsMut: param.NeedsMut})
	}
	hir.WalkFunc(fn, hir.Visitor{Stmt: func(s *hir.Stmt) {
		switch data := s.Data.(type) {
		case *hir.LetData:
			p.Lets = append(p.Lets, BindingNote{Ownership: data.Ownership, NeedsMut: data.NeedsMut})
		case *hir.ForData:
			p.Loops = append(p.Loops, LoopNote{Iter: data.Iter, NeedsMut: data.NeedsMut})
		}
	}})
	return p
}

// restoreFunc replays a payload into fn. It reports false, leaving fn
// untouched, when the payload does not fit the function's shape.
func restoreFunc(fn *hir.Func, p *DiskPayload) bool {
	exprs := hir.Exprs(fn)
	params := funcParams(fn)
	var lets []*hir.LetData
	var loops []*hir.ForData
	hir.WalkFunc(fn, hir.Visitor{Stmt: func(s *hir.Stmt) {
		switch data := s.Data.(type) {
		case *hir.LetData:
			lets = append(lets, data)
		case *hir.ForData:
			loops = append(loops, data)
		}
	}})
	if len(exprs) != len(p.Exprs) || len(params) != len(p.Params) ||
		len(lets) != len(p.Lets) || len(loops) != len(p.Loops) || p.Summary == nil {
		return false
	}

	hir.ClearAnnotations(fn)
	for i, e := range exprs {
		note := p.Exprs[i]
		e.Own = hir.Annotation{Action: note.Action, Deref: note.Deref, Reason: note.Reason}
		if c, ok := e.Data.(*hir.ClosureData); ok {
			c.Captures = note.Captures
		}
	}
	for i, param := range params {
		param.Ownership, param.NeedsMut = p.Params[i].Ownership, p.Params[i].NeedsMut
	}
	for i, data := range lets {
		data.Ownership, data.NeedsMut = p.Lets[i].Ownership, p.Lets[i].NeedsMut
	}
	for i, data := range loops {
		data.Iter, data.NeedsMut = p.Loops[i].Iter, p.Loops[i].NeedsMut
	}
	return true
}

func funcParams(fn *hir.Func) []*hir.Param {
	var out []*hir.Param
	if fn.Receiver != nil {
		out = append(out, fn.Receiver)
	}
	for i := range fn.Params {
		out = append(out, &fn.Params[i])
	}
	hir.WalkFunc(fn, hir.Visitor{Expr: func(e *hir.Expr) bool {
		if c, ok := e.Data.(*hir.ClosureData); ok {
			for i := range c.Params {
				out = append(out, &c.Params[i])
			}
		}
		return true
	}})
	return out
}
