package driver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"borrowinfer/internal/ownership"
)

func TestDiskCachePutGet(t *testing.T) {
	c, err := OpenDiskCacheAt(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	key := combineDigest(Digest{1})
	var miss DiskPayload
	if ok, err := c.Get(key, &miss); ok || err != nil {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}

	in := &DiskPayload{
		Func:    "f",
		Summary: &ownership.Summary{Func: 3, Name: "f", Params: []ownership.ParamSummary{{Name: "s", Class: ownership.BorrowedShared}}, Resolved: true},
		Stats:   ownership.Stats{Funcs: 1, Bindings: 2},
	}
	if err := c.Put(key, in); err != nil {
		t.Fatalf("put: %v", err)
	}
	var out DiskPayload
	ok, err := c.Get(key, &out)
	if !ok || err != nil {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if out.Func != "f" || out.Summary.Params[0].Class != ownership.BorrowedShared || out.Stats != in.Stats {
		t.Fatalf("payload = %+v", out)
	}
	tmp, _ := filepath.Glob(filepath.Join(c.Dir(), "funcs", "tmp-*"))
	if len(tmp) != 0 {
		t.Fatalf("temporary files left behind: %v", tmp)
	}
}

func TestDiskCacheSchemaMismatchIsMiss(t *testing.T) {
	c, err := OpenDiskCacheAt(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	key := Digest{7}
	if err := c.Put(key, &DiskPayload{Func: "f"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	// Put stamps the current schema, so rewrite the entry by hand.
	raw, err := msgpack.Marshal(&DiskPayload{Schema: diskCacheSchemaVersion + 1, Func: "f"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := os.WriteFile(c.pathFor(key), raw, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	var out DiskPayload
	if ok, err := c.Get(key, &out); ok || err != nil {
		t.Fatalf("stale entry: ok=%v err=%v", ok, err)
	}
}

func TestDiskCacheDropAll(t *testing.T) {
	c, err := OpenDiskCacheAt(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	key := Digest{9}
	if err := c.Put(key, &DiskPayload{Func: "f"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := c.DropAll(); err != nil {
		t.Fatalf("drop: %v", err)
	}
	var out DiskPayload
	if ok, _ := c.Get(key, &out); ok {
		t.Fatalf("entry survived DropAll")
	}
	if _, err := os.Stat(c.Dir()); err != nil {
		t.Fatalf("cache dir not recreated: %v", err)
	}
}

func TestFingerprintTracksCallees(t *testing.T) {
	tp := newTestProg()
	top := tp.prog.Modules[0].Funcs[2]
	shared := &ownership.Summary{Func: 2, Name: "mid", Params: []ownership.ParamSummary{{Name: "s", Class: ownership.BorrowedShared}}, Resolved: true}
	owned := &ownership.Summary{Func: 2, Name: "mid", Params: []ownership.ParamSummary{{Name: "s", Class: ownership.Owned, Consumed: true}}, Resolved: true}

	env, err := Environment(tp.prog.Types, tp.reg, Options{})
	if err != nil {
		t.Fatalf("environment: %v", err)
	}
	a, err := Fingerprint(top, env, []*ownership.Summary{shared})
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	again, _ := Fingerprint(top, env, []*ownership.Summary{shared})
	b, _ := Fingerprint(top, env, []*ownership.Summary{owned})
	c, _ := Fingerprint(top, env, []*ownership.Summary{nil})
	if a != again {
		t.Fatalf("fingerprint is not stable")
	}
	if a == b || a == c || b == c {
		t.Fatalf("callee summaries must change the key: %s %s %s", a, b, c)
	}

	quiet, _ := Environment(tp.prog.Types, tp.reg, Options{QuietUnknown: true})
	if quiet == env {
		t.Fatalf("options that change output must change the environment")
	}
	if a.IsZero() {
		t.Fatalf("zero fingerprint")
	}
}
