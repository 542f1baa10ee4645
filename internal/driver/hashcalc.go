package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"borrowinfer/internal/capability"
	"borrowinfer/internal/hir"
	"borrowinfer/internal/hir/wire"
	"borrowinfer/internal/ownership"
	"borrowinfer/internal/types"
)

// Digest is a SHA-256 cache key.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// IsZero reports the unset digest.
func (d Digest) IsZero() bool { return d == Digest{} }

// combineDigest: H(content || dep1 || dep2 ...). deps уже в детерминированном порядке.
func combineDigest(content Digest, deps ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range deps {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

func digestOf(v any) (Digest, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return Digest{}, err
	}
	return sha256.Sum256(data), nil
}

// Environment digests what every function's result depends on besides its
// own body and its callees: the type table, the capability registry and
// the options that change output.
func Environment(in *types.Interner, reg *capability.Registry, opts Options) (Digest, error) {
	tt, err := digestOf(wire.ExportTypes(in))
	if err != nil {
		return Digest{}, fmt.Errorf("hash types: %w", err)
	}
	settings, err := digestOf([]any{diskCacheSchemaVersion, opts.QuietUnknown, opts.MaxDiagnostics})
	if err != nil {
		return Digest{}, fmt.Errorf("hash options: %w", err)
	}
	return combineDigest(tt, reg.Fingerprint(), settings), nil
}

// Fingerprint is the cache key of fn: its wire encoding, the environment
// and the summaries of the callees it reads, in call-graph order. A nil
// entry in deps stands for a callee analysed as unresolved. Annotations
// already written into fn are part of the encoding, so call it before
// inference.
func Fingerprint(fn *hir.Func, env Digest, deps []*ownership.Summary) (Digest, error) {
	body, err := digestOf(wire.ExportFunc(fn))
	if err != nil {
		return Digest{}, fmt.Errorf("hash %s: %w", fn.Name, err)
	}
	parts := make([]Digest, 0, len(deps)+1)
	parts = append(parts, env)
	for _, dep := range deps {
		if dep == nil {
			parts = append(parts, Digest{})
			continue
		}
		d, err := digestOf(dep)
		if err != nil {
			return Digest{}, fmt.Errorf("hash summary of %s: %w", dep.Name, err)
		}
		parts = append(parts, d)
	}
	return combineDigest(body, parts...), nil
}
