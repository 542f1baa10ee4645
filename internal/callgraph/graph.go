// Package callgraph orders the functions of a program so that callees are
// analysed before their callers.
package callgraph

import (
	"cmp"
	"fmt"
	"slices"

	"fortio.org/safecast"

	"borrowinfer/internal/hir"
)

// NodeID is a dense index into Graph.Funcs.
type NodeID uint32

// Graph stores callee -> caller edges so that Kahn's algorithm emits callees
// first.
type Graph struct {
	Funcs   []*hir.Func
	Callers [][]NodeID // Callers[callee] = []caller
	Callees [][]NodeID // Callees[caller] = []callee, within the program
	Indeg   []int      // number of distinct in-program callees
	Self    []bool     // function calls itself directly
	index   map[hir.FuncID]NodeID
}

// Build indexes every function of prog in FuncID order and records the
// call edges found in their bodies, closures included. Calls of functions
// outside the program are not edges.
func Build(prog *hir.Program) *Graph {
	funcs := prog.Funcs()
	slices.SortFunc(funcs, func(a, b *hir.Func) int { return cmp.Compare(a.ID, b.ID) })

	n := len(funcs)
	g := &Graph{
		Funcs:   funcs,
		Callers: make([][]NodeID, n),
		Callees: make([][]NodeID, n),
		Indeg:   make([]int, n),
		Self:    make([]bool, n),
		index:   make(map[hir.FuncID]NodeID, n),
	}
	for i, fn := range funcs {
		g.index[fn.ID] = toNode(i)
	}

	for i, fn := range funcs {
		from := toNode(i)
		seen := make(map[NodeID]struct{})
		hir.WalkFunc(fn, hir.Visitor{Expr: func(e *hir.Expr) bool {
			var callee hir.FuncID
			switch data := e.Data.(type) {
			case hir.CallData:
				callee = data.Callee
			case hir.MethodCallData:
				callee = data.Callee
			}
			to, ok := g.index[callee]
			if !callee.IsValid() || !ok {
				return true
			}
			if to == from {
				g.Self[i] = true
				return true
			}
			if _, dup := seen[to]; dup {
				return true
			}
			seen[to] = struct{}{}
			g.Callees[from] = append(g.Callees[from], to)
			g.Callers[to] = append(g.Callers[to], from)
			g.Indeg[from]++
			return true
		}})
	}
	for i := range g.Callers {
		slices.Sort(g.Callers[i])
		slices.Sort(g.Callees[i])
	}
	return g
}

// Node returns the node of a function id.
func (g *Graph) Node(id hir.FuncID) (NodeID, bool) {
	n, ok := g.index[id]
	return n, ok
}

// Func returns the function behind a node.
func (g *Graph) Func(n NodeID) *hir.Func {
	return g.Funcs[int(n)]
}

func toNode(i int) NodeID {
	id, err := safecast.Conv[NodeID](i)
	if err != nil {
		panic(fmt.Errorf("call graph node overflow: %w", err))
	}
	return id
}
