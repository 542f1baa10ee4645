package callgraph

import (
	"slices"
)

// Topo is the analysis schedule.
type Topo struct {
	Order   []NodeID   // линейный порядок: вызываемые раньше вызывающих
	Batches [][]NodeID // волны функций без зависимостей друг от друга
	Cyclic  bool
	Cycles  []NodeID // узлы, оставшиеся в цикле, и всё, что от них зависит
	// Components partitions Cycles into strongly connected components,
	// callee components first.
	Components [][]NodeID
}

// Toposort runs Kahn's algorithm over callee -> caller edges. Functions that
// are part of a call cycle, or call into one, never reach indegree zero and
// are reported in Cycles; direct self-recursion does not count as a cycle.
func Toposort(g *Graph) *Topo {
	nodeCount := len(g.Funcs)
	indeg := slices.Clone(g.Indeg)

	topo := &Topo{
		Order:   make([]NodeID, 0, nodeCount),
		Batches: make([][]NodeID, 0),
	}

	current := make([]NodeID, 0, nodeCount)
	for i := range nodeCount {
		if indeg[i] == 0 {
			current = append(current, toNode(i))
		}
	}

	for len(current) > 0 {
		batch := slices.Clone(current)
		topo.Batches = append(topo.Batches, batch)

		next := make([]NodeID, 0)
		for _, id := range batch {
			topo.Order = append(topo.Order, id)
			for _, caller := range g.Callers[int(id)] {
				indeg[int(caller)]--
				if indeg[int(caller)] == 0 {
					next = append(next, caller)
				}
			}
		}
		slices.Sort(next)
		current = next
	}

	if len(topo.Order) != nodeCount {
		topo.Cyclic = true
		for i := range nodeCount {
			if indeg[i] > 0 {
				topo.Cycles = append(topo.Cycles, toNode(i))
			}
		}
		topo.Components = components(g, topo.Cycles)
	}
	return topo
}

// components runs Tarjan's algorithm over caller -> callee edges restricted
// to nodes. Tarjan emits a component only after every component it reaches,
// which is callee-first.
func components(g *Graph, nodes []NodeID) [][]NodeID {
	in := make(map[NodeID]bool, len(nodes))
	for _, n := range nodes {
		in[n] = true
	}
	var (
		index   = make(map[NodeID]int, len(nodes))
		low     = make(map[NodeID]int, len(nodes))
		onStack = make(map[NodeID]bool, len(nodes))
		stack   []NodeID
		next    int
		out     [][]NodeID
	)
	var visit func(v NodeID)
	visit = func(v NodeID) {
		index[v], low[v] = next, next
		next++
		stack = append(stack, v)
		onStack[v] = true
		for _, w := range g.Callees[int(v)] {
			if !in[w] {
				continue
			}
			if _, seen := index[w]; !seen {
				visit(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], index[w])
			}
		}
		if low[v] != index[v] {
			return
		}
		var comp []NodeID
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			comp = append(comp, w)
			if w == v {
				break
			}
		}
		slices.Sort(comp)
		out = append(out, comp)
	}
	for _, n := range nodes {
		if _, seen := index[n]; !seen {
			visit(n)
		}
	}
	return out
}

// Pending returns the in-program callees of n that are not in done. The
// driver analyses such calls as unresolved.
func (g *Graph) Pending(n NodeID, done func(NodeID) bool) []NodeID {
	var out []NodeID
	for _, callee := range g.Callees[int(n)] {
		if !done(callee) {
			out = append(out, callee)
		}
	}
	return out
}
