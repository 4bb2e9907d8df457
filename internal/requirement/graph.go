package requirement

import (
	"fmt"
	"sort"
	"strings"

	id "benefitflow/pkg/domain"
	dErrors "benefitflow/pkg/domain-errors"
)

// finalize checks the assembled node set for prerequisite cycles and attaches
// the deterministic topological order. A cyclic catalog is a data error the
// caller must surface, never silently prune.
func (g *Graph) finalize() error {
	if cycle := g.findCycle(); len(cycle) > 0 {
		names := make([]string, len(cycle))
		for i, t := range cycle {
			names[i] = t.String()
		}
		return dErrors.New(dErrors.CodeCycleDetected,
			fmt.Sprintf("document prerequisites form a cycle: %s", strings.Join(names, " -> ")))
	}
	g.TopoOrder = g.topoOrder()
	return nil
}

// findCycle runs an iterative-enough DFS with a recursion stack and returns
// the participating document types in path order, closed with the repeated
// entry node. Empty when the graph is acyclic.
//
// Node iteration is sorted so the same cyclic catalog always names the same
// cycle.
func (g *Graph) findCycle() []id.DocumentTypeID {
	const (
		unvisited = iota
		inStack
		done
	)
	state := make(map[id.DocumentTypeID]int, len(g.Nodes))
	var stack []id.DocumentTypeID

	var visit func(t id.DocumentTypeID) []id.DocumentTypeID
	visit = func(t id.DocumentTypeID) []id.DocumentTypeID {
		state[t] = inStack
		stack = append(stack, t)
		for _, prereq := range sortedTypes(g.Nodes[t].Prerequisites) {
			if _, known := g.Nodes[prereq]; !known {
				continue
			}
			switch state[prereq] {
			case inStack:
				// Slice the stack from the first occurrence of prereq
				// to get the cycle path, then close the loop.
				for i, onPath := range stack {
					if onPath == prereq {
						cycle := append([]id.DocumentTypeID{}, stack[i:]...)
						return append(cycle, prereq)
					}
				}
			case unvisited:
				if cycle := visit(prereq); len(cycle) > 0 {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[t] = done
		return nil
	}

	for _, t := range sortedNodeTypes(g.Nodes) {
		if state[t] == unvisited {
			if cycle := visit(t); len(cycle) > 0 {
				return cycle
			}
		}
	}
	return nil
}

// topoOrder is Kahn's algorithm with a lexical tiebreak among ready nodes.
// Must only run on an acyclic graph.
func (g *Graph) topoOrder() []id.DocumentTypeID {
	indegree := make(map[id.DocumentTypeID]int, len(g.Nodes))
	for t := range g.Nodes {
		indegree[t] = 0
	}
	for t, node := range g.Nodes {
		for _, prereq := range node.Prerequisites {
			if _, known := g.Nodes[prereq]; known {
				indegree[t]++
			}
		}
	}

	var ready []id.DocumentTypeID
	for t, deg := range indegree {
		if deg == 0 {
			ready = append(ready, t)
		}
	}

	order := make([]id.DocumentTypeID, 0, len(g.Nodes))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, dependent := range g.Edges[next] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}
	return order
}

func sortedTypes(types []id.DocumentTypeID) []id.DocumentTypeID {
	out := make([]id.DocumentTypeID, len(types))
	copy(out, types)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedNodeTypes(nodes map[id.DocumentTypeID]*Node) []id.DocumentTypeID {
	out := make([]id.DocumentTypeID, 0, len(nodes))
	for t := range nodes {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
