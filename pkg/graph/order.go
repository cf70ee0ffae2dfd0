// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"container/heap"
	"slices"
)

// sort orders the nodes with Kahn's algorithm. Among ready nodes the one
// added first wins, so the order depends only on the inputs.
func (b *builder) sort() ([]string, error) {
	indegree := make(map[string]int, len(b.nodes))
	succ := make(map[string][]string, len(b.nodes))
	pred := make(map[string][]string, len(b.nodes))
	for e := range b.edges {
		indegree[e.To]++
		succ[e.From] = append(succ[e.From], e.To)
		pred[e.To] = append(pred[e.To], e.From)
	}

	ready := &indexQueue{index: b.index}
	for _, id := range b.seq {
		if indegree[id] == 0 {
			heap.Push(ready, id)
		}
	}

	order := make([]string, 0, len(b.seq))
	for ready.Len() > 0 {
		id := heap.Pop(ready).(string)
		order = append(order, id)
		for _, next := range succ[id] {
			indegree[next]--
			if indegree[next] == 0 {
				heap.Push(ready, next)
			}
		}
	}

	if len(order) == len(b.seq) {
		return order, nil
	}
	return nil, &CycleError{Cycle: b.findCycle(indegree, pred)}
}

// findCycle walks predecessors among the nodes Kahn could not place. Every
// such node has at least one unplaced predecessor, so the walk must revisit
// a node; the revisited segment is the cycle.
func (b *builder) findCycle(indegree map[string]int, pred map[string][]string) []string {
	stuck := func(id string) bool { return indegree[id] > 0 }

	var start string
	for _, id := range b.seq {
		if stuck(id) {
			start = id
			break
		}
	}

	seen := map[string]int{}
	var walk []string
	cur := start
	for {
		if at, ok := seen[cur]; ok {
			walk = walk[at:]
			break
		}
		seen[cur] = len(walk)
		walk = append(walk, cur)

		next := ""
		for _, p := range pred[cur] {
			if stuck(p) && (next == "" || b.index[p] < b.index[next]) {
				next = p
			}
		}
		cur = next
	}

	// walk follows edges backwards; flip it and close the loop.
	slices.Reverse(walk)
	return append(walk, walk[0])
}

type indexQueue struct {
	ids   []string
	index map[string]int
}

func (q *indexQueue) Len() int           { return len(q.ids) }
func (q *indexQueue) Less(i, j int) bool { return q.index[q.ids[i]] < q.index[q.ids[j]] }
func (q *indexQueue) Swap(i, j int)      { q.ids[i], q.ids[j] = q.ids[j], q.ids[i] }
func (q *indexQueue) Push(x any)         { q.ids = append(q.ids, x.(string)) }

func (q *indexQueue) Pop() any {
	n := len(q.ids)
	id := q.ids[n-1]
	q.ids = q.ids[:n-1]
	return id
}
