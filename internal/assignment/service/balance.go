package service

import (
	"container/heap"

	"github.com/google/uuid"
)

// AgentLoad is an agent's current open workload.
type AgentLoad struct {
	AgentID uuid.UUID
	Open    int
}

type loadEntry struct {
	AgentLoad
	rank int
}

type loadHeap []loadEntry

func (h loadHeap) Len() int { return len(h) }
func (h loadHeap) Less(i, j int) bool {
	if h[i].Open != h[j].Open {
		return h[i].Open < h[j].Open
	}
	return h[i].rank < h[j].rank
}
func (h loadHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *loadHeap) Push(x interface{}) { *h = append(*h, x.(loadEntry)) }
func (h *loadHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Plan hands each item to the agent with the smallest open workload at that
// moment. Ties go to the agent listed first.
func Plan(items []uuid.UUID, loads []AgentLoad) map[uuid.UUID][]uuid.UUID {
	plan := make(map[uuid.UUID][]uuid.UUID, len(loads))
	if len(loads) == 0 {
		return plan
	}

	h := make(loadHeap, len(loads))
	for i, l := range loads {
		h[i] = loadEntry{AgentLoad: l, rank: i}
	}
	heap.Init(&h)

	for _, item := range items {
		next := heap.Pop(&h).(loadEntry)
		plan[next.AgentID] = append(plan[next.AgentID], item)
		next.Open++
		heap.Push(&h, next)
	}
	return plan
}
