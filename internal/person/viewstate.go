package person

import (
	"sort"
	"sync"
)

// viewState is per-id presentation state. It is shared between successive
// records for the same id so a cache upgrade does not reset it.
type viewState struct {
	mu          sync.Mutex
	generations map[int]int
	brickWall   bool
	marked      bool
	collapsed   []ID
}

func newViewState() *viewState {
	return &viewState{generations: map[int]int{}}
}

// AddGeneration counts one more occurrence of r at generation n.
func (r *Record) AddGeneration(n int) {
	r.view.mu.Lock()
	r.view.generations[n]++
	r.view.mu.Unlock()
}

func (r *Record) ResetGenerations() {
	r.view.mu.Lock()
	r.view.generations = map[int]int{}
	r.view.mu.Unlock()
}

// Generations returns the generation numbers r was reached at, ascending.
func (r *Record) Generations() []int {
	r.view.mu.Lock()
	defer r.view.mu.Unlock()
	out := make([]int, 0, len(r.view.generations))
	for g := range r.view.generations {
		out = append(out, g)
	}
	sort.Ints(out)
	return out
}

// Occurrences is how many times r was reached; above one means pedigree collapse.
func (r *Record) Occurrences() int {
	r.view.mu.Lock()
	defer r.view.mu.Unlock()
	n := 0
	for _, c := range r.view.generations {
		n += c
	}
	return n
}

func (r *Record) IsBrickWall() bool {
	r.view.mu.Lock()
	defer r.view.mu.Unlock()
	return r.view.brickWall
}

func (r *Record) SetBrickWall(v bool) {
	r.view.mu.Lock()
	r.view.brickWall = v
	r.view.mu.Unlock()
}

func (r *Record) IsMarked() bool {
	r.view.mu.Lock()
	defer r.view.mu.Unlock()
	return r.view.marked
}

func (r *Record) SetMarked(v bool) {
	r.view.mu.Lock()
	r.view.marked = v
	r.view.mu.Unlock()
}

// CollapsedChildren returns the ids hidden in descendant views.
func (r *Record) CollapsedChildren() []ID {
	r.view.mu.Lock()
	defer r.view.mu.Unlock()
	return cloneIDs(r.view.collapsed)
}

// CollapseChildren adds ids to the collapsed list and returns how many were new.
func (r *Record) CollapseChildren(ids ...ID) int {
	r.view.mu.Lock()
	defer r.view.mu.Unlock()
	n := 0
	for _, id := range ids {
		if id == "" || containsID(r.view.collapsed, id) {
			continue
		}
		r.view.collapsed = append(r.view.collapsed, id)
		n++
	}
	return n
}

// ExpandChildren removes ids from the collapsed list and returns how many were removed.
func (r *Record) ExpandChildren(ids ...ID) int {
	r.view.mu.Lock()
	defer r.view.mu.Unlock()
	n := 0
	kept := r.view.collapsed[:0]
	for _, id := range r.view.collapsed {
		if containsID(ids, id) {
			n++
			continue
		}
		kept = append(kept, id)
	}
	r.view.collapsed = kept
	return n
}
