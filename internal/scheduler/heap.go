package scheduler

// entry is one item in the priority heap: a user id and the target
// epoch-seconds at which it becomes due. Smaller target pops first.
type entry struct {
	userID int64
	target uint32
	index  int // position in the heap array, for O(log n) updates
}

// priorityHeap is a min-heap over entry.target, with a parallel map
// for O(1) keyed lookup so an existing id's priority can be raised or
// lowered in O(log n) instead of requiring a linear scan.
//
// Unlike internal/cache's MinHeap, priorityHeap carries no lock of
// its own: Scheduler serializes access to it behind its own queue
// mutex, matching the fixed lock-acquisition order described on the
// Scheduler type.
type priorityHeap struct {
	items  []*entry
	byUser map[int64]*entry
}

func newPriorityHeap() *priorityHeap {
	return &priorityHeap{
		items:  make([]*entry, 0),
		byUser: make(map[int64]*entry),
	}
}

func (h *priorityHeap) len() int {
	return len(h.items)
}

// get returns the current target for userID, if present.
func (h *priorityHeap) get(userID int64) (uint32, bool) {
	e, ok := h.byUser[userID]
	if !ok {
		return 0, false
	}
	return e.target, true
}

// upsert inserts userID with target if absent, or overwrites its
// existing target unconditionally.
func (h *priorityHeap) upsert(userID int64, target uint32) {
	if e, ok := h.byUser[userID]; ok {
		e.target = target
		h.fix(e.index)
		return
	}

	e := &entry{userID: userID, target: target, index: len(h.items)}
	h.items = append(h.items, e)
	h.byUser[userID] = e
	h.bubbleUp(e.index)
}

// promote lowers userID's target to target if and only if it doesn't
// already have a smaller (sooner) one, inserting it if absent. This
// is the "increase priority" operation the scheduler uses for
// additions and removals: it never makes an id less urgent.
func (h *priorityHeap) promote(userID int64, target uint32) {
	e, ok := h.byUser[userID]
	if !ok {
		h.upsert(userID, target)
		return
	}
	if target < e.target {
		e.target = target
		h.fix(e.index)
	}
}

// popBatch removes and returns up to count user ids in ascending
// target order, fewer if the heap is shorter.
func (h *priorityHeap) popBatch(count int) []int64 {
	var out []int64
	for len(out) < count && len(h.items) > 0 {
		out = append(out, h.popMin())
	}
	return out
}

func (h *priorityHeap) popMin() int64 {
	e := h.removeAt(0)
	return e.userID
}

func (h *priorityHeap) removeAt(i int) *entry {
	n := len(h.items) - 1
	e := h.items[i]
	delete(h.byUser, e.userID)

	if i == n {
		h.items = h.items[:n]
		return e
	}

	h.items[i] = h.items[n]
	h.items[i].index = i
	h.items = h.items[:n]
	h.fix(i)

	return e
}

func (h *priorityHeap) fix(i int) {
	if h.bubbleUp(i) {
		return
	}
	h.bubbleDown(i)
}

func (h *priorityHeap) bubbleUp(i int) bool {
	moved := false
	for i > 0 {
		parent := (i - 1) / 2
		if h.items[i].target >= h.items[parent].target {
			break
		}
		h.swap(i, parent)
		i = parent
		moved = true
	}
	return moved
}

func (h *priorityHeap) bubbleDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left, right := 2*i+1, 2*i+2

		if left < n && h.items[left].target < h.items[smallest].target {
			smallest = left
		}
		if right < n && h.items[right].target < h.items[smallest].target {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.swap(i, smallest)
		i = smallest
	}
}

func (h *priorityHeap) swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}
