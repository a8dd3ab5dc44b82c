// Package queue provides the bounded top-k collector used by index scans.
package queue

import "sort"

// Candidate is one (distance, index) pair produced during a scan.
type Candidate struct {
	ID       uint32  // Position of the vector in the store
	Distance float32 // Squared L2 distance to the query
}

// TopK keeps the k best candidates seen so far, ordered so that the worst
// kept candidate sits at the heap root and can be evicted in O(log k).
//
// Ordering is lexicographic on (distance, id): when two candidates are at
// equal distance and capacity forces a choice, the smaller id is kept. This
// makes the final result reproducible regardless of scan order.
//
// TopK is value-based (no pointer indirection) and not safe for concurrent
// use; scans use one collector per worker and merge afterwards.
type TopK struct {
	capacity int
	items    []Candidate
}

// New creates a collector holding at most capacity candidates.
// Capacity must be positive; the caller clamps k to the store size first.
func New(capacity int) *TopK {
	return &TopK{
		capacity: capacity,
		items:    make([]Candidate, 0, capacity),
	}
}

// Cap returns the collector capacity.
func (t *TopK) Cap() int { return t.capacity }

// Len returns the number of candidates currently held.
func (t *TopK) Len() int { return len(t.items) }

// Worst returns the candidate that would be evicted next.
func (t *TopK) Worst() (Candidate, bool) {
	if len(t.items) == 0 {
		return Candidate{}, false
	}
	return t.items[0], true
}

// Offer considers a candidate. Below capacity it is always kept; at capacity
// it replaces the current worst only if it orders strictly before it under
// (distance, id).
func (t *TopK) Offer(dist float32, id uint32) {
	c := Candidate{ID: id, Distance: dist}

	if len(t.items) < t.capacity {
		t.items = append(t.items, c)
		t.siftUp(len(t.items) - 1)
		return
	}

	if t.capacity == 0 || !worse(t.items[0], c) {
		return
	}
	t.items[0] = c
	t.siftDown(0)
}

// Merge offers every candidate held by other into t. Merging per-block
// collectors this way is associative and commutative, so parallel scans
// produce the same result as a single sequential scan.
func (t *TopK) Merge(other *TopK) {
	for _, c := range other.items {
		t.Offer(c.Distance, c.ID)
	}
}

// Drain returns the held candidates sorted ascending by (distance, id) and
// resets the collector. A collector is single use per query.
func (t *TopK) Drain() []Candidate {
	out := t.items
	t.items = nil

	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// worse reports whether a orders strictly after b under (distance, id),
// i.e. a is a worse search result than b.
func worse(a, b Candidate) bool {
	if a.Distance != b.Distance {
		return a.Distance > b.Distance
	}
	return a.ID > b.ID
}

func (t *TopK) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !worse(t.items[i], t.items[p]) {
			return
		}
		t.items[i], t.items[p] = t.items[p], t.items[i]
		i = p
	}
}

func (t *TopK) siftDown(i int) {
	n := len(t.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		worst := l
		if r := l + 1; r < n && worse(t.items[r], t.items[l]) {
			worst = r
		}
		if !worse(t.items[worst], t.items[i]) {
			return
		}
		t.items[i], t.items[worst] = t.items[worst], t.items[i]
		i = worst
	}
}
