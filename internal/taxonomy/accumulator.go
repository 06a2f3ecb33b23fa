package taxonomy

import "sync"

// accumulatorKey keys the flat accumulator map by (parent, attribute key),
// per the Design Note in spec §9 ("key it by (parent_id, attribute_key) with
// a single flat mapping to avoid nested mutation").
type accumulatorKey struct {
	parentID string
	key      string
}

// bucket is one descendant accumulator entry (spec §3): running max/min plus
// the list of incoming traverse values, created lazily on first contribution.
type bucket struct {
	Values []Value
	Max    Value
	Min    Value
}

// Accumulator is the per-parent scratch store (spec component D) that
// descendant traverse values flow into during a single upward pass. It is
// ephemeral: it exists only for the lifetime of one Upward traversal and is
// the only state that crosses depth levels (spec §4.D).
//
// Safe for concurrent Contribute calls against different or the same key:
// contributions to a given (parentID, key) are serialised, matching spec
// §5's requirement that "contributions to P[parent][key] must be serialised
// per parent" when a level is processed with pipeline concurrency.
type Accumulator struct {
	mu       sync.Mutex
	buckets  map[accumulatorKey]*bucket
	populated map[string]int // parentID -> live bucket count, avoids an O(n) scan in Has
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		buckets:   make(map[accumulatorKey]*bucket),
		populated: make(map[string]int),
	}
}

// Contribute appends traverseValue (spliced if it is a list) to the bucket
// for (parentID, key), creating it if absent, and folds max/min into the
// running carriers when provided.
func (a *Accumulator) Contribute(parentID, key string, traverseValue Value, carry Carry) {
	a.mu.Lock()
	defer a.mu.Unlock()

	k := accumulatorKey{parentID: parentID, key: key}

	b, ok := a.buckets[k]
	if !ok {
		b = &bucket{}
		a.buckets[k] = b
		a.populated[parentID]++
	}

	if lv, ok := traverseValue.(ListValue); ok {
		b.Values = append(b.Values, []Value(lv)...)
	} else {
		b.Values = append(b.Values, traverseValue)
	}

	if carry.Max != nil {
		if b.Max == nil || numeric(carry.Max) > numeric(b.Max) {
			b.Max = carry.Max
		}
	}

	if carry.Min != nil {
		if b.Min == nil || numeric(carry.Min) < numeric(b.Min) {
			b.Min = carry.Min
		}
	}
}

// Has reports whether any bucket exists for taxonID, i.e. whether children
// have already contributed to it (spec §4.F: "If P[n.taxon_id] is
// populated").
func (a *Accumulator) Has(taxonID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.populated[taxonID] > 0
}

// Drain atomically returns and deletes every bucket for parentID, keyed by
// attribute key.
func (a *Accumulator) Drain(parentID string) map[string]*bucket {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string]*bucket)

	for k, b := range a.buckets {
		if k.parentID == parentID {
			out[k.key] = b
			delete(a.buckets, k)
		}
	}

	delete(a.populated, parentID)

	return out
}

// Bucket exposes the accumulated values/carriers for (parentID, key) without
// draining, used by tests asserting intermediate accumulator state.
func (a *Accumulator) Bucket(parentID, key string) (Values []Value, Max, Min Value, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	b, found := a.buckets[accumulatorKey{parentID: parentID, key: key}]
	if !found {
		return nil, nil, nil, false
	}

	return b.Values, b.Max, b.Min, true
}

// Override builds the SummariseOverride a drained bucket feeds into
// Summarise (spec §4.F: "run 4.C with the bucket as the override").
func (b *bucket) Override() *SummariseOverride {
	return &SummariseOverride{
		Values: b.Values,
		Carry:  Carry{Max: b.Max, Min: b.Min},
	}
}
