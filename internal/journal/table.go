package journal

// FragmentTable is the append-only map of fragment identity to location,
// rebuilt by replaying every committed "h" segment in archive order.
type FragmentTable struct {
	refs map[FragmentID]FragmentRef
}

// NewFragmentTable returns an empty table.
func NewFragmentTable() *FragmentTable {
	return &FragmentTable{refs: make(map[FragmentID]FragmentRef)}
}

// Lookup reports whether id is already known, and where.
func (t *FragmentTable) Lookup(id FragmentID) (FragmentRef, bool) {
	ref, ok := t.refs[id]
	return ref, ok
}

// Record extends the table with a newly written fragment. Re-recording an
// existing id is a no-op: the first writer of a fragment owns its
// location.
func (t *FragmentTable) Record(id FragmentID, ref FragmentRef) {
	if _, exists := t.refs[id]; exists {
		return
	}
	t.refs[id] = ref
}

// Len reports the number of distinct fragments known to the table.
func (t *FragmentTable) Len() int { return len(t.refs) }

// Live returns the set of fragment ids currently referenced by at least
// one non-tombstoned path in paths.
func Live(paths map[string]PathRecord) map[FragmentID]struct{} {
	live := make(map[FragmentID]struct{})
	for _, p := range paths {
		if p.Tombstone {
			continue
		}
		for _, f := range p.Fragments {
			live[f] = struct{}{}
		}
	}
	return live
}
