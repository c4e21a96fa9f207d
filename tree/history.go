package tree

// Snapshot is a stored (version, value) pair.
type Snapshot struct {
	Version int64 `json:"version"`
	Value   any   `json:"value"`
}

// History is a per-node append-only log of snapshots, ordered by version.
// Truncation past a rollback target is the only removal.
type History struct {
	entries []Snapshot
}

// Len returns the number of stored snapshots.
func (h *History) Len() int {
	return len(h.entries)
}

// Snapshot appends (version, value). The value is deep-copied so later edits to
// the live value cannot reach the log.
func (h *History) Snapshot(version int64, value any) {
	h.entries = append(h.entries, Snapshot{Version: version, Value: deepCopy(value)})
}

// Has reports whether the log already holds value at version.
func (h *History) Has(version int64, value any) bool {
	for i := len(h.entries) - 1; i >= 0; i-- {
		e := h.entries[i]
		if e.Version == version {
			return equal(e.Value, value)
		}
		if e.Version < version {
			return false
		}
	}
	return false
}

// Lookup returns the most recent snapshot whose version is <= version.
func (h *History) Lookup(version int64) (Snapshot, bool) {
	for i := len(h.entries) - 1; i >= 0; i-- {
		if h.entries[i].Version <= version {
			return h.entries[i], true
		}
	}
	return Snapshot{}, false
}

// TruncateAfter drops every snapshot whose version is > version.
func (h *History) TruncateAfter(version int64) {
	i := len(h.entries)
	for i > 0 && h.entries[i-1].Version > version {
		i--
	}
	for j := i; j < len(h.entries); j++ {
		h.entries[j] = Snapshot{}
	}
	h.entries = h.entries[:i]
}

// Entries returns a copy of the log.
func (h *History) Entries() []Snapshot {
	out := make([]Snapshot, len(h.entries))
	for i, e := range h.entries {
		out[i] = Snapshot{Version: e.Version, Value: deepCopy(e.Value)}
	}
	return out
}
