// Package model holds the value-cell data model shared by every site:
// a Variable with its committed state and version history.
package model

// Variable is a single copy of x_j living on one site. Even j are
// replicated (one copy per site); odd j live on exactly one site.
type Variable struct {
	Name           string
	Value          int // possibly-uncommitted working value
	CommittedValue int
	CommittedTime  int
	Replicated     bool
	Readable       bool
	// VersionHistory maps commit tick -> committed value, consulted by
	// read-only snapshot reads. Seeded with (0, 10*j).
	VersionHistory map[int]int
}

// New creates the initial copy of variable x_j: committed_value = 10*j,
// committed_time = 0, readable = true, and a version history seeded at
// tick 0.
func New(name string, j int, replicated bool) *Variable {
	initial := 10 * j
	return &Variable{
		Name:           name,
		Value:          initial,
		CommittedValue: initial,
		CommittedTime:  0,
		Replicated:     replicated,
		Readable:       true,
		VersionHistory: map[int]int{0: initial},
	}
}

// VersionAt returns the committed value at the greatest commit tick that
// is <= at. ok is false only if no commit tick qualifies, which cannot
// happen given the tick-0 seed.
func (v *Variable) VersionAt(at int) (value int, ok bool) {
	bestTick := -1
	for tick, val := range v.VersionHistory {
		if tick <= at && tick > bestTick {
			bestTick = tick
			value = val
		}
	}
	return value, bestTick >= 0
}

// CommitWrite applies a write committed at tick now: the working value
// becomes the committed value, the copy becomes readable, and a new
// version-history entry is recorded.
func (v *Variable) CommitWrite(now int) {
	v.CommittedValue = v.Value
	v.CommittedTime = now
	v.Readable = true
	v.VersionHistory[now] = v.Value
}

// RollbackWrite discards an uncommitted write, restoring the working
// value to the last committed value.
func (v *Variable) RollbackWrite() {
	v.Value = v.CommittedValue
}

// MarkUnreadable clears readability on site failure for replicated
// copies. Non-replicated copies are never marked unreadable by a
// failure — a failed site with a non-replicated copy is simply
// unavailable entirely, which Site.status already expresses.
func (v *Variable) MarkUnreadable() {
	v.Readable = false
}
