// Package site implements a single storage site: the subset of
// variables it owns, its lock table, and its AVAILABLE/FAILED status.
// All operations are synchronous and single-threaded — the engine
// processes one command at a time.
package site

import (
	"sort"

	"distxn/lock"
	"distxn/model"
)

// Status is a site's availability state.
type Status int

const (
	Available Status = iota
	Failed
)

func (s Status) String() string {
	if s == Failed {
		return "FAILED"
	}
	return "AVAILABLE"
}

// Site owns a subset of variables and a lock table.
type Site struct {
	Name      string
	Status    Status
	Variables map[string]*model.Variable
	Locks     *lock.Table
}

// New creates a site in AVAILABLE status with no variables yet; variables
// are attached by the topology builder in sitemanager.
func New(name string) *Site {
	return &Site{
		Name:      name,
		Status:    Available,
		Variables: make(map[string]*model.Variable),
		Locks:     lock.NewTable(),
	}
}

// AddVariable attaches a copy of a variable to this site.
func (s *Site) AddVariable(v *model.Variable) {
	s.Variables[v.Name] = v
}

// CanAcquireReadLock reports whether holder may take a READ lock on
// variable at this site.
func (s *Site) CanAcquireReadLock(holder, variable string) bool {
	return s.Locks.CanAcquireRead(holder, variable)
}

// AcquireReadLock grants holder a READ lock on variable.
func (s *Site) AcquireReadLock(holder, variable string) {
	s.Locks.AcquireRead(holder, variable)
}

// CanAcquireWriteLock reports whether holder may take a WRITE lock on
// variable at this site.
func (s *Site) CanAcquireWriteLock(holder, variable string) bool {
	return s.Locks.CanAcquireWrite(holder, variable)
}

// AcquireWriteLock grants (or promotes to) a WRITE lock for holder on
// variable.
func (s *Site) AcquireWriteLock(holder, variable string) {
	s.Locks.AcquireWrite(holder, variable)
}

// CanRead reports whether a non-RO read of variable by holder can be
// served here: the site is up, the copy exists, it is readable, and the
// lock table would grant a READ lock.
func (s *Site) CanRead(holder, variable string) bool {
	v, ok := s.Variables[variable]
	if !ok || s.Status != Available || !v.Readable {
		return false
	}
	return s.CanAcquireReadLock(holder, variable)
}

// CanReadRO reports whether a read-only transaction may read this copy's
// version history: the site is up, the copy exists, and it is readable.
// RO reads never take locks.
func (s *Site) CanReadRO(variable string) bool {
	v, ok := s.Variables[variable]
	return ok && s.Status == Available && v.Readable
}

// CanWrite reports whether this site could hold a write to variable: up
// and the copy exists here. Lock conflicts are checked separately by the
// site manager across the whole eligible set.
func (s *Site) CanWrite(variable string) bool {
	_, ok := s.Variables[variable]
	return ok && s.Status == Available
}

// Fail transitions the site to FAILED: clears the entire lock table and
// marks every replicated variable unreadable. Committed values and
// version history are untouched.
func (s *Site) Fail() {
	s.Status = Failed
	s.Locks.Clear()
	for _, v := range s.Variables {
		if v.Replicated {
			v.MarkUnreadable()
		}
	}
}

// Recover transitions the site back to AVAILABLE. Locks remain cleared
// from the failure and replicated variables stay unreadable until a
// subsequent commit restores them.
func (s *Site) Recover() {
	s.Status = Available
}

// Commit flushes holder's WRITE locks to committed state at tick now and
// releases all of holder's locks. A no-op if the site is not AVAILABLE:
// a failed site cannot durably commit anything to it.
func (s *Site) Commit(holder string, now int) {
	if s.Status != Available {
		return
	}
	for _, l := range s.Locks.HeldBy(holder) {
		if l.Type != lock.Write {
			continue
		}
		if v, ok := s.Variables[l.Variable]; ok {
			v.CommitWrite(now)
		}
	}
	s.Locks.ReleaseAll(holder)
}

// Abort rolls back any uncommitted writes holder made here and releases
// all of holder's locks, regardless of site status.
func (s *Site) Abort(holder string) {
	for _, l := range s.Locks.HeldBy(holder) {
		if v, ok := s.Variables[l.Variable]; ok {
			v.RollbackWrite()
		}
	}
	s.Locks.ReleaseAll(holder)
}

// LockingTransactions returns the holders of any lock on variable.
func (s *Site) LockingTransactions(variable string) []string {
	return s.Locks.HoldersOf(variable)
}

// VariableDump is one committed (name, value) pair for the diagnostic
// dump operation.
type VariableDump struct {
	Name  string
	Value int
}

// Dump returns every variable present on this site, in variable-index
// order, with its committed value — including variables on a failed
// site, which still report their last committed value.
func (s *Site) Dump() []VariableDump {
	names := make([]string, 0, len(s.Variables))
	for name := range s.Variables {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return variableIndex(names[i]) < variableIndex(names[j])
	})

	out := make([]VariableDump, 0, len(names))
	for _, name := range names {
		out = append(out, VariableDump{Name: name, Value: s.Variables[name].CommittedValue})
	}
	return out
}

// variableIndex extracts the numeric suffix of a "x<N>" variable name for
// sorting dump output in variable-index order.
func variableIndex(name string) int {
	n := 0
	for _, r := range name {
		if r < '0' || r > '9' {
			continue
		}
		n = n*10 + int(r-'0')
	}
	return n
}
