// Package sitemanager fans reads and writes out to sites under the
// available-copies rule, resolves multiversion reads for read-only
// transactions, and aggregates per-site commit/abort, fail/recover, and
// dump.
package sitemanager

import (
	"strconv"

	"distxn/model"
	"distxn/site"
)

const (
	numSites     = 10
	numVariables = 20
)

// SiteManager deterministically iterates over its sites in name order
// "1".."10" for every operation that scans the topology.
type SiteManager struct {
	sites    map[string]*site.Site
	ordering []string // "1".."10"
}

// New builds the fixed topology: ten sites named "1" through "10";
// even-indexed variables replicated on every site, odd-indexed
// variables on site 1+(j mod 10).
func New() *SiteManager {
	sm := &SiteManager{sites: make(map[string]*site.Site)}
	for i := 1; i <= numSites; i++ {
		name := strconv.Itoa(i)
		sm.sites[name] = site.New(name)
		sm.ordering = append(sm.ordering, name)
	}

	for j := 1; j <= numVariables; j++ {
		name := "x" + strconv.Itoa(j)
		if j%2 == 0 {
			for _, s := range sm.ordering {
				sm.sites[s].AddVariable(model.New(name, j, true))
			}
			continue
		}
		owner := strconv.Itoa(1 + j%10)
		sm.sites[owner].AddVariable(model.New(name, j, false))
	}
	return sm
}

// orderedSites returns the sites in deterministic name order.
func (sm *SiteManager) orderedSites() []*site.Site {
	out := make([]*site.Site, len(sm.ordering))
	for i, name := range sm.ordering {
		out[i] = sm.sites[name]
	}
	return out
}

// ReadResult is the outcome of a successful non-RO read: the value
// returned and the site it was served from.
type ReadResult struct {
	Value int
	Site  string
}

// Read serves a variable read. For a read-only transaction it never
// acquires locks: it finds the first site (by name
// order) whose copy is readable and returns the version committed at
// the greatest tick <= startTime. For a read-write transaction it finds
// the first site that can grant a READ lock, acquires it, and returns
// the value and site name. ok is false if no site qualifies.
func (sm *SiteManager) Read(holder, variable string, readOnly bool, startTime int) (result ReadResult, ok bool) {
	for _, s := range sm.orderedSites() {
		if readOnly {
			if !s.CanReadRO(variable) {
				continue
			}
			v := s.Variables[variable]
			value, found := v.VersionAt(startTime)
			if !found {
				continue
			}
			return ReadResult{Value: value, Site: s.Name}, true
		}

		if !s.CanRead(holder, variable) {
			continue
		}
		s.AcquireReadLock(holder, variable)
		return ReadResult{Value: s.Variables[variable].Value, Site: s.Name}, true
	}
	return ReadResult{}, false
}

// Write performs an all-or-nothing check
// across every site eligible to hold variable. If every eligible site
// can grant holder a WRITE lock, the lock is acquired everywhere, the
// working value is updated everywhere, and the set of written site names
// is returned. Otherwise nothing is acquired and the returned slice is
// empty — the caller (the transaction manager) must defer the write.
func (sm *SiteManager) Write(holder, variable string, value int) []string {
	var eligible []*site.Site
	for _, s := range sm.orderedSites() {
		if s.CanWrite(variable) {
			eligible = append(eligible, s)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	for _, s := range eligible {
		if !s.CanAcquireWriteLock(holder, variable) {
			return nil
		}
	}

	written := make([]string, 0, len(eligible))
	for _, s := range eligible {
		s.AcquireWriteLock(holder, variable)
		s.Variables[variable].Value = value
		written = append(written, s.Name)
	}
	return written
}

// Commit fans commit(holder, now) out over the given accessed sites,
// skipping any that are currently failed.
func (sm *SiteManager) Commit(holder string, accessed map[string]bool, now int) {
	for name := range accessed {
		if s, ok := sm.sites[name]; ok {
			s.Commit(holder, now)
		}
	}
}

// Abort fans abort(holder) out over the given accessed sites,
// regardless of their status.
func (sm *SiteManager) Abort(holder string, accessed map[string]bool) {
	for name := range accessed {
		if s, ok := sm.sites[name]; ok {
			s.Abort(holder)
		}
	}
}

// Fail marks site s as failed.
func (sm *SiteManager) Fail(s string) {
	if site, ok := sm.sites[s]; ok {
		site.Fail()
	}
}

// Recover marks site s as recovered.
func (sm *SiteManager) Recover(s string) {
	if site, ok := sm.sites[s]; ok {
		site.Recover()
	}
}

// IsFailed reports whether site s is currently failed.
func (sm *SiteManager) IsFailed(s string) bool {
	st, ok := sm.sites[s]
	return ok && st.Status == site.Failed
}

// LockingTransactions returns the union, across all sites, of holders of
// any lock on variable.
func (sm *SiteManager) LockingTransactions(variable string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range sm.orderedSites() {
		for _, holder := range s.LockingTransactions(variable) {
			if !seen[holder] {
				seen[holder] = true
				out = append(out, holder)
			}
		}
	}
	return out
}

// SiteDump is one site's committed state, used by Dump and by the
// diagnostic snapshot exporter.
type SiteDump struct {
	Site      string
	Variables []site.VariableDump
}

// Dump returns every site's committed state in name order, including
// replicated copies on failed sites.
func (sm *SiteManager) Dump() []SiteDump {
	out := make([]SiteDump, 0, len(sm.ordering))
	for _, s := range sm.orderedSites() {
		out = append(out, SiteDump{Site: s.Name, Variables: s.Dump()})
	}
	return out
}

// SiteNames returns the ten site names in order, for callers (like the
// TM) that need to enumerate the topology without reaching into sites.
func (sm *SiteManager) SiteNames() []string {
	out := make([]string, len(sm.ordering))
	copy(out, sm.ordering)
	return out
}
