package txn

import (
	"fmt"

	"distxn/dtxnerr"
	"distxn/dtxnlog"
	"distxn/sitemanager"
)

// Manager is the Transaction Manager (TM): the top-level dispatcher
// owning the transaction map, the deferred-instruction queue, the site
// manager, and the wait-for graph for the lifetime of the command
// stream.
//
// Manager is not guarded by a mutex and never blocks: the driver hands
// it one command per tick and every operation returns synchronously,
// deferring work it cannot complete instead of waiting on it.
type Manager struct {
	sm           *sitemanager.SiteManager
	log          *dtxnlog.Logger
	transactions map[string]*Transaction
	deferred     []*Instruction
	graph        *Graph
}

// New creates a Manager wired to the given site manager and logger.
func New(sm *sitemanager.SiteManager, logger *dtxnlog.Logger) *Manager {
	return &Manager{
		sm:           sm,
		log:          logger,
		transactions: make(map[string]*Transaction),
		graph:        NewGraph(),
	}
}

// Begin starts a read-write transaction.
func (tm *Manager) Begin(id string, now int) {
	tm.transactions[id] = newTransaction(id, now, false)
	tm.log.Info("tm", "begin", fmt.Sprintf("%s begins", id), map[string]any{"tx": id, "tick": now})
}

// BeginRO starts a read-only (snapshot) transaction.
func (tm *Manager) BeginRO(id string, now int) {
	tm.transactions[id] = newTransaction(id, now, true)
	tm.log.Info("tm", "begin_ro", fmt.Sprintf("%s begins read-only", id), map[string]any{"tx": id, "tick": now})
}

// Read services a read on behalf of transaction id, deferring it if it
// conflicts with an already-deferred write.
func (tm *Manager) Read(id, variable string, now int) error {
	tx, ok := tm.transactions[id]
	if !ok {
		err := dtxnerr.UnknownTransaction(id)
		tm.log.Warn("tm", "read", err.Message, map[string]any{"tx": id})
		return err
	}
	tm.doRead(tx, variable, now)
	tm.runDeadlockDetection(tx.ID, now)
	return nil
}

// Write services a write on behalf of transaction id, deferring it if
// the all-or-nothing lock acquisition fails.
func (tm *Manager) Write(id, variable string, value, now int) error {
	tx, ok := tm.transactions[id]
	if !ok {
		err := dtxnerr.UnknownTransaction(id)
		tm.log.Warn("tm", "write", err.Message, map[string]any{"tx": id})
		return err
	}
	tm.doWrite(tx, variable, value, now)
	tm.runDeadlockDetection(tx.ID, now)
	return nil
}

// End commits the transaction, or finalizes a pending abort, then
// reprocesses the deferred queue to a fixed point.
func (tm *Manager) End(id string, now int) {
	tx, ok := tm.transactions[id]
	if !ok {
		return
	}
	if tx.Status == Aborted {
		tm.finishAbort(tx, "earlier access to a failed site")
	} else {
		tm.finishCommit(tx, now)
	}
	tm.processRemaining()
}

// Fail marks siteName failed, and every live transaction that has
// touched it is pre-marked ABORTED — finalized at its own next End.
func (tm *Manager) Fail(siteName string) {
	tm.sm.Fail(siteName)
	for _, tx := range tm.transactions {
		if tx.SitesAccessed[siteName] {
			tx.Status = Aborted
		}
	}
	tm.log.Info("tm", "fail", fmt.Sprintf("site %s fails", siteName), map[string]any{"site": siteName})
}

// Recover marks siteName available again. Recovery does not itself
// reprocess the deferred queue.
func (tm *Manager) Recover(siteName string) {
	tm.sm.Recover(siteName)
	tm.log.Info("tm", "recover", fmt.Sprintf("site %s recovers", siteName), map[string]any{"site": siteName})
}

// Dump delegates to the site manager for a diagnostic snapshot.
func (tm *Manager) Dump() []sitemanager.SiteDump {
	return tm.sm.Dump()
}

// doRead is the shared body of Read and its retries from
// processRemaining.
func (tm *Manager) doRead(tx *Transaction, variable string, tick int) {
	instr := &Instruction{TxID: tx.ID, Kind: KindRead, Variable: variable, Time: tick}
	done := false

	var conflict *Instruction
	if !tx.ReadOnly {
		conflict = tm.findConflict(variable, tx.ID, tick, false)
	}

	if conflict == nil {
		result, ok := tm.sm.Read(tx.ID, variable, tx.ReadOnly, tx.StartTime)
		if ok {
			if tx.Status != Aborted {
				tx.Status = Running
			}
			if !tx.ReadOnly {
				tx.SitesAccessed[result.Site] = true
			}
			tm.log.Info("tm", "read", fmt.Sprintf("%s reads %s = %d from site %s", tx.ID, variable, result.Value, result.Site),
				map[string]any{"tx": tx.ID, "var": variable, "value": result.Value, "site": result.Site})
			done = true
		} else if !tx.ReadOnly {
			for _, holder := range tm.sm.LockingTransactions(variable) {
				if holder != tx.ID {
					tm.graph.AddEdge(tx.ID, holder)
				}
			}
		}
	} else {
		tm.graph.AddEdge(tx.ID, conflict.TxID)
	}

	if !done && tx.Status != Blocked && tx.Status != Aborted {
		tm.deferred = append(tm.deferred, instr)
		tx.Status = Blocked
		tm.log.Debug("tm", "read", fmt.Sprintf("%s blocked reading %s", tx.ID, variable),
			map[string]any{"tx": tx.ID, "var": variable})
	}
}

// doWrite is the shared body of Write and its retries from
// processRemaining.
func (tm *Manager) doWrite(tx *Transaction, variable string, value, tick int) {
	instr := &Instruction{TxID: tx.ID, Kind: KindWrite, Variable: variable, Value: value, Time: tick}
	done := false

	conflict := tm.findConflict(variable, tx.ID, tick, true)

	if conflict == nil || !tm.graph.HasOutgoing(conflict.TxID) {
		written := tm.sm.Write(tx.ID, variable, value)
		if len(written) > 0 {
			if tx.Status != Aborted {
				tx.Status = Running
			}
			for _, s := range written {
				tx.SitesAccessed[s] = true
			}
			tm.log.Info("tm", "write", fmt.Sprintf("%s writes %s = %d to sites %v", tx.ID, variable, value, written),
				map[string]any{"tx": tx.ID, "var": variable, "value": value, "sites": written})
			done = true
		} else {
			for _, holder := range tm.sm.LockingTransactions(variable) {
				if holder != tx.ID {
					tm.graph.AddEdge(tx.ID, holder)
				}
			}
		}
	} else {
		tm.graph.AddEdge(tx.ID, conflict.TxID)
	}

	if !done && tx.Status != Blocked && tx.Status != Aborted {
		tm.deferred = append(tm.deferred, instr)
		tx.Status = Blocked
		tm.log.Debug("tm", "write", fmt.Sprintf("%s blocked writing %s", tx.ID, variable),
			map[string]any{"tx": tx.ID, "var": variable})
	}
}

// findConflict scans the deferred queue from newest to oldest and
// returns the first instruction that conflicts with a pending operation
// on variable by a transaction other than txID, submitted before now.
// anyKind widens the match to READ-or-WRITE, as required for a new
// WRITE; a new READ only conflicts with a deferred WRITE.
func (tm *Manager) findConflict(variable, txID string, now int, anyKind bool) *Instruction {
	for i := len(tm.deferred) - 1; i >= 0; i-- {
		ins := tm.deferred[i]
		if ins.Variable != variable || ins.TxID == txID || ins.Time >= now {
			continue
		}
		if anyKind || ins.Kind == KindWrite {
			return ins
		}
	}
	return nil
}

// finishCommit commits tx's writes to every site it accessed and
// removes it from the live transaction set.
func (tm *Manager) finishCommit(tx *Transaction, now int) {
	tm.sm.Commit(tx.ID, tx.SitesAccessed, now)
	tx.Status = Committed
	delete(tm.transactions, tx.ID)
	tm.graph.RemoveNode(tx.ID)
	tm.log.Info("tm", "commit", fmt.Sprintf("%s committed", tx.ID), map[string]any{"tx": tx.ID})
}

// finishAbort rolls back tx's writes on every site it accessed and
// removes it from the live transaction set.
func (tm *Manager) finishAbort(tx *Transaction, reason string) {
	tm.sm.Abort(tx.ID, tx.SitesAccessed)
	tx.Status = Aborted
	delete(tm.transactions, tx.ID)
	tm.graph.RemoveNode(tx.ID)
	tm.log.Info("tm", "abort", fmt.Sprintf("%s aborted: %s", tx.ID, reason), map[string]any{"tx": tx.ID, "reason": reason})
}

// runDeadlockDetection runs a DFS from the transaction that just
// (re)blocked, aborting the youngest transaction in the recursion stack
// at the moment a cycle is found.
func (tm *Manager) runDeadlockDetection(seedID string, now int) {
	cycle, found := tm.graph.DetectCycle(seedID)
	if !found {
		return
	}
	victimID := tm.chooseVictim(cycle)
	victim, ok := tm.transactions[victimID]
	if !ok {
		return
	}
	derr := dtxnerr.DeadlockVictim(victimID, cycle)
	tm.log.Warn("tm", "deadlock", derr.Message, map[string]any{"cycle": cycle, "victim": victimID})
	tm.finishAbort(victim, fmt.Sprintf("deadlock cycle %v", cycle))
	tm.processRemaining()
}

// chooseVictim picks the transaction with the greatest start_time
// (youngest) in cycle, breaking ties by later discovery order — i.e.
// later in the slice, since DetectCycle returns the recursion stack in
// discovery order.
func (tm *Manager) chooseVictim(cycle []string) string {
	victim := cycle[0]
	victimStart := tm.transactions[victim].StartTime
	for _, id := range cycle[1:] {
		tx, ok := tm.transactions[id]
		if !ok {
			continue
		}
		if tx.StartTime >= victimStart {
			victim = id
			victimStart = tx.StartTime
		}
	}
	return victim
}

// processRemaining walks the deferred queue in FIFO order, re-invoking
// read/write at the instruction's original tick. Instructions that
// remain BLOCKED are the only ones requeued; everything else (executed,
// owner aborted, owner gone) is dropped.
func (tm *Manager) processRemaining() {
	queue := tm.deferred
	tm.deferred = nil

	for _, ins := range queue {
		tx, ok := tm.transactions[ins.TxID]
		if !ok {
			continue
		}
		if tx.Status == Aborted {
			continue
		}
		tx.Status = Ready
		switch ins.Kind {
		case KindRead:
			tm.doRead(tx, ins.Variable, ins.Time)
		case KindWrite:
			tm.doWrite(tx, ins.Variable, ins.Value, ins.Time)
		}
		tm.runDeadlockDetection(tx.ID, ins.Time)
	}
}
