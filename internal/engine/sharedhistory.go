package engine

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// historyCell holds one from/to cell's shared counter, padded to its own
// cache line so concurrent updates from different Lazy-SMP workers to
// neighboring cells don't false-share (spec §5's alignment requirement).
type historyCell struct {
	value int32
	_     cpu.CacheLinePad
}

// SharedHistory is a lock-free, cross-worker quiet-move history table.
// Each Lazy-SMP worker keeps its own per-thread history in
// MoveOrderer.history; this table additionally accumulates a collective
// signal across all workers, so a move a helper thread finds good
// influences move ordering in every other thread on its next probe.
// Updates are plain atomic adds: a lost update under a race is acceptable,
// the same tolerance the TT applies to torn reads (spec §5).
type SharedHistory struct {
	table [64][64]historyCell
}

// NewSharedHistory creates an empty shared history table.
func NewSharedHistory() *SharedHistory {
	return &SharedHistory{}
}

// Get returns the current shared history score for the from/to square pair.
func (h *SharedHistory) Get(from, to int) int {
	return int(atomic.LoadInt32(&h.table[from][to].value))
}

// Update adds bonus to the from/to cell, clamped to +/-400000.
func (h *SharedHistory) Update(from, to, bonus int) {
	cell := &h.table[from][to].value
	v := atomic.AddInt32(cell, int32(bonus))
	if v > 400000 {
		atomic.StoreInt32(cell, 400000)
	} else if v < -400000 {
		atomic.StoreInt32(cell, -400000)
	}
}

// Clear resets every cell to zero, for a new game.
func (h *SharedHistory) Clear() {
	for i := range h.table {
		for j := range h.table[i] {
			atomic.StoreInt32(&h.table[i][j].value, 0)
		}
	}
}
