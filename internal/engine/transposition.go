package engine

import (
	"math/bits"
	"sync/atomic"

	"github.com/hailam/heimdall/internal/board"
)

// TTFlag indicates the type of bound stored in the transposition table.
type TTFlag uint8

const (
	TTExact      TTFlag = iota // Exact score
	TTLowerBound               // Failed high (beta cutoff)
	TTUpperBound               // Failed low
)

// TTEntry is the decoded, caller-facing view of one transposition table
// slot.
type TTEntry struct {
	BestMove   board.Move // Best move found
	Score      int16      // Score (bounded by Flag)
	StaticEval int16      // Static eval at store time (stored with the entry; the search does not read it back)
	Depth      int8       // Search depth
	Flag       TTFlag     // Type of bound
	Age        uint8      // Generation for replacement, 0-31 (5 bits: only 59-63 remain in the packed word)
	PV         bool       // Stored from a node that raised alpha without failing high
}

// ttSlot is the lock-free storage for one entry. Every Lazy-SMP worker
// probes and stores through the same slots with no mutex. keyWord holds
// hash^data rather than hash alone (Stockfish's lockless-hashing trick):
// a probe recomputes hash^data from whatever it loaded and compares it to
// keyWord, so a torn read - the two words updated concurrently by another
// worker's Store landing between the two Loads - fails the comparison
// instead of returning a data word that belongs to a different key.
type ttSlot struct {
	keyWord  atomic.Uint64
	dataWord atomic.Uint64
}

func packData(e TTEntry) uint64 {
	var d uint64
	d |= uint64(uint16(e.BestMove))
	d |= uint64(uint16(e.Score)) << 16
	d |= uint64(uint16(e.StaticEval)) << 32
	d |= uint64(uint8(e.Depth)) << 48
	d |= uint64(e.Flag&3) << 56
	if e.PV {
		d |= 1 << 58
	}
	d |= uint64(e.Age&0x1F) << 59
	return d
}

func unpackData(d uint64) TTEntry {
	return TTEntry{
		BestMove:   board.Move(uint16(d)),
		Score:      int16(uint16(d >> 16)),
		StaticEval: int16(uint16(d >> 32)),
		Depth:      int8(uint8(d >> 48)),
		Flag:       TTFlag((d >> 56) & 3),
		PV:         (d>>58)&1 != 0,
		Age:        uint8((d >> 59) & 0x1F),
	}
}

// TranspositionTable is a fixed-size, lock-free hash table for search
// results, shared by every Lazy-SMP worker.
type TranspositionTable struct {
	slots []ttSlot
	size  uint64
	age   atomic.Uint32

	hits   atomic.Uint64
	probes atomic.Uint64
}

// NewTranspositionTable creates a transposition table sized to sizeMB
// megabytes. Indexing multiplies the 64-bit hash by the entry count and
// takes the high word (Lemire's fast-range reduction) instead of masking
// against a power-of-2 table size, so a requested size need not be
// rounded down - every megabyte the caller asks for is usable.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	const slotBytes = 16 // two uint64 words
	numEntries := (uint64(sizeMB) * 1024 * 1024) / slotBytes
	if numEntries < 1 {
		numEntries = 1
	}

	return &TranspositionTable{
		slots: make([]ttSlot, numEntries),
		size:  numEntries,
	}
}

func (tt *TranspositionTable) index(hash uint64) uint64 {
	hi, _ := bits.Mul64(hash, tt.size)
	return hi
}

// Probe looks up a position. A miss covers both a genuine empty/different
// slot and a torn concurrent read; the caller cannot tell them apart and
// doesn't need to - both mean "search this position from scratch".
func (tt *TranspositionTable) Probe(hash uint64) (TTEntry, bool) {
	tt.probes.Add(1)

	slot := &tt.slots[tt.index(hash)]
	data := slot.dataWord.Load()
	key := slot.keyWord.Load()

	if key != hash^data {
		return TTEntry{}, false
	}
	entry := unpackData(data)
	if entry.Depth <= 0 && entry.Flag == TTExact && entry.BestMove == board.NoMove && entry.Score == 0 {
		return TTEntry{}, false
	}
	tt.hits.Add(1)
	return entry, true
}

// Store saves a position's search result. Replacement favors the deepest
// entry within a search generation, and always yields to a fresh
// generation regardless of depth - mirrors the teacher's single-threaded
// policy, just re-expressed over the lock-free slot layout.
func (tt *TranspositionTable) Store(hash uint64, depth int, score int, staticEval int, flag TTFlag, bestMove board.Move, pv bool) {
	slot := &tt.slots[tt.index(hash)]

	age := uint8(tt.age.Load() & 0x1F)
	existing := unpackData(slot.dataWord.Load())

	if existing.Age == age && existing.Depth > int8(depth) && !pv {
		return
	}

	data := packData(TTEntry{
		BestMove:   bestMove,
		Score:      int16(score),
		StaticEval: int16(staticEval),
		Depth:      int8(depth),
		Flag:       flag,
		Age:        age,
		PV:         pv,
	})
	slot.dataWord.Store(data)
	slot.keyWord.Store(hash ^ data)
}

// NewSearch increments the age counter for a new search, so Store's
// replacement policy treats every existing entry as stale.
func (tt *TranspositionTable) NewSearch() {
	tt.age.Add(1)
}

// Clear wipes every slot and resets statistics.
func (tt *TranspositionTable) Clear() {
	for i := range tt.slots {
		tt.slots[i].keyWord.Store(0)
		tt.slots[i].dataWord.Store(0)
	}
	tt.age.Store(0)
	tt.hits.Store(0)
	tt.probes.Store(0)
}

// HashFull returns the permille (parts per thousand) of the table that is
// used by the current search generation, sampled from the first 1000
// slots.
func (tt *TranspositionTable) HashFull() int {
	used := 0
	sampleSize := 1000
	if uint64(sampleSize) > tt.size {
		sampleSize = int(tt.size)
	}

	age := uint8(tt.age.Load() & 0x1F)
	for i := 0; i < sampleSize; i++ {
		entry := unpackData(tt.slots[i].dataWord.Load())
		if entry.Depth > 0 && entry.Age == age {
			used++
		}
	}

	return (used * 1000) / sampleSize
}

// HitRate returns the cache hit rate as a percentage.
func (tt *TranspositionTable) HitRate() float64 {
	probes := tt.probes.Load()
	if probes == 0 {
		return 0
	}
	return float64(tt.hits.Load()) / float64(probes) * 100
}

// Size returns the number of entries in the table.
func (tt *TranspositionTable) Size() uint64 {
	return tt.size
}

// AdjustScoreFromTT adjusts a mate score read from the table back to the
// searching node's ply, since stored mate scores are relative to the
// position they were stored from.
func AdjustScoreFromTT(score int, ply int) int {
	if score > MateScore-MaxPly {
		return score - ply
	}
	if score < -MateScore+MaxPly {
		return score + ply
	}
	return score
}

// AdjustScoreToTT adjusts a mate score for storage, making it relative to
// the current node (distance to mate from this position) rather than to
// the root.
func AdjustScoreToTT(score int, ply int) int {
	if score > MateScore-MaxPly {
		return score + ply
	}
	if score < -MateScore+MaxPly {
		return score - ply
	}
	return score
}
