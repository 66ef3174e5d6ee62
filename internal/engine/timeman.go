package engine

import (
	"time"

	"github.com/hailam/heimdall/internal/board"
)

// UCILimits contains UCI time control parameters.
type UCILimits struct {
	Time         [2]time.Duration // wtime, btime (remaining time for each color)
	Inc          [2]time.Duration // winc, binc (increment per move)
	MovesToGo    int              // moves until next time control (0 = sudden death)
	MoveTime     time.Duration    // fixed time per move (overrides other time controls)
	Depth        int              // maximum search depth
	Nodes        uint64           // maximum nodes to search
	Infinite     bool             // search until stopped
	Ponder       bool             // ponder mode
	MoveOverhead time.Duration    // network/GUI overhead to reserve, from the MoveOverhead option
}

// TimeManager handles time allocation for searches.
//
// Allocation follows hard = remaining/movestogo (10 when movestogo is not
// given) + inc*2/3 - overhead, capped at 95% of the remaining time, and
// soft = hard/3, cut by a further 15% during the first 8 plies.
// Pondering suspends enforcement: ShouldStop always reports false while
// pondering, and PonderHit rebases the deadlines to "now + original budget"
// so the elapsed ponder time isn't charged against the move.
type TimeManager struct {
	softTime    time.Duration // Target time for this move
	hardTime    time.Duration // Maximum time allowed
	startTime   time.Time     // When search started
	pondering   bool          // true between Ponder() and PonderHit()
	origSoft    time.Duration // budget stashed across a ponder, for rebasing
	origHard    time.Duration
	fixedPerMove bool // movetime mode: hard == soft, never adjusted
}

// NewTimeManager creates a new time manager.
func NewTimeManager() *TimeManager {
	return &TimeManager{}
}

// Init initializes the time manager for a new search.
// ply is the current game ply (half-move number).
func (tm *TimeManager) Init(limits UCILimits, us board.Color, ply int) {
	tm.startTime = time.Now()
	tm.pondering = limits.Ponder

	// Fixed move time mode
	if limits.MoveTime > 0 {
		tm.softTime = limits.MoveTime
		tm.hardTime = limits.MoveTime
		tm.fixedPerMove = true
		tm.origSoft, tm.origHard = tm.softTime, tm.hardTime
		return
	}
	tm.fixedPerMove = false

	// Infinite or depth-limited mode
	if limits.Infinite || (limits.Time[us] == 0 && limits.MoveTime == 0) {
		tm.softTime = time.Hour
		tm.hardTime = time.Hour
		tm.origSoft, tm.origHard = tm.softTime, tm.hardTime
		return
	}

	timeLeft := limits.Time[us]
	inc := limits.Inc[us]
	overhead := limits.MoveOverhead

	mtg := limits.MovesToGo
	if mtg == 0 {
		mtg = 10
	}

	hard := timeLeft/time.Duration(mtg) + inc*2/3 - overhead
	if hard < 10*time.Millisecond {
		hard = 10 * time.Millisecond
	}

	// Never risk flagging: cap hard at what's actually left.
	safetyMargin := timeLeft * 95 / 100
	if hard > safetyMargin {
		hard = safetyMargin
	}
	if hard < 10*time.Millisecond {
		hard = 10 * time.Millisecond
	}

	soft := hard / 3
	if soft < 5*time.Millisecond {
		soft = 5 * time.Millisecond
	}

	// Slight reduction for very early moves (give some buffer for book exit).
	if ply < 8 {
		soft = soft * 85 / 100
	}

	tm.softTime = soft
	tm.hardTime = hard

	if tm.pondering {
		tm.origSoft = soft
		tm.origHard = hard
	}
}

// Ponder suspends time enforcement: ShouldStop and PastOptimum report false
// until PonderHit rebases the clock.
func (tm *TimeManager) Ponder() {
	tm.pondering = true
	tm.origSoft = tm.softTime
	tm.origHard = tm.hardTime
}

// PonderHit ends pondering and rebases the deadlines to "now + original
// budget", so time spent pondering is not charged against the move.
func (tm *TimeManager) PonderHit() {
	tm.pondering = false
	tm.startTime = time.Now()
	tm.softTime = tm.origSoft
	tm.hardTime = tm.origHard
}

// Elapsed returns the time elapsed since search started.
func (tm *TimeManager) Elapsed() time.Duration {
	return time.Since(tm.startTime)
}

// OptimumTime returns the target time for this move.
func (tm *TimeManager) OptimumTime() time.Duration {
	return tm.softTime
}

// MaximumTime returns the maximum time allowed.
func (tm *TimeManager) MaximumTime() time.Duration {
	return tm.hardTime
}

// ShouldStop returns true if we should stop searching.
func (tm *TimeManager) ShouldStop() bool {
	if tm.pondering {
		return false
	}
	return tm.Elapsed() >= tm.hardTime
}

// PastOptimum returns true if we've exceeded the optimum time.
func (tm *TimeManager) PastOptimum() bool {
	if tm.pondering {
		return false
	}
	return tm.Elapsed() >= tm.softTime
}

// AdjustForStability adjusts time allocation based on best move stability.
// If the best move hasn't changed for several depths, we can stop earlier.
// stability: number of consecutive depths with same best move
func (tm *TimeManager) AdjustForStability(stability int) {
	if tm.fixedPerMove {
		return
	}
	if stability >= 6 {
		tm.softTime = tm.softTime * 40 / 100
	} else if stability >= 4 {
		tm.softTime = tm.softTime * 60 / 100
	} else if stability >= 2 {
		tm.softTime = tm.softTime * 80 / 100
	}
}

// AdjustForInstability increases time when best move keeps changing.
// changes: number of best move changes in recent depths
func (tm *TimeManager) AdjustForInstability(changes int) {
	if tm.fixedPerMove {
		return
	}
	if changes >= 4 {
		tm.softTime = tm.softTime * 200 / 100
		if tm.softTime > tm.hardTime {
			tm.softTime = tm.hardTime
		}
	} else if changes >= 2 {
		tm.softTime = tm.softTime * 150 / 100
		if tm.softTime > tm.hardTime {
			tm.softTime = tm.hardTime
		}
	}
}
