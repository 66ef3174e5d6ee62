package engine

import (
	"context"
	"log"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hailam/heimdall/internal/board"
	"github.com/hailam/heimdall/internal/nnue"
)

// NumWorkers is the number of parallel search workers (matches CPU cores).
var NumWorkers = runtime.GOMAXPROCS(0)

// SearchInfo contains information about the current search.
type SearchInfo struct {
	Depth    int
	SelDepth int
	MultiPV  int
	Score    int
	Nodes    uint64
	Time     time.Duration
	PV       []board.Move
	HashFull int // Permille of hash table used
}

// SearchLimits specifies constraints on the search.
type SearchLimits struct {
	Depth    int           // Maximum depth (0 = no limit)
	Nodes    uint64        // Maximum nodes (0 = no limit)
	MoveTime time.Duration // Time for this move (0 = no limit)
	Infinite bool          // Search until stopped
	MultiPV  int           // Number of principal variations to find (0 or 1 = single best move)
}

// SearchResult contains the result of a single PV search.
type SearchResult struct {
	Move  board.Move
	Score int
	PV    []board.Move
	Depth int
}

// Engine is the chess AI engine: a pool of Lazy-SMP workers sharing one
// transposition table and one history table, fanned out with errgroup and
// joined once the search stops.
type Engine struct {
	workers       []*Worker
	tt            *TranspositionTable
	sharedHistory *SharedHistory
	stopFlag      atomic.Bool

	multiPV int

	// Position history for repetition detection
	rootPosHashes []uint64

	// NNUE evaluation (always on: see NewEngine)
	nnueEval *nnue.Evaluator

	// cpuPin, when true, pins worker i to logical CPU i (Linux only; see affinity_linux.go).
	cpuPin bool

	// activeTM is the time manager for the in-flight search, if any, so
	// PonderHit can rebase it from the UCI goroutine.
	activeTM atomic.Pointer[TimeManager]

	// Callbacks
	OnInfo func(SearchInfo)
}

// NewEngine creates a new chess engine with the given transposition table
// size in MB. Evaluation defaults to NNUE: with no EvalFile configured
// (LoadNNUE not yet called), every worker gets a deterministic InitRandom
// network (spec §4.3 makes NNUE the core evaluator; §6's build-embedded
// default is approximated here since no trained network ships with this
// repository).
func NewEngine(ttSizeMB int) *Engine {
	tt := NewTranspositionTable(ttSizeMB)
	sharedHistory := NewSharedHistory()

	defaultEval, _ := nnue.NewEvaluator("")

	e := &Engine{
		tt:            tt,
		sharedHistory: sharedHistory,
		multiPV:       1,
		nnueEval:      defaultEval,
		workers:       make([]*Worker, NumWorkers),
	}

	for i := 0; i < NumWorkers; i++ {
		w := NewWorker(i, tt, sharedHistory, &e.stopFlag)
		w.initNNUE(defaultEval)
		e.workers[i] = w
	}

	return e
}

// SetThreads resizes the worker pool. Must not be called during a search.
func (e *Engine) SetThreads(n int) {
	if n < 1 {
		n = 1
	}
	if n == len(e.workers) {
		return
	}
	workers := make([]*Worker, n)
	for i := 0; i < n; i++ {
		w := NewWorker(i, e.tt, e.sharedHistory, &e.stopFlag)
		if e.nnueEval != nil {
			w.initNNUE(e.nnueEval)
		}
		workers[i] = w
	}
	e.workers = workers
	NumWorkers = n
}

// SetHashSizeMB replaces the transposition table with a freshly sized one
// and rewires every worker to it. Must not be called during a search.
func (e *Engine) SetHashSizeMB(mb int) {
	tt := NewTranspositionTable(mb)
	e.tt = tt
	for _, w := range e.workers {
		w.tt = tt
	}
}

// SetMultiPV sets the number of principal variations reported per search.
func (e *Engine) SetMultiPV(n int) {
	if n < 1 {
		n = 1
	}
	e.multiPV = n
}

// SetCPUPinning enables or disables pinning worker i to logical CPU i.
func (e *Engine) SetCPUPinning(pin bool) {
	e.cpuPin = pin
}

// SetPositionHistory sets the position history for repetition detection.
// This should be called before Search() with hashes from the game's move history.
func (e *Engine) SetPositionHistory(hashes []uint64) {
	e.rootPosHashes = make([]uint64, len(hashes))
	copy(e.rootPosHashes, hashes)

	for _, w := range e.workers {
		w.SetRootHistory(hashes)
	}
}

// SearchWithLimits finds the best move with specific search limits, using
// Lazy SMP with multiple workers searching the same position in parallel.
func (e *Engine) SearchWithLimits(pos *board.Position, limits SearchLimits) board.Move {
	results := e.searchMultiPV(pos, limits, nil)
	if len(results) == 0 {
		return board.NoMove
	}
	return results[0].Move
}

// SearchWithUCILimits finds the best move using UCI time controls.
// Supports wtime/btime/winc/binc for proper tournament time management.
func (e *Engine) SearchWithUCILimits(pos *board.Position, limits UCILimits, ply int) board.Move {
	tm := NewTimeManager()
	tm.Init(limits, pos.SideToMove, ply)

	searchLimits := SearchLimits{
		Depth:   limits.Depth,
		Nodes:   limits.Nodes,
		MultiPV: e.multiPV,
	}

	var lastBestMove board.Move
	var stabilityCount, instabilityCount int

	results := e.runLazySMP(pos, searchLimits, nil, tm, func(depth int, move board.Move) bool {
		if move == lastBestMove {
			stabilityCount++
			instabilityCount = 0
		} else {
			instabilityCount++
			stabilityCount = 0
		}
		lastBestMove = move

		if stabilityCount >= 4 {
			tm.AdjustForStability(stabilityCount)
		} else if instabilityCount >= 2 {
			tm.AdjustForInstability(instabilityCount)
		}

		return tm.PastOptimum() && stabilityCount >= 4
	})

	if len(results) == 0 {
		return board.NoMove
	}
	return results[0].Move
}

// SearchMultiPV finds multiple best moves (principal variations) for analysis.
func (e *Engine) SearchMultiPV(pos *board.Position, limits SearchLimits) []SearchResult {
	return e.searchMultiPV(pos, limits, nil)
}

// searchMultiPV is the shared entry point for fixed-limit (non-UCI-clock) searches.
func (e *Engine) searchMultiPV(pos *board.Position, limits SearchLimits, excluded []board.Move) []SearchResult {
	tm := NewTimeManager()
	if limits.MoveTime > 0 {
		tm.Init(UCILimits{MoveTime: limits.MoveTime}, pos.SideToMove, 0)
	} else {
		tm.Init(UCILimits{Infinite: true}, pos.SideToMove, 0)
	}
	return e.runLazySMP(pos, limits, excluded, tm, nil)
}

// runLazySMP fans N workers out over the same position with errgroup. Each
// worker runs its own iterative-deepening loop and sends one result per
// completed depth over a channel; the best result of the deepest depth seen
// so far is kept, and the workers are joined once the search stops. Extra
// MultiPV lines are then found by sequential re-searches. onDepth, if
// non-nil, is consulted after the main PV's depth advances and can request
// early stop (used for move-stability cutoffs).
func (e *Engine) runLazySMP(pos *board.Position, limits SearchLimits, excluded []board.Move, tm *TimeManager, onDepth func(depth int, move board.Move) bool) []SearchResult {
	e.stopFlag.Store(false)
	e.tt.NewSearch()

	for _, w := range e.workers {
		w.Reset()
		w.SetExcludedMoves(excluded)
	}

	numPV := limits.MultiPV
	if numPV < 1 {
		numPV = 1
	}

	maxDepth := MaxPly
	if limits.Depth > 0 {
		maxDepth = limits.Depth
	}

	if tm != nil {
		e.activeTM.Store(tm)
		defer e.activeTM.Store(nil)
	}

	startTime := time.Now()
	resultCh := make(chan WorkerResult, len(e.workers)*4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	for i, w := range e.workers {
		i, w := i, w
		pin := e.cpuPin
		g.Go(func() error {
			if pin {
				runtime.LockOSThread()
				pinWorker(i)
			}
			e.workerSearch(ctx, i, w, pos, maxDepth, resultCh)
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		g.Wait()
		close(resultCh)
		close(done)
	}()

	best := make([]SearchResult, 0, numPV)
	bestDepth := 0

resultLoop:
	for {
		select {
		case result, ok := <-resultCh:
			if !ok {
				break resultLoop
			}
			if result.Move == board.NoMove {
				continue
			}
			if result.Depth < bestDepth {
				continue
			}
			if result.Depth > bestDepth || len(best) == 0 || result.Score > best[0].Score {
				bestDepth = result.Depth
				best = []SearchResult{{Move: result.Move, Score: result.Score, PV: result.PV, Depth: result.Depth}}

				if e.OnInfo != nil {
					e.OnInfo(SearchInfo{
						Depth:    result.Depth,
						MultiPV:  1,
						Score:    result.Score,
						Nodes:    e.getTotalNodes(),
						Time:     time.Since(startTime),
						PV:       result.PV,
						HashFull: e.tt.HashFull(),
					})
				}

				if result.Score > MateScore-100 || result.Score < -MateScore+100 {
					cancel()
					e.stopFlag.Store(true)
					break resultLoop
				}

				if onDepth != nil && onDepth(result.Depth, result.Move) {
					cancel()
					e.stopFlag.Store(true)
					break resultLoop
				}
			}

			if tm != nil && tm.ShouldStop() {
				cancel()
				e.stopFlag.Store(true)
				break resultLoop
			}
			if limits.Nodes > 0 && e.getTotalNodes() >= limits.Nodes {
				cancel()
				e.stopFlag.Store(true)
				break resultLoop
			}

		case <-done:
			break resultLoop
		}
	}

	e.stopFlag.Store(true)
	cancel()
	<-done

	if numPV > 1 && len(best) == 1 {
		extra := e.searchAdditionalPVs(pos, limits, append([]board.Move{best[0].Move}, excluded...), numPV-1, maxDepth)
		best = append(best, extra...)
	}

	return best
}

// searchAdditionalPVs finds the next numPV-1 best root moves by repeatedly
// re-searching with the previously found moves excluded at the root.
func (e *Engine) searchAdditionalPVs(pos *board.Position, limits SearchLimits, excluded []board.Move, n, maxDepth int) []SearchResult {
	results := make([]SearchResult, 0, n)
	for i := 0; i < n; i++ {
		r := e.searchMultiPV(pos, SearchLimits{Depth: limits.Depth, Nodes: limits.Nodes}, excluded)
		if len(r) == 0 || r[0].Move == board.NoMove {
			break
		}
		results = append(results, r[0])
		excluded = append(excluded, r[0].Move)
	}
	return results
}

// workerSearch runs iterative deepening in a single worker, staggering start
// depths so helper threads skip redundant shallow work, and widening
// aspiration windows on fail-high/fail-low.
func (e *Engine) workerSearch(ctx context.Context, workerID int, worker *Worker, pos *board.Position, maxDepth int, resultCh chan<- WorkerResult) {
	worker.InitSearch(pos.Copy())

	var prevScore int
	startDepth := 1
	if workerID >= 6 {
		startDepth = 4
	} else if workerID >= 3 {
		startDepth = 3
	} else if workerID >= 1 {
		startDepth = 2
	}

	recentScores := make([]int, 0, 10)

	for depth := startDepth; depth <= maxDepth; depth++ {
		if e.stopFlag.Load() || ctx.Err() != nil {
			return
		}

		var move board.Move
		var score int

		if depth >= 5 && prevScore != 0 {
			volatility := 0
			if len(recentScores) >= 2 {
				minScore, maxScore := recentScores[0], recentScores[0]
				for _, s := range recentScores {
					if s < minScore {
						minScore = s
					}
					if s > maxScore {
						maxScore = s
					}
				}
				volatility = maxScore - minScore
			}

			var window int
			if volatility > 400 {
				window = 150 + volatility/4
			} else if volatility < 50 {
				window = 25
			} else {
				window = 50 + volatility/8
			}
			window += (workerID % 8) * 3

			alpha := prevScore - window
			beta := prevScore + window
			retryCount := 0

			for {
				move, score = worker.SearchDepth(depth, alpha, beta)
				if e.stopFlag.Load() || ctx.Err() != nil {
					return
				}

				if score <= alpha {
					retryCount++
					if retryCount >= 2 {
						alpha = -Infinity
					} else {
						alpha = prevScore - window*2
					}
				} else if score >= beta {
					retryCount++
					if retryCount >= 2 {
						beta = Infinity
					} else {
						beta = prevScore + window*2
					}
				} else {
					break
				}

				if alpha == -Infinity && beta == Infinity {
					break
				}
			}
		} else {
			move, score = worker.SearchDepth(depth, -Infinity, Infinity)
		}

		if e.stopFlag.Load() || ctx.Err() != nil {
			return
		}

		prevScore = score
		recentScores = append(recentScores, score)
		if len(recentScores) > 10 {
			recentScores = recentScores[1:]
		}

		resultCh <- WorkerResult{
			WorkerID: workerID,
			Depth:    depth,
			Score:    score,
			Move:     move,
			PV:       worker.GetPV(),
			Nodes:    worker.Nodes(),
		}
	}
}

// getTotalNodes returns the total nodes searched by all workers.
func (e *Engine) getTotalNodes() uint64 {
	var total uint64
	for _, w := range e.workers {
		total += w.Nodes()
	}
	return total
}

// Stop stops the current search.
func (e *Engine) Stop() {
	e.stopFlag.Store(true)
}

// PonderHit notifies the in-flight search that pondering has ended: the
// active time manager rebases its deadlines to "now + original budget".
// A no-op if no search is running.
func (e *Engine) PonderHit() {
	if tm := e.activeTM.Load(); tm != nil {
		tm.PonderHit()
	}
}

// Clear clears the transposition table and the shared history, and ages
// each worker's move-ordering tables (see MoveOrderer.Clear). Correction
// history is left unchanged.
func (e *Engine) Clear() {
	e.tt.Clear()
	e.sharedHistory.Clear()
	for _, w := range e.workers {
		w.orderer.Clear()
	}
}

// Perft performs a perft test (for debugging move generation).
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}

	moves := pos.GenerateLegalMoves()
	if depth == 1 {
		return uint64(moves.Len())
	}

	var nodes uint64
	for i := 0; i < moves.Len(); i++ {
		move := moves.Get(i)
		undo := pos.MakeMove(move)
		nodes += e.Perft(pos, depth-1)
		pos.UnmakeMove(move, undo)
	}

	return nodes
}

// Evaluate returns the NNUE evaluation of a position using the engine's
// currently loaded network.
func (e *Engine) Evaluate(pos *board.Position) int {
	return e.nnueEval.Evaluate(pos)
}

// LoadNNUE loads an NNUE network file and wires it into every worker,
// replacing the default InitRandom network.
func (e *Engine) LoadNNUE(path string) error {
	eval, err := nnue.NewEvaluator(path)
	if err != nil {
		log.Printf("[Engine] failed to load NNUE network %q: %v", path, err)
		return err
	}
	e.nnueEval = eval
	for _, w := range e.workers {
		w.initNNUE(eval)
	}
	return nil
}

// HasNNUE returns whether an NNUE network is loaded.
func (e *Engine) HasNNUE() bool {
	return e.nnueEval != nil
}

// ScoreToString converts a score to a human-readable string.
func ScoreToString(score int) string {
	if score > MateScore-100 {
		mateIn := (MateScore - score + 1) / 2
		return "Mate in " + itoa(mateIn)
	}
	if score < -MateScore+100 {
		mateIn := (MateScore + score + 1) / 2
		return "Mated in " + itoa(mateIn)
	}

	sign := ""
	if score < 0 {
		sign = "-"
		score = -score
	}
	pawns := score / 100
	centipawns := score % 100

	return sign + itoa(pawns) + "." + itoa(centipawns)
}

// Simple integer to string (avoid fmt import)
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	if n < 0 {
		return "-" + itoa(-n)
	}
	s := ""
	for n > 0 {
		s = string('0'+byte(n%10)) + s
		n /= 10
	}
	return s
}
