package engine

import (
	"github.com/hailam/heimdall/internal/board"
)

// Move ordering score bands. By base value, highest first: TT move, good
// captures, killers, counter moves, quiets, bad captures. The heuristic
// bonuses added within a band (SEE, capture/quiet history, continuation
// history) are not clamped to it, so a large enough bonus can lift a move
// past the next band's base.
const (
	TTMoveScore     = 700000 // TT move, always searched first
	KillerScore1    = 500000 // First killer at this ply
	KillerScore2    = KillerScore1 - 1
	CounterScore    = 400000 // Counter move to the previous move
	GoodCaptureBase = 600000 // Captures/promotions/en passant with SEE >= 0
	BadCaptureBase  = 50000  // Captures/promotions/en passant with SEE < 0
	QuietBase       = 200000
)

// mvvLva scores a bad capture by victim value, heaviest victim first, so a
// losing capture of a rook still sorts above a losing capture of a pawn;
// losing captures of the same victim are then ordered by their SEE.
var mvvLva = [6]int{100, 320, 330, 500, 900, 0}

// PieceToHistory is a history table indexed by a move's [piece][toSquare],
// the unit the continuation-history table is built from.
type PieceToHistory [12][64]int

// MoveOrderer holds the search's move-ordering heuristics. Between
// searches the history tables are aged (halved), not cleared, so they keep
// useful signal across moves in a game; killers and counter moves are
// reset.
type MoveOrderer struct {
	// Killer moves: quiet moves that caused a beta cutoff at this ply.
	killers [MaxPly][2]board.Move

	// History heuristic, indexed by [from][to].
	history [64][64]int

	// Counter move heuristic, indexed by [piece][to] of the previous move.
	counterMoves [12][64]board.Move

	// Capture history, indexed by [attackerPiece][toSquare][capturedPieceType].
	captureHistory [12][64][6]int

	// Countermove history: quiet-move pair (prevPiece,prevTo)->(movePiece,moveTo).
	countermoveHistory [12][64][12][64]int

	// Continuation history generalizes countermove history to several
	// plies back (Stockfish's update_continuation_histories), keyed by
	// the preceding move's [piece][toSquare].
	continuationHistory [12][64]PieceToHistory
}

// NewMoveOrderer creates a new move orderer.
func NewMoveOrderer() *MoveOrderer {
	return &MoveOrderer{}
}

// Clear prepares the move orderer for a new search: it resets killers and
// counter moves and halves every history table.
func (mo *MoveOrderer) Clear() {
	for i := range mo.killers {
		mo.killers[i][0] = board.NoMove
		mo.killers[i][1] = board.NoMove
	}

	for i := range mo.history {
		for j := range mo.history[i] {
			mo.history[i][j] /= 2
		}
	}

	for i := range mo.counterMoves {
		for j := range mo.counterMoves[i] {
			mo.counterMoves[i][j] = board.NoMove
		}
	}

	for i := range mo.captureHistory {
		for j := range mo.captureHistory[i] {
			for k := range mo.captureHistory[i][j] {
				mo.captureHistory[i][j][k] /= 2
			}
		}
	}

	for i := range mo.countermoveHistory {
		for j := range mo.countermoveHistory[i] {
			for k := range mo.countermoveHistory[i][j] {
				for l := range mo.countermoveHistory[i][j][k] {
					mo.countermoveHistory[i][j][k][l] /= 2
				}
			}
		}
	}

	for i := range mo.continuationHistory {
		for j := range mo.continuationHistory[i] {
			for k := range mo.continuationHistory[i][j] {
				for l := range mo.continuationHistory[i][j][k] {
					mo.continuationHistory[i][j][k][l] /= 2
				}
			}
		}
	}
}

// ScoreMoves assigns ordering scores to every move in the list.
func (mo *MoveOrderer) ScoreMoves(pos *board.Position, moves *board.MoveList, ply int, ttMove board.Move) []int {
	scores := make([]int, moves.Len())
	for i := 0; i < moves.Len(); i++ {
		scores[i] = mo.scoreMove(pos, moves.Get(i), ply, ttMove)
	}
	return scores
}

// ScoreMovesWithCounter assigns ordering scores including the counter-move
// bonus and continuation history, which need the previous move (and the
// continuation-history tables cached on the search stack from ply-1 and
// ply-2) to evaluate. contHist1/contHist2 may be nil when those plies
// don't exist yet (near the root).
func (mo *MoveOrderer) ScoreMovesWithCounter(pos *board.Position, moves *board.MoveList, ply int, ttMove, prevMove board.Move, contHist1, contHist2 *PieceToHistory) []int {
	scores := make([]int, moves.Len())
	counterMove := mo.GetCounterMove(prevMove, pos)

	var prevPiece board.Piece = board.NoPiece
	if prevMove != board.NoMove {
		prevPiece = pos.PieceAt(prevMove.To())
	}

	for i := 0; i < moves.Len(); i++ {
		move := moves.Get(i)
		scores[i] = mo.scoreMoveFull(pos, move, ply, ttMove, contHist1, contHist2)

		if move == ttMove {
			continue
		}

		isQuiet := !move.IsCapture(pos) && !move.IsPromotion()
		if isQuiet && move == counterMove && scores[i] < CounterScore {
			scores[i] = CounterScore
		}

		if isQuiet {
			movePiece := pos.PieceAt(move.From())
			cmhScore := mo.GetCountermoveHistoryScore(prevMove, prevPiece, movePiece, move.To())
			scores[i] += cmhScore / 2
		}
	}

	return scores
}

// scoreMove returns the ordering score for a single move, per the
// move-picker bands: TT, killer, counter, tactical (split on SEE sign),
// quiet.
func (mo *MoveOrderer) scoreMove(pos *board.Position, m board.Move, ply int, ttMove board.Move) int {
	return mo.scoreMoveFull(pos, m, ply, ttMove, nil, nil)
}

// scoreMoveFull is scoreMove with access to the continuation-history
// tables from ply-1 and ply-2, when the caller has them.
func (mo *MoveOrderer) scoreMoveFull(pos *board.Position, m board.Move, ply int, ttMove board.Move, contHist1, contHist2 *PieceToHistory) int {
	if m == ttMove {
		return TTMoveScore
	}

	isTactical := m.IsCapture(pos) || m.IsPromotion()
	if isTactical {
		return mo.scoreTactical(pos, m)
	}

	if ply < MaxPly {
		if m == mo.killers[ply][0] {
			return KillerScore1
		}
		if m == mo.killers[ply][1] {
			return KillerScore2
		}
	}

	from, to := m.From(), m.To()
	piece := pos.PieceAt(from)
	score := QuietBase + mo.history[from][to]
	if contHist1 != nil {
		score += contHist1[piece][to]
	}
	if contHist2 != nil {
		score += contHist2[piece][to]
	}
	return score
}

// scoreTactical scores a capture, en passant, or promotion: SEE >= 0 sorts
// above killers, counter moves and quiet moves, SEE < 0 sorts below
// quiet moves but above the very worst blunders, per spec's move-picker
// bands (GoodCaptureBase/BadCaptureBase).
func (mo *MoveOrderer) scoreTactical(pos *board.Position, m board.Move) int {
	see := pos.SEE(m)

	attackerPiece := pos.PieceAt(m.From())
	var capHistScore int
	if attackerPiece != board.NoPiece {
		victim := capturedType(pos, m)
		capHistScore = mo.GetCaptureHistoryScore(attackerPiece, m.To(), victim)
	}

	if see >= 0 {
		return GoodCaptureBase + see + capHistScore/4
	}

	victim := capturedType(pos, m)
	victimScore := 0
	if victim < board.King {
		victimScore = mvvLva[victim] * 100
	}
	return BadCaptureBase + see + victimScore + capHistScore/4
}

// capturedType returns the piece type captured by m, treating en passant
// as capturing a pawn.
func capturedType(pos *board.Position, m board.Move) board.PieceType {
	if m.IsEnPassant() {
		return board.Pawn
	}
	if captured := pos.PieceAt(m.To()); captured != board.NoPiece {
		return captured.Type()
	}
	return board.NoPieceType
}

// SortMoves sorts moves by descending score (selection sort; move counts
// per node are small enough that this beats a general sort's overhead).
func SortMoves(moves *board.MoveList, scores []int) {
	n := moves.Len()
	for i := 0; i < n-1; i++ {
		best := i
		for j := i + 1; j < n; j++ {
			if scores[j] > scores[best] {
				best = j
			}
		}
		if best != i {
			moves.Swap(i, best)
			scores[i], scores[best] = scores[best], scores[i]
		}
	}
}

// PickMove selects the best remaining move and swaps it into position
// index, for lazy (partial) move sorting.
func PickMove(moves *board.MoveList, scores []int, index int) {
	best := index
	for j := index + 1; j < moves.Len(); j++ {
		if scores[j] > scores[best] {
			best = j
		}
	}
	if best != index {
		moves.Swap(index, best)
		scores[index], scores[best] = scores[best], scores[index]
	}
}

// UpdateKillers records a quiet move that caused a beta cutoff at ply.
func (mo *MoveOrderer) UpdateKillers(m board.Move, ply int) {
	if ply >= MaxPly {
		return
	}
	if mo.killers[ply][0] == m {
		return
	}
	mo.killers[ply][1] = mo.killers[ply][0]
	mo.killers[ply][0] = m
}

// UpdateHistory updates the quiet-move history score.
func (mo *MoveOrderer) UpdateHistory(m board.Move, depth int, isGood bool) {
	from, to := m.From(), m.To()
	bonus := depth * depth

	if isGood {
		mo.history[from][to] += bonus
		if mo.history[from][to] > 400000 {
			for i := range mo.history {
				for j := range mo.history[i] {
					mo.history[i][j] /= 2
				}
			}
		}
	} else {
		mo.history[from][to] -= bonus
		if mo.history[from][to] < -400000 {
			mo.history[from][to] = -400000
		}
	}
}

// UpdateLowPlyHistory is a no-op placeholder kept for callers that want
// root-biased history without a separate table; low-ply moves already get
// full weight from the regular history table.
func (mo *MoveOrderer) UpdateLowPlyHistory(m board.Move, ply, depth int, isGood bool) {}

// UpdateCounterMove records that counterMove followed prevMove.
func (mo *MoveOrderer) UpdateCounterMove(prevMove, counterMove board.Move, pos *board.Position) {
	if prevMove == board.NoMove {
		return
	}
	piece := pos.PieceAt(prevMove.To())
	if piece == board.NoPiece {
		return
	}
	mo.counterMoves[piece][prevMove.To()] = counterMove
}

// GetCounterMove returns the recorded counter to prevMove, if any.
func (mo *MoveOrderer) GetCounterMove(prevMove board.Move, pos *board.Position) board.Move {
	if prevMove == board.NoMove {
		return board.NoMove
	}
	piece := pos.PieceAt(prevMove.To())
	if piece == board.NoPiece {
		return board.NoMove
	}
	return mo.counterMoves[piece][prevMove.To()]
}

// GetHistoryScore returns the quiet history score for a move.
func (mo *MoveOrderer) GetHistoryScore(m board.Move) int {
	return mo.history[m.From()][m.To()]
}

// UpdateCaptureHistory updates the capture history for an attacker/victim
// pair.
func (mo *MoveOrderer) UpdateCaptureHistory(attackerPiece board.Piece, toSq board.Square, capturedType board.PieceType, depth int, isGood bool) {
	if attackerPiece == board.NoPiece || capturedType >= board.King {
		return
	}
	bonus := depth * depth
	if isGood {
		mo.captureHistory[attackerPiece][toSq][capturedType] += bonus
		if mo.captureHistory[attackerPiece][toSq][capturedType] > 400000 {
			mo.scaleCaptureHistory()
		}
	} else {
		mo.captureHistory[attackerPiece][toSq][capturedType] -= bonus
		if mo.captureHistory[attackerPiece][toSq][capturedType] < -400000 {
			mo.captureHistory[attackerPiece][toSq][capturedType] = -400000
		}
	}
}

func (mo *MoveOrderer) scaleCaptureHistory() {
	for i := range mo.captureHistory {
		for j := range mo.captureHistory[i] {
			for k := range mo.captureHistory[i][j] {
				mo.captureHistory[i][j][k] /= 2
			}
		}
	}
}

// GetCaptureHistoryScore returns the capture history score for a capture.
func (mo *MoveOrderer) GetCaptureHistoryScore(attackerPiece board.Piece, toSq board.Square, capturedType board.PieceType) int {
	if attackerPiece == board.NoPiece || capturedType >= board.King {
		return 0
	}
	return mo.captureHistory[attackerPiece][toSq][capturedType]
}

// UpdateCountermoveHistory updates the 1-ply quiet move-pair history.
func (mo *MoveOrderer) UpdateCountermoveHistory(prevMove, goodMove board.Move, prevPiece, movePiece board.Piece, depth int, isGood bool) {
	if prevMove == board.NoMove || prevPiece == board.NoPiece || movePiece == board.NoPiece {
		return
	}
	prevTo := prevMove.To()
	moveTo := goodMove.To()
	bonus := depth * depth

	if isGood {
		mo.countermoveHistory[prevPiece][prevTo][movePiece][moveTo] += bonus
		if mo.countermoveHistory[prevPiece][prevTo][movePiece][moveTo] > 400000 {
			mo.scaleCountermoveHistory()
		}
	} else {
		mo.countermoveHistory[prevPiece][prevTo][movePiece][moveTo] -= bonus
		if mo.countermoveHistory[prevPiece][prevTo][movePiece][moveTo] < -400000 {
			mo.countermoveHistory[prevPiece][prevTo][movePiece][moveTo] = -400000
		}
	}
}

func (mo *MoveOrderer) scaleCountermoveHistory() {
	for i := range mo.countermoveHistory {
		for j := range mo.countermoveHistory[i] {
			for k := range mo.countermoveHistory[i][j] {
				for l := range mo.countermoveHistory[i][j][k] {
					mo.countermoveHistory[i][j][k][l] /= 2
				}
			}
		}
	}
}

// GetCountermoveHistoryScore returns the 1-ply countermove history score.
func (mo *MoveOrderer) GetCountermoveHistoryScore(prevMove board.Move, prevPiece, movePiece board.Piece, moveTo board.Square) int {
	if prevMove == board.NoMove || prevPiece == board.NoPiece || movePiece == board.NoPiece {
		return 0
	}
	return mo.countermoveHistory[prevPiece][prevMove.To()][movePiece][moveTo]
}

// GetContinuationHistoryTable returns the continuation history table keyed
// by (piece, toSquare), the move the search stack caches so later plies
// can look up how moves following it have historically scored.
func (mo *MoveOrderer) GetContinuationHistoryTable(piece board.Piece, toSq board.Square) *PieceToHistory {
	return &mo.continuationHistory[piece][toSq]
}

// UpdateContinuationHistory updates the continuation history entry for a
// move (piece,toSq) following (prevPiece,prevTo) plyBack plies earlier.
// plyBack only scales the bonus: moves 1-2 plies back get full weight,
// more distant ones less, per Stockfish's update_continuation_histories.
func (mo *MoveOrderer) UpdateContinuationHistory(prevPiece board.Piece, prevTo board.Square, piece board.Piece, toSq board.Square, depth, plyBack int, isGood bool) {
	if prevPiece == board.NoPiece || piece == board.NoPiece {
		return
	}
	weight := 1
	if plyBack <= 2 {
		weight = 2
	}
	bonus := depth * depth * weight

	cell := &mo.continuationHistory[prevPiece][prevTo][piece][toSq]
	if isGood {
		*cell += bonus
		if *cell > 400000 {
			mo.scaleContinuationHistory()
		}
	} else {
		*cell -= bonus
		if *cell < -400000 {
			*cell = -400000
		}
	}
}

func (mo *MoveOrderer) scaleContinuationHistory() {
	for i := range mo.continuationHistory {
		for j := range mo.continuationHistory[i] {
			for k := range mo.continuationHistory[i][j] {
				for l := range mo.continuationHistory[i][j][k] {
					mo.continuationHistory[i][j][k][l] /= 2
				}
			}
		}
	}
}
