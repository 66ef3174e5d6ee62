package engine

import (
	"github.com/hailam/heimdall/internal/board"
	"github.com/hailam/heimdall/internal/nnue"
)

// nnueMakeMove applies m to w.pos and keeps the NNUE accumulator stack in
// lockstep: the accumulator is pushed before the move so the incremental
// update has a fresh slot to mutate, and captured is read from the board
// before MakeMove removes it.
func (w *Worker) nnueMakeMove(m board.Move) board.UndoInfo {
	var captured board.Piece
	if m.IsEnPassant() {
		captured = board.NewPiece(board.Pawn, w.pos.SideToMove.Other())
	} else {
		captured = w.pos.PieceAt(m.To())
	}

	w.nnuePush()
	undo := w.pos.MakeMove(m)
	if w.nnueEval != nil {
		w.nnueEval.Update(w.pos, m, captured)
	}
	return undo
}

// nnueUnmakeMove unmakes a move made via nnueMakeMove, discarding the
// accumulator slot the move pushed.
func (w *Worker) nnueUnmakeMove(m board.Move, undo board.UndoInfo) {
	w.pos.UnmakeMove(m, undo)
	w.nnuePop()
}

// nnuePush saves the accumulator before a move is made, so unmake is an
// O(1) pop instead of a recompute.
func (w *Worker) nnuePush() {
	if w.nnueEval != nil {
		w.nnueEval.Push()
	}
}

// nnuePop restores the accumulator saved by the matching nnuePush.
func (w *Worker) nnuePop() {
	if w.nnueEval != nil {
		w.nnueEval.Pop()
	}
}

// resetNNUEAccumulators discards the accumulator stack and forces a full
// recompute at the root, for a new search on a fresh position.
func (w *Worker) resetNNUEAccumulators() {
	if w.nnueEval != nil {
		w.nnueEval.Reset()
		w.nnueEval.Refresh(w.pos)
	}
}

// nnueEvaluate returns the NNUE evaluation of w.pos from the side to
// move's perspective. Every worker is wired with an evaluator at
// construction (see Engine.NewEngine), trained or InitRandom.
func (w *Worker) nnueEvaluate() int {
	return w.nnueEval.Evaluate(w.pos)
}

// initNNUE wires an evaluator into the worker, replacing any previous one.
func (w *Worker) initNNUE(eval *nnue.Evaluator) {
	w.nnueEval = eval
}
