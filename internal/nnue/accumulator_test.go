package nnue

import (
	"testing"

	"github.com/hailam/heimdall/internal/board"
)

func TestIncrementalUpdateMatchesFullRefresh(t *testing.T) {
	net := NewNetwork()
	net.InitRandom(12345)

	pos, err := board.ParseFEN("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")
	if err != nil {
		t.Fatal("Error parsing FEN:", err)
	}

	var acc Accumulator
	acc.ComputeFull(pos, net)

	m := board.NewMove(board.G1, board.F3) // quiet knight move, no king move, no bucket change
	captured := pos.PieceAt(m.To())
	pos.MakeMove(m)

	acc.UpdateIncremental(pos, m, captured, net)

	var scratch Accumulator
	scratch.ComputeFull(pos, net)

	if acc.White != scratch.White {
		t.Error("incremental White accumulator diverged from full refresh after quiet move")
	}
	if acc.Black != scratch.Black {
		t.Error("incremental Black accumulator diverged from full refresh after quiet move")
	}
}

func TestIncrementalUpdateMatchesFullRefreshAfterCapture(t *testing.T) {
	net := NewNetwork()
	net.InitRandom(999)

	pos, err := board.ParseFEN("rnbqkbnr/ppp1pppp/8/3p4/4P3/8/PPPP1PPP/RNBQKBNR w KQkq - 0 2")
	if err != nil {
		t.Fatal("Error parsing FEN:", err)
	}

	var acc Accumulator
	acc.ComputeFull(pos, net)

	m := board.NewMove(board.E4, board.D5) // pawn captures pawn
	captured := pos.PieceAt(m.To())
	pos.MakeMove(m)

	acc.UpdateIncremental(pos, m, captured, net)

	var scratch Accumulator
	scratch.ComputeFull(pos, net)

	if acc.White != scratch.White || acc.Black != scratch.Black {
		t.Error("incremental accumulator diverged from full refresh after a capture")
	}
}

// TestKingMoveForcesFullRecompute verifies a king move (which can cross
// into a different king bucket for its own perspective) always produces
// an accumulator identical to a scratch ComputeFull, since
// UpdateIncremental refreshes fully rather than patching in place.
func TestKingMoveForcesFullRecompute(t *testing.T) {
	net := NewNetwork()
	net.InitRandom(42)

	pos, err := board.ParseFEN("8/8/8/4k3/8/8/4K3/8 w - - 0 1")
	if err != nil {
		t.Fatal("Error parsing FEN:", err)
	}

	var acc Accumulator
	acc.ComputeFull(pos, net)
	beforeBucket := acc.WhiteBucket

	m := board.NewMove(board.E2, board.D3) // king move; e2 and d3 share a king bucket from White's view
	captured := pos.PieceAt(m.To())
	pos.MakeMove(m)

	acc.UpdateIncremental(pos, m, captured, net)

	var scratch Accumulator
	scratch.ComputeFull(pos, net)

	if acc.WhiteBucket == beforeBucket && acc.WhiteBucket == scratch.WhiteBucket {
		t.Log("king move stayed within the same bucket for this square pair")
	}
	if acc.White != scratch.White || acc.Black != scratch.Black {
		t.Error("accumulator after a king move diverged from full refresh")
	}
	if acc.WhiteBucket != scratch.WhiteBucket || acc.BlackBucket != scratch.BlackBucket {
		t.Error("king bucket after a king move diverged from full refresh")
	}
}

func TestAccumulatorStackPushPopRestoresState(t *testing.T) {
	net := NewNetwork()
	net.InitRandom(7)

	pos, err := board.ParseFEN("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")
	if err != nil {
		t.Fatal("Error parsing FEN:", err)
	}

	stack := NewAccumulatorStack()
	stack.Current().ComputeFull(pos, net)
	before := *stack.Current()

	stack.Push()
	m := board.NewMove(board.G1, board.F3)
	captured := pos.PieceAt(m.To())
	undo := pos.MakeMove(m)
	stack.Current().UpdateIncremental(pos, m, captured, net)

	pos.UnmakeMove(m, undo)
	stack.Pop()

	after := *stack.Current()
	if after.White != before.White || after.Black != before.Black {
		t.Error("Push/Pop did not restore the accumulator state from before the move")
	}
}

func TestEvaluatorEvaluateIsDeterministic(t *testing.T) {
	eval, err := NewEvaluator("")
	if err != nil {
		t.Fatal("NewEvaluator with no weights file should fall back to InitRandom:", err)
	}

	pos, err := board.ParseFEN("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")
	if err != nil {
		t.Fatal("Error parsing FEN:", err)
	}

	a := eval.Evaluate(pos)
	b := eval.Evaluate(pos)
	if a != b {
		t.Errorf("expected deterministic evaluation, got %d then %d", a, b)
	}
}
