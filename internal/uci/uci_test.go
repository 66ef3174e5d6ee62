package uci

import (
	"testing"

	"github.com/hailam/heimdall/internal/board"
	"github.com/hailam/heimdall/internal/engine"
)

func TestMoveTextStandardCastling(t *testing.T) {
	u := New(engine.NewEngine(1))
	u.position, _ = board.ParseFEN("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")

	move := board.NewCastling(board.E1, board.H1)
	if got := u.moveText(move); got != "e1g1" {
		t.Errorf("expected e1g1 for standard castling, got %s", got)
	}
}

func TestMoveTextChess960Castling(t *testing.T) {
	u := New(engine.NewEngine(1))
	u.chess960 = true
	u.position, _ = board.ParseFEN("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")

	move := board.NewCastling(board.E1, board.H1)
	if got := u.moveText(move); got != "e1h1" {
		t.Errorf("expected king-captures-rook text e1h1 under UCI_Chess960, got %s", got)
	}
}

func TestHandleSetOptionThreadsAndHash(t *testing.T) {
	u := New(engine.NewEngine(1))

	u.handleSetOption([]string{"name", "Threads", "value", "2"})
	u.handleSetOption([]string{"name", "Hash", "value", "8"})
	u.handleSetOption([]string{"name", "UCI_Chess960", "value", "true"})

	if !u.chess960 {
		t.Error("expected UCI_Chess960 option to be recorded")
	}
	if engine.NumWorkers != 2 {
		t.Errorf("expected Threads option to resize the worker pool to 2, got %d", engine.NumWorkers)
	}
}

func TestParseGoOptionsTimeControl(t *testing.T) {
	u := New(engine.NewEngine(1))

	opts := u.parseGoOptions([]string{"wtime", "60000", "btime", "60000", "winc", "1000", "binc", "1000", "movestogo", "30"})

	if opts.WTime.Milliseconds() != 60000 || opts.BTime.Milliseconds() != 60000 {
		t.Errorf("unexpected parsed time: wtime=%v btime=%v", opts.WTime, opts.BTime)
	}
	if opts.MovesToGo != 30 {
		t.Errorf("expected movestogo 30, got %d", opts.MovesToGo)
	}
}
