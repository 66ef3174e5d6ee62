package engine

import (
	"log"

	"github.com/hailam/heimdall/internal/board"
)

// debugAssert logs msg when cond is false and board.DebugMoveValidation is
// enabled. It never panics or alters control flow; it exists purely to
// surface position-consistency bugs during development.
func debugAssert(cond bool, msg string) {
	if !cond && board.DebugMoveValidation {
		log.Printf("assertion failed: %s", msg)
	}
}
