package nnue

import "github.com/hailam/heimdall/internal/board"

// Accumulator holds the feature transformer's accumulated hidden-layer
// values, one per perspective, plus the king bucket each was computed
// against so a later update can detect a bucket-crossing king move.
type Accumulator struct {
	White, Black             [HiddenSize]int16
	WhiteBucket, BlackBucket int
	Computed                 bool
}

// AccumulatorStack mirrors the position stack during search so unmake is
// an O(1) pop instead of a recompute.
type AccumulatorStack struct {
	stack [128]Accumulator
	top   int
}

// NewAccumulatorStack creates an empty accumulator stack.
func NewAccumulatorStack() *AccumulatorStack {
	return &AccumulatorStack{}
}

// Push copies the current accumulator down as the starting point for the
// next ply; the next ComputeFull/UpdateIncremental call mutates the copy,
// not the original.
func (s *AccumulatorStack) Push() {
	if s.top < 127 {
		s.stack[s.top+1] = s.stack[s.top]
		s.top++
	}
}

// Pop discards the current ply's accumulator, restoring the parent's.
func (s *AccumulatorStack) Pop() {
	if s.top > 0 {
		s.top--
	}
}

// Current returns the accumulator for the current ply.
func (s *AccumulatorStack) Current() *Accumulator {
	return &s.stack[s.top]
}

// Reset clears the stack for a new game.
func (s *AccumulatorStack) Reset() {
	s.top = 0
	s.stack[0] = Accumulator{}
}

// ComputeFull recomputes the accumulator from scratch: the feature
// transformer bias plus every occupied square's weight column in the
// perspective's current king bucket.
func (acc *Accumulator) ComputeFull(pos *board.Position, net *Network) {
	white, black := GetActiveFeatures(pos)

	copy(acc.White[:], net.FTBias[:])
	copy(acc.Black[:], net.FTBias[:])
	acc.WhiteBucket = KingBucket(board.White, pos.KingSquare[board.White])
	acc.BlackBucket = KingBucket(board.Black, pos.KingSquare[board.Black])

	for _, f := range white {
		addFeature(&acc.White, net, f)
	}
	for _, f := range black {
		addFeature(&acc.Black, net, f)
	}

	acc.Computed = true
}

func addFeature(side *[HiddenSize]int16, net *Network, f feature) {
	col := &net.FTWeights[f.bucket][f.index]
	for i := 0; i < HiddenSize; i++ {
		side[i] += col[i]
	}
}

func subFeature(side *[HiddenSize]int16, net *Network, f feature) {
	col := &net.FTWeights[f.bucket][f.index]
	for i := 0; i < HiddenSize; i++ {
		side[i] -= col[i]
	}
}

// UpdateIncremental updates the accumulator for a move already applied
// to pos, in O(changed features) rather than O(all pieces). A king move
// always forces a full refresh, both because its own feature (in the
// perspective-independent king-kind slot) changed and because it may
// have crossed into a different king bucket, which changes every other
// feature's index too.
func (acc *Accumulator) UpdateIncremental(pos *board.Position, m board.Move, captured board.Piece, net *Network) {
	if !acc.Computed {
		acc.ComputeFull(pos, net)
		return
	}

	movedPiece := pos.PieceAt(m.To())
	if movedPiece == board.NoPiece {
		// Castling's king-captures-rook encoding can leave m.To() (the
		// rook's origin square) empty, as standard castling does; castling
		// is then detected through m.IsCastling() and refreshed in full.
		if m.IsCastling() {
			acc.ComputeFull(pos, net)
			return
		}
		acc.Computed = false
		return
	}

	if movedPiece.Type() == board.King || m.IsCastling() {
		acc.ComputeFull(pos, net)
		return
	}

	white, black := GetChangedFeatures(pos, m, captured)

	for _, f := range white.rem {
		subFeature(&acc.White, net, f)
	}
	for _, f := range white.add {
		addFeature(&acc.White, net, f)
	}
	for _, f := range black.rem {
		subFeature(&acc.Black, net, f)
	}
	for _, f := range black.add {
		addFeature(&acc.Black, net, f)
	}
}
