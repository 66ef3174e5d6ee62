// Package nnue implements NNUE (Efficiently Updatable Neural Network)
// evaluation: a feature transformer over 768 king-bucketed input features
// per perspective, followed by a single output-bucket-selected layer.
package nnue

import "github.com/hailam/heimdall/internal/board"

// Network architecture constants.
const (
	NumSquares    = 64
	NumPieceKinds = 6 // Pawn..King; unlike HalfKP, the king is a feature-bearing piece kind
	NumColors     = 2

	// FeaturesPerBucket is the per-perspective feature count within one
	// king bucket: square * piece-kind * color.
	FeaturesPerBucket = NumSquares * NumPieceKinds * NumColors // 768

	NumInputBuckets  = 8 // king-square buckets, selected per perspective
	HiddenSize       = 256
	NumOutputBuckets = 8 // selected by total piece count

	L1QuantShift = 6
	OutputScale  = 400
)

// ClampedReLU clamps an accumulator value to [0,255], the feature
// transformer's activation range.
func ClampedReLU(x int16) uint8 {
	if x < 0 {
		return 0
	}
	if x > 255 {
		return 255
	}
	return uint8(x)
}

// Evaluator is the main NNUE evaluator: a network plus its per-search
// accumulator stack.
type Evaluator struct {
	net   *Network
	stack *AccumulatorStack
}

// NewEvaluator creates an evaluator. If weightsFile is empty, the network
// is a deterministic pseudo-random placeholder (no trained default
// network ships in this repository - see weights.go).
func NewEvaluator(weightsFile string) (*Evaluator, error) {
	net := NewNetwork()

	if weightsFile != "" {
		if err := net.LoadWeights(weightsFile); err != nil {
			return nil, err
		}
	} else {
		net.InitRandom(12345)
	}

	return &Evaluator{
		net:   net,
		stack: NewAccumulatorStack(),
	}, nil
}

// Evaluate returns the NNUE evaluation for the position, in centipawns
// from the side to move's perspective.
func (e *Evaluator) Evaluate(pos *board.Position) int {
	acc := e.stack.Current()
	if !acc.Computed {
		acc.ComputeFull(pos, e.net)
	}
	return e.net.Forward(acc, pos)
}

// Push saves accumulator state. Call before MakeMove.
func (e *Evaluator) Push() {
	e.stack.Push()
}

// Pop restores accumulator state. Call after UnmakeMove.
func (e *Evaluator) Pop() {
	e.stack.Pop()
}

// Refresh forces a full recomputation of the current accumulator.
func (e *Evaluator) Refresh(pos *board.Position) {
	e.stack.Current().ComputeFull(pos, e.net)
}

// Update incrementally updates the accumulator for a move already applied
// to pos. Call after MakeMove.
func (e *Evaluator) Update(pos *board.Position, m board.Move, captured board.Piece) {
	e.stack.Current().UpdateIncremental(pos, m, captured, e.net)
}

// Reset resets the accumulator stack for a new game.
func (e *Evaluator) Reset() {
	e.stack.Reset()
}
