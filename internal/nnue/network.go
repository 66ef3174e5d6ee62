package nnue

import "github.com/hailam/heimdall/internal/board"

// Network holds the NNUE weights: a per-bucket feature transformer and a
// single output-bucket-selected layer over the concatenated perspectives.
type Network struct {
	FTWeights [NumInputBuckets][FeaturesPerBucket][HiddenSize]int16
	FTBias    [HiddenSize]int16

	L1Weights [NumOutputBuckets][HiddenSize * 2]int16
	L1Bias    [NumOutputBuckets]int16
}

// NewNetwork creates a network with zero weights; call LoadWeights or
// InitRandom before using it.
func NewNetwork() *Network {
	return &Network{}
}

// OutputBucket maps the total piece count on the board into one of
// NumOutputBuckets bins: more pieces on the board selects a later
// bucket, so bare-king endgames use bucket 0 and a full board the last.
func OutputBucket(pieceCount int) int {
	idx := (pieceCount - 2) * NumOutputBuckets / (32 - 2)
	if idx < 0 {
		idx = 0
	}
	if idx >= NumOutputBuckets {
		idx = NumOutputBuckets - 1
	}
	return idx
}

// Forward computes the network's output for the given accumulator,
// selecting the output bucket from the position's total piece count and
// concatenating the side-to-move's perspective first, per the cReLU ->
// output-bucket-selected-layer pipeline.
func (n *Network) Forward(acc *Accumulator, pos *board.Position) int {
	var stmAcc, nstmAcc *[HiddenSize]int16
	if pos.SideToMove == board.White {
		stmAcc, nstmAcc = &acc.White, &acc.Black
	} else {
		stmAcc, nstmAcc = &acc.Black, &acc.White
	}

	pieceCount := pos.AllOccupied.PopCount()
	bucket := OutputBucket(pieceCount)
	weights := &n.L1Weights[bucket]

	sum := int32(n.L1Bias[bucket])
	for i := 0; i < HiddenSize; i++ {
		sum += int32(ClampedReLU(stmAcc[i])) * int32(weights[i])
	}
	for i := 0; i < HiddenSize; i++ {
		sum += int32(ClampedReLU(nstmAcc[i])) * int32(weights[HiddenSize+i])
	}

	return int(sum>>L1QuantShift) * OutputScale / 1024
}

// InitRandom fills the network with small deterministic pseudo-random
// weights, for use when no trained network file is available.
func (n *Network) InitRandom(seed int64) {
	state := uint64(seed)
	next := func() int16 {
		state = state*6364136223846793005 + 1442695040888963407
		return int16((state >> 48) & 0xFF) - 128
	}

	for b := 0; b < NumInputBuckets; b++ {
		for i := 0; i < FeaturesPerBucket; i++ {
			for j := 0; j < HiddenSize; j++ {
				n.FTWeights[b][i][j] = next() >> 5
			}
		}
	}
	for i := 0; i < HiddenSize; i++ {
		n.FTBias[i] = next() >> 3
	}
	for b := 0; b < NumOutputBuckets; b++ {
		for j := 0; j < HiddenSize*2; j++ {
			n.L1Weights[b][j] = next() >> 6
		}
		n.L1Bias[b] = next()
	}
}
