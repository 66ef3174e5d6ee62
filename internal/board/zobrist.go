package board

// Zobrist hash keys for position hashing.
// Uses PRNG with fixed seed for reproducibility.
var (
	zobristPiece       [2][7][64]uint64 // [Color][PieceType][Square] - 7 to handle NoPieceType safely
	zobristEnPassant   [8]uint64        // One per file
	zobristCastlingKey [2][2]uint64     // [Color][CastleSide] - one key per right, XORed in/out independently
	zobristSideToMove  uint64           // XOR when black to move
)

func init() {
	initZobrist()
}

// Simple PRNG for reproducible Zobrist keys
type prng struct {
	state uint64
}

func newPRNG(seed uint64) *prng {
	return &prng{state: seed}
}

// xorshift64* algorithm
func (p *prng) next() uint64 {
	p.state ^= p.state >> 12
	p.state ^= p.state << 25
	p.state ^= p.state >> 27
	return p.state * 0x2545F4914F6CDD1D
}

func initZobrist() {
	rng := newPRNG(0x98F107A2BEEF1234) // Fixed seed

	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			for sq := A1; sq <= H8; sq++ {
				zobristPiece[c][pt][sq] = rng.next()
			}
		}
	}

	for file := 0; file < 8; file++ {
		zobristEnPassant[file] = rng.next()
	}

	for c := White; c <= Black; c++ {
		for s := QueenSide; s <= KingSide; s++ {
			zobristCastlingKey[c][s] = rng.next()
		}
	}

	zobristSideToMove = rng.next()
}

// ZobristPiece returns the Zobrist key for a piece on a square.
func ZobristPiece(c Color, pt PieceType, sq Square) uint64 {
	return zobristPiece[c][pt][sq]
}

// ZobristEnPassant returns the Zobrist key for an en passant file.
func ZobristEnPassant(file int) uint64 {
	return zobristEnPassant[file]
}

// ZobristCastlingHash folds a full CastlingRights value into the XOR-sum of
// the keys for every right currently present. Because the rook's file is
// stored separately on Position (not encoded in the hash), this key space
// is the same size whether a right belongs to a1/h1 or a Chess960 file,
// and toggling a single right in or out is a single XOR of its own key.
func ZobristCastlingHash(cr CastlingRights) uint64 {
	var h uint64
	for c := White; c <= Black; c++ {
		for s := QueenSide; s <= KingSide; s++ {
			if cr.Rook[c][s] != NoSquare {
				h ^= zobristCastlingKey[c][s]
			}
		}
	}
	return h
}

// ZobristCastlingRight returns the single key for one (color, side) right,
// for incremental XOR toggling in make/unmake.
func ZobristCastlingRight(c Color, side CastleSide) uint64 {
	return zobristCastlingKey[c][side]
}

// ZobristSideToMove returns the Zobrist key for side to move.
func ZobristSideToMove() uint64 {
	return zobristSideToMove
}
