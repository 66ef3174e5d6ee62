package nnue

import "github.com/hailam/heimdall/internal/board"

// kingBucketTable maps a king's square, already mirrored into its own
// perspective, to one of NumInputBuckets input buckets. Kings on the same
// wing and rank band share a bucket; the table is horizontally
// symmetric, since a king on the a-file sees the board the same way a
// king on the h-file does from the other side.
var kingBucketTable = [NumSquares]int{
	0, 0, 1, 1, 1, 1, 0, 0,
	2, 2, 3, 3, 3, 3, 2, 2,
	4, 4, 5, 5, 5, 5, 4, 4,
	4, 4, 5, 5, 5, 5, 4, 4,
	6, 6, 7, 7, 7, 7, 6, 6,
	6, 6, 7, 7, 7, 7, 6, 6,
	6, 6, 7, 7, 7, 7, 6, 6,
	6, 6, 7, 7, 7, 7, 6, 6,
}

// perspectiveSquare returns sq as seen from perspective: White's view is
// vertically flipped, Black's is not (the inverse of the classical
// HalfKP convention, which mirrors Black instead).
func perspectiveSquare(perspective board.Color, sq board.Square) board.Square {
	if perspective == board.White {
		return sq.Mirror()
	}
	return sq
}

// KingBucket returns the input bucket selected by the perspective's own
// king square.
func KingBucket(perspective board.Color, kingSquare board.Square) int {
	return kingBucketTable[perspectiveSquare(perspective, kingSquare)]
}

// FeatureIndex computes a piece's feature index within its bucket's
// 768-wide slab, from perspective's point of view: pieces belonging to
// perspective occupy the first half of the index space, enemy pieces the
// second half, so a perspective's own king and the enemy king always
// land in fixed, perspective-independent halves.
func FeatureIndex(perspective, pieceColor board.Color, pieceType board.PieceType, pieceSquare board.Square) int {
	sq := int(perspectiveSquare(perspective, pieceSquare))
	colorBit := 0
	if pieceColor != perspective {
		colorBit = 1
	}
	return (colorBit*NumPieceKinds+int(pieceType))*NumSquares + sq
}

// feature pairs a bucket-relative index with the bucket it belongs to.
type feature struct {
	bucket int
	index  int
}

// activeFeatures returns every occupied square's feature, from
// perspective's point of view.
func activeFeatures(pos *board.Position, perspective board.Color) []feature {
	bucket := KingBucket(perspective, pos.KingSquare[perspective])
	features := make([]feature, 0, 32)

	for color := board.White; color <= board.Black; color++ {
		for pt := board.Pawn; pt <= board.King; pt++ {
			pieces := pos.Pieces[color][pt]
			for pieces != 0 {
				sq := pieces.PopLSB()
				idx := FeatureIndex(perspective, color, pt, sq)
				features = append(features, feature{bucket: bucket, index: idx})
			}
		}
	}
	return features
}

// GetActiveFeatures returns every occupied square's feature for both
// perspectives, for a full accumulator recompute.
func GetActiveFeatures(pos *board.Position) (white, black []feature) {
	return activeFeatures(pos, board.White), activeFeatures(pos, board.Black)
}

// changedFeatures describes the incremental add/remove set for one
// perspective following a move already applied to pos.
type changedFeatures struct {
	add []feature
	rem []feature
}

// GetChangedFeatures returns the add/remove feature sets for both
// perspectives following a move already made on pos. The caller must
// have already confirmed neither king moved (a king move changes that
// perspective's own bucket and forces a full refresh instead).
func GetChangedFeatures(pos *board.Position, m board.Move, captured board.Piece) (white, black changedFeatures) {
	from, to := m.From(), m.To()
	moved := pos.PieceAt(to)
	if moved == board.NoPiece {
		return
	}
	movingPT := moved.Type()
	movingColor := moved.Color()

	addPT := movingPT
	if m.IsPromotion() {
		addPT = m.Promotion()
	}

	for _, perspective := range [2]board.Color{board.White, board.Black} {
		bucket := KingBucket(perspective, pos.KingSquare[perspective])
		var cf changedFeatures

		cf.rem = append(cf.rem, feature{bucket, FeatureIndex(perspective, movingColor, movingPT, from)})
		cf.add = append(cf.add, feature{bucket, FeatureIndex(perspective, movingColor, addPT, to)})

		if captured != board.NoPiece && captured.Type() != board.King {
			capSq := to
			if m.IsEnPassant() {
				if movingColor == board.White {
					capSq = to - 8
				} else {
					capSq = to + 8
				}
			}
			cf.rem = append(cf.rem, feature{bucket, FeatureIndex(perspective, captured.Color(), captured.Type(), capSq)})
		}

		if perspective == board.White {
			white = cf
		} else {
			black = cf
		}
	}
	return
}
