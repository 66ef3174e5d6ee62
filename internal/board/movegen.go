package board

// Legal move generation follows the "destination mask" design: compute a
// single bitboard answering "where is this side allowed to move to, given
// the current checks" once per call, compute per-piece pin masks for any
// piece pinned to its own king, and intersect. No move is ever generated
// and later discarded by make/unmake; the one exception is en passant,
// whose own discovered-check edge case (two pieces vanish off the same
// rank) needs a direct simulation no static mask captures.

// GenerateLegalMoves generates all legal moves for the position.
func (p *Position) GenerateLegalMoves() *MoveList {
	ml := NewMoveList()
	us := p.SideToMove

	p.generateKingMoves(ml, us)

	if p.Checkers.PopCount() >= 2 {
		return ml
	}

	p.generateCastlingMoves(ml, us)

	destMask := p.checkEvasionMask()
	p.generatePawnMoves(ml, us, destMask)
	p.generatePieceMoves(ml, us, Knight, destMask)
	p.generatePieceMoves(ml, us, Bishop, destMask)
	p.generatePieceMoves(ml, us, Rook, destMask)
	p.generatePieceMoves(ml, us, Queen, destMask)

	return ml
}

// GenerateCaptures generates legal captures and promotions, for quiescence search.
func (p *Position) GenerateCaptures() *MoveList {
	ml := NewMoveList()
	us := p.SideToMove

	p.generateKingCaptures(ml, us)

	if p.Checkers.PopCount() >= 2 {
		return ml
	}

	destMask := p.checkEvasionMask()
	p.generatePawnCaptures(ml, us, destMask)
	p.generatePieceCaptures(ml, us, Knight, destMask)
	p.generatePieceCaptures(ml, us, Bishop, destMask)
	p.generatePieceCaptures(ml, us, Rook, destMask)
	p.generatePieceCaptures(ml, us, Queen, destMask)

	return ml
}

// GeneratePseudoLegalMoves generates all pseudo-legal moves (may leave king
// in check). Kept for tooling/tests; the search path always uses
// GenerateLegalMoves/GenerateCaptures.
func (p *Position) GeneratePseudoLegalMoves() *MoveList {
	ml := NewMoveList()
	us := p.SideToMove
	all := ^Bitboard(0)

	p.generatePawnMoves(ml, us, all)
	p.generatePieceMoves(ml, us, Knight, all)
	p.generatePieceMoves(ml, us, Bishop, all)
	p.generatePieceMoves(ml, us, Rook, all)
	p.generatePieceMoves(ml, us, Queen, all)
	p.generateKingMoves(ml, us)
	p.generateCastlingMoves(ml, us)

	return ml
}

// checkEvasionMask returns the set of squares a non-king move is allowed to
// land on: everywhere when not in check, the checker's square plus the ray
// between it and the king when in single check, and empty (no non-king
// move is legal) in double check.
func (p *Position) checkEvasionMask() Bitboard {
	switch p.Checkers.PopCount() {
	case 0:
		return ^Bitboard(0)
	case 1:
		checkerSq := p.Checkers.LSB()
		return p.Checkers | Between(checkerSq, p.KingSquare[p.SideToMove])
	default:
		return 0
	}
}

// pinMaskFor returns the destinations a piece on sq is allowed to move to
// on account of being pinned to its own king: the full line through the
// king and the piece if pinned, or every square otherwise.
func (p *Position) pinMaskFor(sq Square, us Color) Bitboard {
	bb := SquareBB(sq)
	if p.DiagonalPins&bb != 0 || p.OrthogonalPins&bb != 0 {
		return Line(p.KingSquare[us], sq)
	}
	return ^Bitboard(0)
}

// squaresBetweenInclusive returns the squares strictly between a and b plus
// a and b themselves (a single square if a == b).
func squaresBetweenInclusive(a, b Square) Bitboard {
	if a == b {
		return SquareBB(a)
	}
	return Between(a, b) | SquareBB(a) | SquareBB(b)
}

func (p *Position) pieceAttacks(pt PieceType, from Square, occ Bitboard) Bitboard {
	switch pt {
	case Knight:
		return KnightAttacks(from)
	case Bishop:
		return BishopAttacks(from, occ)
	case Rook:
		return RookAttacks(from, occ)
	case Queen:
		return QueenAttacks(from, occ)
	default:
		return 0
	}
}

// generatePieceMoves generates moves for knights/bishops/rooks/queens.
func (p *Position) generatePieceMoves(ml *MoveList, us Color, pt PieceType, destMask Bitboard) {
	pieces := p.Pieces[us][pt]
	occ := p.AllOccupied

	for pieces != 0 {
		from := pieces.PopLSB()
		attacks := p.pieceAttacks(pt, from, occ) &^ p.Occupied[us]
		attacks &= destMask & p.pinMaskFor(from, us)
		for attacks != 0 {
			to := attacks.PopLSB()
			ml.Add(NewMove(from, to))
		}
	}
}

// generatePieceCaptures generates captures for knights/bishops/rooks/queens.
func (p *Position) generatePieceCaptures(ml *MoveList, us Color, pt PieceType, destMask Bitboard) {
	pieces := p.Pieces[us][pt]
	occ := p.AllOccupied
	enemies := p.Occupied[us.Other()]

	for pieces != 0 {
		from := pieces.PopLSB()
		attacks := p.pieceAttacks(pt, from, occ) & enemies
		attacks &= destMask & p.pinMaskFor(from, us)
		for attacks != 0 {
			to := attacks.PopLSB()
			ml.Add(NewMove(from, to))
		}
	}
}

// generateKingMoves generates non-castling king moves: any adjacent square
// not occupied by a friendly piece and not attacked by the enemy. Threats
// already has the king removed from occupancy when it was computed, so
// sliding checkers are correctly seen as still covering the square behind
// the king.
func (p *Position) generateKingMoves(ml *MoveList, us Color) {
	from := p.KingSquare[us]
	attacks := KingAttacks(from) &^ p.Occupied[us] &^ p.Threats
	for attacks != 0 {
		to := attacks.PopLSB()
		ml.Add(NewMove(from, to))
	}
}

// generateKingCaptures generates king captures only.
func (p *Position) generateKingCaptures(ml *MoveList, us Color) {
	from := p.KingSquare[us]
	attacks := KingAttacks(from) & p.Occupied[us.Other()] &^ p.Threats
	for attacks != 0 {
		to := attacks.PopLSB()
		ml.Add(NewMove(from, to))
	}
}

// canCastle checks every Chess960-general castling precondition: the right
// still held, not currently in check, every square the king or rook needs
// to pass through (other than the squares they themselves already occupy)
// empty, and every square on the king's path (start, destination, and
// between) not attacked.
func (p *Position) canCastle(us Color, side CastleSide) bool {
	if !p.CastlingRights.Has(us, side) {
		return false
	}
	if p.Checkers != 0 {
		return false
	}

	them := us.Other()
	kingFrom := p.KingSquare[us]
	rookFrom := p.CastlingRights.Rook[us][side]
	rank := kingFrom.Rank()
	kingTo := NewSquare(castleKingToFile(side), rank)
	rookTo := NewSquare(castleRookToFile(side), rank)

	occMask := (squaresBetweenInclusive(kingFrom, kingTo) | squaresBetweenInclusive(rookFrom, rookTo)) &^ SquareBB(kingFrom) &^ SquareBB(rookFrom)
	if p.AllOccupied&occMask != 0 {
		return false
	}

	path := squaresBetweenInclusive(kingFrom, kingTo)
	for path != 0 {
		sq := path.PopLSB()
		if p.IsSquareAttacked(sq, them) {
			return false
		}
	}

	return true
}

// generateCastlingMoves generates legal castling moves, encoded as the king
// capturing its own rook.
func (p *Position) generateCastlingMoves(ml *MoveList, us Color) {
	if p.canCastle(us, KingSide) {
		ml.Add(NewCastling(p.KingSquare[us], p.CastlingRights.Rook[us][KingSide]))
	}
	if p.canCastle(us, QueenSide) {
		ml.Add(NewCastling(p.KingSquare[us], p.CastlingRights.Rook[us][QueenSide]))
	}
}

// generatePawnMoves generates pawn pushes, captures, promotions, and en
// passant, respecting the check-evasion and pin masks per pawn.
func (p *Position) generatePawnMoves(ml *MoveList, us Color, destMask Bitboard) {
	them := us.Other()
	pawns := p.Pieces[us][Pawn]
	empty := ^p.AllOccupied
	promoRank := Rank8
	if us == Black {
		promoRank = Rank1
	}

	for pawns != 0 {
		from := pawns.PopLSB()
		fromBB := SquareBB(from)
		pinMask := p.pinMaskFor(from, us)

		var push1, push2, caps Bitboard
		if us == White {
			push1 = fromBB.North() & empty
			push2 = (push1 & Rank3).North() & empty
			caps = (fromBB.NorthWest() | fromBB.NorthEast()) & p.Occupied[them]
		} else {
			push1 = fromBB.South() & empty
			push2 = (push1 & Rank6).South() & empty
			caps = (fromBB.SouthWest() | fromBB.SouthEast()) & p.Occupied[them]
		}

		targets := (push1 | push2 | caps) & destMask & pinMask
		for targets != 0 {
			to := targets.PopLSB()
			if SquareBB(to)&promoRank != 0 {
				addPromotions(ml, from, to)
			} else {
				ml.Add(NewMove(from, to))
			}
		}

		if p.EnPassant != NoSquare {
			epTo := p.EnPassant
			var epAttack Bitboard
			if us == White {
				epAttack = (fromBB.NorthWest() | fromBB.NorthEast()) & SquareBB(epTo)
			} else {
				epAttack = (fromBB.SouthWest() | fromBB.SouthEast()) & SquareBB(epTo)
			}
			if epAttack != 0 && p.epLegal(from, epTo, us) {
				ml.Add(NewEnPassant(from, epTo))
			}
		}
	}
}

// generatePawnCaptures generates pawn captures, capturing promotions,
// promoting pushes, and en passant (quiescence's definition of "tactical").
func (p *Position) generatePawnCaptures(ml *MoveList, us Color, destMask Bitboard) {
	them := us.Other()
	pawns := p.Pieces[us][Pawn]
	empty := ^p.AllOccupied
	promoRank := Rank8
	if us == Black {
		promoRank = Rank1
	}

	for pawns != 0 {
		from := pawns.PopLSB()
		fromBB := SquareBB(from)
		pinMask := p.pinMaskFor(from, us)

		var push1, caps Bitboard
		if us == White {
			push1 = fromBB.North() & empty & Rank8
			caps = (fromBB.NorthWest() | fromBB.NorthEast()) & p.Occupied[them]
		} else {
			push1 = fromBB.South() & empty & Rank1
			caps = (fromBB.SouthWest() | fromBB.SouthEast()) & p.Occupied[them]
		}

		targets := (push1 | caps) & destMask & pinMask
		for targets != 0 {
			to := targets.PopLSB()
			if SquareBB(to)&promoRank != 0 {
				addPromotions(ml, from, to)
			} else {
				ml.Add(NewMove(from, to))
			}
		}

		if p.EnPassant != NoSquare {
			epTo := p.EnPassant
			var epAttack Bitboard
			if us == White {
				epAttack = (fromBB.NorthWest() | fromBB.NorthEast()) & SquareBB(epTo)
			} else {
				epAttack = (fromBB.SouthWest() | fromBB.SouthEast()) & SquareBB(epTo)
			}
			if epAttack != 0 && p.epLegal(from, epTo, us) {
				ml.Add(NewEnPassant(from, epTo))
			}
		}
	}
}

// addPromotions adds all four promotion moves.
func addPromotions(ml *MoveList, from, to Square) {
	ml.Add(NewPromotion(from, to, Queen))
	ml.Add(NewPromotion(from, to, Rook))
	ml.Add(NewPromotion(from, to, Bishop))
	ml.Add(NewPromotion(from, to, Knight))
}

// epLegal checks the legality of an en passant capture beyond the plain
// pin/check-evasion masks: check evasion only permits it when the checker
// is the pawn being captured, an orthogonal pin forbids it outright (a
// pawn pinned along a rank/file can never move diagonally), and a
// diagonal pin requires the destination to stay on the pin line. The
// remaining case — capturing and captured pawn both vanishing from the
// same rank exposes the king to a rook/queen along that rank — is not
// expressible as a static mask, so it is resolved by simulating the two
// removals directly.
func (p *Position) epLegal(from, epTo Square, us Color) bool {
	them := us.Other()
	var capSq Square
	if us == White {
		capSq = epTo - 8
	} else {
		capSq = epTo + 8
	}

	if p.Checkers != 0 && p.Checkers != SquareBB(capSq) {
		return false
	}
	if p.OrthogonalPins&SquareBB(from) != 0 {
		return false
	}
	if p.DiagonalPins&SquareBB(from) != 0 && Line(p.KingSquare[us], from)&SquareBB(epTo) == 0 {
		return false
	}

	v := NewVBoard(p)
	v.Pieces[us][Pawn] &^= SquareBB(from)
	v.Occupied[us] &^= SquareBB(from)
	v.Pieces[them][Pawn] &^= SquareBB(capSq)
	v.Occupied[them] &^= SquareBB(capSq)
	v.Pieces[us][Pawn] |= SquareBB(epTo)
	v.Occupied[us] |= SquareBB(epTo)
	v.AllOccupied = v.Occupied[White] | v.Occupied[Black]

	return !v.IsKingAttacked(p.KingSquare[us], them)
}

// IsLegal reports whether a pseudo-legal move (e.g. a transposition-table
// or killer move probed before it's known to still apply) is legal in the
// current position, without generating the full move list.
func (p *Position) IsLegal(m Move) bool {
	if m == NoMove {
		return false
	}

	from := m.From()
	piece := p.PieceAt(from)
	if piece == NoPiece || piece.Color() != p.SideToMove {
		return false
	}

	us := p.SideToMove
	them := us.Other()

	if m.IsCastling() {
		side := castleSideOf(p, from, m.To())
		return p.canCastle(us, side)
	}

	ksq := p.KingSquare[us]
	to := m.To()

	if from == ksq {
		if p.Occupied[us]&SquareBB(to) != 0 {
			return false
		}
		occ := p.AllOccupied &^ SquareBB(from)
		return p.AttackersByColor(to, them, occ) == 0
	}

	if m.IsEnPassant() {
		if to != p.EnPassant {
			return false
		}
		return p.epLegal(from, to, us)
	}

	destMask := p.checkEvasionMask()
	if destMask == 0 {
		return false
	}
	if p.Occupied[us]&SquareBB(to) != 0 {
		return false
	}
	if destMask&SquareBB(to) == 0 {
		return false
	}
	return p.pinMaskFor(from, us)&SquareBB(to) != 0
}

// MakeMove applies a move to the position and returns undo information.
func (p *Position) MakeMove(m Move) UndoInfo {
	undo := UndoInfo{
		CapturedPiece:  NoPiece,
		CapturedSquare: NoSquare,
		CastlingRights: p.CastlingRights,
		EnPassant:      p.EnPassant,
		HalfMoveClock:  p.HalfMoveClock,
		Hash:           p.Hash,
		PawnKey:        p.PawnKey,
		Valid:          false,
	}

	us := p.SideToMove
	them := us.Other()
	from := m.From()
	to := m.To()
	piece := p.PieceAt(from)

	if piece == NoPiece {
		return undo
	}
	undo.Valid = true
	pt := piece.Type()

	p.Hash ^= zobristSideToMove
	p.Hash ^= ZobristCastlingHash(p.CastlingRights)
	if p.EnPassant != NoSquare {
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
	}
	p.EnPassant = NoSquare

	if m.IsCastling() {
		side := castleSideOf(p, from, to)
		rank := from.Rank()
		kingTo := NewSquare(castleKingToFile(side), rank)
		rookTo := NewSquare(castleRookToFile(side), rank)
		rookFrom := to

		p.Pieces[us][King] &^= SquareBB(from)
		p.Pieces[us][Rook] &^= SquareBB(rookFrom)
		p.Pieces[us][King] |= SquareBB(kingTo)
		p.Pieces[us][Rook] |= SquareBB(rookTo)
		p.KingSquare[us] = kingTo
		p.recomputeOccupiedColor(us)

		p.Hash ^= zobristPiece[us][King][from]
		p.Hash ^= zobristPiece[us][King][kingTo]
		p.Hash ^= zobristPiece[us][Rook][rookFrom]
		p.Hash ^= zobristPiece[us][Rook][rookTo]

		p.CastlingRights.ClearColor(us)
	} else {
		if m.IsEnPassant() {
			var capturedSq Square
			if us == White {
				capturedSq = to - 8
			} else {
				capturedSq = to + 8
			}
			undo.CapturedPiece = p.removePiece(capturedSq)
			undo.CapturedSquare = capturedSq
			p.Hash ^= zobristPiece[them][Pawn][capturedSq]
			p.PawnKey ^= zobristPiece[them][Pawn][capturedSq]
		} else if captured := p.PieceAt(to); captured != NoPiece {
			undo.CapturedPiece = captured
			undo.CapturedSquare = to
			p.removePiece(to)
			p.Hash ^= zobristPiece[them][captured.Type()][to]
			if captured.Type() == Pawn {
				p.PawnKey ^= zobristPiece[them][Pawn][to]
			}
			if captured.Type() == Rook {
				for s := QueenSide; s <= KingSide; s++ {
					if p.CastlingRights.Rook[them][s] == to {
						p.CastlingRights.Clear(them, s)
					}
				}
			}
		}

		p.movePiece(from, to)
		p.Hash ^= zobristPiece[us][pt][from]
		p.Hash ^= zobristPiece[us][pt][to]
		if pt == Pawn {
			p.PawnKey ^= zobristPiece[us][pt][from]
			p.PawnKey ^= zobristPiece[us][pt][to]
		}

		if m.IsPromotion() {
			promoPt := m.Promotion()
			p.Pieces[us][Pawn] &^= SquareBB(to)
			p.Pieces[us][promoPt] |= SquareBB(to)
			p.Hash ^= zobristPiece[us][Pawn][to]
			p.Hash ^= zobristPiece[us][promoPt][to]
			p.PawnKey ^= zobristPiece[us][Pawn][to]
		}

		if pt == King {
			p.CastlingRights.ClearColor(us)
		} else if pt == Rook {
			for s := QueenSide; s <= KingSide; s++ {
				if p.CastlingRights.Rook[us][s] == from {
					p.CastlingRights.Clear(us, s)
				}
			}
		}
	}

	p.Hash ^= ZobristCastlingHash(p.CastlingRights)

	if pt == Pawn && abs(int(to)-int(from)) == 16 {
		epSquare := Square((int(from) + int(to)) / 2)
		p.EnPassant = epSquare
		p.Hash ^= zobristEnPassant[epSquare.File()]
	}

	if pt == Pawn || undo.CapturedPiece != NoPiece {
		p.HalfMoveClock = 0
	} else {
		p.HalfMoveClock++
	}

	if us == Black {
		p.FullMoveNumber++
	}

	p.SideToMove = them
	p.Ply++
	p.FromNull = false

	p.UpdateCheckers()
	p.UpdatePinsAndThreats()

	return undo
}

// UnmakeMove undoes a move using the stored undo information.
func (p *Position) UnmakeMove(m Move, undo UndoInfo) {
	them := p.SideToMove
	us := them.Other()
	from := m.From()
	to := m.To()

	p.CastlingRights = undo.CastlingRights
	p.EnPassant = undo.EnPassant
	p.HalfMoveClock = undo.HalfMoveClock
	p.Hash = undo.Hash
	p.PawnKey = undo.PawnKey
	p.SideToMove = us
	p.Ply--

	if us == Black {
		p.FullMoveNumber--
	}

	if m.IsCastling() {
		side := castleSideOf(p, from, to)
		rank := from.Rank()
		kingTo := NewSquare(castleKingToFile(side), rank)
		rookTo := NewSquare(castleRookToFile(side), rank)
		rookFrom := to

		p.Pieces[us][King] &^= SquareBB(kingTo)
		p.Pieces[us][Rook] &^= SquareBB(rookTo)
		p.Pieces[us][King] |= SquareBB(from)
		p.Pieces[us][Rook] |= SquareBB(rookFrom)
		p.KingSquare[us] = from
		p.recomputeOccupiedColor(us)
	} else {
		if m.IsPromotion() {
			promoPt := m.Promotion()
			p.Pieces[us][promoPt] &^= SquareBB(to)
			p.Pieces[us][Pawn] |= SquareBB(to)
		}

		p.movePiece(to, from)

		if undo.CapturedPiece != NoPiece {
			p.setPiece(undo.CapturedPiece, undo.CapturedSquare)
		}
	}

	p.UpdateCheckers()
	p.UpdatePinsAndThreats()
}

// HasLegalMoves returns true if the side to move has any legal moves.
func (p *Position) HasLegalMoves() bool {
	return p.GenerateLegalMoves().Len() > 0
}

// IsCheckmate returns true if the position is checkmate.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

// IsStalemate returns true if the position is stalemate.
func (p *Position) IsStalemate() bool {
	return !p.InCheck() && !p.HasLegalMoves()
}

// IsDraw returns true if the position is a draw (stalemate, 50-move, insufficient material).
func (p *Position) IsDraw() bool {
	if p.IsStalemate() {
		return true
	}
	if p.HalfMoveClock >= 100 {
		return true
	}
	return p.IsInsufficientMaterial()
}

// IsInsufficientMaterial returns true if neither side can checkmate.
func (p *Position) IsInsufficientMaterial() bool {
	if p.Pieces[White][Pawn]|p.Pieces[Black][Pawn] != 0 ||
		p.Pieces[White][Rook]|p.Pieces[Black][Rook] != 0 ||
		p.Pieces[White][Queen]|p.Pieces[Black][Queen] != 0 {
		return false
	}

	wKnights := p.Pieces[White][Knight].PopCount()
	wBishops := p.Pieces[White][Bishop].PopCount()
	bKnights := p.Pieces[Black][Knight].PopCount()
	bBishops := p.Pieces[Black][Bishop].PopCount()

	if wKnights+wBishops+bKnights+bBishops == 0 {
		return true
	}
	if wKnights+wBishops <= 1 && bKnights+bBishops == 0 {
		return true
	}
	if bKnights+bBishops <= 1 && wKnights+wBishops == 0 {
		return true
	}

	return false
}

// Perft counts leaf nodes at depth, for move generator testing. Not
// exposed over UCI — it's a development/test utility only.
func (p *Position) Perft(depth int) uint64 {
	if depth == 0 {
		return 1
	}

	ml := p.GenerateLegalMoves()
	if depth == 1 {
		return uint64(ml.Len())
	}

	var nodes uint64
	for i := 0; i < ml.Len(); i++ {
		m := ml.Get(i)
		undo := p.MakeMove(m)
		nodes += p.Perft(depth - 1)
		p.UnmakeMove(m, undo)
	}
	return nodes
}
