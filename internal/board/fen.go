package board

import (
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the FEN string for the starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ParseFEN parses a FEN string and returns a Position. Both standard FEN
// and Shredder-FEN (Chess960) castling fields are accepted: the standard
// letters K/Q/k/q are normalized to a rook square by scanning the back
// rank outward from the king, while A-H/a-h name the rook's file directly.
func ParseFEN(fen string) (*Position, error) {
	parts := strings.Fields(fen)
	if len(parts) < 4 {
		return nil, fmt.Errorf("invalid FEN: need at least 4 fields, got %d", len(parts))
	}

	pos := &Position{
		EnPassant:      NoSquare,
		FullMoveNumber: 1,
		CastlingRights: NoCastlingRights(),
	}
	pos.KingSquare[White] = NoSquare
	pos.KingSquare[Black] = NoSquare

	if err := parsePiecePlacement(pos, parts[0]); err != nil {
		return nil, err
	}

	switch parts[1] {
	case "w":
		pos.SideToMove = White
	case "b":
		pos.SideToMove = Black
	default:
		return nil, fmt.Errorf("invalid side to move: %s", parts[1])
	}

	if err := parseCastlingRights(pos, parts[2]); err != nil {
		return nil, err
	}

	if parts[3] != "-" {
		sq, err := ParseSquare(parts[3])
		if err != nil {
			return nil, fmt.Errorf("invalid en passant square: %s", parts[3])
		}
		pos.EnPassant = sq
	}

	if len(parts) > 4 {
		hmc, err := strconv.Atoi(parts[4])
		if err != nil {
			return nil, fmt.Errorf("invalid half-move clock: %s", parts[4])
		}
		pos.HalfMoveClock = hmc
	}

	if len(parts) > 5 {
		fmn, err := strconv.Atoi(parts[5])
		if err != nil {
			return nil, fmt.Errorf("invalid full-move number: %s", parts[5])
		}
		pos.FullMoveNumber = fmn
	}

	pos.updateOccupied()
	pos.findKings()
	pos.UpdateCheckers()
	pos.UpdatePinsAndThreats()
	pos.Hash = pos.ComputeHash()
	pos.PawnKey = pos.ComputePawnKey()

	return pos, nil
}

// parsePiecePlacement parses the piece placement section of a FEN string.
func parsePiecePlacement(pos *Position, placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("invalid piece placement: need 8 ranks, got %d", len(ranks))
	}

	for i, rankStr := range ranks {
		rank := 7 - i
		file := 0

		for _, c := range rankStr {
			if file > 7 {
				return fmt.Errorf("too many squares in rank %d", rank+1)
			}

			if c >= '1' && c <= '8' {
				file += int(c - '0')
			} else {
				piece := PieceFromChar(byte(c))
				if piece == NoPiece {
					return fmt.Errorf("invalid piece character: %c", c)
				}
				sq := NewSquare(file, rank)
				pos.setPiece(piece, sq)
				file++
			}
		}

		if file != 8 {
			return fmt.Errorf("invalid number of squares in rank %d: got %d", rank+1, file)
		}
	}

	return nil
}

// parseCastlingRights parses the castling rights field, accepting both
// standard KQkq letters and Chess960/Shredder-FEN file letters.
func parseCastlingRights(pos *Position, castling string) error {
	if castling == "-" || castling == "" {
		return nil
	}

	for _, ch := range castling {
		switch {
		case ch == 'K':
			sq, err := findCastlingRook(pos, White, KingSide)
			if err != nil {
				return err
			}
			pos.CastlingRights.Rook[White][KingSide] = sq
		case ch == 'Q':
			sq, err := findCastlingRook(pos, White, QueenSide)
			if err != nil {
				return err
			}
			pos.CastlingRights.Rook[White][QueenSide] = sq
		case ch == 'k':
			sq, err := findCastlingRook(pos, Black, KingSide)
			if err != nil {
				return err
			}
			pos.CastlingRights.Rook[Black][KingSide] = sq
		case ch == 'q':
			sq, err := findCastlingRook(pos, Black, QueenSide)
			if err != nil {
				return err
			}
			pos.CastlingRights.Rook[Black][QueenSide] = sq
		case ch >= 'A' && ch <= 'H':
			file := int(ch - 'A')
			side, sq, err := castlingSideFromFile(pos, White, file)
			if err != nil {
				return err
			}
			pos.CastlingRights.Rook[White][side] = sq
		case ch >= 'a' && ch <= 'h':
			file := int(ch - 'a')
			side, sq, err := castlingSideFromFile(pos, Black, file)
			if err != nil {
				return err
			}
			pos.CastlingRights.Rook[Black][side] = sq
		default:
			return fmt.Errorf("invalid castling character: %c", ch)
		}
	}

	return nil
}

// findCastlingRook scans the back rank outward from the king to find the
// outermost rook on the requested side, for standard-letter (KQkq) FEN.
func findCastlingRook(pos *Position, c Color, side CastleSide) (Square, error) {
	rank := 0
	if c == Black {
		rank = 7
	}
	ksq := pos.KingSquare[c]
	if ksq == NoSquare {
		return NoSquare, fmt.Errorf("castling rights given but no king placed for %s", c)
	}
	kfile := ksq.File()

	rooks := pos.Pieces[c][Rook]
	var found Square = NoSquare
	for f := 0; f < 8; f++ {
		sq := NewSquare(f, rank)
		if rooks&SquareBB(sq) == 0 {
			continue
		}
		if side == KingSide && f > kfile {
			if found == NoSquare || f > found.File() {
				found = sq
			}
		}
		if side == QueenSide && f < kfile {
			if found == NoSquare || f < found.File() {
				found = sq
			}
		}
	}
	if found == NoSquare {
		return NoSquare, fmt.Errorf("no rook found for castling right on rank %d side %d", rank+1, side)
	}
	return found, nil
}

// castlingSideFromFile resolves a Shredder-FEN rook-file letter to a side
// (queenside if the file is left of the king, kingside if right of it).
func castlingSideFromFile(pos *Position, c Color, file int) (CastleSide, Square, error) {
	rank := 0
	if c == Black {
		rank = 7
	}
	ksq := pos.KingSquare[c]
	if ksq == NoSquare {
		return QueenSide, NoSquare, fmt.Errorf("castling rights given but no king placed for %s", c)
	}
	sq := NewSquare(file, rank)
	if file < ksq.File() {
		return QueenSide, sq, nil
	}
	return KingSide, sq, nil
}

// ToFEN returns the standard-notation FEN representation of the position.
func (p *Position) ToFEN() string {
	return p.toFEN(false)
}

// ToShredderFEN returns the Chess960/Shredder-FEN representation.
func (p *Position) ToShredderFEN() string {
	return p.toFEN(true)
}

func (p *Position) toFEN(shredder bool) string {
	var sb strings.Builder

	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			sq := NewSquare(file, rank)
			piece := p.PieceAt(sq)
			if piece == NoPiece {
				empty++
			} else {
				if empty > 0 {
					sb.WriteString(strconv.Itoa(empty))
					empty = 0
				}
				sb.WriteString(piece.String())
			}
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	sb.WriteByte(' ')
	if p.SideToMove == White {
		sb.WriteByte('w')
	} else {
		sb.WriteByte('b')
	}

	sb.WriteByte(' ')
	if shredder {
		sb.WriteString(p.CastlingRights.ShredderString())
	} else {
		sb.WriteString(p.CastlingRights.String())
	}

	sb.WriteByte(' ')
	sb.WriteString(p.EnPassant.String())

	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.HalfMoveClock))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.FullMoveNumber))

	return sb.String()
}

// ComputeHash computes the Zobrist hash for the position from scratch.
func (p *Position) ComputeHash() uint64 {
	var hash uint64

	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			bb := p.Pieces[c][pt]
			for bb != 0 {
				sq := bb.PopLSB()
				hash ^= zobristPiece[c][pt][sq]
			}
		}
	}

	if p.SideToMove == Black {
		hash ^= zobristSideToMove
	}

	hash ^= ZobristCastlingHash(p.CastlingRights)

	if p.EnPassant != NoSquare {
		hash ^= zobristEnPassant[p.EnPassant.File()]
	}

	return hash
}

// ComputePawnKey computes the pawn hash key from scratch.
func (p *Position) ComputePawnKey() uint64 {
	var key uint64

	for c := White; c <= Black; c++ {
		bb := p.Pieces[c][Pawn]
		for bb != 0 {
			sq := bb.PopLSB()
			key ^= zobristPiece[c][Pawn][sq]
		}
	}

	return key
}
