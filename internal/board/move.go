package board

import "fmt"

// Move encodes a chess move in 16 bits:
// bits 0-5:   from square (0-63)
// bits 6-11:  to square (0-63)
// bits 12-13: promotion piece (0=Knight, 1=Bishop, 2=Rook, 3=Queen)
// bits 14-15: flags (0=normal, 1=promotion, 2=en passant, 3=castling)
//
// Castling is encoded internally in Chess960-canonical "king captures own
// rook" form: From() is the king's square, To() is the castling rook's
// square (not the king's destination square). This representation needs
// no UCI_Chess960 branch to generate or make/unmake correctly; translating
// to/from standard e1g1-style UCI text happens only at the UCI boundary.
type Move uint16

// Move flags
const (
	FlagNormal    uint16 = 0 << 14
	FlagPromotion uint16 = 1 << 14
	FlagEnPassant uint16 = 2 << 14
	FlagCastling  uint16 = 3 << 14
)

// NoMove represents an invalid or null move.
const NoMove Move = 0

// NewMove creates a normal move.
func NewMove(from, to Square) Move {
	return Move(from) | Move(to)<<6
}

// NewPromotion creates a promotion move.
func NewPromotion(from, to Square, promo PieceType) Move {
	promoIdx := promo - Knight
	return Move(from) | Move(to)<<6 | Move(promoIdx)<<12 | Move(FlagPromotion)
}

// NewEnPassant creates an en passant capture move.
func NewEnPassant(from, to Square) Move {
	return Move(from) | Move(to)<<6 | Move(FlagEnPassant)
}

// NewCastling creates a castling move. from is the king's square, rookSq
// is the square of the castling rook (the king-captures-own-rook
// canonical encoding).
func NewCastling(from, rookSq Square) Move {
	return Move(from) | Move(rookSq)<<6 | Move(FlagCastling)
}

// From returns the origin square.
func (m Move) From() Square {
	return Square(m & 0x3F)
}

// To returns the destination square (or, for castling, the rook square).
func (m Move) To() Square {
	return Square((m >> 6) & 0x3F)
}

// Flag returns the move flag.
func (m Move) Flag() uint16 {
	return uint16(m) & 0xC000
}

// Promotion returns the promotion piece type (only valid if IsPromotion() is true).
func (m Move) Promotion() PieceType {
	return PieceType((m>>12)&3) + Knight
}

// IsPromotion returns true if this is a promotion move.
func (m Move) IsPromotion() bool {
	return m.Flag() == FlagPromotion
}

// IsCastling returns true if this is a castling move.
func (m Move) IsCastling() bool {
	return m.Flag() == FlagCastling
}

// IsEnPassant returns true if this is an en passant capture.
func (m Move) IsEnPassant() bool {
	return m.Flag() == FlagEnPassant
}

// IsCapture returns true if this move captures a piece.
// Castling is never a capture even though it encodes a rook as the target.
func (m Move) IsCapture(pos *Position) bool {
	if m.IsEnPassant() {
		return true
	}
	if m.IsCastling() {
		return false
	}
	return !pos.IsEmpty(m.To())
}

// IsQuiet returns true if this is not a capture or promotion.
func (m Move) IsQuiet(pos *Position) bool {
	return !m.IsCapture(pos) && !m.IsPromotion()
}

// UCIString renders the move the way UCI move text works when
// UCI_Chess960 is off: king destination square, not the rook square.
func (m Move) UCIString(pos *Position) string {
	if m == NoMove {
		return "0000"
	}
	if m.IsCastling() {
		from := m.From()
		side := castleSideOf(pos, from, m.To())
		kingTo := NewSquare(castleKingToFile(side), from.Rank())
		return from.String() + kingTo.String()
	}

	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		promoChars := []byte{'n', 'b', 'r', 'q'}
		s += string(promoChars[m.Promotion()-Knight])
	}
	return s
}

// String renders the move in its internal (Chess960-canonical) form,
// used for logging/debugging; UCI output goes through UCIString/Chess960
// translation in the uci package instead.
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}

	s := m.From().String() + m.To().String()

	if m.IsPromotion() {
		promoChars := []byte{'n', 'b', 'r', 'q'}
		s += string(promoChars[m.Promotion()-Knight])
	}

	return s
}

// castleSideOf determines which side a castling move belongs to by
// comparing the rook's file to the king's file — valid because a
// castling right only ever exists for a rook strictly left or right of
// the king.
func castleSideOf(pos *Position, kingFrom, rookSq Square) CastleSide {
	if rookSq.File() > kingFrom.File() {
		return KingSide
	}
	return QueenSide
}

// ParseMove parses UCI move text into a Move, translating standard
// e1g1-style castling text (or, if UCI_Chess960 is on, king-captures-rook
// text) into the internal king-captures-own-rook encoding.
func ParseMove(s string, pos *Position) (Move, error) {
	if len(s) < 4 {
		return NoMove, fmt.Errorf("invalid move string: %s", s)
	}

	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, err
	}

	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, err
	}

	if len(s) == 5 {
		var promo PieceType
		switch s[4] {
		case 'n':
			promo = Knight
		case 'b':
			promo = Bishop
		case 'r':
			promo = Rook
		case 'q':
			promo = Queen
		default:
			return NoMove, fmt.Errorf("invalid promotion piece: %c", s[4])
		}
		return NewPromotion(from, to, promo), nil
	}

	piece := pos.PieceAt(from)
	if piece == NoPiece {
		return NoMove, fmt.Errorf("no piece at %s", from)
	}
	pt := piece.Type()

	if pt == King {
		us := piece.Color()
		// King-captures-own-rook text (Chess960 UCI_Chess960-on input).
		if pos.CastlingRights.Has(us, KingSide) && to == pos.CastlingRights.Rook[us][KingSide] {
			return NewCastling(from, to), nil
		}
		if pos.CastlingRights.Has(us, QueenSide) && to == pos.CastlingRights.Rook[us][QueenSide] {
			return NewCastling(from, to), nil
		}
		// Standard two-square king hop text.
		if to.File()-from.File() == 2 && pos.CastlingRights.Has(us, KingSide) {
			return NewCastling(from, pos.CastlingRights.Rook[us][KingSide]), nil
		}
		if from.File()-to.File() == 2 && pos.CastlingRights.Has(us, QueenSide) {
			return NewCastling(from, pos.CastlingRights.Rook[us][QueenSide]), nil
		}
	}

	if pt == Pawn && to == pos.EnPassant && pos.EnPassant != NoSquare {
		return NewEnPassant(from, to), nil
	}

	return NewMove(from, to), nil
}

// MoveList is a fixed-size list of moves to avoid allocations.
type MoveList struct {
	moves [256]Move
	count int
}

// NewMoveList creates an empty move list.
func NewMoveList() *MoveList {
	return &MoveList{}
}

// Add adds a move to the list.
func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

// Len returns the number of moves in the list.
func (ml *MoveList) Len() int {
	return ml.count
}

// Get returns the move at index i.
func (ml *MoveList) Get(i int) Move {
	return ml.moves[i]
}

// Set sets the move at index i.
func (ml *MoveList) Set(i int, m Move) {
	ml.moves[i] = m
}

// Swap swaps two moves in the list.
func (ml *MoveList) Swap(i, j int) {
	ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i]
}

// Clear clears the list.
func (ml *MoveList) Clear() {
	ml.count = 0
}

// Contains returns true if the list contains the move.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// Slice returns the moves as a slice.
func (ml *MoveList) Slice() []Move {
	return ml.moves[:ml.count]
}

// UndoInfo stores information needed to undo a move.
type UndoInfo struct {
	CapturedPiece  Piece
	CapturedSquare Square
	CastlingRights CastlingRights
	EnPassant      Square
	HalfMoveClock  int
	Hash           uint64
	PawnKey        uint64
	Valid          bool // True if move was actually applied
}
