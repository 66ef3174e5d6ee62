package board

// DebugMoveValidation gates the engine and UCI packages' expensive
// consistency checks (piece bitboard / occupancy / hash agreement). Off by
// default; toggled at runtime via the "debug" UCI command.
var DebugMoveValidation bool
