package round

import "errors"

var (
	ErrInvalidTier       = errors.New("invalid supply tier")
	ErrUnknownEvent      = errors.New("unknown market event")
	ErrTeamLocked        = errors.New("team is locked")
	ErrAlreadySettled    = errors.New("team already settled this round")
	ErrInsufficientFunds = errors.New("insufficient funds for tier")
	ErrInvalidTeamID     = errors.New("team id is required")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrEmptyMessage      = errors.New("message is empty")
)

// errSkip aborts a per-team update without writing; the team is left alone.
var errSkip = errors.New("skip team")
