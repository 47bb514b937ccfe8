package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Authorization errors: rejected before any state change, never retried.
	ErrNotAuthorized = errors.New("caller is not authorized")

	// Insufficient-resource errors: rejected atomically, caller must resupply.
	ErrInsufficientCredits          = errors.New("insufficient credits")
	ErrInsufficientStake            = errors.New("insufficient staked collateral")
	ErrInsufficientBalance          = errors.New("insufficient token balance")
	ErrInsufficientCommittedCredits = errors.New("amount exceeds committed credits")

	// State-invariant errors: not retryable without changing the precondition.
	ErrWrongPurseState      = errors.New("operation not valid in current purse state")
	ErrPositionTaken        = errors.New("purse position already taken")
	ErrPositionOutOfRange   = errors.New("purse position out of range")
	ErrAlreadyJoined        = errors.New("user already joined this purse")
	ErrAlreadyContributed   = errors.New("member already contributed this round")
	ErrNotAMember           = errors.New("user is not a purse member")
	ErrAlreadyValidated     = errors.New("user already vouched for by this validator")
	ErrNotValidated         = errors.New("user is not vouched for by this validator")
	ErrValidatorActive      = errors.New("user already has an active validator")
	ErrValidatorExists      = errors.New("operator already has a validator")
	ErrCommitmentInactive   = errors.New("purse commitment already released")
	ErrCommitmentExists     = errors.New("purse commitment already active")
	ErrTokenMismatch        = errors.New("validator staked token does not match purse token")
	ErrInvalidPurseConfig   = errors.New("invalid purse configuration")
	ErrFeeTooHigh           = errors.New("validator fee exceeds maximum")
	ErrRoundFullyContributed = errors.New("round already fully contributed")

	// Timing errors: retryable after time passes.
	ErrStakeTimelock   = errors.New("minimum stake time not met")
	ErrDelayNotElapsed = errors.New("round delay time not exceeded")

	// Lookup errors.
	ErrUnknownToken      = errors.New("token not whitelisted")
	ErrUnknownPurse      = errors.New("purse not registered")
	ErrUnknownValidator  = errors.New("validator not registered")
	ErrNoStake           = errors.New("no stake for user and token")
	ErrNoValidatorForUser = errors.New("no backing validator for user")
)
