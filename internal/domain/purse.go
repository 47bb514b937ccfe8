package domain

import "time"

// ─── Purse Types ────────────────────────────────────────────────────────────
// A purse is one rotating-savings group: fixed membership, round-based
// contributions, one payout recipient per round.

// PurseState is the lifecycle state of a purse.
type PurseState string

const (
	PurseOpen       PurseState = "OPEN"
	PurseActive     PurseState = "ACTIVE"
	PurseCompleted  PurseState = "COMPLETED"
	PurseTerminated PurseState = "TERMINATED"
)

// Terminal reports whether no further joins or contributions are accepted.
func (s PurseState) Terminal() bool {
	return s == PurseCompleted || s == PurseTerminated
}

// PurseConfig is the immutable configuration of one purse.
type PurseConfig struct {
	Token              string        `json:"token"`
	ContributionAmount int64         `json:"contribution_amount"`
	MaxMembers         int           `json:"max_members"`
	RoundInterval      time.Duration `json:"round_interval"` // next round opens this long after payout
	MaxDelay           time.Duration `json:"max_delay"`      // window past round open before force-resolution
}

// RequiredCredits is the commitment a member must post to join: enough to
// cover a default in every round where someone else receives the payout.
func (c PurseConfig) RequiredCredits() int64 {
	return c.ContributionAmount * int64(c.MaxMembers-1)
}

// Validate checks a purse configuration before creation.
func (c PurseConfig) Validate() error {
	if c.Token == "" {
		return ErrUnknownToken
	}
	if c.ContributionAmount <= 0 || c.MaxMembers < 2 {
		return ErrInvalidPurseConfig
	}
	if c.RoundInterval <= 0 || c.MaxDelay <= 0 {
		return ErrInvalidPurseConfig
	}
	return nil
}

// Member is one purse member's standing.
type Member struct {
	User                 string    `json:"user"`
	Position             int       `json:"position"` // 1-based, unique per purse
	ContributedThisRound bool      `json:"contributed_this_round"`
	ReceivedPayout       bool      `json:"received_payout"`
	TotalContributed     int64     `json:"total_contributed"`
	BackingValidator     string    `json:"backing_validator,omitempty"`
	JoinedAt             time.Time `json:"joined_at"`
}

// PurseRecord is the persistable snapshot of a purse instance.
type PurseRecord struct {
	ID           string      `json:"id"`
	State        PurseState  `json:"state"`
	Config       PurseConfig `json:"config"`
	CurrentRound int         `json:"current_round"`
	RoundTotal   int64       `json:"round_total"`
	MemberCount  int         `json:"member_count"`
	RoundOpensAt time.Time   `json:"round_opens_at"`
}
