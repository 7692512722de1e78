package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Poll types and statuses.
const (
	PollTypeSingle   = "single"
	PollTypeMultiple = "multiple"
	PollTypeText     = "text"
	PollTypeNumeric  = "numeric"

	PollDraft  = "draft"
	PollActive = "active"
	PollClosed = "closed"
)

// Poll is a ballot instance bound to a meeting.
type Poll struct {
	ID               int64           `json:"id"`
	MeetingID        int64           `json:"meeting_id"`
	Code             string          `json:"code"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	Type             string          `json:"type"`
	Anonymous        bool            `json:"anonymous"`
	RequiresQuorum   bool            `json:"requires_quorum"`
	MinQuorumPct     decimal.Decimal `json:"min_quorum_pct"`
	AllowsAbstention bool            `json:"allows_abstention"`
	MaxSelections    int             `json:"max_selections"`
	StartedAt        *time.Time      `json:"started_at,omitempty"`
	EndedAt          *time.Time      `json:"ended_at,omitempty"`
	DurationMin      *int            `json:"duration_min,omitempty"`
	Status           string          `json:"status"`
	CreatedBy        *int64          `json:"created_by,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// IsChoice reports whether the poll takes option-based responses.
func (p *Poll) IsChoice() bool {
	return p.Type == PollTypeSingle || p.Type == PollTypeMultiple
}

// PollOption is one selectable answer with its running tally.
type PollOption struct {
	ID           int64           `json:"id"`
	PollID       int64           `json:"poll_id"`
	Text         string          `json:"text"`
	DisplayOrder int             `json:"display_order"`
	Active       bool            `json:"active"`
	VotesCount   int             `json:"votes_count"`
	WeightTotal  decimal.Decimal `json:"weight_total"`
	Percentage   decimal.Decimal `json:"percentage"`
}

// PollResponse is one voter's ballot, carrying a time-of-cast weight snapshot.
type PollResponse struct {
	ID             int64            `json:"id"`
	PollID         int64            `json:"poll_id"`
	UserID         *int64           `json:"user_id,omitempty"`
	OptionID       *int64           `json:"option_id,omitempty"`
	ResponseText   *string          `json:"response_text,omitempty"`
	ResponseNumber *decimal.Decimal `json:"response_number,omitempty"`
	VotingWeight   decimal.Decimal  `json:"voting_weight"`
	IsAbstention   bool             `json:"is_abstention"`
	RespondedAt    time.Time        `json:"responded_at"`
	IP             string           `json:"ip,omitempty"`
	UserAgent      string           `json:"user_agent,omitempty"`
}

// PollStatistics is the on-demand tally summary for a poll.
type PollStatistics struct {
	PollID              int64           `json:"poll_id"`
	Status              string          `json:"status"`
	TotalResponses      int             `json:"total_responses"`
	TotalAbstentions    int             `json:"total_abstentions"`
	WeightVoted         decimal.Decimal `json:"weight_voted"`
	WeightInvited       decimal.Decimal `json:"weight_invited"`
	ParticipationPct    decimal.Decimal `json:"participation_pct"`
	QuorumReached       bool            `json:"quorum_reached"`
	Options             []PollOption    `json:"options,omitempty"`
}
