package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Meeting statuses.
const (
	MeetingScheduled = "scheduled"
	MeetingLive      = "live"
	MeetingCompleted = "completed"
	MeetingCancelled = "cancelled"
)

// Meeting is a scheduled deliberative assembly of a unit's co-owners.
type Meeting struct {
	ID                   int64      `json:"id"`
	UnitID               int64      `json:"unit_id"`
	Code                 string     `json:"code"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	MeetingType          string     `json:"meeting_type"`
	ScheduledAt          time.Time  `json:"scheduled_at"`
	EstimatedDurationMin int        `json:"estimated_duration_min"`
	OrganizerID          int64      `json:"organizer_id"`
	LeaderID             *int64     `json:"leader_id,omitempty"`
	ConferenceID         string     `json:"conference_id,omitempty"`
	JoinURL              string     `json:"join_url,omitempty"`
	StartURL             string     `json:"start_url,omitempty"`
	AllowDelegates       bool       `json:"allow_delegates"`
	Status               string     `json:"status"`
	QuorumReached        bool       `json:"quorum_reached"`
	QuorumThresholdPct   decimal.Decimal `json:"quorum_threshold_pct"`
	TotalInvited         int        `json:"total_invited"`
	TotalConfirmed       int        `json:"total_confirmed"`
	ActualStartAt        *time.Time `json:"actual_start_at,omitempty"`
	ActualEndAt          *time.Time `json:"actual_end_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// IsOrganizerOrLeader reports whether the user runs this meeting.
func (m *Meeting) IsOrganizerOrLeader(userID int64) bool {
	if m.OrganizerID == userID {
		return true
	}
	return m.LeaderID != nil && *m.LeaderID == userID
}

// Invitation is the per-(meeting,user) row carrying the quorum base and the
// current, delegation-adjusted voting weight.
type Invitation struct {
	ID               int64           `json:"id"`
	MeetingID        int64           `json:"meeting_id"`
	UserID           int64           `json:"user_id"`
	QuorumBase       decimal.Decimal `json:"quorum_base"`
	CurrentWeight    decimal.Decimal `json:"current_weight"`
	ApartmentNumber  string          `json:"apartment_number"`
	InvitationStatus string          `json:"invitation_status"`
	ResponseStatus   string          `json:"response_status"`
	WillAttend       bool            `json:"will_attend"`
	DelegatedTo      *int64          `json:"delegated_to,omitempty"`
	ActuallyAttended bool            `json:"actually_attended"`
	JoinedAt         *time.Time      `json:"joined_at,omitempty"`
	LeftAt           *time.Time      `json:"left_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// DelegationLog is an append-only record of a weight transfer or its reversal.
type DelegationLog struct {
	ID          int64           `json:"id"`
	MeetingID   int64           `json:"meeting_id"`
	DelegatorID int64           `json:"delegator_id"`
	DelegateID  int64           `json:"delegate_id"`
	Weight      decimal.Decimal `json:"weight"`
	Action      string          `json:"action"`
	ActorID     *int64          `json:"actor_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
