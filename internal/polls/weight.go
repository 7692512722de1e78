package polls

import (
	"github.com/shopspring/decimal"

	"github.com/vecinal/backend/internal/models"
	"github.com/vecinal/backend/pkg/apperr"
)

// Voter is everything known about a voter before weight resolution. Invitation
// and DefaultWeight are nil when absent.
type Voter struct {
	UserID        int64
	MeetingAdmin  bool // organizer, leader, or creator of the meeting's unit
	Invitation    *models.Invitation
	DefaultWeight *decimal.Decimal
}

// ResolveWeight decides the voting weight recorded on a response. Meeting
// admins vote with weight 1.0. Invited voters use their current,
// delegation-adjusted weight; a zero weight without an active delegation falls
// back to the quorum base (the caller logs the anomaly when fallback is true).
// Uninvited voters fall back to their membership default weight. A voter with
// an active delegation, or with no weight source at all, is rejected.
func ResolveWeight(v Voter) (weight decimal.Decimal, fallback bool, err *apperr.Error) {
	if v.MeetingAdmin {
		return decimal.NewFromInt(1), false, nil
	}
	if inv := v.Invitation; inv != nil {
		if inv.DelegatedTo != nil {
			return decimal.Zero, false, apperr.Business(apperr.CodeVoteDelegated,
				"voting weight was delegated to another attendee")
		}
		if inv.CurrentWeight.IsPositive() {
			return inv.CurrentWeight, false, nil
		}
		if inv.QuorumBase.IsPositive() {
			return inv.QuorumBase, true, nil
		}
		return decimal.Zero, false, apperr.Business(apperr.CodeNoVotingRight, "no voting weight available")
	}
	if v.DefaultWeight != nil && v.DefaultWeight.IsPositive() {
		return *v.DefaultWeight, false, nil
	}
	return decimal.Zero, false, apperr.Business(apperr.CodeNoVotingRight, "no voting weight available")
}
