package delegations

import (
	"github.com/shopspring/decimal"

	"github.com/vecinal/backend/internal/models"
	"github.com/vecinal/backend/pkg/apperr"
)

// checkAdmission applies the per-row delegation rules over invitation rows
// already locked by the caller: a delegator must not have an active
// delegation, and the delegate must not be delegated itself (no chains).
// Returns the summed weight to transfer.
func checkAdmission(delegators []models.Invitation, delegate *models.Invitation) (decimal.Decimal, *apperr.Error) {
	if delegate.DelegatedTo != nil {
		return decimal.Zero, apperr.Business(apperr.CodeDelegateDelegated,
			"delegate has already delegated their own weight")
	}
	total := decimal.Zero
	for i := range delegators {
		d := &delegators[i]
		if d.UserID == delegate.UserID {
			return decimal.Zero, apperr.Validation("a user cannot delegate to themselves")
		}
		if d.DelegatedTo != nil {
			return decimal.Zero, apperr.Conflict(apperr.CodeAlreadyDelegated,
				"a delegator has already delegated their weight")
		}
		total = total.Add(d.CurrentWeight)
	}
	return total, nil
}

// revokedDelegateWeight computes the delegate's weight after a revocation.
// The restored contribution is the delegator's quorum base; the result clamps
// at zero so a delegate never goes negative.
func revokedDelegateWeight(delegateCurrent, delegatorBase decimal.Decimal) decimal.Decimal {
	next := delegateCurrent.Sub(delegatorBase)
	if next.IsNegative() {
		return decimal.Zero
	}
	return next
}
