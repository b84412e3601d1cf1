package domain

import "time"

type CheckoutStatus string

const (
	CheckoutStatusReviewing  CheckoutStatus = "REVIEWING"
	CheckoutStatusConfirming CheckoutStatus = "CONFIRMING"
	CheckoutStatusConfirmed  CheckoutStatus = "CONFIRMED"
	CheckoutStatusExpired    CheckoutStatus = "EXPIRED"
)

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusConfirmed || s == CheckoutStatusExpired
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}

var checkoutTransitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusReviewing:  {CheckoutStatusConfirming, CheckoutStatusExpired},
	CheckoutStatusConfirming: {CheckoutStatusConfirmed, CheckoutStatusReviewing},
}

// CanTransitionTo reports whether the checkout state machine allows moving
// from one status to another. Confirming may fall back to Reviewing when the
// ledger write fails, so the purchase can be retried.
func CanTransitionTo(from, to CheckoutStatus) bool {
	for _, allowed := range checkoutTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CheckoutSession is one in-progress checkout attempt. Line items and the
// base total are frozen at Begin time; DiscountApplied is a latch that is
// never reset within a session.
type CheckoutSession struct {
	ID              string
	UserID          int64
	Items           []LineItem
	BaseTotal       int64
	DiscountApplied bool
	Status          CheckoutStatus
	CreatedAt       time.Time
	ExpiresAt       time.Time
}
