package domain

// PaymentState is the position of a checkout session in its lifecycle.
type PaymentState string

const (
	PaymentStateIdle                  PaymentState = "IDLE"
	PaymentStateCollectingInfo        PaymentState = "COLLECTING_INFO"
	PaymentStateAwaitingGatewayResult PaymentState = "AWAITING_GATEWAY_RESULT"
	PaymentStateVerifying             PaymentState = "VERIFYING"
	PaymentStateSucceeded             PaymentState = "SUCCEEDED"
	PaymentStateFailed                PaymentState = "FAILED"
	PaymentStateCancelled             PaymentState = "CANCELLED"
)

var allowedTransitions = map[PaymentState][]PaymentState{
	PaymentStateIdle:                  {PaymentStateCollectingInfo},
	PaymentStateCollectingInfo:        {PaymentStateCollectingInfo, PaymentStateAwaitingGatewayResult},
	PaymentStateAwaitingGatewayResult: {PaymentStateVerifying, PaymentStateCancelled, PaymentStateCollectingInfo},
	PaymentStateVerifying:             {PaymentStateSucceeded, PaymentStateFailed},
	PaymentStateSucceeded:             {PaymentStateCollectingInfo},
	PaymentStateFailed:                {PaymentStateCollectingInfo},
	PaymentStateCancelled:             {PaymentStateCollectingInfo},
}

// CanTransitionTo reports whether the lifecycle allows moving from one state to
// another. Explicit cancellation back to Idle is allowed from anywhere and is
// not listed here.
func CanTransitionTo(from, to PaymentState) bool {
	if to == PaymentStateIdle {
		return true
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the session has finished.
func (s PaymentState) IsTerminal() bool {
	return s == PaymentStateSucceeded || s == PaymentStateFailed || s == PaymentStateCancelled
}

// PaymentInFlight reports whether a gateway or verification call may be outstanding.
func (s PaymentState) PaymentInFlight() bool {
	return s == PaymentStateAwaitingGatewayResult || s == PaymentStateVerifying
}

// String representation (for logging)
func (s PaymentState) String() string {
	return string(s)
}
