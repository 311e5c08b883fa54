package enums

import "fmt"

// DisputeStatus tracks the lifecycle of a dispute ticket.
type DisputeStatus string

const (
	DisputeStatusOpen              DisputeStatus = "open"
	DisputeStatusInProgress        DisputeStatus = "in_progress"
	DisputeStatusWaitingOnCustomer DisputeStatus = "waiting_on_customer"
	DisputeStatusResolved          DisputeStatus = "resolved"
	DisputeStatusClosed            DisputeStatus = "closed"
)

var validDisputeStatuses = []DisputeStatus{
	DisputeStatusOpen,
	DisputeStatusInProgress,
	DisputeStatusWaitingOnCustomer,
	DisputeStatusResolved,
	DisputeStatusClosed,
}

// String implements fmt.Stringer.
func (d DisputeStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DisputeStatus.
func (d DisputeStatus) IsValid() bool {
	for _, candidate := range validDisputeStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the ticket accepts no further transitions.
func (d DisputeStatus) IsTerminal() bool {
	return d == DisputeStatusResolved || d == DisputeStatusClosed
}

// ParseDisputeStatus converts raw input into a DisputeStatus.
func ParseDisputeStatus(value string) (DisputeStatus, error) {
	for _, candidate := range validDisputeStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute status %q", value)
}
