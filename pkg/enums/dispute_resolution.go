package enums

import "fmt"

// DisputeResolution is the outcome recorded when a dispute is resolved.
type DisputeResolution string

const (
	DisputeResolutionFullRefund    DisputeResolution = "full_refund"
	DisputeResolutionPartialRefund DisputeResolution = "partial_refund"
	DisputeResolutionReplacement   DisputeResolution = "replacement"
	DisputeResolutionRejected      DisputeResolution = "rejected"
)

var validDisputeResolutions = []DisputeResolution{
	DisputeResolutionFullRefund,
	DisputeResolutionPartialRefund,
	DisputeResolutionReplacement,
	DisputeResolutionRejected,
}

// String implements fmt.Stringer.
func (d DisputeResolution) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DisputeResolution.
func (d DisputeResolution) IsValid() bool {
	for _, candidate := range validDisputeResolutions {
		if candidate == d {
			return true
		}
	}
	return false
}

// RequiresRefund reports whether the resolution moves money.
func (d DisputeResolution) RequiresRefund() bool {
	return d == DisputeResolutionFullRefund || d == DisputeResolutionPartialRefund
}

// ParseDisputeResolution converts raw input into a DisputeResolution.
func ParseDisputeResolution(value string) (DisputeResolution, error) {
	for _, candidate := range validDisputeResolutions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute resolution %q", value)
}
