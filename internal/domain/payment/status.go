package payment

import "strings"

// Status is the canonical transaction state
type Status string

const (
	StatusInitiated Status = "INITIATED"
	StatusPending   Status = "PENDING"
	StatusSuccess   Status = "SUCCESS"
	StatusFailed    Status = "FAILED"
)

// IsTerminal reports whether the status permits no further transitions
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// NormalizeStatus maps a raw processor-reported status string onto the
// canonical enumeration. Matching is case-insensitive and total: anything
// unrecognized (including an empty string) resolves to PENDING, never to
// SUCCESS. Already-canonical inputs map to themselves.
func NormalizeStatus(raw string) Status {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SUCCESS", "SUCCEEDED":
		return StatusSuccess
	case "FAIL", "FAILED", "FAILURE":
		return StatusFailed
	case "INITIATED":
		return StatusInitiated
	default:
		return StatusPending
	}
}
