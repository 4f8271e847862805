package exchange

import "slices"

// transitions lists every legal status change. Confirmation is never requested
// directly; it happens when the second party pays.
var transitions = map[string][]string{
	StatusPending:            {StatusAccepted, StatusRejected, StatusCancelled},
	StatusAccepted:           {StatusVideoCallScheduled, StatusVideoCallCompleted, StatusConfirmed, StatusCancelled},
	StatusVideoCallScheduled: {StatusVideoCallScheduled, StatusVideoCallCompleted, StatusConfirmed, StatusCancelled},
	StatusVideoCallCompleted: {StatusConfirmed, StatusCancelled},
}

// CanTransition reports whether an exchange in from may move to to
func CanTransition(from, to string) bool {
	return slices.Contains(transitions[from], to)
}

// IsPayable reports whether credits can be paid in this status
func IsPayable(status string) bool {
	return CanTransition(status, StatusConfirmed)
}

// IsDeletable reports whether an exchange in this status can be removed
func IsDeletable(status string) bool {
	switch status {
	case StatusPending, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// IsOpen reports whether the exchange can still change
func IsOpen(status string) bool {
	return len(transitions[status]) > 0
}

func validStatus(status string) bool {
	switch status {
	case StatusPending, StatusAccepted, StatusVideoCallScheduled, StatusVideoCallCompleted,
		StatusConfirmed, StatusRejected, StatusCancelled:
		return true
	}
	return false
}
