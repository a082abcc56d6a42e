// Package lifecycle holds the service request state machine: which transitions exist,
// who may perform them, and how a draft is validated into a new open request.
// It does no I/O; the storage layer applies the transitions as conditional updates.
package lifecycle

import (
	"errors"
	"fmt"

	"skillswap/backend/internal/errs"
	"skillswap/backend/internal/models"
)

// Action is a requested transition.
type Action string

const (
	ActionClaim    Action = "claim"
	ActionCancel   Action = "cancel"
	ActionComplete Action = "complete"
)

// ErrAlreadyClaimed is returned by CheckClaim when the caller already holds the request.
// Claiming twice is a no-op that leads back to the existing channel.
var ErrAlreadyClaimed = errors.New("already claimed by caller")

var transitions = map[models.RequestStatus][]models.RequestStatus{
	models.RequestStatusOpen:       {models.RequestStatusInProgress, models.RequestStatusCancelled},
	models.RequestStatusInProgress: {models.RequestStatusCompleted},
}

// CanTransition reports whether the state machine has an edge from -> to.
func CanTransition(from, to models.RequestStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s models.RequestStatus) bool {
	return len(transitions[s]) == 0
}

// ActionFor maps a desired status, as sent to updateStatus, to the transition that reaches it.
func ActionFor(desired models.RequestStatus) (Action, error) {
	switch desired {
	case models.RequestStatusInProgress:
		return ActionClaim, nil
	case models.RequestStatusCancelled:
		return ActionCancel, nil
	case models.RequestStatusCompleted:
		return ActionComplete, nil
	case "":
		return "", errs.Validation("status is required")
	default:
		return "", errs.Validation("cannot move a request to status %q", desired)
	}
}

// From returns the status an action starts from and the status it produces.
func (a Action) From() models.RequestStatus {
	if a == ActionComplete {
		return models.RequestStatusInProgress
	}
	return models.RequestStatusOpen
}

func (a Action) To() models.RequestStatus {
	switch a {
	case ActionClaim:
		return models.RequestStatusInProgress
	case ActionCancel:
		return models.RequestStatusCancelled
	default:
		return models.RequestStatusCompleted
	}
}

// Check validates action a by userID against the current record.
func Check(a Action, r *models.ServiceRequest, userID string) error {
	switch a {
	case ActionClaim:
		return CheckClaim(r, userID)
	case ActionCancel:
		return CheckCancel(r, userID)
	case ActionComplete:
		return CheckComplete(r, userID)
	default:
		return errs.Validation("unknown action %q", a)
	}
}

// CheckClaim: anyone but the owner may claim an open request.
func CheckClaim(r *models.ServiceRequest, userID string) error {
	if r.OwnerID == userID {
		return errs.Authorization("the owner cannot claim their own request")
	}
	if r.Status == models.RequestStatusOpen {
		return nil
	}
	if r.Status == models.RequestStatusInProgress && r.IsAssignee(userID) {
		return ErrAlreadyClaimed
	}
	return errs.Conflict("request is %s", r.Status)
}

// CheckCancel: only the owner, only while open.
func CheckCancel(r *models.ServiceRequest, userID string) error {
	if r.OwnerID != userID {
		return errs.Authorization("only the owner can cancel a request")
	}
	if r.Status != models.RequestStatusOpen {
		return errs.State("cannot cancel a request that is %s", r.Status)
	}
	return nil
}

// CheckComplete: only while in progress, only the assignee.
// The state is checked first so that completing a terminal request reports a state error
// to the owner as well.
func CheckComplete(r *models.ServiceRequest, userID string) error {
	if r.Status != models.RequestStatusInProgress {
		return errs.State("cannot complete a request that is %s", r.Status)
	}
	if !r.IsAssignee(userID) {
		return errs.Authorization("only the assignee can complete a request")
	}
	return nil
}

// CheckDelete: only the owner, and not once negotiation history exists.
func CheckDelete(r *models.ServiceRequest, userID string) error {
	if r.OwnerID != userID {
		return errs.Authorization("only the owner can delete a request")
	}
	switch r.Status {
	case models.RequestStatusInProgress, models.RequestStatusCompleted:
		return errs.State("cannot delete a request that is %s", r.Status)
	}
	return nil
}

// ChannelStatusFor is the chat channel status mirrored from a request status.
func ChannelStatusFor(s models.RequestStatus) models.ChannelStatus {
	switch s {
	case models.RequestStatusCompleted:
		return models.ChannelStatusCompleted
	case models.RequestStatusCancelled:
		return models.ChannelStatusCancelled
	default:
		return models.ChannelStatusActive
	}
}

func (a Action) String() string { return string(a) }

// Describe is used in log lines.
func Describe(a Action, r *models.ServiceRequest) string {
	return fmt.Sprintf("%s %s (%s -> %s)", a, r.ID, r.Status, a.To())
}
