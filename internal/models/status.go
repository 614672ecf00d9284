package models

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// Status is the lifecycle status of an entry.
type Status string

const (
	StatusDraft         Status = "draft"
	StatusSubmitted     Status = "submitted"
	StatusApproved      Status = "approved"
	StatusRejected      Status = "rejected"
	StatusNeedsRevision Status = "needs_revision"
)

// transitions lists the statuses an entry may move to from each status.
var transitions = map[Status][]Status{
	StatusDraft:         {StatusSubmitted, StatusNeedsRevision},
	StatusSubmitted:     {StatusApproved, StatusRejected, StatusNeedsRevision, StatusDraft},
	StatusApproved:      {StatusNeedsRevision},
	StatusRejected:      {StatusDraft, StatusSubmitted, StatusNeedsRevision},
	StatusNeedsRevision: {StatusSubmitted, StatusDraft},
}

// Valid reports if the status is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports if moving from s to target is allowed.
// Staying in the same status is always allowed.
func (s Status) CanTransitionTo(target Status) bool {
	if s == target {
		return target.Valid()
	}
	return slices.Contains(transitions[s], target)
}

// Done reports if a department can consider the entry handed in.
func (s Status) Done() bool {
	return s == StatusSubmitted || s == StatusApproved
}

// ParseStatus parses a status string.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.Valid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidStatus, s)
	}
	return status, nil
}

// Priority is the priority of an entry.
type Priority string

const (
	PriorityObligatory    Priority = "obligatory"
	PriorityHigh          Priority = "high"
	PriorityMedium        Priority = "medium"
	PriorityLow           Priority = "low"
	PriorityDiscretionary Priority = "discretionary"
)

// Priorities lists all priorities from the least to the most important.
var Priorities = []Priority{
	PriorityDiscretionary,
	PriorityLow,
	PriorityMedium,
	PriorityHigh,
	PriorityObligatory,
}

// Rank returns the position of the priority in Priorities. Unknown
// priorities rank with medium.
func (p Priority) Rank() int {
	if i := slices.Index(Priorities, p); i >= 0 {
		return i
	}
	return slices.Index(Priorities, PriorityMedium)
}

// Valid reports if the priority is a known priority.
func (p Priority) Valid() bool {
	return slices.Contains(Priorities, p)
}

// ParsePriority parses a priority string.
func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidPriority, s)
	}
	return p, nil
}
