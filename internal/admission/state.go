// Package admission implements the visitor admission workflow: the
// decision state machine applied to pending entries, the conflict check
// against open visits and the transactional resolution paths staff use
// to clear a conflict before admitting or denying a new entry.
package admission

import (
	"fmt"
	"time"

	"github.com/venuepass/visitor-management/internal/model"
)

// Kind enumerates the states a candidate entry moves through. Pending
// and AttentionRequired are live states; Approved and Denied are
// terminal. AttentionRequired is derived, never stored: an entry is in
// it exactly while an open visit exists for the same identity at the
// same premise.
type Kind string

const (
	KindPending           Kind = "PENDING"
	KindAttentionRequired Kind = "ATTENTION_REQUIRED"
	KindApproved          Kind = "APPROVED"
	KindDenied            Kind = "DENIED"
)

// State is the tagged decision state of one candidate entry. Exactly
// the fields relevant to the Kind are set:
//
//	Pending            – nothing besides Kind.
//	AttentionRequired  – OpenVisit and Reason.
//	Approved           – Visit (the record created by the approval).
//	Denied             – Reason.
type State struct {
	Kind      Kind         `json:"kind"`
	OpenVisit *model.Visit `json:"open_visit,omitempty"`
	Visit     *model.Visit `json:"visit,omitempty"`
	Reason    string       `json:"reason,omitempty"`
}

// Pending returns the initial state of a submitted entry.
func Pending() State { return State{Kind: KindPending} }

// AttentionRequired returns the blocking sub-state referencing the open
// visit staff must resolve first.
func AttentionRequired(open *model.Visit) State {
	return State{
		Kind:      KindAttentionRequired,
		OpenVisit: open,
		Reason:    attentionReason(open.CheckedInAt),
	}
}

// Approved returns the terminal state carrying the created visit.
func Approved(v *model.Visit) State { return State{Kind: KindApproved, Visit: v} }

// Denied returns the terminal state carrying the staff reason.
func Denied(reason string) State { return State{Kind: KindDenied, Reason: reason} }

func attentionReason(since time.Time) string {
	return fmt.Sprintf("unchecked visit since %s", since.UTC().Format(time.RFC3339))
}

// Staff actions on a candidate entry.
const (
	ActionApprove        = "approve"
	ActionDeny           = "deny"
	ActionResolveApprove = "resolve_approve"
	ActionResolveDeny    = "resolve_deny"
)

var transitionMap = map[string][]Kind{
	ActionApprove:        {KindPending},
	ActionDeny:           {KindPending},
	ActionResolveApprove: {KindAttentionRequired},
	ActionResolveDeny:    {KindAttentionRequired},
}

// ValidTransition reports whether the action is allowed from the given
// state. Plain approve/deny apply only to unblocked pending entries;
// the resolve actions apply only while an open-visit conflict blocks
// the entry. Terminal states accept nothing.
func ValidTransition(action string, from Kind) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, k := range allowed {
		if k == from {
			return true
		}
	}
	return false
}
