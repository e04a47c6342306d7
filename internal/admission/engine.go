package admission

import (
	"context"
	"errors"
	"strings"

	"github.com/venuepass/visitor-management/internal/model"
	"github.com/venuepass/visitor-management/internal/repository"
)

// ErrReasonRequired is returned when a decision that needs a
// human-supplied reason arrives without one. No state changes and no
// remote write happens in that case.
var ErrReasonRequired = errors.New("a non-empty reason is required")

// ErrEntryResolved is returned when the entry is no longer pending:
// either already denied, or already approved (and therefore deleted).
// Two staff racing on the same entry surface this instead of a double
// decision.
var ErrEntryResolved = errors.New("entry has already been resolved")

// ConflictError is returned when admitting an entry is blocked by an
// open visit for the same identity. It carries the AttentionRequired
// state so handlers can present the resolution dialog directly.
type ConflictError struct{ State State }

func (e *ConflictError) Error() string { return e.State.Reason }

// Store is the persistence surface the engine drives. The multi-step
// decisions (checkout-then-approve, checkout-then-deny, approve) are
// each a single atomic operation of the store: either every mutation of
// the step commits or none does, so a failure can never leave the stale
// visit closed but the entry undecided.
type Store interface {
	// Entry loads a pending entry by id; repository.ErrNotFound when absent.
	Entry(ctx context.Context, entryID uint64) (model.PendingEntry, error)
	// OpenVisit returns the most recent open visit for the identity at the
	// premise, or nil when there is none.
	OpenVisit(ctx context.Context, premiseID uint64, idnumber string) (*model.Visit, error)
	// Approve atomically creates the visit and deletes the entry. It
	// returns repository.ErrOpenVisit when an open visit exists for the
	// identity, leaving everything untouched.
	Approve(ctx context.Context, entry model.PendingEntry, approvedBy uint64) (model.Visit, error)
	// CheckoutAndApprove atomically closes the stale visit, creates the
	// new one and deletes the entry.
	CheckoutAndApprove(ctx context.Context, entry model.PendingEntry, staleVisitID uint64, checkoutReason string, approvedBy uint64) (model.Visit, error)
	// CheckoutAndDeny atomically closes the stale visit and marks the
	// entry denied.
	CheckoutAndDeny(ctx context.Context, entry model.PendingEntry, staleVisitID uint64, checkoutReason, denyReason string, deniedBy uint64) error
	// Deny marks the entry denied; the row is retained for audit.
	Deny(ctx context.Context, entryID uint64, reason string, deniedBy uint64) error
	// Checkout closes an open visit and returns its updated record.
	Checkout(ctx context.Context, visitID uint64, reason string) (model.Visit, error)
}

// Notifier receives the observable side effects of decisions: the
// realtime push to the waiting client and the broker event for the
// notification pipeline. Implementations must not fail the decision;
// delivery problems are theirs to log.
type Notifier interface {
	EntryApproved(ctx context.Context, entry model.PendingEntry, visit model.Visit)
	EntryDenied(ctx context.Context, entry model.PendingEntry, reason string)
	VisitExited(ctx context.Context, visit model.Visit)
}

// Engine executes the admission workflow over a Store and reports
// decisions through a Notifier.
type Engine struct {
	store  Store
	notify Notifier
}

// NewEngine constructs an Engine. Both dependencies must be non-nil.
func NewEngine(store Store, notify Notifier) *Engine {
	if store == nil || notify == nil {
		panic("nil dependency passed to NewEngine")
	}
	return &Engine{store: store, notify: notify}
}

// Review returns the current decision state of an entry without acting
// on it: Denied for an already-denied entry, AttentionRequired while an
// open visit blocks it, Pending otherwise.
func (e *Engine) Review(ctx context.Context, entryID uint64) (State, model.PendingEntry, error) {
	entry, err := e.store.Entry(ctx, entryID)
	if err != nil {
		return State{}, model.PendingEntry{}, err
	}
	if entry.Status == model.EntryStatusDenied {
		reason := ""
		if entry.DenialReason != nil {
			reason = *entry.DenialReason
		}
		return Denied(reason), entry, nil
	}
	open, err := e.store.OpenVisit(ctx, entry.PremiseID, entry.IDNumber)
	if err != nil {
		return State{}, model.PendingEntry{}, err
	}
	if open != nil {
		return AttentionRequired(open), entry, nil
	}
	return Pending(), entry, nil
}

// Approve admits an unblocked pending entry: the visit is created and
// the entry deleted in one atomic store operation. When an open visit
// blocks the identity, a *ConflictError carrying the AttentionRequired
// state is returned and nothing changes; staff must use ResolveApprove
// or ResolveDeny instead.
func (e *Engine) Approve(ctx context.Context, entryID, approvedBy uint64) (model.Visit, error) {
	state, entry, err := e.Review(ctx, entryID)
	if err != nil {
		return model.Visit{}, err
	}
	if state.Kind == KindAttentionRequired {
		return model.Visit{}, &ConflictError{State: state}
	}
	if !ValidTransition(ActionApprove, state.Kind) {
		return model.Visit{}, ErrEntryResolved
	}
	visit, err := e.store.Approve(ctx, entry, approvedBy)
	if err != nil {
		// A visit slipped in between the review and the conditional
		// insert; re-read it and surface the conflict instead.
		if errors.Is(err, repository.ErrOpenVisit) {
			return model.Visit{}, e.conflict(ctx, entry)
		}
		return model.Visit{}, err
	}
	e.notify.EntryApproved(ctx, entry, visit)
	return visit, nil
}

// Deny rejects an unblocked pending entry with the supplied reason. The
// entry row is retained with status DENIED for audit. An empty reason
// is rejected before any write.
func (e *Engine) Deny(ctx context.Context, entryID uint64, reason string, deniedBy uint64) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrReasonRequired
	}
	state, entry, err := e.Review(ctx, entryID)
	if err != nil {
		return err
	}
	if state.Kind == KindAttentionRequired {
		return &ConflictError{State: state}
	}
	if !ValidTransition(ActionDeny, state.Kind) {
		return ErrEntryResolved
	}
	if err := e.store.Deny(ctx, entry.ID, reason, deniedBy); err != nil {
		return err
	}
	e.notify.EntryDenied(ctx, entry, reason)
	return nil
}

// ResolveApprove clears an open-visit conflict by checking the stale
// visit out with the supplied reason and admitting the new entry, all
// in one atomic store operation. The checkout reason is a precondition;
// without it nothing changes.
func (e *Engine) ResolveApprove(ctx context.Context, entryID uint64, checkoutReason string, approvedBy uint64) (model.Visit, error) {
	checkoutReason = strings.TrimSpace(checkoutReason)
	if checkoutReason == "" {
		return model.Visit{}, ErrReasonRequired
	}
	state, entry, err := e.Review(ctx, entryID)
	if err != nil {
		return model.Visit{}, err
	}
	if !ValidTransition(ActionResolveApprove, state.Kind) {
		if state.Kind == KindPending {
			// The conflict vanished (the stale visit was checked out
			// elsewhere); a plain approve is what staff actually wants.
			return e.Approve(ctx, entryID, approvedBy)
		}
		return model.Visit{}, ErrEntryResolved
	}
	visit, err := e.store.CheckoutAndApprove(ctx, entry, state.OpenVisit.ID, checkoutReason, approvedBy)
	if err != nil {
		if errors.Is(err, repository.ErrOpenVisit) {
			return model.Visit{}, e.conflict(ctx, entry)
		}
		return model.Visit{}, err
	}
	e.notify.VisitExited(ctx, *state.OpenVisit)
	e.notify.EntryApproved(ctx, entry, visit)
	return visit, nil
}

// ResolveDeny clears an open-visit conflict by checking the stale visit
// out and denying the new entry, atomically. Both reasons are
// preconditions.
func (e *Engine) ResolveDeny(ctx context.Context, entryID uint64, checkoutReason, denyReason string, deniedBy uint64) error {
	checkoutReason = strings.TrimSpace(checkoutReason)
	denyReason = strings.TrimSpace(denyReason)
	if checkoutReason == "" || denyReason == "" {
		return ErrReasonRequired
	}
	state, entry, err := e.Review(ctx, entryID)
	if err != nil {
		return err
	}
	if !ValidTransition(ActionResolveDeny, state.Kind) {
		if state.Kind == KindPending {
			return e.Deny(ctx, entryID, denyReason, deniedBy)
		}
		return ErrEntryResolved
	}
	if err := e.store.CheckoutAndDeny(ctx, entry, state.OpenVisit.ID, checkoutReason, denyReason, deniedBy); err != nil {
		return err
	}
	e.notify.VisitExited(ctx, *state.OpenVisit)
	e.notify.EntryDenied(ctx, entry, denyReason)
	return nil
}

// Checkout closes an open visit independent of the admission workflow,
// ending the invariant-relevant window for that identity. The reason is
// optional here; only conflict resolutions require one.
func (e *Engine) Checkout(ctx context.Context, visitID uint64, reason string) (model.Visit, error) {
	visit, err := e.store.Checkout(ctx, visitID, strings.TrimSpace(reason))
	if err != nil {
		return model.Visit{}, err
	}
	e.notify.VisitExited(ctx, visit)
	return visit, nil
}

func (e *Engine) conflict(ctx context.Context, entry model.PendingEntry) error {
	open, err := e.store.OpenVisit(ctx, entry.PremiseID, entry.IDNumber)
	if err != nil {
		return err
	}
	if open == nil {
		// Conflict already gone again; tell the caller to retry.
		return repository.ErrOpenVisit
	}
	return &ConflictError{State: AttentionRequired(open)}
}
