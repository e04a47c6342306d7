package admission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/venuepass/visitor-management/internal/model"
	"github.com/venuepass/visitor-management/internal/repository"
)

type fakeStore struct {
	entryFn              func(ctx context.Context, entryID uint64) (model.PendingEntry, error)
	openVisitFn          func(ctx context.Context, premiseID uint64, idnumber string) (*model.Visit, error)
	approveFn            func(ctx context.Context, entry model.PendingEntry, approvedBy uint64) (model.Visit, error)
	checkoutAndApproveFn func(ctx context.Context, entry model.PendingEntry, staleVisitID uint64, checkoutReason string, approvedBy uint64) (model.Visit, error)
	checkoutAndDenyFn    func(ctx context.Context, entry model.PendingEntry, staleVisitID uint64, checkoutReason, denyReason string, deniedBy uint64) error
	denyFn               func(ctx context.Context, entryID uint64, reason string, deniedBy uint64) error
	checkoutFn           func(ctx context.Context, visitID uint64, reason string) (model.Visit, error)
}

func (f *fakeStore) Entry(ctx context.Context, entryID uint64) (model.PendingEntry, error) {
	return f.entryFn(ctx, entryID)
}
func (f *fakeStore) OpenVisit(ctx context.Context, premiseID uint64, idnumber string) (*model.Visit, error) {
	if f.openVisitFn == nil {
		return nil, nil
	}
	return f.openVisitFn(ctx, premiseID, idnumber)
}
func (f *fakeStore) Approve(ctx context.Context, entry model.PendingEntry, approvedBy uint64) (model.Visit, error) {
	return f.approveFn(ctx, entry, approvedBy)
}
func (f *fakeStore) CheckoutAndApprove(ctx context.Context, entry model.PendingEntry, staleVisitID uint64, checkoutReason string, approvedBy uint64) (model.Visit, error) {
	return f.checkoutAndApproveFn(ctx, entry, staleVisitID, checkoutReason, approvedBy)
}
func (f *fakeStore) CheckoutAndDeny(ctx context.Context, entry model.PendingEntry, staleVisitID uint64, checkoutReason, denyReason string, deniedBy uint64) error {
	return f.checkoutAndDenyFn(ctx, entry, staleVisitID, checkoutReason, denyReason, deniedBy)
}
func (f *fakeStore) Deny(ctx context.Context, entryID uint64, reason string, deniedBy uint64) error {
	return f.denyFn(ctx, entryID, reason, deniedBy)
}
func (f *fakeStore) Checkout(ctx context.Context, visitID uint64, reason string) (model.Visit, error) {
	return f.checkoutFn(ctx, visitID, reason)
}

type recordedNotifier struct {
	approved []string // entry uuids
	denied   []string
	exited   []uint64 // visit ids
}

func (n *recordedNotifier) EntryApproved(ctx context.Context, entry model.PendingEntry, visit model.Visit) {
	n.approved = append(n.approved, entry.UUID)
}
func (n *recordedNotifier) EntryDenied(ctx context.Context, entry model.PendingEntry, reason string) {
	n.denied = append(n.denied, entry.UUID)
}
func (n *recordedNotifier) VisitExited(ctx context.Context, visit model.Visit) {
	n.exited = append(n.exited, visit.ID)
}

func pendingEntry() model.PendingEntry {
	return model.PendingEntry{
		ID:          11,
		UUID:        "entry-uuid",
		PremiseID:   1,
		Name:        "Dana Visitor",
		IDNumber:    "X123",
		Phone:       "555-0101",
		Status:      model.EntryStatusPending,
		SubmittedAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func openVisit() *model.Visit {
	return &model.Visit{
		ID:          7,
		UUID:        "visit-uuid",
		PremiseID:   1,
		IDNumber:    "X123",
		Status:      model.VisitStatusApproved,
		CheckedInAt: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

// A new entry for an identity with an open visit at the same premise is
// blocked as AttentionRequired, referencing that visit.
func TestReviewDetectsOpenVisitConflict(t *testing.T) {
	store := &fakeStore{
		entryFn: func(ctx context.Context, id uint64) (model.PendingEntry, error) {
			return pendingEntry(), nil
		},
		openVisitFn: func(ctx context.Context, premiseID uint64, idnumber string) (*model.Visit, error) {
			if premiseID != 1 || idnumber != "X123" {
				t.Fatalf("open visit looked up with wrong identity: %d %q", premiseID, idnumber)
			}
			return openVisit(), nil
		},
	}
	eng := NewEngine(store, &recordedNotifier{})
	state, _, err := eng.Review(context.Background(), 11)
	if err != nil {
		t.Fatal(err)
	}
	if state.Kind != KindAttentionRequired {
		t.Fatalf("state = %q, want attention required", state.Kind)
	}
	if state.OpenVisit == nil || state.OpenVisit.ID != 7 {
		t.Fatal("state must reference the blocking visit")
	}
}

func TestApproveWithoutConflictCreatesVisitAndNotifies(t *testing.T) {
	notifier := &recordedNotifier{}
	store := &fakeStore{
		entryFn: func(ctx context.Context, id uint64) (model.PendingEntry, error) {
			return pendingEntry(), nil
		},
		approveFn: func(ctx context.Context, entry model.PendingEntry, approvedBy uint64) (model.Visit, error) {
			if approvedBy != 99 {
				t.Fatalf("approvedBy = %d", approvedBy)
			}
			return model.Visit{ID: 20, UUID: entry.UUID, Status: model.VisitStatusApproved}, nil
		},
	}
	eng := NewEngine(store, notifier)
	visit, err := eng.Approve(context.Background(), 11, 99)
	if err != nil {
		t.Fatal(err)
	}
	if visit.ID != 20 {
		t.Fatalf("visit id = %d", visit.ID)
	}
	if len(notifier.approved) != 1 || notifier.approved[0] != "entry-uuid" {
		t.Fatalf("approval not pushed to the waiting client: %v", notifier.approved)
	}
}

func TestApproveBlockedByConflictReturnsConflictError(t *testing.T) {
	store := &fakeStore{
		entryFn: func(ctx context.Context, id uint64) (model.PendingEntry, error) {
			return pendingEntry(), nil
		},
		openVisitFn: func(ctx context.Context, premiseID uint64, idnumber string) (*model.Visit, error) {
			return openVisit(), nil
		},
		approveFn: func(ctx context.Context, entry model.PendingEntry, approvedBy uint64) (model.Visit, error) {
			t.Fatal("store.Approve must not be called while the entry is blocked")
			return model.Visit{}, nil
		},
	}
	eng := NewEngine(store, &recordedNotifier{})
	_, err := eng.Approve(context.Background(), 11, 99)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.State.OpenVisit.ID != 7 {
		t.Fatal("conflict must carry the open visit")
	}
}

// Race path: the review sees no conflict but the conditional insert
// loses to a concurrent approval. The engine re-reads and surfaces the
// conflict instead of a partial commit.
func TestApproveRaceLosesToConditionalInsert(t *testing.T) {
	calls := 0
	store := &fakeStore{
		entryFn: func(ctx context.Context, id uint64) (model.PendingEntry, error) {
			return pendingEntry(), nil
		},
		openVisitFn: func(ctx context.Context, premiseID uint64, idnumber string) (*model.Visit, error) {
			calls++
			if calls == 1 {
				return nil, nil // review: no conflict yet
			}
			return openVisit(), nil // after the failed insert
		},
		approveFn: func(ctx context.Context, entry model.PendingEntry, approvedBy uint64) (model.Visit, error) {
			return model.Visit{}, repository.ErrOpenVisit
		},
	}
	eng := NewEngine(store, &recordedNotifier{})
	_, err := eng.Approve(context.Background(), 11, 99)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError after losing the race, got %v", err)
	}
}

// Scenario: checkout-and-approve closes the stale visit and admits the
// new entry; both clients get their push.
func TestResolveApprove(t *testing.T) {
	notifier := &recordedNotifier{}
	store := &fakeStore{
		entryFn: func(ctx context.Context, id uint64) (model.PendingEntry, error) {
			return pendingEntry(), nil
		},
		openVisitFn: func(ctx context.Context, premiseID uint64, idnumber string) (*model.Visit, error) {
			return openVisit(), nil
		},
		checkoutAndApproveFn: func(ctx context.Context, entry model.PendingEntry, staleVisitID uint64, checkoutReason string, approvedBy uint64) (model.Visit, error) {
			if staleVisitID != 7 {
				t.Fatalf("staleVisitID = %d", staleVisitID)
			}
			if checkoutReason != "forgot to sign out" {
				t.Fatalf("checkoutReason = %q", checkoutReason)
			}
			return model.Visit{ID: 21, UUID: entry.UUID, Status: model.VisitStatusApproved}, nil
		},
	}
	eng := NewEngine(store, notifier)
	visit, err := eng.ResolveApprove(context.Background(), 11, "forgot to sign out", 99)
	if err != nil {
		t.Fatal(err)
	}
	if visit.ID != 21 {
		t.Fatalf("visit id = %d", visit.ID)
	}
	if len(notifier.exited) != 1 || notifier.exited[0] != 7 {
		t.Fatalf("stale visit exit not pushed: %v", notifier.exited)
	}
	if len(notifier.approved) != 1 {
		t.Fatalf("approval not pushed: %v", notifier.approved)
	}
}

// An empty checkout reason is rejected before any store call.
func TestResolveRequiresCheckoutReason(t *testing.T) {
	store := &fakeStore{
		entryFn: func(ctx context.Context, id uint64) (model.PendingEntry, error) {
			t.Fatal("no store call may happen without a reason")
			return model.PendingEntry{}, nil
		},
	}
	eng := NewEngine(store, &recordedNotifier{})
	if _, err := eng.ResolveApprove(context.Background(), 11, "   ", 99); !errors.Is(err, ErrReasonRequired) {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}
	if err := eng.ResolveDeny(context.Background(), 11, "", "no appointment", 99); !errors.Is(err, ErrReasonRequired) {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}
}

// Scenario: direct denial without conflict retains the entry with its
// reason; no visit is created.
func TestDenyMarksEntryAndNotifies(t *testing.T) {
	notifier := &recordedNotifier{}
	denied := false
	store := &fakeStore{
		entryFn: func(ctx context.Context, id uint64) (model.PendingEntry, error) {
			return pendingEntry(), nil
		},
		denyFn: func(ctx context.Context, entryID uint64, reason string, deniedBy uint64) error {
			if reason != "no appointment" {
				t.Fatalf("reason = %q", reason)
			}
			denied = true
			return nil
		},
	}
	eng := NewEngine(store, notifier)
	if err := eng.Deny(context.Background(), 11, "no appointment", 99); err != nil {
		t.Fatal(err)
	}
	if !denied {
		t.Fatal("store.Deny not called")
	}
	if len(notifier.denied) != 1 {
		t.Fatalf("denial not pushed: %v", notifier.denied)
	}
}

func TestDenyRequiresReason(t *testing.T) {
	store := &fakeStore{
		entryFn: func(ctx context.Context, id uint64) (model.PendingEntry, error) {
			t.Fatal("no store call may happen without a reason")
			return model.PendingEntry{}, nil
		},
	}
	eng := NewEngine(store, &recordedNotifier{})
	if err := eng.Deny(context.Background(), 11, "  ", 99); !errors.Is(err, ErrReasonRequired) {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}
}

func TestDecisionsOnResolvedEntryAreRejected(t *testing.T) {
	reason := "no badge"
	store := &fakeStore{
		entryFn: func(ctx context.Context, id uint64) (model.PendingEntry, error) {
			e := pendingEntry()
			e.Status = model.EntryStatusDenied
			e.DenialReason = &reason
			return e, nil
		},
	}
	eng := NewEngine(store, &recordedNotifier{})
	if _, err := eng.Approve(context.Background(), 11, 99); !errors.Is(err, ErrEntryResolved) {
		t.Fatalf("expected ErrEntryResolved, got %v", err)
	}
	if err := eng.Deny(context.Background(), 11, "again", 99); !errors.Is(err, ErrEntryResolved) {
		t.Fatalf("expected ErrEntryResolved, got %v", err)
	}
}

// ResolveApprove falls back to a plain approval when the conflict
// disappeared between the dialog opening and the submit.
func TestResolveApproveFallsBackWhenConflictGone(t *testing.T) {
	notifier := &recordedNotifier{}
	store := &fakeStore{
		entryFn: func(ctx context.Context, id uint64) (model.PendingEntry, error) {
			return pendingEntry(), nil
		},
		openVisitFn: func(ctx context.Context, premiseID uint64, idnumber string) (*model.Visit, error) {
			return nil, nil
		},
		approveFn: func(ctx context.Context, entry model.PendingEntry, approvedBy uint64) (model.Visit, error) {
			return model.Visit{ID: 22, UUID: entry.UUID}, nil
		},
	}
	eng := NewEngine(store, notifier)
	visit, err := eng.ResolveApprove(context.Background(), 11, "forgot to sign out", 99)
	if err != nil {
		t.Fatal(err)
	}
	if visit.ID != 22 {
		t.Fatalf("visit id = %d", visit.ID)
	}
	if len(notifier.exited) != 0 {
		t.Fatal("no stale visit existed, nothing should be exited")
	}
}

func TestCheckoutNotifiesExit(t *testing.T) {
	notifier := &recordedNotifier{}
	store := &fakeStore{
		entryFn: func(ctx context.Context, id uint64) (model.PendingEntry, error) {
			return model.PendingEntry{}, repository.ErrNotFound
		},
		checkoutFn: func(ctx context.Context, visitID uint64, reason string) (model.Visit, error) {
			v := *openVisit()
			now := time.Now().UTC()
			v.CheckedOutAt = &now
			v.Status = model.VisitStatusExited
			return v, nil
		},
	}
	eng := NewEngine(store, notifier)
	visit, err := eng.Checkout(context.Background(), 7, "left for the day")
	if err != nil {
		t.Fatal(err)
	}
	if visit.Open() {
		t.Fatal("checked-out visit must not be open")
	}
	if len(notifier.exited) != 1 {
		t.Fatalf("exit not pushed: %v", notifier.exited)
	}
}
