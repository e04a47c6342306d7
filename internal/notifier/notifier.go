// Package notifier fans decision side effects out to their consumers:
// the waiting visitor's browser via the realtime hub, and the premise
// contact via the message broker. Both channels are best-effort; a
// decision is already committed by the time the notifier runs.
package notifier

import (
	"context"
	"log"
	"time"

	"github.com/venuepass/visitor-management/internal/model"
	"github.com/venuepass/visitor-management/internal/queue"
	"github.com/venuepass/visitor-management/internal/realtime"
	"github.com/venuepass/visitor-management/internal/repository"
	queue_publisher "github.com/venuepass/visitor-management/internal/service"
)

// Notifier delivers decision events. Broker publishes are gated on the
// premise's notifications setting; realtime pushes always go out, since
// the visitor asked for their own status.
type Notifier struct {
	hub      *realtime.Hub
	premises *repository.PremiseRepo
}

// New returns a Notifier over the given hub and premise repository.
func New(hub *realtime.Hub, premises *repository.PremiseRepo) *Notifier {
	return &Notifier{hub: hub, premises: premises}
}

// EntryApproved pushes the approved status to the visitor and, when the
// premise has notifications on, publishes the decision to the broker.
func (n *Notifier) EntryApproved(ctx context.Context, entry model.PendingEntry, visit model.Visit) {
	now := time.Now().UTC()
	n.hub.Publish(ctx, entry.UUID, realtime.StatusEvent{Status: model.VisitStatusApproved, At: now})
	n.broker(ctx, entry.PremiseID, queue.EntryDecidedEvent{
		EntryUUID:   entry.UUID,
		PremiseID:   entry.PremiseID,
		VisitorName: entry.Name,
		IDNumber:    entry.IDNumber,
		Status:      model.VisitStatusApproved,
		DecidedAt:   now.Format(time.RFC3339),
	})
}

// EntryDenied pushes the denial, reason included, to the visitor and
// optionally to the broker.
func (n *Notifier) EntryDenied(ctx context.Context, entry model.PendingEntry, reason string) {
	now := time.Now().UTC()
	n.hub.Publish(ctx, entry.UUID, realtime.StatusEvent{Status: model.EntryStatusDenied, Reason: reason, At: now})
	n.broker(ctx, entry.PremiseID, queue.EntryDecidedEvent{
		EntryUUID:   entry.UUID,
		PremiseID:   entry.PremiseID,
		VisitorName: entry.Name,
		IDNumber:    entry.IDNumber,
		Status:      model.EntryStatusDenied,
		Reason:      reason,
		DecidedAt:   now.Format(time.RFC3339),
	})
}

// VisitExited pushes the exited status on the visit's channel. The uuid
// is carried over from the originating entry, so a client still watching
// the old screen sees the sign-out too.
func (n *Notifier) VisitExited(ctx context.Context, visit model.Visit) {
	now := time.Now().UTC()
	n.hub.Publish(ctx, visit.UUID, realtime.StatusEvent{Status: model.VisitStatusExited, At: now})
	n.broker(ctx, visit.PremiseID, queue.EntryDecidedEvent{
		EntryUUID:   visit.UUID,
		PremiseID:   visit.PremiseID,
		VisitorName: visit.Name,
		IDNumber:    visit.IDNumber,
		Status:      model.VisitStatusExited,
		DecidedAt:   now.Format(time.RFC3339),
	})
}

// broker publishes the event when the premise wants notifications. A
// premise lookup failure suppresses the publish rather than the request.
func (n *Notifier) broker(ctx context.Context, premiseID uint64, ev queue.EntryDecidedEvent) {
	premise, err := n.premises.GetByID(ctx, premiseID)
	if err != nil {
		log.Printf("notifier: premise %d lookup: %v", premiseID, err)
		return
	}
	if !premise.NotificationsEnabled {
		return
	}
	ev.PremiseName = premise.Name
	_ = queue_publisher.PublishEntryDecided(ctx, ev)
}
