package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/venuepass/visitor-management/internal/model"
	"github.com/venuepass/visitor-management/internal/realtime"
	"github.com/venuepass/visitor-management/internal/repository"
)

// pollInterval is how often the stream falls back to re-reading the
// database when Redis is not configured.
const pollInterval = 2 * time.Second

// StatusHandler pushes an entry's decision to the waiting visitor.  The
// client that submitted the intake form opens the stream and renders
// the terminal screen (approved/denied/exited) the moment staff decide;
// a one-shot status endpoint backs clients that cannot hold a stream.
type StatusHandler struct {
	Hub     *realtime.Hub
	Entries *repository.EntryRepo
	Visits  *repository.VisitRepo
}

func NewStatusHandler(hub *realtime.Hub, e *repository.EntryRepo, v *repository.VisitRepo) *StatusHandler {
	return &StatusHandler{Hub: hub, Entries: e, Visits: v}
}

// current resolves the uuid across both tables.  An entry row means the
// submission is still pending or was denied; approval moves the row to
// visits under the same uuid, so a miss there is checked against visits
// before concluding the uuid is unknown.
func (h *StatusHandler) current(ctx context.Context, uuid string) (realtime.StatusEvent, bool, error) {
	entry, err := h.Entries.GetByUUID(ctx, uuid)
	switch {
	case err == nil:
		ev := realtime.StatusEvent{Status: entry.Status, At: entry.SubmittedAt}
		if entry.Status == model.EntryStatusDenied {
			if entry.DenialReason != nil {
				ev.Reason = *entry.DenialReason
			}
			if entry.ProcessedAt != nil {
				ev.At = *entry.ProcessedAt
			}
		}
		return ev, true, nil
	case err != sql.ErrNoRows:
		return realtime.StatusEvent{}, false, err
	}

	visit, err := h.Visits.GetByUUID(ctx, uuid)
	switch {
	case err == nil:
		ev := realtime.StatusEvent{Status: visit.Status, At: visit.CheckedInAt}
		if visit.Status == model.VisitStatusExited {
			if visit.CheckoutReason != nil {
				ev.Reason = *visit.CheckoutReason
			}
			if visit.CheckedOutAt != nil {
				ev.At = *visit.CheckedOutAt
			}
		}
		return ev, true, nil
	case err == sql.ErrNoRows:
		return realtime.StatusEvent{}, false, nil
	default:
		return realtime.StatusEvent{}, false, err
	}
}

// Status returns the entry's current status once, for clients polling
// instead of streaming.
func (h *StatusHandler) Status(c echo.Context) error {
	uuid := c.Param("uuid")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ev, found, err := h.current(ctx, uuid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !found {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown entry"})
	}
	return c.JSON(http.StatusOK, ev)
}

// Stream serves the entry's status as server-sent events.  The current
// status is sent immediately; afterwards events arrive over the Redis
// subscription, or by database polling when Redis is absent.  The
// stream ends when a terminal status is delivered or the client
// disconnects.
func (h *StatusHandler) Stream(c echo.Context) error {
	uuid := c.Param("uuid")
	ctx := c.Request().Context()

	ev, found, err := h.current(ctx, uuid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !found {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown entry"})
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)

	if err := writeSSE(res, ev); err != nil {
		return nil
	}
	if terminal(ev.Status) {
		return nil
	}

	// Subscribe before the wait loop; the subscription must be released
	// when this request ends or the Redis channel leaks.
	if sub, ok := h.Hub.Subscribe(ctx, uuid); ok {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, open := <-sub.Events():
				if !open {
					return nil
				}
				if err := writeSSE(res, ev); err != nil || terminal(ev.Status) {
					return nil
				}
			}
		}
	}

	// No Redis: poll the database so the contract still holds.
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	last := ev.Status
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			ev, found, err := h.current(ctx, uuid)
			if err != nil || !found {
				return nil
			}
			if ev.Status == last {
				continue
			}
			last = ev.Status
			if err := writeSSE(res, ev); err != nil || terminal(ev.Status) {
				return nil
			}
		}
	}
}

// terminal reports whether no further status change can follow.  An
// approved visit can still be checked out, so only denial and exit end
// the stream.
func terminal(status string) bool {
	return status == model.EntryStatusDenied || status == model.VisitStatusExited
}

func writeSSE(res *echo.Response, ev realtime.StatusEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(res, "data: %s\n\n", body); err != nil {
		return err
	}
	res.Flush()
	return nil
}
