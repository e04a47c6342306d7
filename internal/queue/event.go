// Package queue defines message payloads exchanged over the message broker.
package queue

// EntryDecidedEvent is published when a pending entry is approved or
// denied, or when a visit is checked out. It carries enough information
// for downstream consumers to log or notify premise contacts without
// querying the primary database.
type EntryDecidedEvent struct {
    EntryUUID   string `json:"entry_uuid"`
    PremiseID   uint64 `json:"premise_id"`
    PremiseName string `json:"premise_name"`
    VisitorName string `json:"visitor_name"`
    IDNumber    string `json:"idnumber"`
    Status      string `json:"status"` // APPROVED, DENIED or EXITED
    Reason      string `json:"reason,omitempty"`
    DecidedAt   string `json:"decided_at"`
}
