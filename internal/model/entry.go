package model

import "time"

// Pending entry statuses.  An approved entry has no terminal status of
// its own: approval deletes the row and creates a Visit instead, so
// only pending and denied rows ever exist in the table.
const (
    EntryStatusPending = "PENDING"
    EntryStatusDenied  = "DENIED"
)

// PendingEntry is a visitor's raw intake submission awaiting a staff
// decision.  The full submission (one value per visible field of the
// pinned configuration iteration) is kept as a JSON document; the three
// core identity fields are additionally lifted into columns so the open
// visit check and dashboard lists can filter without parsing JSON.
//
// Fields:
//  ID              – primary key identifier.
//  UUID            – public identifier; also the realtime channel key the
//                    submitting client listens on for the decision.
//  PremiseID       – premise the visitor is checking in to.
//  ConfigIteration – field configuration iteration the form was rendered from.
//  Name            – visitor name (core field).
//  IDNumber        – visitor identity number (core field).
//  Phone           – visitor phone (core field).
//  FieldsJSON      – full submission as a JSON object keyed by field name.
//  Photo           – encoded image value, when a photo field was filled.
//  Signature       – tamper-evidence stamp over name, premise and time.
//  Status          – PENDING or DENIED.
//  DenialReason    – staff-supplied reason when denied.
//  SubmittedAt     – submission timestamp.
//  ProcessedAt     – when a denial was recorded (nil while pending).
//  DeniedBy        – staff account that denied the entry (nil while pending).
type PendingEntry struct {
    ID              uint64     // pending_entries.id
    UUID            string     // pending_entries.uuid
    PremiseID       uint64     // pending_entries.premise_id
    ConfigIteration uint32     // pending_entries.config_iteration
    Name            string     // pending_entries.name
    IDNumber        string     // pending_entries.idnumber
    Phone           string     // pending_entries.phone
    FieldsJSON      string     // pending_entries.fields_json
    Photo           string     // pending_entries.photo
    Signature       string     // pending_entries.signature
    Status          string     // pending_entries.status
    DenialReason    *string    // pending_entries.denial_reason (nullable)
    SubmittedAt     time.Time  // pending_entries.submitted_at
    ProcessedAt     *time.Time // pending_entries.processed_at (nullable)
    DeniedBy        *uint64    // pending_entries.denied_by (nullable)
}
