package model

import "time"

// Visit statuses.  A visit is created APPROVED and becomes EXITED once
// checked out; there are no other states.
const (
    VisitStatusApproved = "APPROVED"
    VisitStatusExited   = "EXITED"
)

// Visit is the durable record of an approved, possibly still-open,
// physical presence of a visitor at a premise.  It is created only when
// a pending entry is approved, copying that entry's submission.  At most
// one visit per (premise, idnumber) may be open (CheckedOutAt nil) at a
// time; the repository enforces this with a conditional insert.
//
// Fields:
//  ID              – primary key identifier.
//  UUID            – public identifier carried over from the pending entry,
//                    keeping the client's realtime channel valid across the
//                    entry→visit transition.
//  PremiseID       – premise being visited.
//  Name            – visitor name.
//  IDNumber        – visitor identity number.
//  Phone           – visitor phone.
//  FieldsJSON      – full intake submission as captured at approval.
//  Photo           – encoded image value, when captured.
//  Signature       – tamper-evidence stamp carried from the entry.
//  Status          – APPROVED or EXITED.
//  ApprovedBy      – staff account that approved the entry.
//  EntryApprovedAt – when the entry was approved.
//  CheckedInAt     – check-in timestamp (same instant as approval).
//  CheckedOutAt    – check-out timestamp (nil while the visit is open).
//  CheckoutReason  – staff-supplied reason for the check-out, if any.
type Visit struct {
    ID              uint64     // visits.id
    UUID            string     // visits.uuid
    PremiseID       uint64     // visits.premise_id
    Name            string     // visits.name
    IDNumber        string     // visits.idnumber
    Phone           string     // visits.phone
    FieldsJSON      string     // visits.fields_json
    Photo           string     // visits.photo
    Signature       string     // visits.signature
    Status          string     // visits.status
    ApprovedBy      uint64     // visits.approved_by
    EntryApprovedAt time.Time  // visits.entry_approved_at
    CheckedInAt     time.Time  // visits.checked_in_at
    CheckedOutAt    *time.Time // visits.checked_out_at (nullable)
    CheckoutReason  *string    // visits.checkout_reason (nullable)
}

// Open reports whether the visit is still in progress, i.e. no
// check-out has been recorded yet.
func (v Visit) Open() bool { return v.CheckedOutAt == nil }
