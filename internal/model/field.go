package model

import "time"

// Field is a single intake-form field definition inside a premise's
// field configuration.  Three field names (name, idnumber, phone) are
// pinned: they are always visible and required no matter what staff
// save.  Custom fields keep their id stable across edits so stored
// submissions remain interpretable.
//
// Fields:
//  ID       – stable numeric identifier unique within the configuration.
//  Name     – machine name used as the submission key.
//  Label    – human-readable label rendered on the form.
//  Type     – control kind: text, email, tel, photo or textarea.
//  Required – whether the visitor must fill the field.
//  Visible  – whether the field is rendered at all.
//  Premium  – whether the field is gated behind a paid plan.
//  Custom   – whether the field was added by staff (not a built-in).
type Field struct {
    ID       int    `json:"id"`
    Name     string `json:"name"`
    Label    string `json:"label"`
    Type     string `json:"type"`
    Required bool   `json:"required"`
    Visible  bool   `json:"visible"`
    Premium  bool   `json:"premium"`
    Custom   bool   `json:"custom"`
}

// FieldConfiguration is one immutable iteration of a premise's intake
// form.  Every save appends a new row with iteration = previous max + 1
// and a freshly derived QR payload; old iterations are retained so QR
// codes printed against them keep resolving to the exact field set they
// were generated with.
//
// Fields:
//  ID        – primary key identifier.
//  PremiseID – premise owning this configuration history.
//  Iteration – monotonically increasing version, starting at 1.
//  Fields    – ordered field definitions for this iteration.
//  QRPayload – entry URL embedded in the QR code for this iteration.
//  CreatedAt – creation timestamp.
type FieldConfiguration struct {
    ID        uint64    // field_configurations.id
    PremiseID uint64    // field_configurations.premise_id
    Iteration uint32    // field_configurations.iteration
    Fields    []Field   // field_configurations.fields_json (decoded)
    QRPayload string    // field_configurations.qr_payload
    CreatedAt time.Time // field_configurations.created_at
}
