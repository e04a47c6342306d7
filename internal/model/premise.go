package model

import "time"

// Premise represents a registered physical location that manages
// visitors through the system.  Each premise belongs to an owner
// account and carries the feature flags staff can toggle from the
// settings screen.  Premises are never hard-deleted by this service;
// removal is an external admin action.
//
// Fields:
//  ID                   – primary key identifier.
//  OwnerID              – account that registered the premise.
//  Name                 – display name shown on the intake form.
//  ContactPhone         – contact number for the premise.
//  BusinessType         – free-form category (office, clinic, ...).
//  ExitTracking         – whether check-outs are recorded for visits.
//  MultiEntry           – whether one identity may re-enter the same day.
//  NotificationsEnabled – whether decision events are forwarded to the
//                         notification pipeline.
//  CreatedAt            – creation timestamp.
//  UpdatedAt            – last update timestamp.
type Premise struct {
    ID                   uint64    // premises.id
    OwnerID              uint64    // premises.owner_id
    Name                 string    // premises.name
    ContactPhone         string    // premises.contact_phone
    BusinessType         string    // premises.business_type
    ExitTracking         bool      // premises.exit_tracking
    MultiEntry           bool      // premises.multi_entry
    NotificationsEnabled bool      // premises.notifications_enabled
    CreatedAt            time.Time // premises.created_at
    UpdatedAt            time.Time // premises.updated_at
}
