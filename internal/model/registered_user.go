package model

import "time"

// RegisteredUser is an optional reusable visitor identity profile.  A
// visitor may opt into it after any successful check-in so that future
// intake forms come prefilled; declining has no effect on the visit
// already created.  The profile is looked up by code, email or phone
// when a returning visitor opens an entry form.
//
// Fields:
//  ID           – primary key identifier.
//  Code         – public lookup code handed to the visitor (uuid).
//  Name         – visitor name.
//  Email        – contact email (unique when set).
//  Phone        – contact phone.
//  IDNumber     – identity number used for the open-visit check.
//  Photo        – encoded image value carried over to future intakes.
//  PasswordHash – bcrypt hash of the profile credential.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type RegisteredUser struct {
    ID           uint64    // registered_users.id
    Code         string    // registered_users.code
    Name         string    // registered_users.name
    Email        string    // registered_users.email
    Phone        string    // registered_users.phone
    IDNumber     string    // registered_users.idnumber
    Photo        string    // registered_users.photo
    PasswordHash string    // registered_users.password_hash
    CreatedAt    time.Time // registered_users.created_at
    UpdatedAt    time.Time // registered_users.updated_at
}
