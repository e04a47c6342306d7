// Package fieldconfig implements the rules applied to a premise's intake
// form configuration before it is persisted or served: the pinned core
// fields, stable field id assignment and the graceful fallback to a
// canonical default set when stored payloads are malformed.
package fieldconfig

import (
    "encoding/json"
    "strings"

    "github.com/venuepass/visitor-management/internal/model"
)

// Names of the three pinned core fields.  They are always visible and
// required in every configuration regardless of what staff save.
const (
    FieldName     = "name"
    FieldIDNumber = "idnumber"
    FieldPhone    = "phone"
)

// coreNames lists the pinned fields in canonical order.  Missing core
// fields are re-inserted at the head of a configuration in this order.
var coreNames = []string{FieldName, FieldIDNumber, FieldPhone}

// IsCore reports whether the given field name is one of the pinned core
// fields.  Comparison is case-insensitive because older clients sent
// mixed-case names.
func IsCore(name string) bool {
    n := strings.ToLower(strings.TrimSpace(name))
    for _, c := range coreNames {
        if n == c {
            return true
        }
    }
    return false
}

// Defaults returns the canonical field set served when a premise has no
// stored configuration or its stored payload cannot be decoded: the
// three core fields required and visible, four optional fields hidden.
func Defaults() []model.Field {
    return []model.Field{
        {ID: 1, Name: FieldName, Label: "Full name", Type: "text", Required: true, Visible: true},
        {ID: 2, Name: FieldIDNumber, Label: "ID number", Type: "text", Required: true, Visible: true},
        {ID: 3, Name: FieldPhone, Label: "Phone", Type: "tel", Required: true, Visible: true},
        {ID: 4, Name: "company", Label: "Company", Type: "text"},
        {ID: 5, Name: "email", Label: "Email", Type: "email"},
        {ID: 6, Name: "photo", Label: "Photo", Type: "photo", Premium: true},
        {ID: 7, Name: "reason", Label: "Reason for visit", Type: "textarea"},
    }
}

// Normalize prepares an incoming field list for persistence.  It forces
// the three core fields to required and visible (re-inserting any that
// were removed), keeps existing field ids untouched and assigns the next
// unused id to fields that arrive without one.  The incoming order is
// preserved; re-inserted core fields go to the front.  Normalize never
// fails: a nil or empty input yields the default set.
func Normalize(incoming []model.Field) []model.Field {
    if len(incoming) == 0 {
        return Defaults()
    }

    out := make([]model.Field, 0, len(incoming)+len(coreNames))
    present := make(map[string]bool, len(coreNames))
    used := make(map[int]bool, len(incoming))
    for _, f := range incoming {
        if f.ID > 0 {
            used[f.ID] = true
        }
    }

    next := func() int {
        n := 1
        for used[n] {
            n++
        }
        used[n] = true
        return n
    }

    for _, f := range incoming {
        f.Name = strings.ToLower(strings.TrimSpace(f.Name))
        if f.Name == "" {
            continue
        }
        if f.ID <= 0 {
            f.ID = next()
        }
        if IsCore(f.Name) {
            if present[f.Name] {
                continue // drop duplicate core rows, first one wins
            }
            present[f.Name] = true
            f.Required = true
            f.Visible = true
        }
        if f.Type == "" {
            f.Type = "text"
        }
        out = append(out, f)
    }

    // Re-insert core fields staff removed, in canonical order at the front.
    head := make([]model.Field, 0, len(coreNames))
    for _, c := range coreNames {
        if !present[c] {
            head = append(head, model.Field{
                ID:       next(),
                Name:     c,
                Label:    defaultLabel(c),
                Type:     defaultType(c),
                Required: true,
                Visible:  true,
            })
        }
    }
    if len(head) > 0 {
        out = append(head, out...)
    }
    if len(out) == 0 {
        return Defaults()
    }
    return out
}

// Decode parses a stored fields_json payload.  Malformed payloads (wrong
// shape, a raw JSON string, invalid JSON, empty array) degrade to the
// default field set instead of failing the caller; the intake form must
// always have something to render.  A decoded list is still passed
// through Normalize so historic rows predating the pinned-field rule
// come back with the core fields forced.
func Decode(raw []byte) []model.Field {
    if len(raw) == 0 {
        return Defaults()
    }
    var fields []model.Field
    if err := json.Unmarshal(raw, &fields); err != nil {
        // Some legacy rows stored the array double-encoded as a string.
        var s string
        if err2 := json.Unmarshal(raw, &s); err2 != nil {
            return Defaults()
        }
        if err2 := json.Unmarshal([]byte(s), &fields); err2 != nil {
            return Defaults()
        }
    }
    if len(fields) == 0 {
        return Defaults()
    }
    return Normalize(fields)
}

// Encode serializes a field list for storage.
func Encode(fields []model.Field) ([]byte, error) {
    return json.Marshal(fields)
}

// Visible returns the visible fields of a configuration in stored order.
func Visible(fields []model.Field) []model.Field {
    out := make([]model.Field, 0, len(fields))
    for _, f := range fields {
        if f.Visible {
            out = append(out, f)
        }
    }
    return out
}

func defaultLabel(name string) string {
    switch name {
    case FieldName:
        return "Full name"
    case FieldIDNumber:
        return "ID number"
    case FieldPhone:
        return "Phone"
    }
    return name
}

func defaultType(name string) string {
    if name == FieldPhone {
        return "tel"
    }
    return "text"
}
