// Package intake resolves the visitor-facing entry form from a field
// configuration and validates submissions against it.  When a returning
// registered visitor opens the form, known profile values come back
// prefilled and read-only; everything else stays editable.  The merge
// is profile-wins: a profile value is never overwritten by the form.
package intake

import (
    "crypto/sha256"
    "encoding/hex"
    "fmt"
    "strings"
    "time"

    "github.com/venuepass/visitor-management/internal/fieldconfig"
    "github.com/venuepass/visitor-management/internal/model"
)

// FormField is one renderable control of the entry form: the field
// definition plus an optional prefilled value.  ReadOnly is set when the
// value came from a registered profile and must not be edited.
type FormField struct {
    model.Field
    Value    string `json:"value,omitempty"`
    ReadOnly bool   `json:"read_only"`
}

// Resolve builds the form for the given configuration, in stored order,
// keeping only visible fields.  When profile is non-nil, fields the
// profile already knows are prefilled and locked; fields it does not
// know remain empty and editable.
func Resolve(fields []model.Field, profile *model.RegisteredUser) []FormField {
    visible := fieldconfig.Visible(fields)
    out := make([]FormField, 0, len(visible))
    for _, f := range visible {
        ff := FormField{Field: f}
        if profile != nil {
            if v := profileValue(profile, f.Name); v != "" {
                ff.Value = v
                ff.ReadOnly = true
            }
        }
        out = append(out, ff)
    }
    return out
}

// profileValue maps a field name onto the matching registered-user
// attribute.  Custom fields have no profile counterpart and always
// return "".
func profileValue(p *model.RegisteredUser, name string) string {
    switch strings.ToLower(name) {
    case fieldconfig.FieldName:
        return p.Name
    case fieldconfig.FieldIDNumber:
        return p.IDNumber
    case fieldconfig.FieldPhone:
        return p.Phone
    case "email":
        return p.Email
    case "photo":
        return p.Photo
    }
    return ""
}

// ValidateSubmission checks a submission against the configuration it
// was rendered from: every required visible field must carry a
// non-blank value.  It returns the names of the missing fields so the
// handler can report them all at once.
func ValidateSubmission(fields []model.Field, values map[string]string) []string {
    var missing []string
    for _, f := range fieldconfig.Visible(fields) {
        if !f.Required {
            continue
        }
        if strings.TrimSpace(values[f.Name]) == "" {
            missing = append(missing, f.Name)
        }
    }
    return missing
}

// NormalizePhoto reduces the three photo origins (camera capture, file
// upload, profile carry-over) to one encoded-image value: a bare base64
// payload with any data-URL prefix stripped.
func NormalizePhoto(v string) string {
    v = strings.TrimSpace(v)
    if strings.HasPrefix(v, "data:") {
        if i := strings.Index(v, ","); i >= 0 {
            return v[i+1:]
        }
    }
    return v
}

// Signature computes the tamper-evidence stamp attached to every
// submission: a one-way hash over the submitter name, premise and
// submission time.  It is an audit aid, not a security control.
func Signature(name string, premiseID uint64, submittedAt time.Time) string {
    sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d",
        strings.TrimSpace(name), premiseID, submittedAt.UTC().Unix())))
    return hex.EncodeToString(sum[:])
}
