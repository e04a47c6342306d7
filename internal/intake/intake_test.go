package intake

import (
	"testing"
	"time"

	"github.com/venuepass/visitor-management/internal/fieldconfig"
	"github.com/venuepass/visitor-management/internal/model"
)

func testFields() []model.Field {
	return []model.Field{
		{ID: 1, Name: "name", Type: "text", Required: true, Visible: true},
		{ID: 2, Name: "idnumber", Type: "text", Required: true, Visible: true},
		{ID: 3, Name: "phone", Type: "tel", Required: true, Visible: true},
		{ID: 4, Name: "email", Type: "email", Visible: true},
		{ID: 5, Name: "company", Type: "text", Visible: true},
		{ID: 6, Name: "internal_note", Type: "text", Visible: false},
	}
}

func TestResolveWithoutProfileLeavesAllEditable(t *testing.T) {
	form := Resolve(testFields(), nil)
	if len(form) != 5 {
		t.Fatalf("expected 5 visible fields, got %d", len(form))
	}
	for _, f := range form {
		if f.ReadOnly || f.Value != "" {
			t.Fatalf("field %q should be empty and editable: %+v", f.Name, f)
		}
	}
}

func TestResolveHidesInvisibleFields(t *testing.T) {
	for _, f := range Resolve(testFields(), nil) {
		if f.Name == "internal_note" {
			t.Fatal("hidden field leaked into the form")
		}
	}
}

func TestResolveMergeProfileWins(t *testing.T) {
	profile := &model.RegisteredUser{
		Name:     "Dana Visitor",
		IDNumber: "X123",
		Phone:    "555-0101",
		// Email intentionally empty: the field must stay editable.
	}
	form := Resolve(testFields(), profile)
	byName := map[string]FormField{}
	for _, f := range form {
		byName[f.Name] = f
	}
	for _, name := range []string{"name", "idnumber", "phone"} {
		f := byName[name]
		if !f.ReadOnly || f.Value == "" {
			t.Fatalf("known field %q should be prefilled read-only: %+v", name, f)
		}
	}
	if f := byName["email"]; f.ReadOnly || f.Value != "" {
		t.Fatalf("unknown profile value must fall back to an editable empty input: %+v", f)
	}
	if f := byName["company"]; f.ReadOnly {
		t.Fatalf("custom field has no profile counterpart and must stay editable: %+v", f)
	}
}

func TestValidateSubmissionReportsAllMissingRequired(t *testing.T) {
	missing := ValidateSubmission(testFields(), map[string]string{
		"name":  "Dana Visitor",
		"phone": "   ", // blanks do not count
	})
	if len(missing) != 2 {
		t.Fatalf("expected 2 missing fields, got %v", missing)
	}
	want := map[string]bool{"idnumber": true, "phone": true}
	for _, m := range missing {
		if !want[m] {
			t.Fatalf("unexpected missing field %q", m)
		}
	}
}

func TestValidateSubmissionIgnoresOptionalAndHidden(t *testing.T) {
	missing := ValidateSubmission(testFields(), map[string]string{
		"name":     "Dana Visitor",
		"idnumber": "X123",
		"phone":    "555-0101",
	})
	if len(missing) != 0 {
		t.Fatalf("optional/hidden fields must not be required, got %v", missing)
	}
}

func TestNormalizePhotoStripsDataURLPrefix(t *testing.T) {
	cases := []struct{ in, want string }{
		{"data:image/png;base64,AAAA", "AAAA"},
		{"data:image/jpeg;base64,QkJC", "QkJC"},
		{"QkJC", "QkJC"},
		{"  QkJC ", "QkJC"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizePhoto(tc.in); got != tc.want {
			t.Fatalf("NormalizePhoto(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSignatureDeterministicAndSensitive(t *testing.T) {
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	a := Signature("Dana Visitor", 42, at)
	b := Signature("Dana Visitor", 42, at)
	if a != b {
		t.Fatal("signature must be deterministic for identical inputs")
	}
	if len(a) != 64 {
		t.Fatalf("signature should be a sha256 hex digest, got %d chars", len(a))
	}
	if Signature("Dana Visitor", 43, at) == a {
		t.Fatal("signature must change with the premise")
	}
	if Signature("Dana Visitor", 42, at.Add(time.Second)) == a {
		t.Fatal("signature must change with the submission time")
	}
	if Signature("Other Name", 42, at) == a {
		t.Fatal("signature must change with the submitter name")
	}
}

// Guard against the intake package drifting from the pinned field names.
func TestCoreFieldNamesMatchConfiguration(t *testing.T) {
	for _, name := range []string{fieldconfig.FieldName, fieldconfig.FieldIDNumber, fieldconfig.FieldPhone} {
		p := &model.RegisteredUser{Name: "n", IDNumber: "i", Phone: "p"}
		if profileValue(p, name) == "" {
			t.Fatalf("core field %q has no profile mapping", name)
		}
	}
}
