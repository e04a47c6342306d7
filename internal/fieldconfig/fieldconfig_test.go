package fieldconfig

import (
	"encoding/json"
	"testing"

	"github.com/venuepass/visitor-management/internal/model"
)

func TestNormalizeForcesCoreFields(t *testing.T) {
	in := []model.Field{
		{ID: 1, Name: "name", Label: "Full name", Type: "text", Required: false, Visible: false},
		{ID: 2, Name: "idnumber", Label: "ID number", Type: "text", Required: false, Visible: true},
		{ID: 3, Name: "phone", Label: "Phone", Type: "tel", Required: true, Visible: false},
		{ID: 4, Name: "company", Label: "Company", Type: "text", Visible: true},
	}
	out := Normalize(in)
	for _, f := range out {
		if IsCore(f.Name) && (!f.Required || !f.Visible) {
			t.Fatalf("core field %q not forced required+visible: %+v", f.Name, f)
		}
	}
	if len(out) != 4 {
		t.Fatalf("expected 4 fields, got %d", len(out))
	}
}

func TestNormalizeReinsertsRemovedCoreFields(t *testing.T) {
	in := []model.Field{
		{ID: 9, Name: "company", Label: "Company", Type: "text", Visible: true},
	}
	out := Normalize(in)
	if len(out) != 4 {
		t.Fatalf("expected 3 core + 1 custom fields, got %d: %+v", len(out), out)
	}
	// Re-inserted core fields come first, in canonical order.
	for i, want := range []string{"name", "idnumber", "phone"} {
		if out[i].Name != want {
			t.Fatalf("position %d: got %q, want %q", i, out[i].Name, want)
		}
		if !out[i].Required || !out[i].Visible {
			t.Fatalf("re-inserted core field %q must be required+visible", want)
		}
	}
}

func TestNormalizeAssignsNextUnusedID(t *testing.T) {
	in := []model.Field{
		{ID: 1, Name: "name", Type: "text", Required: true, Visible: true},
		{ID: 2, Name: "idnumber", Type: "text", Required: true, Visible: true},
		{ID: 5, Name: "phone", Type: "tel", Required: true, Visible: true},
		{Name: "badge", Label: "Badge", Type: "text", Visible: true, Custom: true},
		{Name: "host", Label: "Host", Type: "text", Visible: true, Custom: true},
	}
	out := Normalize(in)
	seen := map[int]string{}
	for _, f := range out {
		if f.ID <= 0 {
			t.Fatalf("field %q left without id", f.Name)
		}
		if prev, dup := seen[f.ID]; dup {
			t.Fatalf("id %d assigned to both %q and %q", f.ID, prev, f.Name)
		}
		seen[f.ID] = f.Name
	}
	// 3 and 4 are the lowest unused ids; badge gets 3, host gets 4.
	if seen[3] != "badge" || seen[4] != "host" {
		t.Fatalf("expected badge=3 and host=4, got %v", seen)
	}
}

func TestNormalizeStableIDsAcrossEdits(t *testing.T) {
	first := Normalize([]model.Field{
		{ID: 1, Name: "name", Type: "text", Required: true, Visible: true},
		{ID: 2, Name: "idnumber", Type: "text", Required: true, Visible: true},
		{ID: 3, Name: "phone", Type: "tel", Required: true, Visible: true},
		{Name: "badge", Type: "text", Visible: true, Custom: true},
	})
	second := Normalize(first)
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("field %q id changed across edits: %d -> %d", first[i].Name, first[i].ID, second[i].ID)
		}
	}
}

func TestDecodeMalformedPayloadsFallBackToDefaults(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"invalid json", "{not json"},
		{"wrong shape", `{"fields": true}`},
		{"raw string", `"just a string"`},
		{"empty array", `[]`},
	}
	want := Defaults()
	for _, tc := range cases {
		got := Decode([]byte(tc.raw))
		if len(got) != len(want) {
			t.Fatalf("%s: expected default set (%d fields), got %d", tc.name, len(want), len(got))
		}
		for i := range want {
			if got[i].Name != want[i].Name {
				t.Fatalf("%s: field %d = %q, want %q", tc.name, i, got[i].Name, want[i].Name)
			}
		}
	}
}

func TestDecodeDoubleEncodedArray(t *testing.T) {
	fields := []model.Field{
		{ID: 1, Name: "name", Type: "text", Required: true, Visible: true},
		{ID: 2, Name: "idnumber", Type: "text", Required: true, Visible: true},
		{ID: 3, Name: "phone", Type: "tel", Required: true, Visible: true},
	}
	inner, err := json.Marshal(fields)
	if err != nil {
		t.Fatal(err)
	}
	outer, err := json.Marshal(string(inner))
	if err != nil {
		t.Fatal(err)
	}
	got := Decode(outer)
	if len(got) != 3 || got[0].Name != "name" {
		t.Fatalf("double-encoded payload not recovered: %+v", got)
	}
}

func TestDecodeRoundTripIsIdempotent(t *testing.T) {
	raw, err := Encode(Defaults())
	if err != nil {
		t.Fatal(err)
	}
	a := Decode(raw)
	b := Decode(raw)
	if len(a) != len(b) {
		t.Fatalf("two decodes of the same payload differ in length: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("field %d differs between decodes: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestVisibleFiltersHiddenFields(t *testing.T) {
	vis := Visible(Defaults())
	if len(vis) != 3 {
		t.Fatalf("default set should expose exactly the 3 core fields, got %d", len(vis))
	}
	for _, f := range vis {
		if !IsCore(f.Name) {
			t.Fatalf("unexpected visible field %q in defaults", f.Name)
		}
	}
}
