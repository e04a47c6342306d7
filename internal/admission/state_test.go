package admission

import (
	"strings"
	"testing"
	"time"

	"github.com/venuepass/visitor-management/internal/model"
)

func TestValidTransition(t *testing.T) {
	cases := []struct {
		action string
		from   Kind
		valid  bool
	}{
		{ActionApprove, KindPending, true},
		{ActionApprove, KindAttentionRequired, false},
		{ActionApprove, KindApproved, false},
		{ActionApprove, KindDenied, false},
		{ActionDeny, KindPending, true},
		{ActionDeny, KindAttentionRequired, false},
		{ActionDeny, KindDenied, false},
		{ActionResolveApprove, KindAttentionRequired, true},
		{ActionResolveApprove, KindPending, false},
		{ActionResolveApprove, KindApproved, false},
		{ActionResolveDeny, KindAttentionRequired, true},
		{ActionResolveDeny, KindPending, false},
		{"unknown", KindPending, false},
	}

	for _, tt := range cases {
		if got := ValidTransition(tt.action, tt.from); got != tt.valid {
			t.Fatalf("ValidTransition(%q, %q)=%v, want %v", tt.action, tt.from, got, tt.valid)
		}
	}
}

func TestAttentionRequiredCarriesVisitAndReason(t *testing.T) {
	since := time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC)
	open := &model.Visit{ID: 7, IDNumber: "X123", CheckedInAt: since}
	st := AttentionRequired(open)
	if st.Kind != KindAttentionRequired {
		t.Fatalf("kind = %q", st.Kind)
	}
	if st.OpenVisit == nil || st.OpenVisit.ID != 7 {
		t.Fatal("state must reference the blocking open visit")
	}
	if !strings.Contains(st.Reason, "unchecked visit since 2025-03-01T08:30:00Z") {
		t.Fatalf("reason = %q", st.Reason)
	}
}
