package qr

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"
)

func TestIssueURLIsDeterministic(t *testing.T) {
	a := IssueURL("https://visit.example.com", 42, 7)
	b := IssueURL("https://visit.example.com", 42, 7)
	if a != b {
		t.Fatalf("same inputs produced different urls: %q vs %q", a, b)
	}
	want := "https://visit.example.com/entry?premise_id=42&v=7"
	if a != want {
		t.Fatalf("url = %q, want %q", a, want)
	}
}

func TestIssueURLTrimsTrailingSlash(t *testing.T) {
	got := IssueURL("https://visit.example.com/", 1, 1)
	want := "https://visit.example.com/entry?premise_id=1&v=1"
	if got != want {
		t.Fatalf("url = %q, want %q", got, want)
	}
}

func TestParseEntryURLRoundTrip(t *testing.T) {
	cases := []struct {
		premiseID uint64
		iteration uint32
	}{
		{1, 1},
		{42, 7},
		{999999, 4294967295},
	}
	for _, tc := range cases {
		u := IssueURL("https://visit.example.com", tc.premiseID, tc.iteration)
		pid, v, err := ParseEntryURL(u)
		if err != nil {
			t.Fatalf("ParseEntryURL(%q): %v", u, err)
		}
		if pid != tc.premiseID || v != tc.iteration {
			t.Fatalf("round trip (%d,%d) -> (%d,%d)", tc.premiseID, tc.iteration, pid, v)
		}
	}
}

func TestParseEntryURLRejectsMalformedInput(t *testing.T) {
	cases := []string{
		"https://visit.example.com/other?premise_id=1&v=1",
		"https://visit.example.com/entry?premise_id=0&v=1",
		"https://visit.example.com/entry?premise_id=1&v=0",
		"https://visit.example.com/entry?premise_id=abc&v=1",
		"https://visit.example.com/entry?v=1",
		"https://visit.example.com/entry?premise_id=1",
	}
	for _, raw := range cases {
		if _, _, err := ParseEntryURL(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestRenderProducesFixedSizeWhiteBackedPNG(t *testing.T) {
	data, err := Render(IssueURL("https://visit.example.com", 42, 7))
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a decodable png: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != ImageSize || b.Dy() != ImageSize {
		t.Fatalf("raster is %dx%d, want %dx%d", b.Dx(), b.Dy(), ImageSize, ImageSize)
	}
	// The quiet zone means all four corners sit on the background.
	for _, pt := range [][2]int{{0, 0}, {ImageSize - 1, 0}, {0, ImageSize - 1}, {ImageSize - 1, ImageSize - 1}} {
		r, g, bl, _ := img.At(pt[0], pt[1]).RGBA()
		white := color.White
		wr, wg, wb, _ := white.RGBA()
		if r != wr || g != wg || bl != wb {
			t.Fatalf("corner (%d,%d) is not white", pt[0], pt[1])
		}
	}
}
