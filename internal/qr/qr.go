// Package qr derives the entry URL encoded into a premise's QR code and
// renders it as a downloadable image.  The URL shape is a frozen wire
// contract: codes printed years ago must keep resolving, so both the
// path and the query parameter names are fixed.
package qr

import (
    "fmt"
    "net/url"
    "strconv"
    "strings"

    qrcode "github.com/skip2/go-qrcode"
)

// ImageSize is the side length in pixels of exported QR rasters.
const ImageSize = 512

// IssueURL returns the entry URL for a premise and configuration
// iteration: <base>/entry?premise_id=<id>&v=<iteration>.  The result is
// deterministic for identical inputs; the iteration pins the exact field
// configuration the form must render.
func IssueURL(base string, premiseID uint64, iteration uint32) string {
    return fmt.Sprintf("%s/entry?premise_id=%d&v=%d",
        strings.TrimRight(base, "/"), premiseID, iteration)
}

// ParseEntryURL extracts (premiseID, iteration) from an entry URL
// previously produced by IssueURL.  It is the inverse used by the intake
// form: the pair must round-trip exactly so the form fetches the same
// configuration iteration the code was generated with.
func ParseEntryURL(raw string) (premiseID uint64, iteration uint32, err error) {
    u, err := url.Parse(raw)
    if err != nil {
        return 0, 0, err
    }
    if !strings.HasSuffix(u.Path, "/entry") {
        return 0, 0, fmt.Errorf("not an entry url: %q", u.Path)
    }
    q := u.Query()
    premiseID, err = strconv.ParseUint(q.Get("premise_id"), 10, 64)
    if err != nil || premiseID == 0 {
        return 0, 0, fmt.Errorf("invalid premise_id %q", q.Get("premise_id"))
    }
    v, err := strconv.ParseUint(q.Get("v"), 10, 32)
    if err != nil || v == 0 {
        return 0, 0, fmt.Errorf("invalid iteration %q", q.Get("v"))
    }
    return premiseID, uint32(v), nil
}

// Render encodes the given entry URL into a 512×512 PNG with a white
// background, the fixed format of the downloadable artifact.  Medium
// error correction keeps the code scannable when partially covered by a
// premise logo sticker.
func Render(entryURL string) ([]byte, error) {
    code, err := qrcode.New(entryURL, qrcode.Medium)
    if err != nil {
        return nil, err
    }
    return code.PNG(ImageSize)
}
