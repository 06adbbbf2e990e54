// Package cursor encodes composite pagination cursors into opaque URL-safe
// tokens. A cursor names the position "after this record" in an ordered
// listing: the last-seen record's sort-field value plus its id as tie-break.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// Payload is the composite cursor content. SortValue holds the sort field
// value of the last-seen record (timestamps serialized as RFC 3339), ID its
// document id.
type Payload struct {
	SortValue string `json:"v"`
	ID        string `json:"id,omitempty"`
}

// FormatTime renders a timestamp sort value in the canonical wire form.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Encode serializes the payload into a token safe to embed in a URL query
// parameter without further escaping.
func Encode(p Payload) string {
	raw, err := json.Marshal(p)
	if err != nil {
		// Payload is two strings; marshaling cannot fail in practice.
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode is the inverse of Encode. Empty input yields nil. A malformed or
// foreign token never fails: it degrades to a payload carrying the raw token
// as a plain sort value, so a caller can still hand it to a backend that
// understands bare values.
func Decode(token string) *Payload {
	if token == "" {
		return nil
	}

	// Accept both unpadded and padded alphabets.
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		raw, err = base64.URLEncoding.DecodeString(token)
	}
	if err == nil {
		var p Payload
		if jsonErr := json.Unmarshal(raw, &p); jsonErr == nil && (p.SortValue != "" || p.ID != "") {
			return &p
		}
	}

	return &Payload{SortValue: token}
}
