package model

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"
)

const (
	defaultTripID = "defaultTrip"
	defaultSeatNo = "defaultSeat"

	maxDedupIDLength = 128
)

// BookingMessage is an opaque booking payload on its way to the queue.
type BookingMessage struct {
	ID       string          `json:"id"`
	GroupKey string          `json:"groupKey"`
	DedupID  string          `json:"dedupId"`
	Body     json.RawMessage `json:"body"`
}

// BookingStatus is the producer response for an accepted booking.
type BookingStatus struct {
	Status string `json:"status"`
	Stats  *Stats `json:"stats"`
}

// Delivery is one queue record handed to the consumer.
type Delivery struct {
	ID        string
	Key       []byte
	Body      []byte
	Partition int32
	Offset    int64
}

// BatchResult is returned by the consumer for a processed batch.
type BatchResult struct {
	OK        bool `json:"ok"`
	Processed int  `json:"processed"`
}

// GroupKey keeps bookings for the same seat in order: "<tripId>#<seatNo>".
func GroupKey(body any) string {
	trip, seat := defaultTripID, defaultSeatNo

	if obj, ok := body.(map[string]any); ok {
		if v, ok := obj["tripId"]; ok && v != nil {
			trip = stringify(v)
		}

		if v, ok := obj["seatNo"]; ok && v != nil {
			seat = stringify(v)
		}
	}

	return trip + "#" + seat
}

// DedupID is the caller's requestId (at most 128 characters) or the SHA-256 of
// the canonical JSON form of the body. A falsy requestId (null, false, 0, "",
// [] or {}) counts as absent.
func DedupID(body any) (string, error) {
	if obj, ok := body.(map[string]any); ok {
		if rid, ok := obj["requestId"]; ok && !isFalsy(rid) {
			id := []rune(stringify(rid))
			if len(id) > maxDedupIDLength {
				id = id[:maxDedupIDLength]
			}

			return string(id), nil
		}
	}

	canonical, err := canonicalJSON(body)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize body: %w", err)
	}

	sum := sha256.Sum256(canonical)

	return hex.EncodeToString(sum[:]), nil
}

// canonicalJSON emits sorted keys, no whitespace, no HTML escaping and only
// ASCII: non-ASCII runes become \uXXXX escapes (surrogate pairs above the BMP).
func canonicalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	raw := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))

	out := make([]byte, 0, len(raw))

	for _, r := range string(raw) {
		if r < utf8.RuneSelf {
			out = append(out, byte(r))

			continue
		}

		if r1, r2 := utf16.EncodeRune(r); r1 != utf8.RuneError {
			out = fmt.Appendf(out, "\\u%04x\\u%04x", r1, r2)

			continue
		}

		out = fmt.Appendf(out, "\\u%04x", r)
	}

	return out, nil
}

func isFalsy(v any) bool {
	switch vv := v.(type) {
	case nil:
		return true
	case bool:
		return !vv
	case string:
		return vv == ""
	case json.Number:
		f, err := vv.Float64()

		return err == nil && f == 0
	case float64:
		return vv == 0
	case []any:
		return len(vv) == 0
	case map[string]any:
		return len(vv) == 0
	default:
		return false
	}
}

func stringify(v any) string {
	switch vv := v.(type) {
	case string:
		return vv
	case json.Number:
		return vv.String()
	default:
		data, err := json.Marshal(vv)
		if err != nil {
			return fmt.Sprint(vv)
		}

		return string(data)
	}
}
