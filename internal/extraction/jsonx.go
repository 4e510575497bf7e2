package extraction

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// DecodeModelJSON unmarshals a JSON object out of raw model output.
// Vision models routinely wrap their JSON in markdown code fences, so
// the decode is attempted on the raw text first, then on the contents
// of a ```json fence, then on the first generic ``` fence.
func DecodeModelJSON(text string, v any) error {
	text = strings.TrimSpace(text)

	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}

	if body, ok := fencedBlock(text, "```json"); ok {
		if err := json.Unmarshal([]byte(body), v); err == nil {
			return nil
		}
	}

	if body, ok := fencedBlock(text, "```"); ok {
		if err := json.Unmarshal([]byte(body), v); err == nil {
			return nil
		}
	}

	return fmt.Errorf("no parseable JSON object in model response")
}

// fencedBlock extracts the body of the first code fence opened by
// marker. For a bare ``` fence any language identifier on the opening
// line is skipped.
func fencedBlock(text, marker string) (string, bool) {
	start := strings.Index(text, marker)
	if start < 0 {
		return "", false
	}
	start += len(marker)

	if marker == "```" {
		if nl := strings.IndexByte(text[start:], '\n'); nl >= 0 {
			start += nl + 1
		}
	}

	end := strings.Index(text[start:], "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(text[start : start+end]), true
}

// looseFloat decodes a JSON value that should be a number but, this
// being model output, may arrive as a quoted number, null, or garbage.
// Anything unusable leaves the value absent; the normalizer then
// applies the field's documented default.
type looseFloat struct {
	value float64
	ok    bool
}

func (f *looseFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		f.value, f.ok = v, true
		return nil
	}
	var quoted string
	if err := json.Unmarshal(data, &quoted); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(quoted), 64); err == nil {
			f.value, f.ok = v, true
		}
	}
	return nil
}

// Or returns the decoded value, or def when the field was missing or
// malformed.
func (f looseFloat) Or(def float64) float64 {
	if f.ok {
		return f.value
	}
	return def
}

// Get returns the decoded value and whether it was present.
func (f looseFloat) Get() (float64, bool) {
	return f.value, f.ok
}

// looseString tolerates numbers and other scalars where a string is
// expected, stringifying them the way the upstream tooling did.
type looseString struct {
	value string
	ok    bool
}

func (s *looseString) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		s.value, s.ok = str, true
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		s.value, s.ok = num.String(), true
	}
	return nil
}

// Or returns the decoded value, or def when absent.
func (s looseString) Or(def string) string {
	if s.ok {
		return s.value
	}
	return def
}
