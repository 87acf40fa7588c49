package sample

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrEmptyField indicates a required channel or timestamp was absent.
	ErrEmptyField = errors.New("sample: empty field")

	// ErrMalformed indicates text that does not parse as a finite number.
	ErrMalformed = errors.New("sample: malformed number")
)

// Record is one timestamped row of apparatus output.
type Record interface {
	TimeText() string
}

// Text is a channel value as received from the data source. It accepts JSON
// strings, numbers and null so records decode regardless of how the upstream
// serialises numeric fields.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return errors.Wrapf(ErrMalformed, "value %s", data)
		}
		*t = Text(n.String())
		return nil
	}
}

func (t Text) String() string { return string(t) }

// ParseTime parses a timestamp in seconds.
func ParseTime(text string) (decimal.Decimal, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return decimal.Zero, errors.Wrap(ErrEmptyField, "time")
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, errors.Wrapf(ErrMalformed, "time %q", text)
	}
	return d, nil
}

// ParseFloat parses a named channel value.
func ParseFloat(field string, text Text) (float64, error) {
	s := strings.TrimSpace(string(text))
	if s == "" {
		return 0, errors.Wrap(ErrEmptyField, field)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Wrapf(ErrMalformed, "%s %q", field, s)
	}
	return v, nil
}

// Duration converts seconds to a time.Duration, truncating below a nanosecond.
func Duration(seconds decimal.Decimal) time.Duration {
	return time.Duration(seconds.Shift(9).IntPart())
}

// Seconds converts a duration to decimal seconds.
func Seconds(d time.Duration) decimal.Decimal {
	return decimal.NewFromInt(int64(d)).Shift(-9)
}

// LastTime returns the timestamp of the last record whose time parses.
func LastTime[T Record](records []T) (decimal.Decimal, bool) {
	for i := len(records) - 1; i >= 0; i-- {
		if t, err := ParseTime(records[i].TimeText()); err == nil {
			return t, true
		}
	}
	return decimal.Zero, false
}

type envelope[T any] struct {
	Simulation []T `json:"simulation"`
}

// Decode reads a list of records either as a bare JSON array or wrapped in a
// {"simulation": [...]} envelope.
func Decode[T any](data []byte) ([]T, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] == '[' {
		var records []T
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, errors.Wrap(err, "decode samples")
		}
		return records, nil
	}
	var env envelope[T]
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrap(err, "decode sample envelope")
	}
	return env.Simulation, nil
}
