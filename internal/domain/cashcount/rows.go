package cashcount

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Shape identifies which wire layout a count row arrived in.
type Shape int

const (
	// ShapeNested carries the count under latest_count, which may be null.
	ShapeNested Shape = iota + 1
	// ShapeFlat carries the count fields directly on the row.
	ShapeFlat
)

func (s Shape) String() string {
	switch s {
	case ShapeNested:
		return "nested"
	case ShapeFlat:
		return "flat"
	}
	return "unknown"
}

// Entry is the single internal form every row is normalized to. Counted is
// false when the row carried no count at all.
type Entry struct {
	ResidentID     int64
	FirstName      string
	LastName       string
	StaffFirstName string
	StaffLastName  string
	Counted        bool
	StaffID        int64
	CountedAt      time.Time
	BalanceCents   int64
	DiffCents      int64
	IsMismatch     bool
}

// CountRow is a decoded wire row: the shape tag plus the fields common to
// both layouts.
type CountRow struct {
	Shape Shape
	Entry Entry
}

type rowNames struct {
	ResidentID     flexInt `json:"resident_id"`
	FirstName      string  `json:"firstName"`
	LastName       string  `json:"lastName"`
	StaffFirstName string  `json:"staffFirstName"`
	StaffLastName  string  `json:"staffLastName"`
}

type countFields struct {
	BalanceCents flexInt `json:"balance_cents"`
	DiffCents    flexInt `json:"diff_cents"`
	IsMismatch   bool    `json:"is_mismatch"`
	StaffID      flexInt `json:"staff_id"`
	CountedAt    string  `json:"counted_at"`
}

var (
	errNoRow      = errors.New("row is null")
	errNoResident = errors.New("row has no resident_id")
)

var countKeys = []string{"balance_cents", "diff_cents", "is_mismatch", "staff_id", "counted_at"}

func (r *CountRow) UnmarshalJSON(data []byte) error {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	if keys == nil {
		return errNoRow
	}
	var names rowNames
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	if names.ResidentID <= 0 {
		return errNoResident
	}
	*r = CountRow{Entry: Entry{
		ResidentID:     int64(names.ResidentID),
		FirstName:      names.FirstName,
		LastName:       names.LastName,
		StaffFirstName: names.StaffFirstName,
		StaffLastName:  names.StaffLastName,
	}}

	var counted []byte
	if nested, ok := keys["latest_count"]; ok {
		r.Shape = ShapeNested
		if !isNull(nested) {
			counted = nested
		}
	} else {
		r.Shape = ShapeFlat
		for _, k := range countKeys {
			if v, ok := keys[k]; ok && !isNull(v) {
				counted = data
				break
			}
		}
	}
	if counted == nil {
		return nil
	}

	var cf countFields
	if err := json.Unmarshal(counted, &cf); err != nil {
		return err
	}
	// A count without a timestamp is no count, in either shape.
	if strings.TrimSpace(cf.CountedAt) == "" {
		return nil
	}
	at, err := parseTimestamp(cf.CountedAt)
	if err != nil {
		return err
	}
	r.Entry.Counted = true
	r.Entry.StaffID = int64(cf.StaffID)
	r.Entry.CountedAt = at
	r.Entry.BalanceCents = int64(cf.BalanceCents)
	r.Entry.DiffCents = int64(cf.DiffCents)
	r.Entry.IsMismatch = cf.IsMismatch
	return nil
}

// ParseRows decodes a JSON array of count rows in either shape. Input that is
// not an array yields no entries. Elements that fail to decode are skipped.
func ParseRows(data []byte) []Entry {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil
	}
	out := make([]Entry, 0, len(elems))
	for _, el := range elems {
		var row CountRow
		if err := json.Unmarshal(el, &row); err != nil {
			continue
		}
		out = append(out, row.Entry)
	}
	return out
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// flexInt accepts a JSON number or a numeric string. Fractional numbers are
// rejected.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("not an integer: %s", data)
	}
	*f = flexInt(n)
	return nil
}

var (
	zonedLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05.999999999Z07",
	}
	wallLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
	}
)

// parseTimestamp reads counted_at. Timestamps without an offset are wall
// clock times in the reference zone.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("counted_at is empty")
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range wallLayouts {
		if t, err := time.ParseInLocation(layout, s, Edmonton); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised counted_at %q", s)
}
