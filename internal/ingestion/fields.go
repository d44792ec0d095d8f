package ingestion

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Bounds for bare year values in numeric and revenue-year columns.
const (
	minYear = 1800
	maxYear = 9999
)

var timeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"2006/1/2",
	"2006.01.02",
	"01/02/2006",
	"1/2/2006",
	"2006年1月2日",
	"Jan 2, 2006",
	"2 Jan 2006",
	"2006-01",
	"2006",
}

var errNotNumber = errors.New("not a number")

func cleanNumber(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	replacer := strings.NewReplacer(",", "", " ", "", "_", "", "$", "", "¥", "", "€", "", "£", "")
	return replacer.Replace(s)
}

func toFloat(v any) (float64, error) {
	switch value := v.(type) {
	case float64:
		return value, nil
	case bool:
		if value {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(cleanNumber(value), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, errNotNumber
		}
		return f, nil
	}
	return 0, errNotNumber
}

// Float reads an optional number. label names the field in error messages.
func (r Record) Float(field, label string) (*float64, error) {
	v, ok := r.Lookup(field)
	if !ok {
		return nil, nil
	}
	f, err := toFloat(v)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number, got %q", label, scalarText(v))
	}
	return &f, nil
}

// FloatInRange reads an optional number bounded by [lo, hi].
func (r Record) FloatInRange(field, label string, lo, hi float64) (*float64, error) {
	f, err := r.Float(field, label)
	if err != nil || f == nil {
		return f, err
	}
	if *f < lo || *f > hi {
		return nil, fmt.Errorf("%s must be between %g and %g", label, lo, hi)
	}
	return f, nil
}

// Count reads an optional non-negative whole number.
func (r Record) Count(field, label string) (*int, error) {
	return r.IntInRange(field, label, 0, math.MaxInt32)
}

// IntInRange reads an optional whole number bounded by [lo, hi].
func (r Record) IntInRange(field, label string, lo, hi int) (*int, error) {
	v, ok := r.Lookup(field)
	if !ok {
		return nil, nil
	}
	f, err := toFloat(v)
	if err != nil || f != math.Trunc(f) {
		return nil, fmt.Errorf("%s must be a whole number, got %q", label, scalarText(v))
	}
	if f < float64(lo) || f > float64(hi) {
		if lo == 0 && hi == math.MaxInt32 {
			return nil, fmt.Errorf("%s must be a positive number", label)
		}
		return nil, fmt.Errorf("%s must be between %d and %d", label, lo, hi)
	}
	n := int(f)
	return &n, nil
}

// Date reads an optional date from an Excel serial number or a formatted string.
func (r Record) Date(field, label string) (*time.Time, error) {
	v, ok := r.Lookup(field)
	if !ok {
		return nil, nil
	}
	t, err := toTime(v)
	if err != nil {
		return nil, fmt.Errorf("%s is not a valid date: %q", label, scalarText(v))
	}
	return &t, nil
}

func toTime(v any) (time.Time, error) {
	switch value := v.(type) {
	case float64:
		if year, ok := wholeYear(value); ok {
			return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), nil
		}
		return serialTime(value)
	case string:
		s := strings.TrimSpace(value)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return serialTime(f)
		}
	}
	return time.Time{}, errors.New("unrecognized date")
}

// wholeYear reports numeric cells such as 2020 that hold a bare year rather than a date serial.
func wholeYear(v float64) (int, bool) {
	if v != math.Trunc(v) || v < minYear || v > maxYear {
		return 0, false
	}
	return int(v), true
}

func serialTime(serial float64) (time.Time, error) {
	if serial <= 0 {
		return time.Time{}, errors.New("date serial must be positive")
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// Bool reads a yes/no flag. Only explicit negatives turn it off.
func (r Record) Bool(field string, fallback bool) bool {
	v, ok := r.Lookup(field)
	if !ok {
		return fallback
	}
	switch value := v.(type) {
	case bool:
		return value
	case float64:
		return value != 0
	}
	switch strings.ToLower(scalarText(v)) {
	case "no", "n", "false", "0", "否":
		return false
	}
	return true
}
