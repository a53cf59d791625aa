package dataset

import (
	"strconv"
	"time"
)

// Value represents a typed cell value
type Value struct {
	Type         ValueType  `json:"type"`
	StringVal    *string    `json:"string_val,omitempty"`
	NumericVal   *float64   `json:"numeric_val,omitempty"`
	BooleanVal   *bool      `json:"boolean_val,omitempty"`
	TimestampVal *time.Time `json:"timestamp_val,omitempty"`
	IsMissing    bool       `json:"is_missing"`
}

// ValueType defines the storage type for values
type ValueType string

const (
	ValueTypeString    ValueType = "string"
	ValueTypeNumeric   ValueType = "numeric"
	ValueTypeBoolean   ValueType = "boolean"
	ValueTypeTimestamp ValueType = "timestamp"
	ValueTypeMissing   ValueType = "missing"
)

// NewStringValue creates a string value; the empty string is missing.
func NewStringValue(s string) Value {
	if s == "" {
		return NewMissingValue()
	}
	return Value{Type: ValueTypeString, StringVal: &s}
}

func NewNumericValue(n float64) Value {
	return Value{Type: ValueTypeNumeric, NumericVal: &n}
}

func NewBooleanValue(b bool) Value {
	return Value{Type: ValueTypeBoolean, BooleanVal: &b}
}

func NewTimestampValue(t time.Time) Value {
	return Value{Type: ValueTypeTimestamp, TimestampVal: &t}
}

func NewMissingValue() Value {
	return Value{Type: ValueTypeMissing, IsMissing: true}
}

// String renders the value for text output. Missing values render as "".
// Numbers use the shortest representation that round-trips, timestamps use
// a date when there is no time-of-day component.
func (v Value) String() string {
	switch v.Type {
	case ValueTypeString:
		if v.StringVal != nil {
			return *v.StringVal
		}
	case ValueTypeNumeric:
		if v.NumericVal != nil {
			return strconv.FormatFloat(*v.NumericVal, 'f', -1, 64)
		}
	case ValueTypeBoolean:
		if v.BooleanVal != nil {
			return strconv.FormatBool(*v.BooleanVal)
		}
	case ValueTypeTimestamp:
		if v.TimestampVal != nil {
			t := *v.TimestampVal
			if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
				return t.Format("2006-01-02")
			}
			return t.Format(time.RFC3339)
		}
	}
	return ""
}

// Key returns a comparable key for counting distinct values.
func (v Value) Key() string {
	if v.IsMissing {
		return "\x00missing"
	}
	return string(v.Type) + ":" + v.String()
}

// Interface returns the Go value for JSON encoding and spreadsheet export.
func (v Value) Interface() interface{} {
	switch {
	case v.IsMissing:
		return nil
	case v.NumericVal != nil:
		return *v.NumericVal
	case v.BooleanVal != nil:
		return *v.BooleanVal
	case v.TimestampVal != nil:
		return *v.TimestampVal
	case v.StringVal != nil:
		return *v.StringVal
	}
	return nil
}

// IsNumeric returns true if the value represents a valid number
func (v Value) IsNumeric() bool {
	return v.Type == ValueTypeNumeric && v.NumericVal != nil
}

func (v Value) IsString() bool {
	return v.Type == ValueTypeString && v.StringVal != nil
}

func (v Value) IsBoolean() bool {
	return v.Type == ValueTypeBoolean && v.BooleanVal != nil
}

func (v Value) IsTimestamp() bool {
	return v.Type == ValueTypeTimestamp && v.TimestampVal != nil
}

// AsFloat64 returns the numeric value as float64, or 0 if not numeric
func (v Value) AsFloat64() float64 {
	if v.NumericVal != nil {
		return *v.NumericVal
	}
	return 0.0
}

// AsTime returns the timestamp value and whether one is present.
func (v Value) AsTime() (time.Time, bool) {
	if v.TimestampVal != nil {
		return *v.TimestampVal, true
	}
	return time.Time{}, false
}

// Less orders values of one type naturally: numbers and timestamps
// ascending, false before true, strings lexically. Values of different types
// order by type name.
func (v Value) Less(o Value) bool {
	if v.Type != o.Type {
		return v.Type < o.Type
	}
	switch {
	case v.NumericVal != nil && o.NumericVal != nil:
		return *v.NumericVal < *o.NumericVal
	case v.TimestampVal != nil && o.TimestampVal != nil:
		return v.TimestampVal.Before(*o.TimestampVal)
	case v.BooleanVal != nil && o.BooleanVal != nil:
		return !*v.BooleanVal && *o.BooleanVal
	}
	return v.String() < o.String()
}
