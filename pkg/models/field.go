package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// FieldKind identifies the concrete type carried by a FieldValue.
type FieldKind string

const (
	FieldKindString FieldKind = "string"
	FieldKindNumber FieldKind = "number"
	FieldKindBool   FieldKind = "bool"
	FieldKindTime   FieldKind = "time"
	FieldKindList   FieldKind = "list"
)

// FieldValue is a typed record field value. Record data is validated into
// this tagged union at the API boundary so the engine never handles raw
// untyped JSON.
type FieldValue struct {
	Kind FieldKind

	Str  string
	Num  float64
	Bool bool
	Time time.Time
	List []FieldValue
}

func StringValue(s string) FieldValue {
	return FieldValue{Kind: FieldKindString, Str: s}
}

func NumberValue(n float64) FieldValue {
	return FieldValue{Kind: FieldKindNumber, Num: n}
}

func BoolValue(b bool) FieldValue {
	return FieldValue{Kind: FieldKindBool, Bool: b}
}

func TimeValue(t time.Time) FieldValue {
	return FieldValue{Kind: FieldKindTime, Time: t}
}

func ListValue(items ...FieldValue) FieldValue {
	return FieldValue{Kind: FieldKindList, List: items}
}

// IsEmpty reports whether the value counts as "unfilled" for required-field
// checks. Zero numbers and false booleans are still filled values.
func (v FieldValue) IsEmpty() bool {
	switch v.Kind {
	case FieldKindString:
		return v.Str == ""
	case FieldKindTime:
		return v.Time.IsZero()
	case FieldKindList:
		return len(v.List) == 0
	case FieldKindNumber, FieldKindBool:
		return false
	default:
		return true
	}
}

// Any returns the underlying value as a plain Go value.
func (v FieldValue) Any() any {
	switch v.Kind {
	case FieldKindString:
		return v.Str
	case FieldKindNumber:
		return v.Num
	case FieldKindBool:
		return v.Bool
	case FieldKindTime:
		return v.Time
	case FieldKindList:
		items := make([]any, 0, len(v.List))
		for _, item := range v.List {
			items = append(items, item.Any())
		}

		return items
	default:
		return nil
	}
}

// Equal compares two field values by kind and content.
func (v FieldValue) Equal(other FieldValue) bool {
	if v.Kind != other.Kind {
		return false
	}

	switch v.Kind {
	case FieldKindString:
		return v.Str == other.Str
	case FieldKindNumber:
		return v.Num == other.Num
	case FieldKindBool:
		return v.Bool == other.Bool
	case FieldKindTime:
		return v.Time.Equal(other.Time)
	case FieldKindList:
		if len(v.List) != len(other.List) {
			return false
		}

		for i := range v.List {
			if !v.List[i].Equal(other.List[i]) {
				return false
			}
		}

		return true
	default:
		return true
	}
}

// MarshalJSON writes the bare underlying value, so serialized records look
// like ordinary JSON documents.
func (v FieldValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

// UnmarshalJSON infers the kind from the JSON value. RFC 3339 strings are
// promoted to time values.
func (v *FieldValue) UnmarshalJSON(data []byte) error {
	var raw any

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	parsed, err := FieldValueFrom(raw)
	if err != nil {
		return err
	}

	*v = parsed

	return nil
}

// FieldValueFrom converts a decoded JSON value into a typed FieldValue.
func FieldValueFrom(raw any) (FieldValue, error) {
	switch value := raw.(type) {
	case nil:
		return FieldValue{}, nil
	case string:
		if ts, err := time.Parse(time.RFC3339, value); err == nil {
			return TimeValue(ts), nil
		}

		return StringValue(value), nil
	case float64:
		return NumberValue(value), nil
	case int:
		return NumberValue(float64(value)), nil
	case int64:
		return NumberValue(float64(value)), nil
	case bool:
		return BoolValue(value), nil
	case time.Time:
		return TimeValue(value), nil
	case FieldValue:
		return value, nil
	case []any:
		items := make([]FieldValue, 0, len(value))

		for _, item := range value {
			converted, err := FieldValueFrom(item)
			if err != nil {
				return FieldValue{}, err
			}

			items = append(items, converted)
		}

		return FieldValue{Kind: FieldKindList, List: items}, nil
	default:
		return FieldValue{}, fmt.Errorf("unsupported field value type %T", raw)
	}
}

// FieldMapFrom converts a decoded JSON object into a typed field map.
func FieldMapFrom(raw map[string]any) (map[string]FieldValue, error) {
	if raw == nil {
		return nil, nil
	}

	fields := make(map[string]FieldValue, len(raw))

	for key, value := range raw {
		converted, err := FieldValueFrom(value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}

		fields[key] = converted
	}

	return fields, nil
}
