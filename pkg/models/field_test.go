package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldValueFrom(t *testing.T) {
	value, err := FieldValueFrom("hello")
	require.NoError(t, err)
	assert.Equal(t, FieldKindString, value.Kind)
	assert.Equal(t, "hello", value.Str)

	value, err = FieldValueFrom(42.5)
	require.NoError(t, err)
	assert.Equal(t, FieldKindNumber, value.Kind)
	assert.InDelta(t, 42.5, value.Num, 0.001)

	value, err = FieldValueFrom(true)
	require.NoError(t, err)
	assert.Equal(t, FieldKindBool, value.Kind)
	assert.True(t, value.Bool)

	// RFC 3339 strings are promoted to time values.
	value, err = FieldValueFrom("2026-01-15T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, FieldKindTime, value.Kind)
	assert.Equal(t, 2026, value.Time.Year())

	value, err = FieldValueFrom([]any{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, FieldKindList, value.Kind)
	assert.Len(t, value.List, 2)

	_, err = FieldValueFrom(struct{}{})
	assert.Error(t, err)
}

func TestFieldMapFrom(t *testing.T) {
	fields, err := FieldMapFrom(map[string]any{
		"name":   "Acme",
		"amount": 1200.0,
	})
	require.NoError(t, err)
	assert.Equal(t, StringValue("Acme"), fields["name"])
	assert.Equal(t, NumberValue(1200), fields["amount"])

	fields, err = FieldMapFrom(nil)
	require.NoError(t, err)
	assert.Nil(t, fields)

	_, err = FieldMapFrom(map[string]any{"bad": make(chan int)})
	assert.Error(t, err)
}

func TestFieldValue_JSONRoundTrip(t *testing.T) {
	original := map[string]FieldValue{
		"name":      StringValue("Acme"),
		"amount":    NumberValue(99),
		"active":    BoolValue(true),
		"closed_at": TimeValue(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	}

	raw, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded map[string]FieldValue

	require.NoError(t, json.Unmarshal(raw, &decoded))

	for key, value := range original {
		assert.True(t, decoded[key].Equal(value), "field %s changed across the round trip", key)
	}
}

func TestFieldValue_IsEmpty(t *testing.T) {
	assert.True(t, StringValue("").IsEmpty())
	assert.True(t, FieldValue{}.IsEmpty())
	assert.True(t, ListValue().IsEmpty())

	assert.False(t, NumberValue(0).IsEmpty())
	assert.False(t, BoolValue(false).IsEmpty())
	assert.False(t, StringValue("x").IsEmpty())
}
