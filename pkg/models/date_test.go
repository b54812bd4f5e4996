package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	date, err := ParseDate("2025-06-15")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-15", date.String())

	_, err = ParseDate("15/06/2025")
	assert.Error(t, err)

	_, err = ParseDate("")
	assert.Error(t, err)
}

func TestDate_AddDays(t *testing.T) {
	sessionDate := NewDate(2025, time.June, 15)

	tests := []struct {
		name     string
		days     int
		expected string
	}{
		{"two weeks before", -14, "2025-06-01"},
		{"one week before", -7, "2025-06-08"},
		{"three days before", -3, "2025-06-12"},
		{"session day", 0, "2025-06-15"},
		{"two days after", 2, "2025-06-17"},
		{"one week after", 7, "2025-06-22"},
		{"across month boundary", 16, "2025-07-01"},
		{"across year boundary", 200, "2026-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sessionDate.AddDays(tt.days).String())
		})
	}
}

func TestDate_DaysUntil(t *testing.T) {
	sessionDate := NewDate(2025, time.June, 15)

	assert.Equal(t, 5, NewDate(2025, time.June, 10).DaysUntil(sessionDate))
	assert.Equal(t, 0, sessionDate.DaysUntil(sessionDate))
	assert.Equal(t, -2, NewDate(2025, time.June, 17).DaysUntil(sessionDate))
	assert.Equal(t, 30, NewDate(2025, time.May, 16).DaysUntil(sessionDate))
}

func TestDate_JSONRoundTrip(t *testing.T) {
	original := NewDate(2025, time.June, 15)

	data, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Equal(t, `"2025-06-15"`, string(data))

	var decoded Date

	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, original.Equal(decoded))
}

func TestDate_UnmarshalNull(t *testing.T) {
	var date Date

	require.NoError(t, json.Unmarshal([]byte("null"), &date))
	assert.True(t, date.IsZero())
}

func TestDateOf_TruncatesTimeOfDay(t *testing.T) {
	instant := time.Date(2025, time.June, 15, 23, 45, 12, 0, time.UTC)

	date := DateOf(instant)

	assert.Equal(t, "2025-06-15", date.String())
	assert.True(t, date.Equal(NewDate(2025, time.June, 15)))
}
