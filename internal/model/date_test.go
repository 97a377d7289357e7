package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateArithmetic(t *testing.T) {
	d := NewDate(2024, time.February, 28)

	assert.Equal(t, NewDate(2024, time.February, 29), d.AddDays(1))
	assert.Equal(t, NewDate(2024, time.March, 1), d.AddDays(2))
	assert.Equal(t, 2, d.DaysUntil(d.AddDays(2)))
	assert.Equal(t, -3, d.DaysUntil(d.AddDays(-3)))
	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.AddDays(1).After(d))
	assert.Equal(t, "2024-02-28", d.String())
}

func TestDateOfUsesOwnLocation(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	instant := time.Date(2025, time.June, 4, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, NewDate(2025, time.June, 4), DateOf(instant))
	assert.Equal(t, NewDate(2025, time.June, 5), DateOf(instant.In(loc)))
}

func TestDateAsMapKey(t *testing.T) {
	m := map[Date]int{}
	m[NewDate(2025, time.June, 5)]++
	m[DateOf(time.Date(2025, time.June, 5, 13, 45, 0, 0, time.UTC))]++
	m[NewDate(2025, time.June, 4).AddDays(1)]++

	assert.Len(t, m, 1)
	assert.Equal(t, 3, m[NewDate(2025, time.June, 5)])
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		D Date `json:"d"`
	}{D: NewDate(2025, time.June, 5)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2025-06-05"}`, string(b))

	var out struct {
		D Date `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"d":"2025-12-31"}`), &out))
	assert.Equal(t, NewDate(2025, time.December, 31), out.D)

	assert.Error(t, json.Unmarshal([]byte(`{"d":"31.12.2025"}`), &out))
}

func TestFloatingPinsWallClockToUTC(t *testing.T) {
	wall := time.Date(2025, time.June, 5, 9, 30, 0, 0, time.FixedZone("X", -5*3600))
	w := Floating(wall)

	assert.False(t, w.DateOnly)
	assert.Equal(t, time.UTC, w.Instant.Location())
	assert.Equal(t, 9, w.Instant.Hour())
	assert.Equal(t, 30, w.Instant.Minute())
}
