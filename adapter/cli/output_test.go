package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, PrintJSON(&buf, map[string]int{"count": 2}))

	assert.Equal(t, "{\n  \"count\": 2\n}\n", buf.String())
}

func TestParseID(t *testing.T) {
	id := uuid.New()

	got, err := ParseID("contract id", id.String())
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseID("contract id", "nope")
	assert.ErrorContains(t, err, `invalid contract id "nope"`)
}

func TestParseOptionalID(t *testing.T) {
	got, err := ParseOptionalID("customer", "")
	require.NoError(t, err)
	assert.Nil(t, got)

	id := uuid.New()
	got, err = ParseOptionalID("customer", id.String())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, *got)

	_, err = ParseOptionalID("customer", "x")
	assert.Error(t, err)
}

func TestParseTime(t *testing.T) {
	t.Run("date", func(t *testing.T) {
		got, err := ParseTime("from", "2024-03-01")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("timestamp is converted to UTC", func(t *testing.T) {
		got, err := ParseTime("to", "2024-03-01T12:00:00+02:00")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), got)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := ParseTime("from", "March")
		assert.ErrorContains(t, err, "YYYY-MM-DD")
	})
}

func TestRequireApp(t *testing.T) {
	SetApp(nil)
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	defer rootCmd.SetOut(nil)

	assert.Nil(t, RequireApp(rootCmd, "Listing applications"))
	assert.Contains(t, buf.String(), "Listing applications requires database connection.")
}
