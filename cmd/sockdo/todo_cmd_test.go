package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/fentz26/sockdo/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTodoID(t *testing.T) {
	id, err := parseTodoID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "0", "-1", "abc", "1.5"} {
		_, err := parseTodoID(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ééééééé...", truncate("éééééééééééé", 10), "counts runes, not bytes")
}

func TestPrintTodos(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printTodos(&buf, nil))
	assert.Equal(t, "No todos found\n", buf.String())

	buf.Reset()
	created := models.NewTimestamp(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, printTodos(&buf, []models.Todo{
		{ID: 1, Title: "milk", CreatedAt: created},
		{ID: 2, Title: "eggs", Completed: true, CreatedAt: created},
	}))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[0]), "ID")
	assert.Contains(t, string(lines[0]), "TITLE")
	assert.Contains(t, string(lines[1]), "milk")
	assert.Contains(t, string(lines[2]), "x")
	assert.Contains(t, string(lines[2]), "eggs")
}
