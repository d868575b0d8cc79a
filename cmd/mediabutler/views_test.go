package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediabutler/internal/ipc"
)

func TestFormatStatusLabel(t *testing.T) {
	cases := map[string]string{
		"ready_to_move": "Ready To Move",
		"new":           "New",
		"":              "",
		"MOVED":         "Moved",
	}
	for input, want := range cases {
		assert.Equal(t, want, formatStatusLabel(input), "input %q", input)
	}
}

func TestEffectiveCategoryPrefersConfirmed(t *testing.T) {
	confidence := 0.92
	file := ipc.FileSummary{
		Category:          "THE WIRE",
		SuggestedCategory: "WIRE",
		Confidence:        &confidence,
	}
	assert.Equal(t, "THE WIRE", effectiveCategory(file))

	file.Category = ""
	assert.Equal(t, "WIRE (92%)", effectiveCategory(file))

	file.SuggestedCategory = ""
	assert.Equal(t, "-", effectiveCategory(file))
}

func TestBuildFileRows(t *testing.T) {
	files := []ipc.FileSummary{
		{
			Hash:      strings.Repeat("a", 64),
			FileName:  "show.s01e01.mkv",
			Status:    "classified",
			SizeBytes: 1024,
			UpdatedAt: time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
		},
	}
	rows := buildFileRows(files)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, strings.Repeat("a", 12), row[0])
	assert.Equal(t, "Classified", row[2])
	assert.Equal(t, "2026-03-01 12:30", row[5])
}

func TestRenderTableIncludesHeadersAndRows(t *testing.T) {
	out := renderTable(
		[]string{"Status", "Count"},
		[][]string{{"New", "3"}, {"Moved", "1"}},
		[]columnAlignment{alignLeft, alignRight},
	)
	for _, want := range []string{"Status", "Count", "New", "Moved"} {
		assert.Contains(t, out, want)
	}
}

func TestCheckDirectory(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, statusOK, checkDirectory("Library", dir).kind)
	assert.Equal(t, statusError, checkDirectory("Library", dir+"/missing").kind)
	assert.Equal(t, statusWarn, checkDirectory("Library", "").kind)
}
