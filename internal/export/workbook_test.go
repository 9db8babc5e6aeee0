package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestBytes_MultipleSheets(t *testing.T) {
	respondedAt := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	var missing *string

	responded := Sheet{
		Name:    "Responded Students",
		Headers: []string{"Registration Number", "Student Name", "Response", "Responded At"},
	}
	responded.AddRow("21CS001", "Asha", "Yes", respondedAt)
	responded.AddRow("21CS002", "Ravi", missing, nil)

	pending := Sheet{
		Name:    "Non-Responded Students",
		Headers: []string{"Registration Number", "Name"},
	}

	data, err := Bytes(responded, pending)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Responded Students", "Non-Responded Students"}, f.GetSheetList())

	rows, err := f.GetRows("Responded Students")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Registration Number", "Student Name", "Response", "Responded At"}, rows[0])
	assert.Equal(t, []string{"21CS001", "Asha", "Yes", "2024-03-05 14:30:00"}, rows[1])
	require.GreaterOrEqual(t, len(rows[2]), 2)
	assert.Equal(t, []string{"21CS002", "Ravi"}, rows[2][:2])
	for _, cell := range rows[2][2:] {
		assert.Empty(t, cell)
	}

	rows, err = f.GetRows("Non-Responded Students")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestBytes_NoSheets(t *testing.T) {
	_, err := Bytes()
	assert.Error(t, err)
}

func TestSheetNames(t *testing.T) {
	used := map[string]*sheetSlot{}
	assert.Equal(t, "Summary", uniqueSheetName(sheetName("Summary", 0), used))
	assert.Equal(t, "Summary (2)", uniqueSheetName(sheetName("summary", 1), used))
	assert.Equal(t, "Summary (3)", uniqueSheetName(sheetName("SUMMARY", 2), used))
	assert.Equal(t, "Other", uniqueSheetName(sheetName("Other", 3), used))
	assert.Equal(t, "Sheet3", sheetName("  [?]  ", 2))
	assert.Len(t, []rune(sheetName("A very long department section summary name", 0)), maxSheetName)
}

func TestFilename(t *testing.T) {
	at := time.Date(2024, 11, 7, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		title string
		want  string
	}{
		{"Hackathon Interest", "Hackathon Interest_07-11.xlsx"},
		{`  Mid/Term: "Feedback"?  `, "MidTerm Feedback_07-11.xlsx"},
		{"CSE   A\tSection", "CSE A Section_07-11.xlsx"},
		{`<>|`, "export_07-11.xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, Filename(tt.title, at))
		})
	}
}
