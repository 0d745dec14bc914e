package cmd

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billplan/sched"
	"billplan/snapshot"
)

const testSnapshot = `{
  "bills": [
    {"name": "rent", "total": 300.00, "due": "2026-09-04", "priority": 3, "payments": []}
  ],
  "plan": {
    "start": "2026-09-01",
    "end": "2026-09-30",
    "income": {},
    "schedule": {}
  },
  "auto_calc": true
}`

func TestPlanCommandWritesScheduleCSV(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "snapshot.json")
	output := filepath.Join(dir, "schedule.csv")
	saved := filepath.Join(dir, "saved.json")
	require.NoError(t, os.WriteFile(input, []byte(testSnapshot), 0o644))

	cmd := planCmd()
	cmd.SetArgs([]string{"--input", input, "--output", output, "--save", saved})
	require.NoError(t, cmd.Execute())

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, []string{"date", "bill", "amount"}, rows[0])

	// four allocation days plus header and total rows
	require.Len(t, rows, 6)
	assert.Equal(t, "2026-09-01", rows[1][0])
	assert.Equal(t, "rent", rows[1][1])
	last := rows[len(rows)-1]
	assert.Equal(t, "total", last[0])
	assert.Equal(t, "300.00", last[2])

	savedBytes, err := os.ReadFile(saved)
	require.NoError(t, err)
	assert.Contains(t, string(savedBytes), `"rent"`)
}

func TestShortfallWarningsSortedByBill(t *testing.T) {
	start := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)
	snap := &snapshot.Snapshot{
		Bills: []*sched.Bill{
			{Name: "water", Total: 10000, Due: start, Priority: 3},
			{Name: "gas", Total: 5000, Due: start, Priority: 3},
			{Name: "rent", Total: 2000, Due: start, Priority: 3},
		},
		Plan: &sched.Plan{
			Start: start,
			End:   start.AddDate(0, 0, 1),
			Schedule: map[time.Time][]sched.Allocation{
				start: {
					{Bill: "water", Amount: 4000},
					{Bill: "gas", Amount: 1500},
					{Bill: "rent", Amount: 2000},
				},
			},
		},
	}

	var buf bytes.Buffer
	writeShortfallWarnings(&buf, snap)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "gas is 35.00 short")
	assert.Contains(t, lines[1], "water is 60.00 short")
	assert.NotContains(t, buf.String(), "rent")
}

func TestPlanCommandRejectsMissingInput(t *testing.T) {
	dir := t.TempDir()
	cmd := planCmd()
	cmd.SetArgs([]string{"--input", filepath.Join(dir, "missing.json"), "--output", filepath.Join(dir, "out.csv")})
	assert.Error(t, cmd.Execute())
}
