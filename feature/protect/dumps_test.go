package protect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDecisionDumps(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dumps")
	plan := Plan{Decisions: []Decision{
		{ItemID: "Q1", Action: ActionAdd, Usage: 700, Reason: "highly used (700 pages)"},
		{ItemID: "Q2", Action: ActionRemove, Usage: 100, Reason: ReasonBelowCooldown},
		{ItemID: "Q3", Action: ActionCooldown, Usage: 400, Reason: ReasonCooldownBand},
		{ItemID: "Q4", Action: ActionNoOp, Usage: 10, Reason: ReasonDoesNotQualify},
	}}

	require.NoError(t, WriteDecisionDumps(dir, plan))

	adds, err := os.ReadFile(filepath.Join(dir, "protectionsToAdd.tsv"))
	require.NoError(t, err)
	assert.Equal(t, "qid\tusage\treason\nQ1\t700\thighly used (700 pages)\n", string(adds))

	lifts, err := os.ReadFile(filepath.Join(dir, "protectionsToLift.tsv"))
	require.NoError(t, err)
	assert.Contains(t, string(lifts), "Q2\t100\t")

	cooldowns, err := os.ReadFile(filepath.Join(dir, "protectionsInCooldown.tsv"))
	require.NoError(t, err)
	assert.Contains(t, string(cooldowns), "Q3\t400\t")

	// NoOp decisions are not dumped anywhere.
	for _, f := range []string{"protectionsToAdd.tsv", "protectionsToLift.tsv", "protectionsInCooldown.tsv"} {
		data, err := os.ReadFile(filepath.Join(dir, f))
		require.NoError(t, err)
		assert.NotContains(t, string(data), "Q4")
	}
}

func TestWriteDecisionDumps_EmptyPlan(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteDecisionDumps(dir, Plan{}))

	data, err := os.ReadFile(filepath.Join(dir, "protectionsToAdd.tsv"))
	require.NoError(t, err)
	assert.Equal(t, "qid\tusage\treason\n", string(data))
}
