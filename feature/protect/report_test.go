package protect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReportInput() BuildReportInput {
	plan := Plan{
		Decisions: []Decision{
			{ItemID: "Q1", Action: ActionAdd, Usage: 700},
			{ItemID: "Q2", Action: ActionRemove, Usage: 100},
			{ItemID: "Q3", Action: ActionCooldown, Usage: 400},
			{ItemID: "Q4", Action: ActionNoOp, Usage: 10},
		},
		Counts: PlanCounts{
			SnapshotSize:        4,
			Qualifying:          1,
			ProtectedHighlyUsed: 2,
			ProtectedOther:      1,
			Adds:                1,
			Removes:             1,
			Cooldowns:           1,
		},
	}
	return BuildReportInput{
		RunID:        "run-1",
		Timestamp:    time.Date(2026, 8, 24, 3, 0, 0, 0, time.UTC),
		Policy:       testPolicy(),
		SnapshotURL:  "https://example.org/snapshot.csv",
		BlacklistURL: "https://example.org/blacklist.json",
		Plan:         plan,
		Gate: GateResult{
			Adds:    plan.Select(ActionAdd),
			Removes: plan.Select(ActionRemove),
		},
		Results: []ExecResult{
			{ItemID: "Q1", Action: ActionAdd, Outcome: OutcomeApplied},
			{ItemID: "Q2", Action: ActionRemove, Outcome: OutcomeSkippedStale},
		},
		TotalItems:    1000,
		BlacklistSize: 7,
	}
}

func TestBuildReport(t *testing.T) {
	rep := BuildReport(sampleReportInput())

	assert.Equal(t, "run-1", rep.RunID)
	assert.Equal(t, 4, rep.SnapshotSize)
	assert.Equal(t, 1, rep.Qualifying)
	assert.InDelta(t, 0.1, rep.QualifyingPercent, 1e-9)
	assert.Equal(t, 7, rep.BlacklistSize)
	assert.Equal(t, 1, rep.ProposedAdds)
	assert.Equal(t, 1, rep.ProposedRemoves)
	assert.Equal(t, 1, rep.CooldownCount)
	assert.Equal(t, []string{"Q3"}, rep.CooldownItems)

	assert.Equal(t, 1, rep.AddedCount)
	assert.Equal(t, 0, rep.LiftedCount) // the removal was skipped as stale
	assert.Equal(t, map[Outcome]int{OutcomeApplied: 1}, rep.AdditionStats)
	assert.Equal(t, map[Outcome]int{OutcomeSkippedStale: 1}, rep.RemovalStats)
	require.Len(t, rep.AddResults, 1)
	require.Len(t, rep.RemoveResults, 1)
}

func TestBuildReport_ZeroTotalItems(t *testing.T) {
	in := sampleReportInput()
	in.TotalItems = 0
	rep := BuildReport(in)
	assert.Zero(t, rep.QualifyingPercent)
}

func TestBuildReport_CarriesWithheldReasons(t *testing.T) {
	in := sampleReportInput()
	in.Gate = GateResult{
		AddsWithheld:          true,
		AddsWithheldReason:    "too many additions",
		RemovesWithheld:       true,
		RemovesWithheldReason: "too many removals",
	}
	rep := BuildReport(in)

	assert.True(t, rep.AddsWithheld)
	assert.Equal(t, "too many additions", rep.AddsWithheldReason)
	assert.True(t, rep.RemovesWithheld)
	assert.Equal(t, "too many removals", rep.RemovesWithheldReason)
}

func TestRender_DefaultTemplate(t *testing.T) {
	rep := BuildReport(sampleReportInput())

	text, err := rep.Render("")
	require.NoError(t, err)

	assert.Contains(t, text, "== Protection management run ==")
	assert.Contains(t, text, "Run run-1 at 2026-08-24, 03:00:00 (UTC)")
	assert.Contains(t, text, "entity usage limit: 500")
	assert.Contains(t, text, "qualifying items: 1 (0.1000% of 1000 items)")
	assert.Contains(t, text, "in cooldown: 1 (Q3)")
	assert.Contains(t, text, "added this run: 1")
	assert.Contains(t, text, `{| class="wikitable sortable"`)
	assert.Contains(t, text, "| applied || 1")
	assert.Contains(t, text, "| skipped_stale_state || 1")
}

func TestRender_CustomTemplate(t *testing.T) {
	rep := BuildReport(sampleReportInput())

	text, err := rep.Render("adds={{.AddedCount}} lifts={{.LiftedCount}}")
	require.NoError(t, err)
	assert.Equal(t, "adds=1 lifts=0", text)

	_, err = rep.Render("{{.NoSuchField}}")
	assert.Error(t, err)
}

func TestStatsTable_OmitsZeroRows(t *testing.T) {
	table := statsTable(map[Outcome]int{
		OutcomeApplied: 3,
		OutcomeFailed:  0,
	})
	assert.Contains(t, table, "| applied || 3")
	assert.NotContains(t, table, "failed")
}
