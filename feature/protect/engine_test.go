package protect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() Policy {
	return Policy{
		EntityUsageLimit: 500,
		CooldownLimit:    300,
		AddLimit:         1000,
		LiftLimit:        100,
	}
}

func protectedBy(kind ProtectionKind, ids ...string) map[string]ProtectionRecord {
	out := make(map[string]ProtectionRecord, len(ids))
	for _, id := range ids {
		out[id] = ProtectionRecord{ItemID: id, Kind: kind, By: "MsynABot", LogTimestamp: "20250101000000"}
	}
	return out
}

func decisionFor(t *testing.T, plan Plan, id string) Decision {
	t.Helper()
	for _, d := range plan.Decisions {
		if d.ItemID == id {
			return d
		}
	}
	t.Fatalf("no decision for %s", id)
	return Decision{}
}

func TestDecide_Classification(t *testing.T) {
	pol := testPolicy()

	tests := []struct {
		name       string
		usage      int
		protection ProtectionKind // "" means unprotected
		blacklist  bool
		wantAction Action
		wantReason string
	}{
		{
			name:       "unprotected at threshold qualifies",
			usage:      500,
			wantAction: ActionAdd,
			wantReason: "highly used (500 pages)",
		},
		{
			name:       "unprotected below threshold stays",
			usage:      499,
			wantAction: ActionNoOp,
			wantReason: ReasonDoesNotQualify,
		},
		{
			name:       "blacklisted never added",
			usage:      10000,
			blacklist:  true,
			wantAction: ActionNoOp,
			wantReason: ReasonBlacklisted,
		},
		{
			name:       "protected above threshold stays protected",
			usage:      500,
			protection: ProtectionHighlyUsed,
			wantAction: ActionNoOp,
			wantReason: ReasonStillQualifies,
		},
		{
			name:       "protected in hysteresis band cools down",
			usage:      400,
			protection: ProtectionHighlyUsed,
			wantAction: ActionCooldown,
			wantReason: ReasonCooldownBand,
		},
		{
			name:       "protected at cooldown floor cools down",
			usage:      300,
			protection: ProtectionHighlyUsed,
			wantAction: ActionCooldown,
			wantReason: ReasonCooldownBand,
		},
		{
			name:       "protected below cooldown floor is lifted",
			usage:      299,
			protection: ProtectionHighlyUsed,
			wantAction: ActionRemove,
			wantReason: ReasonBelowCooldown,
		},
		{
			name:       "other protection is never touched",
			usage:      10000,
			protection: ProtectionOtherSemi,
			wantAction: ActionNoOp,
			wantReason: ReasonOtherProtection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := []UsageRecord{{ItemID: "Q1", UsageCount: tt.usage}}
			blacklist := BlacklistSet{}
			if tt.blacklist {
				blacklist["Q1"] = struct{}{}
			}
			protection := map[string]ProtectionRecord{}
			if tt.protection != "" {
				protection = protectedBy(tt.protection, "Q1")
			}

			plan := Decide(snapshot, blacklist, protection, pol)
			d := decisionFor(t, plan, "Q1")
			assert.Equal(t, tt.wantAction, d.Action)
			assert.Equal(t, tt.wantReason, d.Reason)
			assert.Equal(t, tt.usage, d.Usage)
		})
	}
}

func TestDecide_BlacklistOnlyBlocksAdditions(t *testing.T) {
	// A blacklisted item that was protected before the blacklisting is
	// governed by the usage thresholds alone: it stays protected while it
	// qualifies and is lifted below the floor like any other item.
	blacklist := BlacklistSet{"Q1": {}}

	plan := Decide([]UsageRecord{{ItemID: "Q1", UsageCount: 500}},
		blacklist, protectedBy(ProtectionHighlyUsed, "Q1"), testPolicy())
	d := decisionFor(t, plan, "Q1")
	assert.Equal(t, ActionNoOp, d.Action)
	assert.Equal(t, ReasonStillQualifies, d.Reason)

	plan = Decide([]UsageRecord{{ItemID: "Q1", UsageCount: 100}},
		blacklist, protectedBy(ProtectionHighlyUsed, "Q1"), testPolicy())
	assert.Equal(t, ActionRemove, decisionFor(t, plan, "Q1").Action)
}

func TestDecide_ProtectedItemAbsentFromSnapshot(t *testing.T) {
	// A protected item missing from the snapshot evaluates at usage zero,
	// which is below the cooldown floor: its protection is lifted.
	plan := Decide(nil, BlacklistSet{}, protectedBy(ProtectionHighlyUsed, "Q7"), testPolicy())

	d := decisionFor(t, plan, "Q7")
	assert.Equal(t, ActionRemove, d.Action)
	assert.Equal(t, 0, d.Usage)
}

func TestDecide_OtherProtectionAbsentFromSnapshotIgnored(t *testing.T) {
	// Other-protected items are not candidates unless the snapshot lists
	// them; the engine has no business tracking them.
	plan := Decide(nil, BlacklistSet{}, protectedBy(ProtectionOtherSemi, "Q7"), testPolicy())
	assert.Empty(t, plan.Decisions)
	assert.Equal(t, 1, plan.Counts.ProtectedOther)
}

func TestDecide_MinSubscribedProjects(t *testing.T) {
	pol := testPolicy()
	pol.MinSubscribedProjects = 3

	snapshot := []UsageRecord{
		{ItemID: "Q1", UsageCount: 600, SubscribedProjects: 2},
		{ItemID: "Q2", UsageCount: 600, SubscribedProjects: 3},
	}
	plan := Decide(snapshot, BlacklistSet{}, nil, pol)

	assert.Equal(t, ActionNoOp, decisionFor(t, plan, "Q1").Action)
	assert.Equal(t, ReasonFewSubscribers, decisionFor(t, plan, "Q1").Reason)
	assert.Equal(t, ActionAdd, decisionFor(t, plan, "Q2").Action)
}

func TestDecide_SubscribersIgnoredWhenDisabled(t *testing.T) {
	// MinSubscribedProjects 0 disables the check even when enrichment
	// never ran and every record carries zero.
	snapshot := []UsageRecord{{ItemID: "Q1", UsageCount: 600}}
	plan := Decide(snapshot, BlacklistSet{}, nil, testPolicy())
	assert.Equal(t, ActionAdd, decisionFor(t, plan, "Q1").Action)
}

func TestDecide_Counts(t *testing.T) {
	snapshot := []UsageRecord{
		{ItemID: "Q1", UsageCount: 700},  // add
		{ItemID: "Q2", UsageCount: 100},  // does not qualify
		{ItemID: "Q3", UsageCount: 900},  // blacklisted
		{ItemID: "Q4", UsageCount: 400},  // protected, cooldown band
		{ItemID: "Q5", UsageCount: 50},   // protected, below floor
		{ItemID: "Q6", UsageCount: 1200}, // other protection, also qualifying
	}
	blacklist := BlacklistSet{"Q3": {}}
	protection := map[string]ProtectionRecord{
		"Q4": {ItemID: "Q4", Kind: ProtectionHighlyUsed},
		"Q5": {ItemID: "Q5", Kind: ProtectionHighlyUsed},
		"Q6": {ItemID: "Q6", Kind: ProtectionOtherSemi},
		"Q7": {ItemID: "Q7", Kind: ProtectionHighlyUsed}, // absent from snapshot
	}

	plan := Decide(snapshot, blacklist, protection, testPolicy())

	assert.Equal(t, 6, plan.Counts.SnapshotSize)
	// Qualifying counts by usage alone: Q1, Q3 (despite the blacklist) and Q6.
	assert.Equal(t, 3, plan.Counts.Qualifying)
	assert.Equal(t, 1, plan.Counts.BlacklistedSkips)
	assert.Equal(t, 3, plan.Counts.ProtectedHighlyUsed)
	assert.Equal(t, 1, plan.Counts.ProtectedOther)
	assert.Equal(t, 1, plan.Counts.OtherAlsoQualifying)
	assert.Equal(t, 1, plan.Counts.Adds)
	assert.Equal(t, 2, plan.Counts.Removes) // Q5 and the off-snapshot Q7
	assert.Equal(t, 1, plan.Counts.Cooldowns)
}

func TestDecide_Deterministic(t *testing.T) {
	snapshot := []UsageRecord{
		{ItemID: "Q100", UsageCount: 600},
		{ItemID: "Q42", UsageCount: 600},
		{ItemID: "Q9", UsageCount: 600},
		{ItemID: "Q2", UsageCount: 10},
	}
	protection := protectedBy(ProtectionHighlyUsed, "Q7")

	first := Decide(snapshot, BlacklistSet{}, protection, testPolicy())
	for range 5 {
		assert.Equal(t, first, Decide(snapshot, BlacklistSet{}, protection, testPolicy()))
	}

	// Numeric-aware ordering: Q9 before Q42 before Q100.
	ids := make([]string, 0, len(first.Decisions))
	for _, d := range first.Decisions {
		ids = append(ids, d.ItemID)
	}
	require.Equal(t, []string{"Q2", "Q7", "Q9", "Q42", "Q100"}, ids)
}

func TestItemLess(t *testing.T) {
	assert.True(t, itemLess("Q42", "Q100"))
	assert.False(t, itemLess("Q100", "Q42"))
	assert.True(t, itemLess("Q1", "Q1000000000"))
	// Non-numeric identifiers fall back to string order.
	assert.True(t, itemLess("Qabc", "Qabd"))
}

func TestPlanSelect(t *testing.T) {
	plan := Plan{Decisions: []Decision{
		{ItemID: "Q1", Action: ActionAdd},
		{ItemID: "Q2", Action: ActionRemove},
		{ItemID: "Q3", Action: ActionAdd},
	}}
	adds := plan.Select(ActionAdd)
	require.Len(t, adds, 2)
	assert.Equal(t, "Q1", adds[0].ItemID)
	assert.Equal(t, "Q3", adds[1].ItemID)
	assert.Empty(t, plan.Select(ActionCooldown))
}
