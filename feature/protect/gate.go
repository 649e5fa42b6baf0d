package protect

import "fmt"

// GateResult carries the batches that survived the per-direction rate
// limits, plus the withheld conditions for the report.
type GateResult struct {
	// Adds and Removes are the approved batches, ordered by ascending
	// item identifier. Empty when the direction was withheld.
	Adds    []Decision `json:"adds"`
	Removes []Decision `json:"removes"`

	// AddsWithheld is set when the addition batch exceeded the add limit
	// and was withheld in its entirety. AddsWithheldReason explains it.
	AddsWithheld       bool   `json:"adds_withheld"`
	AddsWithheldReason string `json:"adds_withheld_reason,omitempty"`

	// RemovesWithheld mirrors AddsWithheld for the removal batch.
	RemovesWithheld       bool   `json:"removes_withheld"`
	RemovesWithheldReason string `json:"removes_withheld_reason,omitempty"`
}

// Gate applies the all-or-nothing per-direction rate limits to a plan.
//
// A batch larger than its limit signals an anomaly (bulk import, mass
// vandalism, data error) that needs a human, so the whole batch is withheld
// rather than truncated. The two directions are gated independently; a
// withheld addition batch never affects removals, and vice versa. A zero
// limit disables the gate for that direction.
func Gate(plan Plan, pol Policy) GateResult {
	res := GateResult{
		Adds:    plan.Select(ActionAdd),
		Removes: plan.Select(ActionRemove),
	}

	if pol.AddLimit > 0 && len(res.Adds) > pol.AddLimit {
		res.AddsWithheld = true
		res.AddsWithheldReason = fmt.Sprintf("%d additions proposed, limit is %d; batch withheld for review",
			len(res.Adds), pol.AddLimit)
		res.Adds = nil
	}

	if pol.LiftLimit > 0 && len(res.Removes) > pol.LiftLimit {
		res.RemovesWithheld = true
		res.RemovesWithheldReason = fmt.Sprintf("%d removals proposed, limit is %d; batch withheld for review",
			len(res.Removes), pol.LiftLimit)
		res.Removes = nil
	}

	return res
}

// CapApproved truncates an approved batch to at most hardLimit items. The
// batch is already ordered by ascending item identifier (numeric-aware, so
// Q42 executes before Q100), which makes the selection deterministic:
// re-running the same batch with the same cap executes the same subset.
// A zero cap disables truncation.
func CapApproved(batch []Decision, hardLimit int) []Decision {
	if hardLimit <= 0 || len(batch) <= hardLimit {
		return batch
	}
	return batch[:hardLimit]
}
