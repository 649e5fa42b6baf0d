package protect

import "fmt"

// Classification reasons carried on decisions and surfaced in the report.
const (
	ReasonQualifies       = "highly used"
	ReasonStillQualifies  = "still qualifies"
	ReasonBelowCooldown   = "usage fell below cooldown floor"
	ReasonCooldownBand    = "cooldown band"
	ReasonBlacklisted     = "blacklisted"
	ReasonDoesNotQualify  = "does not qualify"
	ReasonFewSubscribers  = "too few subscribed projects"
	ReasonOtherProtection = "protected for unrelated reasons"
)

// Decide classifies every candidate item against the policy and returns the
// full decision set plus aggregate counts.
//
// The candidate universe is the union of the usage snapshot and the items
// currently protected under the highly-used scheme: a previously protected
// item that dropped out of the snapshot is still reconsidered, at usage
// count zero. Decide is a pure function of its inputs; given identical
// inputs it returns an identical plan, decisions ordered by ascending item
// identifier.
func Decide(snapshot []UsageRecord, blacklist BlacklistSet, protection map[string]ProtectionRecord, pol Policy) Plan {
	usage := make(map[string]UsageRecord, len(snapshot))
	for _, rec := range snapshot {
		usage[rec.ItemID] = rec
	}

	var counts PlanCounts
	counts.SnapshotSize = len(snapshot)
	for _, rec := range snapshot {
		if rec.UsageCount >= pol.EntityUsageLimit {
			counts.Qualifying++
		}
	}
	for _, prot := range protection {
		switch prot.Kind {
		case ProtectionHighlyUsed:
			counts.ProtectedHighlyUsed++
		case ProtectionOtherSemi:
			counts.ProtectedOther++
			if usage[prot.ItemID].UsageCount >= pol.EntityUsageLimit {
				counts.OtherAlsoQualifying++
			}
		}
	}

	candidates := make(map[string]struct{}, len(snapshot))
	for _, rec := range snapshot {
		candidates[rec.ItemID] = struct{}{}
	}
	for id, prot := range protection {
		if prot.Kind == ProtectionHighlyUsed {
			candidates[id] = struct{}{}
		}
	}

	decisions := make([]Decision, 0, len(candidates))
	for id := range candidates {
		d := classify(id, usage[id], blacklist, protection[id], pol)
		switch d.Action {
		case ActionAdd:
			counts.Adds++
		case ActionRemove:
			counts.Removes++
		case ActionCooldown:
			counts.Cooldowns++
		case ActionNoOp:
			if d.Reason == ReasonBlacklisted {
				counts.BlacklistedSkips++
			}
		}
		decisions = append(decisions, d)
	}
	sortDecisions(decisions)

	return Plan{Decisions: decisions, Counts: counts}
}

// classify evaluates a single item. The zero values of rec and prot stand
// for "absent from snapshot" (usage 0) and "unprotected" respectively.
func classify(id string, rec UsageRecord, blacklist BlacklistSet, prot ProtectionRecord, pol Policy) Decision {
	d := Decision{ItemID: id, Usage: rec.UsageCount}

	switch prot.Kind {
	case ProtectionOtherSemi:
		// Protection for unrelated reasons is outside this engine's
		// authority, regardless of usage.
		d.Action = ActionNoOp
		d.Reason = ReasonOtherProtection

	case ProtectionHighlyUsed:
		switch {
		case rec.UsageCount < pol.CooldownLimit:
			d.Action = ActionRemove
			d.Reason = ReasonBelowCooldown
		case rec.UsageCount < pol.EntityUsageLimit:
			d.Action = ActionCooldown
			d.Reason = ReasonCooldownBand
		default:
			d.Action = ActionNoOp
			d.Reason = ReasonStillQualifies
		}

	default: // unprotected
		switch {
		case blacklist.Contains(id):
			d.Action = ActionNoOp
			d.Reason = ReasonBlacklisted
		case rec.UsageCount < pol.EntityUsageLimit:
			d.Action = ActionNoOp
			d.Reason = ReasonDoesNotQualify
		case pol.MinSubscribedProjects > 0 && rec.SubscribedProjects < pol.MinSubscribedProjects:
			d.Action = ActionNoOp
			d.Reason = ReasonFewSubscribers
		default:
			d.Action = ActionAdd
			d.Reason = fmt.Sprintf("%s (%d pages)", ReasonQualifies, rec.UsageCount)
		}
	}

	return d
}
