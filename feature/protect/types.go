package protect

import (
	"sort"
	"strconv"
)

// ProtectionKind classifies the current edit protection of an item page.
type ProtectionKind string

const (
	// ProtectionNone means the item page carries no edit restriction.
	ProtectionNone ProtectionKind = "none"

	// ProtectionHighlyUsed is an indefinite semi-protection applied under
	// the highly-used items scheme. Only this kind may be lifted.
	ProtectionHighlyUsed ProtectionKind = "highly_used_semi"

	// ProtectionOtherSemi is a semi-protection applied for unrelated
	// reasons (vandalism, edit wars, ...). The reconciler never touches it.
	ProtectionOtherSemi ProtectionKind = "other_semi"
)

// UsageRecord is one row of the usage snapshot feed.
type UsageRecord struct {
	// ItemID is the item identifier, e.g. "Q42".
	ItemID string

	// UsageCount is the number of distinct pages referencing the item.
	UsageCount int

	// SubscribedProjects is the number of distinct sites consuming the
	// item's data. Zero unless subscriber enrichment ran (see
	// EnrichSubscribers); only consulted when the policy enables a
	// minimum.
	SubscribedProjects int
}

// BlacklistSet holds item ids that must never be protected automatically.
// Blacklisting blocks additions only; removals ignore it.
type BlacklistSet map[string]struct{}

// Contains reports whether the item id is blacklisted.
func (b BlacklistSet) Contains(itemID string) bool {
	_, ok := b[itemID]
	return ok
}

// ProtectionRecord describes the protection of a single item as read from
// the replica database at run start.
type ProtectionRecord struct {
	// ItemID is the item identifier.
	ItemID string

	// Kind is the classified protection kind.
	Kind ProtectionKind

	// By is the account that set the protection, from the protect log.
	By string

	// LogTimestamp is the raw 14-digit MediaWiki timestamp of the latest
	// protect log entry for the item.
	LogTimestamp string
}

// Action is the decision taken for a single item.
type Action string

const (
	// ActionAdd proposes semi-protecting the item.
	ActionAdd Action = "add"
	// ActionRemove proposes lifting the item's semi-protection.
	ActionRemove Action = "remove"
	// ActionCooldown leaves a protected item untouched inside the
	// hysteresis band. Tracked and reported, never executed.
	ActionCooldown Action = "cooldown"
	// ActionNoOp means no change is proposed for the item.
	ActionNoOp Action = "noop"
)

// Decision is the engine's verdict for one item.
type Decision struct {
	// ItemID is the item identifier.
	ItemID string `json:"item_id"`

	// Action is the proposed action.
	Action Action `json:"action"`

	// Reason explains the classification.
	Reason string `json:"reason"`

	// Usage is the usage count the decision was based on. Items holding
	// protection but absent from the snapshot evaluate at zero.
	Usage int `json:"usage"`
}

// PlanCounts holds the aggregate statistics produced alongside decisions.
// They map directly onto the run report fields.
type PlanCounts struct {
	// SnapshotSize is the number of records in the usage snapshot.
	SnapshotSize int `json:"snapshot_size"`

	// Qualifying is the number of snapshot records at or above the entity
	// usage limit.
	Qualifying int `json:"qualifying"`

	// BlacklistedSkips counts additions blocked by the blacklist.
	BlacklistedSkips int `json:"blacklisted_skips"`

	// ProtectedHighlyUsed is the number of items protected under the
	// highly-used scheme before the run.
	ProtectedHighlyUsed int `json:"protected_highly_used"`

	// ProtectedOther is the number of items semi-protected for unrelated
	// reasons.
	ProtectedOther int `json:"protected_other"`

	// OtherAlsoQualifying counts items protected for unrelated reasons
	// that would also qualify by usage. Reporting only; no transition is
	// ever proposed for them.
	OtherAlsoQualifying int `json:"other_also_qualifying"`

	// Adds, Removes and Cooldowns count the respective decision kinds.
	Adds      int `json:"adds"`
	Removes   int `json:"removes"`
	Cooldowns int `json:"cooldowns"`
}

// Plan is the pure output of Decide: one decision per candidate item plus
// the aggregate counts. Re-running Decide on identical inputs yields an
// identical Plan.
type Plan struct {
	Decisions []Decision `json:"decisions"`
	Counts    PlanCounts `json:"counts"`
}

// Select returns the decisions carrying the given action, in plan order.
func (p Plan) Select(action Action) []Decision {
	var out []Decision
	for _, d := range p.Decisions {
		if d.Action == action {
			out = append(out, d)
		}
	}
	return out
}

// itemLess orders item identifiers with numeric awareness, so that Q42
// sorts before Q100. Identifiers that do not follow the letter-prefix
// pattern fall back to plain string comparison.
func itemLess(a, b string) bool {
	na, aok := itemNumber(a)
	nb, bok := itemNumber(b)
	if aok && bok && na != nb {
		return na < nb
	}
	return a < b
}

func itemNumber(id string) (int64, bool) {
	if len(id) < 2 {
		return 0, false
	}
	n, err := strconv.ParseInt(id[1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// sortDecisions orders decisions by ascending item identifier in place.
func sortDecisions(ds []Decision) {
	sort.Slice(ds, func(i, j int) bool {
		return itemLess(ds[i].ItemID, ds[j].ItemID)
	})
}
