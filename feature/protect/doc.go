// Package protect implements the highly-used item protection reconciler.
//
// Wiki items referenced by a large number of client pages are indefinitely
// semi-protected under the "highly used items" policy. This package decides,
// once per run, which items gain that protection, which items lose it, and
// which items sit in the cooldown band in between.
//
// # Pipeline
//
// A run flows through three stages:
//
//   - Decide: a pure classification of every candidate item against the
//     usage thresholds (see Policy). It produces a Plan and touches no
//     external state.
//   - Gate: batch-level rate limiting. If a direction (additions or
//     removals) exceeds its configured limit, that entire direction is
//     withheld for human review. An optional hard limit then caps how many
//     approved items actually execute.
//   - Execute: one mutation per item against the live wiki, each preceded
//     by a fresh read of the item's current protection so that stale
//     snapshot data can never overwrite an unrelated protection.
//
// # Collaborators
//
// The usage snapshot feed, the on-wiki blacklist, the replica database and
// the wiki API are modelled as narrow interfaces (SnapshotSource,
// BlacklistSource, ProtectionSource, StateStore) so the pipeline is fully
// testable against in-memory fakes.
package protect
