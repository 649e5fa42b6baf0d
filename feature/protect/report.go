package protect

import (
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"
)

// RunReport is the write-once artifact of a reconciliation run. Every field
// is derived from the plan, the gate result and the executor outcomes; the
// report carries no state of its own.
type RunReport struct {
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	DryRun    bool      `json:"dry_run"`

	Policy Policy `json:"policy"`

	SnapshotURL  string `json:"snapshot_url"`
	BlacklistURL string `json:"blacklist_url"`

	// SnapshotSize through OtherAlsoQualifying mirror PlanCounts.
	SnapshotSize        int     `json:"snapshot_size"`
	Qualifying          int     `json:"qualifying"`
	QualifyingPercent   float64 `json:"qualifying_percent"`
	TotalItems          int     `json:"total_items"`
	BlacklistSize       int     `json:"blacklist_size"`
	ProtectedHighlyUsed int     `json:"protected_highly_used"`
	ProtectedOther      int     `json:"protected_other"`
	OtherAlsoQualifying int     `json:"other_also_qualifying"`

	ProposedAdds    int `json:"proposed_adds"`
	ProposedRemoves int `json:"proposed_removes"`

	CooldownCount int      `json:"cooldown_count"`
	CooldownItems []string `json:"cooldown_items"`

	AddsWithheld          bool   `json:"adds_withheld"`
	AddsWithheldReason    string `json:"adds_withheld_reason,omitempty"`
	RemovesWithheld       bool   `json:"removes_withheld"`
	RemovesWithheldReason string `json:"removes_withheld_reason,omitempty"`

	// AddedCount and LiftedCount are the mutations actually applied.
	AddedCount  int `json:"added_count"`
	LiftedCount int `json:"lifted_count"`

	// AdditionStats and RemovalStats tally processing outcomes per batch,
	// keyed by outcome.
	AdditionStats map[Outcome]int `json:"addition_stats"`
	RemovalStats  map[Outcome]int `json:"removal_stats"`

	// AddResults and RemoveResults are the per-item outcomes.
	AddResults    []ExecResult `json:"add_results"`
	RemoveResults []ExecResult `json:"remove_results"`
}

// BuildReportInput bundles the run artifacts a report is derived from.
type BuildReportInput struct {
	RunID        string
	Timestamp    time.Time
	DryRun       bool
	Policy       Policy
	SnapshotURL  string
	BlacklistURL string
	Plan         Plan
	Gate         GateResult
	Results      []ExecResult
	// TotalItems is the wiki's total item count, for the qualifying
	// percentage. Zero leaves the percentage at zero.
	TotalItems    int
	BlacklistSize int
}

// BuildReport aggregates a run into its report.
func BuildReport(in BuildReportInput) *RunReport {
	rep := &RunReport{
		RunID:               in.RunID,
		Timestamp:           in.Timestamp,
		DryRun:              in.DryRun,
		Policy:              in.Policy,
		SnapshotURL:         in.SnapshotURL,
		BlacklistURL:        in.BlacklistURL,
		SnapshotSize:        in.Plan.Counts.SnapshotSize,
		Qualifying:          in.Plan.Counts.Qualifying,
		TotalItems:          in.TotalItems,
		BlacklistSize:       in.BlacklistSize,
		ProtectedHighlyUsed: in.Plan.Counts.ProtectedHighlyUsed,
		ProtectedOther:      in.Plan.Counts.ProtectedOther,
		OtherAlsoQualifying: in.Plan.Counts.OtherAlsoQualifying,
		ProposedAdds:        in.Plan.Counts.Adds,
		ProposedRemoves:     in.Plan.Counts.Removes,
		AddsWithheld:        in.Gate.AddsWithheld,
		AddsWithheldReason:  in.Gate.AddsWithheldReason,
		RemovesWithheld:     in.Gate.RemovesWithheld,
		RemovesWithheldReason: in.Gate.RemovesWithheldReason,
		AdditionStats:       make(map[Outcome]int),
		RemovalStats:        make(map[Outcome]int),
	}

	if in.TotalItems > 0 {
		rep.QualifyingPercent = float64(in.Plan.Counts.Qualifying) / float64(in.TotalItems) * 100
	}

	for _, d := range in.Plan.Decisions {
		if d.Action == ActionCooldown {
			rep.CooldownItems = append(rep.CooldownItems, d.ItemID)
		}
	}
	rep.CooldownCount = len(rep.CooldownItems)

	for _, r := range in.Results {
		switch r.Action {
		case ActionAdd:
			rep.AdditionStats[r.Outcome]++
			rep.AddResults = append(rep.AddResults, r)
			if r.Outcome == OutcomeApplied {
				rep.AddedCount++
			}
		case ActionRemove:
			rep.RemovalStats[r.Outcome]++
			rep.RemoveResults = append(rep.RemoveResults, r)
			if r.Outcome == OutcomeApplied {
				rep.LiftedCount++
			}
		}
	}

	return rep
}

// defaultReportTemplate renders the report fields when no template file is
// configured. Same placeholders as an operator-provided template.
const defaultReportTemplate = `== Protection management run ==
Run {{.RunID}} at {{.Timestamp.Format "2006-01-02, 15:04:05"}} (UTC){{if .DryRun}} — dry run{{end}}

* entity usage limit: {{.Policy.EntityUsageLimit}}
* cooldown limit: {{.Policy.CooldownLimit}}
* add limit: {{.Policy.AddLimit}}
* lift limit: {{.Policy.LiftLimit}}
* hard limit: {{.Policy.HardLimit}}
* min subscribed projects: {{.Policy.MinSubscribedProjects}}

* snapshot size: {{.SnapshotSize}} ({{.SnapshotURL}})
* qualifying items: {{.Qualifying}} ({{printf "%.4f" .QualifyingPercent}}% of {{.TotalItems}} items)
* blacklisted items: {{.BlacklistSize}}
* protected (highly used): {{.ProtectedHighlyUsed}}
* protected (other): {{.ProtectedOther}}
* protected (other, but also highly used): {{.OtherAlsoQualifying}}

* protections to add: {{.ProposedAdds}}{{if .AddsWithheld}} — withheld: {{.AddsWithheldReason}}{{end}}
* protections to lift: {{.ProposedRemoves}}{{if .RemovesWithheld}} — withheld: {{.RemovesWithheldReason}}{{end}}
* in cooldown: {{.CooldownCount}}{{if .CooldownItems}} ({{join .CooldownItems ", "}}){{end}}

* added this run: {{.AddedCount}}
* lifted this run: {{.LiftedCount}}

=== Addition processing ===
{{statsTable .AdditionStats}}

=== Removal processing ===
{{statsTable .RemovalStats}}
`

// Render renders the report as wikitext. An empty tmpl uses the built-in
// template; operators can supply their own with the same field names.
func (r *RunReport) Render(tmpl string) (string, error) {
	if tmpl == "" {
		tmpl = defaultReportTemplate
	}
	t, err := template.New("report").Funcs(template.FuncMap{
		"join":       strings.Join,
		"statsTable": statsTable,
	}).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse report template: %w", err)
	}
	var b strings.Builder
	if err := t.Execute(&b, r); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return b.String(), nil
}

// statsTable renders the outcome tallies of one batch as a sortable
// wikitable, omitting zero rows.
func statsTable(stats map[Outcome]int) string {
	outcomes := make([]Outcome, 0, len(stats))
	for o := range stats {
		if stats[o] > 0 {
			outcomes = append(outcomes, o)
		}
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i] < outcomes[j] })

	var b strings.Builder
	b.WriteString("{| class=\"wikitable sortable\"\n|-\n! processing result !! number of cases\n")
	for _, o := range outcomes {
		fmt.Fprintf(&b, "|-\n| %s || %d\n", o, stats[o])
	}
	b.WriteString("|}")
	return b.String()
}
