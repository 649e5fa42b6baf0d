package protect

import "strings"

// Config holds the configuration of the protection reconciler feature.
type Config struct {
	// Policy holds the six threshold values of the protection scheme.
	Policy Policy `mapstructure:"policy"`

	// SnapshotURL is the weekly usage dataset feed.
	SnapshotURL string `mapstructure:"snapshot_url" default:"https://analytics.wikimedia.org/published/datasets/wmde-analytics-engineering/wdcm/etl/wdcm_topItems.csv"`
	// SnapshotCache is a local path receiving a copy of the raw feed.
	// Empty disables the copy.
	SnapshotCache string `mapstructure:"snapshot_cache" default:""`
	// BlacklistURL is the on-wiki exclusion list, served raw as JSON.
	BlacklistURL string `mapstructure:"blacklist_url" default:"https://www.wikidata.org/w/index.php?title=User:MsynABot/rfc-protect-blacklist.json&action=raw&ctype=application/json"`

	// APIEndpoint is the wiki's Action API.
	APIEndpoint string `mapstructure:"api_endpoint" default:"https://www.wikidata.org/w/api.php"`
	// OAuthToken authenticates API writes when set.
	OAuthToken string `mapstructure:"oauth_token" default:""`

	// WhitelistedAdmins is a comma-separated list of accounts whose
	// protections count as highly-used and may be lifted.
	WhitelistedAdmins string `mapstructure:"whitelisted_admins" default:"MsynABot"`

	// EarlyProtectionsFile is a headerless TSV (item id, log id, admin)
	// naming legacy highly-used protections set before the bot account
	// existed. Empty disables the list.
	EarlyProtectionsFile string `mapstructure:"early_protections_file" default:""`

	// ReportPage is the on-wiki page the report is published to after a
	// run that executed mutations. Empty disables publication.
	ReportPage string `mapstructure:"report_page" default:""`
	// ReportTemplate is a wikitext template file for the report. Empty
	// uses the built-in template.
	ReportTemplate string `mapstructure:"report_template" default:""`
	// DumpDir receives per-run TSV dumps of the add, lift and cooldown
	// sets. Empty disables dumps.
	DumpDir string `mapstructure:"dump_dir" default:""`

	// Schedule is the cron expression for the schedule command.
	Schedule string `mapstructure:"schedule" default:"0 3 * * 1"`

	// Parallelism bounds concurrent item mutations in the executor.
	Parallelism int `mapstructure:"parallelism" default:"1"`
	// EditIntervalSeconds paces mutations, one write per interval.
	EditIntervalSeconds int `mapstructure:"edit_interval_seconds" default:"5"`
	// DryRun computes and reports decisions without executing them.
	DryRun bool `mapstructure:"dry_run" default:"false"`
}

// Whitelist returns the whitelisted admin accounts as a slice.
func (c Config) Whitelist() []string {
	var out []string
	for _, a := range strings.Split(c.WhitelistedAdmins, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
