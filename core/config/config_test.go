package config_test

import (
	"testing"

	"github.com/MisterSynergy/rfc-protect/core/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Protect.Policy.EntityUsageLimit)
	assert.Equal(t, 300, cfg.Protect.Policy.CooldownLimit)
	assert.Equal(t, 1000, cfg.Protect.Policy.AddLimit)
	assert.Equal(t, 100, cfg.Protect.Policy.LiftLimit)
	assert.Equal(t, 0, cfg.Protect.Policy.HardLimit)
	assert.Equal(t, []string{"MsynABot"}, cfg.Protect.Whitelist())
	assert.Equal(t, "https://www.wikidata.org/w/api.php", cfg.Protect.APIEndpoint)
	assert.Equal(t, "0 3 * * 1", cfg.Protect.Schedule)
	assert.Equal(t, 1, cfg.Protect.Parallelism)
	assert.Equal(t, 5, cfg.Protect.EditIntervalSeconds)
	assert.False(t, cfg.Protect.DryRun)

	assert.Equal(t, "wikidatawiki_p", cfg.Database.Name)
	assert.Equal(t, "rfc-protect", cfg.Storage.Bucket)
	assert.False(t, cfg.Storage.Enabled)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("PROTECT_POLICY_ENTITY_USAGE_LIMIT", "800")
	t.Setenv("PROTECT_POLICY_COOLDOWN_LIMIT", "600")
	t.Setenv("PROTECT_WHITELISTED_ADMINS", "MsynABot, OtherBot")
	t.Setenv("DATABASE_HOST", "replica.example.org")
	t.Setenv("STORAGE_ENABLED", "true")

	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 800, cfg.Protect.Policy.EntityUsageLimit)
	assert.Equal(t, 600, cfg.Protect.Policy.CooldownLimit)
	assert.Equal(t, []string{"MsynABot", "OtherBot"}, cfg.Protect.Whitelist())
	assert.Equal(t, "replica.example.org", cfg.Database.Host)
	assert.True(t, cfg.Storage.Enabled)
}

func TestLoadConfig_InvalidPolicyFails(t *testing.T) {
	t.Setenv("PROTECT_POLICY_COOLDOWN_LIMIT", "500")

	_, err := config.LoadConfig(t.TempDir())
	assert.ErrorContains(t, err, "cooldown_limit")
}
