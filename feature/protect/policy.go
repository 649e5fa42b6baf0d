package protect

import "fmt"

// Policy holds the operator-settable thresholds of the protection scheme.
// All values are non-negative; for the limits a zero value disables the
// respective check.
type Policy struct {
	// EntityUsageLimit is the usage count at which an unprotected item
	// qualifies for semi-protection.
	EntityUsageLimit int `mapstructure:"entity_usage_limit" default:"500"`

	// CooldownLimit is the usage floor below which an existing
	// highly-used protection is lifted. It must be strictly smaller than
	// EntityUsageLimit; the band between the two is the hysteresis band
	// that keeps items hovering near the qualifying line from flapping.
	CooldownLimit int `mapstructure:"cooldown_limit" default:"300"`

	// AddLimit withholds the entire addition batch when more than this
	// many additions are proposed in one run. 0 disables the gate.
	AddLimit int `mapstructure:"add_limit" default:"1000"`

	// LiftLimit withholds the entire removal batch when more than this
	// many removals are proposed in one run. 0 disables the gate.
	LiftLimit int `mapstructure:"lift_limit" default:"100"`

	// HardLimit caps the number of mutations executed per direction even
	// when the batch as a whole was approved. Intended for staged
	// rollout. 0 disables the cap.
	HardLimit int `mapstructure:"hard_limit" default:"0"`

	// MinSubscribedProjects is the minimum number of subscribed projects
	// an item needs before protection is added. 0 disables the check.
	MinSubscribedProjects int `mapstructure:"min_subscribed_projects" default:"0"`
}

// Validate checks the policy invariants. It is called at startup before any
// work starts; an invalid policy aborts the run entirely.
func (p Policy) Validate() error {
	for _, v := range []struct {
		name  string
		value int
	}{
		{"entity_usage_limit", p.EntityUsageLimit},
		{"cooldown_limit", p.CooldownLimit},
		{"add_limit", p.AddLimit},
		{"lift_limit", p.LiftLimit},
		{"hard_limit", p.HardLimit},
		{"min_subscribed_projects", p.MinSubscribedProjects},
	} {
		if v.value < 0 {
			return fmt.Errorf("policy: %s must be non-negative, got %d", v.name, v.value)
		}
	}

	// An empty hysteresis band would let items flap between protected and
	// unprotected on every run.
	if p.CooldownLimit >= p.EntityUsageLimit {
		return fmt.Errorf("policy: cooldown_limit (%d) must be strictly below entity_usage_limit (%d)",
			p.CooldownLimit, p.EntityUsageLimit)
	}

	return nil
}
