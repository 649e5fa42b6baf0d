package protect

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// WriteDecisionDumps writes the add, lift and cooldown sets as TSV files
// into dir, one row per item, for offline inspection of a run. Dump errors
// are reported but should not fail a run; the dumps are a convenience
// artifact, not an output.
func WriteDecisionDumps(dir string, plan Plan) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dump dir: %w", err)
	}

	dumps := []struct {
		file   string
		action Action
	}{
		{"protectionsToAdd.tsv", ActionAdd},
		{"protectionsToLift.tsv", ActionRemove},
		{"protectionsInCooldown.tsv", ActionCooldown},
	}

	for _, d := range dumps {
		if err := writeDump(filepath.Join(dir, d.file), plan.Select(d.action)); err != nil {
			return err
		}
	}
	return nil
}

func writeDump(path string, decisions []Decision) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dump %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = '\t'
	if err := w.Write([]string{"qid", "usage", "reason"}); err != nil {
		return fmt.Errorf("write dump %s: %w", path, err)
	}
	for _, d := range decisions {
		if err := w.Write([]string{d.ItemID, strconv.Itoa(d.Usage), d.Reason}); err != nil {
			return fmt.Errorf("write dump %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush dump %s: %w", path, err)
	}
	return nil
}
