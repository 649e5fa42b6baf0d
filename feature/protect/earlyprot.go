package protect

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// EarlyProtection identifies one legacy protection set under the
// highly-used scheme before the bot account existed. The protecting admin
// is not whitelisted, so these items are named explicitly: item id plus the
// protect log entry (id and admin) that established the protection.
type EarlyProtection struct {
	ItemID string
	LogID  int64
	Admin  string
}

// LoadEarlyProtections reads the operator-maintained early-protections
// file: headerless TSV with columns itemID, logID, admin. An item listed
// more than once keeps the entry with the highest log id. An empty path
// yields an empty set.
func LoadEarlyProtections(path string) (map[string]EarlyProtection, error) {
	if path == "" {
		return map[string]EarlyProtection{}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open early protections: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1

	out := map[string]EarlyProtection{}
	for line := 1; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse early protections line %d: %w", line, err)
		}
		if len(row) < 3 {
			return nil, fmt.Errorf("parse early protections line %d: expected 3 columns, got %d", line, len(row))
		}
		logID, err := strconv.ParseInt(row[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse early protections line %d: log id %q: %w", line, row[1], err)
		}
		ep := EarlyProtection{ItemID: row[0], LogID: logID, Admin: row[2]}
		if prev, ok := out[ep.ItemID]; ok && prev.LogID >= ep.LogID {
			continue
		}
		out[ep.ItemID] = ep
	}
	return out, nil
}
