package protect

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// indefSemiQuery selects every ns0 item page carrying an indefinite
// semi-protection, joined to the protect log so each row carries the
// protecting admin. An item protected more than once yields multiple rows;
// ProtectedItems keeps the latest log entry per item.
const indefSemiQuery = `SELECT
  CONVERT(log_title USING utf8) AS qid,
  log_id,
  CONVERT(log_timestamp USING utf8) AS log_timestamp,
  CONVERT(actor_name USING utf8) AS username
FROM
  page_restrictions
    JOIN logging ON pr_page=log_page
    JOIN actor_logging ON log_actor=actor_id
WHERE
  pr_type='edit'
  AND pr_level='autoconfirmed'
  AND pr_expiry='infinity'
  AND log_namespace=0
  AND log_type='protect'
  AND log_action IN ('protect', 'modify')`

// replicaRow matches the columns of indefSemiQuery.
type replicaRow struct {
	QID          string `gorm:"column:qid"`
	LogID        int64  `gorm:"column:log_id"`
	LogTimestamp string `gorm:"column:log_timestamp"`
	Username     string `gorm:"column:username"`
}

// ReplicaReader reads the pre-run protection snapshot from the wiki's
// replica database. The replica only exposes who protected a page, not the
// policy behind it, so protections set by one of the whitelisted bot
// accounts count as highly-used, as do the named early protections, and
// everything else as other.
type ReplicaReader struct {
	db        *gorm.DB
	whitelist map[string]struct{}
	early     map[string]EarlyProtection
}

// NewReplicaReader creates a reader over the given replica connection.
// whitelistedAdmins are the accounts whose protections this engine is
// allowed to lift; early names legacy protections it may lift even though
// the protecting admin is not whitelisted (see LoadEarlyProtections).
func NewReplicaReader(db *gorm.DB, whitelistedAdmins []string, early map[string]EarlyProtection) *ReplicaReader {
	wl := make(map[string]struct{}, len(whitelistedAdmins))
	for _, a := range whitelistedAdmins {
		wl[a] = struct{}{}
	}
	return &ReplicaReader{db: db, whitelist: wl, early: early}
}

// ProtectedItems returns the current indefinitely semi-protected items
// keyed by item id, classified by protecting admin. This is the "before"
// snapshot; the executor re-reads each item live before mutating it.
func (r *ReplicaReader) ProtectedItems(ctx context.Context) (map[string]ProtectionRecord, error) {
	var rows []replicaRow
	if err := r.db.WithContext(ctx).Raw(indefSemiQuery).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("query protected items: %w", err)
	}

	items := make(map[string]ProtectionRecord, len(rows))
	for _, row := range rows {
		// Keep the latest protect log entry per item; the 14-digit
		// MediaWiki timestamps order lexicographically.
		if prev, ok := items[row.QID]; ok && prev.LogTimestamp >= row.LogTimestamp {
			continue
		}
		kind := ProtectionOtherSemi
		if r.isHighlyUsedScheme(row) {
			kind = ProtectionHighlyUsed
		}
		items[row.QID] = ProtectionRecord{
			ItemID:       row.QID,
			Kind:         kind,
			By:           row.Username,
			LogTimestamp: row.LogTimestamp,
		}
	}
	return items, nil
}

// isHighlyUsedScheme reports whether a protect log row belongs to the
// highly-used scheme. Either the protecting admin is whitelisted, or the
// row is the exact log entry named in the early-protections file; a later
// re-protection by someone else invalidates the early entry.
func (r *ReplicaReader) isHighlyUsedScheme(row replicaRow) bool {
	if _, ok := r.whitelist[row.Username]; ok {
		return true
	}
	ep, ok := r.early[row.QID]
	return ok && ep.LogID == row.LogID && ep.Admin == row.Username
}
