// Package repo implements the data persistence layer for the moderation-log
// tables, backed by GORM. This file owns the ranking query that yields ban
// candidates and the evidence query behind the ban message.
package repo

import (
	"gorm.io/gorm"

	"github.com/subguard/subguard/internal/domain"
)

// candidateSQL aggregates removal counts per user over the trailing window
// and joins the prior ban count. Users with any ban row inside the window
// are excluded so a freshly banned or freshly reconciled user is not
// re-proposed until that row ages out. Reconciliation rows are backdated by
// at most the window span (config enforces CooldownDays <= WindowDays), so
// they always land inside the horizon.
const candidateSQL = `
SELECT u.username                                   AS username,
       COALESCE(m.comments, 0)                      AS mod_count,
       COALESCE(m.posts, 0)                         AS mod_count_post,
       COALESCE(r.comments, 0)                      AS reddit_count,
       COALESCE(r.posts, 0)                         AS reddit_count_post,
       COALESCE(b.n, 0)                             AS n_ban
FROM (
        SELECT username FROM mod_removed    WHERE created_utc >= @since
        UNION
        SELECT username FROM reddit_removed WHERE created_utc >= @since
     ) AS u
LEFT JOIN (
        SELECT username,
               SUM(CASE WHEN target LIKE 't1_%' THEN 1 ELSE 0 END) AS comments,
               SUM(CASE WHEN target LIKE 't3_%' THEN 1 ELSE 0 END) AS posts
        FROM mod_removed
        WHERE created_utc >= @since
        GROUP BY username
     ) AS m ON m.username = u.username
LEFT JOIN (
        SELECT username,
               SUM(CASE WHEN target LIKE 't1_%' THEN 1 ELSE 0 END) AS comments,
               SUM(CASE WHEN target LIKE 't3_%' THEN 1 ELSE 0 END) AS posts
        FROM reddit_removed
        WHERE created_utc >= @since
        GROUP BY username
     ) AS r ON r.username = u.username
LEFT JOIN (
        SELECT username, COUNT(*) AS n FROM banned GROUP BY username
     ) AS b ON b.username = u.username
WHERE u.username <> ''
  AND u.username NOT IN (SELECT username FROM banned WHERE created_utc >= @since)
ORDER BY (COALESCE(m.comments,0) + COALESCE(m.posts,0) +
          COALESCE(r.comments,0) + COALESCE(r.posts,0)) DESC,
         u.username ASC`

// ListCandidates returns users with removal activity since the given window
// start (a Unix timestamp), with aggregated counts and prior ban totals,
// excluding anyone with a ban row inside that same window. Rows come back in
// ranking order; callers must not re-order.
func ListCandidates(db *gorm.DB, windowStart int64) ([]domain.Candidate, error) {
	var out []domain.Candidate
	err := db.Raw(candidateSQL,
		map[string]any{"since": windowStart},
	).Scan(&out).Error
	return out, err
}

// removedCommentsSQL lists every removed comment attributed to a user across
// both removal tables, flagging platform-initiated removals, oldest first.
const removedCommentsSQL = `
SELECT post AS post_id, target AS comment_id, created_utc, 0 AS by_admins
FROM mod_removed
WHERE username = ? AND target LIKE 't1_%'
UNION ALL
SELECT post AS post_id, target AS comment_id, created_utc, 1 AS by_admins
FROM reddit_removed
WHERE username = ? AND target LIKE 't1_%'
ORDER BY created_utc ASC`

// ListRemovedComments returns the evidence rows cited in a ban message.
func ListRemovedComments(db *gorm.DB, username string) ([]domain.RemovedComment, error) {
	var out []domain.RemovedComment
	err := db.Raw(removedCommentsSQL, username, username).Scan(&out).Error
	return out, err
}
