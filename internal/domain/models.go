// Package domain defines the persistence models for the moderation-log
// tables. These types are mapped with GORM and form the local, append-mostly
// mirror of the subreddit's moderation history.
package domain

// Fullname prefixes used by the remote platform to tag content kinds.
const (
	CommentPrefix = "t1_"
	PostPrefix    = "t3_"
)

// BannedEvent is one ban action from the moderation log. For rows written by
// the sync pass, Duration holds the serialized duration the platform reports
// (e.g. "7 days", "permanent"). The reconciliation path writes synthetic rows
// whose Duration holds an error-kind string instead; those rows use freshly
// generated UUIDs so they can never collide with remote event ids.
//
// Fields:
//   - ID: remote-assigned event id (or synthetic UUID), primary key.
//   - Username: the banned user's handle; indexed.
//   - Duration: serialized ban duration, or an error-kind marker.
//   - CreatedUTC: Unix timestamp of the ban action; indexed.
type BannedEvent struct {
	ID         string `gorm:"type:varchar(50);primaryKey"`
	Username   string `gorm:"type:varchar(20);not null;index:idx_banned_username"`
	Duration   string `gorm:"type:varchar(32)"`
	CreatedUTC int64  `gorm:"column:created_utc;index:idx_banned_created_utc"`
}

// TableName returns the database table name for BannedEvent.
func (BannedEvent) TableName() string { return "banned" }

// ModRemovedEvent is one moderator-initiated removal (a removal reason being
// attached to a comment or post).
//
// Fields:
//   - ID: remote-assigned event id, primary key.
//   - Username: author of the removed content; indexed.
//   - Target: fullname of the removed item (t1_/t3_ prefixed).
//   - Post: parent submission fullname; for removed comments this is the
//     comment's link, for posts it is the item itself. When the target could
//     not be resolved anymore, the target fullname is stored here instead.
//   - CreatedUTC: creation time of the removed content; indexed.
type ModRemovedEvent struct {
	ID         string `gorm:"type:varchar(50);primaryKey"`
	Username   string `gorm:"type:varchar(20);not null;index:idx_mod_removed_username"`
	Target     string `gorm:"type:varchar(16)"`
	Post       string `gorm:"type:varchar(16)"`
	CreatedUTC int64  `gorm:"column:created_utc;index:idx_mod_removed_created_utc"`
}

// TableName returns the database table name for ModRemovedEvent.
func (ModRemovedEvent) TableName() string { return "mod_removed" }

// RedditRemovedEvent is one platform-initiated removal (acted by the
// platform's anti-evil staff rather than a subreddit moderator). Shape
// matches ModRemovedEvent plus the acting admin's name.
type RedditRemovedEvent struct {
	ID         string `gorm:"type:varchar(50);primaryKey"`
	Username   string `gorm:"type:varchar(20);not null;index:idx_reddit_removed_username"`
	Target     string `gorm:"type:varchar(16)"`
	Mod        string `gorm:"type:varchar(20)"`
	Post       string `gorm:"type:varchar(16)"`
	CreatedUTC int64  `gorm:"column:created_utc;index:idx_reddit_removed_created_utc"`
}

// TableName returns the database table name for RedditRemovedEvent.
func (RedditRemovedEvent) TableName() string { return "reddit_removed" }

// Candidate is one row produced by the ranking query: a user with removal
// counts aggregated over the trailing window plus their prior ban count.
// The scoring engine consumes these fields verbatim.
type Candidate struct {
	Username        string `gorm:"column:username"`
	ModCount        int64  `gorm:"column:mod_count"`
	ModCountPost    int64  `gorm:"column:mod_count_post"`
	RedditCount     int64  `gorm:"column:reddit_count"`
	RedditCountPost int64  `gorm:"column:reddit_count_post"`
	NBan            int64  `gorm:"column:n_ban"`
}

// RemovedComment is one evidence row for the ban message: a removed comment
// attributed to the user, with the flag telling whether the platform (rather
// than a subreddit moderator) removed it.
type RemovedComment struct {
	PostID     string `gorm:"column:post_id"`
	CommentID  string `gorm:"column:comment_id"`
	CreatedUTC int64  `gorm:"column:created_utc"`
	ByAdmins   bool   `gorm:"column:by_admins"`
}
