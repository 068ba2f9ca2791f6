package models

// User is the locally materialized view of an externally registered user.
// Rows are upserted from verified token claims; the id is never reused.
type User struct {
	ID       int    `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
}
