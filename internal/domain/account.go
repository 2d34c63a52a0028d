package domain

import "time"

// Account is a WeChat official account the worker syncs from.
type Account struct {
	ID           string     `db:"id"`
	Name         string     `db:"name"`
	AppID        string     `db:"app_id"`
	AppSecret    string     `db:"app_secret"`
	LastSyncedAt *time.Time `db:"last_synced_at"`
	TotalSynced  int64      `db:"total_synced"`
}
