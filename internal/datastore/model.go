// model.go this code defines the data model for persistent application state
package datastore

import "time"

// AppState is a single key/value entry of persisted application state.
// The annotation subsystem stores its whole map as one JSON blob under a
// fixed key; the table exists so other state can share the store later.
type AppState struct {
	Key       string `gorm:"primaryKey;size:191"`
	Value     []byte `gorm:"type:blob"`
	UpdatedAt time.Time
}

// TableName keeps the table name stable regardless of gorm pluralization.
func (AppState) TableName() string {
	return "app_state"
}
