// interfaces.go: this code defines the interface for the state store operations
package datastore

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/obistack/occurrence-go/internal/conf"
	"github.com/obistack/occurrence-go/internal/logging"
)

// Interface abstracts the underlying database implementation and defines the
// operations of the persistent key/value state store.
type Interface interface {
	Open() error
	Close() error
	// Get returns the stored value and whether the key was present.
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
	Delete(key string) error
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB  *gorm.DB // GORM database instance
	log *slog.Logger
}

// New creates a new state store instance based on the provided configuration.
// Returns nil when no store is enabled; conf validation prevents that for
// loaded settings.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			DataStore: DataStore{log: logging.ForService("datastore")},
			Settings:  settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			DataStore: DataStore{log: logging.ForService("datastore")},
			Settings:  settings,
		}
	default:
		return nil
	}
}

// Get retrieves a value by key. A missing key is not an error.
func (ds *DataStore) Get(key string) ([]byte, bool, error) {
	if ds.DB == nil {
		return nil, false, fmt.Errorf("database connection is not initialized")
	}

	var state AppState
	err := ds.DB.First(&state, "key = ?", key).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("getting state for key %q: %w", key, err)
	}
	return state.Value, true, nil
}

// Put stores a value under key, replacing any previous value.
func (ds *DataStore) Put(key string, value []byte) error {
	if ds.DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	state := AppState{Key: key, Value: value}
	if err := ds.DB.Save(&state).Error; err != nil {
		return fmt.Errorf("saving state for key %q: %w", key, err)
	}
	return nil
}

// Delete removes the value stored under key. Deleting a missing key is a
// no-op.
func (ds *DataStore) Delete(key string) error {
	if ds.DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	if err := ds.DB.Delete(&AppState{}, "key = ?", key).Error; err != nil {
		return fmt.Errorf("deleting state for key %q: %w", key, err)
	}
	return nil
}

// close closes the underlying database connection shared by both stores.
func (ds *DataStore) close() error {
	if ds.DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	sqlDB, err := ds.DB.DB()
	if err != nil {
		return fmt.Errorf("retrieving generic DB object: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	ds.DB = nil
	return nil
}

// createGormLogger configures and returns a new GORM logger instance.
func createGormLogger(debug bool) gormlogger.Interface {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	return gormlogger.Default.LogMode(level)
}

// performAutoMigration creates or updates the state table schema.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&AppState{}); err != nil {
		return fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)
	}

	if debug {
		logging.ForService("datastore").Debug("Database connection established",
			"type", dbType,
			"connection", connectionInfo,
			"time", time.Now())
	}
	return nil
}
