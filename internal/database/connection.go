package database

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/heimgewebe/mitschreiber/internal/config"
	"github.com/heimgewebe/mitschreiber/internal/models"
)

const defaultDBName = "journal.db"

// The recorder writes while status and report read from another process
const dsnOptions = "?_busy_timeout=5000&_journal_mode=WAL"

// DB is the sqlite-backed event journal
type DB struct {
	*gorm.DB
	path string
}

// GetDefaultDBPath returns <data dir>/journal.db, creating the directory
func GetDefaultDBPath() (string, error) {
	dataDir, err := config.DataDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", errors.Wrap(err, "failed to create journal directory")
	}

	return filepath.Join(dataDir, defaultDBName), nil
}

// Connect opens the journal at dbPath, or the default path when empty
func Connect(dbPath string) (*DB, error) {
	if dbPath == "" {
		var err error
		if dbPath, err = GetDefaultDBPath(); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath+dsnOptions), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open journal %s", dbPath)
	}

	return &DB{DB: db, path: dbPath}, nil
}

// Path returns the journal file path
func (db *DB) Path() string {
	return db.path
}

// Initialize migrates the journal schema
func (db *DB) Initialize() error {
	if err := db.AutoMigrate(&models.StateEvent{}, &models.EmbedEvent{}, &models.ErrorLog{}); err != nil {
		return errors.Wrap(err, "failed to initialize journal schema")
	}
	return nil
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get underlying sql.DB")
	}
	return sqlDB.Close()
}
