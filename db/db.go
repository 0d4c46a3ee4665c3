package db

import (
	"os"
	"path/filepath"

	"github.com/phamvanchien/social-web/cmd/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewLocalStorage opens the client's on-disk sqlite store and migrates
// the session table. An empty path resolves to the default location under
// the user config dir.
func NewLocalStorage(path string) (*gorm.DB, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&models.Session{}); err != nil {
		return nil, err
	}

	return db, nil
}

// DefaultPath is <user config dir>/social-web/social-web.db.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "social-web", "social-web.db"), nil
}
