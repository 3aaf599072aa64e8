package db

import (
	"fmt"

	"github.com/google/uuid"
	dbmysql "github.com/questforge/server/db/mysql"
	dbsqlite "github.com/questforge/server/db/sqlite"
	"github.com/questforge/server/config"
	"gorm.io/gorm"
)

const (
	ModeSQLite       = "sqlite"
	ModeSQLiteMemory = "sqlite_memory"
	ModeMySQL        = "mysql"
)

// Open returns a *gorm.DB for the configured database mode.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Mode {
	case ModeSQLite:
		return dbsqlite.Open(cfg.SQLitePath)
	case ModeSQLiteMemory:
		// Unique name per Open so parallel tests get isolated databases.
		dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
		return dbsqlite.Open(dsn)
	case ModeMySQL:
		return dbmysql.Open(cfg.MySQLDSN, cfg.MySQLMaxOpen, cfg.MySQLMaxIdle, cfg.MySQLMaxLife)
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Mode)
	}
}
