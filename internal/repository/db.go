package repository

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/danmermels/momentum-spark-app/internal/model"
)

// Backstop triggers: refresh updatedAt on any row update that did not set it.
var triggers = []string{
	`CREATE TRIGGER IF NOT EXISTS update_task_updatedAt
	AFTER UPDATE ON tasks
	FOR EACH ROW WHEN NEW.updatedAt IS OLD.updatedAt
	BEGIN
		UPDATE tasks SET updatedAt = strftime('%Y-%m-%d %H:%M:%f', 'now') WHERE id = OLD.id;
	END;`,
	`CREATE TRIGGER IF NOT EXISTS update_setting_updatedAt
	AFTER UPDATE ON settings
	FOR EACH ROW WHEN NEW.updatedAt IS OLD.updatedAt
	BEGIN
		UPDATE settings SET updatedAt = strftime('%Y-%m-%d %H:%M:%f', 'now') WHERE id = OLD.id;
	END;`,
}

// NewDB opens the SQLite database, runs migrations and installs triggers.
// The returned handle holds a single connection and is meant to be shared by
// every repository for the lifetime of the process.
func NewDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "momentumspark.sqlite"
	}

	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}

	dbLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  dbLogger,
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&model.Task{}, &model.Settings{}); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	for _, stmt := range triggers {
		if err := db.Exec(stmt).Error; err != nil {
			return nil, fmt.Errorf("create trigger: %w", err)
		}
	}

	log.Printf("[info] database ready at %s", dsn)
	return db, nil
}

// Close releases the underlying connection.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ensureDirForSQLite creates parent dir for SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}
