package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Baaaki/flavorshare/internal/models"
	"github.com/Baaaki/flavorshare/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the store named by dsn. postgres:// and postgresql:// URLs
// use the postgres driver; sqlite://<path> and file: DSNs use sqlite.
func Open(dsn string) (*gorm.DB, error) {
	dialector, err := dialectorFor(dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		// Unique-index violations surface as gorm.ErrDuplicatedKey.
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	logger.Log.Info("Database connected successfully",
		zap.String("driver", db.Dialector.Name()),
	)
	return db, nil
}

func dialectorFor(dsn string) (gorm.Dialector, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return postgres.Open(dsn), nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return sqlite.Open(withForeignKeys(strings.TrimPrefix(dsn, "sqlite://"))), nil
	case strings.HasPrefix(dsn, "file:"):
		return sqlite.Open(withForeignKeys(dsn)), nil
	case dsn == "":
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}
	return nil, fmt.Errorf("unsupported DATABASE_URL scheme")
}

// withForeignKeys turns on sqlite foreign key enforcement, which is off per
// connection by default.
func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys=") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on"
}

// Migrate creates or updates every table the service uses.
func Migrate(db *gorm.DB) error {
	start := time.Now()

	err := db.AutoMigrate(
		&models.User{},
		&models.Recipe{},
		&models.Comment{},
		&models.RecipeLike{},
		&models.Favorite{},
	)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	logger.Log.Info("Database migration completed",
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// Reset deletes every row, children first.
func Reset(db *gorm.DB) error {
	for _, table := range []string{"favorites", "recipe_likes", "comments", "recipes", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return nil
}

// Ping checks that the store is reachable.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
