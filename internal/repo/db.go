package repo

import (
	"fmt"
	"strings"

	"chkobba-service/internal/config"
	"chkobba-service/internal/model"
	"chkobba-service/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

// InitDB opens the configured database. An empty driver leaves DB nil.
func InitDB() {
	conf := config.GlobalConfig.Database
	if strings.TrimSpace(conf.Driver) == "" {
		logger.Log.Info("database disabled, round history will not be kept")
		return
	}

	db, err := Open(conf.Driver, conf.DSN)
	if err != nil {
		logger.Log.Fatal("Failed to connect to database",
			zap.String("driver", conf.Driver),
			zap.Error(err),
		)
	}
	if err := Migrate(db); err != nil {
		logger.Log.Fatal("Failed to migrate database", zap.Error(err))
	}
	DB = db
}

func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	return gorm.Open(dialector, &gorm.Config{})
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Profile{},
		&model.RoundLog{},
	)
}
