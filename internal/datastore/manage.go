package datastore

import (
	"log"
	"os"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// slowQueryThreshold marks queries worth flagging in the gorm log. Batch
// result inserts stay well under this in normal operation.
const slowQueryThreshold = time.Second

// createGormLogger configures gorm's logger: silent by default so database
// chatter stays out of batch output, verbose when debugging.
func createGormLogger(debug bool) gormlogger.Interface {
	level := gormlogger.Silent
	if debug {
		level = gormlogger.Info
	}
	return gormlogger.New(
		log.New(os.Stderr, "gorm: ", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// performAutoMigration creates or migrates the run and result tables.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	migrationStart := time.Now()
	migrationLogger := GetLogger().With("db_type", dbType)

	if err := db.AutoMigrate(&BatchRun{}, &Result{}); err != nil {
		migrationLogger.Error("database migration failed", "error", err)
		return err
	}

	if debug {
		migrationLogger.Debug("database migration completed",
			"connection", connectionInfo,
			"duration", time.Since(migrationStart))
	}
	return nil
}
