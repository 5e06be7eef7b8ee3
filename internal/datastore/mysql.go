package datastore

import (
	"fmt"
	"net"

	sqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tsalo/fieldscan/internal/conf"
)

// MySQLStore implements DataStore for MySQL
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

// Open sets up the MySQL database connection
func (store *MySQLStore) Open() error {
	dsn := store.dsn()

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: createGormLogger(store.Settings.Debug),
	})
	if err != nil {
		GetLogger().Error("failed to open MySQL database",
			"host", store.Settings.Output.MySQL.Host,
			"database", store.Settings.Output.MySQL.Database,
			"error", err)
		return fmt.Errorf("failed to open MySQL database: %w", err)
	}

	store.DB = db
	return performAutoMigration(db, store.Settings.Debug, "MySQL", store.Settings.Output.MySQL.Host)
}

// dsn builds the connection string through the driver's own config type so
// passwords with special characters survive encoding.
func (store *MySQLStore) dsn() string {
	mysqlConf := store.Settings.Output.MySQL

	cfg := sqldriver.NewConfig()
	cfg.User = mysqlConf.Username
	cfg.Passwd = mysqlConf.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(mysqlConf.Host, mysqlConf.Port)
	cfg.DBName = mysqlConf.Database
	cfg.ParseTime = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// Close releases the MySQL connection pool.
func (store *MySQLStore) Close() error {
	return store.close()
}
