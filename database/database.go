package database

import (
	"context"
	"time"

	"camelot/models"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Supported values for the driver argument of Open.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// ErrUnknownDriver is returned by Open for a driver name it cannot serve.
var ErrUnknownDriver = errors.New("unknown database driver")

// Open connects to the relational store behind the Domain Store. A failure
// here is returned to the caller; the process decides whether it can go on.
func Open(driver, dsn string, log *logrus.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite, "":
		dialector = sqlite.Open(dsn)
	case DriverMySQL:
		dialector = mysql.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, errors.Wrapf(ErrUnknownDriver, "%q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "database.Open")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "database.Open.DB")
	}
	if driver == DriverSQLite || driver == "" {
		// sqlite allows a single writer; one connection keeps transactions from
		// failing with "database is locked".
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	}

	if log != nil {
		log.WithFields(logrus.Fields{"driver": dialector.Name()}).Info("database connection opened")
	}
	return db, nil
}

// mysqlTableOptions makes names and passwords compare byte for byte, as
// they do on sqlite and postgres.
const mysqlTableOptions = "CHARSET=utf8mb4 COLLATE=utf8mb4_bin"

// Migrate creates or updates the accounts, channels and memberships tables.
func Migrate(db *gorm.DB) error {
	if db.Dialector.Name() == DriverMySQL {
		db = db.Set("gorm:table_options", mysqlTableOptions)
	}
	if err := db.AutoMigrate(&models.Account{}, &models.Channel{}, &models.Membership{}); err != nil {
		return errors.Wrap(err, "database.Migrate")
	}
	return nil
}

// SeedDefaultChannels makes sure every named channel exists. Channels
// created here have no admin, so new accounts join them automatically.
func SeedDefaultChannels(ctx context.Context, db *gorm.DB, names []string) error {
	for _, name := range names {
		if name == "" {
			continue
		}
		channel := models.Channel{}
		err := db.WithContext(ctx).
			Where(models.Channel{ChannelID: name}).
			FirstOrCreate(&channel).Error
		if err != nil {
			return errors.Wrapf(err, "database.SeedDefaultChannels %q", name)
		}
	}
	return nil
}

// Close releases the connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
