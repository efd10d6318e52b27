package mysql

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/repository/mysql/model"
)

// Open connects to MySQL, retrying until the server answers a ping.
func Open(dsn string, maxRetry int, interval time.Duration) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)

	for i := range maxRetry {
		db, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
			Logger:                 logger.Default.LogMode(logger.Warn),
			SkipDefaultTransaction: true,
		})
		if err != nil {
			logrus.Warnf("failed to open connection to database (attempt %d/%d): %v", i+1, maxRetry, err)
		} else {
			sqlDB, dbErr := db.DB()
			if dbErr != nil {
				err = dbErr
				logrus.Warnf("failed to get sql.DB from gorm.DB (attempt %d/%d): %v", i+1, maxRetry, err)
			} else if err = sqlDB.Ping(); err == nil {
				return db, nil
			} else {
				logrus.Warnf("failed to ping database (attempt %d/%d): %v", i+1, maxRetry, err)
				_ = sqlDB.Close()
			}
		}

		time.Sleep(interval)
	}

	return nil, fmt.Errorf("could not connect to database after %d retries: %w", maxRetry, err)
}

// Migrate creates the users, images and likes tables with their constraints.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.User{}, &model.Image{}, &model.Like{})
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
