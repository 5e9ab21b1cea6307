package persistence

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-sql-driver/mysql"
	"github.com/jinzhu/gorm"
)

const (
	DriverMysql  = "mysql"
	DriverSqlite = "sqlite3"
)

type DatabaseConfig struct {
	DriverType string
	DriverArgs string
}

// ParseDatabaseConfigFromEnv DB_DRIVER (mysql|sqlite3, default mysql), DB_ARGS
// e.g. DB_ARGS=root:root@(127.0.0.1:3306)/teamflow?charset=utf8mb4&parseTime=True&loc=Local
func ParseDatabaseConfigFromEnv() (*DatabaseConfig, error) {
	driverType := os.Getenv("DB_DRIVER")
	if driverType == "" {
		driverType = DriverMysql
	}
	driverArgs := os.Getenv("DB_ARGS")

	switch driverType {
	case DriverMysql:
		if driverArgs == "" {
			return nil, errors.New("DB_ARGS is required for mysql")
		}
	case DriverSqlite:
		if driverArgs == "" {
			driverArgs = "teamflow.db?_busy_timeout=5000"
		}
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER '%s'", driverType)
	}
	return &DatabaseConfig{DriverType: driverType, DriverArgs: driverArgs}, nil
}

// PrepareMysqlDatabase creates the database named in driverArgs if it does not exist
func PrepareMysqlDatabase(driverArgs string) error {
	config, err := mysql.ParseDSN(driverArgs)
	if err != nil {
		return err
	}
	databaseName := config.DBName
	if databaseName == "" {
		return errors.New("database name is missing in DB_ARGS")
	}
	config.DBName = ""

	db, err := gorm.Open(DriverMysql, config.FormatDSN())
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Exec("CREATE DATABASE IF NOT EXISTS `" + databaseName + "` DEFAULT CHARACTER SET utf8mb4").Error
}
