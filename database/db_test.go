package database

import (
	"testing"

	"tweetube/config"

	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"
)

func TestDSN(t *testing.T) {
	cfg := &config.DatabaseConfig{Host: "db", Port: 3306, Username: "u", Password: "p", Database: "tweetube", Charset: "utf8mb4"}
	assert.Equal(t, "u:p@tcp(db:3306)/tweetube?charset=utf8mb4&parseTime=True&loc=UTC", DSN(cfg))
}

func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Info, GormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, GormLogLevel("info"))
	assert.Equal(t, gormlogger.Warn, GormLogLevel(""))
	assert.Equal(t, gormlogger.Error, GormLogLevel("ERROR"))
	assert.Equal(t, gormlogger.Silent, GormLogLevel("disabled"))
}
