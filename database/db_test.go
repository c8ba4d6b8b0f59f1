package database

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/titanforge/titanforge/config"
)

func TestGetDBConnection_Failure(t *testing.T) {
	instance = nil
	once = sync.Once{}

	mockConfig := &config.Configuration{
		DataSource: config.DataSourceConfig{Dns: "invalid-dns"},
		Redis:      config.RedisConfig{Dns: "localhost:6379"},
	}

	_, err := GetDBConnection(mockConfig)
	assert.Error(t, err)
}

func TestConnectDB_Failure(t *testing.T) {
	db, err := ConnectDB("invalid-dns")
	assert.Error(t, err)
	assert.Nil(t, db)
}
