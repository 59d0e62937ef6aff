package database

import (
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	dsn := DSN(Options{User: "siaa", Pass: "p@ss:word", Host: "db", Port: "3306", Name: "siaa"})

	c, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "siaa", c.User)
	assert.Equal(t, "p@ss:word", c.Passwd)
	assert.Equal(t, "db:3306", c.Addr)
	assert.Equal(t, "siaa", c.DBName)
	assert.True(t, c.ParseTime)
	assert.True(t, c.ClientFoundRows)
	assert.Equal(t, time.UTC, c.Loc)
	assert.Contains(t, dsn, "charset=utf8mb4")
}
