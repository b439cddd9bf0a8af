package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDSNBasic(t *testing.T) {
	cfg, err := ParseDSN("user:pass@tcp(127.0.0.1:3306)/mydb")
	require.NoError(t, err)
	assert.Equal(t, "user", cfg.User)
	assert.Equal(t, "pass", cfg.Passwd)
	assert.Equal(t, "tcp", cfg.Net)
	assert.Equal(t, "127.0.0.1:3306", cfg.Addr)
	assert.Equal(t, "mydb", cfg.DBName)
}

func TestParseDSNParams(t *testing.T) {
	cfg, err := ParseDSN("root:@tcp(localhost:3306)/db?parseTime=true&multiStatements=true&allowFallbackToPlainRSA=false")
	require.NoError(t, err)
	assert.True(t, cfg.ParseTime)
	assert.True(t, cfg.MultiStatements)
	assert.False(t, cfg.AllowFallbackToPlainRSA)
}

func TestParseDSNDefaultPort(t *testing.T) {
	cfg, err := ParseDSN("root@tcp(localhost)/db")
	require.NoError(t, err)
	assert.Equal(t, "localhost:3306", cfg.Addr)
}

func TestParseDSNNoSlashIsError(t *testing.T) {
	_, err := ParseDSN("not-a-dsn")
	assert.Error(t, err)
}

func TestConfigCloneIsIndependent(t *testing.T) {
	cfg := NewConfig()
	cfg.Params = map[string]string{"a": "1"}

	clone := cfg.Clone()
	clone.Params["a"] = "2"

	assert.Equal(t, "1", cfg.Params["a"])
	assert.Equal(t, "2", clone.Params["a"])
}

func TestFormatDSNParseDSNRoundTrip(t *testing.T) {
	cfg := NewConfig()
	cfg.User = "root"
	cfg.Net = "tcp"
	cfg.Addr = "127.0.0.1:3306"
	cfg.DBName = "mydb"
	cfg.ParseTime = true

	dsn := cfg.FormatDSN()
	reparsed, err := ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, cfg.User, reparsed.User)
	assert.Equal(t, cfg.Addr, reparsed.Addr)
	assert.Equal(t, cfg.DBName, reparsed.DBName)
	assert.True(t, reparsed.ParseTime)
}
