package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"DATABASE_URL", "HTTP_ADDR", "GRPC_ADDR", "STORAGE_DRIVER", "SQLITE_PATH", "APP_ENV", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestParse_Defaults(t *testing.T) {
	clearEnv(t)
	req := require.New(t)

	cfg, err := Parse([]byte("http:\n  addr: \":8080\"\ngrpc:\n  addr: \":9090\"\n"))
	req.NoError(err)

	req.Equal(DriverSQLite, cfg.Storage.Driver)
	req.Equal("./chat.db", cfg.Storage.SQLite.Path)
	req.Equal("chat-relay", cfg.Logging.Service)
	req.Equal("dev", cfg.Logging.Env)
	req.Equal("std", cfg.Logging.Backend)
	req.Equal("info", cfg.Logging.Level)
	req.Equal(256, cfg.WS.SendBuffer)
	req.Equal(int64(1<<20), cfg.WS.MaxMessageSize)
	req.Equal(15*time.Second, cfg.WS.PingIntervalDur())
	req.Equal(30*time.Second, cfg.HTTP.RequestTimeoutDur())
}

func TestParse_RequiredAddrs(t *testing.T) {
	clearEnv(t)

	_, err := Parse([]byte("grpc:\n  addr: \":9090\"\n"))
	require.ErrorContains(t, err, "http.addr")

	_, err = Parse([]byte("http:\n  addr: \":8080\"\n"))
	require.ErrorContains(t, err, "grpc.addr")
}

func TestParse_PostgresNeedsDSN(t *testing.T) {
	clearEnv(t)

	_, err := Parse([]byte("http: {addr: \":1\"}\ngrpc: {addr: \":2\"}\nstorage: {driver: postgres}\n"))
	require.ErrorContains(t, err, "dsn")
}

func TestParse_UnknownDriver(t *testing.T) {
	clearEnv(t)

	_, err := Parse([]byte("http: {addr: \":1\"}\ngrpc: {addr: \":2\"}\nstorage: {driver: mongo}\n"))
	require.ErrorContains(t, err, "mongo")
}

func TestParse_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/chat")
	t.Setenv("HTTP_ADDR", ":18080")
	t.Setenv("APP_ENV", "prod")
	req := require.New(t)

	cfg, err := Parse([]byte("http: {addr: \":8080\"}\ngrpc: {addr: \":9090\"}\n"))
	req.NoError(err)

	// DSN без явного driver включает postgres
	req.Equal(DriverPostgres, cfg.Storage.Driver)
	req.Equal("postgres://u:p@localhost:5432/chat", cfg.Storage.Postgres.DSN)
	req.Equal(":18080", cfg.HTTP.Addr)
	req.Equal("prod", cfg.Logging.Env)
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	clearEnv(t)

	_, err := Parse([]byte("http: {addr: \":1\", writeTimeout: 15s}\ngrpc: {addr: \":2\"}\n"))
	require.ErrorContains(t, err, "writeTimeout")

	_, err = Parse([]byte("http: {addr: \":1\"}\ngrpc: {addr: \":2\"}\nchat: {maxMessageLength: 10}\n"))
	require.ErrorContains(t, err, "chat")
}

func TestParse_BadDurationFallsBack(t *testing.T) {
	clearEnv(t)

	cfg, err := Parse([]byte("http: {addr: \":1\", readTimeout: soon}\ngrpc: {addr: \":2\"}\nws: {pingInterval: 2s}\n"))
	require.NoError(t, err)
	require.Equal(t, 10*time.Second, cfg.HTTP.ReadTimeoutDur())
	require.Equal(t, 2*time.Second, cfg.WS.PingIntervalDur())
}

func TestLoadConfig_FromFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http: {addr: \":1\"}\ngrpc: {addr: \":2\"}\nstorage: {driver: memory}\n"), 0o600))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, DriverMemory, cfg.Storage.Driver)
}

func TestLoadConfig_ShippedFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_PATH", "config.yaml")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTP.Addr)
	require.Equal(t, DriverSQLite, cfg.Storage.Driver)
	require.Len(t, cfg.HTTP.AllowedOrigins, 2)
}
