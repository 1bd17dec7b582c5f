package config

import (
	"time"
)

// Config is the root application configuration.
type Config struct {
	Local  LocalConfig  `yaml:"local"`
	Remote RemoteConfig `yaml:"remote"`
	Sync   SyncConfig   `yaml:"sync"`
	HTTP   HTTPConfig   `yaml:"http"`
	Log    LogConfig    `yaml:"log"`
}

// LocalConfig holds the on-device persistence settings.
type LocalConfig struct {
	StatePath string `yaml:"state_path" env:"GMW_STATE_PATH" env-default:"./gmw-state.json"`
	QueuePath string `yaml:"queue_path" env:"GMW_QUEUE_PATH" env-default:"./gmw-queue.db"`
	Timezone  string `yaml:"timezone"   env:"GMW_TIMEZONE"   env-default:"Local"`
}

// RemoteConfig holds the cloud store settings. An empty DSN means the app
// runs local-only.
type RemoteConfig struct {
	DSN             string        `yaml:"dsn"                env:"GMW_REMOTE_DSN"`
	JWTSecret       string        `yaml:"jwt_secret"         env:"GMW_REMOTE_JWT_SECRET"`
	MaxConns        int32         `yaml:"max_conns"          env:"GMW_REMOTE_MAX_CONNS"          env-default:"4"`
	MinConns        int32         `yaml:"min_conns"          env:"GMW_REMOTE_MIN_CONNS"          env-default:"0"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"GMW_REMOTE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"GMW_REMOTE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	Timeout         time.Duration `yaml:"timeout"            env:"GMW_REMOTE_TIMEOUT"            env-default:"10s"`
	PullLimit       int           `yaml:"pull_limit"         env:"GMW_REMOTE_PULL_LIMIT"         env-default:"1500"`
}

// Enabled reports whether a remote store is configured.
func (r RemoteConfig) Enabled() bool {
	return r.DSN != ""
}

// SyncConfig holds the background sync cadence.
type SyncConfig struct {
	FlushInterval   time.Duration `yaml:"flush_interval"   env:"GMW_SYNC_FLUSH_INTERVAL"   env-default:"30s"`
	SummaryDebounce time.Duration `yaml:"summary_debounce" env:"GMW_SYNC_SUMMARY_DEBOUNCE" env-default:"500ms"`
}

// HTTPConfig holds the local API server settings.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"             env:"GMW_HTTP_ADDR"             env-default:"127.0.0.1:8787"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"GMW_HTTP_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"GMW_HTTP_WRITE_TIMEOUT"    env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"GMW_HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"GMW_LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"GMW_LOG_FORMAT" env-default:"text"`
}

// Location resolves the configured timezone. "Local" and "" use the host zone.
func (l LocalConfig) Location() (*time.Location, error) {
	if l.Timezone == "" || l.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(l.Timezone)
}
