package config

import "time"

type Duration struct {
	Duration time.Duration
}

type HTTPConfig struct {
	Addr              string   `json:"addr" yaml:"addr"`
	ReadHeaderTimeout Duration `json:"read_header_timeout" yaml:"read_header_timeout"`
	IdleTimeout       Duration `json:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout   Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxRequestBytes   int64    `json:"max_request_bytes" yaml:"max_request_bytes"`

	// AllowOrigins feeds CORS for the browser tree component.
	AllowOrigins []string `json:"allow_origins,omitempty" yaml:"allow_origins,omitempty"`
}

type Neo4jConfig struct {
	URI         string   `json:"uri,omitempty" yaml:"uri,omitempty"`
	User        string   `json:"user,omitempty" yaml:"user,omitempty"`
	Password    string   `json:"password,omitempty" yaml:"password,omitempty"`
	Database    string   `json:"database,omitempty" yaml:"database,omitempty"`
	Timeout     Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	MaxPoolSize int      `json:"max_pool_size,omitempty" yaml:"max_pool_size,omitempty"`
}

type SQLConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver      string `json:"driver,omitempty" yaml:"driver,omitempty"`
	DSN         string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	AutoMigrate bool   `json:"auto_migrate,omitempty" yaml:"auto_migrate,omitempty"`
}

// SourceConfig selects where person records come from.
type SourceConfig struct {
	// Type is one of "wikitree", "fixture", "neo4j", "sql".
	Type string `json:"type" yaml:"type"`

	BaseURL string   `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	AppID   string   `json:"app_id,omitempty" yaml:"app_id,omitempty"`
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	FixturePath string `json:"fixture_path,omitempty" yaml:"fixture_path,omitempty"`

	Neo4j Neo4jConfig `json:"neo4j,omitempty" yaml:"neo4j,omitempty"`
	SQL   SQLConfig   `json:"sql,omitempty" yaml:"sql,omitempty"`
}

type SessionConfig struct {
	IdleTTL       Duration `json:"idle_ttl" yaml:"idle_ttl"`
	SweepInterval Duration `json:"sweep_interval" yaml:"sweep_interval"`
	MaxSessions   int      `json:"max_sessions" yaml:"max_sessions"`
	// LoadConcurrency bounds parallel fetches inside one staged load.
	LoadConcurrency int `json:"load_concurrency" yaml:"load_concurrency"`
}

type TreeConfig struct {
	DefaultGenerations int `json:"default_generations" yaml:"default_generations"`
	MaxGenerations     int `json:"max_generations" yaml:"max_generations"`
}

type EventsConfig struct {
	// Type is "memory" or "redis".
	Type          string `json:"type" yaml:"type"`
	RedisAddr     string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	RedisPassword string `json:"redis_password,omitempty" yaml:"redis_password,omitempty"`
	ChannelPrefix string `json:"channel_prefix,omitempty" yaml:"channel_prefix,omitempty"`
}

type ChartConfig struct {
	// FontPath is an optional TrueType font for PNG charts.
	FontPath string  `json:"font_path,omitempty" yaml:"font_path,omitempty"`
	FontSize float64 `json:"font_size,omitempty" yaml:"font_size,omitempty"`
}

type Config struct {
	Env      string        `json:"env" yaml:"env"`
	Version  string        `json:"version,omitempty" yaml:"version,omitempty"`
	HTTP     HTTPConfig    `json:"http" yaml:"http"`
	Source   SourceConfig  `json:"source" yaml:"source"`
	Sessions SessionConfig `json:"sessions" yaml:"sessions"`
	Tree     TreeConfig    `json:"tree" yaml:"tree"`
	Events   EventsConfig  `json:"events" yaml:"events"`
	Chart    ChartConfig   `json:"chart,omitempty" yaml:"chart,omitempty"`
}
