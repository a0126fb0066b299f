package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/kinview-backend/internal/platform/envutil"
)

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		d.Duration = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		u, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		return d.parse(u)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("duration must be a JSON string like \"5s\" or an int nanoseconds: %w", err)
	}
	d.Duration = time.Duration(n)
	return nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!int" {
		n, err := strconv.ParseInt(value.Value, 10, 64)
		if err != nil {
			return err
		}
		d.Duration = time.Duration(n)
		return nil
	}
	return d.parse(value.Value)
}

func (d *Duration) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		d.Duration = 0
		return nil
	}
	dd, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dd
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Env: "development",
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: Duration{Duration: 5 * time.Second},
			IdleTimeout:       Duration{Duration: 2 * time.Minute},
			ShutdownTimeout:   Duration{Duration: 15 * time.Second},
			MaxRequestBytes:   1 << 20,
			AllowOrigins: []string{
				"http://localhost:3000",
				"http://localhost:5173",
				"http://127.0.0.1:3000",
				"http://127.0.0.1:5173",
			},
		},
		Source: SourceConfig{
			Type:    "wikitree",
			BaseURL: "https://api.wikitree.com/api.php",
			Timeout: Duration{Duration: 20 * time.Second},
		},
		Sessions: SessionConfig{
			IdleTTL:         Duration{Duration: 30 * time.Minute},
			SweepInterval:   Duration{Duration: time.Minute},
			MaxSessions:     1000,
			LoadConcurrency: 8,
		},
		Tree: TreeConfig{
			DefaultGenerations: 4,
			MaxGenerations:     10,
		},
		Events: EventsConfig{
			Type:          "memory",
			ChannelPrefix: "kinview:session:",
		},
	}
}

// Load builds the config from defaults, an optional JSON or YAML file, and
// environment overrides, then validates it.
func Load() (*Config, error) {
	cfg := defaultConfig()

	cfgPath, _ := envutil.String("KV_CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = findDefaultFile()
	}
	if cfgPath != "" {
		if err := loadFile(cfgPath, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)
	if err := normalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findDefaultFile() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for _, name := range []string{"config.json", "config.yaml", "config.yml"} {
		p := filepath.Join(wd, "config", name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// loadFile decodes over the defaults, so a file only needs the keys it changes.
func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, cfg); err != nil {
			return fmt.Errorf("parse json config %s: %w", path, err)
		}
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v, ok := envutil.String("LOG_MODE"); ok {
		cfg.Env = v
	}
	if v, ok := envutil.String("KV_HTTP_ADDR"); ok {
		cfg.HTTP.Addr = v
	}
	if v, ok := envutil.String("KV_SOURCE_TYPE"); ok {
		cfg.Source.Type = v
	}
	if v, ok := envutil.String("KV_SOURCE_BASE_URL"); ok {
		cfg.Source.BaseURL = v
	}
	if v, ok := envutil.String("KV_SOURCE_APP_ID"); ok {
		cfg.Source.AppID = v
	}
	if v, ok := envutil.String("KV_FIXTURE_PATH"); ok {
		cfg.Source.FixturePath = v
	}
	cfg.Source.Timeout.Duration = envutil.Duration("KV_SOURCE_TIMEOUT", cfg.Source.Timeout.Duration)
	if v, ok := envutil.String("NEO4J_URI"); ok {
		cfg.Source.Neo4j.URI = v
	}
	if v, ok := envutil.String("NEO4J_USER"); ok {
		cfg.Source.Neo4j.User = v
	}
	if v, ok := envutil.String("NEO4J_PASSWORD"); ok {
		cfg.Source.Neo4j.Password = v
	}
	if v, ok := envutil.String("NEO4J_DATABASE"); ok {
		cfg.Source.Neo4j.Database = v
	}
	if v, ok := envutil.String("KV_SQL_DRIVER"); ok {
		cfg.Source.SQL.Driver = v
	}
	if v, ok := envutil.String("KV_SQL_DSN"); ok {
		cfg.Source.SQL.DSN = v
	}
	if v, ok := envutil.String("REDIS_ADDR"); ok {
		cfg.Events.RedisAddr = v
		if cfg.Events.Type == "" || cfg.Events.Type == "memory" {
			cfg.Events.Type = "redis"
		}
	}
	if v, ok := envutil.String("REDIS_PASSWORD"); ok {
		cfg.Events.RedisPassword = v
	}
	if v, ok := envutil.String("KV_CHART_FONT"); ok {
		cfg.Chart.FontPath = v
	}
	cfg.Sessions.MaxSessions = envutil.Int("KV_MAX_SESSIONS", cfg.Sessions.MaxSessions)
	cfg.Sessions.IdleTTL.Duration = envutil.Duration("KV_SESSION_IDLE_TTL", cfg.Sessions.IdleTTL.Duration)
}

func normalize(cfg *Config) error {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "development"
	}
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.MaxRequestBytes <= 0 {
		cfg.HTTP.MaxRequestBytes = 1 << 20
	}

	src := &cfg.Source
	src.Type = strings.ToLower(strings.TrimSpace(src.Type))
	src.BaseURL = strings.TrimRight(strings.TrimSpace(src.BaseURL), "/")
	if src.Timeout.Duration <= 0 {
		src.Timeout = Duration{Duration: 20 * time.Second}
	}
	switch src.Type {
	case "wikitree", "api":
		src.Type = "wikitree"
		if src.BaseURL == "" {
			return errors.New("source.base_url is required for the wikitree source")
		}
	case "fixture":
		if strings.TrimSpace(src.FixturePath) == "" {
			return errors.New("source.fixture_path is required for the fixture source")
		}
	case "neo4j":
		if strings.TrimSpace(src.Neo4j.URI) == "" {
			return errors.New("source.neo4j.uri is required for the neo4j source")
		}
		if src.Neo4j.User == "" {
			src.Neo4j.User = "neo4j"
		}
		if src.Neo4j.Timeout.Duration <= 0 {
			src.Neo4j.Timeout = Duration{Duration: 10 * time.Second}
		}
		if src.Neo4j.MaxPoolSize <= 0 {
			src.Neo4j.MaxPoolSize = 50
		}
	case "sql":
		src.SQL.Driver = strings.ToLower(strings.TrimSpace(src.SQL.Driver))
		switch src.SQL.Driver {
		case "sqlite", "postgres":
		case "":
			src.SQL.Driver = "sqlite"
		default:
			return fmt.Errorf("invalid source.sql.driver=%q", src.SQL.Driver)
		}
		if strings.TrimSpace(src.SQL.DSN) == "" {
			return errors.New("source.sql.dsn is required for the sql source")
		}
	case "":
		return errors.New("source.type is required")
	default:
		return fmt.Errorf("unsupported source.type=%q", src.Type)
	}

	if cfg.Sessions.IdleTTL.Duration <= 0 {
		cfg.Sessions.IdleTTL = Duration{Duration: 30 * time.Minute}
	}
	if cfg.Sessions.SweepInterval.Duration <= 0 {
		cfg.Sessions.SweepInterval = Duration{Duration: time.Minute}
	}
	if cfg.Sessions.MaxSessions <= 0 {
		cfg.Sessions.MaxSessions = 1000
	}
	if cfg.Sessions.LoadConcurrency <= 0 {
		cfg.Sessions.LoadConcurrency = 8
	}

	if cfg.Tree.MaxGenerations <= 0 {
		cfg.Tree.MaxGenerations = 10
	}
	if cfg.Tree.DefaultGenerations <= 0 {
		cfg.Tree.DefaultGenerations = 4
	}
	if cfg.Tree.DefaultGenerations > cfg.Tree.MaxGenerations {
		return fmt.Errorf("tree.default_generations=%d exceeds tree.max_generations=%d", cfg.Tree.DefaultGenerations, cfg.Tree.MaxGenerations)
	}

	cfg.Events.Type = strings.ToLower(strings.TrimSpace(cfg.Events.Type))
	switch cfg.Events.Type {
	case "", "memory":
		cfg.Events.Type = "memory"
	case "redis":
		if strings.TrimSpace(cfg.Events.RedisAddr) == "" {
			return errors.New("events.redis_addr is required for the redis event bus")
		}
	default:
		return fmt.Errorf("unsupported events.type=%q", cfg.Events.Type)
	}
	if strings.TrimSpace(cfg.Events.ChannelPrefix) == "" {
		cfg.Events.ChannelPrefix = "kinview:session:"
	}
	return nil
}
