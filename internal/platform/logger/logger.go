package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

// New builds a development logger unless mode names production. LOG_LEVEL
// overrides the level of either.
func New(mode string) (*Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	level := zap.DebugLevel
	if m := strings.ToLower(strings.TrimSpace(mode)); m == "prod" || m == "production" {
		cfg = zap.NewProductionConfig()
		level = zap.InfoLevel
	}
	if raw := strings.TrimSpace(os.Getenv("LOG_LEVEL")); raw != "" {
		_ = level.UnmarshalText([]byte(strings.ToLower(raw)))
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	zl, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: zl.Sugar()}, nil
}

// Nop discards everything. Tests use it.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.log(zapcore.DebugLevel, msg, kv) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.log(zapcore.InfoLevel, msg, kv) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.log(zapcore.WarnLevel, msg, kv) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.log(zapcore.ErrorLevel, msg, kv) }
func (l *Logger) Fatal(msg string, kv ...interface{}) { l.log(zapcore.FatalLevel, msg, kv) }

func (l *Logger) With(kv ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(scrub(kv)...)}
}

func (l *Logger) log(lvl zapcore.Level, msg string, kv []interface{}) {
	l.SugaredLogger.Logw(lvl, msg, scrub(kv)...)
}

// Field rules, matched as substrings of the lower-cased key. Session ids
// are bearer handles for a tree view, so only a digest is written.
var (
	redactedKeys = []string{"password", "secret", "token", "authorization", "app_id", "dsn"}
	hashedKeys   = []string{"session_id"}
)

type scrubber struct {
	once    sync.Once
	enabled bool
	salt    string
}

var defaultScrubber scrubber

func (s *scrubber) on() bool {
	s.once.Do(func() {
		switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_REDACTION_ENABLED"))) {
		case "0", "false", "no", "off":
		default:
			s.enabled = true
		}
		s.salt = strings.TrimSpace(os.Getenv("LOG_HASH_SALT"))
	})
	return s.enabled
}

func scrub(kv []interface{}) []interface{} {
	if len(kv) == 0 || !defaultScrubber.on() {
		return kv
	}
	out := make([]interface{}, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		key := stringify(kv[i])
		out = append(out, key, scrubValue(strings.ToLower(strings.TrimSpace(key)), kv[i+1]))
	}
	if len(kv)%2 == 1 {
		out = append(out, kv[len(kv)-1])
	}
	return out
}

func scrubValue(key string, val interface{}) interface{} {
	switch {
	case key == "":
		return val
	case matchAny(key, redactedKeys):
		return "[REDACTED]"
	case matchAny(key, hashedKeys):
		return digest(val)
	}
	if m, ok := val.(map[string]interface{}); ok {
		out := make(map[string]interface{}, len(m))
		for k, v := range m {
			out[k] = scrubValue(strings.ToLower(strings.TrimSpace(k)), v)
		}
		return out
	}
	return val
}

func matchAny(key string, parts []string) bool {
	for _, p := range parts {
		if strings.Contains(key, p) {
			return true
		}
	}
	return false
}

func digest(val interface{}) string {
	raw := stringify(val)
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(defaultScrubber.salt + raw))
	return "hash:" + hex.EncodeToString(sum[:])[:12]
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
