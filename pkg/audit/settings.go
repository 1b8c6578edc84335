package audit

import (
	"context"
	"os"
	"path/filepath"
)

// Off disables the file audit log when used as audit_log.
const Off = "off"

// Settings are the audit settings shared by every tool. They are embedded
// in each tool's settings with `mapstructure:",squash"`.
type Settings struct {
	AuditLog       string `mapstructure:"audit_log" title:"Audit Log" desc:"JSON-lines audit log path, or 'off'" settings:"noprompt"`
	AuditRedisAddr string `mapstructure:"audit_redis_addr" title:"Audit Redis Address" desc:"host:port of a shared audit Redis, optional" settings:"noprompt"`
	AuditRedisKey  string `mapstructure:"audit_redis_key" title:"Audit Redis Key" default:"uoft-tools:audit" settings:"noprompt"`
}

// DefaultLogPath returns $XDG_STATE_HOME/uoft-tools/audit.log, falling back
// to ~/.local/state.
func DefaultLogPath() string {
	state := os.Getenv("XDG_STATE_HOME")
	if state == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "uoft-tools-audit.log"
		}
		state = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(state, "uoft-tools", "audit.log")
}

// LogPath is the configured file path, or "" when file logging is off.
func (s Settings) LogPath() string {
	switch s.AuditLog {
	case Off:
		return ""
	case "":
		return DefaultLogPath()
	default:
		return s.AuditLog
	}
}

// Open builds the configured audit logger: the file log, the Redis list,
// or both.
func (s Settings) Open(ctx context.Context) (Logger, error) {
	var loggers []Logger
	if path := s.LogPath(); path != "" {
		fl, err := NewFileLogger(path, RotationConfig{MaxSize: 10 << 20, MaxBackups: 5})
		if err != nil {
			return nil, err
		}
		loggers = append(loggers, fl)
	}
	if s.AuditRedisAddr != "" {
		key := s.AuditRedisKey
		if key == "" {
			key = "uoft-tools:audit"
		}
		rl, err := NewRedisLogger(ctx, s.AuditRedisAddr, key, DefaultRedisMaxLen)
		if err != nil {
			for _, l := range loggers {
				l.Close()
			}
			return nil, err
		}
		loggers = append(loggers, rl)
	}
	if len(loggers) == 1 {
		return loggers[0], nil
	}
	return NewMultiLogger(loggers...), nil
}

// AuditSettings returns s. Tool settings inherit it through embedding.
func (s Settings) AuditSettings() Settings { return s }
