package unifi

import (
	"fmt"
	"log/slog"
	"strings"

	"resty.dev/v3"
)

// restyLogger sends resty's own messages, including debug traces, through
// the client's slog logger
type restyLogger struct {
	l *slog.Logger
}

var _ resty.Logger = (*restyLogger)(nil)

func (r *restyLogger) Errorf(format string, v ...any) {
	r.l.Error(r.msg(format, v...), "component", "resty")
}

func (r *restyLogger) Warnf(format string, v ...any) {
	r.l.Warn(r.msg(format, v...), "component", "resty")
}

func (r *restyLogger) Debugf(format string, v ...any) {
	r.l.Debug(r.msg(format, v...), "component", "resty")
}

func (r *restyLogger) msg(format string, v ...any) string {
	return strings.TrimSpace(fmt.Sprintf(format, v...))
}
