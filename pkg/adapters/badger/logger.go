package badger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// slogAdapter routes Badger's internal logging into slog.
// Badger's info output is chatty, so it is demoted to debug.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) log(level slog.Level, format string, args ...any) {
	if a.logger == nil || !a.logger.Enabled(context.Background(), level) {
		return
	}
	a.logger.Log(context.Background(), level, strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (a slogAdapter) Errorf(format string, args ...any)   { a.log(slog.LevelError, format, args...) }
func (a slogAdapter) Warningf(format string, args ...any) { a.log(slog.LevelWarn, format, args...) }
func (a slogAdapter) Infof(format string, args ...any)    { a.log(slog.LevelDebug, format, args...) }
func (a slogAdapter) Debugf(format string, args ...any)   { a.log(slog.LevelDebug, format, args...) }
