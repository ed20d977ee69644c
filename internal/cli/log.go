// Package cli implements the masonry command-line interface.
//
// Commands lay out and render items from files, the gallery API or MongoDB.
// `preview` reflows a gallery in the terminal and `serve` exposes the
// engine over HTTP:
//
//	masonry layout items.json --width 1200
//	masonry render --from api -f svg,txt
//	masonry preview --coalesce 50ms
//	masonry serve --from mongo
//
// Command output goes through a printer bound to the CLI's writer. Log
// records go through a charmbracelet/log logger carried in the command
// context; --verbose lowers its level and --log-file tees it into a
// rotated file.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/matzehuels/masonry/pkg/config"
)

const logTimeFormat = "15:04:05.00"

func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      logTimeFormat,
		Level:           level,
	})
}

// logFormatter maps a log.format config value to a formatter. Unknown
// names were rejected by config validation and fall back to text.
func logFormatter(name string) log.Formatter {
	switch name {
	case "logfmt":
		return log.LogfmtFormatter
	case "json":
		return log.JSONFormatter
	default:
		return log.TextFormatter
	}
}

// newRotatingFile opens cfg.File lazily on first write and rotates it by
// size, keeping compressed backups.
func newRotatingFile(cfg config.Log) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
}

// progress logs how long an operation took.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs "msg (elapsed)", elapsed rounded to the millisecond.
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type loggerKey struct{}

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// loggerFromContext returns the logger set by withLogger, or log.Default.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
