package logger

import "log/slog"

const (
	colorReset  = "\x1b[0m"
	colorRed    = "\x1b[31m"
	colorYellow = "\x1b[33m"
	colorBlue   = "\x1b[34m"
	colorGray   = "\x1b[90m"
)

func colorizeLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return colorRed + level.String() + colorReset
	case level >= slog.LevelWarn:
		return colorYellow + level.String() + colorReset
	case level >= slog.LevelInfo:
		return colorBlue + level.String() + colorReset
	default:
		return colorGray + level.String() + colorReset
	}
}
