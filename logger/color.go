package logger

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

type color uint8

const (
	black color = iota + 30
	red
	green
	yellow
	blue
	magenta
)

var (
	unknownLevelColor = red

	levelToColor = map[zapcore.Level]color{
		zapcore.DebugLevel:  magenta,
		zapcore.InfoLevel:   blue,
		zapcore.WarnLevel:   yellow,
		zapcore.ErrorLevel:  red,
		zapcore.DPanicLevel: red,
		zapcore.PanicLevel:  red,
		zapcore.FatalLevel:  red,
	}

	levelToCapitalColorString = make(map[zapcore.Level]string, len(levelToColor))
)

func init() {
	for level, c := range levelToColor {
		levelToCapitalColorString[level] = c.Wrap(level.CapitalString())
	}
}

// Wrap surrounds s with the terminal escape sequence of the color.
func (c color) Wrap(s string) string {
	return fmt.Sprintf("\x1b[%dm%s\x1b[0m", uint8(c), s)
}
