// Package slog is a simple leveled logger with a convenient error check
// shortcut.
//
// Every package creates its own printer pair:
//
//	var log, chk = slog.New(os.Stderr)
//
// log.T/D/I/W/E/F print at trace..fatal levels, chk.T/D/I/W/E/F print an error
// if one is present and report whether it was.
package slog

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/gookit/color"
	"go.uber.org/atomic"
)

const (
	Off = iota
	Fatal
	Error
	Warn
	Info
	Debug
	Trace
)

type (
	// Ln prints a list of values separated by spaces.
	Ln func(a ...any)
	// F prints a fmt.Sprintf formatted string.
	F func(format string, a ...any)
	// S spew-dumps the given values, for inspecting structures.
	S func(a ...any)
	// Chk prints an error if there is one and returns true if it was non-nil.
	Chk func(err error) bool
	// Err constructs an error with fmt.Errorf, prints it, and returns it.
	Err func(format string, a ...any) error

	// LevelPrinter is the set of printers available at each log level.
	LevelPrinter struct {
		Ln
		F
		S
		Chk
		Err
	}

	levelSpec struct {
		name     string
		colorize func(a ...any) string
	}
)

var (
	currentLevel = atomic.NewInt32(Info)

	levelSpecs = []levelSpec{
		{"   ", color.Bit24(0, 0, 0, false).Sprint},
		{"FTL", color.Bit24(128, 0, 0, false).Sprint},
		{"ERR", color.Bit24(255, 0, 0, false).Sprint},
		{"WRN", color.Bit24(255, 128, 0, false).Sprint},
		{"INF", color.Bit24(255, 255, 0, false).Sprint},
		{"DBG", color.Bit24(0, 125, 255, false).Sprint},
		{"TRC", color.Bit24(125, 0, 255, false).Sprint},
	}
)

func init() {
	SetLogLevelString(os.Getenv("RELAYR_LOGLEVEL"))
}

// Log is the set of level printers for a package.
type Log struct {
	F, E, W, I, D, T LevelPrinter
}

// Check is the set of error check printers for a package.
type Check struct {
	F, E, W, I, D, T Chk
}

// New creates a Log and Check pair writing to the given writer.
func New(writer io.Writer) (l *Log, c *Check) {
	l = &Log{
		F: getPrinter(Fatal, writer),
		E: getPrinter(Error, writer),
		W: getPrinter(Warn, writer),
		I: getPrinter(Info, writer),
		D: getPrinter(Debug, writer),
		T: getPrinter(Trace, writer),
	}
	c = &Check{
		F: l.F.Chk,
		E: l.E.Chk,
		W: l.W.Chk,
		I: l.I.Chk,
		D: l.D.Chk,
		T: l.T.Chk,
	}
	return
}

// GetStd returns a logger on stderr for the odd place where making a package
// level instance is overkill.
func GetStd() (l *Log) {
	l, _ = New(os.Stderr)
	return
}

// SetLogLevel sets the level above which log prints become no-ops.
func SetLogLevel(l int) { currentLevel.Store(int32(l)) }

// GetLogLevel returns the current log level.
func GetLogLevel() (l int) { return int(currentLevel.Load()) }

// SetLogLevelString sets the log level by name.
func SetLogLevelString(s string) {
	switch strings.ToLower(s) {
	case "off":
		SetLogLevel(Off)
	case "fatal":
		SetLogLevel(Fatal)
	case "error":
		SetLogLevel(Error)
	case "warn":
		SetLogLevel(Warn)
	case "debug":
		SetLogLevel(Debug)
	case "trace":
		SetLogLevel(Trace)
	default:
		SetLogLevel(Info)
	}
}

func joinStrings(a ...any) (s string) {
	for i := range a {
		s += fmt.Sprint(a[i])
		if i < len(a)-1 {
			s += " "
		}
	}
	return
}

func getLoc(skip int) (output string) {
	_, file, line, _ := runtime.Caller(skip)
	return color.Bit24(0, 128, 255, false).Sprint(file, ":", line)
}

func getPrinter(level int32, writer io.Writer) LevelPrinter {
	emit := func(text string, loc string) {
		if currentLevel.Load() < level {
			return
		}
		fmt.Fprintf(writer, "%s %s %s %s\n",
			time.Now().Format("150405.000000"),
			levelSpecs[level].colorize(levelSpecs[level].name),
			text, loc)
	}
	return LevelPrinter{
		Ln: func(a ...any) { emit(joinStrings(a...), getLoc(2)) },
		F: func(format string, a ...any) {
			emit(fmt.Sprintf(format, a...), getLoc(2))
		},
		S: func(a ...any) { emit(spew.Sdump(a...), getLoc(2)) },
		Chk: func(err error) bool {
			if err != nil {
				emit(err.Error(), getLoc(2))
				return true
			}
			return false
		},
		Err: func(format string, a ...any) error {
			emit(fmt.Sprintf(format, a...), getLoc(2))
			return fmt.Errorf(format, a...)
		},
	}
}
