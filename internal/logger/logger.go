package logger

import (
	"os"
	"path"
	"strings"

	"github.com/natefinch/lumberjack"
	"github.com/op/go-logging"
)

const defaultLogFilename = "visitrace.log"

var (
	fileLogFormat   = logging.MustStringFormatter(`%{time:2006-01-02 T15:04:05.000} [%{level}] [%{module}] %{message}`)
	stdoutLogFormat = logging.MustStringFormatter(`%{color:reset}%{color}%{time:15:04:05} [%{level}] [%{module}] %{message}`)

	// LevelMap maps LOG_LEVEL values to go-logging levels.
	LevelMap = map[string]logging.Level{
		"debug":    logging.DEBUG,
		"info":     logging.INFO,
		"notice":   logging.NOTICE,
		"warning":  logging.WARNING,
		"error":    logging.ERROR,
		"critical": logging.CRITICAL,
	}
)

// Setup installs a stdout backend and, when logDir is set, a rotating file
// backend. Unknown levels fall back to info.
func Setup(logDir, logLevel string) {
	backendStdout := logging.NewLogBackend(os.Stdout, "", 0)
	backendStdoutFormatter := logging.NewBackendFormatter(backendStdout, stdoutLogFormat)

	var leveled logging.LeveledBackend
	if logDir != "" {
		rotator := &lumberjack.Logger{
			Filename:   path.Join(logDir, defaultLogFilename),
			MaxSize:    10, // Megabytes
			MaxBackups: 3,
			MaxAge:     30, // Days
		}
		backendFile := logging.NewLogBackend(rotator, "", 0)
		backendFileFormatter := logging.NewBackendFormatter(backendFile, fileLogFormat)
		leveled = logging.SetBackend(backendStdoutFormatter, backendFileFormatter)
	} else {
		leveled = logging.SetBackend(backendStdoutFormatter)
	}

	level, ok := LevelMap[strings.ToLower(logLevel)]
	if !ok {
		level = logging.INFO
	}
	leveled.SetLevel(level, "")
}
