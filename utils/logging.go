package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	logger "github.com/sirupsen/logrus"
)

// LogWriter holds the optional log file handle so it can be closed on shutdown
type LogWriter struct {
	file *os.File
}

func (lw *LogWriter) Dispose() {
	if lw.file != nil {
		lw.file.Close()
	}
}

// InitLogger configures the standard logger from the global config and
// returns the log writer handle plus the root logger entry.
func InitLogger() (*LogWriter, *logger.Entry) {
	logWriter := &LogWriter{}

	if Config.Logging.OutputStderr {
		logger.SetOutput(os.Stderr)
	}

	if Config.Logging.OutputLevel != "" {
		level, err := logger.ParseLevel(Config.Logging.OutputLevel)
		if err != nil {
			logger.Errorf("invalid log level %v, using info", Config.Logging.OutputLevel)
			level = logger.InfoLevel
		}
		logger.SetLevel(level)
	}

	if Config.Logging.FilePath != "" {
		f, err := os.OpenFile(Config.Logging.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Errorf("could not open log file %v: %v", Config.Logging.FilePath, err)
		} else {
			logWriter.file = f
			logger.AddHook(newFileHook(f, Config.Logging.FileLevel))
		}
	}

	return logWriter, logger.NewEntry(logger.StandardLogger())
}

type fileHook struct {
	file      *os.File
	levels    []logger.Level
	formatter logger.Formatter
}

func newFileHook(file *os.File, levelName string) *fileHook {
	level := logger.InfoLevel
	if levelName != "" {
		if parsed, err := logger.ParseLevel(levelName); err == nil {
			level = parsed
		}
	}

	levels := []logger.Level{}
	for _, l := range logger.AllLevels {
		if l <= level {
			levels = append(levels, l)
		}
	}

	return &fileHook{
		file:      file,
		levels:    levels,
		formatter: &logger.TextFormatter{DisableColors: true},
	}
}

func (h *fileHook) Levels() []logger.Level {
	return h.levels
}

func (h *fileHook) Fire(entry *logger.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.file.Write(line)
	return err
}

// LogFatal logs a fatal error with callstack info that skips callerSkip many levels with arbitrarily many additional infos.
// callerSkip equal to 0 gives you info directly where LogFatal is called.
func LogFatal(err error, errorMsg interface{}, callerSkip int, additionalInfos ...map[string]interface{}) {
	logErrorInfo(err, callerSkip, additionalInfos...).Fatal(errorMsg)
}

// LogError logs an error with callstack info that skips callerSkip many levels with arbitrarily many additional infos.
// callerSkip equal to 0 gives you info directly where LogError is called.
func LogError(err error, errorMsg interface{}, callerSkip int, additionalInfos ...map[string]interface{}) {
	logErrorInfo(err, callerSkip, additionalInfos...).Error(errorMsg)
}

func logErrorInfo(err error, callerSkip int, additionalInfos ...map[string]interface{}) *logger.Entry {
	logFields := logger.NewEntry(logger.StandardLogger())

	pc, fullFilePath, line, ok := runtime.Caller(callerSkip + 2)
	if ok {
		logFields = logFields.WithFields(logger.Fields{
			"_file":     filepath.Base(fullFilePath),
			"_function": runtime.FuncForPC(pc).Name(),
			"_line":     line,
		})
	} else {
		logFields = logFields.WithField("runtime", "Callstack cannot be read")
	}

	if err != nil {
		logFields = logFields.WithField("errType", fmt.Sprintf("%T", errors.Unwrap(err))).WithError(err)
	}

	for _, infoMap := range additionalInfos {
		for name, info := range infoMap {
			logFields = logFields.WithField(name, info)
		}
	}

	return logFields
}
