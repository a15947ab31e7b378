package logging

import (
	"os"
	"strings"

	"github.com/2beens/progression/pkg"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultMaxSizeMB  = 50
	defaultMaxBackups = 10
	defaultMaxAgeDays = 30
)

type LoggerSetupParams struct {
	LogFileName   string
	LogToStdout   bool
	LogLevel      string
	LogFormatJSON bool

	// rotation of LogFileName, zero values take the defaults
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// ServiceName and Environment are attached to every entry
	ServiceName string
	Environment string

	SentryEnabled bool
	SentryDSN     string
}

// Setup configures the global logrus logger. The returned func closes the
// rotating log file, call it last on shutdown.
func Setup(params LoggerSetupParams) func() {
	if params.LogFormatJSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	logrus.SetLevel(GetLevel(params.LogLevel))
	logrus.AddHook(&fieldsHook{fields: logrus.Fields{
		"service": params.ServiceName,
		"env":     params.Environment,
	}})

	if params.SentryEnabled {
		setupSentry(params)
	}

	if params.LogFileName == "" {
		logrus.SetOutput(os.Stdout)
		logrus.Infoln("writing logs only to STDOUT")
		return func() {}
	}

	fileLogger := newFileLogger(params)
	if params.LogToStdout {
		logrus.SetOutput(pkg.NewCombinedWriter(os.Stdout, fileLogger))
		logrus.Infof("writing logs to [%s] and STDOUT", fileLogger.Filename)
	} else {
		logrus.SetOutput(fileLogger)
	}

	return func() {
		logrus.SetOutput(os.Stdout)
		if err := fileLogger.Close(); err != nil {
			logrus.Errorf("close log file [%s]: %s", fileLogger.Filename, err)
		}
	}
}

func newFileLogger(params LoggerSetupParams) *lumberjack.Logger {
	fileName := params.LogFileName
	if !strings.HasSuffix(fileName, ".log") {
		fileName += ".log"
	}
	return &lumberjack.Logger{
		Filename:   fileName,
		MaxSize:    orDefault(params.MaxSizeMB, defaultMaxSizeMB),
		MaxBackups: orDefault(params.MaxBackups, defaultMaxBackups),
		MaxAge:     orDefault(params.MaxAgeDays, defaultMaxAgeDays),
		LocalTime:  false, // rotated file names in UTC
		Compress:   true,
	}
}

func setupSentry(params LoggerSetupParams) {
	err := sentry.Init(sentry.ClientOptions{
		Environment:      params.Environment,
		Dsn:              params.SentryDSN,
		TracesSampleRate: 1.0,
		ServerName:       params.ServiceName,
	})
	if err != nil {
		logrus.Errorf("sentry init: %s", err)
		return
	}
	logrus.AddHook(NewSentryHook([]logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
		logrus.ErrorLevel,
	}))
	logrus.Infoln("sentry set up")
}

// GetLevel falls back to info for unknown names.
func GetLevel(level string) logrus.Level {
	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return logrus.InfoLevel
	}
	return parsed
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// fieldsHook adds fixed fields to entries that do not set them already.
type fieldsHook struct {
	fields logrus.Fields
}

func (h *fieldsHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fieldsHook) Fire(entry *logrus.Entry) error {
	for k, v := range h.fields {
		if v == "" {
			continue
		}
		if _, ok := entry.Data[k]; !ok {
			entry.Data[k] = v
		}
	}
	return nil
}
