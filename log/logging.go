// SPDX-License-Identifier: GPL-3.0-or-later
package log

import (
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	loggersMu sync.RWMutex
	loggers   map[string]*logrus.Logger
)

func NewPrefixLogger(prefix string) *PrefixLogger {
	stringPrefix := fmt.Sprintf("%s:\t", prefix)

	formatter := &logrus.TextFormatter{}
	formatter.FullTimestamp = true
	formatter.TimestampFormat = "15:04:05"
	formatter.DisableColors = strings.Contains(runtime.GOOS, "windows")
	return &PrefixLogger{
		formatter,
		[]byte(stringPrefix),
	}
}

type PrefixLogger struct {
	formatter logrus.Formatter
	prefix    []byte
}

func (f *PrefixLogger) Format(entry *logrus.Entry) ([]byte, error) {
	text, err := f.formatter.Format(entry)
	if err != nil {
		return nil, err
	}
	return append(f.prefix, text...), nil
}

const (
	LOG_MAIN        = "MA"
	LOG_AGGREGATOR  = "AG"
	LOG_IMAP        = "IM"
	LOG_PERSISTENCE = "PI"
	LOG_PIPELINE    = "PL"
	LOG_CLASSIFIER  = "CL"
	LOG_SEARCH      = "SE"
	LOG_NOTIFY      = "NO"
	LOG_API         = "AP"
)

var allPrefixes = []string{
	LOG_MAIN,
	LOG_AGGREGATOR,
	LOG_IMAP,
	LOG_PERSISTENCE,
	LOG_PIPELINE,
	LOG_CLASSIFIER,
	LOG_SEARCH,
	LOG_NOTIFY,
	LOG_API,
}

func getLevel(loglevel string) logrus.Level {
	switch strings.ToLower(loglevel) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "panic":
		return logrus.PanicLevel
	case "fatal":
		return logrus.FatalLevel
	}

	// Info is default
	return logrus.InfoLevel
}

func newLogger(prefix, loglevel string) *logrus.Logger {
	l := logrus.New()
	l.Level = getLevel(loglevel)
	l.Formatter = NewPrefixLogger(prefix)
	return l
}

func InitLogging(loglevel string) {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	loggers = make(map[string]*logrus.Logger)
	for _, prefix := range allPrefixes {
		loggers[prefix] = newLogger(prefix, loglevel)
	}
}

func SetLogLevel(loglevel string) {
	loggersMu.RLock()
	defer loggersMu.RUnlock()

	for _, v := range loggers {
		v.SetLevel(getLevel(loglevel))
	}
}

func Logger(logger string) *logrus.Logger {
	loggersMu.RLock()
	defer loggersMu.RUnlock()

	l, ok := loggers[logger]
	if !ok {
		panic("Logger " + logger + " unknown")
	}

	return l
}
