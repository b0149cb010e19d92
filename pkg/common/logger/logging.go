package logger

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/zbh255/bilog"
)

const (
	openLogger  int64 = 1 << 10
	closeLogger int64 = 1 << 11
)

type LLogger interface {
	Info(format string, v ...interface{})
	Debug(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
	Panic(format string, v ...interface{})
}

var DefaultLogger LLogger

type LLoggerImpl struct {
	loggerOpen int64
	logging    bilog.Logger
}

func New(l bilog.Logger) LLogger {
	return &LLoggerImpl{logging: l, loggerOpen: openLogger}
}

// NewOnWriter 在指定的writer上构造带默认bilog配置的logger
// 进程类型的worker把日志写到stderr, stdout被wire协议占用
func NewOnWriter(w io.Writer) LLogger {
	return New(bilog.NewLogger(
		w, bilog.PANIC,
		bilog.WithTimes(),
		bilog.WithCaller(1),
		bilog.WithLowBuffer(0),
		bilog.WithTopBuffer(0),
	))
}

func (c *LLoggerImpl) Debug(format string, v ...interface{}) {
	if !c.readLoggerStatus() {
		return
	}
	c.logging.Debug(fmt.Sprintf(format, v...))
}

func (c *LLoggerImpl) Info(format string, v ...interface{}) {
	if !c.readLoggerStatus() {
		return
	}
	c.logging.Info(fmt.Sprintf(format, v...))
}

func (c *LLoggerImpl) Warn(format string, v ...interface{}) {
	if !c.readLoggerStatus() {
		return
	}
	c.logging.Trace(fmt.Sprintf(format, v...))
}

func (c *LLoggerImpl) Error(format string, v ...interface{}) {
	if !c.readLoggerStatus() {
		return
	}
	c.logging.ErrorFromString(fmt.Sprintf(format, v...))
}

func (c *LLoggerImpl) Panic(format string, v ...interface{}) {
	if !c.readLoggerStatus() {
		return
	}
	c.logging.PanicFromString(fmt.Sprintf(format, v...))
}

func (c *LLoggerImpl) readLoggerStatus() bool {
	return atomic.LoadInt64(&c.loggerOpen) == openLogger
}

func SetOpenLogger(ok bool) {
	logger, typeOk := DefaultLogger.(*LLoggerImpl)
	if !typeOk {
		return
	}
	if ok {
		atomic.StoreInt64(&logger.loggerOpen, openLogger)
	} else {
		atomic.StoreInt64(&logger.loggerOpen, closeLogger)
	}
}

func init() {
	DefaultLogger = NewOnWriter(os.Stderr)
	SetOpenLogger(true)
}
