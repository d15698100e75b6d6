package mlog

import (
	"fmt"
	"sync"
	"time"
)

/* ------------------------------------------------------------------------------------------ */

type Logger interface {
	Debug(msg string)
	Debugf(format string, args ...interface{})
	Info(msg string)
	Infof(format string, args ...interface{})
	Warn(msg string)
	Warnf(format string, args ...interface{})
	Error(msg string)
	Errorf(format string, args ...interface{})
	Panic(msg string)
	Panicf(format string, args ...interface{})
	With(key, value string) Logger
	Stop() error
}

/* ------------------------------------------------------------------------------------------ */

var now = func() string {
	return time.Now().Format("2006-01-02 15:04:05.000")
}

// bus 保存所有日志记录器共享的输出器与全局日志等级。
type bus struct {
	lvl       Level
	terminal  writer
	file      writer
	isStopped bool
	mutex     sync.RWMutex
}

var loggerBus = &bus{
	lvl:      InfoLevel,
	terminal: NewTerminalWriter(),
	file:     &mockWriter{},
}

// SetLevel 设置全局日志等级，低于此等级的日志不会被任何记录器输出。
func SetLevel(lvl Level) {
	loggerBus.mutex.Lock()
	defer loggerBus.mutex.Unlock()
	loggerBus.lvl = lvl
}

// GetLevel 返回当前的全局日志等级。
func GetLevel() Level {
	loggerBus.mutex.RLock()
	defer loggerBus.mutex.RUnlock()
	return loggerBus.lvl
}

// Config 定义日志模块的配置项。
type Config struct {
	Level             string `json:"level" yaml:"Level"`
	DirPath           string `json:"dir_path" yaml:"DirPath"`
	SingleFileMaxSize int    `json:"single_file_max_size" yaml:"SingleFileMaxSize"`
}

// Configure 根据配置调整全局日志等级，若 DirPath 不为空，则额外将日志写入到该目录下按等级划分的文件中。
func Configure(cfg Config) error {
	if cfg.Level != "" {
		if lvl := ParseLevel(cfg.Level); lvl != NaN {
			SetLevel(lvl)
		}
	}
	if cfg.DirPath == "" {
		return nil
	}
	mfw, err := NewMultiFileWriter(cfg.DirPath, cfg.SingleFileMaxSize)
	if err != nil {
		return err
	}
	loggerBus.mutex.Lock()
	old := loggerBus.file
	loggerBus.file = mfw
	loggerBus.isStopped = false
	loggerBus.mutex.Unlock()
	return old.Close()
}

/* ------------------------------------------------------------------------------------------ */

type logger struct {
	// lvl 定义记录的日志等级。
	lvl Level

	// printPath 字段控制是否在每条日志记录上增加 file:line 信息。
	printPath bool

	// module 定义日志输出器 logger 属于项目的哪个模块。
	module string

	// ctx 定义日志输出器 logger 的上下文信息。
	ctx []string

	kvLoggers map[string]*logger

	mutex *sync.RWMutex
}

func GetLogger(module string, lvl Level, printPath ...bool) Logger {
	l := &logger{
		lvl:       lvl,
		module:    module,
		kvLoggers: make(map[string]*logger),
		ctx:       make([]string, 0),
		mutex:     &sync.RWMutex{},
	}
	if len(printPath) > 0 {
		l.printPath = printPath[0]
	}
	return l
}

func (l *logger) Debug(msg string) {
	if l.silent(DebugLevel) {
		return
	}
	l.log(newEntry(now(), l.module, DebugLevel, msg, l.ctxStr(), l.printPath))
}

func (l *logger) Debugf(format string, args ...interface{}) {
	if l.silent(DebugLevel) {
		return
	}
	l.log(newEntry(now(), l.module, DebugLevel, fmt.Sprintf(format, args...), l.ctxStr(), l.printPath))
}

func (l *logger) Info(msg string) {
	if l.silent(InfoLevel) {
		return
	}
	l.log(newEntry(now(), l.module, InfoLevel, msg, l.ctxStr(), l.printPath))
}

func (l *logger) Infof(format string, args ...interface{}) {
	if l.silent(InfoLevel) {
		return
	}
	l.log(newEntry(now(), l.module, InfoLevel, fmt.Sprintf(format, args...), l.ctxStr(), l.printPath))
}

func (l *logger) Warn(msg string) {
	if l.silent(WarnLevel) {
		return
	}
	l.log(newEntry(now(), l.module, WarnLevel, msg, l.ctxStr(), l.printPath))
}

func (l *logger) Warnf(format string, args ...interface{}) {
	if l.silent(WarnLevel) {
		return
	}
	l.log(newEntry(now(), l.module, WarnLevel, fmt.Sprintf(format, args...), l.ctxStr(), l.printPath))
}

func (l *logger) Error(msg string) {
	if l.silent(ErrorLevel) {
		return
	}
	l.log(newEntry(now(), l.module, ErrorLevel, msg, l.ctxStr(), l.printPath))
}

func (l *logger) Errorf(format string, args ...interface{}) {
	if l.silent(ErrorLevel) {
		return
	}
	l.log(newEntry(now(), l.module, ErrorLevel, fmt.Sprintf(format, args...), l.ctxStr(), l.printPath))
}

// Panic 以 panic 等级记录日志，但并不会真正触发 panic。
func (l *logger) Panic(msg string) {
	if l.silent(PanicLevel) {
		return
	}
	l.log(newEntry(now(), l.module, PanicLevel, msg, l.ctxStr(), l.printPath))
}

func (l *logger) Panicf(format string, args ...interface{}) {
	if l.silent(PanicLevel) {
		return
	}
	l.log(newEntry(now(), l.module, PanicLevel, fmt.Sprintf(format, args...), l.ctxStr(), l.printPath))
}

func (l *logger) With(key, value string) Logger {
	kv := fmt.Sprintf("%s=%v", key, value)
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if last, ok := l.kvLoggers[kv]; ok {
		return last
	}

	cpy := &logger{
		lvl:       l.lvl,
		printPath: l.printPath,
		module:    l.module,
		kvLoggers: make(map[string]*logger),
		mutex:     &sync.RWMutex{},
		ctx:       make([]string, 0, len(l.ctx)+2),
	}
	cpy.ctx = append(cpy.ctx, l.ctx...)
	cpy.ctx = append(cpy.ctx, key, value)
	l.kvLoggers[kv] = cpy
	return cpy
}

// Stop 关闭所有日志记录器共享的文件输出器，之后的日志将被丢弃。
func (l *logger) Stop() error {
	loggerBus.mutex.Lock()
	defer loggerBus.mutex.Unlock()
	if loggerBus.isStopped {
		return nil
	}
	loggerBus.isStopped = true
	return loggerBus.file.Close()
}

// silent 给定的日志等级如果小于 logger 或全局设定的日志等级，则保持沉默，不输出日志信息。
func (l *logger) silent(lvl Level) bool {
	return lvl < l.lvl || lvl < GetLevel()
}

func (l *logger) log(e *entry) {
	loggerBus.mutex.RLock()
	defer loggerBus.mutex.RUnlock()
	if loggerBus.isStopped {
		return
	}
	loggerBus.file.WriteEntry(e)
	loggerBus.terminal.WriteEntry(e)
}

func (l *logger) ctxStr() string {
	if len(l.ctx) == 0 {
		return ""
	}
	var ctx string
	for i := 0; i <= len(l.ctx)-2; i += 2 {
		key := l.ctx[i]
		value := l.ctx[i+1]

		if key == "" {
			key = "unknown"
		}

		if value == "" {
			value = "unknown"
		}

		if i == 0 {
			ctx = key + "=" + value
		}

		if i > 0 {
			ctx = ctx + ";" + key + "=" + value
		}
	}
	return ctx
}
