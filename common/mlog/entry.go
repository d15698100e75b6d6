package mlog

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

/* ------------------------------------------------------------------------------------------ */

type entry struct {
	timestamp string
	module    string
	msg       string
	level     Level
}

func (e *entry) ColorLevelString() string {
	return fmt.Sprintf("%-20s | %-14s | %-16s | %s\n", e.timestamp, e.level.ColorString(), e.module, e.msg)
}

func (e *entry) NormalLevelString() string {
	return fmt.Sprintf("%-20s | %-5s | %-16s | %s\n", e.timestamp, e.level.String(), e.module, e.msg)
}

// newEntry 构造一条日志条目，ctx 为 key=value 形式的上下文信息，printPath 为 true 时在消息前附加调用者位置。
// 调用链固定为 logger.Xxx -> newEntry，因此调用者位于第 2 层栈帧。
func newEntry(timestamp string, module string, level Level, msg string, ctx string, printPath bool) *entry {
	if ctx != "" {
		msg = "[" + ctx + "] " + msg
	}
	if printPath {
		pc, file, line, ok := runtime.Caller(2)
		if !ok {
			msg = "unknown path => " + msg
		} else {
			index := strings.Index(file, errors.PrefixPath)
			if index == -1 {
				file = file[strings.LastIndex(file, "/")+1:]
			} else {
				file = file[index+len(errors.PrefixPath):]
			}
			funcName := runtime.FuncForPC(pc).Name()
			index = strings.LastIndex(funcName, ".")
			if index == -1 {
				funcName = "unknown function"
			} else {
				funcName = funcName[index+1:]
			}
			msg = fmt.Sprintf("%s_%s:%d => %s", file, funcName, line, msg)
		}
	}

	return &entry{
		timestamp: timestamp,
		module:    module,
		level:     level,
		msg:       msg,
	}
}
