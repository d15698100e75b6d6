package errors

import (
	"fmt"
	"runtime"
	"strings"
)

const PrefixPath = "github.com/tsoniclang/"

var trace = false

type Error struct {
	kind    Kind
	content string
	path    string
}

func (et *Error) Error() string {
	if trace {
		return fmt.Sprintf("[%s] => {%s}", et.path, et.content)
	}
	return et.content
}

// Kind 返回错误的类别。
func (et *Error) Kind() Kind {
	return et.kind
}

// Is 使得标准库的 errors.Is 可以按照错误类别进行匹配。
func (et *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.kind == KindUnspecified {
		return et == t
	}
	return et.kind == t.kind
}

func NewError(content string) *Error {
	var path string
	if trace {
		path = constructPath()
	}

	return &Error{
		kind:    KindInvalidArgument,
		content: content,
		path:    path,
	}
}

func NewErrorf(format string, args ...interface{}) *Error {
	var path string
	if trace {
		path = constructPath()
	}

	return &Error{
		kind:    KindInvalidArgument,
		content: fmt.Sprintf(format, args...),
		path:    path,
	}
}

// NewKindError 创建一个指定类别的错误。
func NewKindError(kind Kind, content string) *Error {
	var path string
	if trace {
		path = constructPath()
	}

	return &Error{
		kind:    kind,
		content: content,
		path:    path,
	}
}

// NewKindErrorf 创建一个指定类别的错误，错误内容按照 format 格式化。
func NewKindErrorf(kind Kind, format string, args ...interface{}) *Error {
	var path string
	if trace {
		path = constructPath()
	}

	return &Error{
		kind:    kind,
		content: fmt.Sprintf(format, args...),
		path:    path,
	}
}

func SetTrace() {
	trace = true
}

func UnsetTrace() {
	trace = false
}

func constructPath() string {
	pc, file, line, ok := runtime.Caller(2)
	if !ok {
		return "unknown path"
	}

	index := strings.Index(file, PrefixPath)
	if index == -1 {
		file = "unknown file"
	} else {
		file = file[index+len(PrefixPath):]
	}

	funcName := runtime.FuncForPC(pc).Name()
	index = strings.LastIndex(funcName, ".")
	if index == -1 {
		funcName = "unknown function"
	} else {
		funcName = funcName[index+1:]
	}

	return fmt.Sprintf("%s_%s:%d", file, funcName, line)
}
