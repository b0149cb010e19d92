package werror

import (
	"fmt"
	"runtime"
	"strings"
)

// DefaultHandler 不带栈追踪的默认错误处理器
var DefaultHandler = New()

type stdHandler struct{}

func New() Errors {
	return stdHandler{}
}

func (stdHandler) NewErrorDesc(code Code, message string, mores ...interface{}) Desc {
	return NewStdError(code, message, mores...)
}

func (stdHandler) WrapErrorDesc(desc Desc, mores ...interface{}) Desc {
	return WrapStdError(desc, mores...)
}

type stackHandler struct {
	depth int
}

// NewStackTrace 返回一个在生产错误时捕获调用栈的处理器
// 跨传输时栈会作为stack字段随错误一起被序列化
func NewStackTrace(depth int) Errors {
	if depth <= 0 {
		depth = 16
	}
	return &stackHandler{depth: depth}
}

func (h *stackHandler) NewErrorDesc(code Code, message string, mores ...interface{}) Desc {
	return &StdError{
		WCode:    code,
		WMessage: message,
		WMores:   mores,
		WStack:   captureStack(3, h.depth),
	}
}

func (h *stackHandler) WrapErrorDesc(desc Desc, mores ...interface{}) Desc {
	wrapped := WrapStdError(desc, mores...)
	if len(wrapped.Stack()) == 0 {
		wrapped.(*StdError).WStack = captureStack(3, h.depth)
	}
	return wrapped
}

func captureStack(skip, depth int) []string {
	pcs := make([]uintptr, depth)
	n := runtime.Callers(skip, pcs)
	if n == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs[:n])
	stack := make([]string, 0, n)
	for {
		frame, more := frames.Next()
		if strings.HasPrefix(frame.Function, "runtime.") {
			if !more {
				break
			}
			continue
		}
		stack = append(stack, fmt.Sprintf("%s %s:%d", frame.Function, frame.File, frame.Line))
		if !more {
			break
		}
	}
	return stack
}
