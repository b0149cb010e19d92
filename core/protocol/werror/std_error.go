package werror

import (
	"encoding/json"
)

// StdError 是Desc的标准实现, 它的所有字段都可以被JSON序列化
// 在进程类型的执行器上它就是wire上error字段的形状
type StdError struct {
	WCode    Code          `json:"code"`
	WMessage string        `json:"message"`
	WMores   []interface{} `json:"mores,omitempty"`
	WStack   []string      `json:"stack,omitempty"`
}

func NewStdError(code Code, message string, mores ...interface{}) Desc {
	return &StdError{
		WCode:    code,
		WMessage: message,
		WMores:   mores,
	}
}

func WrapStdError(desc Desc, mores ...interface{}) Desc {
	return &StdError{
		WCode:    Code(desc.Code()),
		WMessage: desc.Message(),
		WMores:   append(desc.Mores(), mores...),
		WStack:   desc.Stack(),
	}
}

func (e *StdError) Code() int {
	return int(e.WCode)
}

func (e *StdError) Message() string {
	return e.WMessage
}

func (e *StdError) AppendMore(more interface{}) {
	e.WMores = append(e.WMores, more)
}

func (e *StdError) Mores() []interface{} {
	return e.WMores
}

func (e *StdError) Stack() []string {
	return e.WStack
}

func (e *StdError) Error() string {
	bytes, err := json.Marshal(e)
	if err != nil {
		panic("json.Marshal failed : " + err.Error())
	}
	return string(bytes)
}

func (e *StdError) MarshalMores() ([]byte, error) {
	return json.Marshal(e.WMores)
}

func (e *StdError) UnmarshalMores(bytes []byte) error {
	return json.Unmarshal(bytes, &e.WMores)
}

// AsStdError 将任意error压平成可以上wire的StdError
// Desc保留原有的code/mores/stack, 普通的error被归类为UserError
func AsStdError(err error) *StdError {
	if err == nil {
		return nil
	}
	switch e := err.(type) {
	case *StdError:
		return e
	case Desc:
		return &StdError{
			WCode:    Code(e.Code()),
			WMessage: e.Message(),
			WMores:   e.Mores(),
			WStack:   e.Stack(),
		}
	default:
		return &StdError{
			WCode:    UserError,
			WMessage: err.Error(),
		}
	}
}

// CodeIs 判断err是否携带指定的错误码
func CodeIs(err error, code Code) bool {
	desc, ok := err.(Desc)
	if !ok {
		return false
	}
	return desc.Code() == int(code)
}
