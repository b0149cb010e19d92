package werror

// Desc 描述一个可以在池和执行器之间传输的错误
// code标识错误的分类, mores携带自定义字段, stack在启用时携带调用栈
type Desc interface {
	Code() int
	Message() string
	AppendMore(more interface{})
	Mores() []interface{}
	Stack() []string
	MarshalMores() ([]byte, error)
	UnmarshalMores([]byte) error
	error
}

type Errors interface {
	// NewErrorDesc 用于生产workerpool中的标准错误
	NewErrorDesc(code Code, message string, mores ...interface{}) Desc
	// WrapErrorDesc 用于包装workerpool中的标准错误
	WrapErrorDesc(desc Desc, mores ...interface{}) Desc
}

type NewErrorDesc func(code Code, message string, mores ...interface{}) Desc

type WrapErrorDesc func(desc Desc, mores ...interface{}) Desc
