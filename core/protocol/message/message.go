package message

import (
	"github.com/nyan233/workerpool/core/protocol/werror"
)

const (
	// ReadySignal 执行器完成注册之后发送的字面量, 父端收到后才会开始派发任务
	ReadySignal = "ready"
	// TerminateSentinel 父端请求执行器优雅退出的字面量
	TerminateSentinel = "__workerpool-terminate__"
)

// Request 父端 -> 执行器
type Request struct {
	ID     uint64        `json:"id"`
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

// Response 执行器 -> 父端, result/error二选一
// IsEvent被设置时它不是终态应答, 只携带payload
type Response struct {
	ID      uint64           `json:"id"`
	Result  interface{}      `json:"result"`
	Error   *werror.StdError `json:"error"`
	IsEvent bool             `json:"isEvent,omitempty"`
	Payload interface{}      `json:"payload,omitempty"`
}

// Envelope 在传输层上流动的单元, Signal/Request/Response三选一
// Transferables只对支持所有权转移的传输有意义
type Envelope struct {
	Signal        string
	Request       *Request
	Response      *Response
	Transferables [][]byte
}

func NewSignal(s string) Envelope {
	return Envelope{Signal: s}
}

func NewRequest(id uint64, method string, params []interface{}) Envelope {
	return Envelope{Request: &Request{ID: id, Method: method, Params: params}}
}

func NewResponse(id uint64, result interface{}, desc *werror.StdError) Envelope {
	return Envelope{Response: &Response{ID: id, Result: result, Error: desc}}
}

func NewEvent(id uint64, payload interface{}) Envelope {
	return Envelope{Response: &Response{ID: id, IsEvent: true, Payload: payload}}
}
