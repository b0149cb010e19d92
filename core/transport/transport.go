package transport

import (
	"errors"

	"github.com/nyan233/workerpool/core/protocol/message"
)

var (
	ErrClosed = errors.New("transport already closed")
	ErrKilled = errors.New("transport was killed")
)

// Events 传输层的事件回调
type Events struct {
	// OnMessage 在传输自己的goroutine上串行回调
	// 同一worker的入站消息不会被并发处理
	OnMessage func(env message.Envelope)
	// OnExit 链路关闭时恰好回调一次
	// code < 0 表示没有观察到正常的退出码
	OnExit func(code int, err error)
}

// Transport 包装一个执行器的双向消息链路
type Transport interface {
	Start(ev Events) error
	Send(env message.Envelope) error
	Kill() error
}
