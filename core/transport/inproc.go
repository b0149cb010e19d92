package transport

import (
	"context"
	"sync"

	"github.com/nyan233/workerpool/core/protocol/message"
	"github.com/nyan233/workerpool/core/runtime"
	"github.com/nyan233/workerpool/pkg/common/logger"
)

const inprocInboundBuf = 64

// Inproc 在进程内托管一个runtime的传输, 线程类型的执行器
// 值按引用传递, transferables天然是移动而不是复制
//
// Kill只会停止消息循环, 正在执行的用户方法所在的goroutine要等方法
// 返回才能回收, Go没有强杀goroutine的机制
type Inproc struct {
	methods map[string]runtime.Method
	rtOpts  []runtime.Option
	logger  logger.LLogger

	in     chan message.Envelope
	ctx    context.Context
	cancel context.CancelFunc

	stateMu sync.Mutex
	ev      Events
	started bool
	exited  bool
}

func NewInproc(methods map[string]runtime.Method, l logger.LLogger, rtOpts ...runtime.Option) *Inproc {
	if l == nil {
		l = logger.DefaultLogger
	}
	p := &Inproc{
		methods: methods,
		rtOpts:  rtOpts,
		logger:  l,
		in:      make(chan message.Envelope, inprocInboundBuf),
	}
	// 链路状态在构造时就绪, Kill/Send先于Start到达也不会出错
	p.ctx, p.cancel = context.WithCancel(context.Background())
	return p
}

func (p *Inproc) Start(ev Events) error {
	p.stateMu.Lock()
	p.ev = ev
	p.started = true
	p.stateMu.Unlock()
	// Start之前就被Kill过, 调用方走错误路径做善后
	select {
	case <-p.ctx.Done():
		return ErrClosed
	default:
	}
	send := func(env message.Envelope) error {
		select {
		case <-p.ctx.Done():
			return ErrClosed
		default:
		}
		ev.OnMessage(env)
		return nil
	}
	opts := append([]runtime.Option{
		runtime.WithLogger(p.logger),
		runtime.WithExitFunc(func(code int) {
			p.shutdown(code, nil)
		}),
	}, p.rtOpts...)
	rt := runtime.New(p.methods, send, opts...)
	go func() {
		rt.Ready()
		for {
			select {
			case env := <-p.in:
				rt.Handle(env)
			case <-p.ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (p *Inproc) Send(env message.Envelope) error {
	select {
	case p.in <- env:
		return nil
	case <-p.ctx.Done():
		return ErrClosed
	}
}

func (p *Inproc) Kill() error {
	p.shutdown(-1, ErrKilled)
	return nil
}

// shutdown OnExit最多回调一次, 而且只在Start已经执行之后
func (p *Inproc) shutdown(code int, err error) {
	p.cancel()
	p.stateMu.Lock()
	if !p.started || p.exited {
		p.stateMu.Unlock()
		return
	}
	p.exited = true
	ev := p.ev
	p.stateMu.Unlock()
	if ev.OnExit != nil {
		ev.OnExit(code, err)
	}
}
