package runtime

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/nyan233/workerpool/core/deferred"
	"github.com/nyan233/workerpool/core/protocol/message"
	"github.com/nyan233/workerpool/core/protocol/werror"
	"github.com/nyan233/workerpool/pkg/common/logger"
)

// Method 注册在执行器上的用户方法
// 返回*deferred.Deferred表示异步完成, 返回*message.Transfer表示结果要求所有权转移
type Method func(params []interface{}) (interface{}, error)

// Runtime 执行器内部的RPC循环
// 基线语义是单飞: 父端保证同一worker上最多一个在途请求, currentID因此无歧义
type Runtime struct {
	methods     map[string]Method
	termHandler func() error
	send        func(message.Envelope) error
	exit        func(code int)
	logger      logger.LLogger
	eHandle     werror.Errors
	// 正在服务的请求id, 0表示空闲; 池分配的id从1开始
	currentID uint64
}

type Option func(*Runtime)

func WithTerminationHandler(fn func() error) Option {
	return func(r *Runtime) {
		r.termHandler = fn
	}
}

func WithLogger(l logger.LLogger) Option {
	return func(r *Runtime) {
		r.logger = l
	}
}

func WithExitFunc(fn func(code int)) Option {
	return func(r *Runtime) {
		r.exit = fn
	}
}

func WithErrors(eh werror.Errors) Option {
	return func(r *Runtime) {
		r.eHandle = eh
	}
}

func New(methods map[string]Method, send func(message.Envelope) error, opts ...Option) *Runtime {
	r := &Runtime{
		methods: make(map[string]Method, len(methods)+2),
		send:    send,
		exit:    func(code int) {},
		logger:  logger.DefaultLogger,
		eHandle: werror.DefaultHandler,
	}
	for _, opt := range opts {
		opt(r)
	}
	for name, method := range methods {
		r.methods[name] = method
	}
	r.methods["run"] = r.builtinRun
	r.methods["methods"] = r.builtinMethods
	return r
}

// Ready 注册完成之后向父端发送ready字面量, 父端收到后才开始派发
func (r *Runtime) Ready() {
	if err := r.send(message.NewSignal(message.ReadySignal)); err != nil {
		r.logger.Error("workerpool runtime: send ready failed: %v", err)
	}
}

// Handle 处理一条来自父端的消息
func (r *Runtime) Handle(env message.Envelope) {
	if env.Signal == message.TerminateSentinel {
		r.terminate()
		return
	}
	if env.Request == nil {
		r.logger.Warn("workerpool runtime: drop unexpected inbound frame")
		return
	}
	r.serve(env.Request)
}

// Emit 把payload作为当前请求的事件发往父端
// 没有活跃请求时静默丢弃
func (r *Runtime) Emit(payload interface{}) {
	id := atomic.LoadUint64(&r.currentID)
	if id == 0 {
		return
	}
	var transferables [][]byte
	if tr, ok := payload.(*message.Transfer); ok {
		payload = tr.Message
		transferables = tr.Transferables
	}
	env := message.NewEvent(id, payload)
	env.Transferables = transferables
	if err := r.send(env); err != nil {
		r.logger.Error("workerpool runtime: emit failed: %v", err)
	}
}

// Methods 当前注册的方法名, 包含内建的run/methods
func (r *Runtime) Methods() []string {
	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Runtime) terminate() {
	if r.termHandler != nil {
		// 返回之前退出被推迟
		if err := r.termHandler(); err != nil {
			r.logger.Error("workerpool runtime: termination handler: %v", err)
		}
	}
	r.exit(0)
}

func (r *Runtime) serve(req *message.Request) {
	method, ok := r.methods[req.Method]
	if !ok {
		r.complete(req.ID, nil, r.eHandle.NewErrorDesc(
			werror.UnknownMethod, fmt.Sprintf("unknown method %q", req.Method)))
		return
	}
	atomic.StoreUint64(&r.currentID, req.ID)
	gid := goid()
	serving.Store(gid, r)
	result, err := r.invoke(method, req.Params)
	serving.Delete(gid)
	if err == nil {
		if d, isDeferred := result.(*deferred.Deferred); isDeferred {
			d.Then(func(v interface{}) (interface{}, error) {
				r.complete(req.ID, v, nil)
				return nil, nil
			}, func(v interface{}) (interface{}, error) {
				failure, _ := v.(error)
				if failure == nil {
					failure = r.eHandle.NewErrorDesc(werror.UserError, fmt.Sprintf("%v", v))
				}
				r.complete(req.ID, nil, failure)
				return nil, nil
			})
			return
		}
	}
	r.complete(req.ID, result, err)
}

func (r *Runtime) invoke(method Method, params []interface{}) (result interface{}, err error) {
	defer func() {
		if p := recover(); p != nil {
			result = nil
			err = r.eHandle.NewErrorDesc(werror.UserError, fmt.Sprintf("method panic: %v", p))
		}
	}()
	return method(params)
}

// complete 每个请求恰好发出一个终态应答, 然后清空currentID
func (r *Runtime) complete(id uint64, result interface{}, err error) {
	defer atomic.CompareAndSwapUint64(&r.currentID, id, 0)
	var transferables [][]byte
	if err != nil {
		result = nil
	} else if tr, ok := result.(*message.Transfer); ok {
		result = tr.Message
		transferables = tr.Transferables
	}
	env := message.NewResponse(id, result, werror.AsStdError(err))
	env.Transferables = transferables
	if sendErr := r.send(env); sendErr != nil {
		r.logger.Error("workerpool runtime: send response failed: %v", sendErr)
	}
}
