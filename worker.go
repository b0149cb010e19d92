package workerpool

import (
	"errors"
	"io"
	"os"

	"github.com/nyan233/workerpool/core/protocol/message"
	"github.com/nyan233/workerpool/core/runtime"
	"github.com/nyan233/workerpool/pkg/common/logger"
)

// Worker 进程类型执行器的入口, 在子进程的main里使用
// stdout被协议占用, 用户输出应当走stderr
type Worker struct {
	rt     *runtime.Runtime
	reader *message.Reader
}

var activeWorker *Worker

// RegisterWorker 注册方法表并绑定stdio上的协议链路
// 随后调用Serve开始服务
func RegisterWorker(methods map[string]runtime.Method, opts ...runtime.Option) *Worker {
	writer := message.NewWriter(os.Stdout)
	rtOpts := make([]runtime.Option, 0, len(opts)+2)
	rtOpts = append(rtOpts,
		runtime.WithExitFunc(os.Exit),
		runtime.WithLogger(logger.DefaultLogger),
	)
	rtOpts = append(rtOpts, opts...)
	w := &Worker{
		rt:     runtime.New(methods, writer.Write, rtOpts...),
		reader: message.NewReader(os.Stdin),
	}
	activeWorker = w
	return w
}

// Serve 发送ready并阻塞处理来自父端的请求
// stdin关闭意味着父进程已经消失, 此时直接退出
func (w *Worker) Serve() {
	w.rt.Ready()
	for {
		env, err := w.reader.Read()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.DefaultLogger.Error("workerpool worker: read frame failed: %v", err)
			}
			os.Exit(1)
		}
		w.rt.Handle(env)
	}
}

// Emit 从方法内部把payload作为当前请求的事件发往父端
// 线程和进程类型的执行器都可以使用, 没有活跃请求时静默丢弃
//
// 线程类型的执行器按goroutine路由: Emit必须发生在服务方法的goroutine上,
// 方法返回*deferred.Deferred之后另起的goroutine上的Emit会被丢弃。
// 进程类型的执行器没有这个限制
func Emit(payload interface{}) {
	if runtime.EmitCurrent(payload) {
		return
	}
	if activeWorker != nil {
		activeWorker.rt.Emit(payload)
	}
}
