package workerpool

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nyan233/workerpool/core/protocol/message"
	"github.com/nyan233/workerpool/core/protocol/werror"
	"github.com/nyan233/workerpool/core/transport"
	"github.com/nyan233/workerpool/pkg/container"
)

const (
	workerInitializing int32 = iota
	workerReady
	workerBusy
	workerTerminating
	workerTerminated
)

// workerHandle 父端持有的执行器句柄, 负责请求/应答的关联
// 基线是单飞: pending正常情况下最多一个条目
type workerHandle struct {
	id   string
	opts WorkerOptions
	pool *Pool
	tr   transport.Transport

	state         int32
	termRequested int32
	// 最近一次变为可派发的时间, 空闲worker按LRU被挑选
	lastUsed int64
	pending  container.MutexMap[uint64, *task]
	// 优雅退出的强杀定时器
	killTimer atomic.Value // *time.Timer
}

func (w *workerHandle) events() transport.Events {
	return transport.Events{
		OnMessage: w.onMessage,
		OnExit:    w.onExit,
	}
}

// eligible 可派发条件: ready并且没有在途任务
func (w *workerHandle) eligible() bool {
	return atomic.LoadInt32(&w.state) == workerReady && w.pending.Len() == 0
}

func (w *workerHandle) busy() bool {
	return atomic.LoadInt32(&w.state) == workerBusy
}

func (w *workerHandle) exec(t *task) error {
	t.worker = w
	w.pending.Store(t.id, t)
	atomic.StoreInt32(&w.state, workerBusy)
	env := message.NewRequest(t.id, t.method, t.params)
	env.Transferables = t.transfer
	if err := w.tr.Send(env); err != nil {
		w.pending.Delete(t.id)
		return err
	}
	return nil
}

func (w *workerHandle) onMessage(env message.Envelope) {
	switch {
	case env.Signal == message.ReadySignal:
		if atomic.CompareAndSwapInt32(&w.state, workerInitializing, workerReady) {
			w.touch()
			w.pool.onWorkerReady(w)
		}
	case env.Response == nil:
		w.pool.logger.Warn("workerpool: worker %s sent an unexpected frame", w.id)
	case env.Response.IsEvent:
		// 事件先于终态应答送达
		if t, ok := w.pending.LoadOk(env.Response.ID); ok && t.onEvent != nil {
			t.onEvent(env.Response.Payload)
		}
	default:
		t, ok := w.pending.LoadAndDelete(env.Response.ID)
		if !ok {
			return
		}
		atomic.CompareAndSwapInt32(&w.state, workerBusy, workerReady)
		w.touch()
		if env.Response.Error != nil {
			t.resolver.Reject(env.Response.Error)
		} else {
			t.resolver.Resolve(env.Response.Result)
		}
		w.pool.onWorkerIdle(w)
	}
}

func (w *workerHandle) onExit(code int, err error) {
	atomic.StoreInt32(&w.state, workerTerminated)
	w.stopKillTimer()
	pending := w.pending.Clean()
	for _, t := range pending {
		t.resolver.Reject(w.pool.eHandle.WrapErrorDesc(werror.ErrWorkerTerminated,
			fmt.Sprintf("worker %s exited with code %d", w.id, code)))
	}
	w.pool.onWorkerExit(w)
}

// terminate 请求执行器退出
// force为真立即强杀, 否则发terminate哨兵并在timeout之后强杀
func (w *workerHandle) terminate(force bool, timeout time.Duration) {
	if atomic.LoadInt32(&w.state) == workerTerminated {
		return
	}
	atomic.StoreInt32(&w.termRequested, 1)
	if force {
		_ = w.tr.Kill()
		return
	}
	atomic.StoreInt32(&w.state, workerTerminating)
	if err := w.tr.Send(message.NewSignal(message.TerminateSentinel)); err != nil {
		_ = w.tr.Kill()
		return
	}
	timer := time.AfterFunc(timeout, func() {
		_ = w.tr.Kill()
	})
	w.killTimer.Store(timer)
}

func (w *workerHandle) kill() {
	atomic.StoreInt32(&w.termRequested, 1)
	_ = w.tr.Kill()
}

func (w *workerHandle) touch() {
	atomic.StoreInt64(&w.lastUsed, time.Now().UnixNano())
}

func (w *workerHandle) stopKillTimer() {
	if timer, ok := w.killTimer.Load().(*time.Timer); ok && timer != nil {
		timer.Stop()
	}
}
