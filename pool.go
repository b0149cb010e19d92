package workerpool

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nyan233/workerpool/core/deferred"
	"github.com/nyan233/workerpool/core/protocol/werror"
	"github.com/nyan233/workerpool/core/transport"
	"github.com/nyan233/workerpool/internal/pool"
	"github.com/nyan233/workerpool/internal/ports"
	"github.com/nyan233/workerpool/pkg/common/logger"
	"github.com/nyan233/workerpool/pkg/container"
)

// task 一次Exec提交的工作单元, 池内唯一id
type task struct {
	id       uint64
	method   string
	params   []interface{}
	resolver *deferred.Deferred
	onEvent  func(payload interface{})
	transfer [][]byte
	// 派发之后绑定的worker
	worker *workerHandle
}

type CallOption func(*task)

// OnEvent 注册任务级的事件回调, 事件先于终态应答送达
func OnEvent(fn func(payload interface{})) CallOption {
	return func(t *task) {
		t.onEvent = fn
	}
}

// WithTransfer 标记参数中要求所有权转移的缓冲区
func WithTransfer(bufs ...[]byte) CallOption {
	return func(t *task) {
		t.transfer = bufs
	}
}

type Stats struct {
	TotalWorkers int
	BusyWorkers  int
	IdleWorkers  int
	PendingTasks int
}

const (
	// 连续这么多次worker没到ready就退出之后, 补齐转为退避重试
	spawnFailureBackoffAfter = 3
	spawnRetryDelay          = 100 * time.Millisecond
)

// Pool 把方法调用卸载到一组受限数量的执行器上
// 队列和worker列表只被调度器自己的锁保护, 用户代码不会触达
type Pool struct {
	cfg     *Config
	logger  logger.LLogger
	eHandle werror.Errors

	mu            sync.Mutex
	workers       []*workerHandle
	queue         *container.Queue[*task]
	terminating   bool
	termDone      *deferred.Deferred
	spawnFailures int
	retryPending  bool

	nextTaskID uint64
	// 后台操作(spawn/terminate收尾)的goroutine池
	gp        *pool.TaskPool
	portAlloc *ports.Allocator
}

func New(opts ...Option) (*Pool, werror.Desc) {
	config := &Config{}
	WithDefault()(config)
	for _, opt := range opts {
		opt.apply(config)
	}
	if desc := validateConfig(config); desc != nil {
		return nil, desc
	}
	if config.MinWorkersMax {
		config.MinWorkers = config.MaxWorkers
	}
	if config.WorkerType == WorkerAuto {
		if config.Script != "" {
			config.WorkerType = WorkerProcess
		} else {
			config.WorkerType = WorkerThread
		}
	}
	p := &Pool{
		cfg:     config,
		logger:  config.Logger,
		eHandle: config.ErrHandler,
		queue:   container.NewQueue[*task](),
	}
	p.gp = pool.NewTaskPool(pool.MaxTaskPoolSize/16, 4, func(poolId int, err interface{}) {
		p.logger.Error("workerpool: background op panic, poolId : %d -> %v", poolId, err)
	})
	if config.DebugPortBase > 0 {
		p.portAlloc = ports.NewAllocator(config.DebugPortBase)
	}
	p.mu.Lock()
	p.ensureMinLocked()
	p.mu.Unlock()
	return p, nil
}

func validateConfig(config *Config) werror.Desc {
	eh := config.ErrHandler
	if eh == nil {
		eh = werror.DefaultHandler
	}
	if config.MaxWorkers < 1 {
		return eh.NewErrorDesc(werror.ConfigurationError,
			fmt.Sprintf("maxWorkers must be >= 1, got %d", config.MaxWorkers))
	}
	if config.MinWorkers < 0 {
		return eh.NewErrorDesc(werror.ConfigurationError,
			fmt.Sprintf("minWorkers must be >= 0, got %d", config.MinWorkers))
	}
	if !config.MinWorkersMax && config.MinWorkers > config.MaxWorkers {
		return eh.NewErrorDesc(werror.ConfigurationError,
			fmt.Sprintf("minWorkers (%d) must be <= maxWorkers (%d)", config.MinWorkers, config.MaxWorkers))
	}
	switch config.WorkerType {
	case WorkerAuto, WorkerThread, WorkerProcess:
	case WorkerWeb:
		return eh.NewErrorDesc(werror.ConfigurationError, "this host cannot satisfy workerType web")
	default:
		return eh.NewErrorDesc(werror.ConfigurationError,
			fmt.Sprintf("unknown workerType %q", config.WorkerType))
	}
	if config.WorkerType == WorkerProcess && config.Script == "" {
		return eh.NewErrorDesc(werror.ConfigurationError, "workerType process requires a script")
	}
	if config.WorkerType == WorkerThread && config.Script != "" {
		return eh.NewErrorDesc(werror.ConfigurationError, "script is only meaningful for process workers")
	}
	return nil
}

// Exec 提交一次方法调用, 返回可cancel/timeout的deferred
func (p *Pool) Exec(method string, params []interface{}, opts ...CallOption) *deferred.Deferred {
	d := deferred.New()
	if method == "" {
		d.Reject(p.eHandle.NewErrorDesc(werror.ConfigurationError,
			"method must be a non-empty string"))
		return d
	}
	// 函数值无法跨进程边界传输, 不必等编码失败才发现
	if method == "run" && p.cfg.WorkerType == WorkerProcess {
		d.Reject(p.eHandle.NewErrorDesc(werror.ConfigurationError,
			"process workers cannot execute function values"))
		return d
	}
	t := &task{
		id:       atomic.AddUint64(&p.nextTaskID, 1),
		method:   method,
		params:   params,
		resolver: d,
	}
	for _, opt := range opts {
		opt(t)
	}
	p.mu.Lock()
	if p.terminating {
		p.mu.Unlock()
		d.Reject(werror.ErrPoolTerminated)
		return d
	}
	p.queue.Push(t)
	p.dispatchLocked()
	p.mu.Unlock()
	// cancel/timeout在根上拒绝resolver, 这里观察到之后做善后:
	// 还在排队的任务出队, 在途的任务强杀所在worker
	d.Catch(func(v interface{}) (interface{}, error) {
		err, _ := v.(error)
		if werror.CodeIs(err, werror.Cancellation) || werror.CodeIs(err, werror.Timeout) {
			p.releaseTask(t)
		}
		return nil, err
	})
	return d
}

// ExecFunc 提交一个函数值, 通过内建的run在执行器上调用
// 只有线程类型的执行器支持函数值
func (p *Pool) ExecFunc(fn interface{}, params []interface{}, opts ...CallOption) *deferred.Deferred {
	if fn == nil || reflect.ValueOf(fn).Kind() != reflect.Func {
		d := deferred.New()
		d.Reject(p.eHandle.NewErrorDesc(werror.ConfigurationError,
			"ExecFunc requires a function value"))
		return d
	}
	runParams := make([]interface{}, 0, len(params)+1)
	runParams = append(runParams, fn)
	runParams = append(runParams, params...)
	return p.Exec("run", runParams, opts...)
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	stats := Stats{
		TotalWorkers: len(p.workers),
		PendingTasks: p.queue.Len(),
	}
	for _, w := range p.workers {
		switch {
		case w.busy():
			stats.BusyWorkers++
		case w.eligible():
			stats.IdleWorkers++
		}
	}
	return stats
}

// Terminate 关闭池: 排队中的任务全部以PoolTerminated拒绝
// force为假时等待在途任务完成, 超过timeout强杀; timeout<=0使用配置值
// 之后的Exec立即失败; 重复调用返回同一个deferred
func (p *Pool) Terminate(force bool, timeout time.Duration) *deferred.Deferred {
	if timeout <= 0 {
		timeout = p.cfg.TerminateTimeout
	}
	p.mu.Lock()
	if p.terminating {
		d := p.termDone
		p.mu.Unlock()
		return d
	}
	p.terminating = true
	p.termDone = deferred.New()
	d := p.termDone
	queued := p.queue.Drain()
	workers := make([]*workerHandle, len(p.workers))
	copy(workers, p.workers)
	p.mu.Unlock()
	for _, t := range queued {
		t.resolver.Reject(werror.ErrPoolTerminated)
	}
	if len(workers) == 0 {
		_ = p.gp.Stop()
		d.Resolve(nil)
		return d
	}
	for _, w := range workers {
		w.terminate(force, timeout)
	}
	return d
}

// dispatchLocked 队首任务优先绑定空闲worker, 没有空闲且没到上限时spawn
// 调用方必须持有p.mu
func (p *Pool) dispatchLocked() {
	for {
		if p.queue.Len() == 0 {
			return
		}
		if w := p.pickIdleLocked(); w != nil {
			t, _ := p.queue.Pop()
			if err := w.exec(t); err != nil {
				p.logger.Error("workerpool: dispatch to worker %s failed: %v", w.id, err)
				desc := p.eHandle.WrapErrorDesc(werror.ErrTransport, err.Error())
				// kill会同步回调onExit, settle会执行用户回调, 都不能发生在锁内
				_ = p.gp.Push(func() {
					w.kill()
					t.resolver.Reject(desc)
				})
			}
			continue
		}
		if len(p.workers) < p.cfg.MaxWorkers {
			p.spawnLocked()
		}
		return
	}
}

// pickIdleLocked 合格worker中挑最久未用的一个
func (p *Pool) pickIdleLocked() *workerHandle {
	var picked *workerHandle
	for _, w := range p.workers {
		if !w.eligible() {
			continue
		}
		if picked == nil || atomic.LoadInt64(&w.lastUsed) < atomic.LoadInt64(&picked.lastUsed) {
			picked = w
		}
	}
	return picked
}

func (p *Pool) ensureMinLocked() {
	for len(p.workers) < p.cfg.MinWorkers {
		p.spawnLocked()
	}
}

func (p *Pool) spawnLocked() {
	if p.terminating {
		return
	}
	opts := WorkerOptions{
		ID:     uuid.NewString(),
		Type:   p.cfg.WorkerType,
		Script: p.cfg.Script,
		Args:   p.cfg.ScriptArgs,
		Env:    p.cfg.ForkEnv,
	}
	if p.portAlloc != nil {
		opts.DebugPort = p.portAlloc.Next()
	}
	if p.cfg.OnCreateWorker != nil {
		if override := p.cfg.OnCreateWorker(opts); override != nil {
			opts = *override
		}
	}
	w := &workerHandle{
		id:   opts.ID,
		opts: opts,
		pool: p,
	}
	switch opts.Type {
	case WorkerProcess:
		env := opts.Env
		if opts.DebugPort > 0 {
			env = append(append([]string{}, env...),
				fmt.Sprintf("WORKERPOOL_DEBUG_PORT=%d", opts.DebugPort))
		}
		w.tr = transport.NewProcess(opts.Script, opts.Args, env, p.logger)
	default:
		w.tr = transport.NewInproc(p.cfg.Methods, p.logger)
	}
	p.workers = append(p.workers, w)
	p.logger.Debug("workerpool: spawn %s worker %s", opts.Type, w.id)
	_ = p.gp.Push(func() {
		if err := w.tr.Start(w.events()); err != nil {
			p.logger.Error("workerpool: start worker %s failed: %v", w.id, err)
			w.onExit(-1, err)
			return
		}
		// spawn期间收到terminate请求的补偿
		if atomic.LoadInt32(&w.termRequested) == 1 {
			_ = w.tr.Kill()
		}
	})
}

// scheduleRetryLocked 延迟一段时间之后再补齐worker, 避免坏脚本导致热循环respawn
// 调用方必须持有p.mu
func (p *Pool) scheduleRetryLocked() {
	if p.retryPending {
		return
	}
	p.retryPending = true
	p.logger.Warn("workerpool: %d consecutive spawn failures, backing off %v",
		p.spawnFailures, spawnRetryDelay)
	time.AfterFunc(spawnRetryDelay, func() {
		p.mu.Lock()
		p.retryPending = false
		if !p.terminating {
			p.ensureMinLocked()
			p.dispatchLocked()
		}
		p.mu.Unlock()
	})
}

// releaseTask 取消/超时的善后
func (p *Pool) releaseTask(t *task) {
	p.mu.Lock()
	removed := p.queue.Remove(func(queued *task) bool { return queued == t })
	w := t.worker
	p.mu.Unlock()
	if removed || w == nil {
		return
	}
	// 在途任务无法抢占, 强杀所在worker, 调度器随后按minWorkers补齐
	if _, inFlight := w.pending.LoadAndDelete(t.id); inFlight {
		p.logger.Info("workerpool: cancel in-flight task %d, killing worker %s", t.id, w.id)
		w.kill()
	}
}

func (p *Pool) onWorkerReady(w *workerHandle) {
	p.mu.Lock()
	p.spawnFailures = 0
	p.dispatchLocked()
	p.mu.Unlock()
}

func (p *Pool) onWorkerIdle(w *workerHandle) {
	p.mu.Lock()
	p.dispatchLocked()
	p.mu.Unlock()
}

func (p *Pool) onWorkerExit(w *workerHandle) {
	p.mu.Lock()
	for i, cur := range p.workers {
		if cur == w {
			p.workers = append(p.workers[:i], p.workers[i+1:]...)
			break
		}
	}
	terminating := p.terminating
	var termDone *deferred.Deferred
	if terminating && len(p.workers) == 0 {
		termDone = p.termDone
	}
	if !terminating {
		// lastUsed为零说明worker从未ready, 连续出现按启动失败退避
		if atomic.LoadInt64(&w.lastUsed) == 0 {
			p.spawnFailures++
		}
		if p.spawnFailures >= spawnFailureBackoffAfter {
			p.scheduleRetryLocked()
		} else {
			p.ensureMinLocked()
			p.dispatchLocked()
		}
	}
	p.mu.Unlock()
	p.logger.Debug("workerpool: worker %s exited", w.id)
	if p.cfg.OnTerminateWorker != nil {
		p.cfg.OnTerminateWorker(w.opts)
	}
	if termDone != nil {
		// onExit可能来自gp自己的goroutine, Stop不能同步等待
		go func() { _ = p.gp.Stop() }()
		termDone.Resolve(nil)
	}
}
