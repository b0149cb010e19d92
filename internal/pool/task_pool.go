package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

const MaxTaskPoolSize = 1024 * 16

// TaskPool 调度器的后台goroutine池, spawn/replace/terminate这类操作在它上面执行
// panic通过recoverFn上报而不是击穿调度器
type TaskPool struct {
	tasks     chan func()
	recoverFn func(poolId int, err interface{})
	// 用于取消所有goroutine
	cancelFn context.CancelFunc
	// 统计关闭的goroutine数量
	wg *sync.WaitGroup
	// 池的大小, 也即活跃的goroutine数量
	size int
	// 关闭的标志
	closed int64
}

func NewTaskPool(bufSize, size int, recoverFn func(poolId int, err interface{})) *TaskPool {
	pool := &TaskPool{}
	if bufSize > MaxTaskPoolSize {
		bufSize = MaxTaskPoolSize
	}
	pool.tasks = make(chan func(), bufSize)
	pool.size = size
	pool.recoverFn = recoverFn
	pool.wg = &sync.WaitGroup{}
	pool.wg.Add(size)
	pool.start()
	return pool
}

func (p *TaskPool) start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancelFn = cancel
	for i := 0; i < p.size; i++ {
		id := i
		go func() {
			defer p.wg.Done()
			for {
				select {
				case fn := <-p.tasks:
					p.run(id, fn)
				case <-ctx.Done():
					return
				}
			}
		}()
	}
}

func (p *TaskPool) run(id int, fn func()) {
	defer func() {
		if err := recover(); err != nil && p.recoverFn != nil {
			p.recoverFn(id, err)
		}
	}()
	fn()
}

func (p *TaskPool) Push(fn func()) error {
	if atomic.LoadInt64(&p.closed) == 1 {
		return errors.New("pool already closed")
	}
	p.tasks <- fn
	return nil
}

func (p *TaskPool) Stop() error {
	if !atomic.CompareAndSwapInt64(&p.closed, 0, 1) {
		return errors.New("pool already closed")
	}
	p.cancelFn()
	p.wg.Wait()
	return nil
}
