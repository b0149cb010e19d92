package deferred

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nyan233/workerpool/core/protocol/werror"
)

type State int32

const (
	Pending State = iota
	Resolved
	Rejected
)

// Handler 链式回调, 成功路径收到settle的值, 失败路径收到error(以value形式传入)
// 返回的error使子deferred拒绝; 返回*Deferred时子deferred收养它的结果
type Handler func(value interface{}) (interface{}, error)

type continuation func(state State, value interface{}, err error)

// Deferred 最多发生一次状态迁移
// parent链只用于Cancel/Timeout向根上溯, 不代表所有权
type Deferred struct {
	mu      sync.Mutex
	state   State
	value   interface{}
	err     error
	pending []continuation
	parent  *Deferred
	timer   *time.Timer
}

func New() *Deferred {
	return &Deferred{}
}

func (d *Deferred) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Resolve 以v完成deferred, v为*Deferred时收养它的结果
// settle之后的再次Resolve/Reject会被忽略
func (d *Deferred) Resolve(v interface{}) {
	if inner, ok := v.(*Deferred); ok && inner != d {
		inner.subscribe(func(state State, value interface{}, err error) {
			if state == Resolved {
				d.Resolve(value)
			} else {
				d.Reject(err)
			}
		})
		return
	}
	d.settle(Resolved, v, nil)
}

func (d *Deferred) Reject(err error) {
	d.settle(Rejected, nil, err)
}

func (d *Deferred) Then(onSuccess, onFail Handler) *Deferred {
	child := &Deferred{parent: d}
	d.subscribe(func(state State, value interface{}, err error) {
		switch {
		case state == Resolved && onSuccess == nil:
			child.settle(Resolved, value, nil)
		case state == Resolved:
			runHandler(child, onSuccess, value)
		case onFail == nil:
			child.settle(Rejected, nil, err)
		default:
			runHandler(child, onFail, err)
		}
	})
	return child
}

func (d *Deferred) Catch(onFail Handler) *Deferred {
	return d.Then(nil, onFail)
}

func (d *Deferred) Always(fn Handler) *Deferred {
	return d.Then(fn, fn)
}

// Cancel 上溯到parent链的根并以Cancellation拒绝它
// 根已经settle时是no-op, 子deferred通过正常传播看到根的拒绝
func (d *Deferred) Cancel() {
	d.root().settle(Rejected, nil, werror.ErrCancellation)
}

// Timeout 在根上挂一个定时器, 到期以Timeout拒绝根; 提前settle会清掉定时器
// 返回自身便于链式书写
func (d *Deferred) Timeout(dur time.Duration) *Deferred {
	root := d.root()
	root.mu.Lock()
	if root.state != Pending {
		root.mu.Unlock()
		return d
	}
	if root.timer != nil {
		root.timer.Stop()
	}
	root.timer = time.AfterFunc(dur, func() {
		root.settle(Rejected, nil, werror.ErrTimeout)
	})
	root.mu.Unlock()
	return d
}

// Await 同步消费deferred, ctx到期只影响本次等待, 不会取消deferred
func (d *Deferred) Await(ctx context.Context) (interface{}, error) {
	done := make(chan struct{})
	var (
		value interface{}
		err   error
	)
	d.subscribe(func(state State, v interface{}, e error) {
		value, err = v, e
		close(done)
	})
	select {
	case <-done:
		return value, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *Deferred) root() *Deferred {
	root := d
	for root.parent != nil {
		root = root.parent
	}
	return root
}

// subscribe settle之前注册的continuation在settle时按注册顺序执行
// settle之后注册的在当前goroutine上立即执行
func (d *Deferred) subscribe(fn continuation) {
	d.mu.Lock()
	if d.state == Pending {
		d.pending = append(d.pending, fn)
		d.mu.Unlock()
		return
	}
	state, value, err := d.state, d.value, d.err
	d.mu.Unlock()
	fn(state, value, err)
}

func (d *Deferred) settle(state State, value interface{}, err error) {
	d.mu.Lock()
	if d.state != Pending {
		d.mu.Unlock()
		return
	}
	d.state = state
	d.value = value
	d.err = err
	callbacks := d.pending
	d.pending = nil
	timer := d.timer
	d.timer = nil
	d.mu.Unlock()
	if timer != nil {
		timer.Stop()
	}
	for _, fn := range callbacks {
		fn(state, value, err)
	}
}

func runHandler(child *Deferred, fn Handler, arg interface{}) {
	defer func() {
		if p := recover(); p != nil {
			child.settle(Rejected, nil, werror.DefaultHandler.NewErrorDesc(
				werror.UserError, fmt.Sprintf("handler panic: %v", p)))
		}
	}()
	v, err := fn(arg)
	if err != nil {
		child.settle(Rejected, nil, err)
		return
	}
	child.Resolve(v)
}
