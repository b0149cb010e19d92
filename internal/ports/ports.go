package ports

import "sync/atomic"

// Allocator 单调递增的调试端口分配器
// 进程类型的worker带inspector端口启动时, 每个worker拿到不同的端口
type Allocator struct {
	next int64
}

func NewAllocator(base int) *Allocator {
	return &Allocator{next: int64(base) - 1}
}

func (a *Allocator) Next() int {
	return int(atomic.AddInt64(&a.next, 1))
}
