package container

import (
	"github.com/eapache/queue"
)

// Queue FIFO队列, 池的任务队列
// 它的实现不是goroutine安全的, 调度器持有自己的锁
type Queue[T any] struct {
	q *queue.Queue
}

func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{q: queue.New()}
}

func (q *Queue[T]) Push(v T) {
	q.q.Add(v)
}

func (q *Queue[T]) Peek() (T, bool) {
	if q.q.Length() == 0 {
		return *new(T), false
	}
	return q.q.Peek().(T), true
}

func (q *Queue[T]) Pop() (T, bool) {
	if q.q.Length() == 0 {
		return *new(T), false
	}
	return q.q.Remove().(T), true
}

func (q *Queue[T]) Len() int {
	return q.q.Length()
}

// Remove 移除第一个匹配的元素, 取消排队中的任务时使用
// 底层的环形队列不支持随机删除, 通过一轮整体轮转实现
func (q *Queue[T]) Remove(match func(T) bool) bool {
	length := q.q.Length()
	removed := false
	for i := 0; i < length; i++ {
		v := q.q.Remove().(T)
		if !removed && match(v) {
			removed = true
			continue
		}
		q.q.Add(v)
	}
	return removed
}

// Drain 取出所有元素并清空队列
func (q *Queue[T]) Drain() []T {
	length := q.q.Length()
	if length == 0 {
		return nil
	}
	out := make([]T, 0, length)
	for i := 0; i < length; i++ {
		out = append(out, q.q.Remove().(T))
	}
	return out
}
