package runtime

import (
	"bytes"
	stdruntime "runtime"
	"strconv"

	"github.com/nyan233/workerpool/pkg/container"
)

// serving 正在服务请求的goroutine -> 所属runtime
// 同一进程可能托管多个线程类型的执行器, 按goroutine区分
var serving container.MutexMap[uint64, *Runtime]

// EmitCurrent 把payload作为当前goroutine正在服务的请求事件发出
// 当前goroutine没有在服务请求时返回false
//
// 注册窗口只覆盖方法的同步执行部分: 方法返回*deferred.Deferred之后,
// settle它的goroutine不在注册表里, 异步阶段的事件要通过Runtime.Emit发送
func EmitCurrent(payload interface{}) bool {
	r, ok := serving.LoadOk(goid())
	if !ok {
		return false
	}
	r.Emit(payload)
	return true
}

func goid() uint64 {
	var buf [64]byte
	n := stdruntime.Stack(buf[:], false)
	// 首行形如"goroutine 123 [running]:"
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, _ := strconv.ParseUint(string(fields[1]), 10, 64)
	return id
}
