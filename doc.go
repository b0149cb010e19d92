// Package workerpool 把方法调用卸载到一组受限数量的执行器上
//
// 父端通过Pool提交任务, 任务以FIFO排队并派发到空闲的执行器;
// 执行器可以是进程内的goroutine(thread)或者stdio上的子进程(process)。
// 每次提交返回一个可Then/Catch/Cancel/Timeout的deferred句柄。
//
// 子进程侧使用RegisterWorker注册方法表, Serve进入服务循环,
// 方法内部可以用Emit在终态应答之前发送中间事件。
package workerpool
