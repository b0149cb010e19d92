package workerpool

import (
	"time"

	"github.com/nyan233/workerpool/core/protocol/werror"
	"github.com/nyan233/workerpool/core/runtime"
	"github.com/nyan233/workerpool/pkg/common/logger"
)

// WorkerType 执行器的宿主类型
type WorkerType string

const (
	// WorkerAuto 没有配置script时解析为thread, 否则为process
	WorkerAuto WorkerType = "auto"
	// WorkerThread 进程内的执行器, 值按引用传递
	WorkerThread WorkerType = "thread"
	// WorkerProcess 子进程执行器, stdio上的JSON帧
	WorkerProcess WorkerType = "process"
	// WorkerWeb 浏览器宿主的执行器, Go宿主无法满足
	WorkerWeb WorkerType = "web"
)

// WorkerOptions 传给onCreateWorker/onTerminateWorker的每worker参数
type WorkerOptions struct {
	ID        string
	Type      WorkerType
	Script    string
	Args      []string
	Env       []string
	DebugPort int
}

type Config struct {
	// MinWorkers 池静止时保有的worker数量下限
	MinWorkers int
	// MinWorkersMax 把MinWorkers扩展成MaxWorkers, 对应字面量"max"
	MinWorkersMax bool
	// MaxWorkers 默认cpu数-1, 最低为1
	MaxWorkers int
	WorkerType WorkerType

	// Script 进程类型worker的可执行文件
	Script     string
	ScriptArgs []string
	ForkEnv    []string

	// Methods 线程类型worker的方法注册表
	Methods map[string]runtime.Method

	// TerminateTimeout 优雅退出的等待上限, 超时强杀
	TerminateTimeout time.Duration

	OnCreateWorker    func(opts WorkerOptions) *WorkerOptions
	OnTerminateWorker func(opts WorkerOptions)
	Logger            logger.LLogger
	ErrHandler        werror.Errors

	// DebugPortBase >0时为每个进程worker分配递增的调试端口
	DebugPortBase int
}
