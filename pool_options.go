package workerpool

import (
	stdruntime "runtime"
	"time"

	"github.com/nyan233/workerpool/core/protocol/werror"
	"github.com/nyan233/workerpool/core/runtime"
	"github.com/nyan233/workerpool/pkg/common/logger"
)

type Option func(config *Config)

func (opt Option) apply(config *Config) {
	opt(config)
}

func WithDefault() Option {
	return func(config *Config) {
		WithWorkerType(WorkerAuto)(config)
		WithMinWorkers(0)(config)
		WithMaxWorkers(defaultMaxWorkers())(config)
		WithTerminateTimeout(time.Second)(config)
		WithCustomLogger(logger.DefaultLogger)(config)
		WithErrHandler(werror.DefaultHandler)(config)
	}
}

func WithMinWorkers(n int) Option {
	return func(config *Config) {
		config.MinWorkers = n
		config.MinWorkersMax = false
	}
}

// WithMinWorkersMax 对应minWorkers的字面量"max"
func WithMinWorkersMax() Option {
	return func(config *Config) {
		config.MinWorkersMax = true
	}
}

func WithMaxWorkers(n int) Option {
	return func(config *Config) {
		config.MaxWorkers = n
	}
}

func WithWorkerType(t WorkerType) Option {
	return func(config *Config) {
		config.WorkerType = t
	}
}

// WithScript 设置进程类型worker的可执行文件, 同时把auto解析偏向process
func WithScript(path string, args ...string) Option {
	return func(config *Config) {
		config.Script = path
		config.ScriptArgs = args
	}
}

// WithForkArgs 追加传给worker脚本的命令行参数
func WithForkArgs(args ...string) Option {
	return func(config *Config) {
		config.ScriptArgs = append(config.ScriptArgs, args...)
	}
}

func WithForkEnv(env []string) Option {
	return func(config *Config) {
		config.ForkEnv = env
	}
}

// WithMethods 线程类型worker的方法注册表
func WithMethods(methods map[string]runtime.Method) Option {
	return func(config *Config) {
		config.Methods = methods
	}
}

func WithTerminateTimeout(d time.Duration) Option {
	return func(config *Config) {
		config.TerminateTimeout = d
	}
}

// WithOnCreateWorker 即将spawn时回调, 返回非nil时覆盖每worker参数
func WithOnCreateWorker(fn func(opts WorkerOptions) *WorkerOptions) Option {
	return func(config *Config) {
		config.OnCreateWorker = fn
	}
}

// WithOnTerminateWorker worker退出之后回调, 用于释放外部资源
func WithOnTerminateWorker(fn func(opts WorkerOptions)) Option {
	return func(config *Config) {
		config.OnTerminateWorker = fn
	}
}

func WithCustomLogger(l logger.LLogger) Option {
	return func(config *Config) {
		config.Logger = l
	}
}

func WithErrHandler(eh werror.Errors) Option {
	return func(config *Config) {
		config.ErrHandler = eh
	}
}

// WithDebugPorts 进程worker按base起始的递增端口携带调试参数
func WithDebugPorts(base int) Option {
	return func(config *Config) {
		config.DebugPortBase = base
	}
}

// defaultMaxWorkers cpu数-1, 最低为1
func defaultMaxWorkers() int {
	if cpus := stdruntime.NumCPU(); cpus > 1 {
		return cpus - 1
	}
	return 1
}
