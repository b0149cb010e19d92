package werror

type Code int

const (
	// Success 表示调用成功, 不会出现在拒绝路径上
	Success Code = 200
	// UnknownMethod 执行器上没有注册被调用的方法
	UnknownMethod Code = 10404
	// UserError 用户方法返回错误/panic, 原始错误会被序列化后在调用方还原
	UserError Code = 10500
	// WorkerTerminated 任务在途时执行器退出(崩溃/强杀/terminate)
	WorkerTerminated Code = 10501
	// Cancellation 调用方取消了deferred
	Cancellation Code = 10502
	// Timeout 调用方设置的定时器到期
	Timeout Code = 10503
	// PoolTerminated 池关闭之后调用Exec
	PoolTerminated Code = 10504
	// ConfigurationError 非法的配置项
	ConfigurationError Code = 10505
	// TransportError 传输层的读写失败
	TransportError Code = 10506
	// Unknown 无法识别的错误
	Unknown Code = 10600
)

func (c Code) String() string {
	switch c {
	case Success:
		return "\"Success\""
	case UnknownMethod:
		return "\"UnknownMethod\""
	case UserError:
		return "\"UserError\""
	case WorkerTerminated:
		return "\"WorkerTerminated\""
	case Cancellation:
		return "\"Cancellation\""
	case Timeout:
		return "\"Timeout\""
	case PoolTerminated:
		return "\"PoolTerminated\""
	case ConfigurationError:
		return "\"ConfigurationError\""
	case TransportError:
		return "\"TransportError\""
	default:
		return "\"Unknown\""
	}
}
