package werror

var (
	ErrUnknownMethod    = DefaultHandler.NewErrorDesc(UnknownMethod, "method no register")
	ErrWorkerTerminated = DefaultHandler.NewErrorDesc(WorkerTerminated, "worker is terminated")
	ErrCancellation     = DefaultHandler.NewErrorDesc(Cancellation, "deferred was cancelled")
	ErrTimeout          = DefaultHandler.NewErrorDesc(Timeout, "deferred timed out")
	ErrPoolTerminated   = DefaultHandler.NewErrorDesc(PoolTerminated, "pool is terminated")
	ErrConfiguration    = DefaultHandler.NewErrorDesc(ConfigurationError, "invalid configuration")
	ErrTransport        = DefaultHandler.NewErrorDesc(TransportError, "transport read/write failed")
)
