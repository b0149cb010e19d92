package message

// Transfer 包装(message, transferables), 指示传输层移动而不是复制列出的缓冲区
// 进程类型的传输无法移动所有权, 会忽略transferables并按值复制
type Transfer struct {
	Message       interface{}
	Transferables [][]byte
}

func NewTransfer(msg interface{}, transferables ...[]byte) *Transfer {
	return &Transfer{
		Message:       msg,
		Transferables: transferables,
	}
}
