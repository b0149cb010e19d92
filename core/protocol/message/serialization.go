package message

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/nyan233/workerpool/core/protocol/werror"
)

const maxFrameSize = 16 * 1024 * 1024

var ErrBadFrame = errors.New("frame is neither a signal nor a record")

// wireRecord 进程传输上request/response共用的探测形状
// method字段存在即为request
type wireRecord struct {
	ID      uint64           `json:"id"`
	Method  *string          `json:"method,omitempty"`
	Params  []interface{}    `json:"params,omitempty"`
	Result  interface{}      `json:"result,omitempty"`
	Error   *werror.StdError `json:"error,omitempty"`
	IsEvent bool             `json:"isEvent,omitempty"`
	Payload interface{}      `json:"payload,omitempty"`
}

// Writer 把Envelope编码成换行分隔的JSON帧
// 写入是互斥的, 事件和应答可能来自不同的goroutine
type Writer struct {
	mu sync.Mutex
	w  *bufio.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (w *Writer) Write(env Envelope) error {
	var (
		bytes []byte
		err   error
	)
	switch {
	case env.Signal != "":
		bytes, err = json.Marshal(env.Signal)
	case env.Request != nil:
		bytes, err = json.Marshal(env.Request)
	case env.Response != nil:
		bytes, err = json.Marshal(env.Response)
	default:
		return ErrBadFrame
	}
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.w.Write(bytes); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

// Reader 从换行分隔的JSON帧还原Envelope
type Reader struct {
	scanner *bufio.Scanner
}

func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxFrameSize)
	return &Reader{scanner: scanner}
}

// Read 返回io.EOF表示对端关闭了链路
func (r *Reader) Read() (Envelope, error) {
	for {
		if !r.scanner.Scan() {
			if err := r.scanner.Err(); err != nil {
				return Envelope{}, err
			}
			return Envelope{}, io.EOF
		}
		line := r.scanner.Bytes()
		if len(trimSpace(line)) == 0 {
			continue
		}
		return Decode(line)
	}
}

func Decode(line []byte) (Envelope, error) {
	line = trimSpace(line)
	if len(line) == 0 {
		return Envelope{}, ErrBadFrame
	}
	if line[0] == '"' {
		var signal string
		if err := json.Unmarshal(line, &signal); err != nil {
			return Envelope{}, err
		}
		return NewSignal(signal), nil
	}
	if line[0] != '{' {
		return Envelope{}, ErrBadFrame
	}
	var record wireRecord
	if err := json.Unmarshal(line, &record); err != nil {
		return Envelope{}, err
	}
	if record.Method != nil {
		return Envelope{Request: &Request{
			ID:     record.ID,
			Method: *record.Method,
			Params: record.Params,
		}}, nil
	}
	return Envelope{Response: &Response{
		ID:      record.ID,
		Result:  record.Result,
		Error:   record.Error,
		IsEvent: record.IsEvent,
		Payload: record.Payload,
	}}, nil
}

func trimSpace(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\t' || b[0] == '\r' || b[0] == '\n') {
		b = b[1:]
	}
	for len(b) > 0 {
		last := b[len(b)-1]
		if last == ' ' || last == '\t' || last == '\r' || last == '\n' {
			b = b[:len(b)-1]
			continue
		}
		break
	}
	return b
}
