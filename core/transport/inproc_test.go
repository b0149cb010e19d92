package transport

import (
	"testing"
	"time"

	"github.com/nyan233/workerpool/core/protocol/message"
	"github.com/nyan233/workerpool/core/runtime"
	"github.com/nyan233/workerpool/pkg/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type exitRecord struct {
	code int
	err  error
}

func startInproc(t *testing.T, methods map[string]runtime.Method) (*Inproc, chan message.Envelope, chan exitRecord) {
	t.Helper()
	msgs := make(chan message.Envelope, 16)
	exits := make(chan exitRecord, 1)
	tr := NewInproc(methods, logger.NilLogger{})
	err := tr.Start(Events{
		OnMessage: func(env message.Envelope) { msgs <- env },
		OnExit:    func(code int, err error) { exits <- exitRecord{code: code, err: err} },
	})
	require.NoError(t, err)
	return tr, msgs, exits
}

func next(t *testing.T, msgs chan message.Envelope) message.Envelope {
	t.Helper()
	select {
	case env := <-msgs:
		return env
	case <-time.After(time.Second):
		t.Fatal("no frame within 1s")
		return message.Envelope{}
	}
}

func TestInprocRoundTrip(t *testing.T) {
	tr, msgs, _ := startInproc(t, map[string]runtime.Method{
		"echo": func(params []interface{}) (interface{}, error) {
			return params[0], nil
		},
	})
	assert.Equal(t, message.ReadySignal, next(t, msgs).Signal)
	require.NoError(t, tr.Send(message.NewRequest(1, "echo", []interface{}{"hello"})))
	env := next(t, msgs)
	require.NotNil(t, env.Response)
	assert.Equal(t, "hello", env.Response.Result)
}

func TestInprocTerminate(t *testing.T) {
	tr, msgs, exits := startInproc(t, nil)
	next(t, msgs) // ready
	require.NoError(t, tr.Send(message.NewSignal(message.TerminateSentinel)))
	select {
	case rec := <-exits:
		assert.Equal(t, 0, rec.code)
		assert.NoError(t, rec.err)
	case <-time.After(time.Second):
		t.Fatal("no exit within 1s")
	}
	assert.Equal(t, ErrClosed, tr.Send(message.NewRequest(1, "x", nil)))
}

func TestInprocKill(t *testing.T) {
	tr, msgs, exits := startInproc(t, nil)
	next(t, msgs) // ready
	require.NoError(t, tr.Kill())
	select {
	case rec := <-exits:
		assert.Equal(t, -1, rec.code)
		assert.Equal(t, ErrKilled, rec.err)
	case <-time.After(time.Second):
		t.Fatal("no exit within 1s")
	}
}

func TestInprocTransferByReference(t *testing.T) {
	buf := []byte{1, 2, 3}
	tr, msgs, _ := startInproc(t, map[string]runtime.Method{
		"give": func(params []interface{}) (interface{}, error) {
			return message.NewTransfer("moved", buf), nil
		},
	})
	next(t, msgs) // ready
	require.NoError(t, tr.Send(message.NewRequest(1, "give", nil)))
	env := next(t, msgs)
	require.Equal(t, 1, len(env.Transferables))
	// 同一底层数组, 移动而非复制
	env.Transferables[0][0] = 9
	assert.Equal(t, byte(9), buf[0])
}
