package werror

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStdError(t *testing.T) {
	t.Run("CodeString", func(t *testing.T) {
		for _, code := range []Code{Success, UnknownMethod, UserError, WorkerTerminated,
			Cancellation, Timeout, PoolTerminated, ConfigurationError, TransportError, Code(1)} {
			assert.NotEqual(t, code.String(), "")
			var codeStr string
			err := json.Unmarshal([]byte(code.String()), &codeStr)
			if err != nil {
				t.Fatal(err)
			}
		}
	})
	t.Run("RoundTrip", func(t *testing.T) {
		genErr := NewStdError(UnknownMethod, "method no register", "nope")
		bytes, err := json.Marshal(genErr)
		if err != nil {
			t.Fatal(err)
		}
		var back StdError
		if err := json.Unmarshal(bytes, &back); err != nil {
			t.Fatal(err)
		}
		assert.Equal(t, genErr.Code(), back.Code())
		assert.Equal(t, genErr.Message(), back.Message())
		assert.Equal(t, []interface{}{"nope"}, back.Mores())
	})
	t.Run("NilMore", func(t *testing.T) {
		nilMore, _ := json.Marshal([]string(nil))
		genErr := NewStdError(UserError, "boom")
		err := genErr.UnmarshalMores(nilMore)
		if err != nil {
			t.Fatal(err)
		}
		t.Log(genErr)
	})
	t.Run("StdErrorApi", func(t *testing.T) {
		genErr := NewStdError(UserError, "boom")
		genErr.AppendMore("context-1")
		genErr.AppendMore("context-2")
		assert.Equal(t, 2, len(genErr.Mores()))
		assert.Equal(t, int(UserError), genErr.Code())
	})
}

func TestAsStdError(t *testing.T) {
	t.Run("PlainError", func(t *testing.T) {
		std := AsStdError(errors.New("user boom"))
		assert.Equal(t, int(UserError), std.Code())
		assert.Equal(t, "user boom", std.Message())
	})
	t.Run("Desc", func(t *testing.T) {
		std := AsStdError(ErrWorkerTerminated)
		assert.Equal(t, int(WorkerTerminated), std.Code())
	})
	t.Run("Nil", func(t *testing.T) {
		assert.Nil(t, AsStdError(nil))
	})
}

func TestCodeIs(t *testing.T) {
	assert.True(t, CodeIs(ErrCancellation, Cancellation))
	assert.False(t, CodeIs(ErrCancellation, Timeout))
	assert.False(t, CodeIs(errors.New("plain"), Cancellation))
}

func TestStackTrace(t *testing.T) {
	eh := NewStackTrace(16)
	desc := eh.NewErrorDesc(UserError, "boom")
	assert.NotEqual(t, 0, len(desc.Stack()))
	wrapped := eh.WrapErrorDesc(desc, "more")
	assert.Equal(t, desc.Code(), wrapped.Code())
	assert.NotEqual(t, 0, len(wrapped.Stack()))
}
