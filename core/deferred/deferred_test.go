package deferred

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nyan233/workerpool/core/protocol/werror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettleOnce(t *testing.T) {
	d := New()
	d.Resolve(1)
	d.Resolve(2)
	d.Reject(errors.New("late"))
	v, err := d.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, Resolved, d.State())
}

func TestThenChain(t *testing.T) {
	t.Run("SuccessChain", func(t *testing.T) {
		d := New()
		child := d.Then(func(v interface{}) (interface{}, error) {
			return v.(int) + 1, nil
		}, nil).Then(func(v interface{}) (interface{}, error) {
			return v.(int) * 10, nil
		}, nil)
		d.Resolve(4)
		v, err := child.Await(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 50, v)
	})
	t.Run("FailurePassThrough", func(t *testing.T) {
		d := New()
		child := d.Then(func(v interface{}) (interface{}, error) {
			t.Fatal("success handler must not run")
			return nil, nil
		}, nil)
		boom := errors.New("boom")
		d.Reject(boom)
		_, err := child.Await(context.Background())
		assert.Equal(t, boom, err)
	})
	t.Run("CatchRecovers", func(t *testing.T) {
		d := New()
		child := d.Catch(func(v interface{}) (interface{}, error) {
			return "recovered", nil
		})
		d.Reject(errors.New("boom"))
		v, err := child.Await(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "recovered", v)
	})
	t.Run("HandlerErrorRejectsChild", func(t *testing.T) {
		d := New()
		boom := errors.New("boom")
		child := d.Then(func(v interface{}) (interface{}, error) {
			return nil, boom
		}, nil)
		d.Resolve(nil)
		_, err := child.Await(context.Background())
		assert.Equal(t, boom, err)
	})
	t.Run("AdoptInnerDeferred", func(t *testing.T) {
		d := New()
		inner := New()
		child := d.Then(func(v interface{}) (interface{}, error) {
			return inner, nil
		}, nil)
		d.Resolve(nil)
		assert.Equal(t, Pending, child.State())
		inner.Resolve("inner-value")
		v, err := child.Await(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "inner-value", v)
	})
	t.Run("Always", func(t *testing.T) {
		var calls int
		d := New()
		d.Always(func(v interface{}) (interface{}, error) {
			calls++
			return nil, nil
		})
		d.Reject(errors.New("boom"))
		assert.Equal(t, 1, calls)
	})
}

func TestCallbackOrdering(t *testing.T) {
	d := New()
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		d.Then(func(v interface{}) (interface{}, error) {
			order = append(order, i)
			return nil, nil
		}, nil)
	}
	d.Resolve(nil)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
	// settle之后注册, 同步执行
	ran := false
	d.Then(func(v interface{}) (interface{}, error) {
		ran = true
		return nil, nil
	}, nil)
	assert.True(t, ran)
}

func TestCancel(t *testing.T) {
	t.Run("RejectsRoot", func(t *testing.T) {
		root := New()
		child := root.Then(nil, nil).Then(nil, nil)
		child.Cancel()
		_, err := root.Await(context.Background())
		assert.True(t, werror.CodeIs(err, werror.Cancellation))
		_, err = child.Await(context.Background())
		assert.True(t, werror.CodeIs(err, werror.Cancellation))
	})
	t.Run("NoOpAfterSettle", func(t *testing.T) {
		root := New()
		child := root.Then(nil, nil)
		root.Resolve("done")
		child.Cancel()
		v, err := root.Await(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "done", v)
	})
}

func TestTimeout(t *testing.T) {
	t.Run("Fires", func(t *testing.T) {
		root := New()
		child := root.Then(nil, nil).Timeout(20 * time.Millisecond)
		_, err := child.Await(context.Background())
		assert.True(t, werror.CodeIs(err, werror.Timeout))
		assert.Equal(t, Rejected, root.State())
	})
	t.Run("ClearedOnSettle", func(t *testing.T) {
		root := New()
		root.Timeout(30 * time.Millisecond)
		root.Resolve("fast")
		time.Sleep(60 * time.Millisecond)
		v, err := root.Await(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "fast", v)
	})
}

func TestAwaitContext(t *testing.T) {
	d := New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := d.Await(ctx)
	assert.Equal(t, context.DeadlineExceeded, err)
	// ctx到期不取消deferred本身
	assert.Equal(t, Pending, d.State())
}

func TestHandlerPanic(t *testing.T) {
	d := New()
	child := d.Then(func(v interface{}) (interface{}, error) {
		panic("kaboom")
	}, nil)
	d.Resolve(nil)
	_, err := child.Await(context.Background())
	assert.True(t, werror.CodeIs(err, werror.UserError))
}
