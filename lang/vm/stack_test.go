package vm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shlocko/fvm/lang/value"
	"github.com/shlocko/fvm/lang/vm"
)

func TestStackPushPop(t *testing.T) {
	s := vm.NewStack(0, 0)
	require.NoError(t, s.Push(value.NewInt(1)))
	require.NoError(t, s.Push(value.NewInt(2)))
	assert.Equal(t, 2, s.Len())

	v, err := s.Pop()
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.AsInt())
	assert.Equal(t, 1, s.Len())
}

func TestStackPopEmptyFails(t *testing.T) {
	s := vm.NewStack(0, 0)
	_, err := s.Pop()
	var underErr *vm.StackUnderflowError
	require.ErrorAs(t, err, &underErr)
}

func TestStackPushOverflowFails(t *testing.T) {
	s := vm.NewStack(1, 0)
	require.NoError(t, s.Push(value.NewInt(1)))
	err := s.Push(value.NewInt(2))
	var overErr *vm.StackOverflowError
	require.ErrorAs(t, err, &overErr)
}

func TestStackPushFramePadsLocalsWithNull(t *testing.T) {
	s := vm.NewStack(0, 0)
	require.NoError(t, s.Push(value.NewInt(99))) // unrelated value below the frame
	require.NoError(t, s.PushFrame([]value.Value{value.NewInt(1), value.NewInt(2)}, 4, 123))

	v0, err := s.GetLocal(0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v0.AsInt())

	v1, err := s.GetLocal(1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v1.AsInt())

	v2, err := s.GetLocal(2)
	require.NoError(t, err)
	assert.True(t, v2.IsNull())

	v3, err := s.GetLocal(3)
	require.NoError(t, err)
	assert.True(t, v3.IsNull())
}

func TestStackSetLocalOutOfRangeFails(t *testing.T) {
	s := vm.NewStack(0, 0)
	require.NoError(t, s.PushFrame(nil, 2, 0))
	err := s.SetLocal(5, value.NewInt(1))
	var idxErr *vm.InvalidLocalIndexError
	require.ErrorAs(t, err, &idxErr)
	assert.Equal(t, 5, idxErr.Index)
}

func TestStackLocalAccessOutsideFrameFails(t *testing.T) {
	s := vm.NewStack(0, 0)
	_, err := s.GetLocal(0)
	var notInFrame *vm.NotInFrameError
	require.ErrorAs(t, err, &notInFrame)
}

func TestStackPopFrameRestoresBaseAndReturnAddress(t *testing.T) {
	s := vm.NewStack(0, 0)
	require.NoError(t, s.Push(value.NewInt(7)))
	require.NoError(t, s.PushFrame([]value.Value{value.NewInt(1)}, 1, 42))
	require.NoError(t, s.Push(value.NewInt(100))) // a temporary above the locals window

	frame, err := s.PopFrame()
	require.NoError(t, err)
	assert.Equal(t, uint32(42), frame.ReturnAddress())
	assert.Equal(t, 1, s.Len()) // only the pre-frame value(7) remains

	v, err := s.Pop()
	require.NoError(t, err)
	assert.Equal(t, int64(7), v.AsInt())
}

func TestStackPopFrameWithoutFrameFails(t *testing.T) {
	s := vm.NewStack(0, 0)
	_, err := s.PopFrame()
	var notInFrame *vm.NotInFrameError
	require.ErrorAs(t, err, &notInFrame)
}

func TestStackCallStackOverflow(t *testing.T) {
	s := vm.NewStack(0, 2)
	require.NoError(t, s.PushFrame(nil, 0, 0))
	require.NoError(t, s.PushFrame(nil, 0, 0))
	err := s.PushFrame(nil, 0, 0)
	var callErr *vm.CallStackOverflowError
	require.ErrorAs(t, err, &callErr)
}

func TestStackNestedFramesIsolateLocals(t *testing.T) {
	s := vm.NewStack(0, 0)
	require.NoError(t, s.PushFrame([]value.Value{value.NewInt(1)}, 1, 0))
	require.NoError(t, s.PushFrame([]value.Value{value.NewInt(2)}, 1, 0))

	inner, err := s.GetLocal(0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), inner.AsInt())

	_, err = s.PopFrame()
	require.NoError(t, err)

	outer, err := s.GetLocal(0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), outer.AsInt())
}
