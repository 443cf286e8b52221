package vm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shlocko/fvm/lang/asm"
	"github.com/shlocko/fvm/lang/vm"
)

func run(t *testing.T, src string, opts vm.Options) string {
	t.Helper()
	prog, err := asm.Asm([]byte(src))
	require.NoError(t, err)

	var out bytes.Buffer
	if opts.Stdout == nil {
		opts.Stdout = &out
	}
	m := vm.New(prog, opts)
	require.NoError(t, m.Run())
	return out.String()
}

func TestVMAddAndPrint(t *testing.T) {
	out := run(t, "main\npshc 3\npshc 4\nadd\nprnt\n", vm.Options{})
	assert.Equal(t, "7\n", out)
}

func TestVMConditionalBranchTakesElse(t *testing.T) {
	src := "main\npshc 1\npshc 2\nlsth\njmpf skip\npshc 100\nprnt\nlabel skip\npshc 200\nprnt\n"
	out := run(t, src, vm.Options{})
	assert.Equal(t, "100\n200\n", out)
}

func TestVMConditionalBranchTakesSkip(t *testing.T) {
	src := "main\npshc 2\npshc 1\nlsth\njmpf skip\npshc 100\nprnt\nlabel skip\npshc 200\nprnt\n"
	out := run(t, src, vm.Options{})
	assert.Equal(t, "200\n", out)
}

func TestVMLoopCountdown(t *testing.T) {
	src := "main\npshc 3\nstrg n\nlabel top\npshg n\nprnt\npshg n\npshc 1\nsub\nstrg n\npshg n\npshc 0\ngrth\njmpt top\n"
	out := run(t, src, vm.Options{})
	assert.Equal(t, "3\n2\n1\n", out)
}

func TestVMFunctionCall(t *testing.T) {
	src := "func inc 1\npshl arg0\npshc 1\nadd\nendf\nmain\npshc 41\ncallf inc\nprnt\n"
	out := run(t, src, vm.Options{})
	assert.Equal(t, "42\n", out)
}

func TestVMBoxedAliasing(t *testing.T) {
	src := "main\npshc 10\nbox\nstrg b\npshg b\npshg b\npshc 99\nsetbox\nunbox\nprnt\n"
	out := run(t, src, vm.Options{})
	assert.Equal(t, "99\n", out)
}

func TestVMArrayPushLen(t *testing.T) {
	src := "main\npshc 1\npshc 2\narray 2\nstrg a\npshg a\npshc 3\narraypush\npshg a\narraylen\nprnt\n"
	out := run(t, src, vm.Options{})
	assert.Equal(t, "3\n", out)
}

func TestVMArrayGetSet(t *testing.T) {
	src := "main\npshc 1\npshc 2\npshc 3\narray 3\nstrg a\npshg a\npshc 0\npshc 99\narrayset\npshg a\npshc 0\narrayget\nprnt\n"
	out := run(t, src, vm.Options{})
	assert.Equal(t, "99\n", out)
}

func TestVMIntComparisonPrecisionBeyondFloat53Bits(t *testing.T) {
	// 9007199254740992 and 9007199254740993 are distinct int64 values that
	// round to the same float64 (2^53); comparing them must not go through
	// a float64 conversion.
	src := "main\npshc 9007199254740992\npshc 9007199254740993\nlsth\nprnt\n"
	out := run(t, src, vm.Options{})
	assert.Equal(t, "true\n", out)
}

func TestVMArrayGetOutOfRangeFails(t *testing.T) {
	prog, err := asm.Asm([]byte("main\npshc 1\narray 1\npshc 5\narrayget\nprnt\n"))
	require.NoError(t, err)
	m := vm.New(prog, vm.Options{})
	err = m.Run()
	var rangeErr *vm.IndexOutsideRangeOfArrayError
	require.ErrorAs(t, err, &rangeErr)
}

func TestVMArrayPopEmptyFails(t *testing.T) {
	prog, err := asm.Asm([]byte("main\narray 0\narraypop\n"))
	require.NoError(t, err)
	m := vm.New(prog, vm.Options{})
	err = m.Run()
	var popErr *vm.CouldNotPopArrayError
	require.ErrorAs(t, err, &popErr)
}

func TestVMDivisionByZeroFails(t *testing.T) {
	prog, err := asm.Asm([]byte("main\npshc 1\npshc 0\ndiv\n"))
	require.NoError(t, err)
	m := vm.New(prog, vm.Options{})
	err = m.Run()
	var divErr *vm.DivisionByZeroError
	require.ErrorAs(t, err, &divErr)
}

func TestVMDivIntFloorsFloatDivision(t *testing.T) {
	out := run(t, "main\npshc -7.0\npshc 2.0\ndivi\nprnt\n", vm.Options{})
	assert.Equal(t, "-4\n", out)
}

func TestVMMismatchedOperandTypesFails(t *testing.T) {
	prog, err := asm.Asm([]byte("main\npshc 1\npshc 2.0\nadd\n"))
	require.NoError(t, err)
	m := vm.New(prog, vm.Options{})
	err = m.Run()
	var typeErr *vm.InvalidOperandTypeError
	require.ErrorAs(t, err, &typeErr)
}

func TestVMPopEmptyStackFails(t *testing.T) {
	prog, err := asm.Asm([]byte("main\npop\n"))
	require.NoError(t, err)
	m := vm.New(prog, vm.Options{})
	err = m.Run()
	var underErr *vm.StackUnderflowError
	require.ErrorAs(t, err, &underErr)
}

func TestVMMaxStepsExceeded(t *testing.T) {
	src := "main\nlabel top\njump top\n"
	prog, err := asm.Asm([]byte(src))
	require.NoError(t, err)
	m := vm.New(prog, vm.Options{MaxSteps: 100})
	err = m.Run()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "step budget"))
}

func TestVMGlobalsDenseAppendAndOverwrite(t *testing.T) {
	src := "main\npshc 1\nstrg g\npshc 2\nstrg g\npshg g\nprnt\n"
	out := run(t, src, vm.Options{})
	assert.Equal(t, "2\n", out)
}

func TestVMRecursiveFunctionCall(t *testing.T) {
	src := "func fact 1\npshl arg0\npshc 1\nlseq\njmpf recurse\npshc 1\nret\nlabel recurse\npshl arg0\npshl arg0\npshc 1\nsub\ncallf fact\nmul\nret\nendf\nmain\npshc 5\ncallf fact\nprnt\n"
	out := run(t, src, vm.Options{})
	assert.Equal(t, "120\n", out)
}
