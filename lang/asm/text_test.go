package asm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shlocko/fvm/lang/asm"
	"github.com/shlocko/fvm/lang/value"
)

func TestAsmAddAndPrint(t *testing.T) {
	prog, err := asm.Asm([]byte("main\npshc 3\npshc 4\nadd\nprnt\n"))
	require.NoError(t, err)
	require.Len(t, prog.Consts, 2)
	assert.Equal(t, int64(3), prog.Consts[0].AsInt())
	assert.Equal(t, int64(4), prog.Consts[1].AsInt())
}

func TestAsmConstPoolDedup(t *testing.T) {
	prog, err := asm.Asm([]byte("main\npshc 3\npshc 3\nadd\n"))
	require.NoError(t, err)
	assert.Len(t, prog.Consts, 1, "repeated literal should occupy one constant slot")
}

func TestAsmPshcBareIdentifierFails(t *testing.T) {
	_, err := asm.Asm([]byte("main\npshc foo\n"))
	var litErr *asm.InvalidLiteralError
	require.ErrorAs(t, err, &litErr)
}

func TestAsmUnknownMnemonic(t *testing.T) {
	_, err := asm.Asm([]byte("main\nbogus\n"))
	var opErr *asm.InvalidOpcodeError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "bogus", opErr.Mnemonic)
}

func TestAsmPshgBeforeStrgFails(t *testing.T) {
	_, err := asm.Asm([]byte("main\npshg x\n"))
	var idErr *asm.InvalidIdentifierError
	require.ErrorAs(t, err, &idErr)
}

func TestAsmStrgThenPshgResolves(t *testing.T) {
	prog, err := asm.Asm([]byte("main\npshc 3\nstrg n\npshg n\nprnt\n"))
	require.NoError(t, err)
	// main's NoOp, pshc(3), strg(n), pshg(n), prnt: 1+3+3+3+1 bytes.
	assert.Len(t, prog.Code, 1+3+3+3+1)
}

func TestAsmPshlOutsideFunctionFails(t *testing.T) {
	_, err := asm.Asm([]byte("main\npshl arg0\n"))
	var accErr *asm.AccessLocalOutsideFunctionError
	require.ErrorAs(t, err, &accErr)
}

func TestAsmFunctionCallWithLocals(t *testing.T) {
	src := "func inc 1\npshl arg0\npshc 1\nadd\nendf\nmain\npshc 41\ncallf inc\nprnt\n"
	prog, err := asm.Asm([]byte(src))
	require.NoError(t, err)
	require.Len(t, prog.Functions, 1)
	assert.Equal(t, uint8(1), prog.Functions[0].Arity)
	assert.Equal(t, uint8(1), prog.Functions[0].Locals)
}

func TestAsmNestedFuncFails(t *testing.T) {
	_, err := asm.Asm([]byte("func a 0\nfunc b 0\n"))
	var locErr *asm.InvalidFunctionLocationError
	require.ErrorAs(t, err, &locErr)
}

func TestAsmEndfOutsideFunctionFails(t *testing.T) {
	_, err := asm.Asm([]byte("main\nendf\n"))
	var endErr *asm.InvalidFunctionEndError
	require.ErrorAs(t, err, &endErr)
}

func TestAsmUnclosedFunctionFails(t *testing.T) {
	_, err := asm.Asm([]byte("func a 0\npshc 1\n"))
	var eofErr *asm.UnexpectedEOFError
	require.ErrorAs(t, err, &eofErr)
}

func TestAsmCallUndefinedFunctionFails(t *testing.T) {
	_, err := asm.Asm([]byte("main\ncallf nope\n"))
	var callErr *asm.InvalidFunctionCallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, "nope", callErr.Name)
}

func TestAsmJumpForwardReference(t *testing.T) {
	src := "main\npshc 1\npshc 2\nlsth\njmpf skip\npshc 100\nprnt\nlabel skip\npshc 200\nprnt\n"
	prog, err := asm.Asm([]byte(src))
	require.NoError(t, err)
	assert.NotEmpty(t, prog.Code)
}

func TestAsmUnresolvedJumpTargetFails(t *testing.T) {
	_, err := asm.Asm([]byte("main\njump nowhere\n"))
	var jumpErr *asm.InvalidJumpTargetError
	require.ErrorAs(t, err, &jumpErr)
	assert.Equal(t, "nowhere", jumpErr.Name)
}

func TestAsmBoxedAliasing(t *testing.T) {
	src := "main\npshc 10\nbox\nstrg b\npshg b\npshg b\npshc 99\nsetbox\nunbox\nprnt\n"
	prog, err := asm.Asm([]byte(src))
	require.NoError(t, err)
	assert.NotEmpty(t, prog.Code)
}

func TestAsmArrayPushLen(t *testing.T) {
	src := "main\npshc 1\npshc 2\narray 2\nstrg a\npshg a\npshc 3\narraypush\npshg a\narraylen\nprnt\n"
	prog, err := asm.Asm([]byte(src))
	require.NoError(t, err)
	assert.NotEmpty(t, prog.Code)
}

func TestAsmCommentsAndBlankLinesIgnored(t *testing.T) {
	prog, err := asm.Asm([]byte("# a comment\n\nmain\n; also a comment\npshc 1\nprnt\n"))
	require.NoError(t, err)
	assert.Len(t, prog.Consts, 1)
}

func TestAsmFloatLiteral(t *testing.T) {
	prog, err := asm.Asm([]byte("main\npshc 3.5\nprnt\n"))
	require.NoError(t, err)
	require.Len(t, prog.Consts, 1)
	assert.Equal(t, value.Float, prog.Consts[0].Tag())
	assert.InDelta(t, 3.5, prog.Consts[0].AsFloat(), 0)
}

func TestAsmStringLiteral(t *testing.T) {
	prog, err := asm.Asm([]byte(`main
pshc "hello world"
prnt
`))
	require.NoError(t, err)
	require.Len(t, prog.Consts, 1)
	assert.Equal(t, "hello world", prog.Consts[0].AsString())
}

func TestAsmBoolLiteral(t *testing.T) {
	prog, err := asm.Asm([]byte("main\npshc true\nprnt\n"))
	require.NoError(t, err)
	assert.True(t, prog.Consts[0].AsBool())
}
