package asm

import (
	"strconv"
	"strings"

	"github.com/shlocko/fvm/lang/value"
)

// parseLiteral parses a single token under the text-assembler literal
// grammar: string (quoted), true/false, float (contains '.'), integer
// (otherwise numeric), identifier (starts with an alphabetic character), in
// that order.
func parseLiteral(tok string, line int) (value.Value, error) {
	if tok == "" {
		return value.Value{}, &InvalidLiteralError{Message: "empty literal", Line: line}
	}

	if q := tok[0]; q == '"' || q == '\'' {
		if len(tok) < 2 || tok[len(tok)-1] != q {
			return value.Value{}, &InvalidLiteralError{Message: "mismatched quotes in " + tok, Line: line}
		}
		return value.NewString(tok[1 : len(tok)-1]), nil
	}

	if tok == "true" {
		return value.NewBool(true), nil
	}
	if tok == "false" {
		return value.NewBool(false), nil
	}

	if strings.Contains(tok, ".") {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return value.Value{}, &InvalidLiteralError{Message: "invalid float " + tok, Line: line}
		}
		return value.NewFloat(f), nil
	}

	if isNumericStart(tok) {
		i, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return value.Value{}, &InvalidLiteralError{Message: "invalid integer " + tok, Line: line}
		}
		return value.NewInt(i), nil
	}

	if isAlpha(rune(tok[0])) {
		return value.NewIdent(tok), nil
	}

	return value.Value{}, &InvalidLiteralError{Message: "unrecognized literal " + tok, Line: line}
}

func isNumericStart(tok string) bool {
	c := tok[0]
	if c == '-' || c == '+' {
		return len(tok) > 1 && isDigit(rune(tok[1]))
	}
	return isDigit(rune(c))
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// validIdentifier reports whether tok satisfies the identifier grammar used
// for global/local/function names: starts with an alphabetic character.
func validIdentifier(tok string) bool {
	return tok != "" && isAlpha(rune(tok[0]))
}

// constKey produces a dedup key for the constant pool: full structural
// equality, scoped by tag so that e.g. Int(1) and Float(1) never collide.
func constKey(v value.Value) string {
	return v.Tag().String() + ":" + v.String()
}
