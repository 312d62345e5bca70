package eval

import (
	"fmt"
	"strings"
	"unicode"
)

// Validate rejects conditions outside the guard sandbox: plain comparisons and
// boolean logic over variables and literals. String literal contents are not
// inspected, so 'track-1' is fine while track-1 is not.
func Validate(cond string) error {
	cond = strings.TrimSpace(cond)
	if cond == "" {
		return nil
	}

	code, err := stripStringLiterals(cond)
	if err != nil {
		return err
	}

	illegalChars := []rune{'{', '}', '[', ']', ';', ':', '?', '@', '#', '$', '\\', '`'}
	for _, ch := range illegalChars {
		if strings.ContainsRune(code, ch) {
			return fmt.Errorf("illegal character %q", ch)
		}
	}

	if strings.Contains(code, ".") {
		return fmt.Errorf("member access is not allowed")
	}

	illegalOps := []string{"+", "-", "*", "/", "%", "|>"}
	for _, op := range illegalOps {
		if strings.Contains(code, op) {
			return fmt.Errorf("arithmetic operator %q is not allowed", op)
		}
	}

	for i := 0; i < len(code); i++ {
		if code[i] != '(' {
			continue
		}
		j := i - 1
		for j >= 0 && unicode.IsSpace(rune(code[j])) {
			j--
		}
		if j < 0 || !(unicode.IsLetter(rune(code[j])) || unicode.IsDigit(rune(code[j])) || code[j] == '_') {
			continue
		}
		k := j
		for k >= 0 && (unicode.IsLetter(rune(code[k])) || unicode.IsDigit(rune(code[k])) || code[k] == '_') {
			k--
		}
		ident := code[k+1 : j+1]
		if isKeyword(ident) {
			continue
		}
		return fmt.Errorf("function calls are not allowed (found %q(...))", ident)
	}

	return nil
}

// stripStringLiterals replaces the body of every quoted literal with x so the
// checks above only look at code.
func stripStringLiterals(cond string) (string, error) {
	var b strings.Builder
	var quote rune
	escape := false

	for _, r := range cond {
		switch {
		case quote == 0:
			if r == '"' || r == '\'' {
				quote = r
			}
			b.WriteRune(r)
		case escape:
			escape = false
			b.WriteRune('x')
		case r == '\\':
			escape = true
			b.WriteRune('x')
		case r == quote:
			quote = 0
			b.WriteRune(r)
		default:
			b.WriteRune('x')
		}
	}

	if quote != 0 {
		return "", fmt.Errorf("unterminated string literal")
	}
	return b.String(), nil
}

func isKeyword(ident string) bool {
	switch ident {
	case "and", "or", "not", "in":
		return true
	}
	return false
}
