// Package arith detects arithmetic questions and evaluates simple infix
// expressions with an explicit tokenizer and recursive-descent parser.
package arith

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var queryKeywords = []string{"calculate", "solve", "compute", "=", "+", "-", "*", "/", "^"}

var expressionRun = regexp.MustCompile(`[0-9+\-*/^().\s]+`)

// IsArithmeticQuery reports whether text holds a digit and at least one
// arithmetic keyword or operator.
func IsArithmeticQuery(text string) bool {
	if !strings.ContainsFunc(text, isDigit) {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range queryKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ExtractExpression returns the first run of expression characters that
// contains a digit, trimmed.
func ExtractExpression(text string) (string, bool) {
	for _, run := range expressionRun.FindAllString(text, -1) {
		run = strings.TrimSpace(run)
		if strings.ContainsFunc(run, isDigit) {
			return run, true
		}
	}
	return "", false
}

// Sanitize drops every character outside digits, + - * / ^ . ( ) and
// ASCII whitespace.
func Sanitize(expr string) string {
	return strings.Map(func(r rune) rune {
		if isDigit(r) || isSpace(r) || strings.ContainsRune("+-*/^.()", r) {
			return r
		}
		return -1
	}, expr)
}

// FormatNumber renders v in its shortest decimal form, switching to
// exponent notation for very large or very small magnitudes.
func FormatNumber(v float64) string {
	if v == 0 {
		return "0"
	}
	abs := math.Abs(v)
	if abs >= 1e21 || abs < 1e-6 {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// isSpace matches the \s class used by expressionRun.
func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}
