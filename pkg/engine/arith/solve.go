package arith

import (
	"fmt"
)

const (
	noExpressionReply = "I couldn't identify a mathematical expression to solve. Could you please rephrase your question?"
	failedReply       = "I encountered an error while solving this mathematical problem. Please check your expression and try again."
)

// CapabilityListing is returned for calculation requests that carry no
// expression.
const CapabilityListing = `I can help you with arithmetic calculations including:
- Addition, subtraction, multiplication and division
- Exponents with ^ (for example 2 ^ 10)
- Parentheses and negative numbers
- Decimal numbers

Please provide the specific expression you'd like me to solve.`

// Solve extracts and evaluates the expression in text and renders the reply.
// The returned error is the evaluation failure, if any; the reply already
// explains it to the user.
func Solve(text string) (string, error) {
	expr, ok := ExtractExpression(text)
	if !ok {
		return noExpressionReply, nil
	}

	result, err := Evaluate(expr)
	if err != nil {
		return failedReply, err
	}

	formatted := FormatNumber(result)
	return fmt.Sprintf(`**Mathematical Solution:**

**Expression:** `+"`%s`"+`

**Result:** `+"`%s`"+`

**Step-by-step breakdown:**
%s`, expr, formatted, steps(expr, formatted)), nil
}

// steps is a fixed outline of the evaluation method, not a derivation of
// this particular expression.
func steps(expr, result string) string {
	return fmt.Sprintf(`1. Parse expression: `+"`%s`"+`
2. Apply order of operations (parentheses, exponents, multiplication and division, addition and subtraction)
3. Evaluate: `+"`%s`", expr, result)
}
