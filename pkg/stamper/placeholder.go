package stamper

import (
	"fmt"
	"regexp"
	"strings"
)

// placeholderRegex matches one inline expression. Expressions cannot
// contain braces, so the first closing brace ends the placeholder.
var placeholderRegex = regexp.MustCompile(`\$\{([^{}]*)\}`)

// Placeholder is one ${...} occurrence in paragraph text.
type Placeholder struct {
	// Expression is the text between the braces.
	Expression string
	// Start and End delimit the whole placeholder in the source text,
	// braces included.
	Start int
	End   int
}

// FindPlaceholders returns the inline expressions in text, in order of
// appearance.
func FindPlaceholders(text string) []Placeholder {
	matches := placeholderRegex.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	placeholders := make([]Placeholder, 0, len(matches))
	for _, m := range matches {
		placeholders = append(placeholders, Placeholder{
			Expression: text[m[2]:m[3]],
			Start:      m[0],
			End:        m[1],
		})
	}
	return placeholders
}

// HasPlaceholders reports whether text contains at least one inline
// expression.
func HasPlaceholders(text string) bool {
	return strings.Contains(text, "${") && placeholderRegex.MatchString(text)
}

// resolvePlaceholders rewrites every ${...} in the paragraph against the
// environment. In strict mode an expression that fails to parse or
// evaluate aborts the paragraph; otherwise the placeholder stays in the
// text untouched. Reports whether the paragraph changed.
func resolvePlaceholders(p *Paragraph, env *EvalEnv, strict bool) (bool, error) {
	text := p.GetText()
	if !strings.Contains(text, "${") {
		return false, nil
	}

	var out strings.Builder
	last := 0
	changed := false
	for _, ph := range FindPlaceholders(text) {
		out.WriteString(text[last:ph.Start])
		last = ph.End

		value, err := evaluatePlaceholder(ph.Expression, env)
		if err != nil {
			if strict {
				return false, fmt.Errorf("placeholder %q: %w", ph.Expression, err)
			}
			out.WriteString(text[ph.Start:ph.End])
			continue
		}
		out.WriteString(FormatValue(value))
		changed = true
	}
	out.WriteString(text[last:])

	if changed {
		p.SetText(out.String())
	}
	return changed, nil
}

func evaluatePlaceholder(expr string, env *EvalEnv) (interface{}, error) {
	node, err := ParseExpression(expr)
	if err != nil {
		return nil, err
	}
	return node.Evaluate(env)
}
