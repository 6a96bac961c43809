package taxonomy

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
)

// matcher recognises text belonging to a type.
type matcher interface {
	match(text string) bool
}

// nameMatcher accepts the type name itself, ignoring case.
type nameMatcher string

func (m nameMatcher) match(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), string(m))
}

// patternMatcher accepts text fully matched by a regular expression.
type patternMatcher struct {
	re *regexp.Regexp
}

func newPatternMatcher(pattern string) (*patternMatcher, error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	return &patternMatcher{re: re}, nil
}

func (m *patternMatcher) match(text string) bool {
	return m.re.MatchString(text)
}

var celEnv = sync.OnceValues(func() (*cel.Env, error) {
	return cel.NewEnv(cel.Variable("text", cel.StringType))
})

// exprMatcher accepts text for which a CEL program evaluates to true.
type exprMatcher struct {
	expr string
	prg  cel.Program
}

func newExprMatcher(expr string) (*exprMatcher, error) {
	env, err := celEnv()
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile expression %q: %w", expr, iss.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build program for %q: %w", expr, err)
	}

	// Probe once so non-boolean expressions are rejected at build time.
	out, _, err := prg.Eval(map[string]any{"text": ""})
	if err == nil {
		if _, ok := out.Value().(bool); !ok {
			return nil, fmt.Errorf("expression %q must evaluate to bool, got %T", expr, out.Value())
		}
	}

	return &exprMatcher{expr: expr, prg: prg}, nil
}

func (m *exprMatcher) match(text string) bool {
	out, _, err := m.prg.Eval(map[string]any{"text": text})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
