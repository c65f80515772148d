package rule

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

type Rules []Rule

// Rule is a compiled allow-list expression over a source URL. Expressions
// see the lower-cased "scheme" and "host" of the requested source, e.g.
// `host endsWith ".example.com"`.
type Rule struct {
	program *vm.Program
}

type Env struct {
	Scheme string `expr:"scheme"`
	Host   string `expr:"host"`
}

func New(expression string) (Rule, error) {
	program, err := expr.Compile(expression, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return Rule{}, fmt.Errorf("failed to compile source rule expression %q: %w",
			expression, err)
	}

	return Rule{
		program: program,
	}, nil
}

// Allows reports whether any rule matches the source URL. An empty rule
// set allows every source.
func (rules Rules) Allows(source *url.URL) bool {
	if len(rules) == 0 {
		return true
	}

	env := Env{
		Scheme: strings.ToLower(source.Scheme),
		Host:   strings.ToLower(source.Hostname()),
	}

	for _, rule := range rules {
		result, err := expr.Run(rule.program, env)
		if err != nil {
			continue
		}

		if allowed, ok := result.(bool); ok && allowed {
			return true
		}
	}

	return false
}
