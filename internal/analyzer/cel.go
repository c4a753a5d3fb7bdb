package analyzer

import (
	"sync"

	"github.com/google/cel-go/cel"
)

// RuleGate is an optional CEL expression (SPEC_FULL.md §1.2, adapted from
// the teacher's pkg/prg policy rule graph) that further gates whether a
// detector's hit should count toward the category's combined result. It is
// evaluated over a small variable set derived from the Detection and the
// ToolCallContext: `detection.category`, `detection.severity`,
// `detection.confidence`, `toolCall.toolName`.
type RuleGate struct {
	expr string
	once sync.Once
	prg  cel.Program
	err  error
}

// NewRuleGate returns a gate for expr. Compilation is deferred to the first
// Evaluate call so a rule with no gate configured (expr == "") never touches
// cel-go at all.
func NewRuleGate(expr string) *RuleGate {
	return &RuleGate{expr: expr}
}

// Enabled reports whether this gate has a non-empty expression configured.
func (g *RuleGate) Enabled() bool { return g.expr != "" }

func (g *RuleGate) compile() {
	g.once.Do(func() {
		env, err := cel.NewEnv(
			cel.Variable("category", cel.StringType),
			cel.Variable("severity", cel.StringType),
			cel.Variable("confidence", cel.DoubleType),
			cel.Variable("toolName", cel.StringType),
		)
		if err != nil {
			g.err = err
			return
		}
		ast, issues := env.Compile(g.expr)
		if issues != nil && issues.Err() != nil {
			g.err = issues.Err()
			return
		}
		prg, err := env.Program(ast)
		if err != nil {
			g.err = err
			return
		}
		g.prg = prg
	})
}

// Evaluate runs the gate against one candidate detection. A compile or
// evaluation failure is treated as "gate passes" (fail-open for a
// configuration problem with the expression itself; a malformed expression
// is a ConfigurationError surfaced at load time, not a per-request fault).
func (g *RuleGate) Evaluate(category, severity string, confidence float64, toolName string) bool {
	if !g.Enabled() {
		return true
	}
	g.compile()
	if g.err != nil || g.prg == nil {
		return true
	}
	out, _, err := g.prg.Eval(map[string]any{
		"category":   category,
		"severity":   severity,
		"confidence": confidence,
		"toolName":   toolName,
	})
	if err != nil {
		return true
	}
	b, ok := out.Value().(bool)
	if !ok {
		return true
	}
	return b
}
