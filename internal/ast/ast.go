// Package ast holds the in-memory representation of a parsed rule document:
// rules, their condition groups, and their actions. Conditions and actions
// are tagged sums (an interface plus a marker method per variant) in the
// same shape the rest of the rule-compiler corpus uses for polymorphic
// AST nodes, so every analyzer and emitter switch is an exhaustive type
// switch rather than a runtime type assertion chain.
package ast

import "fmt"

// Location is the source file and line a rule, condition, or action came
// from. Line numbers point at the line of the enclosing mapping key, per
// the rule document grammar.
type Location struct {
	File string
	Line int
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// CompareOp is one of the six scalar comparison operators a Comparison
// condition may use.
type CompareOp string

const (
	OpLT  CompareOp = "<"
	OpLTE CompareOp = "<="
	OpGT  CompareOp = ">"
	OpGTE CompareOp = ">="
	OpEQ  CompareOp = "=="
	OpNEQ CompareOp = "!="
)

// Condition is the tagged-sum interface implemented by Comparison,
// Expression, and ThresholdOverTime.
type Condition interface {
	conditionNode()
}

// Comparison checks a single sensor against a numeric literal.
type Comparison struct {
	Sensor  string
	Op      CompareOp
	Literal float64
}

func (*Comparison) conditionNode() {}

// Expression is a free-form arithmetic/logical expression string. Its
// contents are never parsed by the compiler beyond identifier extraction
// (see internal/expr); the compiler treats it as an opaque, emitter-
// rewritten string.
type Expression struct {
	Source string
}

func (*Expression) conditionNode() {}

// ThresholdOverTime is true when a sensor has held at or above a
// threshold for at least the given duration of recent samples.
type ThresholdOverTime struct {
	Sensor         string
	Threshold      float64
	DurationMillis int64
}

func (*ThresholdOverTime) conditionNode() {}

// ConditionGroup is satisfied when every member of All is satisfied AND
// at least one member of Any is satisfied. An empty sub-sequence is
// vacuously satisfied; a group with both empty is rejected by the
// validator, never by the AST itself.
type ConditionGroup struct {
	All []Condition
	Any []Condition
}

// Empty reports whether both All and Any are empty.
func (g ConditionGroup) Empty() bool {
	return len(g.All) == 0 && len(g.Any) == 0
}

// Action is the tagged-sum interface implemented by SetValue and
// SendMessage.
type Action interface {
	actionNode()
}

// SetValue writes a sensor either a numeric literal or the result of an
// expression. Exactly one of Literal/Expression is meaningful; which one
// is indicated by HasExpression.
type SetValue struct {
	Key          string
	Literal      float64
	Expression   string
	HasExpression bool
}

func (*SetValue) actionNode() {}

// SendMessage emits a message to a named channel; the emitted evaluator
// forwards it to a host sendMessage(channel, message) function.
type SendMessage struct {
	Channel string
	Message string
}

func (*SendMessage) actionNode() {}

// Rule is one compiled rule: its name, optional description, the
// condition group that gates its actions, the actions themselves in
// declared order, and its source location.
type Rule struct {
	Name        string
	Description string
	Conditions  ConditionGroup
	Actions     []Action
	Location    Location
}
