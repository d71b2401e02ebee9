package emit

import (
	"strings"
	"text/template"
)

var templateFuncs = template.FuncMap{
	"join": strings.Join,
}

// groupTemplate renders one group file: a header comment naming its
// contributing source files (spec.md §4.6 "Source provenance"), then
// evaluateGroup(inputs, outputs, buffers) with every rule's condition
// guard and actions in source order.
var groupTemplate = template.Must(template.New("group").Funcs(templateFuncs).Parse(
	`"""Group {{.Index}} (layers {{.MinLayer}}-{{.MaxLayer}}).

Sources: {{join .SourceFiles ", "}}
"""


def evaluateGroup(inputs, outputs, buffers):
{{range .Rules}}
    # {{.SourceFile}}:{{.SourceLine}} {{.Name}}
    if {{.ConditionExpr}}:
{{range .Actions}}        {{.}}
{{end}}{{end}}
`))

// coordinatorTemplate renders the coordinator file: one Coordinator
// class holding every group module reference, constructed with the
// logger and buffers handle, exposing evaluate(inputs, outputs, buffers)
// that calls each group in declared (ascending MinLayer, tie-broken by
// index) order.
var coordinatorTemplate = template.Must(template.New("coordinator").Funcs(templateFuncs).Parse(
	`"""Generated coordinator. Sequences {{len .Groups}} group(s) in layer order."""

{{range .Groups}}import group_{{.Index}}
{{end}}

class Coordinator:
    def __init__(self, logger, buffers):
        self.logger = logger
        self.buffers = buffers
        self.groups = [{{range .Groups}}group_{{.Index}}, {{end}}]

    def evaluate(self, inputs, outputs, buffers):
        for group in self.groups:
            group.evaluateGroup(inputs, outputs, buffers)
`))

// RuleView is one rule's template-facing data.
type RuleView struct {
	Name          string
	SourceFile    string
	SourceLine    int
	ConditionExpr string
	Actions       []string
}

// GroupView is one group file's template-facing data.
type GroupView struct {
	Index       int
	MinLayer    int
	MaxLayer    int
	SourceFiles []string
	Rules       []RuleView
}

// CoordinatorView is the coordinator file's template-facing data.
type CoordinatorView struct {
	Groups []GroupView
}
