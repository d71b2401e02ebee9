package ruledoc

import (
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/betracehq/pulsar/internal/ast"
	"github.com/betracehq/pulsar/internal/compileerr"
)

// Document is one named rule-document source: a file path and its raw
// bytes.
type Document struct {
	File    string
	Content []byte
}

// Parse parses every document and returns the rules extracted across all
// of them plus every accumulated issue. Parsing continues past a single
// rule's SchemaError so a developer sees every problem in one pass
// (spec.md §4.2's "best-effort continuation"); a document-level
// SyntaxError (malformed YAML, duplicate keys, excessive nesting) aborts
// only that document.
func Parse(docs []Document, logger *slog.Logger) ([]*ast.Rule, *compileerr.List) {
	if logger == nil {
		logger = slog.Default()
	}
	issues := &compileerr.List{}
	var rules []*ast.Rule

	for _, doc := range docs {
		logger.Debug("parsing rule document", "file", doc.File)
		parsed, docIssues := parseDocument(doc)
		issues.Merge(docIssues)
		rules = append(rules, parsed...)
	}
	return rules, issues
}

func parseDocument(doc Document) ([]*ast.Rule, *compileerr.List) {
	issues := &compileerr.List{}

	var root yaml.Node
	if err := yaml.Unmarshal(doc.Content, &root); err != nil {
		issues.Errorf(compileerr.KindSyntax, doc.File, 0, "", "malformed YAML: %s", err)
		return nil, issues
	}
	if len(root.Content) == 0 {
		issues.Errorf(compileerr.KindSyntax, doc.File, 0, "", "empty document")
		return nil, issues
	}
	top := root.Content[0]

	if err := checkStructure(top, doc.File, 1); err != nil {
		issues.Add(err)
		return nil, issues
	}

	rulesNode := mappingValue(top, "rules")
	if rulesNode == nil {
		issues.Errorf(compileerr.KindSchema, doc.File, top.Line, "", "missing required key: rules")
		return nil, issues
	}
	if rulesNode.Kind != yaml.SequenceNode {
		issues.Errorf(compileerr.KindSchema, doc.File, rulesNode.Line, "", "rules must be a sequence")
		return nil, issues
	}

	var rules []*ast.Rule
	for _, ruleNode := range rulesNode.Content {
		rule, ruleIssues := parseRule(ruleNode, doc.File)
		issues.Merge(ruleIssues)
		if rule != nil {
			rules = append(rules, rule)
		}
	}
	return rules, issues
}

// checkStructure recursively rejects duplicate mapping keys and nesting
// beyond maxNestingDepth, per spec.md §4.2.
func checkStructure(node *yaml.Node, file string, depth int) *compileerr.Error {
	if depth > maxNestingDepth {
		return &compileerr.Error{
			Kind: compileerr.KindSyntax, File: file, Line: node.Line,
			Message: fmt.Sprintf("nesting exceeds maximum depth of %d", maxNestingDepth),
		}
	}

	switch node.Kind {
	case yaml.MappingNode:
		seen := make(map[string]int)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i]
			if line, dup := seen[key.Value]; dup {
				return &compileerr.Error{
					Kind: compileerr.KindSyntax, File: file, Line: line,
					Message: fmt.Sprintf("duplicate key %q (first seen at line %d)", key.Value, line),
				}
			}
			seen[key.Value] = key.Line
			if err := checkStructure(node.Content[i+1], file, depth+1); err != nil {
				return err
			}
		}
	case yaml.SequenceNode:
		for _, child := range node.Content {
			if err := checkStructure(child, file, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// mappingValue returns the value node for key in a mapping node, or nil
// if absent. Assumes checkStructure has already ruled out duplicates.
func mappingValue(mapping *yaml.Node, key string) *yaml.Node {
	if mapping == nil || mapping.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

func parseRule(node *yaml.Node, file string) (*ast.Rule, *compileerr.List) {
	issues := &compileerr.List{}

	if node.Kind != yaml.MappingNode {
		issues.Errorf(compileerr.KindSchema, file, node.Line, "", "rule entry must be a mapping")
		return nil, issues
	}

	nameNode := mappingValue(node, "name")
	if nameNode == nil {
		issues.Errorf(compileerr.KindSchema, file, node.Line, "", "rule is missing required field: name")
		return nil, issues
	}
	name := nameNode.Value
	line := nameNode.Line

	rule := &ast.Rule{
		Name:     name,
		Location: ast.Location{File: file, Line: line},
	}

	if descNode := mappingValue(node, "description"); descNode != nil {
		rule.Description = descNode.Value
	}

	conditions, condIssues := parseConditions(mappingValue(node, "conditions"), file, name, line)
	issues.Merge(condIssues)
	rule.Conditions = conditions

	actionsNode := mappingValue(node, "actions")
	if actionsNode == nil || actionsNode.Kind != yaml.SequenceNode {
		issues.Errorf(compileerr.KindSchema, file, line, name, "rule is missing required field: actions")
	} else {
		for _, actionNode := range actionsNode.Content {
			action, actionIssues := parseAction(actionNode, file, name)
			issues.Merge(actionIssues)
			if action != nil {
				rule.Actions = append(rule.Actions, action)
			}
		}
	}

	return rule, issues
}

func parseConditions(node *yaml.Node, file, ruleName string, line int) (ast.ConditionGroup, *compileerr.List) {
	issues := &compileerr.List{}
	var group ast.ConditionGroup
	if node == nil {
		return group, issues
	}

	if allNode := mappingValue(node, "all"); allNode != nil {
		for _, c := range allNode.Content {
			cond, err := parseConditionWrapper(c, file, ruleName)
			if err != nil {
				issues.Add(err)
				continue
			}
			group.All = append(group.All, cond)
		}
	}
	if anyNode := mappingValue(node, "any"); anyNode != nil {
		for _, c := range anyNode.Content {
			cond, err := parseConditionWrapper(c, file, ruleName)
			if err != nil {
				issues.Add(err)
				continue
			}
			group.Any = append(group.Any, cond)
		}
	}
	return group, issues
}

func parseConditionWrapper(node *yaml.Node, file, ruleName string) (ast.Condition, *compileerr.Error) {
	inner := mappingValue(node, "condition")
	if inner == nil {
		return nil, &compileerr.Error{Kind: compileerr.KindSchema, File: file, Line: node.Line, RuleName: ruleName,
			Message: "condition wrapper missing required key: condition"}
	}

	typeNode := mappingValue(inner, "type")
	if typeNode == nil {
		return nil, &compileerr.Error{Kind: compileerr.KindSchema, File: file, Line: inner.Line, RuleName: ruleName,
			Message: "condition is missing required field: type"}
	}

	switch typeNode.Value {
	case conditionTypeComparison:
		return parseComparison(inner, file, ruleName)
	case conditionTypeExpression:
		return parseExpression(inner, file, ruleName)
	case conditionTypeThresholdOverTime:
		return parseThresholdOverTime(inner, file, ruleName)
	default:
		return nil, &compileerr.Error{Kind: compileerr.KindSchema, File: file, Line: typeNode.Line, RuleName: ruleName,
			Message: fmt.Sprintf("unrecognized condition type %q", typeNode.Value)}
	}
}

func parseComparison(node *yaml.Node, file, ruleName string) (ast.Condition, *compileerr.Error) {
	sensorNode := mappingValue(node, "sensor")
	opNode := mappingValue(node, "operator")
	valueNode := mappingValue(node, "value")
	if sensorNode == nil || opNode == nil || valueNode == nil {
		return nil, &compileerr.Error{Kind: compileerr.KindSchema, File: file, Line: node.Line, RuleName: ruleName,
			Message: "comparison condition requires sensor, operator, and value"}
	}
	if _, ok := comparisonOperators[opNode.Value]; !ok {
		return nil, &compileerr.Error{Kind: compileerr.KindSchema, File: file, Line: opNode.Line, RuleName: ruleName,
			Message: fmt.Sprintf("unrecognized comparison operator %q", opNode.Value)}
	}
	var literal float64
	if err := valueNode.Decode(&literal); err != nil {
		return nil, &compileerr.Error{Kind: compileerr.KindSchema, File: file, Line: valueNode.Line, RuleName: ruleName,
			Message: fmt.Sprintf("comparison value must be numeric: %s", err)}
	}
	return &ast.Comparison{Sensor: sensorNode.Value, Op: ast.CompareOp(opNode.Value), Literal: literal}, nil
}

func parseExpression(node *yaml.Node, file, ruleName string) (ast.Condition, *compileerr.Error) {
	exprNode := mappingValue(node, "expression")
	if exprNode == nil {
		return nil, &compileerr.Error{Kind: compileerr.KindSchema, File: file, Line: node.Line, RuleName: ruleName,
			Message: "expression condition requires expression"}
	}
	return &ast.Expression{Source: exprNode.Value}, nil
}

func parseThresholdOverTime(node *yaml.Node, file, ruleName string) (ast.Condition, *compileerr.Error) {
	sensorNode := mappingValue(node, "sensor")
	thresholdNode := mappingValue(node, "threshold")
	durationNode := mappingValue(node, "duration")
	if sensorNode == nil || thresholdNode == nil || durationNode == nil {
		return nil, &compileerr.Error{Kind: compileerr.KindSchema, File: file, Line: node.Line, RuleName: ruleName,
			Message: "threshold_over_time condition requires sensor, threshold, and duration"}
	}
	var threshold float64
	if err := thresholdNode.Decode(&threshold); err != nil {
		return nil, &compileerr.Error{Kind: compileerr.KindSchema, File: file, Line: thresholdNode.Line, RuleName: ruleName,
			Message: fmt.Sprintf("threshold must be numeric: %s", err)}
	}
	durationMillis, err := parseDurationField(durationNode)
	if err != nil {
		return nil, &compileerr.Error{Kind: compileerr.KindSchema, File: file, Line: durationNode.Line, RuleName: ruleName,
			Message: err.Error()}
	}
	return &ast.ThresholdOverTime{Sensor: sensorNode.Value, Threshold: threshold, DurationMillis: durationMillis}, nil
}

// parseDurationField accepts the bare-integer-milliseconds primary form
// from spec.md §9; unit-suffixed strings ("300ms", "5s") are the
// documented extension point handled by internal/durfmt, not by the
// core parser.
func parseDurationField(node *yaml.Node) (int64, error) {
	var millis int64
	if err := node.Decode(&millis); err != nil {
		return 0, fmt.Errorf("duration must be an integer number of milliseconds: %s", err)
	}
	return millis, nil
}

func parseAction(node *yaml.Node, file, ruleName string) (ast.Action, *compileerr.List) {
	if setValue := mappingValue(node, "set_value"); setValue != nil {
		return parseSetValue(setValue, file, ruleName)
	}
	if sendMessage := mappingValue(node, "send_message"); sendMessage != nil {
		action, err := parseSendMessage(sendMessage, file, ruleName)
		issues := &compileerr.List{}
		if err != nil {
			issues.Add(err)
			return nil, issues
		}
		return action, issues
	}
	issues := &compileerr.List{}
	issues.Errorf(compileerr.KindSchema, file, node.Line, ruleName, "action must be one of: set_value, send_message")
	return nil, issues
}

func parseSetValue(node *yaml.Node, file, ruleName string) (ast.Action, *compileerr.List) {
	issues := &compileerr.List{}

	keyNode := mappingValue(node, "key")
	if keyNode == nil {
		issues.Errorf(compileerr.KindSchema, file, node.Line, ruleName, "set_value action requires key")
		return nil, issues
	}
	valueNode := mappingValue(node, "value")
	exprNode := mappingValue(node, "value_expression")

	action := &ast.SetValue{Key: keyNode.Value}
	switch {
	case valueNode != nil && exprNode != nil:
		issues.Errorf(compileerr.KindSchema, file, node.Line, ruleName,
			"set_value action must have exactly one of value or value_expression")
		return nil, issues
	case exprNode != nil:
		action.HasExpression = true
		action.Expression = exprNode.Value
	case valueNode != nil:
		var literal float64
		if err := valueNode.Decode(&literal); err != nil {
			issues.Errorf(compileerr.KindSchema, file, valueNode.Line, ruleName,
				"set_value literal must be numeric: %s", err)
			return nil, issues
		}
		action.Literal = literal
	default:
		// Neither present: spec.md §3 says the emitter substitutes the
		// constant zero and flags a warning, not a hard schema error.
		action.Literal = 0
		issues.Errorf(compileerr.KindWarning, file, node.Line, ruleName,
			"set_value action has neither value nor value_expression; defaulting to 0")
	}
	return action, issues
}

func parseSendMessage(node *yaml.Node, file, ruleName string) (ast.Action, *compileerr.Error) {
	channelNode := mappingValue(node, "channel")
	messageNode := mappingValue(node, "message")
	if channelNode == nil || messageNode == nil {
		return nil, &compileerr.Error{Kind: compileerr.KindSchema, File: file, Line: node.Line, RuleName: ruleName,
			Message: "send_message action requires channel and message"}
	}
	return &ast.SendMessage{Channel: channelNode.Value, Message: messageNode.Value}, nil
}
