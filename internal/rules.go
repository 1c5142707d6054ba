package internal

import (
	"log"

	"github.com/Knetic/govaluate"
)

// Rule routes matching events to a dispatch topic. When is a boolean
// expression over the flattened payload plus the synthetic `provider` and
// `event` fields; Emit is the topic published on a match. Drivers optionally
// narrows which dispatch drivers receive the event.
type Rule struct {
	When    string   `yaml:"when"`
	Emit    string   `yaml:"emit"`
	Drivers []string `yaml:"drivers"`
}

// Match is a topic selected for an event by a rule.
type Match struct {
	Topic   string
	Drivers []string
}

type compiledRule struct {
	emit    string
	drivers []string
	expr    *govaluate.EvaluableExpression
}

// RuleEngine evaluates dispatch rules against ingested events.
type RuleEngine struct {
	rules  []compiledRule
	logger *log.Logger
}

// RulesConfig carries the rule set into NewRuleEngine.
type RulesConfig struct {
	Rules  []Rule `yaml:"rules"`
	Logger *log.Logger
}

func NewRuleEngine(cfg RulesConfig) (*RuleEngine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	rules := make([]compiledRule, 0, len(cfg.Rules))
	for _, rule := range cfg.Rules {
		expr, err := govaluate.NewEvaluableExpression(rule.When)
		if err != nil {
			return nil, err
		}
		rules = append(rules, compiledRule{emit: rule.Emit, drivers: rule.Drivers, expr: expr})
	}
	return &RuleEngine{rules: rules, logger: logger}, nil
}

// Evaluate returns the topics whose rules match the event. A rule that fails
// to evaluate (missing field, type mismatch) simply does not match.
func (r *RuleEngine) Evaluate(event Event) []Match {
	if r == nil || len(r.rules) == 0 {
		return nil
	}

	params := make(map[string]interface{}, len(event.Data)+2)
	for key, value := range event.Data {
		params[key] = value
	}
	params["provider"] = event.Provider
	params["event"] = event.Name

	matches := make([]Match, 0, 1)
	for _, rule := range r.rules {
		result, err := rule.expr.Evaluate(params)
		if err != nil {
			r.logger.Printf("rule eval failed: %v", err)
			continue
		}
		if ok, _ := result.(bool); ok {
			matches = append(matches, Match{Topic: rule.emit, Drivers: rule.drivers})
		}
	}
	return matches
}
