// Package conditional implements the conditional step kind: a rule set
// evaluated against the contact and deal that selects one of the step's two
// branch targets instead of the default next-by-order successor.
package conditional

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/evercrm/cadence/pkg/protocol"
)

const (
	matchAll = "all"
	matchAny = "any"
)

// Rule is one comparison against a field of the execution context.
type Rule struct {
	Field string
	Op    string
	Value any
}

// Handler evaluates its rules and reports the branch outcome.
type Handler struct {
	Rules []Rule
	Match string
}

// NewHandler builds a handler from step configuration.
func NewHandler(config map[string]any) (*Handler, error) {
	rawRules, ok := config["rules"].([]any)
	if !ok || len(rawRules) == 0 {
		return nil, errors.New("conditional config requires rules")
	}

	rules := make([]Rule, 0, len(rawRules))

	for i, raw := range rawRules {
		ruleMap, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("conditional rule %d is not an object", i)
		}

		field, _ := ruleMap["field"].(string)
		op, _ := ruleMap["op"].(string)

		if field == "" || op == "" {
			return nil, fmt.Errorf("conditional rule %d requires field and op", i)
		}

		rules = append(rules, Rule{Field: field, Op: op, Value: ruleMap["value"]})
	}

	match, _ := config["match"].(string)
	if match == "" {
		match = matchAll
	}

	if match != matchAll && match != matchAny {
		return nil, fmt.Errorf("conditional match must be %q or %q", matchAll, matchAny)
	}

	return &Handler{Rules: rules, Match: match}, nil
}

func (h *Handler) Execute(ctx context.Context, executionCtx protocol.ExecutionContext) (*protocol.StepResult, error) {
	outcome := h.Match == matchAll

	for _, rule := range h.Rules {
		matched, err := h.evaluate(rule, executionCtx)
		if err != nil {
			return nil, err
		}

		if h.Match == matchAll && !matched {
			outcome = false

			break
		}

		if h.Match == matchAny && matched {
			outcome = true

			break
		}

		if h.Match == matchAny {
			outcome = false
		}
	}

	nextStepID := executionCtx.Step.FalseStepID
	if outcome {
		nextStepID = executionCtx.Step.TrueStepID
	}

	return &protocol.StepResult{
		Output: map[string]any{
			"outcome":      outcome,
			"next_step_id": nextStepID,
		},
		NextStepID: nextStepID,
	}, nil
}

func (h *Handler) evaluate(rule Rule, executionCtx protocol.ExecutionContext) (bool, error) {
	actual, found := resolveField(rule.Field, executionCtx)

	switch rule.Op {
	case "exists":
		return found, nil
	case "not_exists":
		return !found, nil
	case "equals":
		return found && stringify(actual) == stringify(rule.Value), nil
	case "not_equals":
		return !found || stringify(actual) != stringify(rule.Value), nil
	case "contains":
		return found && strings.Contains(stringify(actual), stringify(rule.Value)), nil
	case "gt", "lt":
		return compareNumeric(rule.Op, actual, rule.Value, found)
	default:
		return false, fmt.Errorf("unsupported conditional op %q", rule.Op)
	}
}

// resolveField resolves dotted paths: contact.<field>, deal.<field>, or
// tag.<name> for tag membership.
func resolveField(path string, executionCtx protocol.ExecutionContext) (any, bool) {
	parts := strings.SplitN(path, ".", 2)
	if len(parts) != 2 {
		return nil, false
	}

	scope, field := parts[0], parts[1]

	switch scope {
	case "contact":
		contact := executionCtx.Contact
		if contact == nil {
			return nil, false
		}

		switch field {
		case "first_name":
			return contact.FirstName, true
		case "last_name":
			return contact.LastName, true
		case "email":
			return contact.Email, contact.Email != ""
		case "phone":
			return contact.Phone, contact.Phone != ""
		default:
			value, ok := contact.Fields[field]

			return value, ok
		}
	case "deal":
		deal := executionCtx.Deal
		if deal == nil {
			return nil, false
		}

		switch field {
		case "stage":
			return deal.Stage, true
		case "pipeline":
			return deal.Pipeline, true
		default:
			value, ok := deal.Fields[field]

			return value, ok
		}
	case "tag":
		contact := executionCtx.Contact
		if contact == nil {
			return nil, false
		}

		for _, tag := range contact.Tags {
			if tag == field {
				return tag, true
			}
		}

		return nil, false
	default:
		return nil, false
	}
}

func stringify(value any) string {
	return fmt.Sprintf("%v", value)
}

func compareNumeric(op string, actual, expected any, found bool) (bool, error) {
	if !found {
		return false, nil
	}

	left, err := toFloat(actual)
	if err != nil {
		return false, nil
	}

	right, err := toFloat(expected)
	if err != nil {
		return false, fmt.Errorf("conditional %s value is not numeric: %v", op, expected)
	}

	if op == "gt" {
		return left > right, nil
	}

	return left < right, nil
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("not numeric: %T", value)
	}
}
