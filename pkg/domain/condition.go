package domain

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Operator is one of the six supported comparison kinds.
type Operator string

const (
	OpEqual          Operator = "=="
	OpNotEqual       Operator = "!="
	OpLessThan       Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpGreaterThan    Operator = ">"
	OpGreaterOrEqual Operator = ">="
)

var operatorAliases = map[string]Operator{
	"==": OpEqual, "eq": OpEqual,
	"!=": OpNotEqual, "ne": OpNotEqual,
	"<": OpLessThan, "lt": OpLessThan,
	"<=": OpLessOrEqual, "le": OpLessOrEqual,
	">": OpGreaterThan, "gt": OpGreaterThan,
	">=": OpGreaterOrEqual, "ge": OpGreaterOrEqual,
}

// ParseOperator maps a symbol or mnemonic ("ge", ">=") to an Operator.
func ParseOperator(s string) (Operator, error) {
	op, ok := operatorAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unknown condition operator %q", s)
	}
	return op, nil
}

// Valid reports whether op is one of the six supported operators.
func (op Operator) Valid() bool {
	switch op {
	case OpEqual, OpNotEqual, OpLessThan, OpLessOrEqual, OpGreaterThan, OpGreaterOrEqual:
		return true
	}
	return false
}

// Condition compares State[Key] against Value using Op.
type Condition struct {
	Key   string   `json:"condition_key" yaml:"condition_key"`
	Op    Operator `json:"condition_op" yaml:"condition_op"`
	Value any      `json:"condition_value" yaml:"condition_value"`
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %v", c.Key, c.Op, c.Value)
}

// Evaluate reports whether the condition holds for state.
// A missing key or incomparable values yield a *ConditionEvaluationError;
// callers route that to the failure successor.
// Evaluate never mutates state.
func (c Condition) Evaluate(state State) (bool, error) {
	actual, ok := state[c.Key]
	if !ok {
		return false, &ConditionEvaluationError{Key: c.Key, Op: c.Op, Reason: "key not present in state"}
	}
	ok, err := compare(actual, c.Op, c.Value)
	if err != nil {
		return false, &ConditionEvaluationError{Key: c.Key, Op: c.Op, Reason: err.Error()}
	}
	return ok, nil
}

func compare(actual any, op Operator, expected any) (bool, error) {
	if !op.Valid() {
		return false, fmt.Errorf("unknown operator %q", op)
	}

	if a, aok := toFloat(actual); aok {
		b, bok := toFloat(expected)
		if !bok {
			return false, fmt.Errorf("cannot compare %T with %T", actual, expected)
		}
		return ordered(a, b, op), nil
	}

	switch a := actual.(type) {
	case string:
		b, ok := expected.(string)
		if !ok {
			return false, fmt.Errorf("cannot compare %T with %T", actual, expected)
		}
		return ordered(strings.Compare(a, b), 0, op), nil
	case bool:
		b, ok := expected.(bool)
		if !ok {
			return false, fmt.Errorf("cannot compare %T with %T", actual, expected)
		}
		return equality(a == b, op)
	case nil:
		if expected != nil {
			return false, fmt.Errorf("cannot compare nil with %T", expected)
		}
		return equality(true, op)
	}

	if reflect.TypeOf(actual) != reflect.TypeOf(expected) {
		return false, fmt.Errorf("cannot compare %T with %T", actual, expected)
	}
	return equality(reflect.DeepEqual(actual, expected), op)
}

// equality handles types that only support == and !=.
func equality(equal bool, op Operator) (bool, error) {
	switch op {
	case OpEqual:
		return equal, nil
	case OpNotEqual:
		return !equal, nil
	}
	return false, fmt.Errorf("operator %q requires ordered values", op)
}

func ordered[T int | float64](a, b T, op Operator) bool {
	switch op {
	case OpEqual:
		return a == b
	case OpNotEqual:
		return a != b
	case OpLessThan:
		return a < b
	case OpLessOrEqual:
		return a <= b
	case OpGreaterThan:
		return a > b
	case OpGreaterOrEqual:
		return a >= b
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
