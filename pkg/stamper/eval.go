package stamper

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// EvaluateBinaryOperation evaluates a binary operation between two values
func EvaluateBinaryOperation(left interface{}, operator string, right interface{}) (interface{}, error) {
	switch operator {
	case "+":
		return evaluateAddition(left, right)
	case "-":
		return evaluateSubtraction(left, right)
	case "*":
		return evaluateMultiplication(left, right)
	case "/":
		return evaluateDivision(left, right)
	case "%":
		return evaluateModulo(left, right)
	case "==":
		return evaluateEquals(left, right), nil
	case "!=":
		return !evaluateEquals(left, right), nil
	case "<":
		return evaluateComparison(left, "<", right)
	case ">":
		return evaluateComparison(left, ">", right)
	case "<=":
		return evaluateComparison(left, "<=", right)
	case ">=":
		return evaluateComparison(left, ">=", right)
	case "&":
		return isTruthy(left) && isTruthy(right), nil
	case "|":
		return isTruthy(left) || isTruthy(right), nil
	default:
		return nil, fmt.Errorf("unknown binary operator: %s", operator)
	}
}

func evaluateAddition(left, right interface{}) (interface{}, error) {
	// A string on either side makes + a concatenation
	if leftStr, ok := left.(string); ok {
		return leftStr + FormatValue(right), nil
	}
	if rightStr, ok := right.(string); ok {
		return FormatValue(left) + rightStr, nil
	}

	leftNum, leftOk := toFloat64(left)
	rightNum, rightOk := toFloat64(right)

	if !leftOk || !rightOk {
		return nil, fmt.Errorf("cannot add %T and %T", left, right)
	}

	// Return int if both operands were integers
	if isInteger(left) && isInteger(right) {
		return int(leftNum + rightNum), nil
	}
	return leftNum + rightNum, nil
}

func evaluateSubtraction(left, right interface{}) (interface{}, error) {
	leftNum, leftOk := toFloat64(left)
	rightNum, rightOk := toFloat64(right)

	if !leftOk || !rightOk {
		return nil, fmt.Errorf("cannot subtract %T and %T", left, right)
	}

	if isInteger(left) && isInteger(right) {
		return int(leftNum - rightNum), nil
	}
	return leftNum - rightNum, nil
}

func evaluateMultiplication(left, right interface{}) (interface{}, error) {
	leftNum, leftOk := toFloat64(left)
	rightNum, rightOk := toFloat64(right)

	if !leftOk || !rightOk {
		return nil, fmt.Errorf("cannot multiply %T and %T", left, right)
	}

	if isInteger(left) && isInteger(right) {
		return int(leftNum * rightNum), nil
	}
	return leftNum * rightNum, nil
}

func evaluateDivision(left, right interface{}) (interface{}, error) {
	leftNum, leftOk := toFloat64(left)
	rightNum, rightOk := toFloat64(right)

	if !leftOk || !rightOk {
		return nil, fmt.Errorf("cannot divide %T and %T", left, right)
	}

	if rightNum == 0 {
		return nil, fmt.Errorf("division by zero")
	}

	result := leftNum / rightNum
	// Integer division stays an int only when it divides evenly
	if isInteger(left) && isInteger(right) && result == float64(int(result)) {
		return int(result), nil
	}
	return result, nil
}

func evaluateModulo(left, right interface{}) (interface{}, error) {
	leftInt, leftOk := toInt(left)
	rightInt, rightOk := toInt(right)

	if !leftOk || !rightOk {
		return nil, fmt.Errorf("modulo operation requires integers, got %T and %T", left, right)
	}

	if rightInt == 0 {
		return nil, fmt.Errorf("modulo by zero")
	}

	return leftInt % rightInt, nil
}

func evaluateEquals(left, right interface{}) bool {
	if left == nil && right == nil {
		return true
	}
	if left == nil || right == nil {
		return false
	}

	// Numeric values compare by value regardless of their Go type
	if leftNum, leftOk := toFloat64(left); leftOk {
		if rightNum, rightOk := toFloat64(right); rightOk {
			return leftNum == rightNum
		}
	}

	return left == right
}

func evaluateComparison(left interface{}, operator string, right interface{}) (interface{}, error) {
	if leftStr, ok := left.(string); ok {
		if rightStr, ok := right.(string); ok {
			return compareOrdered(operator, strings.Compare(leftStr, rightStr))
		}
	}

	leftNum, leftOk := toFloat64(left)
	rightNum, rightOk := toFloat64(right)

	if !leftOk || !rightOk {
		return nil, fmt.Errorf("cannot compare %T and %T", left, right)
	}

	switch {
	case leftNum < rightNum:
		return compareOrdered(operator, -1)
	case leftNum > rightNum:
		return compareOrdered(operator, 1)
	default:
		return compareOrdered(operator, 0)
	}
}

func compareOrdered(operator string, cmp int) (interface{}, error) {
	switch operator {
	case "<":
		return cmp < 0, nil
	case ">":
		return cmp > 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">=":
		return cmp >= 0, nil
	default:
		return nil, fmt.Errorf("unknown comparison operator: %s", operator)
	}
}

func evaluateUnaryMinus(operand interface{}) (interface{}, error) {
	num, ok := toFloat64(operand)
	if !ok {
		return nil, fmt.Errorf("cannot apply unary minus to %T", operand)
	}

	if isInteger(operand) {
		return -int(num), nil
	}
	return -num, nil
}

func evaluateUnaryPlus(operand interface{}) (interface{}, error) {
	num, ok := toFloat64(operand)
	if !ok {
		return nil, fmt.Errorf("cannot apply unary plus to %T", operand)
	}

	if isInteger(operand) {
		return int(num), nil
	}
	return num, nil
}

// Utility functions for type conversion and checks
func toFloat64(val interface{}) (float64, bool) {
	switch v := val.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

func toInt(val interface{}) (int, bool) {
	switch v := val.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case uint64:
		return int(v), true
	case float32:
		if v == float32(int(v)) {
			return int(v), true
		}
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	}
	return 0, false
}

func isInteger(val interface{}) bool {
	switch val.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	default:
		return false
	}
}

func isTruthy(val interface{}) bool {
	if val == nil {
		return false
	}

	switch v := val.(type) {
	case bool:
		return v
	case string:
		return v != ""
	case []interface{}:
		return len(v) > 0
	case map[string]interface{}:
		return len(v) > 0
	}

	if num, ok := toFloat64(val); ok {
		return num != 0
	}

	// Non-nil objects are truthy
	return true
}

// accessField resolves field access on maps and structs. Unknown fields
// resolve to nil, matching variable lookup.
func accessField(current interface{}, field string) interface{} {
	if current == nil {
		return nil
	}

	switch v := current.(type) {
	case map[string]interface{}:
		return v[field]
	case map[string]string:
		return v[field]
	case map[string]int:
		return v[field]
	case map[string]float64:
		return v[field]
	case map[string]bool:
		return v[field]
	}

	rv := reflect.ValueOf(current)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		entry := rv.MapIndex(reflect.ValueOf(field))
		if !entry.IsValid() {
			return nil
		}
		return entry.Interface()
	case reflect.Struct:
		// Accept both name and Name for an exported field Name
		f := rv.FieldByName(field)
		if !f.IsValid() {
			f = rv.FieldByName(upperFirst(field))
		}
		if f.IsValid() && f.CanInterface() {
			return f.Interface()
		}
	}

	return nil
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

// accessArrayIndex accesses an element by index. Negative indices count
// from the end; out-of-range access resolves to nil.
func accessArrayIndex(current interface{}, index int) interface{} {
	if current == nil {
		return nil
	}

	if v, ok := current.([]interface{}); ok {
		if index < 0 {
			index = len(v) + index
		}
		if index >= 0 && index < len(v) {
			return v[index]
		}
		return nil
	}

	rv := reflect.ValueOf(current)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if index < 0 {
			index = rv.Len() + index
		}
		if index >= 0 && index < rv.Len() {
			return rv.Index(index).Interface()
		}
	}

	return nil
}

// FormatValue converts a value to its display string representation
func FormatValue(value interface{}) string {
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", v)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', 10, 32)
	case float64:
		// 'g' with precision 15 drops trailing zeros and avoids most
		// float representation noise
		return strconv.FormatFloat(v, 'g', 15, 64)
	case bool:
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
