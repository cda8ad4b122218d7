package stamper

import (
	"testing"
)

func TestEvaluateBinaryOperation(t *testing.T) {
	tests := []struct {
		name    string
		left    interface{}
		op      string
		right   interface{}
		want    interface{}
		wantErr bool
	}{
		{"int addition", 2, "+", 3, 5, false},
		{"float addition", 1.5, "+", 2.5, 4.0, false},
		{"mixed addition", 1, "+", 0.5, 1.5, false},
		{"string concat", "foo", "+", "bar", "foobar", false},
		{"string plus number", "n=", "+", 7, "n=7", false},
		{"number plus string", 7, "+", "!", "7!", false},
		{"int subtraction", 5, "-", 3, 2, false},
		{"float subtraction", 5.5, "-", 3, 2.5, false},
		{"int multiplication", 4, "*", 3, 12, false},
		{"int division exact", 6, "/", 3, 2, false},
		{"int division inexact", 7, "/", 2, 3.5, false},
		{"division by zero", 1, "/", 0, nil, true},
		{"modulo", 7, "%", 3, 1, false},
		{"modulo by zero", 7, "%", 0, nil, true},
		{"equal ints", 3, "==", 3, true, false},
		{"equal across numeric types", 3, "==", 3.0, true, false},
		{"equal strings", "a", "==", "a", true, false},
		{"not equal", 3, "!=", 4, true, false},
		{"nil equals nil", nil, "==", nil, true, false},
		{"nil not equal to value", nil, "==", 1, false, false},
		{"less than", 2, "<", 3, true, false},
		{"greater than", 2, ">", 3, false, false},
		{"less or equal", 3, "<=", 3, true, false},
		{"greater or equal", 2, ">=", 3, false, false},
		{"string comparison", "apple", "<", "banana", true, false},
		{"and both true", true, "&", 1, true, false},
		{"and short value", true, "&", 0, false, false},
		{"or falsy left", 0, "|", "x", true, false},
		{"or both falsy", 0, "|", "", false, false},
		{"comparison needs numbers or strings", true, "<", false, nil, true},
		{"unknown operator", 1, "?", 2, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvaluateBinaryOperation(tt.left, tt.op, tt.right)
			if (err != nil) != tt.wantErr {
				t.Fatalf("EvaluateBinaryOperation(%v %s %v) error = %v, wantErr %v", tt.left, tt.op, tt.right, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.want {
				t.Errorf("EvaluateBinaryOperation(%v %s %v) = %v (%T), want %v (%T)", tt.left, tt.op, tt.right, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestIsTruthy(t *testing.T) {
	tests := []struct {
		name string
		val  interface{}
		want bool
	}{
		{"nil", nil, false},
		{"true", true, true},
		{"false", false, false},
		{"zero int", 0, false},
		{"int", 7, true},
		{"zero int8", int8(0), false},
		{"int8", int8(3), true},
		{"zero uint16", uint16(0), false},
		{"zero float", 0.0, false},
		{"float", 0.1, true},
		{"empty string", "", false},
		{"string", "x", true},
		{"empty list", []interface{}{}, false},
		{"list", []interface{}{0}, true},
		{"empty map", map[string]interface{}{}, false},
		{"map", map[string]interface{}{"a": 1}, true},
		{"other values are truthy", struct{}{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTruthy(tt.val); got != tt.want {
				t.Errorf("isTruthy(%v) = %v, want %v", tt.val, got, tt.want)
			}
		})
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		val  interface{}
		want string
	}{
		{nil, ""},
		{"text", "text"},
		{42, "42"},
		{int64(9000), "9000"},
		{3.14, "3.14"},
		{2.0, "2"},
		{float32(1.5), "1.5"},
		{true, "true"},
		{false, "false"},
	}

	for _, tt := range tests {
		if got := FormatValue(tt.val); got != tt.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tt.val, got, tt.want)
		}
	}
}

type evalCustomer struct {
	Name    string
	Balance float64
	private string
}

func TestAccessField(t *testing.T) {
	cust := evalCustomer{Name: "Ada", Balance: 10.5, private: "x"}

	tests := []struct {
		name  string
		obj   interface{}
		field string
		want  interface{}
	}{
		{"map hit", map[string]interface{}{"a": 1}, "a", 1},
		{"map miss", map[string]interface{}{"a": 1}, "b", nil},
		{"typed map", map[string]string{"k": "v"}, "k", "v"},
		{"struct exported", cust, "Name", "Ada"},
		{"struct lower name", cust, "name", "Ada"},
		{"struct number", cust, "balance", 10.5},
		{"struct miss", cust, "nope", nil},
		{"pointer deref", &cust, "name", "Ada"},
		{"nil object", nil, "anything", nil},
		{"scalar object", 42, "field", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := accessField(tt.obj, tt.field); got != tt.want {
				t.Errorf("accessField(%v, %q) = %v, want %v", tt.obj, tt.field, got, tt.want)
			}
		})
	}
}

func TestAccessArrayIndex(t *testing.T) {
	list := []interface{}{"a", "b", "c"}

	tests := []struct {
		name string
		obj  interface{}
		idx  int
		want interface{}
	}{
		{"first", list, 0, "a"},
		{"last", list, 2, "c"},
		{"negative from end", list, -1, "c"},
		{"negative overshoot", list, -4, nil},
		{"out of bounds", list, 3, nil},
		{"typed slice", []string{"x", "y"}, 1, "y"},
		{"array", [2]int{5, 6}, 0, 5},
		{"nil", nil, 0, nil},
		{"not indexable", "abc", 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := accessArrayIndex(tt.obj, tt.idx); got != tt.want {
				t.Errorf("accessArrayIndex(%v, %d) = %v, want %v", tt.obj, tt.idx, got, tt.want)
			}
		})
	}
}
