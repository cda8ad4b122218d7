package stamper

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// builtinFunctions returns the standard operation catalog in its
// registration order. Overloads of one name resolve first-match, so
// the narrower signature comes first.
func builtinFunctions() []CustomFunction {
	return []CustomFunction{
		NewCustomFunction("empty", []ArgType{Any}, func(args []interface{}) (interface{}, error) {
			return isEmptyValue(args[0]), nil
		}),
		NewCustomFunction("coalesce", []ArgType{Any, Any}, func(args []interface{}) (interface{}, error) {
			return coalesceValues(args), nil
		}),
		NewCustomFunction("coalesce", []ArgType{Any, Any, Any}, func(args []interface{}) (interface{}, error) {
			return coalesceValues(args), nil
		}),
		NewCustomFunction("str", []ArgType{Any}, func(args []interface{}) (interface{}, error) {
			if args[0] == nil {
				return "", nil
			}
			return FormatValue(args[0]), nil
		}),
		NewCustomFunction("integer", []ArgType{Any}, func(args []interface{}) (interface{}, error) {
			return toIntegerValue(args[0])
		}),
		NewCustomFunction("decimal", []ArgType{Any}, func(args []interface{}) (interface{}, error) {
			return toDecimalValue(args[0])
		}),
		NewCustomFunction("lowercase", []ArgType{Any}, func(args []interface{}) (interface{}, error) {
			if args[0] == nil {
				return nil, nil
			}
			return strings.ToLower(FormatValue(args[0])), nil
		}),
		NewCustomFunction("uppercase", []ArgType{Any}, func(args []interface{}) (interface{}, error) {
			if args[0] == nil {
				return nil, nil
			}
			return strings.ToUpper(FormatValue(args[0])), nil
		}),
		NewCustomFunction("titlecase", []ArgType{Any}, func(args []interface{}) (interface{}, error) {
			if args[0] == nil {
				return nil, nil
			}
			return toTitleCase(FormatValue(args[0])), nil
		}),
		NewCustomFunction("length", []ArgType{Any}, func(args []interface{}) (interface{}, error) {
			return lengthOf(args[0]), nil
		}),
		NewCustomFunction("join", []ArgType{Any}, func(args []interface{}) (interface{}, error) {
			return joinValues(args[0], "")
		}),
		NewCustomFunction("join", []ArgType{Any, TypeOf[string]()}, func(args []interface{}) (interface{}, error) {
			separator, _ := args[1].(string)
			return joinValues(args[0], separator)
		}),
		NewCustomFunction("joinAnd", []ArgType{Any, TypeOf[string](), TypeOf[string]()}, func(args []interface{}) (interface{}, error) {
			sep, _ := args[1].(string)
			lastSep, _ := args[2].(string)
			return joinAndValues(args[0], sep, lastSep)
		}),
		NewCustomFunction("replace", []ArgType{Any, Any, Any}, func(args []interface{}) (interface{}, error) {
			text := ""
			if args[0] != nil {
				text = FormatValue(args[0])
			}
			if args[1] == nil {
				return text, nil
			}
			replacement := ""
			if args[2] != nil {
				replacement = FormatValue(args[2])
			}
			return strings.ReplaceAll(text, FormatValue(args[1]), replacement), nil
		}),
		NewCustomFunction("contains", []ArgType{Any, Any}, func(args []interface{}) (interface{}, error) {
			return containsValue(args[0], args[1])
		}),
		NewCustomFunction("sum", []ArgType{Any}, func(args []interface{}) (interface{}, error) {
			return sumList(args[0])
		}),
		NewCustomFunction("round", []ArgType{Any}, func(args []interface{}) (interface{}, error) {
			return mathRound(args[0])
		}),
		NewCustomFunction("floor", []ArgType{Any}, func(args []interface{}) (interface{}, error) {
			return mathFloor(args[0])
		}),
		NewCustomFunction("ceil", []ArgType{Any}, func(args []interface{}) (interface{}, error) {
			return mathCeil(args[0])
		}),
		NewCustomFunction("formatDate", []ArgType{Any, TypeOf[string]()}, func(args []interface{}) (interface{}, error) {
			pattern, _ := args[1].(string)
			return formatDateValue(args[0], pattern)
		}),
	}
}

// isEmptyValue checks if a value is considered empty
func isEmptyValue(val interface{}) bool {
	if val == nil {
		return true
	}

	switch v := val.(type) {
	case bool:
		return !v
	case string:
		return v == ""
	case []interface{}:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case map[string]interface{}:
		return len(v) == 0
	}

	if num, ok := toFloat64(val); ok {
		return num == 0
	}
	return false
}

func coalesceValues(args []interface{}) interface{} {
	for _, arg := range args {
		if !isEmptyValue(arg) {
			return arg
		}
	}
	return nil
}

// toIntegerValue converts various types to integer
func toIntegerValue(val interface{}) (interface{}, error) {
	if val == nil {
		return nil, nil
	}

	if i, ok := toInt(val); ok {
		return i, nil
	}
	if f, ok := toFloat64(val); ok {
		return int(f), nil
	}
	if s, ok := val.(string); ok {
		if i, err := strconv.Atoi(s); err == nil {
			return i, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f), nil
		}
		return nil, fmt.Errorf("cannot convert string %q to integer", s)
	}
	if b, ok := val.(bool); ok {
		if b {
			return 1, nil
		}
		return 0, nil
	}
	return nil, fmt.Errorf("cannot convert %T to integer", val)
}

// toDecimalValue converts various types to float64
func toDecimalValue(val interface{}) (interface{}, error) {
	if val == nil {
		return nil, nil
	}

	if f, ok := toFloat64(val); ok {
		return f, nil
	}
	if s, ok := val.(string); ok {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, nil
		}
		return nil, fmt.Errorf("cannot convert string %q to decimal", s)
	}
	if b, ok := val.(bool); ok {
		if b {
			return 1.0, nil
		}
		return 0.0, nil
	}
	return nil, fmt.Errorf("cannot convert %T to decimal", val)
}

// toTitleCase capitalizes the first letter of each word and lowers the rest
func toTitleCase(s string) string {
	if s == "" {
		return ""
	}

	var result strings.Builder
	words := strings.Fields(s)
	if len(words) == 0 {
		return s
	}

	lastEnd := 0
	for _, word := range words {
		start := strings.Index(s[lastEnd:], word) + lastEnd
		if start > lastEnd {
			result.WriteString(s[lastEnd:start])
		}

		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		for i := 1; i < len(runes); i++ {
			runes[i] = unicode.ToLower(runes[i])
		}
		result.WriteString(string(runes))

		lastEnd = start + len(word)
	}

	if lastEnd < len(s) {
		result.WriteString(s[lastEnd:])
	}

	return result.String()
}

func lengthOf(val interface{}) int {
	if val == nil {
		return 0
	}

	switch v := val.(type) {
	case string:
		// Strings count runes, not bytes
		return len([]rune(v))
	case []interface{}:
		return len(v)
	case map[string]interface{}:
		return len(v)
	}

	if items, ok := toItemList(val); ok {
		return len(items)
	}
	return len([]rune(FormatValue(val)))
}

func joinValues(collection interface{}, separator string) (interface{}, error) {
	if collection == nil {
		return "", nil
	}

	items, ok := toItemList(collection)
	if !ok {
		return nil, fmt.Errorf("join() requires a list, got %T", collection)
	}

	var parts []string
	for _, item := range items {
		if item != nil {
			parts = append(parts, FormatValue(item))
		}
	}
	return strings.Join(parts, separator), nil
}

func joinAndValues(collection interface{}, sep, lastSep string) (interface{}, error) {
	if collection == nil {
		return "", nil
	}

	items, ok := toItemList(collection)
	if !ok {
		return nil, fmt.Errorf("joinAnd() requires a list, got %T", collection)
	}

	var parts []string
	for _, item := range items {
		if item != nil {
			parts = append(parts, FormatValue(item))
		}
	}

	switch len(parts) {
	case 0:
		return "", nil
	case 1:
		return parts[0], nil
	case 2:
		return parts[0] + lastSep + parts[1], nil
	default:
		return strings.Join(parts[:len(parts)-1], sep) + lastSep + parts[len(parts)-1], nil
	}
}

// containsValue checks if a list contains a value using display-string
// comparison, so 2 and 2.0 count as the same entry.
func containsValue(searchVal, listVal interface{}) (interface{}, error) {
	if listVal == nil {
		return false, nil
	}

	items, ok := toItemList(listVal)
	if !ok {
		return nil, fmt.Errorf("contains() second parameter must be a list, got %T", listVal)
	}

	searchStr := FormatValue(searchVal)
	for _, item := range items {
		if FormatValue(item) == searchStr {
			return true, nil
		}
	}
	return false, nil
}

// sumList sums all numbers in a list. The result stays an int when
// every input was an integer.
func sumList(val interface{}) (interface{}, error) {
	if val == nil {
		return 0, nil
	}

	items, ok := toItemList(val)
	if !ok {
		return nil, fmt.Errorf("sum() requires a list, got %T", val)
	}

	var sum float64
	hasFloat := false
	for _, item := range items {
		if item == nil {
			continue
		}
		num, numOk := toFloat64(item)
		if !numOk {
			return nil, fmt.Errorf("sum() cannot convert item %v to number", item)
		}
		sum += num
		if !isInteger(item) {
			hasFloat = true
		}
	}

	if !hasFloat && sum == float64(int(sum)) {
		return int(sum), nil
	}
	return sum, nil
}

func mathRound(val interface{}) (interface{}, error) {
	if val == nil {
		return nil, nil
	}
	num, ok := toFloat64(val)
	if !ok {
		return nil, fmt.Errorf("round() requires a number, got %T", val)
	}
	return int(math.Round(num)), nil
}

func mathFloor(val interface{}) (interface{}, error) {
	if val == nil {
		return nil, nil
	}
	num, ok := toFloat64(val)
	if !ok {
		return nil, fmt.Errorf("floor() requires a number, got %T", val)
	}
	return int(math.Floor(num)), nil
}

func mathCeil(val interface{}) (interface{}, error) {
	if val == nil {
		return nil, nil
	}
	num, ok := toFloat64(val)
	if !ok {
		return nil, fmt.Errorf("ceil() requires a number, got %T", val)
	}
	return int(math.Ceil(num)), nil
}

// Common date formats tried when a date arrives as a string.
var commonDateFormats = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"02.01.2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

func parseDateValue(value interface{}) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return time.Time{}, fmt.Errorf("cannot parse nil time pointer")
		}
		return *v, nil
	case string:
		if v == "" {
			return time.Time{}, fmt.Errorf("cannot parse empty string as date")
		}
		for _, format := range commonDateFormats {
			if parsed, err := time.Parse(format, v); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("could not parse date string: %s", v)
	case int64:
		return time.Unix(v, 0).UTC(), nil
	case int:
		return time.Unix(int64(v), 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("cannot parse %T as date", value)
	}
}

// translateDateFormat converts SimpleDateFormat-style patterns, the kind
// template authors coming from office tooling write, to Go time layouts.
// Each run of a pattern letter is translated as one token; a plain
// replacement chain would rewrite letters inside already-substituted
// literals like "January".
func translateDateFormat(pattern string) string {
	var layout strings.Builder
	for i := 0; i < len(pattern); {
		c := pattern[i]
		if !isPatternLetter(c) {
			layout.WriteByte(c)
			i++
			continue
		}
		j := i
		for j < len(pattern) && pattern[j] == c {
			j++
		}
		layout.WriteString(layoutToken(c, j-i))
		i = j
	}
	return layout.String()
}

func isPatternLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func layoutToken(letter byte, count int) string {
	switch letter {
	case 'y':
		if count >= 4 {
			return "2006"
		}
		return "06"
	case 'M':
		switch {
		case count >= 4:
			return "January"
		case count == 3:
			return "Jan"
		case count == 2:
			return "01"
		default:
			return "1"
		}
	case 'd':
		if count >= 2 {
			return "02"
		}
		return "2"
	case 'H':
		return "15"
	case 'h':
		if count >= 2 {
			return "03"
		}
		return "3"
	case 'm':
		if count >= 2 {
			return "04"
		}
		return "4"
	case 's':
		if count >= 2 {
			return "05"
		}
		return "5"
	case 'a':
		return "PM"
	case 'E':
		if count >= 4 {
			return "Monday"
		}
		return "Mon"
	case 'S':
		return "000"
	case 'X':
		switch {
		case count >= 3:
			return "Z07:00"
		case count == 2:
			return "Z0700"
		default:
			return "Z07"
		}
	case 'z':
		return "MST"
	case 'Z':
		return "Z0700"
	default:
		return strings.Repeat(string(letter), count)
	}
}

func formatDateValue(value interface{}, pattern string) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	t, err := parseDateValue(value)
	if err != nil {
		return nil, err
	}
	if pattern == "" {
		pattern = "yyyy-MM-dd"
	}
	return t.Format(translateDateFormat(pattern)), nil
}
