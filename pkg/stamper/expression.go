package stamper

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// Node represents a node in the expression AST
type Node interface {
	String() string
	Evaluate(env *EvalEnv) (interface{}, error)
}

// LiteralNode represents a literal value (string, number, boolean)
type LiteralNode struct {
	Value interface{}
}

func (n *LiteralNode) String() string {
	// Add quotes around string values for proper formatting
	if str, ok := n.Value.(string); ok {
		return fmt.Sprintf("Literal(%q)", str)
	}
	return fmt.Sprintf("Literal(%v)", n.Value)
}

func (n *LiteralNode) Evaluate(env *EvalEnv) (interface{}, error) {
	return n.Value, nil
}

// VariableNode represents a variable reference resolved against the
// scope chain. Unknown variables evaluate to nil.
type VariableNode struct {
	Name string
}

func (n *VariableNode) String() string {
	return fmt.Sprintf("Variable(%s)", n.Name)
}

func (n *VariableNode) Evaluate(env *EvalEnv) (interface{}, error) {
	return env.LookupVariable(n.Name), nil
}

// BinaryOpNode represents a binary operation
type BinaryOpNode struct {
	Left     Node
	Operator string
	Right    Node
}

func (n *BinaryOpNode) String() string {
	return fmt.Sprintf("BinaryOp(%s %s %s)", n.Left.String(), n.Operator, n.Right.String())
}

func (n *BinaryOpNode) Evaluate(env *EvalEnv) (interface{}, error) {
	leftVal, err := n.Left.Evaluate(env)
	if err != nil {
		return nil, err
	}

	rightVal, err := n.Right.Evaluate(env)
	if err != nil {
		return nil, err
	}

	return EvaluateBinaryOperation(leftVal, n.Operator, rightVal)
}

// UnaryOpNode represents a unary operation
type UnaryOpNode struct {
	Operator string
	Operand  Node
}

func (n *UnaryOpNode) String() string {
	return fmt.Sprintf("UnaryOp(%s %s)", n.Operator, n.Operand.String())
}

func (n *UnaryOpNode) Evaluate(env *EvalEnv) (interface{}, error) {
	operandVal, err := n.Operand.Evaluate(env)
	if err != nil {
		return nil, err
	}

	switch n.Operator {
	case "!":
		return !isTruthy(operandVal), nil
	case "-":
		return evaluateUnaryMinus(operandVal)
	case "+":
		return evaluateUnaryPlus(operandVal)
	default:
		return nil, fmt.Errorf("unknown unary operator: %s", n.Operator)
	}
}

// FieldAccessNode represents field access (obj.field)
type FieldAccessNode struct {
	Object Node
	Field  string
}

func (n *FieldAccessNode) String() string {
	return fmt.Sprintf("FieldAccess(%s.%s)", n.Object.String(), n.Field)
}

func (n *FieldAccessNode) Evaluate(env *EvalEnv) (interface{}, error) {
	obj, err := n.Object.Evaluate(env)
	if err != nil {
		return nil, err
	}
	return accessField(obj, n.Field), nil
}

// IndexAccessNode represents index access (obj[index])
type IndexAccessNode struct {
	Object Node
	Index  Node
}

func (n *IndexAccessNode) String() string {
	return fmt.Sprintf("IndexAccess(%s[%s])", n.Object.String(), n.Index.String())
}

func (n *IndexAccessNode) Evaluate(env *EvalEnv) (interface{}, error) {
	obj, err := n.Object.Evaluate(env)
	if err != nil {
		return nil, err
	}

	indexVal, err := n.Index.Evaluate(env)
	if err != nil {
		return nil, err
	}

	// Handle string keys and integer indices
	switch idx := indexVal.(type) {
	case int:
		return accessArrayIndex(obj, idx), nil
	case string:
		return accessField(obj, idx), nil
	case float64:
		// Convert float to int for array access
		return accessArrayIndex(obj, int(idx)), nil
	default:
		return nil, fmt.Errorf("invalid index type: %T", indexVal)
	}
}

// FunctionCallNode represents an operation call dispatched through the
// registry. Argument values are evaluated left to right and their
// dynamic types drive overload resolution; a nil argument contributes
// an unknown type.
type FunctionCallNode struct {
	Name string
	Args []Node
}

func (n *FunctionCallNode) String() string {
	args := make([]string, len(n.Args))
	for i, arg := range n.Args {
		args[i] = arg.String()
	}
	return fmt.Sprintf("FunctionCall(%s, [%s])", n.Name, strings.Join(args, ", "))
}

func (n *FunctionCallNode) Evaluate(env *EvalEnv) (interface{}, error) {
	args := make([]interface{}, len(n.Args))
	types := make([]reflect.Type, len(n.Args))
	for i, arg := range n.Args {
		val, err := arg.Evaluate(env)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate argument %d for %s: %w", i, n.Name, err)
		}
		args[i] = val
		if val != nil {
			types[i] = reflect.TypeOf(val)
		}
	}

	exec, ok := env.ResolveOperation(n.Name, types)
	if !ok {
		return nil, &UnknownOperationError{Name: n.Name, ArgTypes: types}
	}

	return exec.Execute(args)
}

// ExpressionToken represents a token in an expression
type ExpressionToken struct {
	Type  ExpressionTokenType
	Value string
	Pos   int
}

type ExpressionTokenType int

const (
	ExprTokenIdentifier ExpressionTokenType = iota
	ExprTokenNumber
	ExprTokenString
	ExprTokenOperator
	ExprTokenLeftParen
	ExprTokenRightParen
	ExprTokenComma
	ExprTokenEOF
	ExprTokenInvalid
)

var (
	// Regular expressions for tokenizing expressions
	identifierRegex  = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*`)
	numberRegex      = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?`)
	stringRegex      = regexp.MustCompile(`^"([^"\\]|\\.)*"`)
	singleQuoteRegex = regexp.MustCompile(`^'([^'\\]|\\.)*'`)
	// Word autocorrects straight quotes inside comments to typographic
	// ones, so those count as string delimiters too.
	// German quotes: „..." with closing " (U+201C), " (U+201D) or ASCII ".
	germanQuoteRegex = regexp.MustCompile("^\xe2\x80\x9e([^\xe2\x80\x9c\xe2\x80\x9d\"\\\\]|\\\\.)*[\xe2\x80\x9c\xe2\x80\x9d\"]")
	// Curly quotes: "..." (U+201C opening, U+201D closing).
	curlyQuoteRegex = regexp.MustCompile("^\xe2\x80\x9c([^\xe2\x80\x9c\xe2\x80\x9d\\\\]|\\\\.)*\xe2\x80\x9d")
	// French/Swiss quotes: »...« (U+00BB and U+00AB)
	frenchQuoteRegex = regexp.MustCompile(`^»([^«\\]|\\.)*«`)
	operatorRegex    = regexp.MustCompile(`^(==|!=|<=|>=|\+|\-|\*|\/|\%|\&|\||\!|<|>|=)`)
	leadingDotRegex  = regexp.MustCompile(`^\.[0-9]+`)
)

// TokenizeExpression tokenizes an expression string
func TokenizeExpression(expr string) ([]ExpressionToken, error) {
	var tokens []ExpressionToken
	pos := 0

	for pos < len(expr) {
		// Skip whitespace
		if expr[pos] == ' ' || expr[pos] == '\t' || expr[pos] == '\n' || expr[pos] == '\r' {
			pos++
			continue
		}

		remaining := expr[pos:]

		// Try to match identifiers (variables, function names, keywords)
		if match := identifierRegex.FindString(remaining); match != "" {
			tokens = append(tokens, ExpressionToken{
				Type:  ExprTokenIdentifier,
				Value: match,
				Pos:   pos,
			})
			pos += len(match)
			continue
		}

		// Try to match numbers
		if match := numberRegex.FindString(remaining); match != "" {
			tokens = append(tokens, ExpressionToken{
				Type:  ExprTokenNumber,
				Value: match,
				Pos:   pos,
			})
			pos += len(match)
			continue
		}

		// Try to match double-quoted strings
		if match := stringRegex.FindString(remaining); match != "" {
			value := match[1 : len(match)-1]
			value = strings.ReplaceAll(value, `\"`, `"`)
			value = strings.ReplaceAll(value, `\\`, `\`)
			tokens = append(tokens, ExpressionToken{
				Type:  ExprTokenString,
				Value: value,
				Pos:   pos,
			})
			pos += len(match)
			continue
		}

		// Try to match single-quoted strings
		if match := singleQuoteRegex.FindString(remaining); match != "" {
			value := match[1 : len(match)-1]
			value = strings.ReplaceAll(value, `\'`, `'`)
			value = strings.ReplaceAll(value, `\\`, `\`)
			tokens = append(tokens, ExpressionToken{
				Type:  ExprTokenString,
				Value: value,
				Pos:   pos,
			})
			pos += len(match)
			continue
		}

		// Try to match German typographic quotes: „..."
		if match := germanQuoteRegex.FindString(remaining); match != "" {
			value := string([]rune(match)[1 : len([]rune(match))-1])
			value = strings.ReplaceAll(value, `\"`, `"`)
			value = strings.ReplaceAll(value, `\\`, `\`)
			tokens = append(tokens, ExpressionToken{
				Type:  ExprTokenString,
				Value: value,
				Pos:   pos,
			})
			pos += len(match)
			continue
		}

		// Try to match curly quotes: "..."
		if match := curlyQuoteRegex.FindString(remaining); match != "" {
			value := string([]rune(match)[1 : len([]rune(match))-1])
			value = strings.ReplaceAll(value, `\"`, `"`)
			value = strings.ReplaceAll(value, `\\`, `\`)
			tokens = append(tokens, ExpressionToken{
				Type:  ExprTokenString,
				Value: value,
				Pos:   pos,
			})
			pos += len(match)
			continue
		}

		// Try to match French/Swiss quotes: »...«
		if match := frenchQuoteRegex.FindString(remaining); match != "" {
			value := string([]rune(match)[1 : len([]rune(match))-1])
			value = strings.ReplaceAll(value, `\"`, `"`)
			value = strings.ReplaceAll(value, `\\`, `\`)
			tokens = append(tokens, ExpressionToken{
				Type:  ExprTokenString,
				Value: value,
				Pos:   pos,
			})
			pos += len(match)
			continue
		}

		// Try to match operators
		if match := operatorRegex.FindString(remaining); match != "" {
			tokens = append(tokens, ExpressionToken{
				Type:  ExprTokenOperator,
				Value: match,
				Pos:   pos,
			})
			pos += len(match)
			continue
		}

		// Handle parentheses
		if expr[pos] == '(' {
			tokens = append(tokens, ExpressionToken{
				Type:  ExprTokenLeftParen,
				Value: "(",
				Pos:   pos,
			})
			pos++
			continue
		}

		if expr[pos] == ')' {
			tokens = append(tokens, ExpressionToken{
				Type:  ExprTokenRightParen,
				Value: ")",
				Pos:   pos,
			})
			pos++
			continue
		}

		// Handle commas
		if expr[pos] == ',' {
			tokens = append(tokens, ExpressionToken{
				Type:  ExprTokenComma,
				Value: ",",
				Pos:   pos,
			})
			pos++
			continue
		}

		// Handle dots for field access
		if expr[pos] == '.' {
			// A decimal number may start with a dot, e.g. .5
			if match := leadingDotRegex.FindString(remaining); match != "" {
				tokens = append(tokens, ExpressionToken{
					Type:  ExprTokenNumber,
					Value: "0" + match,
					Pos:   pos,
				})
				pos += len(match)
				continue
			}
			// Otherwise, treat as operator for field access
			tokens = append(tokens, ExpressionToken{
				Type:  ExprTokenOperator,
				Value: ".",
				Pos:   pos,
			})
			pos++
			continue
		}

		// Handle brackets for array/map access
		if expr[pos] == '[' {
			tokens = append(tokens, ExpressionToken{
				Type:  ExprTokenOperator,
				Value: "[",
				Pos:   pos,
			})
			pos++
			continue
		}

		if expr[pos] == ']' {
			tokens = append(tokens, ExpressionToken{
				Type:  ExprTokenOperator,
				Value: "]",
				Pos:   pos,
			})
			pos++
			continue
		}

		return nil, &ParseError{
			Message:  "unexpected character",
			Token:    string(expr[pos]),
			Position: pos,
		}
	}

	// Add EOF token
	tokens = append(tokens, ExpressionToken{
		Type: ExprTokenEOF,
		Pos:  pos,
	})

	return tokens, nil
}

// maxExpressionDepth caps expression nesting, so a pathological template
// cannot blow the stack through parser recursion.
const maxExpressionDepth = 64

// ParseExpression parses an expression string into an AST. The full
// input must be consumed; trailing tokens are a parse error.
func ParseExpression(expr string) (Node, error) {
	tokens, err := TokenizeExpression(expr)
	if err != nil {
		return nil, err
	}

	parser := &ExpressionParser{
		tokens: tokens,
		pos:    0,
	}

	node, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}

	if parser.current().Type != ExprTokenEOF {
		token := parser.current()
		return nil, &ParseError{
			Message:  "unexpected trailing token",
			Token:    token.Value,
			Position: token.Pos,
		}
	}

	return node, nil
}

// ExpressionParser parses expressions into AST nodes
type ExpressionParser struct {
	tokens []ExpressionToken
	pos    int
	depth  int
}

func (p *ExpressionParser) current() ExpressionToken {
	if p.pos >= len(p.tokens) {
		return ExpressionToken{Type: ExprTokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *ExpressionParser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

func (p *ExpressionParser) errorf(message string) error {
	token := p.current()
	return &ParseError{
		Message:  message,
		Token:    token.Value,
		Position: token.Pos,
	}
}

// parseExpression parses a complete expression
func (p *ExpressionParser) parseExpression() (Node, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxExpressionDepth {
		return nil, p.errorf("expression nesting too deep")
	}
	return p.parseLogicalOr()
}

// parseLogicalOr parses logical OR expressions (lowest precedence)
func (p *ExpressionParser) parseLogicalOr() (Node, error) {
	left, err := p.parseLogicalAnd()
	if err != nil {
		return nil, err
	}

	for p.current().Type == ExprTokenOperator && p.current().Value == "|" {
		op := p.current().Value
		p.advance()
		right, err := p.parseLogicalAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Left: left, Operator: op, Right: right}
	}

	return left, nil
}

// parseLogicalAnd parses logical AND expressions
func (p *ExpressionParser) parseLogicalAnd() (Node, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}

	for p.current().Type == ExprTokenOperator && p.current().Value == "&" {
		op := p.current().Value
		p.advance()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Left: left, Operator: op, Right: right}
	}

	return left, nil
}

// parseEquality parses equality expressions (==, !=)
func (p *ExpressionParser) parseEquality() (Node, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}

	for p.current().Type == ExprTokenOperator && (p.current().Value == "==" || p.current().Value == "!=") {
		op := p.current().Value
		p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Left: left, Operator: op, Right: right}
	}

	return left, nil
}

// parseComparison parses comparison expressions (<, >, <=, >=)
func (p *ExpressionParser) parseComparison() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	for p.current().Type == ExprTokenOperator &&
		(p.current().Value == "<" || p.current().Value == ">" ||
			p.current().Value == "<=" || p.current().Value == ">=") {
		op := p.current().Value
		p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Left: left, Operator: op, Right: right}
	}

	return left, nil
}

// parseTerm parses addition and subtraction (lower precedence)
func (p *ExpressionParser) parseTerm() (Node, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}

	for p.current().Type == ExprTokenOperator && (p.current().Value == "+" || p.current().Value == "-") {
		op := p.current().Value
		p.advance()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Left: left, Operator: op, Right: right}
	}

	return left, nil
}

// parseFactor parses multiplication, division, and modulo (higher precedence)
func (p *ExpressionParser) parseFactor() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for p.current().Type == ExprTokenOperator &&
		(p.current().Value == "*" || p.current().Value == "/" || p.current().Value == "%") {
		op := p.current().Value
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Left: left, Operator: op, Right: right}
	}

	return left, nil
}

// parseUnary parses unary expressions (!, -, +)
func (p *ExpressionParser) parseUnary() (Node, error) {
	if p.current().Type == ExprTokenOperator &&
		(p.current().Value == "!" || p.current().Value == "-" || p.current().Value == "+") {
		op := p.current().Value
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryOpNode{Operator: op, Operand: operand}, nil
	}

	return p.parseFieldAccess()
}

// parseFieldAccess parses field access expressions (obj.field, obj[key])
func (p *ExpressionParser) parseFieldAccess() (Node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		if p.current().Type == ExprTokenOperator && p.current().Value == "." {
			p.advance() // consume '.'
			if p.current().Type != ExprTokenIdentifier {
				return nil, p.errorf("expected identifier after '.'")
			}
			field := p.current().Value
			p.advance()
			left = &FieldAccessNode{Object: left, Field: field}
		} else if p.current().Type == ExprTokenOperator && p.current().Value == "[" {
			p.advance() // consume '['
			index, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if p.current().Type != ExprTokenOperator || p.current().Value != "]" {
				return nil, p.errorf("expected ']' after array index")
			}
			p.advance() // consume ']'
			left = &IndexAccessNode{Object: left, Index: index}
		} else {
			break
		}
	}

	return left, nil
}

// parsePrimary parses primary expressions (literals, variables, parenthesized expressions)
func (p *ExpressionParser) parsePrimary() (Node, error) {
	token := p.current()

	switch token.Type {
	case ExprTokenNumber:
		p.advance()
		// Try to parse as integer first
		if intVal, err := strconv.Atoi(token.Value); err == nil {
			return &LiteralNode{Value: intVal}, nil
		}
		// Otherwise parse as float
		if floatVal, err := strconv.ParseFloat(token.Value, 64); err == nil {
			return &LiteralNode{Value: floatVal}, nil
		}
		return nil, p.errorf("invalid number")

	case ExprTokenString:
		p.advance()
		return &LiteralNode{Value: token.Value}, nil

	case ExprTokenIdentifier:
		p.advance()
		// Check if this is a boolean literal
		if token.Value == "true" {
			return &LiteralNode{Value: true}, nil
		}
		if token.Value == "false" {
			return &LiteralNode{Value: false}, nil
		}
		if token.Value == "null" || token.Value == "nil" {
			return &LiteralNode{Value: nil}, nil
		}

		// Check for function call
		if p.current().Type == ExprTokenLeftParen {
			return p.parseFunctionCall(token.Value)
		}

		// Otherwise it's a variable
		return &VariableNode{Name: token.Value}, nil

	case ExprTokenLeftParen:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if p.current().Type != ExprTokenRightParen {
			return nil, p.errorf("expected ')' after expression")
		}
		p.advance()
		return expr, nil

	default:
		return nil, p.errorf("unexpected token")
	}
}

// parseFunctionCall parses a function call
func (p *ExpressionParser) parseFunctionCall(name string) (Node, error) {
	if p.current().Type != ExprTokenLeftParen {
		return nil, p.errorf("expected '(' after function name")
	}
	p.advance() // consume '('

	var args []Node

	// Handle empty argument list
	if p.current().Type == ExprTokenRightParen {
		p.advance()
		return &FunctionCallNode{Name: name, Args: args}, nil
	}

	// Parse arguments
	for {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		if p.current().Type == ExprTokenComma {
			p.advance()
			continue
		}

		if p.current().Type == ExprTokenRightParen {
			p.advance()
			break
		}

		return nil, p.errorf("expected ',' or ')' in function arguments")
	}

	return &FunctionCallNode{Name: name, Args: args}, nil
}
