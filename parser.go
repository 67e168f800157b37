package calc

import (
	"fmt"
	"strconv"
	"strings"
)

// ParserContext provides context for parsing relative references
type ParserContext struct {
	// Anchor is the cell holding the formula. R1C1 relative offsets are
	// taken from it.
	Anchor CellAddress
	// ResolveSheet maps a sheet qualifier to its ID. it may intern names
	// that do not exist yet.
	ResolveSheet func(name string) SheetID
}

// Parser parses tokens into an AST
type Parser struct {
	formula string
	tokens  []Token
	pos     int
	dialect Dialect
	context *ParserContext
}

// Parse tokenizes and parses formula text, with or without the leading '='.
// It returns the tree and the dialect the text was read in.
func Parse(formula string, dialect Dialect, context *ParserContext) (ASTNode, Dialect, error) {
	lexer := NewLexer(formula, dialect)
	tokens, err := lexer.Tokenize()
	if err != nil {
		return nil, lexer.Dialect(), err
	}
	if context == nil {
		context = &ParserContext{}
	}
	p := &Parser{formula: formula, tokens: tokens, dialect: lexer.Dialect(), context: context}
	node, err := p.Parse()
	return node, p.dialect, err
}

// Parse parses the tokens into an AST
func (p *Parser) Parse() (ASTNode, error) {
	if len(p.tokens) == 0 {
		return nil, p.errorAt(0, "empty formula")
	}
	if p.peek().Type == TokenEquals {
		p.pos++
	}

	node, err := p.parseComparison()
	if err != nil {
		return nil, err
	}

	// ensure we've consumed all tokens except EOF
	if tok := p.peek(); tok.Type != TokenEOF {
		return nil, p.errorAt(tok.Pos, fmt.Sprintf("unexpected token after expression: %s", tok.Value))
	}
	return node, nil
}

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF, Pos: len([]rune(p.formula))}
	}
	return p.tokens[p.pos]
}

func (p *Parser) errorAt(pos int, message string) *ParseError {
	return &ParseError{Formula: p.formula, Position: pos, Message: message}
}

func span(left, right ASTNode) NodePosition {
	return NodePosition{Start: left.GetPosition().Start, End: right.GetPosition().End}
}

var comparisonOps = map[string]BinaryOp{
	"=":  BinOpEqual,
	"<>": BinOpNotEqual,
	"<":  BinOpLess,
	"<=": BinOpLessEqual,
	">":  BinOpGreater,
	">=": BinOpGreaterEqual,
}

// parseComparison handles comparison operators (lowest precedence)
func (p *Parser) parseComparison() (ASTNode, error) {
	left, err := p.parseConcatenation()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()
		op, ok := comparisonOps[tok.Value]
		if tok.Type != TokenBinaryOp || !ok {
			return left, nil
		}
		p.pos++
		right, err := p.parseConcatenation()
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Op: op, Left: left, Right: right, Position: span(left, right)}
	}
}

// parseConcatenation handles string concatenation operator
func (p *Parser) parseConcatenation() (ASTNode, error) {
	left, err := p.parseAddition()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()
		if tok.Type != TokenBinaryOp || tok.Value != "&" {
			return left, nil
		}
		p.pos++
		right, err := p.parseAddition()
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Op: BinOpConcat, Left: left, Right: right, Position: span(left, right)}
	}
}

// parseAddition handles addition and subtraction
func (p *Parser) parseAddition() (ASTNode, error) {
	left, err := p.parseMultiplication()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()
		if tok.Type != TokenBinaryOp {
			return left, nil
		}
		var op BinaryOp
		switch tok.Value {
		case "+":
			op = BinOpAdd
		case "-":
			op = BinOpSubtract
		default:
			return left, nil
		}
		p.pos++
		right, err := p.parseMultiplication()
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Op: op, Left: left, Right: right, Position: span(left, right)}
	}
}

// parseMultiplication handles multiplication and division
func (p *Parser) parseMultiplication() (ASTNode, error) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()
		if tok.Type != TokenBinaryOp {
			return left, nil
		}
		var op BinaryOp
		switch tok.Value {
		case "*":
			op = BinOpMultiply
		case "/":
			op = BinOpDivide
		default:
			return left, nil
		}
		p.pos++
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Op: op, Left: left, Right: right, Position: span(left, right)}
	}
}

// parsePower handles exponentiation. unary minus binds tighter, so -2^2 is 4.
func (p *Parser) parsePower() (ASTNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	// left-associative: 2^3^2 is (2^3)^2
	for {
		tok := p.peek()
		if tok.Type != TokenBinaryOp || tok.Value != "^" {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Op: BinOpPower, Left: left, Right: right, Position: span(left, right)}
	}
}

// parseUnary handles unary operators
func (p *Parser) parseUnary() (ASTNode, error) {
	tok := p.peek()
	if tok.Type != TokenUnaryPrefixOp {
		return p.parsePostfix()
	}

	op := UnaryOpPlus
	if tok.Value == "-" {
		op = UnaryOpMinus
	}
	p.pos++
	operand, err := p.parseUnary() // recurse for chained unary operators
	if err != nil {
		return nil, err
	}
	return &UnaryOpNode{
		Op:       op,
		Operand:  operand,
		Position: NodePosition{Start: tok.Pos, End: operand.GetPosition().End},
	}, nil
}

// parsePostfix handles postfix operators (percent)
func (p *Parser) parsePostfix() (ASTNode, error) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for p.peek().Type == TokenUnaryPostfixOp {
		endPos := p.peek().Pos + 1
		p.pos++
		node = &UnaryOpNode{
			Op:       UnaryOpPercent,
			Operand:  node,
			Position: NodePosition{Start: node.GetPosition().Start, End: endPos},
		}
	}

	return node, nil
}

// parsePrimary handles primary expressions (literals, references,
// functions, parentheses, arrays)
func (p *Parser) parsePrimary() (ASTNode, error) {
	tok := p.peek()
	position := NodePosition{Start: tok.Pos, End: tok.Pos + len([]rune(tok.Value))}

	switch tok.Type {
	case TokenNumber:
		p.pos++
		val, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, p.errorAt(tok.Pos, fmt.Sprintf("invalid number: %s", tok.Value))
		}
		return &NumberNode{Value: val, Position: position}, nil

	case TokenString:
		p.pos++
		position.End += 2 // quotes
		return &StringNode{Value: tok.Value, Position: position}, nil

	case TokenBoolean:
		p.pos++
		return &BooleanNode{Value: tok.Value == "TRUE", Position: position}, nil

	case TokenError:
		p.pos++
		kind, _ := ParseErrorKind(tok.Value)
		return &ErrorNode{Kind: kind, Position: position}, nil

	case TokenCell, TokenRange:
		p.pos++
		return p.parseReference(tok)

	case TokenIdentifier:
		p.pos++
		return &NamedRangeNode{Name: tok.Value, Position: position}, nil

	case TokenFunction:
		return p.parseFunctionCall()

	case TokenLeftBrace:
		return p.parseArray()

	case TokenLeftParen:
		p.pos++
		node, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		if p.peek().Type != TokenRightParen {
			return nil, p.errorAt(p.peek().Pos, "expected closing parenthesis")
		}
		p.pos++
		return node, nil
	}

	return nil, p.errorAt(tok.Pos, fmt.Sprintf("unexpected token: %s", tok.Type))
}

// parseFunctionCall parses a function call. empty argument slots become
// OmittedNode.
func (p *Parser) parseFunctionCall() (ASTNode, error) {
	funcTok := p.peek()
	p.pos++

	if p.peek().Type != TokenLeftParen {
		return nil, p.errorAt(p.peek().Pos, "expected '(' after function name")
	}
	p.pos++

	args := []ASTNode{}

	// check for empty argument list
	if tok := p.peek(); tok.Type == TokenRightParen {
		p.pos++
		return &FunctionCallNode{
			Name:     funcTok.Value,
			Args:     args,
			Position: NodePosition{Start: funcTok.Pos, End: tok.Pos + 1},
		}, nil
	}

	for {
		tok := p.peek()
		if tok.Type == TokenComma || tok.Type == TokenRightParen {
			args = append(args, &OmittedNode{Position: NodePosition{Start: tok.Pos, End: tok.Pos}})
		} else {
			arg, err := p.parseComparison()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}

		tok = p.peek()
		switch tok.Type {
		case TokenRightParen:
			p.pos++
			return &FunctionCallNode{
				Name:     funcTok.Value,
				Args:     args,
				Position: NodePosition{Start: funcTok.Pos, End: tok.Pos + 1},
			}, nil
		case TokenComma:
			p.pos++
		default:
			return nil, p.errorAt(tok.Pos, "expected ',' or ')' in function arguments")
		}
	}
}

// parseArray parses a constant array literal. columns are separated by ','
// and rows by ';'.
func (p *Parser) parseArray() (ASTNode, error) {
	start := p.peek().Pos
	p.pos++ // consume '{'

	rows := [][]ASTNode{{}}
	for {
		el, err := p.parseArrayElement()
		if err != nil {
			return nil, err
		}
		rows[len(rows)-1] = append(rows[len(rows)-1], el)

		tok := p.peek()
		p.pos++
		switch tok.Type {
		case TokenComma:
		case TokenSemicolon:
			rows = append(rows, []ASTNode{})
		case TokenRightBrace:
			width := len(rows[0])
			for _, row := range rows[1:] {
				if len(row) != width {
					return nil, p.errorAt(tok.Pos, "array literal rows must have the same number of columns")
				}
			}
			return &ArrayNode{Rows: rows, Position: NodePosition{Start: start, End: tok.Pos + 1}}, nil
		default:
			return nil, p.errorAt(tok.Pos, "expected ',', ';' or '}' in array literal")
		}
	}
}

func (p *Parser) parseArrayElement() (ASTNode, error) {
	tok := p.peek()
	sign := 1.0
	start := tok.Pos
	for tok.Type == TokenUnaryPrefixOp {
		if tok.Value == "-" {
			sign = -sign
		}
		p.pos++
		tok = p.peek()
		if tok.Type != TokenUnaryPrefixOp && tok.Type != TokenNumber {
			return nil, p.errorAt(tok.Pos, "expected number after sign in array literal")
		}
	}
	switch tok.Type {
	case TokenNumber, TokenString, TokenBoolean, TokenError:
		node, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		if num, ok := node.(*NumberNode); ok {
			num.Value *= sign
			num.Position.Start = start
		}
		return node, nil
	}
	return nil, p.errorAt(tok.Pos, "array literals may only contain constants")
}

// parseReference turns a cell or range token into a reference node,
// normalizing R1C1 offsets against the anchor.
func (p *Parser) parseReference(tok Token) (ASTNode, error) {
	position := NodePosition{Start: tok.Pos, End: tok.Pos + len([]rune(tok.Value))}
	var sheet SheetID
	if tok.Sheet != "" {
		if p.context.ResolveSheet == nil {
			return &ErrorNode{Kind: ErrorInvalidReference, Position: position}, nil
		}
		sheet = p.context.ResolveSheet(tok.Sheet)
		position.End += len([]rune(tok.Sheet)) + 1
	}

	var node ASTNode
	var ok bool
	if p.dialect == DialectR1C1 {
		node, ok = p.decodeR1C1(tok, sheet, position)
	} else {
		node, ok = p.decodeA1(tok, sheet, position)
	}
	if !ok {
		return nil, p.errorAt(tok.Pos, "invalid reference: "+tok.Value)
	}
	return node, nil
}

func (p *Parser) decodeA1(tok Token, sheet SheetID, position NodePosition) (ASTNode, bool) {
	first, second, isRange := strings.Cut(tok.Value, ":")
	if !isRange {
		ref, ok := ParseA1(first)
		ref.Sheet = sheet
		return &CellRefNode{Ref: ref, Position: position}, ok
	}

	if start, ok := ParseA1(first); ok {
		end, ok := ParseA1(second)
		start.Sheet, end.Sheet = sheet, sheet
		return &RangeNode{Ref: RangeRef{Sheet: sheet, Start: start, End: end, Kind: RangeCells}, Position: position}, ok
	}

	if startRow, startAbs, ok := parseRowNumber(first); ok {
		endRow, endAbs, ok := parseRowNumber(second)
		ref := RangeRef{
			Sheet: sheet,
			Start: CellRef{Sheet: sheet, Row: startRow, RowAbsolute: startAbs},
			End:   CellRef{Sheet: sheet, Row: endRow, RowAbsolute: endAbs, Column: int32(MaxColumns - 1)},
			Kind:  RangeRows,
		}
		return &RangeNode{Ref: ref, Position: position}, ok
	}

	startCol, startAbs, ok := parseColumnLetters(first)
	if !ok {
		return nil, false
	}
	endCol, endAbs, ok := parseColumnLetters(second)
	ref := RangeRef{
		Sheet: sheet,
		Start: CellRef{Sheet: sheet, Column: startCol, ColumnAbsolute: startAbs},
		End:   CellRef{Sheet: sheet, Column: endCol, ColumnAbsolute: endAbs, Row: int32(MaxRows - 1)},
		Kind:  RangeColumns,
	}
	return &RangeNode{Ref: ref, Position: position}, ok
}

func parseRowNumber(s string) (int32, bool, bool) {
	abs := strings.HasPrefix(s, "$")
	n, err := strconv.ParseUint(strings.TrimPrefix(s, "$"), 10, 32)
	if err != nil || n == 0 || n > uint64(MaxRows) {
		return 0, false, false
	}
	return int32(n - 1), abs, true
}

func parseColumnLetters(s string) (int32, bool, bool) {
	abs := strings.HasPrefix(s, "$")
	col, ok := ColumnIndex(strings.TrimPrefix(s, "$"))
	return int32(col), abs, ok
}

func (p *Parser) decodeR1C1(tok Token, sheet SheetID, position NodePosition) (ASTNode, bool) {
	first, second, isRange := strings.Cut(tok.Value, ":")
	if !isRange {
		second = first
	}
	start, startKind, ok := p.decodeR1C1Part(first, sheet)
	if !ok {
		return p.refError(position), true
	}
	end, endKind, ok := p.decodeR1C1Part(second, sheet)
	if !ok {
		return p.refError(position), true
	}
	if startKind != endKind {
		return nil, false
	}

	switch startKind {
	case refCell:
		if !isRange {
			return &CellRefNode{Ref: start, Position: position}, true
		}
		return &RangeNode{Ref: RangeRef{Sheet: sheet, Start: start, End: end, Kind: RangeCells}, Position: position}, true
	case refRow:
		end.Column = int32(MaxColumns - 1)
		return &RangeNode{Ref: RangeRef{Sheet: sheet, Start: start, End: end, Kind: RangeRows}, Position: position}, true
	default:
		end.Row = int32(MaxRows - 1)
		return &RangeNode{Ref: RangeRef{Sheet: sheet, Start: start, End: end, Kind: RangeColumns}, Position: position}, true
	}
}

func (p *Parser) refError(position NodePosition) ASTNode {
	return &ErrorNode{Kind: ErrorInvalidReference, Position: position}
}

// decodeR1C1Part decodes "R[-1]C2", "R3" or "C[1]". it reports false when a
// relative offset leaves the sheet.
func (p *Parser) decodeR1C1Part(s string, sheet SheetID) (CellRef, refKind, bool) {
	ref := CellRef{Sheet: sheet}
	upper := strings.ToUpper(s)
	kind := refCell
	hasRow, hasColumn := false, false

	i := 0
	if i < len(upper) && upper[i] == 'R' {
		hasRow = true
		coord, abs, next, ok := decodeR1C1Coord(upper, i+1, p.context.Anchor.Row, MaxRows)
		if !ok {
			return ref, kind, false
		}
		ref.Row, ref.RowAbsolute, i = coord, abs, next
	}
	if i < len(upper) && upper[i] == 'C' {
		hasColumn = true
		coord, abs, next, ok := decodeR1C1Coord(upper, i+1, p.context.Anchor.Column, MaxColumns)
		if !ok {
			return ref, kind, false
		}
		ref.Column, ref.ColumnAbsolute, i = coord, abs, next
	}
	switch {
	case hasRow && !hasColumn:
		kind = refRow
	case hasColumn && !hasRow:
		kind = refColumn
	}
	return ref, kind, i == len(upper)
}

func decodeR1C1Coord(s string, i int, anchor, limit uint32) (int32, bool, int, bool) {
	if i < len(s) && s[i] == '[' {
		end := strings.IndexByte(s[i:], ']')
		offset, err := strconv.Atoi(s[i+1 : i+end])
		if err != nil {
			return 0, false, i, false
		}
		coord := int64(anchor) + int64(offset)
		if coord < 0 || coord >= int64(limit) {
			return 0, false, i, false
		}
		return int32(coord), false, i + end + 1, true
	}
	j := i
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	if j == i {
		return int32(anchor), false, j, true
	}
	n, err := strconv.ParseUint(s[i:j], 10, 32)
	if err != nil || n == 0 || n > uint64(limit) {
		return 0, false, j, false
	}
	return int32(n - 1), true, j, true
}
