package calc

import (
	"regexp"
	"strings"
)

// TokenType represents different types of tokens in formulas
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenEquals
	TokenNumber
	TokenString
	TokenBoolean
	TokenError
	TokenCell
	TokenRange
	TokenFunction
	TokenIdentifier
	TokenUnaryPrefixOp
	TokenUnaryPostfixOp
	TokenBinaryOp
	TokenComma
	TokenSemicolon
	TokenLeftParen
	TokenRightParen
	TokenLeftBrace
	TokenRightBrace
)

var tokenNames = map[TokenType]string{
	TokenEOF:            "end of formula",
	TokenEquals:         "'='",
	TokenNumber:         "number",
	TokenString:         "string",
	TokenBoolean:        "boolean",
	TokenError:          "error literal",
	TokenCell:           "cell reference",
	TokenRange:          "range reference",
	TokenFunction:       "function",
	TokenIdentifier:     "name",
	TokenUnaryPrefixOp:  "unary operator",
	TokenUnaryPostfixOp: "'%'",
	TokenBinaryOp:       "operator",
	TokenComma:          "','",
	TokenSemicolon:      "';'",
	TokenLeftParen:      "'('",
	TokenRightParen:     "')'",
	TokenLeftBrace:      "'{'",
	TokenRightBrace:     "'}'",
}

func (t TokenType) String() string {
	return tokenNames[t]
}

// BinaryOp represents binary operators in AST nodes
type BinaryOp int

const (
	BinOpAdd BinaryOp = iota
	BinOpSubtract
	BinOpMultiply
	BinOpDivide
	BinOpPower
	BinOpConcat
	BinOpEqual
	BinOpNotEqual
	BinOpLess
	BinOpLessEqual
	BinOpGreater
	BinOpGreaterEqual
)

var binaryOpText = map[BinaryOp]string{
	BinOpAdd:          "+",
	BinOpSubtract:     "-",
	BinOpMultiply:     "*",
	BinOpDivide:       "/",
	BinOpPower:        "^",
	BinOpConcat:       "&",
	BinOpEqual:        "=",
	BinOpNotEqual:     "<>",
	BinOpLess:         "<",
	BinOpLessEqual:    "<=",
	BinOpGreater:      ">",
	BinOpGreaterEqual: ">=",
}

func (op BinaryOp) String() string { return binaryOpText[op] }

// UnaryOp represents unary operators in AST nodes
type UnaryOp int

const (
	UnaryOpPlus UnaryOp = iota
	UnaryOpMinus
	UnaryOpPercent
)

// character classification constants. slightly easier to read.
const (
	charNull       = 0
	charTab        = '\t'
	charNewline    = '\n'
	charReturn     = '\r'
	charSpace      = ' '
	charQuote      = '"'
	charApostrophe = '\''
	charPercent    = '%'
	charAmpersand  = '&'
	charLParen     = '('
	charRParen     = ')'
	charLBrace     = '{'
	charRBrace     = '}'
	charLBracket   = '['
	charRBracket   = ']'
	charAsterisk   = '*'
	charPlus       = '+'
	charComma      = ','
	charSemicolon  = ';'
	charMinus      = '-'
	charPeriod     = '.'
	charSlash      = '/'
	charColon      = ':'
	charLess       = '<'
	charEqual      = '='
	charGreater    = '>'
	charCaret      = '^'
	charUnderscore = '_'
	charExclaim    = '!'
	charDollar     = '$'
	charHash       = '#'
)

// TokenState represents the lexer state for validation
type TokenState int

const (
	StateStart TokenState = iota
	StateAfterEquals
	StateAfterValue
	StateAfterOperator
	StateAfterLeftParen
	StateAfterComma
	StateAfterFunction
	StateAfterLeftBrace
	StateAfterArraySeparator
)

// operand tokens are valid wherever an expression may begin
var operandTokens = []TokenType{
	TokenNumber, TokenString, TokenBoolean, TokenError, TokenCell, TokenRange,
	TokenIdentifier, TokenFunction, TokenLeftParen, TokenLeftBrace, TokenUnaryPrefixOp,
}

// array elements are constants only
var arrayElementTokens = []TokenType{
	TokenNumber, TokenString, TokenBoolean, TokenError, TokenUnaryPrefixOp,
}

// tokenTransitions maps the current state to valid next token types
var tokenTransitions = map[TokenState]map[TokenType]bool{
	StateStart:       transitionSet(operandTokens, TokenEquals),
	StateAfterEquals: transitionSet(operandTokens),
	StateAfterValue: transitionSet(nil,
		TokenBinaryOp, TokenUnaryPostfixOp, TokenRightParen, TokenComma,
		TokenSemicolon, TokenRightBrace, TokenEOF),
	StateAfterOperator: transitionSet(operandTokens),
	// a comma or ')' right after '(' is an omitted argument
	StateAfterLeftParen:      transitionSet(operandTokens, TokenRightParen, TokenComma),
	StateAfterComma:          transitionSet(operandTokens, TokenRightParen, TokenComma),
	StateAfterFunction:       transitionSet(nil, TokenLeftParen),
	StateAfterLeftBrace:      transitionSet(arrayElementTokens),
	StateAfterArraySeparator: transitionSet(arrayElementTokens),
}

func transitionSet(base []TokenType, extra ...TokenType) map[TokenType]bool {
	set := make(map[TokenType]bool, len(base)+len(extra))
	for _, t := range base {
		set[t] = true
	}
	for _, t := range extra {
		set[t] = true
	}
	return set
}

// Token represents a lexical token with position information. For cell and
// range tokens Sheet holds the unquoted sheet qualifier, if any, and Value
// the address part.
type Token struct {
	Type  TokenType
	Value string
	Sheet string
	Pos   int // rune position in input
}

// Lexer tokenizes spreadsheet formula expressions in either dialect
type Lexer struct {
	input      string
	runes      []rune // UTF-8 aware representation
	pos        int
	state      TokenState
	parenDepth int
	braceDepth int
	dialect    Dialect
	done       bool
}

// NewLexer creates a lexer for input. DialectAuto is resolved up front with
// DetectDialect.
func NewLexer(input string, dialect Dialect) *Lexer {
	if dialect == DialectAuto {
		dialect = DetectDialect(input)
	}
	return &Lexer{
		input:   input,
		runes:   []rune(input), // runes for UTF-8 support. could do without but a real pain
		state:   StateStart,
		dialect: dialect,
	}
}

// Dialect reports the dialect the lexer reads.
func (l *Lexer) Dialect() Dialect {
	return l.dialect
}

var (
	quotedSegment  = regexp.MustCompile(`"(?:[^"]|"")*"|'(?:[^']|'')*'`)
	r1c1Bracketed  = regexp.MustCompile(`(?i)(?:^|[^A-Za-z0-9_.])(?:R\[-?\d+\]|(?:R\d*)?C\[-?\d+\])`)
	r1c1Coordinate = regexp.MustCompile(`(?i)(?:^|[^A-Za-z0-9_.$])R\d+C\d+(?:[^A-Za-z0-9_.(]|$)`)
)

// DetectDialect picks R1C1 when the formula contains a bracketed relative
// offset or an RnCn style address outside of string literals and quoted
// sheet names, and A1 otherwise.
func DetectDialect(formula string) Dialect {
	stripped := quotedSegment.ReplaceAllString(formula, `""`)
	if r1c1Bracketed.MatchString(stripped) || r1c1Coordinate.MatchString(stripped) {
		return DialectR1C1
	}
	return DialectA1
}

// Tokenize tokenizes the entire input, including a trailing EOF token.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}

// Next returns the next validated token. After EOF it keeps returning EOF.
func (l *Lexer) Next() (Token, error) {
	if l.done {
		return Token{Type: TokenEOF, Pos: len(l.runes)}, nil
	}
	tok, err := l.nextToken()
	if err != nil {
		return Token{}, err
	}
	if !l.validateTransition(tok.Type) {
		if tok.Type == TokenEOF {
			return Token{}, l.errorAt(tok.Pos, "unexpected end of formula")
		}
		return Token{}, l.errorAt(tok.Pos, "unexpected "+describeToken(tok))
	}
	l.updateState(tok.Type)
	if tok.Type == TokenEOF {
		if l.parenDepth > 0 {
			return Token{}, l.errorAt(tok.Pos, "unbalanced parentheses: missing closing parenthesis")
		}
		if l.braceDepth > 0 {
			return Token{}, l.errorAt(tok.Pos, "unclosed array literal")
		}
		l.done = true
	}
	return tok, nil
}

// describeToken names a token for diagnostics. Punctuation is its own
// name, so only the quoted text is shown.
func describeToken(tok Token) string {
	text := "'" + tok.Value + "'"
	if tok.Sheet != "" {
		text = "'" + tok.Sheet + "!" + tok.Value + "'"
	}
	if name := tok.Type.String(); name != text {
		return name + " " + text
	}
	return text
}

func (l *Lexer) errorAt(pos int, message string) *ParseError {
	return &ParseError{Formula: l.input, Position: pos, Message: message}
}

// validateTransition checks if the token type is valid in current state
func (l *Lexer) validateTransition(tokenType TokenType) bool {
	validTokens, exists := tokenTransitions[l.state]
	if !exists {
		return false
	}
	if l.braceDepth > 0 && l.state == StateAfterValue {
		// inside an array literal only separators and '}' may follow a value
		switch tokenType {
		case TokenComma, TokenSemicolon, TokenRightBrace:
			return true
		default:
			return false
		}
	}
	if tokenType == TokenSemicolon || tokenType == TokenRightBrace {
		return l.braceDepth > 0 && validTokens[tokenType]
	}
	return validTokens[tokenType]
}

// updateState updates the lexer state based on the token type
func (l *Lexer) updateState(tokenType TokenType) {
	switch tokenType {
	case TokenEquals:
		l.state = StateAfterEquals
	case TokenNumber, TokenString, TokenBoolean, TokenError, TokenCell, TokenRange, TokenIdentifier:
		l.state = StateAfterValue
	case TokenUnaryPrefixOp, TokenBinaryOp:
		l.state = StateAfterOperator
	case TokenUnaryPostfixOp:
		// postfix operators don't change state
	case TokenLeftParen:
		l.state = StateAfterLeftParen
	case TokenRightParen:
		l.state = StateAfterValue
	case TokenRightBrace:
		l.braceDepth--
		l.state = StateAfterValue
	case TokenComma:
		if l.braceDepth > 0 {
			l.state = StateAfterArraySeparator
		} else {
			l.state = StateAfterComma
		}
	case TokenSemicolon:
		l.state = StateAfterArraySeparator
	case TokenLeftBrace:
		l.braceDepth++
		l.state = StateAfterLeftBrace
	case TokenFunction:
		l.state = StateAfterFunction
	}
}

// nextToken returns the next raw token from the input
func (l *Lexer) nextToken() (Token, error) {
	l.skipWhitespace()

	if l.pos >= len(l.runes) {
		return Token{Type: TokenEOF, Pos: l.pos}, nil
	}

	startPos := l.pos
	ch := l.current()

	switch {
	case ch == charQuote:
		return l.scanString()
	case ch == charApostrophe:
		return l.scanQuotedSheetReference()
	case ch == charHash:
		return l.scanErrorLiteral()
	case l.isDigit(ch) || (ch == charPeriod && l.isDigit(l.peek(1))):
		if tok, ok := l.tryScanRowRange(); ok {
			return tok, nil
		}
		return l.scanNumber(), nil
	case ch == charDollar:
		if tok, ok := l.tryScanRowRange(); ok {
			return tok, nil
		}
		return l.scanReferenceOrIdentifier()
	case l.isIdentStart(ch):
		return l.scanReferenceOrIdentifier()
	}

	// check for operators and special characters
	switch ch {
	case charLParen:
		l.pos++
		l.parenDepth++
		return Token{Type: TokenLeftParen, Value: "(", Pos: startPos}, nil
	case charRParen:
		l.pos++
		l.parenDepth--
		if l.parenDepth < 0 {
			return Token{}, l.errorAt(startPos, "unbalanced parentheses: too many closing parentheses")
		}
		return Token{Type: TokenRightParen, Value: ")", Pos: startPos}, nil
	case charLBrace:
		if l.braceDepth > 0 {
			return Token{}, l.errorAt(startPos, "nested array literal")
		}
		l.pos++
		return Token{Type: TokenLeftBrace, Value: "{", Pos: startPos}, nil
	case charRBrace:
		l.pos++
		return Token{Type: TokenRightBrace, Value: "}", Pos: startPos}, nil
	case charComma:
		l.pos++
		return Token{Type: TokenComma, Value: ",", Pos: startPos}, nil
	case charSemicolon:
		l.pos++
		return Token{Type: TokenSemicolon, Value: ";", Pos: startPos}, nil
	case charPlus, charMinus:
		return l.scanUnaryPrefixOrBinaryOp(), nil
	case charAsterisk, charSlash, charCaret, charAmpersand, charLess, charGreater:
		return l.scanBinaryOp(), nil
	case charPercent:
		l.pos++
		return Token{Type: TokenUnaryPostfixOp, Value: "%", Pos: startPos}, nil
	case charEqual:
		l.pos++
		// distinguish between formula prefix = and comparison operator =
		if l.state == StateStart {
			return Token{Type: TokenEquals, Value: "=", Pos: startPos}, nil
		}
		return Token{Type: TokenBinaryOp, Value: "=", Pos: startPos}, nil
	}

	return Token{}, l.errorAt(startPos, "unexpected character: "+string(ch))
}

// helper methods for character navigation and classification

// substring returns a substring of the original input based on rune positions
func (l *Lexer) substring(start, end int) string {
	if start < 0 || end > len(l.runes) || start > end {
		return ""
	}
	return string(l.runes[start:end])
}

func (l *Lexer) current() rune {
	if l.pos >= len(l.runes) {
		return charNull
	}
	return l.runes[l.pos]
}

func (l *Lexer) peek(offset int) rune {
	pos := l.pos + offset
	if pos >= len(l.runes) || pos < 0 {
		return charNull
	}
	return l.runes[pos]
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.runes) {
		ch := l.current()
		if ch == charSpace || ch == charTab || ch == charNewline || ch == charReturn {
			l.pos++
		} else {
			break
		}
	}
}

func (l *Lexer) isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func (l *Lexer) isAlpha(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func (l *Lexer) isIdentStart(ch rune) bool {
	return l.isAlpha(ch) || ch == charUnderscore || ch == '\\' || ch > 127
}

func (l *Lexer) isWordRune(ch rune) bool {
	return l.isAlpha(ch) || l.isDigit(ch) || ch == charUnderscore || ch == charPeriod || ch == charDollar || ch == '\\' || ch > 127
}

// scanNumber scans a number token including decimals and scientific notation
func (l *Lexer) scanNumber() Token {
	startPos := l.pos

	// scan integer part
	for l.pos < len(l.runes) && l.isDigit(l.current()) {
		l.pos++
	}

	// check for decimal part
	if l.current() == charPeriod {
		l.pos++ // consume '.'
		for l.pos < len(l.runes) && l.isDigit(l.current()) {
			l.pos++
		}
	}

	// check for scientific notation (e or E)
	if l.current() == 'e' || l.current() == 'E' {
		savedPos := l.pos
		l.pos++ // consume 'e' or 'E'

		// optional + or - sign
		if l.current() == charPlus || l.current() == charMinus {
			l.pos++
		}

		// must have at least one digit after e/E
		if !l.isDigit(l.current()) {
			// not scientific notation, restore position
			l.pos = savedPos
		} else {
			for l.pos < len(l.runes) && l.isDigit(l.current()) {
				l.pos++
			}
		}
	}

	return Token{Type: TokenNumber, Value: l.substring(startPos, l.pos), Pos: startPos}
}

// scanString scans a string literal with support for double-quote escapes
func (l *Lexer) scanString() (Token, error) {
	startPos := l.pos
	l.pos++ // consume opening quote

	var result []rune
	for l.pos < len(l.runes) {
		ch := l.current()
		if ch == charQuote {
			// check if it's an escape sequence (double quote)
			if l.peek(1) == charQuote {
				result = append(result, charQuote)
				l.pos += 2
				continue
			}
			l.pos++ // consume closing quote
			return Token{Type: TokenString, Value: string(result), Pos: startPos}, nil
		}
		result = append(result, ch)
		l.pos++
	}

	return Token{}, l.errorAt(startPos, "unclosed string literal")
}

// errorLiterals are matched longest first
var errorLiterals = []string{"#GETTING_DATA", "#DIV/0!", "#VALUE!", "#NAME?", "#NUM!", "#REF!", "#N/A"}

// scanErrorLiteral scans #DIV/0! and friends
func (l *Lexer) scanErrorLiteral() (Token, error) {
	startPos := l.pos
	rest := strings.ToUpper(l.substring(l.pos, len(l.runes)))
	for _, lit := range errorLiterals {
		if strings.HasPrefix(rest, lit) {
			l.pos += len([]rune(lit))
			return Token{Type: TokenError, Value: lit, Pos: startPos}, nil
		}
	}
	return Token{}, l.errorAt(startPos, "unknown error literal")
}

// scanQuotedSheetReference scans 'Sheet Name'!A1 style references
func (l *Lexer) scanQuotedSheetReference() (Token, error) {
	startPos := l.pos
	l.pos++ // consume opening single quote

	var name []rune
	for {
		if l.pos >= len(l.runes) {
			return Token{}, l.errorAt(startPos, "unclosed sheet name")
		}
		ch := l.current()
		if ch == charApostrophe {
			if l.peek(1) == charApostrophe {
				name = append(name, charApostrophe)
				l.pos += 2
				continue
			}
			l.pos++
			break
		}
		name = append(name, ch)
		l.pos++
	}

	if l.current() != charExclaim {
		return Token{}, l.errorAt(startPos, "expected '!' after sheet name")
	}
	l.pos++ // consume !
	if len(name) == 0 {
		return Token{}, l.errorAt(startPos, "empty sheet name")
	}
	return l.scanQualifiedReference(startPos, string(name))
}

// scanReferenceOrIdentifier scans identifiers, functions, cells, ranges,
// booleans and unquoted sheet qualifiers
func (l *Lexer) scanReferenceOrIdentifier() (Token, error) {
	startPos := l.pos
	word := l.scanWord()

	// check if it's a worksheet qualifier (identifier followed by !)
	if l.current() == charExclaim {
		l.pos++
		return l.scanQualifiedReference(startPos, word)
	}

	upper := strings.ToUpper(word)

	// check if it's a function (followed by open paren)
	if l.current() == charLParen && !strings.Contains(word, "$") {
		if l.dialect == DialectA1 || !looksLikeR1C1(word) {
			return Token{Type: TokenFunction, Value: upper, Pos: startPos}, nil
		}
	}

	if upper == "TRUE" || upper == "FALSE" {
		return Token{Type: TokenBoolean, Value: upper, Pos: startPos}, nil
	}

	if tok, ok := l.finishReference(startPos, "", word); ok {
		return tok, nil
	}

	if strings.Contains(word, "$") {
		return Token{}, l.errorAt(startPos, "invalid reference: "+word)
	}

	// it's an identifier (possibly a named range)
	return Token{Type: TokenIdentifier, Value: word, Pos: startPos}, nil
}

// scanQualifiedReference scans the address following "Sheet!".
func (l *Lexer) scanQualifiedReference(startPos int, sheet string) (Token, error) {
	if l.dialect == DialectA1 {
		if l.isDigit(l.current()) || (l.current() == charDollar && l.isDigit(l.peek(1))) {
			if tok, ok := l.tryScanRowRange(); ok {
				tok.Sheet = sheet
				tok.Pos = startPos
				return tok, nil
			}
		}
	}
	word := l.scanWord()
	if tok, ok := l.finishReference(startPos, sheet, word); ok {
		return tok, nil
	}
	return Token{}, l.errorAt(startPos, "invalid reference after sheet "+sheet)
}

// scanWord consumes a run of word characters. in R1C1 mode bracketed
// offsets such as R[-1] are part of the word.
func (l *Lexer) scanWord() string {
	start := l.pos
	for l.pos < len(l.runes) {
		ch := l.current()
		if l.isWordRune(ch) {
			l.pos++
			continue
		}
		if ch == charLBracket && l.dialect == DialectR1C1 {
			end := l.pos + 1
			if end < len(l.runes) && l.runes[end] == charMinus {
				end++
			}
			digits := end
			for end < len(l.runes) && l.isDigit(l.runes[end]) {
				end++
			}
			if end > digits && end < len(l.runes) && l.runes[end] == charRBracket {
				l.pos = end + 1
				continue
			}
		}
		break
	}
	return l.substring(start, l.pos)
}

// finishReference classifies word as a cell, a whole row/column or the start
// of a range, consuming a ":second" part when one follows.
func (l *Lexer) finishReference(startPos int, sheet, word string) (Token, bool) {
	kind := l.referenceKind(word)
	if kind == refNone {
		return Token{}, false
	}
	if l.current() == charColon {
		saved := l.pos
		l.pos++
		second := l.scanWord()
		if l.referenceKind(second) == kind {
			return Token{Type: TokenRange, Value: word + ":" + second, Sheet: sheet, Pos: startPos}, true
		}
		l.pos = saved
	}
	switch kind {
	case refCell:
		return Token{Type: TokenCell, Value: word, Sheet: sheet, Pos: startPos}, true
	case refRow, refColumn:
		if l.dialect == DialectR1C1 {
			// a bare R2 or C[1] is a whole row or column
			return Token{Type: TokenRange, Value: word, Sheet: sheet, Pos: startPos}, true
		}
	}
	return Token{}, false
}

type refKind int

const (
	refNone refKind = iota
	refCell
	refRow
	refColumn
)

var (
	a1Column   = regexp.MustCompile(`^\$?[A-Za-z]{1,3}$`)
	r1c1Row    = regexp.MustCompile(`^[Rr](\[-?\d+\]|\d*)$`)
	r1c1Column = regexp.MustCompile(`^[Cc](\[-?\d+\]|\d*)$`)
)

func (l *Lexer) referenceKind(word string) refKind {
	if word == "" {
		return refNone
	}
	if l.dialect == DialectR1C1 {
		switch {
		case looksLikeR1C1(word):
			return refCell
		case r1c1Row.MatchString(word):
			return refRow
		case r1c1Column.MatchString(word):
			return refColumn
		}
		return refNone
	}
	if _, ok := ParseA1(word); ok {
		return refCell
	}
	if a1Column.MatchString(word) {
		if _, ok := ColumnIndex(strings.TrimPrefix(word, "$")); ok {
			return refColumn
		}
	}
	return refNone
}

// tryScanRowRange scans A1 whole-row ranges like 1:3 or $2:$2. it restores
// the position and reports false for anything else.
func (l *Lexer) tryScanRowRange() (Token, bool) {
	if l.dialect != DialectA1 {
		return Token{}, false
	}
	startPos := l.pos
	first, ok := l.scanRowNumber()
	if !ok || l.current() != charColon {
		l.pos = startPos
		return Token{}, false
	}
	l.pos++
	second, ok := l.scanRowNumber()
	if !ok || l.isWordRune(l.current()) {
		l.pos = startPos
		return Token{}, false
	}
	return Token{Type: TokenRange, Value: first + ":" + second, Pos: startPos}, true
}

func (l *Lexer) scanRowNumber() (string, bool) {
	start := l.pos
	if l.current() == charDollar {
		l.pos++
	}
	digits := l.pos
	for l.isDigit(l.current()) {
		l.pos++
	}
	if l.pos == digits || l.current() == charPeriod {
		return "", false
	}
	return l.substring(start, l.pos), true
}

// scanUnaryPrefixOrBinaryOp scans + and - which can be either unary
// prefix or binary
func (l *Lexer) scanUnaryPrefixOrBinaryOp() Token {
	startPos := l.pos
	ch := l.current()
	l.pos++

	if l.isUnaryContext() {
		return Token{Type: TokenUnaryPrefixOp, Value: string(ch), Pos: startPos}
	}
	return Token{Type: TokenBinaryOp, Value: string(ch), Pos: startPos}
}

// scanBinaryOp scans binary operators
func (l *Lexer) scanBinaryOp() Token {
	startPos := l.pos
	ch := l.current()
	l.pos++

	// check for two-character operators first
	switch ch {
	case charLess:
		if l.current() == charEqual {
			l.pos++
			return Token{Type: TokenBinaryOp, Value: "<=", Pos: startPos}
		} else if l.current() == charGreater {
			l.pos++
			return Token{Type: TokenBinaryOp, Value: "<>", Pos: startPos}
		}
	case charGreater:
		if l.current() == charEqual {
			l.pos++
			return Token{Type: TokenBinaryOp, Value: ">=", Pos: startPos}
		}
	}
	return Token{Type: TokenBinaryOp, Value: string(ch), Pos: startPos}
}

// isUnaryContext checks if the current context allows for unary operators
func (l *Lexer) isUnaryContext() bool {
	switch l.state {
	case StateStart, StateAfterEquals, StateAfterOperator, StateAfterLeftParen,
		StateAfterComma, StateAfterLeftBrace, StateAfterArraySeparator:
		return true
	default:
		return false
	}
}
