package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenTypes(tokens []Token) []TokenType {
	out := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Type
	}
	return out
}

func TestLexerTokens(t *testing.T) {
	tests := []struct {
		formula string
		want    []TokenType
	}{
		{"=1+2", []TokenType{TokenEquals, TokenNumber, TokenBinaryOp, TokenNumber, TokenEOF}},
		{"=-A1", []TokenType{TokenEquals, TokenUnaryPrefixOp, TokenCell, TokenEOF}},
		{"=A1-1", []TokenType{TokenEquals, TokenCell, TokenBinaryOp, TokenNumber, TokenEOF}},
		{"=50%", []TokenType{TokenEquals, TokenNumber, TokenUnaryPostfixOp, TokenEOF}},
		{"=SUM(A1:B2)", []TokenType{TokenEquals, TokenFunction, TokenLeftParen, TokenRange, TokenRightParen, TokenEOF}},
		{`="a"&TRUE`, []TokenType{TokenEquals, TokenString, TokenBinaryOp, TokenBoolean, TokenEOF}},
		{"=#N/A", []TokenType{TokenEquals, TokenError, TokenEOF}},
		{"={1,2;3,4}", []TokenType{
			TokenEquals, TokenLeftBrace, TokenNumber, TokenComma, TokenNumber, TokenSemicolon,
			TokenNumber, TokenComma, TokenNumber, TokenRightBrace, TokenEOF,
		}},
		{"=Total*2", []TokenType{TokenEquals, TokenIdentifier, TokenBinaryOp, TokenNumber, TokenEOF}},
		{"=A:A", []TokenType{TokenEquals, TokenRange, TokenEOF}},
		{"=1:1", []TokenType{TokenEquals, TokenRange, TokenEOF}},
		{"=A1<>B1", []TokenType{TokenEquals, TokenCell, TokenBinaryOp, TokenCell, TokenEOF}},
	}
	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			tokens, err := NewLexer(tt.formula, DialectA1).Tokenize()
			require.NoError(t, err)
			assert.Equal(t, tt.want, tokenTypes(tokens))
		})
	}
}

func TestLexerValues(t *testing.T) {
	tokens, err := NewLexer(`="say ""hi"""`, DialectA1).Tokenize()
	require.NoError(t, err)
	assert.Equal(t, `say "hi"`, tokens[1].Value)

	tokens, err = NewLexer("=1.5E+3", DialectA1).Tokenize()
	require.NoError(t, err)
	assert.Equal(t, TokenNumber, tokens[1].Type)
	assert.Equal(t, "1.5E+3", tokens[1].Value)

	tokens, err = NewLexer("='It''s here'!$B$2", DialectA1).Tokenize()
	require.NoError(t, err)
	assert.Equal(t, TokenCell, tokens[1].Type)
	assert.Equal(t, "It's here", tokens[1].Sheet)
	assert.Equal(t, "$B$2", tokens[1].Value)

	tokens, err = NewLexer("=sum(1)", DialectA1).Tokenize()
	require.NoError(t, err)
	assert.Equal(t, "SUM", tokens[1].Value)

	tokens, err = NewLexer("=#div/0!", DialectA1).Tokenize()
	require.NoError(t, err)
	assert.Equal(t, "#DIV/0!", tokens[1].Value)
}

func TestLexerUnicode(t *testing.T) {
	tokens, err := NewLexer(`="世界"&A1`, DialectA1).Tokenize()
	require.NoError(t, err)
	assert.Equal(t, "世界", tokens[1].Value)
	// positions count runes, not bytes
	assert.Equal(t, 5, tokens[2].Pos)
}

func TestLexerErrors(t *testing.T) {
	tests := []string{
		"=1+",
		"=(1",
		"=1)",
		`="open`,
		"=#WHAT",
		"=1 2",
		"=A1 B1",
		"={1,{2}}",
		"=@1",
		"='Sheet'A1",
	}
	for _, formula := range tests {
		t.Run(formula, func(t *testing.T) {
			_, err := NewLexer(formula, DialectA1).Tokenize()
			var parseErr *ParseError
			assert.ErrorAs(t, err, &parseErr)
		})
	}
}

func TestLexerErrorMessages(t *testing.T) {
	tests := []struct {
		formula string
		message string
	}{
		{"=%", "unexpected '%'"},
		{"=SUM(%", "unexpected '%'"},
		{"={1,A1}", "unexpected cell reference 'A1'"},
		{"=1 2", "unexpected number '2'"},
		{"=A1 B1", "unexpected cell reference 'B1'"},
		{"=1+", "unexpected end of formula"},
	}
	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			_, err := NewLexer(tt.formula, DialectA1).Tokenize()
			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, tt.message, parseErr.Message)
		})
	}
}

func TestDetectDialect(t *testing.T) {
	tests := []struct {
		formula string
		want    Dialect
	}{
		{"=A1+B2", DialectA1},
		{"=R[-1]C+1", DialectR1C1},
		{"=R1C1*2", DialectR1C1},
		{"=SUM(RC[-2]:RC[-1])", DialectR1C1},
		{`="R[1]C"&A1`, DialectA1},
		{"='R1C1'!A1", DialectA1},
		{"=RC1(2)", DialectA1},
	}
	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectDialect(tt.formula))
		})
	}
}

func TestLexerR1C1Words(t *testing.T) {
	tokens, err := NewLexer("=SUM(R1C1:R[2]C[-1])+R2", DialectR1C1).Tokenize()
	require.NoError(t, err)
	assert.Equal(t, []TokenType{
		TokenEquals, TokenFunction, TokenLeftParen, TokenRange, TokenRightParen,
		TokenBinaryOp, TokenRange, TokenEOF,
	}, tokenTypes(tokens))
	assert.Equal(t, "R1C1:R[2]C[-1]", tokens[3].Value)
}
