package rules

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var ruleLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Float", Pattern: `\d+\.\d+`},
	{Name: "Int", Pattern: `\d+`},
	{Name: "String", Pattern: `"(\\.|[^"])*"`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Op", Pattern: `==|!=|<=|>=|&&|\|\||[<>!\[\].()]`},
})

var parser = participle.MustBuild[Expr](
	participle.Lexer(ruleLexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
	participle.UseLookahead(2),
)

// Parse compiles source into an AST. The source is re-parsed every time a
// persisted Rule is loaded — only the text is stored, never the AST
// (doc.go).
func Parse(source string) (*Expr, error) {
	expr, err := parser.ParseString("", source)
	if err != nil {
		return nil, fmt.Errorf("parse rule expression: %w", err)
	}
	return expr, nil
}
