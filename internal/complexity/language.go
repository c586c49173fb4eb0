package complexity

import (
	"fmt"
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language selects an analyzer variant. None is the not-applicable variant.
type Language int

const (
	None Language = iota
	Go
	Java
	Python
	JavaScript
	TypeScript
	TSX
	Rust
)

var languageNames = map[Language]string{
	None:       "none",
	Go:         "go",
	Java:       "java",
	Python:     "python",
	JavaScript: "javascript",
	TypeScript: "typescript",
	TSX:        "tsx",
	Rust:       "rust",
}

func (l Language) String() string {
	if name, ok := languageNames[l]; ok {
		return name
	}
	return "unknown"
}

// Supported reports whether l has an analyzer.
func (l Language) Supported() bool {
	_, ok := grammars[l]
	return ok
}

// MarshalText lets Language appear by name in JSON output.
func (l Language) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (l *Language) UnmarshalText(text []byte) error {
	if string(text) == None.String() {
		*l = None
		return nil
	}
	v, err := ParseLanguage(string(text))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// ParseLanguage maps a language name (as printed by String) to its variant.
func ParseLanguage(name string) (Language, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for l, n := range languageNames {
		if n == name && l != None {
			return l, nil
		}
	}
	return None, fmt.Errorf("unknown language %q", name)
}

// Languages returns every supported variant.
func Languages() []Language {
	return []Language{Go, Java, Python, JavaScript, TypeScript, TSX, Rust}
}

var extensions = map[string]Language{
	".go":   Go,
	".java": Java,
	".py":   Python,
	".pyw":  Python,
	".js":   JavaScript,
	".jsx":  JavaScript,
	".mjs":  JavaScript,
	".cjs":  JavaScript,
	".ts":   TypeScript,
	".mts":  TypeScript,
	".cts":  TypeScript,
	".tsx":  TSX,
	".rs":   Rust,
}

// LanguageFor selects the analyzer variant for a file path by its extension.
func LanguageFor(filePath string) Language {
	return extensions[strings.ToLower(path.Ext(filePath))]
}

// grammar describes how one language spells functions, branches and comments.
type grammar struct {
	language  func() *sitter.Language
	functions map[string]bool
	decisions map[string]bool
	// logical is the node type whose operator child may be a short-circuit operator.
	logical  string
	comments map[string]bool
	// caseLabel, if set, is a node type that only counts when its first child is "case".
	caseLabel string
}

func set(types ...string) map[string]bool {
	m := make(map[string]bool, len(types))
	for _, t := range types {
		m[t] = true
	}
	return m
}

var jsGrammar = grammar{
	functions: set("function_declaration", "function", "function_expression", "arrow_function",
		"method_definition", "generator_function_declaration", "generator_function"),
	decisions: set("if_statement", "for_statement", "for_in_statement", "while_statement",
		"do_statement", "switch_case", "catch_clause", "ternary_expression"),
	logical:  "binary_expression",
	comments: set("comment"),
}

func withLanguage(g grammar, lang func() *sitter.Language) grammar {
	g.language = lang
	return g
}

var grammars = map[Language]grammar{
	Go: {
		language:  golang.GetLanguage,
		functions: set("function_declaration", "method_declaration", "func_literal"),
		decisions: set("if_statement", "for_statement", "expression_case", "type_case", "communication_case"),
		logical:   "binary_expression",
		comments:  set("comment"),
	},
	Java: {
		language:  java.GetLanguage,
		functions: set("method_declaration", "constructor_declaration", "lambda_expression"),
		decisions: set("if_statement", "for_statement", "enhanced_for_statement", "while_statement",
			"do_statement", "catch_clause", "ternary_expression"),
		logical:   "binary_expression",
		comments:  set("line_comment", "block_comment"),
		caseLabel: "switch_label",
	},
	Python: {
		language:  python.GetLanguage,
		functions: set("function_definition"),
		decisions: set("if_statement", "elif_clause", "for_statement", "while_statement",
			"except_clause", "conditional_expression", "boolean_operator", "case_clause"),
		comments: set("comment"),
	},
	JavaScript: withLanguage(jsGrammar, javascript.GetLanguage),
	TypeScript: withLanguage(jsGrammar, typescript.GetLanguage),
	TSX:        withLanguage(jsGrammar, tsx.GetLanguage),
	Rust: {
		language:  rust.GetLanguage,
		functions: set("function_item", "closure_expression"),
		decisions: set("if_expression", "while_expression", "for_expression", "match_arm"),
		logical:   "binary_expression",
		comments:  set("line_comment", "block_comment"),
	},
}

var shortCircuit = set("&&", "||", "??")
