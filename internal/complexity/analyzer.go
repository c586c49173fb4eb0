// Package complexity computes source-code metrics for one file version.
//
// Each supported language is a variant backed by a tree-sitter grammar; files
// with other extensions map to None and are not applicable. Analyze keeps no
// state between calls, so it may run concurrently for different files.
package complexity

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

var (
	// ErrNotApplicable is returned for files no analyzer covers.
	ErrNotApplicable = errors.New("complexity: not applicable")
	// ErrParse is returned when the source does not parse cleanly.
	ErrParse = errors.New("complexity: parse error")
)

// Metric names used by Report.Metrics.
const (
	MetricNLOC                 = "nloc"
	MetricLOC                  = "loc"
	MetricCyclomaticComplexity = "cyclomatic_complexity"
	MetricTokenCount           = "token_count"
	MetricMethods              = "methods"
)

// FunctionMetrics describes one function, method or closure.
type FunctionMetrics struct {
	Name                 string `json:"name"`
	StartLine            int    `json:"startLine"`
	EndLine              int    `json:"endLine"`
	CyclomaticComplexity int    `json:"cyclomaticComplexity"`
	NLOC                 int    `json:"nloc"`
	TokenCount           int    `json:"tokenCount"`
}

// Report holds the metrics of one file version.
// CyclomaticComplexity is the sum over functions; branches outside any function do not count.
type Report struct {
	Language             Language          `json:"language"`
	NLOC                 int               `json:"nloc"`
	LOC                  int               `json:"loc"`
	CyclomaticComplexity int               `json:"cyclomaticComplexity"`
	TokenCount           int               `json:"tokenCount"`
	Methods              int               `json:"methods"`
	Functions            []FunctionMetrics `json:"functions,omitempty"`
}

// Metrics returns the report as a metric name -> value mapping.
func (r *Report) Metrics() map[string]float64 {
	return map[string]float64{
		MetricNLOC:                 float64(r.NLOC),
		MetricLOC:                  float64(r.LOC),
		MetricCyclomaticComplexity: float64(r.CyclomaticComplexity),
		MetricTokenCount:           float64(r.TokenCount),
		MetricMethods:              float64(r.Methods),
	}
}

// AverageComplexity returns the mean cyclomatic complexity per function.
func (r *Report) AverageComplexity() float64 {
	if len(r.Functions) == 0 {
		return 0
	}
	return float64(r.CyclomaticComplexity) / float64(len(r.Functions))
}

// Analyze computes the metrics of src written in lang.
func Analyze(ctx context.Context, lang Language, src []byte) (*Report, error) {
	g, ok := grammars[lang]
	if !ok {
		return nil, ErrNotApplicable
	}

	// A parser is not safe for concurrent use; each call gets its own.
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(g.language())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("%w: %s source has syntax errors", ErrParse, lang)
	}

	w := &walker{g: &g, src: src, rows: make(map[uint32]struct{})}
	w.walk(root, nil)

	report := &Report{
		Language:   lang,
		NLOC:       len(w.rows),
		LOC:        countLines(src),
		TokenCount: w.tokens,
		Methods:    len(w.funcs),
		Functions:  make([]FunctionMetrics, 0, len(w.funcs)),
	}
	for _, f := range w.funcs {
		fm := FunctionMetrics{
			Name:                 f.name,
			StartLine:            f.start,
			EndLine:              f.end,
			CyclomaticComplexity: f.ccn,
			NLOC:                 len(f.rows),
			TokenCount:           f.tokens,
		}
		report.CyclomaticComplexity += fm.CyclomaticComplexity
		report.Functions = append(report.Functions, fm)
	}
	return report, nil
}

type funcState struct {
	name       string
	start, end int
	ccn        int
	tokens     int
	rows       map[uint32]struct{}
	parent     *funcState
}

type walker struct {
	g      *grammar
	src    []byte
	rows   map[uint32]struct{}
	tokens int
	funcs  []*funcState
}

func (w *walker) walk(n *sitter.Node, fn *funcState) {
	typ := n.Type()

	if w.g.comments[typ] {
		return
	}

	// The function keyword leaf shares its type name with the expression node.
	if w.g.functions[typ] && n.IsNamed() {
		fn = &funcState{
			name:   w.functionName(n),
			start:  int(n.StartPoint().Row) + 1,
			end:    int(n.EndPoint().Row) + 1,
			ccn:    1,
			rows:   make(map[uint32]struct{}),
			parent: fn,
		}
		w.funcs = append(w.funcs, fn)
	}

	if fn != nil && w.isDecision(n) {
		fn.ccn++
	}

	count := int(n.ChildCount())
	if count == 0 {
		// Statement terminators may be newline tokens; they are not code.
		if n.IsMissing() || len(bytes.TrimSpace(w.src[n.StartByte():n.EndByte()])) == 0 {
			return
		}
		w.tokens++
		first, last := n.StartPoint().Row, n.EndPoint().Row
		if last > first && n.EndPoint().Column == 0 {
			last--
		}
		for row := first; row <= last; row++ {
			w.rows[row] = struct{}{}
			// Enclosing functions own the token too.
			for f := fn; f != nil; f = f.parent {
				f.rows[row] = struct{}{}
			}
		}
		for f := fn; f != nil; f = f.parent {
			f.tokens++
		}
		return
	}

	for i := 0; i < count; i++ {
		if child := n.Child(i); child != nil {
			w.walk(child, fn)
		}
	}
}

func (w *walker) isDecision(n *sitter.Node) bool {
	typ := n.Type()
	if w.g.decisions[typ] {
		return true
	}
	if w.g.caseLabel != "" && typ == w.g.caseLabel {
		first := n.Child(0)
		return first != nil && first.Type() == "case"
	}
	if w.g.logical != "" && typ == w.g.logical {
		for i := 0; i < int(n.ChildCount()); i++ {
			if c := n.Child(i); c != nil && !c.IsNamed() && shortCircuit[c.Type()] {
				return true
			}
		}
	}
	return false
}

func (w *walker) functionName(n *sitter.Node) string {
	if name := n.ChildByFieldName("name"); name != nil {
		return name.Content(w.src)
	}
	return "(anonymous)"
}
