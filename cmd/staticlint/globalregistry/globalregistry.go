// Package globalregistry reports use of the process-wide Prometheus registry.
// Cycle batches and self-metrics each own a prometheus.Registry; anything
// registered globally would leak into neither and outlive every cycle.
package globalregistry

import (
	"errors"
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
	"golang.org/x/tools/go/types/typeutil"
)

const (
	promPkg     = "github.com/prometheus/client_golang/prometheus"
	promautoPkg = "github.com/prometheus/client_golang/prometheus/promauto"
)

var Analyzer = &analysis.Analyzer{
	Name:     "globalregistry",
	Doc:      "reports registration on prometheus.DefaultRegisterer",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

var registerFuncs = map[string]bool{
	"Register":     true,
	"MustRegister": true,
	"Unregister":   true,
}

var defaultVars = map[string]bool{
	"DefaultRegisterer": true,
	"DefaultGatherer":   true,
}

func run(pass *analysis.Pass) (any, error) {
	insp, ok := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)
	if !ok {
		return nil, errors.New("inspect result has unexpected type")
	}

	nodes := []ast.Node{(*ast.CallExpr)(nil), (*ast.SelectorExpr)(nil)}
	insp.Preorder(nodes, func(n ast.Node) {
		switch x := n.(type) {
		case *ast.CallExpr:
			checkCall(pass, x)
		case *ast.SelectorExpr:
			obj, ok := pass.TypesInfo.Uses[x.Sel].(*types.Var)
			if ok && obj.Pkg() != nil && obj.Pkg().Path() == promPkg && defaultVars[obj.Name()] {
				pass.Reportf(x.Pos(), "prometheus.%s is the global registry; use a dedicated prometheus.Registry", obj.Name())
			}
		}
	})
	return nil, nil
}

func checkCall(pass *analysis.Pass, call *ast.CallExpr) {
	fn, ok := typeutil.Callee(pass.TypesInfo, call).(*types.Func)
	if !ok || fn.Pkg() == nil {
		return
	}
	// methods such as (*Registry).MustRegister are fine
	if sig, ok := fn.Type().(*types.Signature); ok && sig.Recv() != nil {
		return
	}
	switch fn.Pkg().Path() {
	case promPkg:
		if registerFuncs[fn.Name()] {
			pass.Reportf(call.Pos(), "prometheus.%s registers globally; register on a dedicated prometheus.Registry", fn.Name())
		}
	case promautoPkg:
		if strings.HasPrefix(fn.Name(), "New") {
			pass.Reportf(call.Pos(), "promauto.%s registers globally; use promauto.With(reg)", fn.Name())
		}
	}
}
