package i18n

import (
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// Tests run from the package directory.
var sourceRoots = []string{"../../internal", "../../cmd"}

func TestCatalogueMatchesCallSites(t *testing.T) {
	t.Parallel()

	used := map[string]struct{}{}
	for _, root := range sourceRoots {
		if err := collectKeys(root, used); err != nil {
			t.Fatalf("scan %s: %v", root, err)
		}
	}

	state.once.Do(load)
	defined := map[string]struct{}{}
	for key := range state.translations {
		defined[key] = struct{}{}
	}

	if diff := cmp.Diff(sortedKeys(defined), sortedKeys(used)); diff != "" {
		t.Fatalf("catalogue keys (-defined +used):\n%s", diff)
	}
}

func TestShippedLocalesAreComplete(t *testing.T) {
	t.Parallel()

	state.once.Do(load)
	for key, byLang := range state.translations {
		value := strings.TrimSpace(byLang["RU"])
		if value == "" {
			t.Fatalf("no RU text for %q", key)
		}
		if strings.Count(value, "%") != strings.Count(key, "%") {
			t.Fatalf("format verbs differ for %q: %q", key, value)
		}
	}
}

// collectKeys adds the literal first argument of every i18n.Get call found
// under root, test files excluded.
func collectKeys(root string, into map[string]struct{}) error {
	fset := token.NewFileSet()
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case d.IsDir(), !strings.HasSuffix(path, ".go"), strings.HasSuffix(path, "_test.go"):
			return nil
		}
		file, err := parser.ParseFile(fset, path, nil, parser.SkipObjectResolution)
		if err != nil {
			return err
		}
		ast.Inspect(file, func(n ast.Node) bool {
			if key, ok := getCallKey(n); ok {
				into[key] = struct{}{}
			}
			return true
		})
		return nil
	})
}

func getCallKey(n ast.Node) (string, bool) {
	call, ok := n.(*ast.CallExpr)
	if !ok || len(call.Args) == 0 {
		return "", false
	}
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != "Get" {
		return "", false
	}
	if pkg, ok := sel.X.(*ast.Ident); !ok || pkg.Name != "i18n" {
		return "", false
	}
	lit, ok := call.Args[0].(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return "", false
	}
	key, err := strconv.Unquote(lit.Value)
	return key, err == nil && key != ""
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
