package architecture_test

import (
	"bufio"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

type violation struct {
	file string
	imp  string
	rule string
}

// walkImports calls check for every import of every non-test Go file under
// internal/ and returns the collected violations.
func walkImports(t *testing.T, check func(rel, imp string) (string, bool)) []violation {
	t.Helper()

	start, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	root, err := findModuleRoot(start)
	if err != nil {
		t.Fatalf("find module root: %v", err)
	}

	internalDir := filepath.Join(root, "internal")
	fset := token.NewFileSet()
	var out []violation

	walkErr := filepath.WalkDir(internalDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			switch d.Name() {
			case ".git", "vendor", "testdata":
				return filepath.SkipDir
			default:
				return nil
			}
		}
		// Tests may reach across layers to assert contracts.
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, spec := range f.Imports {
			if spec == nil || spec.Path == nil {
				continue
			}
			imp, err := strconv.Unquote(spec.Path.Value)
			if err != nil {
				continue
			}
			if rule, bad := check(rel, imp); bad {
				out = append(out, violation{file: rel, imp: imp, rule: rule})
			}
		}
		return nil
	})
	if walkErr != nil {
		t.Fatalf("walk internal/: %v", walkErr)
	}
	return out
}

func report(t *testing.T, header string, violations []violation) {
	t.Helper()
	if len(violations) == 0 {
		return
	}
	var b strings.Builder
	b.WriteString(header + "\n")
	for _, v := range violations {
		fmt.Fprintf(&b, "- %s imports %q (disallowed: %q)\n", v.file, v.imp, v.rule)
	}
	t.Fatal(b.String())
}

func modulePath(t *testing.T) string {
	t.Helper()
	start, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	root, err := findModuleRoot(start)
	if err != nil {
		t.Fatalf("find module root: %v", err)
	}
	mp, err := readModulePath(filepath.Join(root, "go.mod"))
	if err != nil {
		t.Fatalf("read module path: %v", err)
	}
	return mp
}

func TestImportBoundaries(t *testing.T) {
	mp := modulePath(t)
	violations := walkImports(t, func(rel, imp string) (string, bool) {
		for _, bad := range disallowedImports(mp, layerFor(rel)) {
			if strings.HasPrefix(imp, bad) {
				return bad, true
			}
		}
		return "", false
	})
	report(t, "import boundary violations:", violations)
}

// Row types stay free of internal dependencies so every layer can share them.
func TestDomainImportsNothingInternal(t *testing.T) {
	prefix := modulePath(t) + "/internal/"
	violations := walkImports(t, func(rel, imp string) (string, bool) {
		if strings.HasPrefix(rel, "internal/domain/") && strings.HasPrefix(imp, prefix) {
			return prefix, true
		}
		return "", false
	})
	report(t, "internal/domain must not import other internal packages:", violations)
}

func layerFor(rel string) string {
	switch {
	case strings.HasPrefix(rel, "internal/platform/"):
		return "platform"
	case strings.HasPrefix(rel, "internal/observability/"):
		return "platform"
	case strings.HasPrefix(rel, "internal/data/"):
		return "data"
	case strings.HasPrefix(rel, "internal/modules/"):
		return "modules"
	case strings.HasPrefix(rel, "internal/http/"):
		return "http"
	default:
		return ""
	}
}

func disallowedImports(modulePath string, layer string) []string {
	switch layer {
	case "platform":
		return []string{
			modulePath + "/internal/data/",
			modulePath + "/internal/modules/",
			modulePath + "/internal/http/",
			modulePath + "/internal/app",
		}
	case "data":
		return []string{
			modulePath + "/internal/modules/",
			modulePath + "/internal/http/",
			modulePath + "/internal/app",
		}
	case "modules":
		return []string{
			modulePath + "/internal/http/",
			modulePath + "/internal/app",
		}
	case "http":
		return []string{
			modulePath + "/internal/app",
			modulePath + "/internal/data/",
		}
	default:
		return nil
	}
}

func findModuleRoot(start string) (string, error) {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found from %s", start)
		}
		dir = parent
	}
}

func readModulePath(goModPath string) (string, error) {
	f, err := os.Open(goModPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if !strings.HasPrefix(line, "module ") {
			continue
		}
		mp := strings.TrimSpace(strings.TrimPrefix(line, "module "))
		if mp == "" {
			return "", fmt.Errorf("empty module path in %s", goModPath)
		}
		return mp, nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("module path not found in %s", goModPath)
}
