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

type importRef struct {
	file string
	imp  string
}

// walkImports calls fn for every import of every .go file under internal/.
func walkImports(t *testing.T, fn func(rel, imp string)) string {
	t.Helper()

	start, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	root, err := findModuleRoot(start)
	if err != nil {
		t.Fatalf("find module root: %v", err)
	}
	modulePath, err := readModulePath(filepath.Join(root, "go.mod"))
	if err != nil {
		t.Fatalf("read module path: %v", err)
	}

	fset := token.NewFileSet()
	walkErr := filepath.WalkDir(filepath.Join(root, "internal"), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			switch d.Name() {
			case ".git", "vendor", "testdata":
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, spec := range f.Imports {
			imp, err := strconv.Unquote(spec.Path.Value)
			if err != nil {
				continue
			}
			fn(filepath.ToSlash(rel), imp)
		}
		return nil
	})
	if walkErr != nil {
		t.Fatalf("walk internal/: %v", walkErr)
	}
	return modulePath
}

func TestImportBoundaries(t *testing.T) {
	var (
		refs       []importRef
		modulePath string
	)
	modulePath = walkImports(t, func(rel, imp string) {
		refs = append(refs, importRef{file: rel, imp: imp})
	})

	var b strings.Builder
	for _, r := range refs {
		for _, bad := range disallowedImports(modulePath, layerFor(r.file)) {
			if r.imp == bad || strings.HasPrefix(r.imp, bad+"/") {
				fmt.Fprintf(&b, "- %s imports %q (disallowed: %q)\n", r.file, r.imp, bad)
				break
			}
		}
	}
	if b.Len() > 0 {
		t.Fatal("import boundary violations:\n" + b.String())
	}
}

func TestGinStaysInHTTP(t *testing.T) {
	var b strings.Builder
	walkImports(t, func(rel, imp string) {
		if !strings.HasPrefix(imp, "github.com/gin-gonic/") && !strings.HasPrefix(imp, "github.com/gin-contrib/") {
			return
		}
		if !strings.HasPrefix(rel, "internal/http/") {
			fmt.Fprintf(&b, "- %s imports %q\n", rel, imp)
		}
	})
	if b.Len() > 0 {
		t.Fatal("gin imported outside internal/http:\n" + b.String())
	}
}

func layerFor(rel string) string {
	switch {
	case strings.HasPrefix(rel, "internal/platform/"):
		return "platform"
	case strings.HasPrefix(rel, "internal/person/"),
		strings.HasPrefix(rel, "internal/couple/"),
		strings.HasPrefix(rel, "internal/tree/"),
		strings.HasPrefix(rel, "internal/store/"):
		return "core"
	case strings.HasPrefix(rel, "internal/loader/"):
		return "loader"
	case strings.HasPrefix(rel, "internal/session/"):
		return "session"
	default:
		return ""
	}
}

func disallowedImports(modulePath string, layer string) []string {
	internal := modulePath + "/internal"
	switch layer {
	case "platform":
		var out []string
		for _, pkg := range []string{"app", "chart", "config", "couple", "events", "http", "loader", "observability", "person", "session", "sources", "store", "tree"} {
			out = append(out, internal+"/"+pkg)
		}
		return out
	case "core":
		return []string{
			internal + "/app",
			internal + "/http",
			internal + "/session",
			internal + "/sources",
			internal + "/events",
			internal + "/loader/graphdb",
			internal + "/loader/sqldb",
			internal + "/loader/wikiapi",
		}
	case "loader":
		return []string{
			internal + "/app",
			internal + "/http",
			internal + "/session",
			internal + "/store",
			internal + "/couple",
			internal + "/tree",
		}
	case "session":
		return []string{
			internal + "/app",
			internal + "/http",
			internal + "/sources",
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
