package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const modulePath = "pitchday"

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

// layerRule lists the in-module packages a layer may import, relative to
// its bounded context root. Third-party imports are checked separately.
type layerRule struct {
	allowed     []string
	thirdParty  bool
	description string
}

var layerRules = map[string]layerRule{
	"domain": {
		allowed:     []string{"domain"},
		description: "domain",
	},
	"ports": {
		allowed:     []string{"domain", "ports"},
		description: "ports",
	},
	"application": {
		allowed:     []string{"application", "domain", "ports"},
		description: "application",
	},
	"transport": {
		allowed:     []string{"transport"},
		description: "transport dto",
	},
	"adapters": {
		allowed:     []string{"adapters", "application", "domain", "ports", "transport"},
		thirdParty:  true,
		description: "adapters",
	},
}

func main() {
	root := "contexts"
	if len(os.Args) > 1 {
		root = os.Args[1]
	}
	violations := collectViolations(root)
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].File != violations[j].File {
			return violations[i].File < violations[j].File
		}
		if violations[i].Line != violations[j].Line {
			return violations[i].Line < violations[j].Line
		}
		return violations[i].Import < violations[j].Import
	})

	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

func collectViolations(root string) []violation {
	var violations []violation
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		normalized := filepath.ToSlash(path)
		parts := strings.Split(normalized, "/")
		// contexts/<context>/<service>/<layer>/...
		if len(parts) < 4 || parts[0] != "contexts" {
			return nil
		}
		servicePrefix := strings.Join([]string{modulePath, "contexts", parts[1], parts[2]}, "/")
		layer := ""
		if len(parts) > 4 {
			layer = parts[3]
		}
		violations = append(violations, validateFile(path, normalized, layer, servicePrefix)...)
		return nil
	})
	return violations
}

func validateFile(path string, normalizedPath string, layer string, servicePrefix string) []violation {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return []violation{{File: normalizedPath, Line: 1, Rule: "file must parse"}}
	}

	var violations []violation
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, "\"")
		add := func(rule string) {
			violations = append(violations, violation{
				File:   normalizedPath,
				Line:   fset.Position(imp.Pos()).Line,
				Import: importPath,
				Rule:   rule,
			})
		}

		if hasPrefix(importPath, modulePath+"/contexts") && !hasPrefix(importPath, servicePrefix) {
			add("cross-service imports are forbidden")
			continue
		}
		if hasPrefix(importPath, modulePath+"/internal") || hasPrefix(importPath, modulePath+"/cmd") {
			add("contexts must not import runtime wiring")
			continue
		}

		rule, ok := layerRules[layer]
		if !ok {
			continue
		}
		if hasPrefix(importPath, servicePrefix) {
			if !isAllowed(strings.TrimPrefix(importPath, servicePrefix+"/"), rule.allowed) {
				add(rule.description + " import is outside explicit allowlist")
			}
			continue
		}
		if !rule.thirdParty && !isStdlib(importPath) {
			add(rule.description + " must stay free of third-party imports")
		}
	}
	return violations
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isAllowed(relative string, allowed []string) bool {
	for _, p := range allowed {
		if hasPrefix(relative, p) {
			return true
		}
	}
	return false
}

func isStdlib(importPath string) bool {
	first := strings.SplitN(importPath, "/", 2)[0]
	return !strings.Contains(first, ".") && first != modulePath
}
