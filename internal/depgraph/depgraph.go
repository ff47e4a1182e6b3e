// Package depgraph resolves raw import statements into a file-level
// dependency graph scoped to one analysis session.
//
// Resolution is purely path-based: an import resolves when a plausible
// target file exists among the analyzed files, otherwise the edge is kept
// with the external specifier verbatim. No package manifests, classpaths,
// or node_modules trees are consulted. Cycles are preserved as-is; the
// graph is descriptive, not a build order.
package depgraph

import (
	"path"
	"sort"
	"strings"

	"github.com/dshills/codemap-mcp/pkg/types"
)

// Graph is the resolved dependency graph for one set of analyzed files.
// It is immutable after Build.
type Graph struct {
	edges []types.DependencyEdge

	// adjacency keyed by file path
	deps       map[string][]types.DependencyEdge
	dependents map[string][]string
}

// Build resolves every import in the given analyses against the set of
// analyzed file paths. Edge order is deterministic: sorted by source file,
// then target, with duplicates removed.
func Build(files []*types.FileAnalysis) *Graph {
	known := make(map[string]bool, len(files))
	for _, fa := range files {
		known[fa.Path] = true
	}

	g := &Graph{
		deps:       make(map[string][]types.DependencyEdge),
		dependents: make(map[string][]string),
	}

	type edgeKey struct {
		from, to string
	}
	dedup := make(map[edgeKey]bool)

	for _, fa := range files {
		for _, imp := range fa.Imports {
			target, resolved := resolve(fa, imp.Target, known)
			if target == "" || target == fa.Path {
				continue
			}
			key := edgeKey{from: fa.Path, to: target}
			if dedup[key] {
				continue
			}
			dedup[key] = true
			g.edges = append(g.edges, types.DependencyEdge{
				FromFile: fa.Path,
				ToTarget: target,
				Resolved: resolved,
			})
		}
	}

	sort.Slice(g.edges, func(i, j int) bool {
		if g.edges[i].FromFile != g.edges[j].FromFile {
			return g.edges[i].FromFile < g.edges[j].FromFile
		}
		return g.edges[i].ToTarget < g.edges[j].ToTarget
	})

	for _, e := range g.edges {
		g.deps[e.FromFile] = append(g.deps[e.FromFile], e)
		if e.Resolved {
			g.dependents[e.ToTarget] = append(g.dependents[e.ToTarget], e.FromFile)
		}
	}
	return g
}

// Edges returns all edges in deterministic order. Callers must not mutate
// the returned slice.
func (g *Graph) Edges() []types.DependencyEdge {
	return g.edges
}

// Dependencies returns the outgoing edges of a file, resolved and external.
func (g *Graph) Dependencies(file string) []types.DependencyEdge {
	return g.deps[file]
}

// Dependents returns the analyzed files that import the given file.
func (g *Graph) Dependents(file string) []string {
	return g.dependents[file]
}

// resolve maps one import specifier to an analyzed file path. The second
// return is false when the specifier stays external.
func resolve(fa *types.FileAnalysis, spec string, known map[string]bool) (string, bool) {
	switch fa.Language {
	case types.LangPython:
		return resolvePython(fa.Path, spec, known)
	case types.LangJavaScript, types.LangTypeScript:
		return resolveJS(fa.Path, spec, known)
	case types.LangJava, types.LangKotlin:
		return resolveJVM(spec, known)
	}
	return spec, false
}

// resolvePython probes dotted module paths. Absolute imports resolve from
// the analysis root, relative imports from the importing file's directory,
// one level up per extra leading dot.
func resolvePython(from, spec string, known map[string]bool) (string, bool) {
	base := ""
	mod := spec
	if strings.HasPrefix(spec, ".") {
		dots := 0
		for dots < len(spec) && spec[dots] == '.' {
			dots++
		}
		mod = spec[dots:]
		base = path.Dir(from)
		for i := 1; i < dots; i++ {
			base = path.Dir(base)
		}
		if base == "." {
			base = ""
		}
	}

	// Probe the full dotted path first, then progressively drop trailing
	// components so "from pkg.mod import name" still finds pkg/mod.py.
	parts := strings.Split(mod, ".")
	if mod == "" {
		parts = nil
	}
	for n := len(parts); n >= 0; n-- {
		rel := strings.Join(parts[:n], "/")
		for _, candidate := range pyCandidates(base, rel) {
			if known[candidate] {
				return candidate, true
			}
		}
		if n == 0 {
			break
		}
	}
	return spec, false
}

func pyCandidates(base, rel string) []string {
	joined := rel
	if base != "" {
		if rel == "" {
			joined = base
		} else {
			joined = base + "/" + rel
		}
	}
	if joined == "" {
		return nil
	}
	return []string{joined + ".py", joined + "/__init__.py"}
}

var jsProbeExts = []string{"", ".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"}

// resolveJS resolves relative specifiers only; bare specifiers are package
// imports and stay external.
func resolveJS(from, spec string, known map[string]bool) (string, bool) {
	if !strings.HasPrefix(spec, "./") && !strings.HasPrefix(spec, "../") {
		return spec, false
	}
	joined := path.Join(path.Dir(from), spec)
	for _, ext := range jsProbeExts {
		if known[joined+ext] {
			return joined + ext, true
		}
	}
	for _, ext := range jsProbeExts[1:] {
		if known[joined+"/index"+ext] {
			return joined + "/index" + ext, true
		}
	}
	return spec, false
}

// resolveJVM matches a fully qualified class import against analyzed file
// paths by package-path suffix. Wildcard imports match any file in the
// package directory.
func resolveJVM(spec string, known map[string]bool) (string, bool) {
	spec = strings.TrimSuffix(spec, ";")
	if strings.HasSuffix(spec, ".*") {
		dir := strings.ReplaceAll(strings.TrimSuffix(spec, ".*"), ".", "/") + "/"
		best := ""
		for p := range known {
			// The package path must start at a segment boundary so that
			// "com/example/" never matches inside "mycom/example/".
			at := -1
			if i := strings.LastIndex(p, "/"+dir); i >= 0 {
				at = i + 1
			} else if strings.HasPrefix(p, dir) {
				at = 0
			}
			if at < 0 || strings.Contains(p[at+len(dir):], "/") {
				continue
			}
			if best == "" || p < best {
				best = p
			}
		}
		if best != "" {
			return best, true
		}
		return spec, false
	}

	slashed := strings.ReplaceAll(spec, ".", "/")
	for _, ext := range []string{".java", ".kt", ".kts"} {
		suffix := slashed + ext
		best := ""
		for p := range known {
			if p == suffix || strings.HasSuffix(p, "/"+suffix) {
				if best == "" || p < best {
					best = p
				}
			}
		}
		if best != "" {
			return best, true
		}
	}
	// Static member imports carry one extra trailing component.
	if idx := strings.LastIndex(slashed, "/"); idx > 0 {
		parent := slashed[:idx]
		for _, ext := range []string{".java", ".kt"} {
			suffix := parent + ext
			best := ""
			for p := range known {
				if p == suffix || strings.HasSuffix(p, "/"+suffix) {
					if best == "" || p < best {
						best = p
					}
				}
			}
			if best != "" {
				return best, true
			}
		}
	}
	return spec, false
}
