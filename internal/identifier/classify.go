package identifier

import "strings"

// SourceClassifier decides whether a file's content looks like source code,
// the pluggable oracle the fixed exclusion lists can't cover
// on their own (a README with no extension, a shell script, and so on).
type SourceClassifier interface {
	IsSourceCode(name string, content []byte) bool
}

// extensionClassifier is a heuristic default: known source extensions pass
// outright, everything else is sniffed for a shebang or binary content. No
// content-type-sniffing library in the dependency surface offers a richer
// signal, so this stays a small hand-rolled table rather than reaching for
// one (see DESIGN.md).
type extensionClassifier struct {
	sourceExts map[string]bool
}

func NewExtensionClassifier() SourceClassifier {
	exts := []string{
		".go", ".py", ".js", ".jsx", ".ts", ".tsx", ".java", ".kt", ".rb", ".rs",
		".c", ".h", ".cc", ".cpp", ".hpp", ".cs", ".php", ".swift", ".scala",
		".sh", ".bash", ".zsh", ".sql", ".proto", ".graphql", ".lua", ".r",
		".md", ".mdx", ".rst", ".yaml", ".yml", ".json", ".toml", ".ini",
		".html", ".css", ".scss", ".vue", ".svelte", ".dockerfile", ".make",
		".tf", ".tfvars", ".cmake", ".gradle", ".groovy", ".ex", ".exs",
		".hs", ".ml", ".clj", ".dart", ".perl", ".pl",
	}
	m := make(map[string]bool, len(exts))
	for _, e := range exts {
		m[e] = true
	}
	return &extensionClassifier{sourceExts: m}
}

func (c *extensionClassifier) IsSourceCode(name string, content []byte) bool {
	lower := strings.ToLower(name)
	for ext := range c.sourceExts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	if strings.HasPrefix(string(content), "#!") {
		return true
	}
	return !looksBinary(content)
}

// looksBinary applies the classic null-byte heuristic over a content
// prefix, the same check most text/binary detectors fall back to absent a
// real classifier.
func looksBinary(content []byte) bool {
	limit := len(content)
	if limit > 8000 {
		limit = 8000
	}
	for _, b := range content[:limit] {
		if b == 0 {
			return true
		}
	}
	return false
}
