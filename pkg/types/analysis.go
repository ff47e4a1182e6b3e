package types

// WarningCode classifies a non-fatal extraction warning.
type WarningCode string

const (
	// WarnUnsupportedLanguage means the file extension maps to no extractor.
	// The file is skipped, not failed.
	WarnUnsupportedLanguage WarningCode = "unsupported-language"
	// WarnParseRecoverable means a construct could not be parsed; extraction
	// continued at the next recognizable boundary.
	WarnParseRecoverable WarningCode = "parse-recoverable"
)

// Warning records a non-fatal problem encountered while extracting one file.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
	Line    int         `json:"line,omitempty"`
}

// ImportRef is a raw import/require/use statement as written in the source,
// before any resolution.
type ImportRef struct {
	// Target is the module specifier exactly as written
	// (e.g. "./util", "os.path", "com.example.app.Model").
	Target string `json:"target"`
	Line   int    `json:"line"`
}

// FileAnalysis is the extraction result for a single file.
type FileAnalysis struct {
	Path     string   `json:"path"`
	Language Language `json:"language"`

	// Symbols in extraction order. A parent always precedes its children.
	Symbols []Symbol `json:"symbols"`

	// Imports holds the raw, unresolved dependency statements.
	Imports []ImportRef `json:"imports"`

	// Warnings accumulated during extraction. Never causes the file,
	// let alone the session, to fail.
	Warnings []Warning `json:"warnings,omitempty"`
}

// AddWarning appends a warning to the analysis.
func (fa *FileAnalysis) AddWarning(code WarningCode, line int, msg string) {
	fa.Warnings = append(fa.Warnings, Warning{Code: code, Message: msg, Line: line})
}

// SymbolByID returns the symbol with the given id, or nil.
func (fa *FileAnalysis) SymbolByID(id string) *Symbol {
	for i := range fa.Symbols {
		if fa.Symbols[i].ID == id {
			return &fa.Symbols[i]
		}
	}
	return nil
}

// DependencyEdge is a directed file-level dependency.
type DependencyEdge struct {
	// FromFile is the analyzed file containing the import.
	FromFile string `json:"from_file"`
	// ToTarget is either another analyzed file path (Resolved == true) or
	// an opaque external module specifier (Resolved == false).
	ToTarget string `json:"to_target"`
	Resolved bool   `json:"resolved"`
}
