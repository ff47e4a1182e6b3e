package storage

import (
	"context"
	"time"

	"github.com/dshills/codemap-mcp/pkg/types"
)

// Storage persists analysis snapshots and serves queries over them.
type Storage interface {
	// Snapshot operations
	SaveSnapshot(ctx context.Context, snap *Snapshot) error

	// Project operations
	GetProject(ctx context.Context, rootPath string) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	DeleteProject(ctx context.Context, rootPath string) error

	// File operations
	ListFiles(ctx context.Context, projectID int64) ([]*File, error)
	GetFile(ctx context.Context, projectID int64, filePath string) (*File, error)

	// Symbol operations
	ListSymbolsByFile(ctx context.Context, fileID int64) ([]*Symbol, error)
	GetSymbol(ctx context.Context, projectID int64, symbolID string) (*Symbol, error)
	SearchSymbols(ctx context.Context, projectID int64, query string, limit int) ([]*Symbol, error)

	// Edge operations
	ListEdges(ctx context.Context, projectID int64) ([]*Edge, error)

	// Status operations
	GetStatus(ctx context.Context, projectID int64) (*ProjectStatus, error)

	// Database operations
	Close() error
}

// Snapshot is one complete analysis result for a root, saved atomically.
// Saving replaces any previous snapshot of the same root.
type Snapshot struct {
	RootPath   string
	Files      []*types.FileAnalysis
	Edges      []types.DependencyEdge
	AnalyzedAt time.Time
	Duration   time.Duration
}

// Project represents an analyzed repository root.
type Project struct {
	ID           int64
	RootPath     string
	TotalFiles   int
	TotalSymbols int
	TotalEdges   int
	AnalyzedAt   time.Time
	DurationMS   int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// File represents one analyzed source file.
type File struct {
	ID           int64
	ProjectID    int64
	FilePath     string // relative to the project root
	Language     string
	SymbolCount  int
	WarningCount int
	CreatedAt    time.Time
}

// Symbol is the persisted form of types.Symbol.
type Symbol struct {
	ID            int64
	FileID        int64
	SymbolID      string // stable hash ID
	Name          string
	QualifiedName string
	Kind          string
	Language      string
	Signature     string
	DocComment    string
	Modifiers     string // comma-joined
	ParentID      string
	StartLine     int
	EndLine       int
	CreatedAt     time.Time
}

// Edge is a persisted file-level dependency.
type Edge struct {
	ID        int64
	ProjectID int64
	FromFile  string
	ToTarget  string
	Resolved  bool
}

// Warning is a persisted extraction warning.
type Warning struct {
	ID      int64
	FileID  int64
	Code    string
	Message string
	Line    int
}

// ProjectStatus summarizes a stored project.
type ProjectStatus struct {
	Project       *Project
	FilesCount    int
	SymbolsCount  int
	EdgesCount    int
	WarningsCount int
	DBSizeMB      float64
	Health        HealthStatus
}

// HealthStatus reports the state of the backing database.
type HealthStatus struct {
	DatabaseAccessible bool
	FTSIndexBuilt      bool
}

// ToTypesSymbol converts a stored symbol back to the canonical model.
func (s *Symbol) ToTypesSymbol(filePath string) types.Symbol {
	return types.Symbol{
		ID:            s.SymbolID,
		Name:          s.Name,
		QualifiedName: s.QualifiedName,
		Kind:          types.SymbolKind(s.Kind),
		Language:      types.Language(s.Language),
		Signature:     s.Signature,
		FilePath:      filePath,
		StartLine:     s.StartLine,
		EndLine:       s.EndLine,
		Modifiers:     splitModifiers(s.Modifiers),
		ParentID:      s.ParentID,
		DocComment:    s.DocComment,
	}
}

// FromTypesSymbol converts a canonical symbol for persistence.
func FromTypesSymbol(s types.Symbol, fileID int64) *Symbol {
	return &Symbol{
		FileID:        fileID,
		SymbolID:      s.ID,
		Name:          s.Name,
		QualifiedName: s.QualifiedName,
		Kind:          string(s.Kind),
		Language:      string(s.Language),
		Signature:     s.Signature,
		DocComment:    s.DocComment,
		Modifiers:     joinModifiers(s.Modifiers),
		ParentID:      s.ParentID,
		StartLine:     s.StartLine,
		EndLine:       s.EndLine,
	}
}
