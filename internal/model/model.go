// Package model defines the JSON document shapes the CLI writes to
// disk and to stdout: sync reports and context-build results.
package model

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Provenance tracks the origin and creation details of an artifact.
type Provenance struct {
	CreatedBy        string `json:"createdBy"`
	CreatedAt        string `json:"createdAt"`
	Generator        string `json:"generator,omitempty"`
	GeneratorVersion string `json:"generatorVersion,omitempty"`
}

// SyncReportDocument is the on-disk/stdout JSON shape of a sync cycle's
// report, as produced by the `sync` command.
type SyncReportDocument struct {
	SchemaVersion string   `json:"schemaVersion"`
	Kind          string   `json:"kind"`
	ReportID      string   `json:"reportId"`
	Root          string   `json:"root"`
	New           []string `json:"new"`
	Modified      []string `json:"modified"`
	Deleted       []string `json:"deleted"`
	Moved         []Move   `json:"moved"`
	StartedAt     string   `json:"startedAt"`
	CompletedAt   string   `json:"completedAt"`
	DurationMs    int64    `json:"durationMs"`

	Provenance Provenance `json:"provenance"`
}

// Move describes one file rename detected during a sync cycle.
type Move struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// NewSyncReportDocument builds a document from a sync cycle's path
// lists and start/completion times, formatted as RFC 3339 in UTC. The
// provenance createdAt is taken from the current clock.
func NewSyncReportDocument(root, reportID string, newPaths, modified, deleted []string, moves []Move, startedAt, completedAt time.Time) SyncReportDocument {
	doc := SyncReportDocument{
		SchemaVersion: "1.0.0",
		Kind:          "basic-memory/sync-report",
		ReportID:      reportID,
		Root:          root,
		New:           newPaths,
		Modified:      modified,
		Deleted:       deleted,
		Moved:         moves,
		StartedAt:     startedAt.UTC().Format(time.RFC3339),
		CompletedAt:   completedAt.UTC().Format(time.RFC3339),
		DurationMs:    completedAt.Sub(startedAt).Milliseconds(),
		Provenance: Provenance{
			CreatedBy: "basic-memory",
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
			Generator: "sync",
		},
	}
	normalizeSyncReport(&doc)
	return doc
}

func normalizeSyncReport(doc *SyncReportDocument) {
	if doc.New == nil {
		doc.New = []string{}
	}
	if doc.Modified == nil {
		doc.Modified = []string{}
	}
	if doc.Deleted == nil {
		doc.Deleted = []string{}
	}
	if doc.Moved == nil {
		doc.Moved = []Move{}
	}
}

// EntityDocument is the JSON shape of one entity rendered in a context
// result, paired with the observations attached to it.
type EntityDocument struct {
	Permalink    string              `json:"permalink,omitempty"`
	Title        string              `json:"title"`
	EntityType   string              `json:"entityType"`
	FilePath     string              `json:"filePath"`
	Observations []ObservationDoc    `json:"observations"`
	CreatedAt    string              `json:"createdAt"`
	UpdatedAt    string              `json:"updatedAt"`
}

// ObservationDoc is the JSON shape of one observation.
type ObservationDoc struct {
	Category string `json:"category"`
	Content  string `json:"content"`
}

// RelatedEntityDocument is an EntityDocument reached during context
// expansion, annotated with how it was reached.
type RelatedEntityDocument struct {
	EntityDocument
	Depth        int    `json:"depth"`
	RelationType string `json:"relationType"`
	Direction    string `json:"direction"`
}

// ContextResultDocument is the on-disk/stdout JSON shape of a context
// build, as produced by the `context` command.
type ContextResultDocument struct {
	SchemaVersion   string                  `json:"schemaVersion"`
	Kind            string                  `json:"kind"`
	URI             string                  `json:"uri"`
	Depth           int                     `json:"depth"`
	Timeframe       string                  `json:"timeframe"`
	GeneratedAt     string                  `json:"generatedAt"`
	PrimaryEntities []EntityDocument        `json:"primaryEntities"`
	RelatedEntities []RelatedEntityDocument `json:"relatedEntities"`

	Provenance Provenance `json:"provenance"`
}

// WriteJSON marshals doc as indented JSON and writes it to path.
func WriteJSON(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
