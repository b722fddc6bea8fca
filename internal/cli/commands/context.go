package commands

import (
	gocontext "context"
	"errors"
	"flag"
	"fmt"

	basiccontext "github.com/basicmemory/basic-memory/internal/context"

	"github.com/basicmemory/basic-memory/internal/cli/flags"
	"github.com/basicmemory/basic-memory/internal/model"
)

// Context builds a context result around a memory:// URI.
func Context(args []string) error {
	fs := flag.NewFlagSet("context", flag.ContinueOnError)
	root := flags.AddRootFlag(fs)
	depth := fs.Int("depth", basiccontext.DefaultDepth, "BFS expansion depth (max 3)")
	timeframe := fs.String("timeframe", "", "how far back relations may reach, e.g. 7d, 24h, \"3 days ago\"")
	page := fs.Int("page", 1, "primary-entity result page")
	pageSize := fs.Int("page-size", basiccontext.DefaultPageSize, "primary-entity results per page")
	maxRelated := fs.Int("max-related", basiccontext.DefaultMaxRelated, "cap on related entities returned")
	output := fs.String("output", "", "write the context result JSON to this path instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()
	if len(remaining) == 0 {
		return errors.New("usage: basic-memory context <memory:// uri>")
	}
	if *depth != basiccontext.DefaultDepth {
		if err := flags.ValidateDepth(*depth); err != nil {
			return err
		}
	}

	e, err := openEnv(*root, false)
	if err != nil {
		return err
	}
	defer e.close()

	builder := basiccontext.New(e.store)
	result, err := builder.Build(gocontext.Background(), basiccontext.Request{
		URI: remaining[0], Depth: *depth, Timeframe: *timeframe, Page: *page, PageSize: *pageSize, MaxRelated: *maxRelated,
	})
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}

	doc := toContextResultDocument(result)
	if *output != "" {
		if err := model.WriteJSON(*output, doc); err != nil {
			return err
		}
		fmt.Printf("context result written to %s\n", *output)
		return nil
	}
	return printJSON(doc)
}

func toContextResultDocument(result basiccontext.Result) model.ContextResultDocument {
	primaries := make([]model.EntityDocument, 0, len(result.PrimaryEntities))
	for _, p := range result.PrimaryEntities {
		primaries = append(primaries, toEntityDocument(p))
	}
	related := make([]model.RelatedEntityDocument, 0, len(result.RelatedEntities))
	for _, r := range result.RelatedEntities {
		related = append(related, model.RelatedEntityDocument{
			EntityDocument: toEntityDocument(r.EntityView),
			Depth:          r.Depth,
			RelationType:   r.RelationType,
			Direction:      r.Direction,
		})
	}
	return model.ContextResultDocument{
		SchemaVersion:   "1.0.0",
		Kind:            "basic-memory/context-result",
		URI:             result.Metadata.URI,
		Depth:           result.Metadata.Depth,
		Timeframe:       result.Metadata.Timeframe,
		GeneratedAt:     result.Metadata.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		PrimaryEntities: primaries,
		RelatedEntities: related,
		Provenance: model.Provenance{
			CreatedBy: "basic-memory",
			CreatedAt: result.Metadata.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			Generator: "context",
		},
	}
}

func toEntityDocument(view basiccontext.EntityView) model.EntityDocument {
	obs := make([]model.ObservationDoc, 0, len(view.Observations))
	for _, o := range view.Observations {
		obs = append(obs, model.ObservationDoc{Category: o.Category, Content: o.Content})
	}
	return model.EntityDocument{
		Permalink:    view.Entity.Permalink.String,
		Title:        view.Entity.Title,
		EntityType:   view.Entity.EntityType,
		FilePath:     view.Entity.FilePath,
		Observations: obs,
		CreatedAt:    view.Entity.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:    view.Entity.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
