// Package loader reads flow documents from disk into flow records.
//
// Three formats are understood, picked by file extension: JSON (.json),
// YAML (.yaml, .yml) and HCL (.hcl). The JSON form is the serialized
// record itself. YAML uses the same field names. HCL describes one flow
// per file with labelled blocks:
//
//	flow "f1" {
//	  intent   = "sync users"
//	  metadata = { owner = "ops", priority = 2 }
//
//	  resource "db" {
//	    type     = "database"
//	    provider = "postgres"
//	  }
//
//	  step "s1" {
//	    depends_on = []
//	    resource   = "db"
//	    query      = "SELECT 1"
//	    output     = "rows"
//	  }
//	}
//
// Loading never validates the graph; that is the job of the flow.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/petrijr/deepflow/internal/ctxlog"
	"github.com/petrijr/deepflow/pkg/api"
)

// Format names a flow document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHCL  Format = "hcl"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".hcl":
		return FormatHCL, nil
	}
	return "", &api.MalformedError{Field: "path", Msg: fmt.Sprintf("unsupported flow document extension %q", filepath.Ext(path))}
}

// Load reads and parses the flow document at path.
func Load(ctx context.Context, path string) (api.FlowRecord, error) {
	logger := ctxlog.FromContext(ctx)

	format, err := FormatOf(path)
	if err != nil {
		return api.FlowRecord{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return api.FlowRecord{}, fmt.Errorf("read flow document: %w", err)
	}
	logger.Debug("Loading flow document", "path", path, "format", format, "bytes", len(data))

	rec, err := Parse(data, format, path)
	if err != nil {
		return api.FlowRecord{}, fmt.Errorf("%s: %w", path, err)
	}
	logger.Debug("Loaded flow document", "flow_id", rec.ID, "resources", len(rec.Resources), "steps", len(rec.Steps))
	return rec, nil
}

// Parse decodes data in the given format. filename is only used in
// diagnostics. Nil collections in the result are empty.
func Parse(data []byte, format Format, filename string) (api.FlowRecord, error) {
	var (
		rec api.FlowRecord
		err error
	)
	switch format {
	case FormatJSON:
		rec, err = parseJSON(data)
	case FormatYAML:
		rec, err = parseYAML(data)
	case FormatHCL:
		rec, err = parseHCL(data, filename)
	default:
		return api.FlowRecord{}, &api.MalformedError{Field: "format", Msg: fmt.Sprintf("unknown format %q", format)}
	}
	if err != nil {
		return api.FlowRecord{}, err
	}
	return rec.Clone(), nil
}
