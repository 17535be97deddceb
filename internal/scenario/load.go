package scenario

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/karst-sim/karst/internal/ctxlog"
)

// findScenarioFiles resolves a path to the ordered list of .hcl files
// it names: the path itself when it is a file, otherwise every .hcl
// file under the directory, sorted for deterministic aggregation.
func findScenarioFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("scenario path %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".hcl") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking scenario directory %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl scenario files under %s", path)
	}
	sort.Strings(files)
	return files, nil
}

// parseFile parses and decodes one scenario file.
func parseFile(path string, parser *hclparse.Parser) (*fileSchema, error) {
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse scenario file %s: %w", path, diags)
	}
	var parsed fileSchema
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode scenario file %s: %w", path, diags)
	}
	return &parsed, nil
}

// Document is the aggregated, still-declarative content of a scenario:
// every block from every file, before validation and state building.
type Document struct {
	Time       *TimeBlock
	Fields     []*FieldBlock
	Evaluators []*EvaluatorBlock
	Initials   []*InitialBlock
	Observed   []string
}

// LoadDocument reads the scenario file or directory at path and
// aggregates its blocks. Duplicate time blocks across files are
// rejected here; everything else is validated by Build.
func LoadDocument(ctx context.Context, path string) (*Document, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading scenario.", "path", path)

	files, err := findScenarioFiles(path)
	if err != nil {
		return nil, err
	}

	doc := &Document{}
	parser := hclparse.NewParser()
	for _, file := range files {
		parsed, err := parseFile(file, parser)
		if err != nil {
			return nil, err
		}
		if parsed.Time != nil {
			if doc.Time != nil {
				return nil, fmt.Errorf("scenario file %s: time block declared more than once", file)
			}
			doc.Time = parsed.Time
		}
		doc.Fields = append(doc.Fields, parsed.Fields...)
		doc.Evaluators = append(doc.Evaluators, parsed.Evaluators...)
		doc.Initials = append(doc.Initials, parsed.Initials...)
		doc.Observed = append(doc.Observed, parsed.Observed...)
	}

	logger.Debug("Scenario loaded.",
		"files", len(files),
		"fields", len(doc.Fields),
		"evaluators", len(doc.Evaluators),
		"initials", len(doc.Initials),
	)
	return doc, nil
}
