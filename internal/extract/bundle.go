package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gotoml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	cferrors "codefacts/internal/errors"
	"codefacts/internal/facts"
)

// FileExtractor reads a fact bundle the front end wrote earlier. The format
// follows the extension: .json (array), .jsonl, .yaml/.yml (sequence) or
// .toml (an array of tables named "facts").
type FileExtractor struct {
	Path string
}

type tomlBundle struct {
	Facts []map[string]interface{} `toml:"facts"`
}

// Extract implements Extractor. A relative Path is resolved against the
// project directory.
func (f *FileExtractor) Extract(_ context.Context, req Request) ([]facts.Record, error) {
	path := f.Path
	if !filepath.IsAbs(path) && req.ProjectPath != "" {
		path = filepath.Join(req.ProjectPath, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cferrors.New(cferrors.ExtractionFailed, "read fact bundle", err)
	}
	recs, err := ParseBundle(path, data)
	if err != nil {
		return nil, cferrors.New(cferrors.ExtractionFailed, "parse fact bundle "+filepath.Base(path), err)
	}
	return ApplyOptions(recs, req.Options), nil
}

// ParseBundle decodes bundle data according to the extension of name.
func ParseBundle(name string, data []byte) ([]facts.Record, error) {
	var objs []map[string]interface{}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jsonl", ".ndjson":
		return ReadJSONLines(bytes.NewReader(data))
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&objs); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &objs); err != nil {
			return nil, err
		}
	case ".toml":
		var b tomlBundle
		if err := gotoml.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		objs = b.Facts
	default:
		return nil, fmt.Errorf("unsupported bundle format %q", filepath.Ext(name))
	}

	recs := make([]facts.Record, 0, len(objs))
	for i, obj := range objs {
		rec, err := ToRecord(obj)
		if err != nil {
			return nil, fmt.Errorf("fact %d: %w", i, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
