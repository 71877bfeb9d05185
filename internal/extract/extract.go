// Package extract obtains facts from the external extraction front end,
// either by running it or by reading a bundle it produced earlier.
package extract

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"codefacts/internal/config"
	"codefacts/internal/facts"
)

// Request describes one extraction.
type Request struct {
	ProjectPath string
	Options     config.ExtractorOptions
}

// Extractor produces the raw fact records for a project. Records are
// unvalidated; callers run them through facts.Validator.
type Extractor interface {
	Extract(ctx context.Context, req Request) ([]facts.Record, error)
}

// ApplyOptions drops records the options switch off. The front end applies
// the same options, so this only matters for bundles produced with wider
// settings; either way a narrower scope shrinks ground truth.
func ApplyOptions(recs []facts.Record, opts config.ExtractorOptions) []facts.Record {
	out := recs[:0:0]
	for _, r := range recs {
		if keep(r, opts) {
			out = append(out, r)
		}
	}
	return out
}

func keep(r facts.Record, opts config.ExtractorOptions) bool {
	switch facts.Type(r.Type()) {
	case facts.TypeMethodCall:
		switch strings.ToLower(strings.TrimSpace(r["call_kind"])) {
		case facts.CallKindAttribute:
			return opts.RecordAttributeCalls
		case facts.CallKindInitializer:
			return opts.RecordInitializerCalls
		}
	case facts.TypePropertyDefinition:
		return opts.IncludeProperties
	case facts.TypeFieldDefinition:
		return opts.IncludeFields
	}
	return true
}

// optionFlags renders opts as front-end command line flags.
func optionFlags(opts config.ExtractorOptions) []string {
	var flags []string
	if !opts.RecordAttributeCalls {
		flags = append(flags, "--no-attribute-calls")
	}
	if !opts.RecordInitializerCalls {
		flags = append(flags, "--no-initializer-calls")
	}
	if !opts.IncludeProperties {
		flags = append(flags, "--no-properties")
	}
	if !opts.IncludeFields {
		flags = append(flags, "--no-fields")
	}
	return flags
}

// ReadJSONLines parses one JSON object per line. Blank lines are ignored.
func ReadJSONLines(r io.Reader) ([]facts.Record, error) {
	var recs []facts.Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		var obj map[string]interface{}
		dec := json.NewDecoder(bytes.NewReader(text))
		dec.UseNumber()
		if err := dec.Decode(&obj); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rec, err := ToRecord(obj)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		recs = append(recs, rec)
	}
	return recs, sc.Err()
}

// ToRecord flattens a decoded object into a string record. Numbers and
// booleans are formatted, lists are comma-joined, null becomes empty.
func ToRecord(obj map[string]interface{}) (facts.Record, error) {
	rec := make(facts.Record, len(obj))
	for k, v := range obj {
		s, err := scalar(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		rec[k] = s
	}
	return rec, nil
}

func scalar(v interface{}) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case json.Number:
		return t.String(), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case uint64:
		return strconv.FormatUint(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case []interface{}:
		items := make([]string, 0, len(t))
		for _, it := range t {
			s, err := scalar(it)
			if err != nil {
				return "", err
			}
			items = append(items, s)
		}
		return facts.JoinList(items), nil
	case []string:
		return facts.JoinList(t), nil
	}
	return "", fmt.Errorf("unsupported value of type %T", v)
}
