package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"codefacts/internal/config"
	cferrors "codefacts/internal/errors"
	"codefacts/internal/facts"
)

func allOn() config.ExtractorOptions {
	return config.DefaultConfig().Extractor.Options
}

func TestApplyOptions(t *testing.T) {
	recs := []facts.Record{
		{"type": "method_call", "call_kind": "invocation"},
		{"type": "method_call", "call_kind": "Attribute"},
		{"type": "method_call", "call_kind": "initializer"},
		{"type": "method_call"},
		{"type": "property_definition"},
		{"type": "field_definition"},
		{"type": "class_definition"},
	}

	tests := []struct {
		name string
		opts func(*config.ExtractorOptions)
		want int
	}{
		{"everything on", func(*config.ExtractorOptions) {}, 7},
		{"no attribute calls", func(o *config.ExtractorOptions) { o.RecordAttributeCalls = false }, 6},
		{"no initializer calls", func(o *config.ExtractorOptions) { o.RecordInitializerCalls = false }, 6},
		{"no members", func(o *config.ExtractorOptions) { o.IncludeProperties, o.IncludeFields = false, false }, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := allOn()
			tt.opts(&opts)
			if got := len(ApplyOptions(recs, opts)); got != tt.want {
				t.Errorf("ApplyOptions() kept %d, want %d", got, tt.want)
			}
		})
	}
	if len(recs) != 7 {
		t.Error("ApplyOptions() modified its input")
	}
}

func TestReadJSONLines(t *testing.T) {
	input := `{"type":"method_definition","method":"A.B.C","line_number":12,"is_static":true,"parameters":["int a","Dictionary<string, int> m"],"return_type":null}

{"type":"method_call","caller":"A.B.C","callee":"X.Y.Z","line_number":3}
`
	recs, err := ReadJSONLines(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadJSONLines() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	want := facts.Record{
		"type":        "method_definition",
		"method":      "A.B.C",
		"line_number": "12",
		"is_static":   "true",
		"parameters":  "int a, Dictionary<string, int> m",
		"return_type": "",
	}
	if !reflect.DeepEqual(recs[0], want) {
		t.Errorf("record = %v, want %v", recs[0], want)
	}
	if got := facts.SplitList(recs[0]["parameters"]); len(got) != 2 {
		t.Errorf("parameters do not split back into 2 items: %v", got)
	}

	if _, err := ReadJSONLines(strings.NewReader("{\"type\":\n")); err == nil {
		t.Error("expected error for truncated line")
	}
	if _, err := ReadJSONLines(strings.NewReader(`{"nested":{"a":1}}`)); err == nil {
		t.Error("expected error for nested object")
	}
}

func TestParseBundle_Formats(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"facts.json", `[{"type":"class_definition","class":"A.B","method_count":3}]`},
		{"facts.jsonl", `{"type":"class_definition","class":"A.B","method_count":3}`},
		{"facts.yaml", "- type: class_definition\n  class: A.B\n  method_count: 3\n"},
		{"facts.toml", "[[facts]]\ntype = \"class_definition\"\nclass = \"A.B\"\nmethod_count = 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := ParseBundle(tt.name, []byte(tt.data))
			if err != nil {
				t.Fatalf("ParseBundle() error = %v", err)
			}
			if len(recs) != 1 {
				t.Fatalf("got %d records", len(recs))
			}
			r := recs[0]
			if r["type"] != "class_definition" || r["class"] != "A.B" || r["method_count"] != "3" {
				t.Errorf("record = %v", r)
			}
		})
	}

	if _, err := ParseBundle("facts.csv", nil); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestFileExtractor_RelativeToProject(t *testing.T) {
	dir := t.TempDir()
	bundle := `{"type":"property_definition","property":"A.B.P"}
{"type":"class_definition","class":"A.B"}
`
	if err := os.WriteFile(filepath.Join(dir, "facts.jsonl"), []byte(bundle), 0o644); err != nil {
		t.Fatal(err)
	}

	opts := allOn()
	opts.IncludeProperties = false
	recs, err := (&FileExtractor{Path: "facts.jsonl"}).Extract(context.Background(), Request{ProjectPath: dir, Options: opts})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(recs) != 1 || recs[0]["type"] != "class_definition" {
		t.Errorf("Extract() = %v, want only the class", recs)
	}

	_, err = (&FileExtractor{Path: "missing.jsonl"}).Extract(context.Background(), Request{ProjectPath: dir})
	if cferrors.CodeOf(err) != cferrors.ExtractionFailed {
		t.Errorf("missing bundle error = %v", err)
	}
}

func TestCommandExtractor(t *testing.T) {
	runner := &MockRunner{Stdout: `{"type":"method_call","call_kind":"attribute"}` + "\n" + `{"type":"class_definition"}`}
	ex := &CommandExtractor{Command: "front", Args: []string{"--solution", "x.sln"}, Runner: runner}

	opts := allOn()
	opts.RecordAttributeCalls = false
	opts.IncludeFields = false
	recs, err := ex.Extract(context.Background(), Request{ProjectPath: "/src/app", Options: opts})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("Extract() = %v, want the attribute call filtered out", recs)
	}

	want := []string{"/src/app", "front", "--solution", "x.sln", "--project", "/src/app", "--no-attribute-calls", "--no-fields"}
	if len(runner.Calls) != 1 || !reflect.DeepEqual(runner.Calls[0], want) {
		t.Errorf("invocation = %v, want %v", runner.Calls, want)
	}
}

func TestCommandExtractor_Failures(t *testing.T) {
	tests := []struct {
		name   string
		ex     *CommandExtractor
		detail string
	}{
		{"no command", &CommandExtractor{Runner: &MockRunner{}}, ""},
		{"command fails", &CommandExtractor{Command: "front", Runner: &MockRunner{Err: errors.New("exit status 3"), Stderr: "boom"}}, "boom"},
		{"bad output", &CommandExtractor{Command: "front", Runner: &MockRunner{Stdout: "not json"}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.ex.Extract(context.Background(), Request{ProjectPath: "/p"})
			if cferrors.CodeOf(err) != cferrors.ExtractionFailed {
				t.Fatalf("Extract() error = %v, want EXTRACTION_FAILED", err)
			}
			if tt.detail != "" {
				var fe *cferrors.FactError
				if !errors.As(err, &fe) || fe.Details.(map[string]string)["stderr"] != tt.detail {
					t.Errorf("details = %v, want stderr %q", fe.Details, tt.detail)
				}
			}
		})
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	m, err := LoadManifest(dir)
	if err != nil || m != nil {
		t.Fatalf("missing manifest = %v, %v, want nil, nil", m, err)
	}

	manifest := `name = "billing"
colour = "blue"

[extractor]
command = "front"
args = ["--fast"]

[options]
include_fields = false
`
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err = LoadManifest(dir)
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}
	if m.Name != "billing" || m.Extractor.Command != "front" || len(m.Extractor.Args) != 1 {
		t.Errorf("manifest = %+v", m)
	}
	if len(m.Unknown) != 1 || m.Unknown[0] != "colour" {
		t.Errorf("Unknown = %v", m.Unknown)
	}

	opts := m.Options.Apply(allOn())
	if opts.IncludeFields || !opts.IncludeProperties {
		t.Errorf("Apply() = %+v", opts)
	}
}

func TestResolve_Precedence(t *testing.T) {
	cfg := config.DefaultConfig().Extractor
	cfg.Command = "configured"

	t.Run("config command", func(t *testing.T) {
		plan, err := Resolve(t.TempDir(), cfg, nil)
		if err != nil {
			t.Fatal(err)
		}
		if ce, ok := plan.Extractor.(*CommandExtractor); !ok || ce.Command != "configured" {
			t.Errorf("Extractor = %#v", plan.Extractor)
		}
	})

	t.Run("manifest bundle wins", func(t *testing.T) {
		dir := t.TempDir()
		manifest := "[extractor]\ncommand = \"front\"\nbundle = \"facts.json\"\n"
		if err := os.WriteFile(filepath.Join(dir, ManifestFile), []byte(manifest), 0o644); err != nil {
			t.Fatal(err)
		}
		plan, err := Resolve(dir, cfg, nil)
		if err != nil {
			t.Fatal(err)
		}
		if fe, ok := plan.Extractor.(*FileExtractor); !ok || fe.Path != "facts.json" {
			t.Errorf("Extractor = %#v", plan.Extractor)
		}
	})

	t.Run("nothing configured", func(t *testing.T) {
		_, err := Resolve(t.TempDir(), config.ExtractorConfig{}, nil)
		if cferrors.CodeOf(err) != cferrors.ExtractionFailed {
			t.Errorf("error = %v", err)
		}
	})
}
