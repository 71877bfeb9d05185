package extract

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"codefacts/internal/config"
	cferrors "codefacts/internal/errors"
	"codefacts/internal/slogutil"
)

// ManifestFile is the per-project manifest name, looked up in the project root.
const ManifestFile = ".codefacts.toml"

// Manifest is the optional per-project override of extraction settings.
//
//	name = "billing"
//
//	[extractor]
//	command = "fact-extractor"
//	args = ["--solution", "Billing.sln"]
//	bundle = "build/facts.jsonl"
//
//	[options]
//	record_attribute_calls = false
type Manifest struct {
	Name      string            `toml:"name"`
	Extractor ManifestExtractor `toml:"extractor"`
	Options   ManifestOptions   `toml:"options"`

	// Unknown lists keys the decoder did not recognize.
	Unknown []string `toml:"-"`
}

// ManifestExtractor overrides the configured front end.
type ManifestExtractor struct {
	Command        string   `toml:"command"`
	Args           []string `toml:"args"`
	Bundle         string   `toml:"bundle"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// ManifestOptions overrides individual extractor options. Unset keys keep
// the configured value.
type ManifestOptions struct {
	RecordAttributeCalls   *bool `toml:"record_attribute_calls"`
	RecordInitializerCalls *bool `toml:"record_initializer_calls"`
	IncludeProperties      *bool `toml:"include_properties"`
	IncludeFields          *bool `toml:"include_fields"`
}

// LoadManifest reads <projectPath>/.codefacts.toml. A missing manifest
// returns nil, nil.
func LoadManifest(projectPath string) (*Manifest, error) {
	path := filepath.Join(projectPath, ManifestFile)
	var m Manifest
	md, err := toml.DecodeFile(path, &m)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", ManifestFile, err)
	}
	for _, k := range md.Undecoded() {
		m.Unknown = append(m.Unknown, k.String())
	}
	return &m, nil
}

// Apply returns opts with the manifest's overrides applied.
func (o ManifestOptions) Apply(opts config.ExtractorOptions) config.ExtractorOptions {
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&opts.RecordAttributeCalls, o.RecordAttributeCalls)
	set(&opts.RecordInitializerCalls, o.RecordInitializerCalls)
	set(&opts.IncludeProperties, o.IncludeProperties)
	set(&opts.IncludeFields, o.IncludeFields)
	return opts
}

// Plan is the resolved way to extract one project.
type Plan struct {
	Name      string
	Extractor Extractor
	Options   config.ExtractorOptions
	// Source describes where facts come from, for status messages.
	Source string
}

// Resolve picks the extractor for a project: a manifest bundle wins over a
// manifest command, which wins over the configured command.
func Resolve(projectPath string, cfg config.ExtractorConfig, logger *slog.Logger) (*Plan, error) {
	logger = slogutil.OrDiscard(logger)
	m, err := LoadManifest(projectPath)
	if err != nil {
		return nil, cferrors.New(cferrors.ExtractionFailed, "invalid project manifest", err)
	}

	plan := &Plan{Options: cfg.Options}
	command, args, timeout := cfg.Command, cfg.Args, cfg.TimeoutSeconds
	if m != nil {
		if len(m.Unknown) > 0 {
			logger.Warn("Ignoring unknown manifest keys", "project", projectPath, "keys", m.Unknown)
		}
		plan.Name = m.Name
		plan.Options = m.Options.Apply(cfg.Options)
		if m.Extractor.Bundle != "" {
			plan.Extractor = &FileExtractor{Path: m.Extractor.Bundle}
			plan.Source = "bundle " + m.Extractor.Bundle
			return plan, nil
		}
		if m.Extractor.Command != "" {
			command, args = m.Extractor.Command, m.Extractor.Args
		}
		if m.Extractor.TimeoutSeconds > 0 {
			timeout = m.Extractor.TimeoutSeconds
		}
	}

	if command == "" {
		return nil, cferrors.New(cferrors.ExtractionFailed,
			"no extractor configured: set extractor.command or add a "+ManifestFile, nil)
	}
	plan.Extractor = NewCommandExtractor(command, args, time.Duration(timeout)*time.Second, logger)
	plan.Source = "command " + command
	return plan, nil
}
