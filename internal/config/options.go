package config

import (
	"path/filepath"
)

// Options controls one run. It is a value: every With* method and Resolve
// return a modified copy and never touch the receiver.
type Options struct {
	inputPath                 string
	outputPath                string
	outputFile                string
	mdFile                    string
	include                   []string
	ignore                    []string
	outputSource              bool
	outputSourceAbsolutePaths bool
	unresolved                UnresolvedPolicy
	maxPasses                 int
	extensions                []string
	configDocument            string
	dryRun                    bool
}

// Defaults returns the options used when nothing is configured
func Defaults() Options {
	return Options{
		inputPath:      ".",
		outputSource:   true,
		unresolved:     UnresolvedKeep,
		maxPasses:      64,
		extensions:     []string{".md"},
		configDocument: "config.md",
	}
}

func (o Options) InputPath() string               { return o.inputPath }
func (o Options) OutputPath() string              { return o.outputPath }
func (o Options) OutputFile() string              { return o.outputFile }
func (o Options) MDFile() string                  { return o.mdFile }
func (o Options) Include() []string               { return append([]string(nil), o.include...) }
func (o Options) Ignore() []string                { return append([]string(nil), o.ignore...) }
func (o Options) OutputSource() bool              { return o.outputSource }
func (o Options) OutputSourceAbsolutePaths() bool { return o.outputSourceAbsolutePaths }
func (o Options) Unresolved() UnresolvedPolicy    { return o.unresolved }
func (o Options) MaxPasses() int                  { return o.maxPasses }
func (o Options) Extensions() []string            { return append([]string(nil), o.extensions...) }
func (o Options) ConfigDocument() string          { return o.configDocument }
func (o Options) DryRun() bool                    { return o.dryRun }

// Overrides are values given explicitly on the command line. A nil field
// leaves the option alone.
type Overrides struct {
	InputPath                 *string
	OutputPath                *string
	OutputFile                *string
	MDFile                    *string
	OutputSource              *bool
	OutputSourceAbsolutePaths *bool
	Unresolved                *UnresolvedPolicy
	MaxPasses                 *int
	DryRun                    *bool
}

// With applies command line overrides on top of o
func (o Options) With(ov Overrides) Options {
	if ov.InputPath != nil {
		o.inputPath = expandTilde(*ov.InputPath)
	}
	if ov.OutputPath != nil {
		o.outputPath = normalizeOutputPath(expandTilde(*ov.OutputPath))
	}
	if ov.OutputFile != nil {
		o.outputFile = *ov.OutputFile
	}
	if ov.MDFile != nil {
		o.mdFile = *ov.MDFile
	}
	if ov.OutputSource != nil {
		o.outputSource = *ov.OutputSource
	}
	if ov.OutputSourceAbsolutePaths != nil {
		o.outputSourceAbsolutePaths = *ov.OutputSourceAbsolutePaths
	}
	if ov.Unresolved != nil {
		o.unresolved = *ov.Unresolved
	}
	if ov.MaxPasses != nil && *ov.MaxPasses > 0 {
		o.maxPasses = *ov.MaxPasses
	}
	if ov.DryRun != nil {
		o.dryRun = *ov.DryRun
	}
	o.include = append([]string(nil), o.include...)
	o.ignore = append([]string(nil), o.ignore...)
	return o
}

// WithInputPath returns a copy of o reading documents from path
func (o Options) WithInputPath(path string) Options {
	return o.With(Overrides{InputPath: &path})
}

// normalizeOutputPath turns "./" and "" into "no prefix" and makes the rest absolute
func normalizeOutputPath(p string) string {
	if p == "" || filepath.Clean(p) == "." {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
