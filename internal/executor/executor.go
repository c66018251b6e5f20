package executor

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/spirodonfl/literate-programming/internal/block"
	"github.com/spirodonfl/literate-programming/internal/config"
	"github.com/spirodonfl/literate-programming/internal/extract"
	"github.com/spirodonfl/literate-programming/internal/filter"
	"github.com/spirodonfl/literate-programming/internal/parser"
	"github.com/spirodonfl/literate-programming/internal/paths"
	"github.com/spirodonfl/literate-programming/internal/resolve"
	"github.com/spirodonfl/literate-programming/internal/scanner"
	"github.com/spirodonfl/literate-programming/internal/writer"
)

// Report summarizes one run
type Report struct {
	Documents   int
	Written     []string
	Injected    []string
	Imported    []string
	Pulled      []string
	Filtered    int // output blocks dropped by include/ignore and narrowing
	Diagnostics []parser.Diagnostic
	Err         error // per-block failures, combined with multierr
}

// Failures returns the individual per-block errors
func (r *Report) Failures() []error {
	return multierr.Errors(r.Err)
}

// Executor runs the whole pipeline once
type Executor struct {
	fs        afero.Fs
	opts      config.Options
	overrides config.Overrides
	log       *zap.Logger
}

// NewExecutor creates an executor. overrides are re-applied after the
// configuration blocks so that command line values win over documents.
func NewExecutor(fs afero.Fs, opts config.Options, overrides config.Overrides, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{fs: fs, opts: opts.With(overrides), overrides: overrides, log: log}
}

// run holds the state shared by the phases of one Run
type run struct {
	*Executor
	opts   config.Options
	base   *paths.Resolver
	store  *block.Store
	report *Report
}

// Run scans, lexes, configures, filters, resolves and writes, in that order.
// It only returns an error when the input root cannot be scanned or the
// options are unusable; everything else is recorded in the report.
func (e *Executor) Run() (*Report, error) {
	r := &run{
		Executor: e,
		opts:     e.opts,
		base:     paths.NewResolver(e.opts.InputPath()),
		store:    block.NewStore(),
		report:   &Report{},
	}

	docs, err := scanner.New(e.fs, e.opts.Extensions()).Scan(r.base.Base())
	if err != nil {
		return nil, err
	}
	r.report.Documents = len(docs)
	e.log.Info("Scanned input", zap.String("root", r.base.Base()), zap.Int("documents", len(docs)))

	r.logConfigDocument()
	r.lex(docs)

	r.configure()

	outputs, err := r.filterOutputs()
	if err != nil {
		return nil, err
	}

	ext := extract.New(e.fs, r.base)
	res := resolve.New(r.store, ext, r.opts, e.log)
	w := writer.New(e.fs, r.base, r.opts.OutputPath(), e.log)

	r.writeOutputs(outputs, res, w)
	r.writeInjections(res, w)
	r.writeImports(ext, w)
	r.writePullFroms(w)

	return r.report, nil
}

func (r *run) fail(err error, msg string, fields ...zap.Field) {
	r.log.Error(msg, append(fields, zap.Error(err))...)
	r.report.Err = multierr.Append(r.report.Err, err)
}

func (r *run) logConfigDocument() {
	name := r.opts.ConfigDocument()
	if name == "" {
		return
	}
	path := r.base.Resolve(name)
	if ok, _ := afero.Exists(r.fs, path); ok {
		r.log.Info("Found config document", zap.String("path", path))
		return
	}
	r.log.Info("No config document, using defaults", zap.String("path", path))
}

func (r *run) lex(docs []scanner.Document) {
	for _, doc := range docs {
		data, err := afero.ReadFile(r.fs, doc.Path)
		if err != nil {
			r.fail(err, "Could not read document", zap.String("path", doc.Path))
			continue
		}

		res := parser.Lex(doc.Path, doc.RelDir, string(data))
		r.store.AddAll(res.Blocks)

		diags := append(res.Diagnostics, parser.Lint(doc.Path, data, res)...)
		for _, d := range diags {
			r.log.Warn("Document problem", zap.String("path", d.Source), zap.Int("line", d.Line), zap.String("problem", d.Msg))
		}
		r.report.Diagnostics = append(r.report.Diagnostics, diags...)
	}

	for _, k := range []block.Kind{
		block.KindCode, block.KindOutput, block.KindInjection, block.KindConfig,
		block.KindImport, block.KindReference, block.KindCustom, block.KindPullFrom,
	} {
		r.log.Debug("Found blocks", zap.String("kind", k.String()), zap.Int("count", r.store.Len(k)))
	}
}

func (r *run) configure() {
	opts, err := config.Resolve(r.opts, r.store.Configs())
	for _, e := range multierr.Errors(err) {
		r.fail(e, "Bad configuration value")
	}
	r.opts = opts.With(r.overrides)
	r.log.Debug("Resolved options",
		zap.Strings("include", r.opts.Include()),
		zap.Strings("ignore", r.opts.Ignore()),
		zap.Bool("output_source", r.opts.OutputSource()),
		zap.String("unresolved", string(r.opts.Unresolved())),
	)
}

func (r *run) filterOutputs() ([]*block.Output, error) {
	all := r.store.Outputs()
	outputs := filter.Apply(all, r.opts.Include(), r.opts.Ignore(), r.base)
	outputs, err := filter.Narrow(outputs, r.opts.OutputFile(), r.opts.MDFile(), r.base)
	if err != nil {
		return nil, err
	}
	r.report.Filtered = len(all) - len(outputs)
	r.log.Info("Selected output blocks", zap.Int("selected", len(outputs)), zap.Int("filtered", r.report.Filtered))
	return outputs, nil
}

func (r *run) writeOutputs(outputs []*block.Output, res *resolve.Resolver, w *writer.Writer) {
	for _, out := range outputs {
		content, err := res.Resolve(out.Body)
		if err != nil {
			r.fail(fmt.Errorf("output %s: %w", out.Target, err), "Could not resolve output block", zap.String("source", out.Source))
			continue
		}
		if r.opts.DryRun() {
			r.report.Written = append(r.report.Written, w.OutputPath(out))
			continue
		}
		path, _, err := w.WriteOutput(out, content)
		if err != nil {
			r.fail(err, "Could not write output", zap.String("path", path))
			continue
		}
		r.report.Written = append(r.report.Written, path)
	}
}

func (r *run) writeInjections(res *resolve.Resolver, w *writer.Writer) {
	for _, inj := range r.store.Injections() {
		body, err := res.Body(inj)
		if err != nil {
			r.fail(fmt.Errorf("injection %s: %w", inj.Name, err), "Could not resolve injection block", zap.String("source", inj.Source))
			continue
		}
		if r.opts.DryRun() {
			r.report.Injected = append(r.report.Injected, r.base.Resolve(inj.Target))
			continue
		}
		path, err := w.Inject(inj, res.Provenance(inj, inj.Name)+body)
		if err != nil {
			r.fail(err, "Could not inject block", zap.String("name", inj.Name))
			continue
		}
		r.report.Injected = append(r.report.Injected, path)
	}
}

func (r *run) writeImports(ext *extract.Extractor, w *writer.Writer) {
	var order []string
	groups := make(map[string][]*block.Import)
	contents := make(map[string][]string)

	for _, imp := range r.store.Imports() {
		content, err := ext.Extract(imp.Ref)
		if err != nil {
			if !errors.Is(err, extract.ErrTagNotClosed) {
				r.fail(fmt.Errorf("import %s: %w", imp.Ref.Path, err), "Could not read import", zap.String("source", imp.Source), zap.Int("line", imp.StartLine))
				continue
			}
			r.log.Warn("Importing partial tag region", zap.String("source", imp.Source), zap.Error(err))
		}
		if _, seen := groups[imp.Source]; !seen {
			order = append(order, imp.Source)
		}
		groups[imp.Source] = append(groups[imp.Source], imp)
		contents[imp.Source] = append(contents[imp.Source], content)
	}

	for _, doc := range order {
		if r.opts.DryRun() {
			r.report.Imported = append(r.report.Imported, doc)
			continue
		}
		if err := w.Import(doc, groups[doc], contents[doc]); err != nil {
			r.fail(err, "Could not import into document", zap.String("path", doc))
			continue
		}
		r.report.Imported = append(r.report.Imported, doc)
	}
}

func (r *run) writePullFroms(w *writer.Writer) {
	for _, pf := range r.store.PullFroms() {
		from := writer.PullPath(pf)
		found, ok := r.store.LookupFrom(block.KindCustom, pf.Name, func(source string) bool {
			return filepath.Clean(source) == from
		})
		if !ok {
			err := fmt.Errorf("%w: %s in %s", writer.ErrBlockMissing, pf.Name, from)
			if exists, _ := afero.Exists(r.fs, from); !exists {
				err = fmt.Errorf("%w: %s", writer.ErrTargetMissing, from)
			}
			r.fail(err, "Could not pull block", zap.String("into", pf.Source))
			continue
		}
		if r.opts.DryRun() {
			r.report.Pulled = append(r.report.Pulled, pf.Source)
			continue
		}
		action, err := w.PullFrom(pf, found.(*block.Custom))
		if err != nil {
			r.fail(err, "Could not pull block", zap.String("into", pf.Source))
			continue
		}
		if action == writer.ActionPatched {
			r.report.Pulled = append(r.report.Pulled, pf.Source)
		}
	}
}
