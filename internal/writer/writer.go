package writer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/spirodonfl/literate-programming/internal/block"
	"github.com/spirodonfl/literate-programming/internal/paths"
)

var (
	ErrTargetMissing      = errors.New("target file does not exist")
	ErrPlaceholderMissing = errors.New("placeholder not found in target")
	ErrBlockMissing       = errors.New("pulled block not found")
	ErrMarkerMissing      = errors.New("pull_from marker not found")
	ErrImportMoved        = errors.New("import block no longer at its lexed line")
)

// Action says what a write did to its target
type Action string

const (
	ActionCreated   Action = "created"
	ActionReplaced  Action = "replaced"
	ActionPatched   Action = "patched"
	ActionUnchanged Action = "unchanged"
)

// Writer applies resolved blocks to the filesystem
type Writer struct {
	fs         afero.Fs
	input      *paths.Resolver
	outputPath string
	log        *zap.Logger
}

// New creates a writer. Relative targets resolve against the input root;
// output blocks go under outputPath instead when it is set.
func New(fs afero.Fs, input *paths.Resolver, outputPath string, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{fs: fs, input: input, outputPath: outputPath, log: log}
}

// OutputPath returns where an output block is written
func (w *Writer) OutputPath(out *block.Output) string {
	if w.outputPath != "" {
		return paths.Against(w.outputPath, out.Path())
	}
	return w.input.Resolve(out.Path())
}

// WriteOutput writes content as the whole of the output block's file,
// creating parent directories and overwriting whatever was there.
func (w *Writer) WriteOutput(out *block.Output, content string) (string, Action, error) {
	path := w.OutputPath(out)
	if err := w.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return path, "", fmt.Errorf("create directory for %s: %w", path, err)
	}

	action := ActionCreated
	if exists, _ := afero.Exists(w.fs, path); exists {
		action = ActionReplaced
	}
	if err := afero.WriteFile(w.fs, path, []byte(content), 0644); err != nil {
		return path, "", fmt.Errorf("write %s: %w", path, err)
	}
	w.log.Info("Wrote file", zap.String("path", path), zap.String("action", string(action)))
	return path, action, nil
}

// Inject replaces the first {{{ name }}} in the injection's existing target
// file with content.
func (w *Writer) Inject(inj *block.Injection, content string) (string, error) {
	path := w.input.Resolve(inj.Target)
	data, err := afero.ReadFile(w.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return path, fmt.Errorf("%s: %w", path, ErrTargetMissing)
		}
		return path, fmt.Errorf("read %s: %w", path, err)
	}

	patched, ok := InjectPlaceholder(string(data), inj.Placeholder(), content)
	if !ok {
		return path, fmt.Errorf("%s: %w: %s", path, ErrPlaceholderMissing, inj.Placeholder())
	}
	if err := w.rewrite(path, patched); err != nil {
		return path, err
	}
	w.log.Info("Injected block", zap.String("name", inj.Name), zap.String("path", path))
	return path, nil
}

// Import splices extracted content over each import block of one document.
// contents is indexed like imports. The document is read from disk so that
// earlier writers' changes are kept.
func (w *Writer) Import(doc string, imports []*block.Import, contents []string) error {
	data, err := afero.ReadFile(w.fs, doc)
	if err != nil {
		return fmt.Errorf("read %s: %w", doc, err)
	}

	text := string(data)
	for i := len(imports) - 1; i >= 0; i-- {
		text, err = SpliceImport(text, imports[i], contents[i])
		if err != nil {
			return fmt.Errorf("%s: %w", doc, err)
		}
	}
	if err := w.rewrite(doc, text); err != nil {
		return err
	}
	w.log.Info("Imported blocks", zap.String("path", doc), zap.Int("count", len(imports)))
	return nil
}

// PullFrom inserts the custom block's body after the pull_from marker of the
// pulling document, unless the marker was already processed.
func (w *Writer) PullFrom(pf *block.PullFrom, custom *block.Custom) (Action, error) {
	data, err := afero.ReadFile(w.fs, pf.Source)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", pf.Source, err)
	}

	text := string(data)
	patched, changed := PatchPullFrom(text, pf.Marker, pf.Path, pf.Name, custom.Body)
	if !changed {
		if strings.Contains(text, PullFromMarker(pf.Path, pf.Name, true)) {
			w.log.Info("Block already pulled", zap.String("block", pf.Name), zap.String("path", pf.Source))
			return ActionUnchanged, nil
		}
		return "", fmt.Errorf("%s: %w: %s", pf.Source, ErrMarkerMissing, pf.Name)
	}
	if err := w.rewrite(pf.Source, patched); err != nil {
		return "", err
	}
	w.log.Info("Pulled block", zap.String("block", pf.Name), zap.String("from", custom.Source), zap.String("into", pf.Source))
	return ActionPatched, nil
}

// PullPath resolves the document a pull_from marker points at: absolute
// paths pass through, others are relative to the pulling document.
func PullPath(pf *block.PullFrom) string {
	return paths.Against(filepath.Dir(pf.Source), pf.Path)
}

func (w *Writer) rewrite(path, content string) error {
	info, err := w.fs.Stat(path)
	mode := os.FileMode(0644)
	if err == nil {
		mode = info.Mode().Perm()
	}
	if err := afero.WriteFile(w.fs, path, []byte(content), mode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
