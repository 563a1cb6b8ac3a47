package delivery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

const (
	patchFileName = "resource-recommendations.yaml"
	htmlFileName  = "resource-recommendations.html"
)

// FileSink writes the patch document and, when rendered, the HTML report
// into a directory. Files are overwritten on every cycle.
type FileSink struct {
	dir string
}

// NewFileSink writes artifacts under dir, creating it if needed.
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

func (f *FileSink) Name() string { return "file" }

func (f *FileSink) Deliver(ctx context.Context, artifacts Artifacts) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	patchPath := filepath.Join(f.dir, patchFileName)
	if err := os.WriteFile(patchPath, artifacts.PatchYAML, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", patchFileName, err)
	}

	if artifacts.HTML != "" {
		htmlPath := filepath.Join(f.dir, htmlFileName)
		if err := os.WriteFile(htmlPath, []byte(artifacts.HTML), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", htmlFileName, err)
		}
	}
	return nil
}

var _ Sink = (*FileSink)(nil)
