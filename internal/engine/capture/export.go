package capture

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
)

// Exporter writes captured height maps to disk.
type Exporter struct {
	outputDir string
	prefix    string
	// Size resamples the image to Size x Size before saving; 0 keeps the
	// capture resolution.
	Size int
}

// NewExporter creates an exporter writing into outputDir.
func NewExporter(outputDir, prefix string) *Exporter {
	return &Exporter{
		outputDir: outputDir,
		prefix:    prefix,
	}
}

// SetOutputDir sets the output directory.
func (e *Exporter) SetOutputDir(dir string) {
	e.outputDir = dir
}

// Filename generates a timestamped filename without saving.
func (e *Exporter) Filename(now time.Time) string {
	filename := fmt.Sprintf("%s_%s.png", e.prefix, now.Format("2006-01-02_15-04-05"))
	if e.outputDir != "" {
		filename = filepath.Join(e.outputDir, filename)
	}
	return filename
}

// Save writes img under a generated name and returns the path.
func (e *Exporter) Save(img image.Image) (string, error) {
	path := e.Filename(time.Now())
	if err := e.SaveAs(img, path); err != nil {
		return "", err
	}
	return path, nil
}

// SaveAs writes img to path. The format follows the file extension.
func (e *Exporter) SaveAs(img image.Image, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}

	if e.Size > 0 && (img.Bounds().Dx() != e.Size || img.Bounds().Dy() != e.Size) {
		img = imaging.Resize(img, e.Size, e.Size, imaging.Lanczos)
	}

	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}
