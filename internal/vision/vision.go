// Package vision enriches user input that references image files on disk with
// a model-generated description. Enrichment is opaque text: failures degrade
// to an inline error string and never block the turn.
package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
}

// IsImagePath reports whether the path has a recognized image extension.
func IsImagePath(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// Describer turns image bytes into a free-text description.
type Describer interface {
	Describe(ctx context.Context, imageBase64 string) (string, error)
}

// Enricher scans user input for image paths and appends their descriptions.
type Enricher struct {
	describer Describer
	logger    *log.Logger
}

func NewEnricher(describer Describer, logger *log.Logger) *Enricher {
	return &Enricher{describer: describer, logger: logger}
}

// EnrichInput returns the input with an "Image description" block appended
// for every whitespace-separated token that names an existing image file.
// Inputs without image references come back unchanged.
func (e *Enricher) EnrichInput(ctx context.Context, input string) string {
	if e == nil || e.describer == nil {
		return input
	}

	var blocks []string
	for _, token := range strings.Fields(input) {
		info, err := os.Stat(token)
		if err != nil || info.IsDir() {
			continue
		}
		if !IsImagePath(token) {
			e.logger.Printf("vision: %s exists but is not an image, skipping", token)
			continue
		}
		blocks = append(blocks, e.describeFile(ctx, token))
	}
	if len(blocks) == 0 {
		return input
	}
	return input + "\n\n" + strings.Join(blocks, "\n")
}

func (e *Enricher) describeFile(ctx context.Context, path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		e.logger.Printf("vision: read %s failed: %v", path, err)
		return fmt.Sprintf("Image description (%s): could not read the image: %v", path, err)
	}
	desc, err := e.describer.Describe(ctx, base64.StdEncoding.EncodeToString(data))
	if err != nil {
		e.logger.Printf("vision: describe %s failed: %v", path, err)
		return fmt.Sprintf("Image description (%s): image analysis failed: %v", path, err)
	}
	return fmt.Sprintf("Image description (%s): %s", path, desc)
}
