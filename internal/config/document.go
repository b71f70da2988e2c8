package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/wrangler/internal/ctxlog"
	"github.com/vk/wrangler/internal/workflow"
)

// DocumentLoader reads the JSON workflow document and its YAML rendition.
type DocumentLoader struct{}

func NewDocumentLoader() *DocumentLoader {
	return &DocumentLoader{}
}

func (l *DocumentLoader) Load(ctx context.Context, path string) (*Definition, error) {
	logger := ctxlog.FromContext(ctx)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}

	var doc workflow.Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		doc, err = workflow.DecodeYAMLDocument(data)
	default:
		doc, err = workflow.DecodeDocument(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Debugw("Definition loaded.", "path", path, "inputs", len(doc.Input), "steps", len(doc.Steps), "outputs", len(doc.Output))
	return FromDocument(path, doc), nil
}
