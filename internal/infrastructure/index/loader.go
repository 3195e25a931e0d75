package index

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/creditdesk/riskflow/internal/core/domain"
	"github.com/creditdesk/riskflow/internal/core/ports"
)

type splitter interface {
	Split(text string) []string
}

// Loader walks the corpus directory and turns every supported document into
// indexed chunks. Chunk IDs are deterministic so re-loading the same corpus
// yields the same citations.
type Loader struct {
	extractors map[string]ports.TextExtractor
	splitter   splitter
	logger     *slog.Logger
}

func NewLoader(extractors map[string]ports.TextExtractor, split splitter, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		extractors: extractors,
		splitter:   split,
		logger:     logger,
	}
}

// Load extracts and chunks every supported file under dir, in stable path
// order. Unsupported extensions are skipped with a log line.
func (l *Loader) Load(ctx context.Context, dir string) ([]domain.DocumentChunk, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk corpus dir: %w", err)
	}
	sort.Strings(paths)

	var chunks []domain.DocumentChunk
	for _, path := range paths {
		ext := strings.ToLower(filepath.Ext(path))
		extractor, ok := l.extractors[ext]
		if !ok {
			l.logger.Debug("skipping unsupported corpus file", "path", path)
			continue
		}

		pages, err := extractor.Extract(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", path, err)
		}

		source := filepath.Base(path)
		for pageIdx, pageText := range pages {
			page := 0
			if len(pages) > 1 {
				page = pageIdx + 1
			}
			for chunkIdx, text := range l.splitter.Split(pageText) {
				chunks = append(chunks, domain.DocumentChunk{
					ID:         fmt.Sprintf("%s:%d:%d", source, pageIdx+1, chunkIdx),
					Text:       text,
					Source:     source,
					SourcePage: page,
				})
			}
		}
		l.logger.Info("corpus file chunked", "source", source, "pages", len(pages))
	}
	return chunks, nil
}
