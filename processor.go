// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package imgx

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/semaphore"

	"github.com/docpipe/pdf-imgx/logger"
)

// Processor defines the contract for extracting embedded images from a
// PDF file into a Store.
type Processor interface {
	Extract(ctx context.Context, path string, store Store) ([]string, error)
}

// ExtractorStrategy defines how to extract the images of a single page.
// Different strategies handle errors differently (strict vs. best-effort).
type ExtractorStrategy interface {
	ExtractPage(ctx context.Context, page *Page) ([]ImageObject, error)
}

// StrictExtractor enforces strict parsing.
// If any page or any image fails, the entire extraction fails.
type StrictExtractor struct{}

func (s *StrictExtractor) ExtractPage(ctx context.Context, page *Page) ([]ImageObject, error) {
	return page.ImagesStrict()
}

// BestEffortExtractor tolerates errors.
// If a page or an image fails, it simply skips it.
type BestEffortExtractor struct{}

func (b *BestEffortExtractor) ExtractPage(ctx context.Context, page *Page) ([]ImageObject, error) {
	imgs, err := page.Images()
	if err != nil {
		// In best-effort mode, ignore errors and continue.
		logger.Debug("BestEffortExtractor: failed to extract page images, ignoring error", "err", err, true)
		return nil, nil
	}
	return imgs, nil
}

// processor manages image extraction with concurrency control and
// delegates page-level work to the chosen ExtractorStrategy.
type processor struct {
	cfg       *Config
	sem       *semaphore.Weighted
	extractor ExtractorStrategy
}

// NewProcessor validates the config and creates a new processor.
// Selects the correct ExtractorStrategy (Strict or BestEffort).
func NewProcessor(cfg *Config) *processor {
	//Select ExtractorStrategy
	var extractor ExtractorStrategy
	switch cfg.ParsingMode {
	case Strict:
		extractor = &StrictExtractor{}
	case BestEffort:
		extractor = &BestEffortExtractor{}
	}

	//Validate the config object
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	//Set the logger function
	if cfg.Logger != nil {
		logger.SetLogger(cfg.Logger)
	}

	logger.Debug(fmt.Sprintf("Processor initialized: parsing_mode=%v, max_concurrent_extracts=%d",
		cfg.ParsingMode, cfg.MaxConcurrentExtracts), true)

	return &processor{
		cfg:       cfg,
		sem:       semaphore.NewWeighted(int64(cfg.MaxConcurrentExtracts)),
		extractor: extractor,
	}
}

// Extract walks the document's pages in order, lifts out embedded
// images in encounter order and writes each surviving image to the
// store. Duplicate payloads collapse to their first occurrence, and
// JPEG2000 images are normalized to PNG before storage. The returned
// names are in extraction order; the first two carry the user/sign
// role prefixes.
//
// A document that cannot be opened or whose structure cannot be walked
// yields a non-nil error and no names. Per-image failures only skip
// the one image (unless the strict strategy is selected).
func (p *processor) Extract(ctx context.Context, path string, store Store) ([]string, error) {
	logger.Debug(fmt.Sprintf("Starting extraction: path=%s", path), true)

	if err := p.acquireSlot(ctx); err != nil {
		logger.Debug(fmt.Sprintf("Failed to acquire slot: err=%v", err), true)
		return nil, err
	}
	defer p.sem.Release(1)
	logger.Debug(fmt.Sprintf("Slot acquired for extraction: path=%s", path), true)

	f, r, err := Open(path)
	if err != nil {
		logger.Debug(fmt.Sprintf("Failed to open PDF: path=%s err=%v", path, err), true)
		return nil, err
	}
	defer f.Close()

	total := r.NumPage()
	logger.Debug(fmt.Sprintf("Total pages detected: path=%s pages=%d", path, total), true)

	if total == 0 {
		logger.Debug(fmt.Sprintf("No pages found in PDF: path=%s", path), true)
		return nil, nil
	}

	// Extraction order decides role prefixes and dedup winners, so
	// pages are walked sequentially; concurrency is applied across
	// calls via the semaphore, not within a document.
	seen := NewSeenSet()
	var names []string
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			logger.Debug(fmt.Sprintf("Context cancelled during extraction: page=%d", i), true)
			return nil, err
		}

		page := r.Page(i)
		if page.V.IsNull() {
			if p.cfg.ParsingMode == Strict {
				return nil, fmt.Errorf("strict mode failed on page %d: null page", i)
			}
			logger.Debug(fmt.Sprintf("Null page encountered: index=%d", i), true)
			continue
		}

		imgs, err := p.extractor.ExtractPage(ctx, &page)
		if err != nil {
			logger.Debug(fmt.Sprintf("Strict mode error — stopping extraction: page=%d err=%v", i, err))
			return nil, fmt.Errorf("strict mode failed on page %d: %w", i, err)
		}

		for _, img := range imgs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if seen.Seen(img.Data) {
				logger.Debug(fmt.Sprintf("Duplicate image skipped: page=%d", i), true)
				continue
			}
			data, ext, err := Normalize(img.Data, img.Ext)
			if err != nil {
				if p.cfg.ParsingMode == Strict {
					return nil, fmt.Errorf("strict mode failed on page %d: %w", i, err)
				}
				logger.Error(fmt.Sprintf("Failed to normalize image: page=%d err=%v", i, err))
				continue
			}
			name := FileName(len(names), ext)
			if err := store.Put(name, data); err != nil {
				if p.cfg.ParsingMode == Strict {
					return nil, fmt.Errorf("strict mode failed on page %d: %w", i, err)
				}
				logger.Error(fmt.Sprintf("Failed to store image: page=%d name=%s err=%v", i, name, err))
				continue
			}
			logger.Debug(fmt.Sprintf("Image stored: page=%d name=%s bytes=%d", i, name, len(data)), true)
			names = append(names, name)
		}
	}

	logger.Debug(fmt.Sprintf("Extraction completed: path=%s images=%d", path, len(names)), true)
	return names, nil
}

func (p *processor) acquireSlot(ctx context.Context) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire slot: %w", err)
	}
	logger.Debug("Slot acquired successfully", true)
	return nil
}

// Metadata prints PDF metadata as JSON to the provided writer.
func (p *processor) Metadata(ctx context.Context, path string, w io.Writer) error {
	logger.Debug(fmt.Sprintf("Reading metadata: path=%s", path), true)

	f, r, err := Open(path)
	if err != nil {
		logger.Error("failed to open PDF for metadata")
		return err
	}
	defer f.Close()

	if err := r.MetadataJSON(w); err != nil {
		logger.Error("failed to read metadata")
		return err
	}

	logger.Debug(fmt.Sprintf("Metadata extraction completed: path=%s", path), true)
	return nil
}
