// Package pipeline orchestrates the patching workflow stages.
package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/snespatch/internal/address"
	"github.com/retroenv/snespatch/internal/app"
	"github.com/retroenv/snespatch/internal/backup"
	"github.com/retroenv/snespatch/internal/config"
	"github.com/retroenv/snespatch/internal/detector"
	"github.com/retroenv/snespatch/internal/fileprocessor"
	"github.com/retroenv/snespatch/internal/importer"
	"github.com/retroenv/snespatch/internal/lclz"
	"github.com/retroenv/snespatch/internal/loader"
	"github.com/retroenv/snespatch/internal/options"
	"github.com/retroenv/snespatch/internal/patcher"
	"github.com/retroenv/snespatch/internal/verification"
)

// Pipeline orchestrates loading, patching, verifying and writing an image.
type Pipeline struct {
	logger   *log.Logger
	cfg      *config.Config
	detector *detector.Detector
	loader   *loader.Loader
	importer *importer.Importer
}

// New creates a new patching pipeline.
func New(logger *log.Logger, cfg *config.Config) *Pipeline {
	return &Pipeline{
		logger:   logger,
		cfg:      cfg,
		detector: detector.New(logger),
		loader:   loader.New(logger),
		importer: importer.New(logger),
	}
}

// Insert imports a level description and writes it into the image.
func (p *Pipeline) Insert(ctx context.Context, global options.Global, opts options.Insert) (patcher.Result, error) {
	lvl, err := p.importer.ImportFile(opts.File)
	if err != nil {
		return patcher.Result{}, fmt.Errorf("importing level: %w", err)
	}

	img, pt, err := p.open(global)
	if err != nil {
		return patcher.Result{}, err
	}

	patched := bytes.Clone(img.Data)
	res, err := pt.InsertLevel(patched, opts.Level, lvl)
	if err != nil {
		return patcher.Result{}, fmt.Errorf("inserting level 0x%x: %w", opts.Level, err)
	}
	if err := verification.VerifyPatch(p.logger, img.Data, patched, res.Touched); err != nil {
		return patcher.Result{}, fmt.Errorf("verifying patch: %w", err)
	}

	p.logger.Info("Level inserted",
		log.Hex("level", opts.Level),
		log.String("record", res.Record.String()),
		log.Int("size", res.Size))

	if opts.DryRun {
		p.logger.Info("Dry run, image not written")
		return res, nil
	}
	if err := p.commit(ctx, global.ROM, img, patched, opts.NoBackup); err != nil {
		return patcher.Result{}, err
	}
	return res, nil
}

// Remove frees the record of a level and clears its pointer.
func (p *Pipeline) Remove(ctx context.Context, global options.Global, opts options.Remove) (verification.Range, error) {
	img, pt, err := p.open(global)
	if err != nil {
		return verification.Range{}, err
	}

	patched := bytes.Clone(img.Data)
	freed, err := pt.RemoveLevel(patched, opts.Level)
	if err != nil {
		return verification.Range{}, err
	}

	pointer, err := pt.PointerRange(patched, opts.Level)
	if err != nil {
		return verification.Range{}, err
	}
	if err := verification.VerifyPatch(p.logger, img.Data, patched, []verification.Range{freed, pointer}); err != nil {
		return verification.Range{}, fmt.Errorf("verifying patch: %w", err)
	}

	p.logger.Info("Level removed",
		log.Hex("level", opts.Level),
		log.String("range", freed.String()))

	if err := p.commit(ctx, global.ROM, img, patched, opts.NoBackup); err != nil {
		return verification.Range{}, err
	}
	return freed, nil
}

// Free searches the image for a free region.
func (p *Pipeline) Free(global options.Global, opts options.Free) (address.Address, error) {
	img, pt, err := p.open(global)
	if err != nil {
		return address.Address{}, err
	}

	a, err := pt.FreeSpace(img.Data, opts.Size, opts.Align)
	if err != nil {
		return address.Address{}, fmt.Errorf("searching free space: %w", err)
	}

	p.logger.Info("Free space found",
		log.String("address", a.String()),
		log.Int("size", opts.Size))
	return a, nil
}

// Extract decompresses streams of the image into files and returns the
// written file names.
func (p *Pipeline) Extract(ctx context.Context, global options.Global, opts options.Extract) ([]string, error) {
	format, err := lclz.ParseFormat(opts.Format)
	if err != nil {
		return nil, err
	}

	img, _, err := p.open(global)
	if err != nil {
		return nil, err
	}

	jobs := make([]patcher.ExtractJob, 0, len(opts.Offsets))
	for _, offset := range opts.Offsets {
		jobs = append(jobs, patcher.ExtractJob{Offset: offset, Format: format})
	}

	results, err := patcher.Extract(ctx, img.Data, jobs)
	if err != nil {
		return nil, fmt.Errorf("extracting streams: %w", err)
	}
	return fileprocessor.WriteExtracted(p.logger, opts.Output, results)
}

// Restore writes the content of a backup file back to the image it was
// taken from.
func (p *Pipeline) Restore(opts options.Restore) (string, error) {
	m := backup.New(p.logger, backup.NoCompressor{})
	return m.Restore(opts.Backup)
}

// open loads the image, detects its mapper and returns a patcher for it.
func (p *Pipeline) open(global options.Global) (*loader.Image, *patcher.Patcher, error) {
	img, err := p.loader.Load(global.ROM)
	if err != nil {
		return nil, nil, fmt.Errorf("loading image: %w", err)
	}

	forced, _, err := p.cfg.ForcedMapper()
	if err != nil {
		return nil, nil, err
	}
	m, err := p.detector.Detect(img.Data, forced)
	if err != nil {
		return nil, nil, fmt.Errorf("detecting mapper: %w", err)
	}
	app.PrintInfo(p.logger, global, img, m)

	stamp, enabled, err := p.cfg.VersionStamp()
	if err != nil {
		return nil, nil, err
	}
	pt := patcher.New(p.logger, m, patcher.Options{
		Alignment:    p.cfg.FreeSpace.Alignment,
		StampVersion: enabled,
		Version:      stamp,
	})
	return img, pt, nil
}

// commit backs up the original file content and writes the patched image.
func (p *Pipeline) commit(ctx context.Context, path string, img *loader.Image, patched []byte, noBackup bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if p.cfg.Backup.Enabled && !noBackup {
		c, err := backup.ForName(p.cfg.Backup.Compression)
		if err != nil {
			return err
		}
		if _, err := backup.New(p.logger, c).Backup(path, img.Bytes()); err != nil {
			return fmt.Errorf("backing up image: %w", err)
		}
	}

	out := &loader.Image{Data: patched, CopierHeader: img.CopierHeader}
	if err := p.loader.Save(path, out); err != nil {
		return fmt.Errorf("writing image: %w", err)
	}
	p.logger.Info("Image written",
		log.String("file", path),
		log.String("original", verification.Digest(img.Data)),
		log.String("patched", verification.Digest(patched)))
	return nil
}
