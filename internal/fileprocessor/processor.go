// Package fileprocessor handles output file naming and writing.
package fileprocessor

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/snespatch/internal/options"
	"github.com/retroenv/snespatch/internal/patcher"
)

// GenerateOutputFilename generates the output filename of a decompressed
// stream.
func GenerateOutputFilename(dir string, job patcher.ExtractJob) string {
	return filepath.Join(dir, fmt.Sprintf("%06x.%s.bin", job.Offset, job.Format))
}

// WriteExtracted writes every decompressed stream into its own file in dir
// and returns the written file names.
func WriteExtracted(logger *log.Logger, dir string, results []patcher.Extracted) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", dir, err)
	}

	files := make([]string, 0, len(results))
	for _, res := range results {
		name := GenerateOutputFilename(dir, res.Job)
		if err := os.WriteFile(name, res.Data, 0o644); err != nil {
			return nil, fmt.Errorf("writing output file %s: %w", name, err)
		}
		logger.Info("Stream extracted",
			log.String("file", name),
			log.Hex("offset", res.Job.Offset),
			log.Int("size", len(res.Data)))
		files = append(files, name)
	}
	return files, nil
}

// PrintBanner logs the program version and the configuration file in use.
func PrintBanner(logger *log.Logger, opts options.Global, version, commit, date string) {
	if opts.Quiet {
		return
	}

	logger.Info("snespatch SNES level patcher",
		log.String("version", version),
		log.String("commit", shortCommit(commit)),
		log.String("built", orUnknown(date)))

	if opts.Config != "" {
		logger.Debug("Using configuration", log.String("file", opts.Config))
	}
}

// shortCommit returns the abbreviated form of a commit hash.
func shortCommit(commit string) string {
	const length = 7
	if len(commit) > length {
		return commit[:length]
	}
	return orUnknown(commit)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
