// Package app provides the main application helpers for the patcher.
package app

import (
	"errors"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/snespatch/internal/address"
	"github.com/retroenv/snespatch/internal/loader"
	"github.com/retroenv/snespatch/internal/options"
)

// PrintInfo prints the information about the image being processed.
func PrintInfo(logger *log.Logger, opts options.Global, img *loader.Image, m address.Mapper) {
	if opts.Quiet {
		return
	}

	logger.Info("Processing SNES image",
		log.String("file", opts.ROM),
		log.Stringer("mapper", m),
		log.Hex("size", len(img.Data)),
	)
	if img.CopierHeader != nil {
		logger.Info("Image has a copier header, it is kept when writing")
	}
	if _, err := address.FromBus(0x008000, m); errors.Is(err, address.ErrUnsupported) {
		logger.Warn("Bus addresses are not supported for this mapper, only free space search and extraction are available",
			log.Stringer("mapper", m))
	}
}
