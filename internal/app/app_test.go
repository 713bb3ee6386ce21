package app

import (
	"testing"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/snespatch/internal/address"
	"github.com/retroenv/snespatch/internal/loader"
	"github.com/retroenv/snespatch/internal/options"
)

func TestPrintInfo(t *testing.T) {
	logger := log.NewTestLogger(t)
	img := &loader.Image{Data: make([]byte, 0x8000), CopierHeader: make([]byte, loader.CopierHeaderSize)}

	for _, m := range []address.Mapper{address.LoROM{}, address.SuperFX{}, address.BootSA1} {
		PrintInfo(logger, options.Global{ROM: "game.sfc"}, img, m)
	}
	PrintInfo(logger, options.Global{Quiet: true}, img, address.HiROM{})
}
