// Package importer builds levels from YAML level descriptions.
package importer

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retrogolib/set"
	"github.com/retroenv/snespatch/internal/errs"
	"github.com/retroenv/snespatch/internal/level"
	"github.com/retroenv/snespatch/internal/snescolor"
	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidDocument is returned for level descriptions with values that
	// do not describe a level.
	ErrInvalidDocument = fmt.Errorf("%w: invalid level description", errs.ErrValidation)
	// ErrInvalidTileMap is returned for tile map files of odd length.
	ErrInvalidTileMap = fmt.Errorf("%w: invalid tile map", errs.ErrFormat)
)

const maxExtensionBytes = 4

// Importer reads level descriptions.
type Importer struct {
	logger *log.Logger
}

// New creates a new level importer.
func New(logger *log.Logger) *Importer {
	return &Importer{
		logger: logger,
	}
}

// ImportFile reads the level description at path. Files referenced by the
// description are resolved relative to its directory.
func (i *Importer) ImportFile(path string) (*level.Level, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening level file %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	lvl, err := i.Import(file, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("importing %s: %w", path, err)
	}
	return lvl, nil
}

// Import reads a level description. Relative file paths in the description
// are resolved against baseDir.
func (i *Importer) Import(r io.Reader, baseDir string) (*level.Level, error) {
	doc := newDocument()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	b := builder{
		logger:  i.logger,
		baseDir: baseDir,
	}
	return b.build(doc)
}

// builder converts a decoded document into a level.
type builder struct {
	logger  *log.Logger
	baseDir string
}

func (b builder) build(doc document) (*level.Level, error) {
	header, err := b.header(doc.Header)
	if err != nil {
		return nil, err
	}

	fg, err := b.layer("foreground", doc.Foreground)
	if err != nil {
		return nil, err
	}
	bg, err := b.layer("background", doc.Background)
	if err != nil {
		return nil, err
	}

	sprites, err := convertSprites(doc.Sprites)
	if err != nil {
		return nil, err
	}
	if err := fg.PlaceSprites(sprites); err != nil {
		return nil, err
	}

	exits, err := convertExits(doc.Exits)
	if err != nil {
		return nil, err
	}
	if err := fg.PlaceExits(exits); err != nil {
		return nil, err
	}

	entrances, err := convertEntrances(doc.Entrances)
	if err != nil {
		return nil, err
	}

	filter, err := scrollFilter(doc.ScrollFilter, fg.Width(), fg.Height())
	if err != nil {
		return nil, err
	}

	lvl, err := level.New(fg, bg, filter, entrances, header)
	if err != nil {
		return nil, err
	}

	b.logger.Debug("Level imported",
		log.Int("sprites", len(sprites)),
		log.Int("exits", len(exits)),
		log.Int("entrances", len(entrances)))
	return lvl, nil
}

func (b builder) header(doc headerDoc) (level.Header, error) {
	h := level.Header{
		Mode:       doc.Mode,
		Audio:      doc.Audio,
		TilesetFG:  doc.TilesetFG,
		TilesetSP:  doc.TilesetSprite,
		Time:       doc.Time,
		Scroll:     doc.Scroll,
		L3Image:    doc.Layer3Image,
		L3Priority: doc.Layer3Priority,
	}

	switch p := doc.Palette; {
	case p.Shared != nil && p.File != "":
		return level.Header{}, fmt.Errorf("%w: palette has both shared slots and a file", ErrInvalidDocument)

	case p.File != "":
		data, err := os.ReadFile(b.path(p.File))
		if err != nil {
			return level.Header{}, fmt.Errorf("reading palette file: %w", err)
		}
		colors, err := snescolor.ParsePAL(data)
		if err != nil {
			return level.Header{}, fmt.Errorf("parsing palette file %s: %w", p.File, err)
		}
		h.Palette = level.CustomPalette{Colors: colors}

	case p.Shared != nil:
		h.Palette = level.SharedPalette{
			FG:  p.Shared.Foreground,
			BG:  p.Shared.Background,
			SP:  p.Shared.Sprite,
			Sky: p.Shared.Sky,
		}

	default:
		h.Palette = level.DefaultHeader().Palette
	}

	return h, nil
}

// layer builds a grid from the fill tile, an optional tile map file and
// the per screen overrides, applied in that order.
func (b builder) layer(name string, doc layerDoc) (*level.Grid, error) {
	var tiles []uint16
	if doc.Tiles != "" {
		var err error
		if tiles, err = b.readTileMap(doc.Tiles); err != nil {
			return nil, fmt.Errorf("%s layer: %w", name, err)
		}
	}

	grid, err := level.GridFromTiles(tiles, level.Side, level.Side)
	if err != nil {
		return nil, fmt.Errorf("%s layer: %w", name, err)
	}
	if doc.Fill != nil {
		fillUncovered(grid, len(tiles), *doc.Fill)
	}

	for _, scr := range doc.Screens {
		if scr.X < 0 || scr.X >= grid.Width() || scr.Y < 0 || scr.Y >= grid.Height() {
			return nil, fmt.Errorf("%w: %s screen %d,%d is outside of the layer", ErrInvalidDocument, name, scr.X, scr.Y)
		}
		if err := applyScreen(grid.ScreenAt(scr.X, scr.Y), scr); err != nil {
			return nil, fmt.Errorf("%s screen %d,%d: %w", name, scr.X, scr.Y, err)
		}
	}
	return grid, nil
}

func (b builder) readTileMap(name string) ([]uint16, error) {
	data, err := os.ReadFile(b.path(name))
	if err != nil {
		return nil, fmt.Errorf("reading tile map: %w", err)
	}
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("%w: %s has odd length %d", ErrInvalidTileMap, name, len(data))
	}

	tiles := make([]uint16, len(data)/2)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, tiles); err != nil {
		return nil, fmt.Errorf("decoding tile map %s: %w", name, err)
	}
	return tiles, nil
}

func (b builder) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(b.baseDir, name)
}

// fillUncovered sets every tile of the grid behind the first covered tiles
// of the row-major tile map.
func fillUncovered(grid *level.Grid, covered int, tile uint16) {
	rowWidth := grid.Width() * level.ScreenSize
	total := rowWidth * grid.Height() * level.ScreenSize
	for i := covered; i < total; i++ {
		x, y := i%rowWidth, i/rowWidth
		grid.ScreenAt(x/level.ScreenSize, y/level.ScreenSize).SetTile(x%level.ScreenSize, y%level.ScreenSize, tile)
	}
}

func applyScreen(scr *level.Screen, doc screenDoc) error {
	if doc.Fill != nil {
		for y := range level.ScreenSize {
			for x := range level.ScreenSize {
				scr.SetTile(x, y, *doc.Fill)
			}
		}
	}

	if len(doc.Rows) > level.ScreenSize {
		return fmt.Errorf("%w: %d rows", ErrInvalidDocument, len(doc.Rows))
	}
	for y, row := range doc.Rows {
		if len(row) > level.ScreenSize {
			return fmt.Errorf("%w: row %d has %d tiles", ErrInvalidDocument, y, len(row))
		}
		for x, tile := range row {
			scr.SetTile(x, y, tile)
		}
	}
	return nil
}

func convertSprites(docs []spriteDoc) ([]level.Sprite, error) {
	sprites := make([]level.Sprite, 0, len(docs))
	for _, doc := range docs {
		if len(doc.Ext) > maxExtensionBytes {
			return nil, fmt.Errorf("%w: sprite 0x%x has %d extension bytes", ErrInvalidDocument, doc.ID, len(doc.Ext))
		}
		sprite := level.Sprite{
			ID:     doc.ID,
			X:      doc.X,
			Y:      doc.Y,
			ExtBit: doc.ExtBit,
		}
		copy(sprite.Ext[:], doc.Ext)
		sprites = append(sprites, sprite)
	}
	return sprites, nil
}

func convertExits(docs []exitDoc) (map[level.ScreenPos]level.EntranceID, error) {
	exits := make(map[level.ScreenPos]level.EntranceID, len(docs))
	for _, doc := range docs {
		pos := level.ScreenPos{X: doc.X, Y: doc.Y}
		if _, ok := exits[pos]; ok {
			return nil, fmt.Errorf("%w: duplicate exit for screen %d,%d", ErrInvalidDocument, doc.X, doc.Y)
		}
		id, err := level.ParseEntranceID(doc.Entrance)
		if err != nil {
			return nil, fmt.Errorf("exit of screen %d,%d: %w", doc.X, doc.Y, err)
		}
		exits[pos] = id
	}
	return exits, nil
}

func convertEntrances(docs []entranceDoc) ([]level.Entrance, error) {
	seen := set.New[level.EntranceID]()
	entrances := make([]level.Entrance, 0, len(docs))
	for _, doc := range docs {
		id, err := level.ParseEntranceID(doc.ID)
		if err != nil {
			return nil, fmt.Errorf("entrance: %w", err)
		}
		if seen.Contains(id) {
			return nil, fmt.Errorf("%w: duplicate entrance %s", ErrInvalidDocument, id)
		}
		seen.Add(id)

		entrances = append(entrances, level.Entrance{
			ID:       id,
			X:        doc.X,
			Y:        doc.Y,
			Anim:     doc.Anim,
			Water:    doc.Water,
			Slippery: doc.Slippery,
		})
	}
	return entrances, nil
}

func scrollFilter(positions []positionDoc, width, height int) ([]bool, error) {
	filter := make([]bool, width*height)
	for _, pos := range positions {
		if pos.X < 0 || pos.X >= width || pos.Y < 0 || pos.Y >= height {
			return nil, fmt.Errorf("%w: scroll filter position %d,%d is outside of the level", ErrInvalidDocument, pos.X, pos.Y)
		}
		filter[pos.Y*width+pos.X] = true
	}
	return filter, nil
}
