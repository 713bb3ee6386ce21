package importer

import "github.com/retroenv/snespatch/internal/level"

// document is the YAML level description.
type document struct {
	Header       headerDoc     `yaml:"header"`
	Foreground   layerDoc      `yaml:"foreground"`
	Background   layerDoc      `yaml:"background"`
	Sprites      []spriteDoc   `yaml:"sprites"`
	Exits        []exitDoc     `yaml:"exits"`
	Entrances    []entranceDoc `yaml:"entrances"`
	ScrollFilter []positionDoc `yaml:"scroll_filter"`
}

type headerDoc struct {
	Palette        paletteDoc `yaml:"palette"`
	Mode           uint8      `yaml:"mode"`
	Audio          uint8      `yaml:"audio"`
	TilesetFG      uint8      `yaml:"tileset_fg"`
	TilesetSprite  uint8      `yaml:"tileset_sprite"`
	Time           uint8      `yaml:"time"`
	Scroll         uint8      `yaml:"scroll"`
	Layer3Image    uint8      `yaml:"layer3_image"`
	Layer3Priority bool       `yaml:"layer3_priority"`
}

// paletteDoc selects either shared palette slots or a palette file. Without
// both the default shared slots are used.
type paletteDoc struct {
	Shared *sharedPaletteDoc `yaml:"shared"`
	File   string            `yaml:"file"`
}

type sharedPaletteDoc struct {
	Foreground uint8 `yaml:"foreground"`
	Background uint8 `yaml:"background"`
	Sprite     uint8 `yaml:"sprite"`
	Sky        uint8 `yaml:"sky"`
}

type layerDoc struct {
	// Fill is the tile of every position not set otherwise.
	Fill *uint16 `yaml:"fill"`
	// Tiles is the path of a raw little endian tile map covering the whole
	// layer width, row by row.
	Tiles   string      `yaml:"tiles"`
	Screens []screenDoc `yaml:"screens"`
}

type screenDoc struct {
	X    int        `yaml:"x"`
	Y    int        `yaml:"y"`
	Fill *uint16    `yaml:"fill"`
	Rows [][]uint16 `yaml:"rows"`
}

type spriteDoc struct {
	ID     uint16  `yaml:"id"`
	X      uint16  `yaml:"x"`
	Y      uint16  `yaml:"y"`
	ExtBit bool    `yaml:"ext_bit"`
	Ext    []uint8 `yaml:"ext"`
}

type exitDoc struct {
	X        int    `yaml:"x"`
	Y        int    `yaml:"y"`
	Entrance string `yaml:"entrance"`
}

type entranceDoc struct {
	ID       string `yaml:"id"`
	X        uint16 `yaml:"x"`
	Y        uint16 `yaml:"y"`
	Anim     uint8  `yaml:"anim"`
	Water    bool   `yaml:"water"`
	Slippery bool   `yaml:"slippery"`
}

type positionDoc struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// newDocument returns a document whose header holds the default level
// settings, fields present in the input overwrite them. The palette is left
// unset so that a palette file can be told apart from shared slots.
func newDocument() document {
	h := level.DefaultHeader()
	return document{
		Header: headerDoc{
			Mode:           h.Mode,
			Audio:          h.Audio,
			TilesetFG:      h.TilesetFG,
			TilesetSprite:  h.TilesetSP,
			Time:           h.Time,
			Scroll:         h.Scroll,
			Layer3Image:    h.L3Image,
			Layer3Priority: h.L3Priority,
		},
	}
}
