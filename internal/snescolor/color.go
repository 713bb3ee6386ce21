// Package snescolor converts between 24-bit RGB and the 15-bit BGR color
// words used by the console, and loads palette files.
package snescolor

import "fmt"

// Color is a color with components in the range 0.0 to 1.0. Components may
// temporarily leave that range while mixing colors, they are clamped when
// converted back to an integer format.
type Color struct {
	Red   float32
	Green float32
	Blue  float32
}

// FromRGB24 returns the color for 8 bit components.
func FromRGB24(red, green, blue uint8) Color {
	return Color{
		Red:   float32(red) / 255,
		Green: float32(green) / 255,
		Blue:  float32(blue) / 255,
	}
}

// FromRGB15 returns the color for 5 bit components. It panics if a
// component is out of range.
func FromRGB15(red, green, blue uint8) Color {
	if red >= 32 || green >= 32 || blue >= 32 {
		panic(fmt.Sprintf("color component out of range: %d, %d, %d", red, green, blue))
	}
	return Color{
		Red:   float32(red) / 31,
		Green: float32(green) / 31,
		Blue:  float32(blue) / 31,
	}
}

// FromSNES returns the color for a packed 15 bit BGR word.
func FromSNES(word uint16) Color {
	return FromRGB15(
		uint8(word)&0x1f,
		uint8(word>>5)&0x1f,
		uint8(word>>10)&0x1f,
	)
}

// FromFloat returns the color for float components. It panics if a
// component is outside of 0.0 to 1.0.
func FromFloat(red, green, blue float32) Color {
	for _, c := range [...]float32{red, green, blue} {
		if c < 0 || c > 1 {
			panic(fmt.Sprintf("color component out of range: %f", c))
		}
	}
	return Color{Red: red, Green: green, Blue: blue}
}

// RGB24 returns the 8 bit components.
func (c Color) RGB24() (uint8, uint8, uint8) {
	return scale(c.Red, 255), scale(c.Green, 255), scale(c.Blue, 255)
}

// RGB15 returns the 5 bit components.
func (c Color) RGB15() (uint8, uint8, uint8) {
	return scale(c.Red, 31), scale(c.Green, 31), scale(c.Blue, 31)
}

// SNES returns the packed 15 bit BGR word.
func (c Color) SNES() uint16 {
	r, g, b := c.RGB15()
	return uint16(r) | uint16(g)<<5 | uint16(b)<<10
}

// Half returns the color with every component halved.
func (c Color) Half() Color {
	return Color{Red: c.Red / 2, Green: c.Green / 2, Blue: c.Blue / 2}
}

// Add returns the component wise sum of both colors.
func (c Color) Add(other Color) Color {
	return Color{Red: c.Red + other.Red, Green: c.Green + other.Green, Blue: c.Blue + other.Blue}
}

// Sub returns the component wise difference of both colors.
func (c Color) Sub(other Color) Color {
	return Color{Red: c.Red - other.Red, Green: c.Green - other.Green, Blue: c.Blue - other.Blue}
}

// scale clamps the component and rounds it to the nearest integer step.
func scale(v, steps float32) uint8 {
	v = min(max(v, 0), 1)
	return uint8(v*steps + 0.5)
}
