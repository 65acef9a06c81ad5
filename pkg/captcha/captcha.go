// Package captcha generates short human-presence challenges rendered as
// noisy PNG images, and verifies answers against the stored code.
package captcha

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"math/big"
	mrand "math/rand/v2"
	"strings"
	"sync"

	"github.com/aussiebroadwan/accounts/pkg/cryptox"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
)

// Charset leaves out glyphs that are easy to confuse (I, O, 0, 1).
const Charset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Defaults for generated challenges.
const (
	DefaultLength   = 5
	DefaultWidth    = 150
	DefaultHeight   = 50
	DefaultFontSize = 20

	noiseMarks  = 50
	glyphStartX = 10
	glyphStepX  = 25
	minJitterY  = 5
	maxJitterY  = 15
	maxRotation = 15 // degrees, either direction
)

var ErrEmptyCharset = errors.New("captcha: empty charset")

// Challenge is a generated code and its rendered image. Code is what the
// server keeps; Image is what the client sees.
type Challenge struct {
	Code  string
	Image []byte
}

// Generator renders challenges. It is safe for concurrent use.
type Generator struct {
	Length  int
	Width   int
	Height  int
	Charset string

	// opentype faces keep a scratch buffer and are not concurrency safe
	mu   sync.Mutex
	face font.Face
}

// NewGenerator builds a generator with the default dimensions using the
// bundled Go Bold font.
func NewGenerator() (*Generator, error) {
	return NewGeneratorWithSize(DefaultLength, DefaultWidth, DefaultHeight, DefaultFontSize)
}

// NewGeneratorWithSize builds a generator with custom dimensions.
func NewGeneratorWithSize(length, width, height int, fontSize float64) (*Generator, error) {
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("captcha: parse font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("captcha: build font face: %w", err)
	}

	return &Generator{
		Length:  length,
		Width:   width,
		Height:  height,
		Charset: Charset,
		face:    face,
	}, nil
}

// Generate creates a new random code and renders it.
func (g *Generator) Generate() (Challenge, error) {
	code, err := g.newCode()
	if err != nil {
		return Challenge{}, err
	}

	img, err := g.Render(code)
	if err != nil {
		return Challenge{}, err
	}

	return Challenge{Code: code, Image: img}, nil
}

func (g *Generator) newCode() (string, error) {
	if g.Charset == "" {
		return "", ErrEmptyCharset
	}

	limit := big.NewInt(int64(len(g.Charset)))
	code := make([]byte, g.Length)
	for i := range code {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("captcha: generate code: %w", err)
		}
		code[i] = g.Charset[n.Int64()]
	}
	return string(code), nil
}

// Render draws code onto a noisy canvas and returns the PNG bytes.
func (g *Generator) Render(code string) ([]byte, error) {
	canvas := image.NewRGBA(image.Rect(0, 0, g.Width, g.Height))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	// 1. Noise marks behind the text
	for range noiseMarks {
		x := mrand.IntN(g.Width)
		y := mrand.IntN(g.Height)
		shade := uint8(120 + mrand.IntN(100))
		mark := image.Rect(x, y, x+2, y+2).Intersect(canvas.Bounds())
		draw.Draw(canvas, mark, image.NewUniform(color.RGBA{R: shade, G: shade, B: shade, A: 255}), image.Point{}, draw.Src)
	}

	// 2. Each glyph on its own tile, rotated and jittered onto the canvas
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, r := range code {
		tile := g.glyphTile(r)
		cx := float64(tile.Bounds().Dx()) / 2
		cy := float64(tile.Bounds().Dy()) / 2

		x := float64(glyphStartX + i*glyphStepX)
		y := float64(minJitterY + mrand.IntN(maxJitterY-minJitterY+1))

		angle := float64(mrand.IntN(2*maxRotation+1)-maxRotation) * math.Pi / 180
		draw.BiLinear.Transform(canvas, rotateAbout(angle, cx, cy, x+cx, y+cy), tile, tile.Bounds(), draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("captcha: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// glyphTile renders a single rune on a transparent tile sized to the face.
func (g *Generator) glyphTile(r rune) *image.RGBA {
	metrics := g.face.Metrics()
	advance, ok := g.face.GlyphAdvance(r)
	if !ok {
		advance = fixed.I(glyphStepX)
	}

	tile := image.NewRGBA(image.Rect(0, 0, advance.Ceil()+2, (metrics.Ascent + metrics.Descent).Ceil()+2))
	ink := color.RGBA{
		R: uint8(mrand.IntN(100)),
		G: uint8(mrand.IntN(100)),
		B: uint8(mrand.IntN(100)),
		A: 255,
	}

	d := &font.Drawer{
		Dst:  tile,
		Src:  image.NewUniform(ink),
		Face: g.face,
		Dot:  fixed.P(1, metrics.Ascent.Ceil()+1),
	}
	d.DrawString(string(r))
	return tile
}

// rotateAbout maps source point (cx, cy) to destination (px, py) and rotates
// everything around it by angle radians.
func rotateAbout(angle, cx, cy, px, py float64) f64.Aff3 {
	sin, cos := math.Sincos(angle)
	return f64.Aff3{
		cos, -sin, px - cos*cx + sin*cy,
		sin, cos, py - sin*cx - cos*cy,
	}
}

// Verify compares an answer with the stored code. Matching ignores case and
// surrounding whitespace; an empty value on either side never matches.
func Verify(input, stored string) bool {
	input = strings.ToUpper(strings.TrimSpace(input))
	stored = strings.ToUpper(strings.TrimSpace(stored))
	if input == "" || stored == "" {
		return false
	}
	return cryptox.EqualStrings(input, stored)
}
