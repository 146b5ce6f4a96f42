package render

import (
	"image"
	"image/color"
	"image/draw"
	"math/rand/v2"
)

var (
	spaceColor = color.NRGBA{R: 15, G: 23, B: 42, A: 255}
	starColor  = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

// drawStarfield paints the dark space base and count small stars at random positions.
func drawStarfield(dst *image.NRGBA, count int, rnd *rand.Rand) {
	b := dst.Bounds()
	draw.Draw(dst, b, image.NewUniform(spaceColor), image.Point{}, draw.Src)

	star := image.NewUniform(starColor)
	for i := 0; i < count; i++ {
		dot := newStar(b, rnd)
		r := dot.Bounds().Intersect(b)
		draw.DrawMask(dst, r, star, image.Point{}, dot, r.Min, draw.Over)
	}
}

// newStar places one star inside b with a radius of 1 to 3 px.
func newStar(b image.Rectangle, rnd *rand.Rand) *disc {
	return &disc{
		center: image.Pt(b.Min.X+rnd.IntN(b.Dx()), b.Min.Y+rnd.IntN(b.Dy())),
		radius: 1 + rnd.IntN(3),
		alpha:  uint8(160 + rnd.IntN(96)),
	}
}

// disc is an alpha mask for a filled circle in destination coordinates.
type disc struct {
	center image.Point
	radius int
	alpha  uint8
}

func (d *disc) ColorModel() color.Model { return color.AlphaModel }

func (d *disc) Bounds() image.Rectangle {
	return image.Rect(d.center.X-d.radius, d.center.Y-d.radius, d.center.X+d.radius+1, d.center.Y+d.radius+1)
}

func (d *disc) At(x, y int) color.Color {
	dx, dy := x-d.center.X, y-d.center.Y
	if dx*dx+dy*dy <= d.radius*d.radius {
		return color.Alpha{A: d.alpha}
	}
	return color.Alpha{}
}
