package render

import (
	"image"
	"image/color"
	"image/draw"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

var (
	shadeColor    = color.NRGBA{A: 180}
	titleColor    = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	subtitleColor = color.NRGBA{R: 200, G: 200, B: 200, A: 255}
)

// subtitleOffset is the distance from the bottom edge to the subtitle line box.
const subtitleOffset = 80

// LineBox is one rendered line in canvas coordinates. Y is the top of its slot.
type LineBox struct {
	Text   string
	X      int
	Y      int
	Width  int
	Height int
}

// Layout records where OverlayText placed the text.
type Layout struct {
	Lines       []LineBox
	BlockTop    int
	BlockHeight int
	LineHeight  int
	Subtitle    *LineBox
}

// BlockMidY is the vertical centre of the title block.
func (l *Layout) BlockMidY() int {
	return l.BlockTop + l.BlockHeight/2
}

// OverlayText darkens the canvas uniformly, draws the wrapped title centred as a
// block and, if given, the subtitle near the bottom edge.
func (c *Composer) OverlayText(img *ComposedImage, title, subtitle string) *ComposedImage {
	if img == nil || img.Canvas == nil {
		return img
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	dst := img.Canvas
	b := dst.Bounds()
	draw.Draw(dst, b, image.NewUniform(shadeColor), image.Point{}, draw.Over)

	lines := WrapText(title, c.opts.WrapWidth)
	layout := &Layout{
		LineHeight:  c.opts.LineHeight,
		BlockHeight: len(lines) * c.opts.LineHeight,
	}
	layout.BlockTop = b.Min.Y + (b.Dy()-layout.BlockHeight)/2

	for i, text := range lines {
		box := c.placeLine(c.titleFace, text, b, layout.BlockTop+i*c.opts.LineHeight, c.opts.LineHeight)
		drawLine(dst, c.titleFace, box, titleColor)
		layout.Lines = append(layout.Lines, box)
	}

	if sub := strings.TrimSpace(subtitle); sub != "" {
		height := c.subtitleFace.Metrics().Height.Ceil()
		box := c.placeLine(c.subtitleFace, sub, b, b.Max.Y-subtitleOffset, height)
		drawLine(dst, c.subtitleFace, box, subtitleColor)
		layout.Subtitle = &box
	}

	img.Layout = layout
	return img
}

func (c *Composer) placeLine(face font.Face, text string, bounds image.Rectangle, top, height int) LineBox {
	width := font.MeasureString(face, text).Ceil()
	return LineBox{
		Text:   text,
		X:      bounds.Min.X + (bounds.Dx()-width)/2,
		Y:      top,
		Width:  width,
		Height: height,
	}
}

// drawLine puts the glyphs of box vertically centred inside its slot.
func drawLine(dst draw.Image, face font.Face, box LineBox, col color.Color) {
	m := face.Metrics()
	ascent, descent := m.Ascent.Ceil(), m.Descent.Ceil()
	baseline := box.Y + (box.Height+ascent-descent)/2

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(box.X, baseline),
	}
	d.DrawString(box.Text)
}

// WrapText splits s into lines of at most width runes, breaking on whitespace.
// Words longer than width are split across lines.
func WrapText(s string, width int) []string {
	if width <= 0 {
		width = 30
	}
	var (
		lines []string
		cur   []rune
	)
	flush := func() {
		if len(cur) > 0 {
			lines = append(lines, string(cur))
			cur = cur[:0]
		}
	}

	for _, word := range strings.Fields(s) {
		w := []rune(word)
		for len(w) > width {
			flush()
			lines = append(lines, string(w[:width]))
			w = w[width:]
		}
		switch {
		case len(cur) == 0:
			cur = append(cur, w...)
		case len(cur)+1+len(w) <= width:
			cur = append(cur, ' ')
			cur = append(cur, w...)
		default:
			flush()
			cur = append(cur, w...)
		}
	}
	flush()
	return lines
}
