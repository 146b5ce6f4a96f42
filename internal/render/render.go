// Package render composes the branded post image: a background (source image,
// themed photo or a synthesized starfield) with the headline on top.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"

	"github.com/deusflow/cosmosbot/internal/news"
	"github.com/deusflow/cosmosbot/internal/theme"
)

// ErrCanvas is the only error Compose returns: the canvas could not be allocated.
var ErrCanvas = errors.New("canvas allocation failed")

const (
	maxCanvasPixels = 8192 * 8192
	maxImageBytes   = 25 << 20
)

// Background tells which step of the fallback chain produced the background.
type Background int

const (
	BackgroundStarfield Background = iota
	BackgroundHint
	BackgroundSearch
)

func (b Background) String() string {
	switch b {
	case BackgroundHint:
		return "hint"
	case BackgroundSearch:
		return "search"
	default:
		return "starfield"
	}
}

// ImageSearcher finds a photo URL for a query.
type ImageSearcher interface {
	Search(ctx context.Context, query string) (string, error)
}

type Options struct {
	Width            int
	Height           int
	TitleFontPath    string
	SubtitleFontPath string
	TitleFontSize    float64
	SubtitleFontSize float64
	StarCount        int
	WrapWidth        int // runes per title line
	LineHeight       int // pixels
	FetchTimeout     time.Duration
	Client           *http.Client
}

func (o Options) withDefaults() Options {
	if o.TitleFontSize <= 0 {
		o.TitleFontSize = 48
	}
	if o.SubtitleFontSize <= 0 {
		o.SubtitleFontSize = 28
	}
	if o.StarCount < 0 {
		o.StarCount = 0
	}
	if o.WrapWidth <= 0 {
		o.WrapWidth = 30
	}
	if o.LineHeight <= 0 {
		o.LineHeight = 60
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 10 * time.Second
	}
	if o.Client == nil {
		o.Client = &http.Client{Timeout: o.FetchTimeout}
	}
	return o
}

// ComposedImage is the raster owned by one cycle.
type ComposedImage struct {
	Canvas     *image.NRGBA
	Background Background
	Layout     *Layout // set by OverlayText
}

// Composer builds post images. Methods are safe to call from one cycle at a time;
// a mutex serialises access to the font faces and the star generator.
type Composer struct {
	opts   Options
	search ImageSearcher
	logger *slog.Logger

	mu           sync.Mutex
	titleFace    font.Face
	subtitleFace font.Face
	rnd          *rand.Rand
}

// NewComposer loads fonts once; missing font files fall back to built-in faces.
func NewComposer(opts Options, search ImageSearcher, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	opts = opts.withDefaults()

	titleFace, titleSrc := loadFace(opts.TitleFontPath, boldTTF, opts.TitleFontSize)
	subtitleFace, subSrc := loadFace(opts.SubtitleFontPath, regularTTF, opts.SubtitleFontSize)
	logger.Debug("fonts loaded", "title", titleSrc, "subtitle", subSrc)

	seed := uint64(time.Now().UnixNano())
	return &Composer{
		opts:         opts,
		search:       search,
		logger:       logger,
		titleFace:    titleFace,
		subtitleFace: subtitleFace,
		rnd:          rand.New(rand.NewPCG(seed, seed>>1|1)),
	}
}

// Compose allocates the canvas and fills it with the best background available:
// the item's own image, then a themed search result, then a starfield.
func (c *Composer) Compose(ctx context.Context, item news.Item, key theme.Key) (*ComposedImage, error) {
	canvas, err := newCanvas(c.opts.Width, c.opts.Height)
	if err != nil {
		return nil, err
	}

	bg, src := c.background(ctx, item, key)
	if bg != nil {
		draw.Draw(canvas, canvas.Bounds(), bg, bg.Bounds().Min, draw.Src)
	} else {
		c.mu.Lock()
		drawStarfield(canvas, c.opts.StarCount, c.rnd)
		c.mu.Unlock()
	}

	return &ComposedImage{Canvas: canvas, Background: src}, nil
}

// Save writes the image as a JPEG (or by extension) for the publisher.
func (c *Composer) Save(img *ComposedImage, path string) error {
	if img == nil || img.Canvas == nil {
		return fmt.Errorf("save %s: empty image", path)
	}
	if err := imaging.Save(img.Canvas, path, imaging.JPEGQuality(95)); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// Close releases the font faces.
func (c *Composer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	closeFace(c.titleFace)
	closeFace(c.subtitleFace)
}

func (c *Composer) background(ctx context.Context, item news.Item, key theme.Key) (image.Image, Background) {
	if item.ImageHint != "" {
		img, err := c.fetchImage(ctx, item.ImageHint)
		if err == nil {
			return img, BackgroundHint
		}
		c.logger.Warn("source image unusable", "url", item.ImageHint, "error", err)
	}

	if c.search != nil {
		sctx, cancel := context.WithTimeout(ctx, c.opts.FetchTimeout)
		u, err := c.search.Search(sctx, key.Query())
		cancel()
		if err != nil {
			c.logger.Warn("image search failed", "theme", key.String(), "error", err)
		} else {
			img, err := c.fetchImage(ctx, u)
			if err == nil {
				return img, BackgroundSearch
			}
			c.logger.Warn("search image unusable", "url", u, "error", err)
		}
	}

	return nil, BackgroundStarfield
}

// fetchImage downloads, decodes and resizes an image to the canvas size.
func (c *Composer) fetchImage(ctx context.Context, url string) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	resp, err := c.opts.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download: status %d", resp.StatusCode)
	}

	img, err := imaging.Decode(io.LimitReader(resp.Body, maxImageBytes), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("decode: empty image")
	}

	return imaging.Resize(img, c.opts.Width, c.opts.Height, imaging.Lanczos), nil
}

func newCanvas(width, height int) (canvas *image.NRGBA, err error) {
	if width <= 0 || height <= 0 || width*height > maxCanvasPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrCanvas, width, height)
	}
	defer func() {
		if p := recover(); p != nil {
			canvas, err = nil, fmt.Errorf("%w: %v", ErrCanvas, p)
		}
	}()
	return image.NewNRGBA(image.Rect(0, 0, width, height)), nil
}
