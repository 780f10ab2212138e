// Package waterfall renders a heatmap as a waterfall plot: one row of
// pixels per time slice in chronological order, one column per value
// bucket, with the color carrying the observation density.
package waterfall

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/zeebo/errs"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/zeebo/pulse/heatmap"
	"github.com/zeebo/pulse/histogram"
)

// Error is the class wrapping waterfall failures.
var Error = errs.Class("waterfall")

// Scale selects how bucket weights map to colors.
type Scale int

const (
	// ScaleLinear colors by observation density directly.
	ScaleLinear Scale = iota

	// ScaleLogarithmic colors by the log of the density, which keeps
	// long tails visible next to dense heads.
	ScaleLogarithmic
)

// labelStripHeight is the pixel height reserved under the plot when
// labels are drawn.
const labelStripHeight = 16

// Builder configures a waterfall rendering.
type Builder struct {
	palette Palette
	scale   Scale
	labels  map[uint64]string
	auto    int
}

// NewBuilder returns a builder using the classic palette and linear
// scale, with no labels.
func NewBuilder() *Builder {
	return &Builder{
		palette: PaletteClassic,
		scale:   ScaleLinear,
		labels:  make(map[uint64]string),
	}
}

// Palette sets the color palette.
func (b *Builder) Palette(p Palette) *Builder {
	b.palette = p
	return b
}

// Scale sets the color scale.
func (b *Builder) Scale(s Scale) *Builder {
	b.scale = s
	return b
}

// Label places a text label on the value axis at the given value.
func (b *Builder) Label(value uint64, text string) *Builder {
	b.labels[value] = text
	return b
}

// AutoLabels spreads n humanized value labels evenly across the value
// axis.
func (b *Builder) AutoLabels(n int) *Builder {
	b.auto = n
	return b
}

// Render draws the heatmap into an image. The image is one column per
// bucket and one row per active slice, oldest at the top, with a label
// strip underneath when any labels are configured.
func (b *Builder) Render(h *heatmap.Heatmap) (*image.RGBA, error) {
	slices := activeSlices(h)
	if len(slices) == 0 {
		return nil, Error.New("heatmap holds no slices")
	}

	config := h.Summary().Config()
	width := config.TotalBuckets()

	labels := b.resolveLabels(config)

	height := len(slices)
	if len(labels) > 0 {
		height += labelStripHeight
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	ramp := b.palette.ramp()

	// load each slice once; rendering from a torn copy is fine since
	// the plot is advisory
	rows := make([][]uint64, len(slices))
	for i, slice := range slices {
		rows[i] = slice.Load().AsSlice()
	}

	maxWeight := 0.0
	for _, row := range rows {
		for i, count := range row {
			if w := b.weight(config, i, count); w > maxWeight {
				maxWeight = w
			}
		}
	}

	for y, row := range rows {
		for x, count := range row {
			shade := 0.0
			if maxWeight > 0 {
				shade = b.weight(config, x, count) / maxWeight
			}
			img.SetRGBA(x, y, ramp[int(shade*255)])
		}
	}

	b.drawLabels(img, config, labels, len(slices))

	return img, nil
}

// WritePNG renders the heatmap and encodes it as a PNG.
func (b *Builder) WritePNG(w io.Writer, h *heatmap.Heatmap) error {
	img, err := b.Render(h)
	if err != nil {
		return err
	}
	return Error.Wrap(png.Encode(w, img))
}

// weight is the density of a bucket: its count spread over its width.
func (b *Builder) weight(config histogram.Config, index int, count uint64) float64 {
	if count == 0 {
		return 0
	}

	lo, hi := config.IndexToRange(index)
	w := float64(count) / float64(hi-lo+1)

	if b.scale == ScaleLogarithmic {
		w = math.Log2(w + 1)
	}
	return w
}

type placedLabel struct {
	column int
	text   string
}

func (b *Builder) resolveLabels(config histogram.Config) []placedLabel {
	byColumn := make(map[int]string)

	if b.auto > 0 {
		total := config.TotalBuckets()
		for i := 0; i < b.auto; i++ {
			column := i * (total - 1) / max(b.auto-1, 1)
			lo, _ := config.IndexToRange(column)
			byColumn[column] = humanize.SIWithDigits(float64(lo), 0, "")
		}
	}

	for value, text := range b.labels {
		column, err := config.ValueToIndex(value)
		if err != nil {
			continue
		}
		byColumn[column] = text
	}

	labels := make([]placedLabel, 0, len(byColumn))
	for column, text := range byColumn {
		labels = append(labels, placedLabel{column: column, text: text})
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i].column < labels[j].column })

	return labels
}

func (b *Builder) drawLabels(img *image.RGBA, config histogram.Config, labels []placedLabel, plotHeight int) {
	if len(labels) == 0 {
		return
	}

	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	drawer := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(white),
		Face: basicfont.Face7x13,
	}

	for _, label := range labels {
		// tick mark on the plot edge plus the text underneath
		img.SetRGBA(label.column, plotHeight, white)
		img.SetRGBA(label.column, plotHeight+1, white)

		drawer.Dot = fixed.P(label.column+2, plotHeight+basicfont.Face7x13.Ascent)
		drawer.DrawString(label.text)
	}
}

// activeSlices collects the live slices in chronological order.
func activeSlices(h *heatmap.Heatmap) []*histogram.AtomicHistogram {
	slices := make([]*histogram.AtomicHistogram, 0, h.ActiveSlices())
	h.Iter(func(slice *histogram.AtomicHistogram) bool {
		slices = append(slices, slice)
		return true
	})
	return slices
}
