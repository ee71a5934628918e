package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgsvg"

	"github.com/Veraticus/mileage-audit/internal/model"
)

const (
	plotCell   = 2 * vg.Inch
	plotTitle  = 0.5 * vg.Inch
	plotBins   = 10
	plotRadius = 2.5
)

var (
	colorAnomalous = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
	colorNormal    = color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff}
)

// PlotSink writes an SVG pair plot of the detector features: scatter plots
// off the diagonal and per-label histograms on it, anomalous in red and
// normal in green.
type PlotSink struct {
	Path     string
	Features []model.Feature
}

// Name implements Sink.
func (s *PlotSink) Name() string {
	return "plot"
}

// Target implements FileSink.
func (s *PlotSink) Target() string {
	return s.Path
}

// Write implements Sink.
func (s *PlotSink) Write(ctx context.Context, run model.Run, rows []model.ScoredAggregate) error {
	return s.WriteFile(ctx, s.Path, run, rows)
}

// WriteFile implements FileSink.
func (s *PlotSink) WriteFile(_ context.Context, path string, run model.Run, rows []model.ScoredAggregate) error {
	features := s.Features
	if len(features) == 0 {
		features = model.DefaultFeatures
	}

	svg, err := PairPlot(Title(run), features, rows)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, svg, 0o644); err != nil { //nolint:gosec // report is meant to be shared
		return fmt.Errorf("failed to write plot: %w", err)
	}
	return nil
}

// labelled splits one feature column by label.
type labelled struct {
	anomalous []float64
	normal    []float64
}

// PairPlot renders the pair plot as an SVG document.
func PairPlot(title string, features []model.Feature, rows []model.ScoredAggregate) ([]byte, error) {
	k := len(features)
	if k == 0 {
		return nil, errors.New("pair plot needs at least one feature")
	}

	columns := make([]labelled, k)
	for i, f := range features {
		for _, row := range rows {
			v, err := row.Value(f)
			if err != nil {
				return nil, err
			}
			if row.IsAnomalous() {
				columns[i].anomalous = append(columns[i].anomalous, v)
			} else {
				columns[i].normal = append(columns[i].normal, v)
			}
		}
	}

	plots := make([][]*plot.Plot, k)
	for i := range plots {
		plots[i] = make([]*plot.Plot, k)
		for j := range plots[i] {
			p := plot.New()
			if i == k-1 {
				p.X.Label.Text = string(features[j])
			}
			if j == 0 {
				p.Y.Label.Text = string(features[i])
			}

			var err error
			if i == j {
				err = addHistograms(p, columns[i])
			} else {
				err = addScatters(p, columns[j], columns[i])
			}
			if err != nil {
				return nil, fmt.Errorf("failed to plot %s against %s: %w", features[i], features[j], err)
			}
			if len(rows) == 0 {
				p.X.Min, p.X.Max = 0, 1
				p.Y.Min, p.Y.Max = 0, 1
			}
			plots[i][j] = p
		}
	}
	if k > 1 {
		plots[0][k-1].Legend.Top = true
		plots[0][k-1].Legend.Add(model.LabelAnomalous.String(), legendThumb(colorAnomalous))
		plots[0][k-1].Legend.Add(model.LabelNormal.String(), legendThumb(colorNormal))
	}

	width := vg.Length(k) * plotCell
	height := width + plotTitle
	canvas := vgsvg.New(width, height)
	dc := draw.New(canvas)

	style := plots[0][0].Title.TextStyle
	style.Font.Size = vg.Points(14)
	style.XAlign = text.XCenter
	style.YAlign = text.YTop
	dc.FillText(style, vg.Point{X: width / 2, Y: height - vg.Points(8)}, title)

	tiles := draw.Tiles{
		Rows:      k,
		Cols:      k,
		PadTop:    plotTitle,
		PadX:      vg.Millimeter,
		PadY:      vg.Millimeter,
		PadLeft:   vg.Millimeter,
		PadRight:  vg.Millimeter,
		PadBottom: vg.Millimeter,
	}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		for j := range plots[i] {
			plots[i][j].Draw(canvases[i][j])
		}
	}

	var b bytes.Buffer
	if _, err := canvas.WriteTo(&b); err != nil {
		return nil, fmt.Errorf("failed to render plot: %w", err)
	}
	return b.Bytes(), nil
}

// addScatters draws normal points first so anomalies sit on top.
func addScatters(p *plot.Plot, xs, ys labelled) error {
	for _, set := range []struct {
		xs, ys []float64
		color  color.Color
	}{
		{xs: xs.normal, ys: ys.normal, color: colorNormal},
		{xs: xs.anomalous, ys: ys.anomalous, color: colorAnomalous},
	} {
		if len(set.xs) == 0 {
			continue
		}
		points := make(plotter.XYs, len(set.xs))
		for n := range set.xs {
			points[n].X = set.xs[n]
			points[n].Y = set.ys[n]
		}
		s, err := plotter.NewScatter(points)
		if err != nil {
			return err
		}
		s.GlyphStyle.Color = set.color
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Radius = vg.Points(plotRadius)
		p.Add(s)
	}
	return nil
}

func addHistograms(p *plot.Plot, values labelled) error {
	for _, set := range []struct {
		values []float64
		color  color.RGBA
	}{
		{values: values.normal, color: colorNormal},
		{values: values.anomalous, color: colorAnomalous},
	} {
		if len(set.values) == 0 {
			continue
		}
		h, err := plotter.NewHist(plotter.Values(set.values), plotBins)
		if err != nil {
			return err
		}
		h.FillColor = color.NRGBA{R: set.color.R, G: set.color.G, B: set.color.B, A: 0x80}
		h.LineStyle.Color = set.color
		p.Add(h)
	}
	return nil
}

// legendThumb draws a single label-coloured point in the legend.
func legendThumb(c color.Color) plot.Thumbnailer {
	s, _ := plotter.NewScatter(plotter.XYs{{}})
	s.GlyphStyle.Color = c
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	s.GlyphStyle.Radius = vg.Points(4)
	return s
}
