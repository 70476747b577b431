package chart

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"sort"

	"freeco-signals/internal/domain"
)

const (
	MimeType = "image/png"

	defaultChartWidth  = 960
	defaultChartHeight = 540
	maxChartSignals    = 100
	markerHalfSize     = 4
	trendPeriod        = 5
)

// ErrNotEnoughSignals is returned when fewer than two signals are available.
var ErrNotEnoughSignals = errors.New("need at least 2 signals to render chart")

var (
	colBackground = color.RGBA{R: 250, G: 252, B: 255, A: 255}
	colGrid       = color.RGBA{R: 225, G: 232, B: 240, A: 255}
	colPrice      = color.RGBA{R: 58, G: 64, B: 90, A: 255}
	colTrend      = color.RGBA{R: 255, G: 149, B: 0, A: 255}
	colBuy        = color.RGBA{R: 18, G: 140, B: 126, A: 255}
	colSell       = color.RGBA{R: 210, G: 61, B: 87, A: 255}
	colHold       = color.RGBA{R: 120, G: 139, B: 164, A: 255}
	colBand       = color.RGBA{R: 104, G: 122, B: 146, A: 255}
)

type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// RenderSignalHistory draws snapshot prices of recs with a marker per signal
// coloured by action, and a lower panel of confidence bars. Records may be in
// any order; the newest maxChartSignals are drawn oldest to newest.
func (r *Renderer) RenderSignalHistory(recs []domain.SignalRecord) ([]byte, error) {
	series := normalizeSignals(recs)
	if len(series) < 2 {
		return nil, ErrNotEnoughSignals
	}
	if len(series) > maxChartSignals {
		series = series[len(series)-maxChartSignals:]
	}

	img := image.NewRGBA(image.Rect(0, 0, defaultChartWidth, defaultChartHeight))
	fillRect(img, img.Bounds(), colBackground)

	mainRect := image.Rect(60, 20, defaultChartWidth-20, (defaultChartHeight*70)/100)
	auxRect := image.Rect(60, mainRect.Max.Y+16, defaultChartWidth-20, defaultChartHeight-30)
	drawGrid(img, mainRect, 8, 6)
	drawGrid(img, auxRect, 8, 2)

	prices := extractPrices(series)
	minP, maxP := finiteBounds(prices)
	pad := (maxP - minP) * 0.05
	minP, maxP = minP-pad, maxP+pad

	drawSeries(img, mainRect, prices, minP, maxP, colPrice)
	drawSeries(img, mainRect, emaSeries(prices, trendPeriod), minP, maxP, colTrend)
	for i, rec := range series {
		x := mapIndexToX(i, len(series), mainRect)
		y := mapValueToY(rec.Signal.Features.Price, minP, maxP, mainRect)
		fillRect(img, image.Rect(x-markerHalfSize, y-markerHalfSize, x+markerHalfSize+1, y+markerHalfSize+1),
			actionColor(rec.Signal.Features.Action))
	}

	drawHorizontalValueLine(img, auxRect, 0.5, 0, 1, colBand)
	drawConfidenceBars(img, auxRect, series)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func normalizeSignals(in []domain.SignalRecord) []domain.SignalRecord {
	out := make([]domain.SignalRecord, 0, len(in))
	for _, rec := range in {
		p := rec.Signal.Features.Price
		if math.IsNaN(p) || math.IsInf(p, 0) {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Signal.Timestamp < out[j].Signal.Timestamp })
	return out
}

func actionColor(a domain.Action) color.RGBA {
	switch a {
	case domain.ActionBuy:
		return colBuy
	case domain.ActionSell:
		return colSell
	default:
		return colHold
	}
}

func drawConfidenceBars(img *image.RGBA, rect image.Rectangle, series []domain.SignalRecord) {
	barW := max(1, (rect.Dx()-10)/len(series)-1)
	zeroY := mapValueToY(0, 0, 1, rect)
	for i, rec := range series {
		x := mapIndexToX(i, len(series), rect)
		y := mapValueToY(rec.Signal.Features.Confidence, 0, 1, rect)
		fillRect(img, image.Rect(x-barW/2, min(y, zeroY), x+barW/2+1, max(y, zeroY)+1),
			actionColor(rec.Signal.Features.Action))
	}
}

func drawSeries(img *image.RGBA, rect image.Rectangle, series []float64, minV, maxV float64, col color.RGBA) {
	lastX, lastY := -1, -1
	for i, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			lastX, lastY = -1, -1
			continue
		}
		x := mapIndexToX(i, len(series), rect)
		y := mapValueToY(v, minV, maxV, rect)
		if lastX >= 0 {
			drawLine(img, lastX, lastY, x, y, col)
		}
		lastX, lastY = x, y
	}
}

func drawGrid(img *image.RGBA, rect image.Rectangle, verticalLines, horizontalLines int) {
	for i := 0; i <= verticalLines; i++ {
		x := rect.Min.X + (rect.Dx()*i)/max(1, verticalLines)
		drawLine(img, x, rect.Min.Y, x, rect.Max.Y, colGrid)
	}
	for i := 0; i <= horizontalLines; i++ {
		y := rect.Min.Y + (rect.Dy()*i)/max(1, horizontalLines)
		drawLine(img, rect.Min.X, y, rect.Max.X, y, colGrid)
	}
}

func drawHorizontalValueLine(img *image.RGBA, rect image.Rectangle, value, minV, maxV float64, col color.RGBA) {
	y := mapValueToY(value, minV, maxV, rect)
	drawLine(img, rect.Min.X, y, rect.Max.X, y, col)
}

func mapIndexToX(idx, total int, rect image.Rectangle) int {
	if total <= 1 {
		return rect.Min.X
	}
	return rect.Min.X + (idx*(rect.Dx()-1))/(total-1)
}

func mapValueToY(value, minV, maxV float64, rect image.Rectangle) int {
	if maxV <= minV {
		return rect.Max.Y
	}
	ratio := (value - minV) / (maxV - minV)
	ratio = math.Max(0, math.Min(1, ratio))
	return rect.Max.Y - int(ratio*float64(rect.Dy()-1))
}

func finiteBounds(values []float64) (float64, float64) {
	minV := math.Inf(1)
	maxV := math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	if math.IsInf(minV, 1) || math.IsInf(maxV, -1) {
		return 0, 1
	}
	if minV == maxV {
		return minV - 0.5, maxV + 0.5
	}
	return minV, maxV
}

func extractPrices(recs []domain.SignalRecord) []float64 {
	out := make([]float64, len(recs))
	for i := range recs {
		out[i] = recs[i].Signal.Features.Price
	}
	return out
}

func emaSeries(values []float64, period int) []float64 {
	if len(values) == 0 {
		return nil
	}
	alpha := 2.0 / (float64(period) + 1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

func fillRect(img *image.RGBA, rect image.Rectangle, col color.RGBA) {
	r := rect.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}

// drawLine is Bresenham's line algorithm clipped to the image bounds.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		if image.Pt(x0, y0).In(img.Bounds()) {
			img.SetRGBA(x0, y0, col)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
