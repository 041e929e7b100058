package imagegen

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/mpawlak/ksewatch/internal/risk"
)

// Grid layout in pixels.
const (
	cellW        = 18
	cellH        = 18
	cellGap      = 2
	marginLeft   = 72
	marginTop    = 40
	marginRight  = 12
	marginBottom = 28

	imgWidth  = marginLeft + risk.GridHours*(cellW+cellGap) - cellGap + marginRight
	imgHeight = marginTop + risk.GridDays*(cellH+cellGap) - cellGap + marginBottom
)

var (
	bgColor    = color.RGBA{0x12, 0x12, 0x1a, 0xff}
	titleColor = color.RGBA{0xf0, 0xf0, 0xf5, 0xff}
	labelColor = color.RGBA{0x9a, 0x9a, 0xaa, 0xff}
	frameColor = color.RGBA{0xff, 0xff, 0xff, 0xff}
)

// basicfont covers Latin-1 only, so PNG labels drop the diacritics the
// HTML day labels carry.
var asciiWeekdays = [7]string{"ndz", "pon", "wt", "sr", "czw", "pt", "sob"}

// RenderHeatmap draws the scored 7x24 grid as a PNG: one tinted cell per
// hour, level color blended at the cell's opacity over a dark background,
// with a frame on the current hour and a corner dot on degraded cells.
func RenderHeatmap(hm *risk.Heatmap) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, imgWidth, imgHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(bgColor), image.Point{}, draw.Src)

	drawText(img, "Ryzyko redyspozycji KSE", marginLeft, 16, titleColor)
	stamp := hm.GeneratedAt.Format("2006-01-02 15:04")
	drawText(img, stamp, imgWidth-marginRight-textWidth(stamp), 16, labelColor)

	for h := 0; h < risk.GridHours; h += 3 {
		drawText(img, fmt.Sprintf("%d", h), marginLeft+h*(cellW+cellGap), marginTop-6, labelColor)
	}

	for d := 0; d < risk.GridDays; d++ {
		day := hm.Anchor.AddDate(0, 0, d)
		label := fmt.Sprintf("%s %02d.%02d", asciiWeekdays[day.Weekday()], day.Day(), int(day.Month()))
		y := marginTop + d*(cellH+cellGap)
		drawText(img, label, 6, y+13, labelColor)

		for h := 0; h < risk.GridHours; h++ {
			cell := &hm.Cells[d][h]
			x := marginLeft + h*(cellW+cellGap)

			r, g, b := risk.LevelColor(cell.Score.RiskLevel)
			fillRect(img, x, y, cellW, cellH, blend(r, g, b, cell.Opacity))
			if cell.Degraded {
				fillRect(img, x+cellW-4, y+1, 3, 3, labelColor)
			}
			if cell.Current {
				outlineRect(img, x-1, y-1, cellW+2, cellH+2, frameColor)
			}
		}
	}

	drawLegend(img, hm)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode heatmap: %w", err)
	}
	return buf.Bytes(), nil
}

func drawLegend(img *image.RGBA, hm *risk.Heatmap) {
	y := imgHeight - 18
	x := marginLeft
	for _, level := range []risk.Level{risk.LevelLow, risk.LevelMedium, risk.LevelHigh, risk.LevelCritical} {
		r, g, b := risk.LevelColor(level)
		fillRect(img, x, y, 10, 10, color.RGBA{r, g, b, 0xff})
		label := string(level)
		drawText(img, label, x+14, y+9, labelColor)
		x += 14 + textWidth(label) + 14
	}
	if hm.ReserveMisaligned {
		note := "plan rezerw niedopasowany"
		drawText(img, note, imgWidth-marginRight-textWidth(note), y+9, labelColor)
	}
}

// blend composites a level color at the given opacity over the background.
func blend(r, g, b uint8, opacity float64) color.RGBA {
	mix := func(fg, bg uint8) uint8 {
		return uint8(float64(fg)*opacity + float64(bg)*(1-opacity))
	}
	return color.RGBA{mix(r, bgColor.R), mix(g, bgColor.G), mix(b, bgColor.B), 0xff}
}

func fillRect(img *image.RGBA, x0, y0, w, h int, col color.RGBA) {
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}

func outlineRect(img *image.RGBA, x0, y0, w, h int, col color.RGBA) {
	for x := x0; x < x0+w; x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y0+h-1, col)
	}
	for y := y0; y < y0+h; y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x0+w-1, y, col)
	}
}

// drawText draws text at the given position.
func drawText(img *image.RGBA, text string, x, y int, col color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

func textWidth(text string) int {
	return len(text) * basicfont.Face7x13.Advance
}
