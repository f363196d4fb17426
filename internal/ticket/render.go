// Package ticket draws a printable appointment ticket and optionally
// archives it in an S3 bucket.
package ticket

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"strings"

	"github.com/chai2010/webp"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/BruksfildServices01/medease/internal/catalog"
	"github.com/BruksfildServices01/medease/internal/models"
)

const (
	width      = 560
	height     = 300
	margin     = 24
	lineHeight = 22
)

var (
	ink     = color.RGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff}
	accent  = color.RGBA{R: 0x0d, G: 0x94, B: 0x88, A: 0xff}
	paper   = color.White
	muted   = color.RGBA{R: 0x6b, G: 0x72, B: 0x80, A: 0xff}
	rowKeys = []string{"Ticket No", "Patient", "Phone", "Department", "Doctor", "Date", "Time", "Status"}
)

func Lines(ap models.Appointment) [][2]string {
	values := []string{
		ap.TicketNo,
		ap.PatientName,
		ap.Phone,
		ap.Department,
		ap.DoctorName,
		catalog.FormatDate(ap.Date),
		catalog.FormatTime(ap.Time),
		ap.Status,
	}
	out := make([][2]string, len(rowKeys))
	for i, k := range rowKeys {
		out[i] = [2]string{k, values[i]}
	}
	return out
}

// Render draws the ticket of ap.
func Render(ap models.Appointment) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: paper}, image.Point{}, draw.Src)

	// header band
	draw.Draw(img, image.Rect(0, 0, width, 44), &image.Uniform{C: accent}, image.Point{}, draw.Src)
	text(img, margin, 28, color.White, "MedEase - Appointment Ticket")

	y := 44 + margin + 4
	for _, row := range Lines(ap) {
		text(img, margin, y, muted, row[0]+":")
		text(img, margin+120, y, ink, row[1])
		y += lineHeight
	}

	border(img, accent)
	return img
}

func text(img draw.Image, x, y int, c color.Color, s string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func border(img *image.RGBA, c color.Color) {
	b := img.Bounds()
	for x := b.Min.X; x < b.Max.X; x++ {
		img.Set(x, b.Min.Y, c)
		img.Set(x, b.Max.Y-1, c)
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		img.Set(b.Min.X, y, c)
		img.Set(b.Max.X-1, y, c)
	}
}

type Format string

const (
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

// ParseFormat defaults to PNG.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	}
	return "", fmt.Errorf("unsupported ticket format %q", s)
}

func (f Format) ContentType() string {
	if f == FormatWebP {
		return "image/webp"
	}
	return "image/png"
}

func (f Format) Ext() string {
	return string(f)
}

func Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case FormatWebP:
		return webp.Encode(w, img, &webp.Options{Lossless: true})
	case FormatPNG:
		return png.Encode(w, img)
	}
	return fmt.Errorf("unsupported ticket format %q", f)
}
