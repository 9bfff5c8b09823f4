package assets

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"strings"

	"github.com/gen2brain/go-fitz"
	qrcode "github.com/skip2/go-qrcode"
	_ "golang.org/x/image/webp"
)

// BlackFrameRef is the sentinel path for a synthesized black visual.
const BlackFrameRef = "__black__"

const pdfRenderDPI = 200

// LoadImage decodes a resolved visual into RGBA. It understands three
// forms: the "qr:" payload scheme, "file.pdf#N" page references, and
// regular image files. The sentinel black frame renders at the given
// target size.
func LoadImage(res Resolved, width, height int) (*image.RGBA, error) {
	if res.Path == BlackFrameRef {
		return BlackFrame(width, height), nil
	}
	if payload, ok := strings.CutPrefix(res.Path, "qr:"); ok {
		return qrImage(payload, width, height)
	}
	if file, page, ok := splitPDFRef(res.Path); ok {
		return pdfPage(file, page)
	}
	return decodeFile(res.Path)
}

func decodeFile(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return toRGBA(src), nil
}

// qrImage generates a QR end-card: the code centered on a black canvas at
// roughly half the frame height.
func qrImage(payload string, width, height int) (*image.RGBA, error) {
	side := height / 2
	if width < height {
		side = width / 2
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, side)
	if err != nil {
		return nil, fmt.Errorf("generate QR for %q: %w", payload, err)
	}
	code, _, err := image.Decode(strings.NewReader(string(png)))
	if err != nil {
		return nil, fmt.Errorf("decode generated QR: %w", err)
	}

	canvas := BlackFrame(width, height)
	b := code.Bounds()
	off := image.Pt((width-b.Dx())/2, (height-b.Dy())/2)
	draw.Draw(canvas, b.Add(off), code, b.Min, draw.Src)
	return canvas, nil
}

// pdfPage rasterizes one page of a PDF document.
func pdfPage(path string, page int) (*image.RGBA, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open PDF %s: %w", path, err)
	}
	defer doc.Close()

	if page >= doc.NumPage() {
		log.Printf("[!] PDF %s has %d pages, clamping page %d", path, doc.NumPage(), page+1)
		page = doc.NumPage() - 1
	}
	img, err := doc.ImageDPI(page, pdfRenderDPI)
	if err != nil {
		return nil, fmt.Errorf("render PDF page %d of %s: %w", page+1, path, err)
	}
	return toRGBA(img), nil
}

// BlackFrame returns an opaque black canvas.
func BlackFrame(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	return img
}

func toRGBA(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok {
		return rgba
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
