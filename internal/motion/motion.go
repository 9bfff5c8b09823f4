package motion

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Shake jitter constants. Amplitude is in source pixels; the two axes run
// at slightly different frequencies so the path never visibly repeats.
const (
	shakeAmp   = 4.0
	shakeFreqX = 8.7
	shakeFreqY = 11.3
)

var errDegenerate = errors.New("motion: degenerate crop geometry")

// FrameSource produces target-resolution frames of a still image animated
// by the configured zoom/pan/rotate path. Frame(t) is valid for any
// t in [0, duration); out-of-range values clamp to the endpoints.
type FrameSource struct {
	src      *image.RGBA
	spec     Spec
	duration float64
	width    int
	height   int

	srcW, srcH float64
	baseW      float64 // base crop matching the target aspect
	baseH      float64
}

// NewFrameSource prepares a motion clip over one source image.
func NewFrameSource(img image.Image, duration float64, width, height int, spec Spec) *FrameSource {
	f := &FrameSource{
		src:      toRGBA(img),
		spec:     spec,
		duration: duration,
		width:    width,
		height:   height,
	}
	f.srcW = float64(f.src.Bounds().Dx())
	f.srcH = float64(f.src.Bounds().Dy())
	f.baseW, f.baseH = baseCrop(f.srcW, f.srcH, float64(width), float64(height), spec.Contain)
	return f
}

// baseCrop computes the rectangle at source resolution that matches the
// target aspect ratio: cover keeps it inside the image (overflow cropped),
// contain wraps the whole image (letterboxed).
func baseCrop(srcW, srcH, dstW, dstH float64, contain bool) (float64, float64) {
	aspect := dstW / dstH
	w := srcH * aspect
	if contain {
		if w < srcW {
			w = srcW
		}
	} else {
		if w > srcW {
			w = srcW
		}
	}
	return w, w / aspect
}

// Progress maps a timestamp to 0..1 along the clip.
func (f *FrameSource) Progress(t float64) float64 {
	if f.duration <= 0 {
		return 0
	}
	p := t / f.duration
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// ZoomAt returns the interpolated zoom factor at time t.
func (f *FrameSource) ZoomAt(t float64) float64 {
	p := f.Progress(t)
	return f.spec.ZoomStart + (f.spec.ZoomEnd-f.spec.ZoomStart)*p
}

// cropAt computes the crop window center and dimensions at time t.
func (f *FrameSource) cropAt(t float64) (cx, cy, cw, ch float64) {
	p := f.Progress(t)

	zoom := f.ZoomAt(t)
	if zoom <= 0 {
		zoom = 1.0
	}
	scale := 1.0 / zoom
	cw = f.baseW * scale
	ch = f.baseH * scale

	cx = f.srcW / 2
	cy = f.srcH / 2
	for _, m := range f.spec.Moves {
		pos := m.From + (m.To-m.From)*p
		switch m.Axis {
		case Horizontal:
			cx += (pos - 50) / 100 * (f.srcW - cw)
		case Vertical:
			cy += (pos - 50) / 100 * (f.srcH - ch)
		}
	}

	if f.spec.Shake {
		cx += shakeAmp * math.Sin(2*math.Pi*shakeFreqX*t)
		cy += shakeAmp * math.Sin(2*math.Pi*shakeFreqY*t+1.7)
	}
	return cx, cy, cw, ch
}

// Frame warps the crop window at time t into dst in a single sub-pixel
// affine pass. Separate crop and resize steps would each round to whole
// pixels and the motion would visibly stutter. Degenerate geometry falls
// back to a black frame.
func (f *FrameSource) Frame(t float64, dst *image.RGBA) {
	fillBlack(dst)

	cx, cy, cw, ch := f.cropAt(t)
	theta := 0.0
	if f.spec.RotFrom != 0 || f.spec.RotTo != 0 {
		deg := f.spec.RotFrom + (f.spec.RotTo-f.spec.RotFrom)*f.Progress(t)
		theta = deg * math.Pi / 180
	}

	// Three crop corners, rotated about the crop center, and their
	// destinations at the frame corners.
	src := [3][2]float64{
		rotate(cx-cw/2, cy-ch/2, cx, cy, theta),
		rotate(cx+cw/2, cy-ch/2, cx, cy, theta),
		rotate(cx-cw/2, cy+ch/2, cx, cy, theta),
	}
	dstPts := [3][2]float64{
		{0, 0},
		{float64(f.width), 0},
		{0, float64(f.height)},
	}

	m, err := solveAffine(src, dstPts)
	if err != nil {
		return // black frame already in place
	}

	xdraw.ApproxBiLinear.Transform(dst, m, f.src, f.src.Bounds(), xdraw.Over, nil)
}

func rotate(x, y, cx, cy, theta float64) [2]float64 {
	if theta == 0 {
		return [2]float64{x, y}
	}
	dx, dy := x-cx, y-cy
	cos, sin := math.Cos(theta), math.Sin(theta)
	return [2]float64{cx + dx*cos - dy*sin, cy + dx*sin + dy*cos}
}

// solveAffine finds the transform mapping three source points onto three
// destination points.
func solveAffine(src, dst [3][2]float64) (f64.Aff3, error) {
	ux, uy := src[1][0]-src[0][0], src[1][1]-src[0][1]
	vx, vy := src[2][0]-src[0][0], src[2][1]-src[0][1]

	det := ux*vy - uy*vx
	if math.Abs(det) < 1e-9 {
		return f64.Aff3{}, errDegenerate
	}

	px, py := dst[1][0]-dst[0][0], dst[1][1]-dst[0][1]
	qx, qy := dst[2][0]-dst[0][0], dst[2][1]-dst[0][1]

	a := (px*vy - qx*uy) / det
	b := (qx*ux - px*vx) / det
	d := (py*vy - qy*uy) / det
	e := (qy*ux - py*vx) / det

	c := dst[0][0] - a*src[0][0] - b*src[0][1]
	fv := dst[0][1] - d*src[0][0] - e*src[0][1]

	return f64.Aff3{a, b, c, d, e, fv}, nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	return rgba
}

func fillBlack(dst *image.RGBA) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
}
