package motion

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func TestZoomBoundaries(t *testing.T) {
	spec, err := ParseSpec("1.0:1.5", "", "cover")
	if err != nil {
		t.Fatalf("ParseSpec failed: %v", err)
	}
	f := NewFrameSource(testImage(1920, 1080), 5.0, 1080, 1920, spec)

	tolerance := 1e-9
	if z := f.ZoomAt(0); math.Abs(z-1.0) > tolerance {
		t.Errorf("At t=0: expected zoom 1.0, got %f", z)
	}
	if z := f.ZoomAt(5.0); math.Abs(z-1.5) > tolerance {
		t.Errorf("At t=duration: expected zoom 1.5, got %f", z)
	}
	if z := f.ZoomAt(2.5); math.Abs(z-1.25) > tolerance {
		t.Errorf("At midpoint: expected zoom 1.25, got %f", z)
	}
	// Past the end the motion holds the final state.
	if z := f.ZoomAt(99); math.Abs(z-1.5) > tolerance {
		t.Errorf("Past duration: expected zoom 1.5, got %f", z)
	}
}

func TestPanEdges(t *testing.T) {
	spec, err := ParseSpec("1.0:1.5", "HOR:0:100", "cover")
	if err != nil {
		t.Fatalf("ParseSpec failed: %v", err)
	}
	f := NewFrameSource(testImage(1920, 1080), 5.0, 1080, 1080, spec)

	// t=0: zoom 1.0, pan position 0, crop flush with the left edge.
	cx, _, cw, _ := f.cropAt(0)
	if left := cx - cw/2; math.Abs(left) > 1e-6 {
		t.Errorf("At t=0 crop should touch the left edge, x0=%f", left)
	}

	// t=duration: pan position 100, crop flush with the right edge.
	cx, _, cw, _ = f.cropAt(5.0)
	if right := cx + cw/2; math.Abs(right-1920) > 1e-6 {
		t.Errorf("At t=end crop should touch the right edge, x1=%f", right)
	}
}

func TestBaseCropAspect(t *testing.T) {
	tests := []struct {
		srcW, srcH float64
		dstW, dstH float64
		contain    bool
		wantW      float64
		wantH      float64
	}{
		// Cover on a wide source targeting portrait: full height, cropped width.
		{1920, 1080, 1080, 1920, false, 607.5, 1080},
		// Cover on matching aspect passes through.
		{1920, 1080, 1920, 1080, false, 1920, 1080},
		// Contain on a wide source targeting portrait: full width, letterboxed.
		{1920, 1080, 1080, 1920, true, 1920, 3413.3333333333335},
	}
	for _, tt := range tests {
		w, h := baseCrop(tt.srcW, tt.srcH, tt.dstW, tt.dstH, tt.contain)
		if math.Abs(w-tt.wantW) > 0.001 || math.Abs(h-tt.wantH) > 0.001 {
			t.Errorf("baseCrop(%v): got %fx%f, want %fx%f", tt, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestSolveAffineIdentity(t *testing.T) {
	pts := [3][2]float64{{0, 0}, {100, 0}, {0, 100}}
	m, err := solveAffine(pts, pts)
	if err != nil {
		t.Fatalf("solveAffine failed: %v", err)
	}
	want := [6]float64{1, 0, 0, 0, 1, 0}
	for i := range want {
		if math.Abs(m[i]-want[i]) > 1e-9 {
			t.Errorf("Identity transform element %d: expected %f, got %f", i, want[i], m[i])
		}
	}
}

func TestSolveAffineDegenerate(t *testing.T) {
	// Collinear source points have no affine solution.
	src := [3][2]float64{{0, 0}, {1, 1}, {2, 2}}
	dst := [3][2]float64{{0, 0}, {100, 0}, {0, 100}}
	if _, err := solveAffine(src, dst); err == nil {
		t.Error("Expected an error for collinear points")
	}
}

func TestFrameBlackFallback(t *testing.T) {
	// Zero-size source collapses the crop; Frame must still produce a
	// valid (black) frame instead of failing.
	spec := DefaultSpec()
	f := NewFrameSource(image.NewRGBA(image.Rect(0, 0, 0, 0)), 1.0, 64, 64, spec)

	dst := image.NewRGBA(image.Rect(0, 0, 64, 64))
	f.Frame(0, dst)

	c := dst.RGBAAt(32, 32)
	if c.R != 0 || c.G != 0 || c.B != 0 {
		t.Errorf("Expected black fallback pixel, got %+v", c)
	}
}

func TestParseMoveComponents(t *testing.T) {
	spec, err := ParseSpec("", "HOR:0:100+VER:20:80+ROT:0:3+SHAKE", "cover")
	if err != nil {
		t.Fatalf("ParseSpec failed: %v", err)
	}
	if len(spec.Moves) != 2 {
		t.Fatalf("Expected 2 pan components, got %d", len(spec.Moves))
	}
	if spec.Moves[1].Axis != Vertical || spec.Moves[1].From != 20 {
		t.Errorf("Unexpected vertical move: %+v", spec.Moves[1])
	}
	if spec.RotTo != 3 {
		t.Errorf("Expected rotation to 3 degrees, got %f", spec.RotTo)
	}
	if !spec.Shake {
		t.Error("Expected shake flag")
	}
}

func TestGroupProjection(t *testing.T) {
	// A scene covering the middle fifth of a 10s group over zoom 1.0:2.0
	// gets the matching fifth of the range.
	zoom, err := ProjectZoom("1.0:2.0", 4.0, 6.0, 10.0)
	if err != nil {
		t.Fatalf("ProjectZoom failed: %v", err)
	}
	z0, z1, err := ParseZoom(zoom)
	if err != nil {
		t.Fatalf("Re-parse failed: %v", err)
	}
	if math.Abs(z0-1.4) > 1e-6 || math.Abs(z1-1.6) > 1e-6 {
		t.Errorf("Expected 1.4:1.6, got %f:%f", z0, z1)
	}

	move, err := ProjectMove("HOR:0:100", 0, 5.0, 10.0)
	if err != nil {
		t.Fatalf("ProjectMove failed: %v", err)
	}
	var spec Spec
	if err := parseMoveInto(&spec, move); err != nil {
		t.Fatalf("Re-parse move failed: %v", err)
	}
	if math.Abs(spec.Moves[0].From-0) > 1e-6 || math.Abs(spec.Moves[0].To-50) > 1e-6 {
		t.Errorf("Expected HOR 0→50, got %+v", spec.Moves[0])
	}
}
