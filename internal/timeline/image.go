package timeline

import (
	"context"
	"fmt"
	"image"
	"log"
	"os/exec"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/script2video/internal/assets"
	"github.com/ivlev/script2video/internal/motion"
	"github.com/ivlev/script2video/internal/script"
	"github.com/ivlev/script2video/internal/system"
)

const overlayOpacity = 0.35

// renderImageScene animates a still image over the scene duration and
// pipes the raw RGBA frames straight into the encoder's stdin. No
// intermediate frame files ever touch disk.
func (a *Assembler) renderImageScene(ctx context.Context, res assets.Resolved, asset script.Asset, duration float64, out string) error {
	img, err := assets.LoadImage(res, a.Cfg.Width, a.Cfg.Height)
	if err != nil {
		log.Printf("[!] Loading %q failed (%v), using black frame", res.Path, err)
		img = assets.BlackFrame(a.Cfg.Width, a.Cfg.Height)
	}

	spec, err := motion.ParseSpec(asset.Zoom, asset.Move, asset.Fit)
	if err != nil {
		log.Printf("[!] Motion spec %q/%q invalid (%v), holding static frame", asset.Zoom, asset.Move, err)
		spec = motion.DefaultSpec()
	}
	src := motion.NewFrameSource(img, duration, a.Cfg.Width, a.Cfg.Height, spec)

	ctx, cancel := context.WithTimeout(ctx, a.Cfg.EncodeTimeout)
	defer cancel()

	args := []string{"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", a.Cfg.Width, a.Cfg.Height),
		"-r", strconv.Itoa(a.Cfg.FPS),
		"-i", "pipe:0",
	}
	mapArg := "0:v"
	if ov := a.resolveOverlay(asset.Overlay); ov != "" {
		args = append(args, "-stream_loop", "-1", "-i", ov,
			"-filter_complex", fmt.Sprintf(
				"[1:v]scale=%d:%d,format=rgba,colorchannelmixer=aa=%.2f[ov];[0:v][ov]overlay[v]",
				a.Cfg.Width, a.Cfg.Height, overlayOpacity))
		mapArg = "[v]"
	}
	args = append(args, "-map", mapArg,
		"-c:v", a.Encoder)
	args = append(args, a.Quality...)
	args = append(args,
		"-threads", strconv.Itoa(system.EncodeThreads()),
		"-pix_fmt", "yuv420p",
		"-an",
		"-t", ffSeconds(duration),
		out,
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("encoder stdin: %w", err)
	}
	var stderr capturedTail
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start encoder: %w", err)
	}

	frames := int(duration * float64(a.Cfg.FPS))
	if frames < 1 {
		frames = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stdin.Close()
		dst := system.GetImage(image.Rect(0, 0, a.Cfg.Width, a.Cfg.Height))
		defer system.PutImage(dst)
		for i := 0; i < frames; i++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			src.Frame(float64(i)/float64(a.Cfg.FPS), dst)
			if _, err := stdin.Write(dst.Pix); err != nil {
				return fmt.Errorf("write frame %d: %w", i, err)
			}
		}
		return nil
	})
	g.Go(func() error {
		if err := cmd.Wait(); err != nil {
			return fmt.Errorf("encode: %w: %s", err, stderr.String())
		}
		return nil
	})
	return g.Wait()
}

// resolveOverlay locates the looping overlay clip, if any.
func (a *Assembler) resolveOverlay(ref string) string {
	if ref == "" {
		return ""
	}
	res := a.Resolver.Resolve(ref)
	if res.Generated || !assets.IsVideo(res.Path) {
		log.Printf("[!] Overlay %q did not resolve to a video, skipping", ref)
		return ""
	}
	return res.Path
}

// capturedTail keeps the last chunk of a stream, enough for ffmpeg's final
// error lines without buffering its whole progress chatter.
type capturedTail struct {
	buf []byte
}

func (c *capturedTail) Write(p []byte) (int, error) {
	c.buf = append(c.buf, p...)
	if len(c.buf) > 2048 {
		c.buf = c.buf[len(c.buf)-2048:]
	}
	return len(p), nil
}

func (c *capturedTail) String() string {
	return tail(string(c.buf), 400)
}
