package timeline

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"strconv"

	"github.com/ivlev/script2video/internal/assets"
	"github.com/ivlev/script2video/internal/script"
	"github.com/ivlev/script2video/internal/system"
)

// ownAudioSource points the scene audio mixer at a video asset's own
// soundtrack.
type ownAudioSource struct {
	Path   string
	Volume float64
	Seek   float64
}

// renderVideoScene normalizes a video asset to the output geometry and
// frame rate and stretches it across the scene by looping. The clip's own
// audio is not carried here; if it is wanted and decodes cleanly the mixer
// pulls it from the source file directly.
func (a *Assembler) renderVideoScene(ctx context.Context, path string, asset script.Asset, duration float64, out string) (*ownAudioSource, error) {
	var own *ownAudioSource
	if asset.Volume > 0 {
		usable, err := assets.AudioUsable(ctx, path)
		if err != nil {
			return nil, err
		}
		if usable {
			own = &ownAudioSource{Path: path, Volume: asset.Volume, Seek: asset.Seek}
		} else {
			log.Printf("[!] Dropping unusable audio track of %s", path)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, a.Cfg.EncodeTimeout)
	defer cancel()

	args := []string{"-y"}
	if asset.Seek > 0 {
		args = append(args, "-ss", ffSeconds(asset.Seek))
	}
	args = append(args,
		"-stream_loop", "-1",
		"-i", path,
	)

	vf := a.scaleFilter(asset.Fit == "contain") +
		",fps=" + strconv.Itoa(a.Cfg.FPS) + ",setsar=1"
	mapArg := "0:v"
	if ov := a.resolveOverlay(asset.Overlay); ov != "" {
		args = append(args, "-stream_loop", "-1", "-i", ov,
			"-filter_complex", fmt.Sprintf(
				"[0:v]%s[base];[1:v]scale=%d:%d,format=rgba,colorchannelmixer=aa=%.2f[ov];[base][ov]overlay[v]",
				vf, a.Cfg.Width, a.Cfg.Height, overlayOpacity))
		mapArg = "[v]"
	} else {
		args = append(args, "-vf", vf)
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
	if o, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("normalize video %s: %w: %s", path, err, tail(string(o), 400))
	}
	return own, nil
}

// scaleFilter maps the fit mode onto a scale chain: cover overfills and
// crops, contain letterboxes onto black.
func (a *Assembler) scaleFilter(contain bool) string {
	w, h := a.Cfg.Width, a.Cfg.Height
	if contain {
		return fmt.Sprintf(
			"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
			w, h, w, h)
	}
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d",
		w, h, w, h)
}
