package system

import (
	"fmt"
	"log"
	"os/exec"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// InitResourceLimits raises the open-file limit; a long script keeps a
// surprising number of segment and asset handles alive at once.
func InitResourceLimits() {
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.Printf("[!] Could not read file limit: %v", err)
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.Printf("[!] Could not raise file limit: %v", err)
	}
}

// GetAudioDuration probes a media file's duration in seconds via ffprobe.
func GetAudioDuration(path string) (float64, error) {
	cmd := exec.Command("ffprobe", "-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var duration float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &duration); err != nil {
		return 0, err
	}
	return duration, nil
}

// HasAudioStream reports whether the file carries at least one audio track.
func HasAudioStream(path string) bool {
	cmd := exec.Command("ffprobe", "-v", "error",
		"-select_streams", "a", "-show_entries", "stream=codec_type",
		"-of", "default=noprint_wrappers=1:nokey=1", path)
	out, err := cmd.CombinedOutput()
	return err == nil && strings.Contains(string(out), "audio")
}

// GetBestH264Encoder picks a hardware H264 path when ffmpeg advertises one.
// Priority: VideoToolbox (macOS), NVENC (NVIDIA), then software libx264.
func GetBestH264Encoder() (string, string) {
	encoders := []struct {
		name string
		args string
	}{
		{"h264_videotoolbox", ""},
		{"h264_nvenc", ""},
	}

	for _, enc := range encoders {
		cmd := exec.Command("ffmpeg", "-encoders")
		out, err := cmd.CombinedOutput()
		if err == nil && strings.Contains(string(out), enc.name) {
			return enc.name, enc.args
		}
	}

	return "libx264", ""
}

// DefaultQuality maps an encoder to its quality knob: CRF for x264, CQ for
// NVENC, bitrate units (Q*100 kbit/s) for VideoToolbox.
func DefaultQuality(encoder string) int {
	switch encoder {
	case "h264_videotoolbox":
		return 75
	case "h264_nvenc":
		return 28
	default:
		return 23
	}
}

// EncodeThreads sizes the ffmpeg thread count from the machine's logical
// cores. Each thread holds frame buffers at the full target resolution, so
// the count is capped when available memory is tight.
func EncodeThreads() int {
	count, err := cpu.Counts(true)
	if err != nil || count < 1 {
		count = 2
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		if vm.Available < 2<<30 && count > 4 {
			count = 4
		}
	}
	return count
}
