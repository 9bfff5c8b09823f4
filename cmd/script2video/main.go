package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ivlev/script2video/internal/config"
	"github.com/ivlev/script2video/internal/render"
	"github.com/ivlev/script2video/internal/script"
	"github.com/ivlev/script2video/internal/system"
	"github.com/ivlev/script2video/internal/tts"
)

func main() {
	scriptPath := flag.String("script", "", "script file (JSON document or legacy pipe format)")
	outPath := flag.String("o", "", "output video path (default: output/<script name>.mp4)")
	settings := flag.String("settings", "", "YAML settings file")
	preset := flag.String("preset", "", "aspect preset: 16:9, 9:16 or 4:5")
	voice := flag.String("voice", "", "override the script voice")
	music := flag.String("music", "", "override the background music")
	bar := flag.Bool("bar", false, "draw an interactive progress bar instead of log lines")
	exportLegacy := flag.String("export-legacy", "", "write the parsed script back in legacy pipe format and exit")
	flag.Parse()

	log.SetFlags(0)

	if *scriptPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	system.InitResourceLimits()

	cfg, err := loadConfig(*settings)
	if err != nil {
		log.Fatalf("[!] %v", err)
	}
	if *preset != "" {
		cfg.ApplyPreset(*preset)
	}
	cfg.Normalize()

	data, err := os.ReadFile(*scriptPath)
	if err != nil {
		log.Fatalf("[!] Cannot read script: %v", err)
	}
	sc, err := script.Parse(string(data))
	if err != nil {
		log.Fatalf("[!] Cannot parse script: %v", err)
	}
	if *voice != "" {
		sc.Voice = *voice
	}
	if *music != "" {
		sc.Music = *music
	}

	if *exportLegacy != "" {
		if err := os.WriteFile(*exportLegacy, []byte(script.EncodeLegacy(sc)), 0644); err != nil {
			log.Fatalf("[!] Cannot write legacy script: %v", err)
		}
		log.Printf("[+++] Wrote %s", *exportLegacy)
		return
	}

	out := *outPath
	if out == "" {
		stem := strings.TrimSuffix(filepath.Base(*scriptPath), filepath.Ext(*scriptPath))
		out = filepath.Join(cfg.OutputDir, stem+".mp4")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var progress render.ProgressSink = &render.LogSink{}
	if *bar {
		progress = &render.BarSink{}
	}
	orch := &render.Orchestrator{
		Cfg:      cfg,
		Engine:   &tts.EdgeSynthesizer{},
		Progress: progress,
	}
	written, err := orch.Run(ctx, sc, out)
	if err != nil {
		log.Fatalf("[!] Render failed: %v", err)
	}
	fmt.Println(written)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
