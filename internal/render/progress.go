package render

import (
	"log"

	"github.com/schollz/progressbar/v3"
)

// ProgressSink receives render milestones. The orchestrator reports one
// step per scene plus one per post-processing stage.
type ProgressSink interface {
	Start(total int)
	Step(label string)
	Done()
}

// LogSink reports progress through the standard render log. It is the
// default for non-interactive runs.
type LogSink struct {
	total int
	done  int
}

func (s *LogSink) Start(total int) { s.total = total }

func (s *LogSink) Step(label string) {
	s.done++
	log.Printf("[*] [%d/%d] %s", s.done, s.total, label)
}

func (s *LogSink) Done() {
	log.Printf("[+++] Render complete (%d steps)", s.done)
}

// BarSink draws an interactive terminal bar.
type BarSink struct {
	bar *progressbar.ProgressBar
}

func (s *BarSink) Start(total int) {
	s.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription("rendering"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
	)
}

func (s *BarSink) Step(label string) {
	if s.bar == nil {
		return
	}
	s.bar.Describe(label)
	_ = s.bar.Add(1)
}

func (s *BarSink) Done() {
	if s.bar != nil {
		_ = s.bar.Finish()
	}
}
