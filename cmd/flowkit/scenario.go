package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/kbukum/flowkit/config"
	"github.com/kbukum/flowkit/logger"
	"github.com/kbukum/flowkit/observability"
	"github.com/kbukum/flowkit/pipeline"
	"github.com/kbukum/flowkit/splitjoin"
)

// Report is what the characters pipeline prints for every input word.
type Report struct {
	ParentID string   `json:"parent_id"`
	Word     string   `json:"word"`
	Kept     string   `json:"kept"`
	Rejected []string `json:"rejected,omitempty"`
	Total    int      `json:"total"`
}

// Word is one ingest request body.
type Word struct {
	Text string `json:"text" validate:"required"`
}

// rejectedRune is the failure injected for the refused character.
type rejectedRune rune

func (r rejectedRune) Error() string { return fmt.Sprintf("character %q rejected", rune(r)) }

func toReport(_ context.Context, res splitjoin.Result[string, rune]) (Report, error) {
	kept := make([]rune, 0, res.Total())
	for _, s := range res.Succeeded() {
		kept = append(kept, s.Payload)
	}
	rep := Report{
		ParentID: res.ParentID().String(),
		Word:     res.Parent(),
		Kept:     string(kept),
		Total:    res.Total(),
	}
	for _, f := range res.Failed() {
		rep.Rejected = append(rep.Rejected, f.Err.Error())
	}
	return rep, nil
}

// reportWriter prints reports as JSON lines.
type reportWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newReportWriter(w io.Writer) *reportWriter {
	return &reportWriter{enc: json.NewEncoder(w)}
}

func (w *reportWriter) write(_ context.Context, r Report) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(r)
}

// buildCharacters assembles words -> characters -> reject -> report -> print.
func buildCharacters(cfg *AppConfig, out io.Writer, log *logger.Logger, metrics *observability.StageMetrics) (*pipeline.Pipeline[Word], error) {
	reject := cfg.rejected()
	w := newReportWriter(out)

	stages := []pipeline.Stage{
		pipeline.Transform("words", func(_ context.Context, in Word) (string, error) {
			return in.Text, nil
		}),
		splitjoin.Split("characters", func(_ context.Context, word string) ([]rune, error) {
			return []rune(word), nil
		}),
		splitjoin.Process("reject", func(_ context.Context, _ string, r rune) error {
			if r == reject {
				return rejectedRune(r)
			}
			return nil
		}, pipeline.WithParallelism(4)),
		splitjoin.JoinInto("report", toReport),
		pipeline.Action("print", w.write),
	}

	pc := cfg.Pipeline
	pc.Name = pipelineName(pc)
	return pipeline.Build[Word](stages,
		pipeline.WithConfig(pc),
		pipeline.WithLogger(log),
		pipeline.WithMetrics(metrics),
		pipeline.WithErrorHandler(func(err error, item any) {
			log.Warn("item failed", logger.MergeWithError(logger.Fields(logger.FieldKind, fmt.Sprintf("%T", item)), err))
		}),
	)
}

func pipelineName(pc config.PipelineConfig) string {
	if pc.Name == "" || pc.Name == "pipeline" {
		return "characters"
	}
	return pc.Name
}
