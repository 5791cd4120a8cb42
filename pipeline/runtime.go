package pipeline

import (
	"context"
	"fmt"

	"github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/logger"
	"github.com/kbukum/flowkit/observability"
)

// ErrorReceiver is implemented by payloads that want to be told about
// their own failures. It takes precedence over the pipeline ErrorHandler.
type ErrorReceiver interface {
	ReceiveError(err error)
}

// ErrorHandler is the pipeline-wide fallback for failures whose subject
// does not implement ErrorReceiver. item is the value the failure is about.
type ErrorHandler func(err error, item any)

// Runtime is what a stage body sees of its pipeline.
type Runtime struct {
	pipeline string
	stage    string
	kind     Kind
	log      *logger.Logger
	handler  ErrorHandler
	metrics  *observability.StageMetrics
}

// Pipeline returns the name of the running pipeline.
func (rt *Runtime) Pipeline() string { return rt.pipeline }

// Stage returns the name of the running stage.
func (rt *Runtime) Stage() string { return rt.stage }

// Logger returns the stage logger.
func (rt *Runtime) Logger() *logger.Logger { return rt.log }

// Metrics returns the stage instruments.
func (rt *Runtime) Metrics() *observability.StageMetrics { return rt.metrics }

// Report routes a failure about subject: to subject itself when it is an
// ErrorReceiver, otherwise to the pipeline ErrorHandler, otherwise to the
// error log. Receivers and handlers that panic are logged and ignored.
func (rt *Runtime) Report(ctx context.Context, err error, subject any) {
	rt.ReportTo(ctx, err, subject, subject)
}

// ReportTo is Report with the ErrorReceiver probe done on owner while the
// ErrorHandler is handed item.
func (rt *Runtime) ReportTo(ctx context.Context, err error, owner, item any) {
	code := string(errors.ErrCodeInternal)
	if appErr, ok := errors.AsAppError(err); ok {
		code = string(appErr.Code)
	}
	rt.metrics.RecordError(ctx, rt.pipeline, rt.stage, code)

	fields := logger.MergeWithError(logger.Fields(
		logger.FieldStage, rt.stage,
		logger.FieldKind, rt.kind.String(),
		logger.FieldCode, code,
	), err)

	if receiver, ok := owner.(ErrorReceiver); ok {
		rt.log.Debug("failure routed to item", fields)
		rt.deliver(fields, func() { receiver.ReceiveError(err) })
		return
	}
	if rt.handler != nil {
		rt.log.Debug("failure routed to pipeline handler", fields)
		rt.deliver(fields, func() { rt.handler(err, item) })
		return
	}
	rt.log.Error("unhandled stage failure", fields)
}

func (rt *Runtime) deliver(fields map[string]any, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			fields["recovered"] = fmt.Sprint(r)
			rt.log.Error("error sink panicked", fields)
		}
	}()
	fn()
}

// CallSafely runs fn and converts a panic into a PANIC error.
func CallSafely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Panic(r)
		}
	}()
	return fn()
}
