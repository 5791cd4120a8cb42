// Package pipeline runs a linear chain of push-based stages, each with its
// own FIFO queue and worker pool.
//
// A pipeline is assembled from Stage descriptors, built once with Build,
// started, fed with Post or Feed, and finally drained:
//
//	p, err := pipeline.Build[string]([]pipeline.Stage{
//	    pipeline.Transform("upper", func(_ context.Context, s string) (string, error) {
//	        return strings.ToUpper(s), nil
//	    }, pipeline.WithParallelism(4)),
//	    pipeline.Action("print", func(_ context.Context, s string) error {
//	        fmt.Println(s)
//	        return nil
//	    }),
//	}, pipeline.WithName("words"))
//	if err != nil {
//	    return err
//	}
//	err = pipeline.Run(ctx, p, "a", "b", "c")
//
// Stage bodies are type-erased; Build checks that each stage's output type
// is assignable to the next stage's input type and fails with
// TYPE_MISMATCH otherwise.
//
// # Failures
//
// Callback errors and panics never abort a pipeline. They are routed
// through a two-tier sink: the offending value is asked first (if it
// implements ErrorReceiver), then the pipeline-wide ErrorHandler, and when
// neither exists the failure is logged.
//
// # Completion
//
// Drain stops admission and closes the first queue. Each stage closes its
// successor's queue once all of its workers have finished, so Drain returns
// only after every queued item has passed through the last stage.
//
// Stages that hold items back (Batch, TumblingWindow, Debounce, Reduce)
// release what they still hold from their Flush, after their last input
// and before the next stage's queue closes.
package pipeline
