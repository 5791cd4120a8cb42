// Package splitjoin provides fan-out/fan-in stages for the pipeline package.
//
// A Split stage turns each parent into N child items that all remember
// their parent and N. Child stages (Process, Transform) work on each child
// independently and never let one child's failure touch its siblings.
// A join stage (Join, JoinInto, Collect) gathers children by parent and
// produces exactly one Result per parent once all N have arrived:
//
//	stages := []pipeline.Stage{
//	    splitjoin.Split("letters", func(_ context.Context, s string) ([]rune, error) {
//	        return []rune(s), nil
//	    }),
//	    splitjoin.Process("check", func(_ context.Context, s string, r rune) error {
//	        if r == 'b' {
//	            return errNoB
//	        }
//	        return nil
//	    }, pipeline.WithParallelism(4)),
//	    splitjoin.Join("report", func(_ context.Context, res splitjoin.Result[string, rune]) error {
//	        fmt.Println(res.Parent(), len(res.Succeeded()), len(res.Failed()))
//	        return nil
//	    }),
//	}
//
// Every admitted parent gets its own identity, so two equal values posted
// separately are joined separately. A parent whose splitter fails or yields
// nothing never reaches the join.
//
// Failures are offered first to the value they concern when it implements
// pipeline.ErrorReceiver (the child payload for child stages, the parent
// for splits and join handlers), and otherwise to the pipeline's
// ErrorHandler.
package splitjoin
