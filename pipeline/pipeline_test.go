package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/flowkit/component"
	"github.com/kbukum/flowkit/config"
	"github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/logger"
)

// collector gathers values emitted into a terminal Action.
type collector[T any] struct {
	mu    sync.Mutex
	items []T
}

func (c *collector[T]) stage(name string) Stage {
	return Action(name, func(_ context.Context, v T) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.items = append(c.items, v)
		return nil
	})
}

func (c *collector[T]) values() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.items...)
}

// failures records what reaches the pipeline ErrorHandler.
type failures struct {
	mu    sync.Mutex
	errs  []error
	items []any
}

func (f *failures) handle(err error, item any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, err)
	f.items = append(f.items, item)
}

func (f *failures) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.errs)
}

func quiet() BuildOption { return WithLogger(logger.Nop()) }

func TestRun_TransformThenAction(t *testing.T) {
	out := &collector[string]{}
	p, err := Build[string]([]Stage{
		Transform("upper", func(_ context.Context, s string) (string, error) {
			return strings.ToUpper(s), nil
		}),
		out.stage("sink"),
	}, quiet(), WithName("words"))
	require.NoError(t, err)
	assert.Equal(t, "words", p.Name())
	assert.Equal(t, StateBuilt, p.State())

	require.NoError(t, Run(context.Background(), p, "a", "b", "c"))

	assert.Equal(t, []string{"A", "B", "C"}, out.values())
	assert.Equal(t, StateCompleted, p.State())
	select {
	case <-p.Done():
	default:
		t.Fatal("Done should be closed after Drain")
	}
}

func TestRun_PreservesOrderWithSingleWorker(t *testing.T) {
	out := &collector[int]{}
	p, err := Build[int]([]Stage{out.stage("sink")}, quiet())
	require.NoError(t, err)

	in := make([]int, 500)
	for i := range in {
		in[i] = i
	}
	require.NoError(t, Run(context.Background(), p, in...))
	assert.Equal(t, in, out.values())
}

func TestRun_ParallelWorkers(t *testing.T) {
	out := &collector[int]{}
	p, err := Build[int]([]Stage{
		Transform("square", func(_ context.Context, n int) (int, error) {
			return n * n, nil
		}, WithParallelism(8), WithQueueDepth(4)),
		out.stage("sink"),
	}, quiet())
	require.NoError(t, err)

	in := make([]int, 100)
	for i := range in {
		in[i] = i
	}
	require.NoError(t, Run(context.Background(), p, in...))

	got := out.values()
	assert.Len(t, got, 100)
	assert.Contains(t, got, 99*99)
}

func TestFilter(t *testing.T) {
	out := &collector[int]{}
	p, err := Build[int]([]Stage{
		Filter("even", func(n int) bool { return n%2 == 0 }),
		out.stage("sink"),
	}, quiet())
	require.NoError(t, err)

	require.NoError(t, Run(context.Background(), p, 1, 2, 3, 4, 5, 6))
	assert.Equal(t, []int{2, 4, 6}, out.values())
}

func TestTransformFailure_ReportedAndDropped(t *testing.T) {
	boom := stderrors.New("boom")
	f := &failures{}
	out := &collector[int]{}
	p, err := Build[int]([]Stage{
		Transform("half", func(_ context.Context, n int) (int, error) {
			if n%2 != 0 {
				return 0, boom
			}
			return n / 2, nil
		}),
		out.stage("sink"),
	}, quiet(), WithErrorHandler(f.handle))
	require.NoError(t, err)

	require.NoError(t, Run(context.Background(), p, 1, 2, 3, 4))

	assert.Equal(t, []int{1, 2}, out.values())
	require.Equal(t, 2, f.count())
	for _, e := range f.errs {
		assert.True(t, errors.HasCode(e, errors.ErrCodeStageFailed))
		assert.ErrorIs(t, e, boom)
	}
	assert.ElementsMatch(t, []any{1, 3}, f.items)
}

func TestActionPanic_RecoveredAsStageFailure(t *testing.T) {
	f := &failures{}
	p, err := Build[string]([]Stage{
		Action("explode", func(_ context.Context, s string) error {
			if s == "x" {
				panic("kaboom")
			}
			return nil
		}),
	}, quiet(), WithErrorHandler(f.handle))
	require.NoError(t, err)

	require.NoError(t, Run(context.Background(), p, "a", "x", "b"))

	require.Equal(t, 1, f.count())
	assert.True(t, errors.HasCode(f.errs[0], errors.ErrCodeStageFailed))
	assert.True(t, errors.HasCode(f.errs[0], errors.ErrCodePanic))
	assert.Equal(t, "x", f.items[0])
}

type selfReporting struct {
	id   int
	mu   sync.Mutex
	errs []error
}

func (s *selfReporting) ReceiveError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func TestErrorReceiverTakesPrecedence(t *testing.T) {
	f := &failures{}
	p, err := Build[*selfReporting]([]Stage{
		Action("reject", func(_ context.Context, s *selfReporting) error {
			return fmt.Errorf("reject %d", s.id)
		}),
	}, quiet(), WithErrorHandler(f.handle))
	require.NoError(t, err)

	item := &selfReporting{id: 7}
	require.NoError(t, Run(context.Background(), p, item))

	assert.Equal(t, 0, f.count())
	require.Len(t, item.errs, 1)
	assert.Contains(t, item.errs[0].Error(), "stage \"reject\"")
}

func TestPanickingHandlerDoesNotStopPipeline(t *testing.T) {
	out := &collector[int]{}
	p, err := Build[int]([]Stage{
		Transform("fail-odd", func(_ context.Context, n int) (int, error) {
			if n%2 != 0 {
				return 0, stderrors.New("odd")
			}
			return n, nil
		}),
		out.stage("sink"),
	}, quiet(), WithErrorHandler(func(error, any) { panic("handler broke") }))
	require.NoError(t, err)

	require.NoError(t, Run(context.Background(), p, 1, 2, 3, 4))
	assert.Equal(t, []int{2, 4}, out.values())
}

func TestUnhandledFailureIsLogged(t *testing.T) {
	var buf strings.Builder
	var mu sync.Mutex
	w := writerFunc(func(b []byte) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		return buf.Write(b)
	})
	p, err := Build[int]([]Stage{
		Action("fail", func(context.Context, int) error { return stderrors.New("nope") }),
	}, WithLogger(logger.NewWithWriter(w, "error")))
	require.NoError(t, err)

	require.NoError(t, Run(context.Background(), p, 1))

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, buf.String(), "unhandled stage failure")
	assert.Contains(t, buf.String(), string(errors.ErrCodeStageFailed))
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) { return f(b) }

func TestLifecycleErrors(t *testing.T) {
	p, err := Build[int]([]Stage{
		Action("noop", func(context.Context, int) error { return nil }),
	}, quiet(), WithName("life"))
	require.NoError(t, err)
	ctx := context.Background()

	err = p.Post(ctx, 1)
	assert.True(t, errors.HasCode(err, errors.ErrCodePipelineNotRunning))

	require.NoError(t, p.Start(ctx))
	assert.True(t, errors.HasCode(p.Start(ctx), errors.ErrCodeStateViolation))
	require.NoError(t, p.Post(ctx, 1))

	require.NoError(t, p.Drain(ctx))
	require.NoError(t, p.Drain(ctx))

	err = p.Post(ctx, 2)
	assert.True(t, errors.HasCode(err, errors.ErrCodePipelineClosed))
	assert.True(t, errors.HasCode(p.PostAll(ctx, 3, 4), errors.ErrCodePipelineClosed))
}

func TestDrainBeforeStart(t *testing.T) {
	p, err := Build[int]([]Stage{
		Action("noop", func(context.Context, int) error { return nil }),
	}, quiet())
	require.NoError(t, err)

	require.NoError(t, p.Drain(context.Background()))
	assert.Equal(t, StateCompleted, p.State())
	assert.True(t, errors.HasCode(p.Start(context.Background()), errors.ErrCodeStateViolation))
}

func TestDrainWaitsForInFlightWork(t *testing.T) {
	release := make(chan struct{})
	out := &collector[int]{}
	p, err := Build[int]([]Stage{
		Action("slow", func(context.Context, int) error {
			<-release
			return nil
		}),
		out.stage("sink"),
	}, quiet())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, p.Start(ctx))
	require.NoError(t, p.PostAll(ctx, 1, 2, 3))

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Drain(short), context.DeadlineExceeded)
	assert.Equal(t, StateDraining, p.State())

	close(release)
	require.NoError(t, p.Drain(ctx))
	assert.Equal(t, []int{1, 2, 3}, out.values())
}

func TestBoundedQueueAppliesBackpressure(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	p, err := Build[int]([]Stage{
		Action("blocked", func(context.Context, int) error {
			select {
			case started <- struct{}{}:
			default:
			}
			<-release
			return nil
		}, WithQueueDepth(1)),
	}, quiet())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, p.Start(ctx))
	require.NoError(t, p.Post(ctx, 1))
	<-started
	require.NoError(t, p.Post(ctx, 2))

	short, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Post(short, 3), context.DeadlineExceeded)
	assert.Equal(t, 1, p.Queued())

	close(release)
	require.NoError(t, p.Drain(ctx))
}

func TestDrainReleasesBlockedPost(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	out := &collector[int]{}
	p, err := Build[int]([]Stage{
		Action("blocked", func(context.Context, int) error {
			select {
			case started <- struct{}{}:
			default:
			}
			<-release
			return nil
		}, WithQueueDepth(1)),
		out.stage("sink"),
	}, quiet())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, p.Start(ctx))
	require.NoError(t, p.Post(ctx, 1))
	<-started
	require.NoError(t, p.Post(ctx, 2))

	posted := make(chan error, 1)
	go func() { posted <- p.Post(ctx, 3) }()
	require.Eventually(t, func() bool { return p.Queued() == 2 }, time.Second, time.Millisecond)

	drained := make(chan error, 1)
	go func() {
		short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		drained <- p.Drain(short)
	}()

	select {
	case err := <-drained:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("drain ignored its context while a post was blocked")
	}
	select {
	case err := <-posted:
		assert.True(t, errors.HasCode(err, errors.ErrCodePipelineClosed))
	case <-time.After(time.Second):
		t.Fatal("blocked post not released by drain")
	}
	assert.Equal(t, StateDraining, p.State())
	assert.Equal(t, component.StatusDegraded, p.Health(ctx).Status)

	close(release)
	require.NoError(t, p.Drain(ctx))
	assert.Equal(t, []int{1, 2}, out.values())
}

func TestFeed(t *testing.T) {
	out := &collector[int]{}
	p, err := Build[int]([]Stage{out.stage("sink")}, quiet())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, p.Start(ctx))
	require.NoError(t, Feed(ctx, p, FromSlice([]int{1, 2})))

	ch := make(chan int, 2)
	ch <- 3
	ch <- 4
	close(ch)
	require.NoError(t, Feed(ctx, p, FromChannel(ch)))
	require.NoError(t, Feed(ctx, p, FromSeq(slices.Values([]int{5, 6}))))
	require.NoError(t, p.Drain(ctx))

	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, out.values())
}

func TestFromChannel_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok, err := FromChannel(make(chan int)).Next(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildValidation(t *testing.T) {
	noop := Action("noop", func(context.Context, int) error { return nil })

	tests := []struct {
		name   string
		stages []Stage
		code   errors.ErrorCode
	}{
		{"no stages", nil, errors.ErrCodeInvalidConfig},
		{"duplicate names", []Stage{noop, noop}, errors.ErrCodeInvalidConfig},
		{"missing name", []Stage{{Kind: KindAction, In: reflect.TypeFor[int](), Body: noop.Body}}, errors.ErrCodeInvalidConfig},
		{"missing body", []Stage{{Name: "x", In: reflect.TypeFor[int]()}}, errors.ErrCodeInvalidConfig},
		{"input mismatch", []Stage{Action("s", func(context.Context, string) error { return nil })}, errors.ErrCodeTypeMismatch},
		{"link mismatch", []Stage{
			Transform("itoa", func(_ context.Context, n int) (string, error) { return fmt.Sprint(n), nil }),
			Action("ints", func(context.Context, int) error { return nil }),
		}, errors.ErrCodeTypeMismatch},
		{"terminal followed", []Stage{
			{Name: "end", Kind: KindJoin, In: reflect.TypeFor[int](), Options: DefaultOptions(), Body: noop.Body},
			Action("after", func(context.Context, int) error { return nil }),
		}, errors.ErrCodeTypeMismatch},
		{"zero parallelism", []Stage{
			Action("p0", func(context.Context, int) error { return nil }, WithParallelism(0)),
		}, errors.ErrCodeInvalidConfig},
		{"negative depth", []Stage{
			Action("dneg", func(context.Context, int) error { return nil }, WithQueueDepth(-1)),
		}, errors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build[int](tt.stages, quiet())
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestBuild_InterfaceInput(t *testing.T) {
	_, err := Build[*strings.Builder]([]Stage{
		Action("stringer", func(context.Context, fmt.Stringer) error { return nil }),
	}, quiet())
	assert.NoError(t, err)
}

func TestJoinKindPinnedToSingleWorker(t *testing.T) {
	join := Stage{
		Name: "join", Kind: KindJoin, In: reflect.TypeFor[int](),
		Options: NewOptions(WithParallelism(6)),
		Body:    func(context.Context, *Runtime, any, Emit) {},
	}
	p, err := Build[int]([]Stage{join}, quiet(), WithConfig(config.PipelineConfig{
		Stages: map[string]config.StageConfig{"join": {MaxParallelism: 4}},
	}))
	require.NoError(t, err)
	assert.Equal(t, 1, p.Stages()[0].Options.MaxParallelism)
}

func TestWithConfigOverrides(t *testing.T) {
	p, err := Build[int]([]Stage{
		Action("work", func(context.Context, int) error { return nil }),
	}, quiet(), WithConfig(config.PipelineConfig{
		Name:         "configured",
		DrainTimeout: time.Second,
		Stages:       map[string]config.StageConfig{"work": {MaxParallelism: 3, MaxQueueDepth: 16}},
	}))
	require.NoError(t, err)

	assert.Equal(t, "configured", p.Name())
	opts := p.Stages()[0].Options
	assert.Equal(t, 3, opts.MaxParallelism)
	assert.Equal(t, 16, opts.MaxQueueDepth)
	assert.Equal(t, "parallelism=3 queue=16", opts.String())

	t.Run("parallelism only keeps the queue bound", func(t *testing.T) {
		p, err := Build[int]([]Stage{
			Action("work", func(context.Context, int) error { return nil }, WithQueueDepth(16)),
		}, quiet(), WithConfig(config.PipelineConfig{
			Stages: map[string]config.StageConfig{"work": {MaxParallelism: 8}},
		}))
		require.NoError(t, err)
		assert.Equal(t, "parallelism=8 queue=16", p.Stages()[0].Options.String())
	})

	t.Run("queue only keeps parallelism", func(t *testing.T) {
		p, err := Build[int]([]Stage{
			Action("work", func(context.Context, int) error { return nil }, WithParallelism(2)),
		}, quiet(), WithConfig(config.PipelineConfig{
			Stages: map[string]config.StageConfig{"work": {MaxQueueDepth: 4}},
		}))
		require.NoError(t, err)
		assert.Equal(t, "parallelism=2 queue=4", p.Stages()[0].Options.String())
	})
}

func TestWithConfig_Invalid(t *testing.T) {
	_, err := Build[int]([]Stage{
		Action("work", func(context.Context, int) error { return nil }),
	}, quiet(), WithConfig(config.PipelineConfig{
		Stages: map[string]config.StageConfig{"work": {MaxQueueDepth: -2}},
	}))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfig))
}

func TestHealthAndStop(t *testing.T) {
	p, err := Build[int]([]Stage{
		Action("noop", func(context.Context, int) error { return nil }),
	}, quiet(), WithName("h"))
	require.NoError(t, err)
	ctx := context.Background()

	assert.Equal(t, component.StatusUnhealthy, p.Health(ctx).Status)

	reg := component.NewRegistry()
	require.NoError(t, reg.Register(p))
	require.NoError(t, reg.StartAll(ctx))
	h := p.Health(ctx)
	assert.Equal(t, component.StatusHealthy, h.Status)
	assert.Equal(t, "h", h.Name)

	require.NoError(t, reg.StopAll(ctx))
	assert.Equal(t, StateCompleted, p.State())
	assert.Equal(t, "completed", p.Health(ctx).Message)
}

func TestDescribe(t *testing.T) {
	p, err := Build[int]([]Stage{
		Filter("keep", func(int) bool { return true }),
		Action("noop", func(context.Context, int) error { return nil }),
	}, quiet(), WithName("d"))
	require.NoError(t, err)

	desc := p.Describe()
	assert.Equal(t, "pipeline", desc.Type)
	assert.Equal(t, "keep -> noop", desc.Details)
}

func TestKindAndScopeStrings(t *testing.T) {
	assert.Equal(t, "split", KindSplit.String())
	assert.Equal(t, "join", KindJoin.String())
	assert.Equal(t, "unknown", Kind(0).String())
	assert.Equal(t, "child", ScopeChild.String())
	assert.Equal(t, "draining", StateDraining.String())
}

func TestNamedLoggerFromRegistry(t *testing.T) {
	var buf strings.Builder
	var mu sync.Mutex
	w := writerFunc(func(b []byte) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		return buf.Write(b)
	})
	logger.Register("registered", logger.NewWithWriter(w, "info"))
	defer logger.Unregister("registered")

	p, err := Build[int]([]Stage{
		Action("noop", func(context.Context, int) error { return nil }),
	}, WithName("registered"))
	require.NoError(t, err)
	require.NoError(t, Run(context.Background(), p, 1))

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, buf.String(), "pipeline completed")
	assert.Contains(t, buf.String(), `"pipeline":"registered"`)
}
