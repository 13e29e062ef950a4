package attachment

import (
	"context"
	"errors"
	"testing"

	"anoa.com/attachments/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunPipelineStopsAtOutcome(t *testing.T) {
	var (
		ran      []State
		finalCtx context.Context
	)
	record := func(state State) func(ctx context.Context) (*outcome, error) {
		return func(ctx context.Context) (*outcome, error) {
			ran = append(ran, state)
			return nil, nil
		}
	}
	want := &entity.Attachment{ID: "42"}

	got, err := runPipeline(context.Background(), zap.NewNop(), "test",
		step{StateValidating, record(StateValidating)},
		step{StateDiffing, func(ctx context.Context) (*outcome, error) {
			ran = append(ran, StateDiffing)
			finalCtx = ctx
			return finish(want)
		}},
		step{StateWriting, record(StateWriting)},
	)

	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.Equal(t, []State{StateValidating, StateDiffing}, ran)
	assert.ErrorIs(t, finalCtx.Err(), context.Canceled)
}

func TestRunPipelineStopsAtError(t *testing.T) {
	boom := errors.New("boom")
	writes := 0

	_, err := runPipeline(context.Background(), zap.NewNop(), "test",
		step{StateAuthorizing, func(ctx context.Context) (*outcome, error) { return nil, boom }},
		step{StateWriting, func(ctx context.Context) (*outcome, error) {
			writes++
			return finish(nil)
		}},
	)

	assert.ErrorIs(t, err, boom)
	assert.Zero(t, writes)
}

func TestRunPipelineHonoursCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	_, err := runPipeline(ctx, zap.NewNop(), "test",
		step{StateFetching, func(ctx context.Context) (*outcome, error) {
			calls++
			cancel()
			return nil, nil
		}},
		step{StateWriting, func(ctx context.Context) (*outcome, error) {
			calls++
			return finish(nil)
		}},
	)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
