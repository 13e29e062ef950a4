package attachment

import (
	"context"

	"anoa.com/attachments/internal/entity"
	"go.uber.org/zap"
)

type State string

const (
	StateValidating     State = "validating"
	StateAuthenticating State = "authenticating"
	StateFetching       State = "fetching"
	StateAuthorizing    State = "authorizing"
	StateDiffing        State = "diffing"
	StateWriting        State = "writing"
	StateCleaning       State = "cleaning"
	StateDone           State = "done"
)

// outcome ends a pipeline. data may be nil, which is rendered as "data": null.
type outcome struct {
	data *entity.Attachment
}

func finish(data *entity.Attachment) (*outcome, error) {
	return &outcome{data: data}, nil
}

// step returns (nil, nil) to hand over to the next step. An outcome or an
// error ends the pipeline.
type step struct {
	state State
	run   func(ctx context.Context) (*outcome, error)
}

// runPipeline executes steps in order under a context of its own. The context
// is cancelled as soon as a step ends the pipeline, and checked before every
// step, so nothing after a terminal step reaches a collaborator.
func runPipeline(ctx context.Context, logger *zap.Logger, op string, steps ...step) (*entity.Attachment, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		logger.Debug("Attachment pipeline step", zap.String("op", op), zap.String("state", string(s.state)))

		out, err := s.run(ctx)
		if err != nil {
			cancel()
			logger.Debug("Attachment pipeline failed",
				zap.String("op", op),
				zap.String("state", string(s.state)),
				zap.Error(err),
			)
			return nil, err
		}
		if out != nil {
			cancel()
			logger.Debug("Attachment pipeline finished",
				zap.String("op", op),
				zap.String("state", string(s.state)),
				zap.Bool("has_data", out.data != nil),
			)
			return out.data, nil
		}
	}

	logger.Debug("Attachment pipeline finished", zap.String("op", op), zap.String("state", string(StateDone)))
	return nil, nil
}
