package stage

import (
	"context"

	"mixdown/internal/queue"
)

// Handler describes the contract the workflow manager needs from each stage.
type Handler interface {
	Prepare(context.Context, *queue.Episode) error
	Execute(context.Context, *queue.Episode) error
	HealthCheck(context.Context) Health
}
