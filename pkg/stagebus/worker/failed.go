package worker

import (
	"github.com/randalmurphal/stagebus/pkg/stagebus/event"
)

// TypePipelineFailed is the routing tag of PipelineFailed.
const TypePipelineFailed event.Type = "pipeline.failed"

// PipelineFailed reports that a stage could not handle an event.
// Its single parent is the event whose handling failed.
type PipelineFailed struct {
	event.Header
	Stage      string     `json:"stage"`
	Message    string     `json:"message"`
	FailedType event.Type `json:"failed_type"`
}

// Type implements event.Event.
func (PipelineFailed) Type() event.Type { return TypePipelineFailed }

// NewPipelineFailed builds the failure report for cause. It gets its own id.
func NewPipelineFailed(stage string, cause *event.Enriched, err error) *PipelineFailed {
	return &PipelineFailed{
		Header:     event.NewHeader(event.CausedBy(cause.Event)),
		Stage:      stage,
		Message:    err.Error(),
		FailedType: cause.Type(),
	}
}
