package service

import (
	"context"
	"encoding/json"

	"github.com/bitfantasy/recytrack/internal/lifecycle/entity"
	"github.com/bitfantasy/recytrack/internal/lifecycle/repository"
	"github.com/bitfantasy/recytrack/internal/lifecycle/sse"
	"github.com/bitfantasy/recytrack/internal/shared/metrics"
	"gorm.io/datatypes"
)

// EventSink appends material flow events. Callers treat failures as best-effort.
type EventSink interface {
	Append(ctx context.Context, event *entity.MaterialFlowEvent) error
}

// FlowEventSink persists events and pushes them to live subscribers.
type FlowEventSink struct {
	repo    *repository.FlowEventRepository
	hub     *sse.Hub
	metrics *metrics.Metrics
}

func NewFlowEventSink(repo *repository.FlowEventRepository, hub *sse.Hub, m *metrics.Metrics) *FlowEventSink {
	return &FlowEventSink{repo: repo, hub: hub, metrics: m}
}

func (s *FlowEventSink) Append(ctx context.Context, event *entity.MaterialFlowEvent) error {
	if err := s.repo.Create(ctx, event); err != nil {
		return err
	}
	s.metrics.FlowEvent(event.EventType)
	s.hub.PublishFlowUpdate(sse.FlowUpdate{
		EventType:       event.EventType,
		MaterialInputID: deref(event.MaterialInputID),
		OutputID:        deref(event.OutputMaterialID),
		ReferenceID:     firstNonEmpty(event.SampleID, event.ProcessingStepID, event.DeliveryNoteID, event.ContainerID),
	})
	return nil
}

func details(v map[string]interface{}) datatypes.JSON {
	if len(v) == 0 {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func firstNonEmpty(ids ...*string) string {
	for _, id := range ids {
		if id != nil && *id != "" {
			return *id
		}
	}
	return ""
}

func strPtr(s string) *string {
	return &s
}
