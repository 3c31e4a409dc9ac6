package service

import (
	"context"
	"time"

	"github.com/bitfantasy/recytrack/internal/lifecycle/entity"
	"github.com/bitfantasy/recytrack/internal/lifecycle/repository"
	"github.com/bitfantasy/recytrack/internal/shared/idgen"
	"github.com/bitfantasy/recytrack/internal/shared/metrics"
	"go.uber.org/zap"
)

// Code prefixes handed to the identifier generator.
const (
	PrefixMaterialInput = "IN"
	PrefixProcessing    = "VRB"
	PrefixSample        = "PRB"
	PrefixOutput        = "OUT"
	PrefixDeliveryNote  = "LS"
	PrefixOrder         = "ORD"
	PrefixContainer     = "CNT"
)

// Side-effect names reported in Result.SideEffects.
const (
	SideEffectAudit          = "audit"
	SideEffectContainerInUse = "container_in_use"
	SideEffectStepSample     = "step_sample_required"
)

// Deps collaborators shared by all lifecycle services.
type Deps struct {
	Repos   *repository.Repositories
	IDs     idgen.Generator
	Events  EventSink
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	// Now defaults to time.Now; tests pin it.
	Now func() time.Time
}

type base struct {
	repos   *repository.Repositories
	ids     idgen.Generator
	events  EventSink
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

func newBase(d Deps, name string) base {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return base{
		repos:   d.Repos,
		ids:     d.IDs,
		events:  d.Events,
		metrics: d.Metrics,
		logger:  logger.Named(name),
		now:     now,
	}
}

func (b *base) nextCode(ctx context.Context, prefix string) (string, error) {
	code, err := b.ids.Generate(ctx, prefix)
	b.metrics.IDGeneration(prefix, err == nil)
	if err != nil {
		b.logger.Error("id generation failed", zap.String("prefix", prefix), zap.Error(err))
		return "", idGenerationError(prefix, err)
	}
	return code, nil
}

// sideEffects is satisfied by *Result[T] of any T.
type sideEffects interface {
	record(name string, err error)
}

// audit appends event after the primary write committed. Failures are logged and recorded, never returned.
func (b *base) audit(ctx context.Context, res sideEffects, actor Actor, event *entity.MaterialFlowEvent) {
	event.OperatorID = actor.UserID
	var err error
	if b.events != nil {
		err = b.events.Append(ctx, event)
	}
	if err != nil {
		b.logger.Warn("append flow event failed",
			zap.String("event_type", event.EventType),
			zap.Error(err),
		)
	}
	b.metrics.SideEffect(SideEffectAudit, err == nil)
	res.record(SideEffectAudit, err)
}

func (b *base) sideEffect(res sideEffects, name string, err error, fields ...zap.Field) {
	if err != nil {
		b.logger.Warn("side effect failed", append(fields, zap.String("side_effect", name), zap.Error(err))...)
	}
	b.metrics.SideEffect(name, err == nil)
	res.record(name, err)
}

// Services 服务集合
type Services struct {
	Intake      *IntakeService
	Processing  *ProcessingService
	Sample      *SampleService
	Container   *ContainerService
	Output      *OutputService
	Allocation  *AllocationService
	Order       *OrderService
	Delivery    *DeliveryService
	Export      *ExportService
	Permissions PermissionResolver
}

func NewServices(d Deps, docs DocumentStore, perms PermissionResolver) *Services {
	if perms == nil {
		perms = StaticPermissions{}
	}
	return &Services{
		Intake:      NewIntakeService(d),
		Processing:  NewProcessingService(d),
		Sample:      NewSampleService(d),
		Container:   NewContainerService(d),
		Output:      NewOutputService(d),
		Allocation:  NewAllocationService(d),
		Order:       NewOrderService(d),
		Delivery:    NewDeliveryService(d, docs),
		Export:      NewExportService(d),
		Permissions: perms,
	}
}
