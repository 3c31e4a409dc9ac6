package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bitfantasy/recytrack/internal/lifecycle/entity"
	"github.com/google/uuid"
)

// ContainerService 容器管理
type ContainerService struct {
	base
}

func NewContainerService(d Deps) *ContainerService {
	return &ContainerService{base: newBase(d, "container")}
}

type CreateContainerReq struct {
	Type     string `json:"type"`
	Location string `json:"location"`
}

func (s *ContainerService) Create(ctx context.Context, actor Actor, req CreateContainerReq) (*entity.Container, error) {
	if err := authorize(actor, containerRoles, "register containers"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Type) == "" {
		return nil, &Error{Kind: KindValidation, Message: "invalid input", Fields: []FieldError{{Field: "type", Message: "required"}}}
	}
	code, err := s.nextCode(ctx, PrefixContainer)
	if err != nil {
		return nil, err
	}
	c := &entity.Container{
		ID:          uuid.New().String(),
		ContainerID: code,
		Type:        strings.TrimSpace(req.Type),
		Location:    strings.TrimSpace(req.Location),
		Status:      entity.ContainerStatusEmpty,
		CreatedBy:   actor.UserID,
	}
	if err := s.repos.Container.Create(ctx, c); err != nil {
		return nil, storeError("container", err)
	}
	return c, nil
}

// UpdateStatus moves a container along the canonical status map.
func (s *ContainerService) UpdateStatus(ctx context.Context, actor Actor, id, status string) (Result[*entity.Container], error) {
	var res Result[*entity.Container]
	if err := authorize(actor, containerRoles, "change container status"); err != nil {
		return res, err
	}
	c, err := s.repos.Container.FindByID(ctx, id)
	if err != nil {
		return res, storeError("container", err)
	}
	if _, known := entity.ValidContainerTransitions[status]; !known {
		return res, validationError(fmt.Sprintf("unknown container status %q", status))
	}
	if !entity.CanTransition(entity.ValidContainerTransitions, c.Status, status) {
		return res, conflictError(fmt.Sprintf("container cannot move from %s to %s", c.Status, status))
	}
	from := c.Status
	if err := s.repos.Container.UpdateStatus(ctx, c.ID, status); err != nil {
		return res, storeError("container", err)
	}
	c.Status = status
	res.Primary = c

	s.audit(ctx, &res, actor, &entity.MaterialFlowEvent{
		EventType:        entity.EventContainerStatus,
		EventDescription: fmt.Sprintf("%s %s → %s", c.ContainerID, from, status),
		EventDetails:     details(map[string]interface{}{"from": from, "to": status}),
		ContainerID:      &c.ID,
	})
	return res, nil
}

func (s *ContainerService) Get(ctx context.Context, id string) (*entity.Container, error) {
	c, err := s.repos.Container.FindByID(ctx, id)
	if err != nil {
		return nil, storeError("container", err)
	}
	return c, nil
}

func (s *ContainerService) List(ctx context.Context, status string) ([]entity.Container, error) {
	items, err := s.repos.Container.List(ctx, status)
	if err != nil {
		return nil, storeError("container", err)
	}
	return items, nil
}
