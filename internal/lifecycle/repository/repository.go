package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	ErrForbidden = errors.New("row access denied")

	ErrInvalidTransition = errors.New("invalid status transition")
)

// StoreError keeps the backend code/message of an untranslated failure.
type StoreError struct {
	Code    string
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("store error %s: %s", e.Code, e.Message)
	}
	return "store error: " + e.Message
}

func (e *StoreError) Unwrap() error { return e.Err }

// Postgres SQLSTATE codes the lifecycle core interprets.
const (
	pgUniqueViolation       = "23505"
	pgInsufficientPrivilege = "42501"
)

// TranslateError maps driver errors onto ErrNotFound/ErrDuplicate/ErrForbidden/StoreError.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicate) || errors.Is(err, ErrForbidden) {
		return err
	}
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.Message)
		case pgInsufficientPrivilege:
			return fmt.Errorf("%w: %s", ErrForbidden, pgErr.Message)
		}
		return &StoreError{Code: pgErr.Code, Message: pgErr.Message, Err: err}
	}
	return &StoreError{Message: err.Error(), Err: err}
}

func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func paginate(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return (page - 1) * pageSize, pageSize
}

// Repositories 仓库集合
type Repositories struct {
	db *gorm.DB

	MaterialInput *MaterialInputRepository
	Processing    *ProcessingStepRepository
	Sample        *SampleRepository
	Container     *ContainerRepository
	Output        *OutputRepository
	Allocation    *AllocationRepository
	Order         *OrderRepository
	DeliveryNote  *DeliveryNoteRepository
	FlowEvent     *FlowEventRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:            db,
		MaterialInput: NewMaterialInputRepository(db),
		Processing:    NewProcessingStepRepository(db),
		Sample:        NewSampleRepository(db),
		Container:     NewContainerRepository(db),
		Output:        NewOutputRepository(db),
		Allocation:    NewAllocationRepository(db),
		Order:         NewOrderRepository(db),
		DeliveryNote:  NewDeliveryNoteRepository(db),
		FlowEvent:     NewFlowEventRepository(db),
	}
}

// Transaction runs fn with a repository set bound to one database transaction.
// Called on a set that is already inside a transaction it opens a savepoint, so a
// failing fn rolls back only its own writes.
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
