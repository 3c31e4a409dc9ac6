package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/bitfantasy/recytrack/internal/lifecycle/entity"
	"github.com/bitfantasy/recytrack/internal/lifecycle/repository"
	"github.com/bitfantasy/recytrack/internal/lifecycle/testutil"
	"gorm.io/gorm"
)

var (
	admin      = Actor{UserID: "u-admin", Name: "Admin", Role: RoleAdmin}
	production = Actor{UserID: "u-prod", Name: "Jonas", Role: RoleProduction}
	qa         = Actor{UserID: "u-qa", Name: "Mira", Role: RoleQA}
	sales      = Actor{UserID: "u-sales", Name: "Tom", Role: RoleSales}
	logistics  = Actor{UserID: "u-log", Name: "Ana", Role: RoleLogistics}
	viewer     = Actor{UserID: "u-view", Name: "Guest", Role: RoleViewer}
)

var fixedNow = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

// recordingSink stores events through the real flow-event table and can be told to fail.
type recordingSink struct {
	mu     sync.Mutex
	inner  EventSink
	fail   bool
	events []string
}

func (s *recordingSink) Append(ctx context.Context, event *entity.MaterialFlowEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("audit store unavailable")
	}
	if err := s.inner.Append(ctx, event); err != nil {
		return err
	}
	s.events = append(s.events, event.EventType)
	return nil
}

func (s *recordingSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

type fakeDocs struct {
	objects map[string][]byte
	err     error
}

func (f *fakeDocs) Upload(_ context.Context, path string, data []byte, _ string) error {
	if f.err != nil {
		return f.err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[path] = data
	return nil
}

func (f *fakeDocs) Download(_ context.Context, path string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.objects[path]
	if !ok {
		return nil, errors.New("no such object: " + path)
	}
	return data, nil
}

func (f *fakeDocs) PublicURL(_ context.Context, path string, _ time.Duration) (string, error) {
	return "https://docs.example/" + path, nil
}

type testEnv struct {
	db    *gorm.DB
	repos *repository.Repositories
	ids   *testutil.FakeIDs
	sink  *recordingSink
	docs  *fakeDocs
	svc   *Services
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	env := &testEnv{
		db:    db,
		repos: repos,
		ids:   testutil.NewFakeIDs(),
		sink:  &recordingSink{inner: NewFlowEventSink(repos.FlowEvent, nil, nil)},
		docs:  &fakeDocs{},
	}
	env.svc = NewServices(Deps{
		Repos:  repos,
		IDs:    env.ids,
		Events: env.sink,
		Now:    func() time.Time { return fixedNow },
	}, env.docs, nil)
	return env
}

func (e *testEnv) seedInput(t *testing.T, weight float64) *entity.MaterialInput {
	t.Helper()
	res, err := e.svc.Intake.Create(context.Background(), admin, CreateMaterialInputReq{
		MaterialType: "PP regrind",
		WeightKg:     weight,
		Supplier:     "Kunststoff Nord",
	})
	if err != nil {
		t.Fatalf("seed input: %v", err)
	}
	return res.Primary
}

func (e *testEnv) seedOutput(t *testing.T, weight float64) *entity.OutputMaterial {
	t.Helper()
	res, err := e.svc.Output.Create(context.Background(), production, CreateOutputReq{
		OutputType: "granulate",
		BatchID:    "B1",
		WeightKg:   weight,
	})
	if err != nil {
		t.Fatalf("seed output: %v", err)
	}
	return res.Primary
}

func (e *testEnv) seedOrder(t *testing.T) *entity.Order {
	t.Helper()
	order, err := e.svc.Order.Create(context.Background(), sales, CreateOrderReq{
		CustomerName: "Recycling Süd GmbH",
		QuantityKg:   500,
	})
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func kg(v float64) json.Number {
	return json.Number(strconv.FormatFloat(v, 'f', -1, 64))
}

func (e *testEnv) allocate(output *entity.OutputMaterial, order *entity.Order, weight float64) (Result[*entity.BatchAllocation], error) {
	return e.svc.Allocation.Allocate(context.Background(), sales, AllocateReq{
		OutputMaterialID:  output.ID,
		OrderID:           order.ID,
		AllocatedWeightKg: kg(weight),
	})
}

func assertKind(t *testing.T, err error, want Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := KindOf(err); got != want {
		t.Fatalf("expected %s error, got %s: %v", want, got, err)
	}
}

func asError(err error, target **Error) bool {
	return errors.As(err, target)
}
