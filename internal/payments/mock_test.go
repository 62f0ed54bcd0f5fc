package payments

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/learnhub/learnhub/internal/platform/httpx"
	"github.com/learnhub/learnhub/internal/shared"
)

var errBoom = errors.New("boom")

func ptr[T any](v T) *T { return &v }

type memRepo struct {
	mu       sync.Mutex
	payments map[int64]Payment
	courses  map[int64]string
	lessons  map[int64]string
	nextID   int64
	markErr  error
}

func newMemRepo() *memRepo {
	return &memRepo{
		payments: map[int64]Payment{},
		courses:  map[int64]string{1: "Go basics"},
		lessons:  map[int64]string{7: "Goroutines"},
	}
}

func (r *memRepo) add(p Payment) Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = r.nextID
	r.payments[p.ID] = p
	return p
}

func (r *memRepo) sorted() []Payment {
	ids := make([]int64, 0, len(r.payments))
	for id := range r.payments {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]Payment, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.payments[id])
	}
	return out
}

func (r *memRepo) List(ctx context.Context, filter Filter, page shared.PageRequest) ([]Payment, int, error) {
	var matched []Payment
	for _, p := range r.sorted() {
		if filter.CourseID != nil && (p.CourseID == nil || *p.CourseID != *filter.CourseID) {
			continue
		}
		if filter.LessonID != nil && (p.LessonID == nil || *p.LessonID != *filter.LessonID) {
			continue
		}
		if filter.Method != "" && p.Method != filter.Method {
			continue
		}
		matched = append(matched, p)
	}
	end := min(page.Offset()+page.Limit(), len(matched))
	if page.Offset() >= len(matched) {
		return nil, len(matched), nil
	}
	return matched[page.Offset():end], len(matched), nil
}

func (r *memRepo) Create(ctx context.Context, p Payment) (Payment, error) {
	return r.add(p), nil
}

func (r *memRepo) TargetName(ctx context.Context, courseID, lessonID *int64) (string, error) {
	if courseID != nil {
		if name, ok := r.courses[*courseID]; ok {
			return name, nil
		}
		return "", httpx.NewFieldError("course", "object does not exist")
	}
	if name, ok := r.lessons[*lessonID]; ok {
		return name, nil
	}
	return "", httpx.NewFieldError("lesson", "object does not exist")
}

func (r *memRepo) ListPending(ctx context.Context) ([]Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Payment
	for _, p := range r.sorted() {
		if p.Date == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memRepo) MarkPaid(ctx context.Context, id int64, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.markErr != nil {
		return false, r.markErr
	}
	p := r.payments[id]
	if p.Date != nil {
		return false, nil
	}
	p.Date = &at
	p.Link = nil
	r.payments[id] = p
	return true, nil
}

type fakeGateway struct {
	mu         sync.Mutex
	products   []string
	amounts    []int64
	sessions   map[string]*Session
	productErr error
	sessionErr error
	getErr     map[string]error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: map[string]*Session{}, getErr: map[string]error{}}
}

func (g *fakeGateway) CreateProduct(ctx context.Context, name string, amountMinor int64) (ProductRef, error) {
	if g.productErr != nil {
		return ProductRef{}, g.productErr
	}
	g.products = append(g.products, name)
	g.amounts = append(g.amounts, amountMinor)
	return ProductRef{ProductID: "prod_1", PriceID: "price_1"}, nil
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, ref ProductRef) (string, string, error) {
	if g.sessionErr != nil {
		return "", "", g.sessionErr
	}
	return "https://checkout.example/cs_1", "cs_1", nil
}

func (g *fakeGateway) GetSession(ctx context.Context, id string) (*Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.getErr[id]; err != nil {
		return nil, err
	}
	return g.sessions[id], nil
}

type recordingAuditor struct {
	mu   sync.Mutex
	logs []shared.AuditLog
}

func (a *recordingAuditor) Record(ctx context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}
