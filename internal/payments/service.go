package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/learnhub/learnhub/internal/platform/httpx"
	"github.com/learnhub/learnhub/internal/rbac"
	"github.com/learnhub/learnhub/internal/shared"
)

// minorUnitsPerMajor converts major currency units to provider minor units.
const minorUnitsPerMajor = 100

// Service handles payment listing, checkout and reconciliation.
type Service struct {
	repo        Repository
	gateway     Gateway
	engine      *rbac.Engine
	auditor     shared.Auditor
	validator   *httpx.Validator
	logger      *slog.Logger
	printer     *message.Printer
	currency    currency.Unit
	concurrency int
	now         func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithCurrency sets the ISO 4217 currency used in product descriptions.
func WithCurrency(code string) Option {
	return func(s *Service) {
		if unit, err := currency.ParseISO(strings.ToUpper(code)); err == nil {
			s.currency = unit
		}
	}
}

// WithReconcileConcurrency bounds parallel provider lookups during
// reconciliation.
func WithReconcileConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds a Service.
func NewService(repo Repository, gateway Gateway, engine *rbac.Engine, auditor shared.Auditor, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if auditor == nil {
		auditor = shared.NopAuditor{}
	}
	s := &Service{
		repo:        repo,
		gateway:     gateway,
		engine:      engine,
		auditor:     auditor,
		validator:   httpx.NewValidator(),
		logger:      logger,
		printer:     message.NewPrinter(language.English),
		currency:    currency.MustParseISO("RUB"),
		concurrency: 4,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Gate applies the collection-level rule for action on payments.
func (s *Service) Gate(actor rbac.Actor, action rbac.Action) error {
	return s.engine.Authorize(actor, action, rbac.KindPayment, nil)
}

// List returns payments matching filter. Reserved to moderators.
func (s *Service) List(ctx context.Context, actor rbac.Actor, filter Filter, page shared.PageRequest) (shared.Page[Payment], error) {
	if err := s.engine.Authorize(actor, rbac.ActionList, rbac.KindPayment, nil); err != nil {
		return shared.Page[Payment]{}, err
	}
	items, total, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return shared.Page[Payment]{}, fmt.Errorf("list payments: %w", err)
	}
	return shared.NewPage(page, total, items), nil
}

// Create opens a provider checkout for a course or a lesson and records the
// pending payment. Nothing is stored when the provider fails.
func (s *Service) Create(ctx context.Context, actor rbac.Actor, in CreateInput) (Payment, error) {
	if err := s.engine.Authorize(actor, rbac.ActionCreate, rbac.KindPayment, nil); err != nil {
		return Payment{}, err
	}
	if err := s.validator.Struct(in); err != nil {
		return Payment{}, err
	}
	if (in.Course == nil) == (in.Lesson == nil) {
		return Payment{}, httpx.NewFieldError("course", "exactly one of course or lesson must be set")
	}

	name, err := s.repo.TargetName(ctx, in.Course, in.Lesson)
	if err != nil {
		return Payment{}, err
	}

	ref, err := s.gateway.CreateProduct(ctx, s.describe(in, name), in.Amount*minorUnitsPerMajor)
	if err != nil {
		return Payment{}, s.upstream("create product", err)
	}
	link, sessionID, err := s.gateway.CreateCheckoutSession(ctx, ref)
	if err != nil {
		return Payment{}, s.upstream("create checkout session", err)
	}

	userID := actor.ID
	created, err := s.repo.Create(ctx, Payment{
		UserID:    &userID,
		CourseID:  in.Course,
		LessonID:  in.Lesson,
		Amount:    in.Amount,
		Method:    in.Method,
		SessionID: &sessionID,
		Link:      &link,
	})
	if err != nil {
		return Payment{}, fmt.Errorf("create payment: %w", err)
	}
	s.logger.Info("payment checkout opened",
		slog.Int64("payment_id", created.ID),
		slog.Int64("user_id", userID),
		slog.String("session_id", sessionID),
	)
	return created, nil
}

// ReconcilePending polls the provider for every undated payment and dates
// those whose checkout completed. Payments without a session, or whose session
// the provider no longer knows, are skipped. Provider failures are counted and
// left for the next run; storage failures abort the run.
func (s *Service) ReconcilePending(ctx context.Context) (ReconcileReport, error) {
	pending, err := s.repo.ListPending(ctx)
	if err != nil {
		return ReconcileReport{}, fmt.Errorf("list pending payments: %w", err)
	}

	var skipped, completed, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, p := range pending {
		if p.SessionID == nil || *p.SessionID == "" {
			skipped.Add(1)
			continue
		}
		g.Go(func() error {
			session, err := s.gateway.GetSession(gctx, *p.SessionID)
			if err != nil {
				failed.Add(1)
				s.logger.Warn("poll checkout session",
					slog.Int64("payment_id", p.ID),
					slog.Any("error", err),
				)
				return nil
			}
			if session == nil || session.Status != SessionStatusComplete {
				skipped.Add(1)
				return nil
			}
			marked, err := s.repo.MarkPaid(gctx, p.ID, s.now().UTC())
			if err != nil {
				return fmt.Errorf("mark payment %d paid: %w", p.ID, err)
			}
			if !marked {
				skipped.Add(1)
				return nil
			}
			completed.Add(1)
			s.audit(gctx, shared.NewAuditLog(0, shared.AuditComplete, "payment", p.ID, map[string]any{
				"session_id": *p.SessionID,
			}))
			return nil
		})
	}
	err = g.Wait()

	report := ReconcileReport{
		Pending:   len(pending),
		Skipped:   int(skipped.Load()),
		Completed: int(completed.Load()),
		Failed:    int(failed.Load()),
	}
	s.logger.Info("payments reconciled",
		slog.Int("pending", report.Pending),
		slog.Int("completed", report.Completed),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed),
	)
	return report, err
}

func (s *Service) describe(in CreateInput, name string) string {
	kind := "Course"
	if in.Lesson != nil {
		kind = "Lesson"
	}
	return s.printer.Sprintf("%s %q (%v)", kind, name, s.currency.Amount(in.Amount))
}

func (s *Service) upstream(op string, err error) error {
	if errors.Is(err, httpx.ErrUpstreamUnavailable) {
		return err
	}
	s.logger.Error("payment gateway failure", slog.String("op", op), slog.Any("error", err))
	return fmt.Errorf("%w: %s: %v", httpx.ErrUpstreamUnavailable, op, err)
}

func (s *Service) audit(ctx context.Context, entry shared.AuditLog) {
	if err := s.auditor.Record(ctx, entry); err != nil {
		s.logger.Warn("record audit log",
			slog.String("entity", entry.Entity),
			slog.String("entity_id", entry.EntityID),
			slog.Any("error", err),
		)
	}
}
