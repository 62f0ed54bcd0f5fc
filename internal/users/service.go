package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/learnhub/learnhub/internal/platform/httpx"
	"github.com/learnhub/learnhub/internal/rbac"
	"github.com/learnhub/learnhub/internal/shared"
)

// Service handles user business logic.
type Service struct {
	repo       Repository
	engine     *rbac.Engine
	auditor    shared.Auditor
	validator  *httpx.Validator
	logger     *slog.Logger
	now        func() time.Time
	bcryptCost int
}

// NewService builds Service instance.
func NewService(repo Repository, engine *rbac.Engine, auditor shared.Auditor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if auditor == nil {
		auditor = shared.NopAuditor{}
	}
	return &Service{
		repo:       repo,
		engine:     engine,
		auditor:    auditor,
		validator:  httpx.NewValidator(),
		logger:     logger,
		now:        time.Now,
		bcryptCost: bcrypt.DefaultCost,
	}
}

// Gate applies the collection-level rule for action on user profiles.
func (s *Service) Gate(actor rbac.Actor, action rbac.Action) error {
	return s.engine.Authorize(actor, action, rbac.KindUserProfile, nil)
}

// Register creates an account. Only anonymous visitors may register.
func (s *Service) Register(ctx context.Context, actor rbac.Actor, in RegisterInput) (OwnerView, error) {
	if err := s.engine.Authorize(actor, rbac.ActionCreate, rbac.KindUserProfile, nil); err != nil {
		return OwnerView{}, err
	}
	if err := s.validator.Struct(in); err != nil {
		return OwnerView{}, err
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return OwnerView{}, err
	}
	created, err := s.repo.Create(ctx, User{
		Email:        NormalizeEmail(in.Email),
		PasswordHash: hash,
		Phone:        in.Phone,
		City:         in.City,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
	})
	if err != nil {
		return OwnerView{}, err
	}
	s.logger.Info("user registered", slog.Int64("user_id", created.ID))
	return project(rbac.ViewOwner, created, nil).(OwnerView), nil
}

// Get renders a profile in the tier the actor is entitled to.
func (s *Service) Get(ctx context.Context, actor rbac.Actor, id int64) (any, error) {
	if err := s.engine.Authorize(actor, rbac.ActionRetrieve, rbac.KindUserProfile, nil); err != nil {
		return nil, err
	}
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Authorize(actor, rbac.ActionRetrieve, rbac.KindUserProfile, u.Resource()); err != nil {
		return nil, err
	}
	views, err := s.render(ctx, actor, []User{u})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// List renders a page of profiles, each in the actor's tier for it.
func (s *Service) List(ctx context.Context, actor rbac.Actor, page shared.PageRequest) (shared.Page[any], error) {
	if err := s.engine.Authorize(actor, rbac.ActionList, rbac.KindUserProfile, nil); err != nil {
		return shared.Page[any]{}, err
	}
	items, total, err := s.repo.List(ctx, page)
	if err != nil {
		return shared.Page[any]{}, fmt.Errorf("list users: %w", err)
	}
	views, err := s.render(ctx, actor, items)
	if err != nil {
		return shared.Page[any]{}, err
	}
	return shared.NewPage(page, total, views), nil
}

// Update edits the actor's own profile. With partial false the email must be
// supplied.
func (s *Service) Update(ctx context.Context, actor rbac.Actor, id int64, in UpdateInput, partial bool) (OwnerView, error) {
	if err := s.engine.Authorize(actor, rbac.ActionUpdate, rbac.KindUserProfile, nil); err != nil {
		return OwnerView{}, err
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return OwnerView{}, err
	}
	if err := s.engine.Authorize(actor, rbac.ActionUpdate, rbac.KindUserProfile, current.Resource()); err != nil {
		return OwnerView{}, err
	}
	if err := s.validator.Struct(in); err != nil {
		return OwnerView{}, err
	}
	if !partial && in.Email == nil {
		return OwnerView{}, httpx.NewFieldError("email", "this field is required")
	}

	updates := make(map[string]interface{})
	if in.Email != nil {
		updates["email"] = NormalizeEmail(*in.Email)
	}
	if in.Password != nil {
		hash, err := s.hash(*in.Password)
		if err != nil {
			return OwnerView{}, err
		}
		updates["password"] = hash
	}
	if in.Phone != nil {
		updates["phone"] = *in.Phone
	}
	if in.City != nil {
		updates["city"] = *in.City
	}
	if in.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*in.LastName)
	}
	updated, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		return OwnerView{}, err
	}
	views, err := s.render(ctx, actor, []User{updated})
	if err != nil {
		return OwnerView{}, err
	}
	return views[0].(OwnerView), nil
}

// Delete removes an account. Reserved to moderators.
func (s *Service) Delete(ctx context.Context, actor rbac.Actor, id int64) error {
	if err := s.engine.Authorize(actor, rbac.ActionDelete, rbac.KindUserProfile, nil); err != nil {
		return err
	}
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.engine.Authorize(actor, rbac.ActionDelete, rbac.KindUserProfile, u.Resource()); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.auditor.Record(ctx, shared.NewAuditLog(actor.ID, shared.AuditDelete, "user", id, map[string]any{"email": u.Email})); err != nil {
		s.logger.Warn("record audit log", slog.Int64("user_id", id), slog.Any("error", err))
	}
	return nil
}

// DeactivateInactive disables accounts idle for longer than idle.
func (s *Service) DeactivateInactive(ctx context.Context, idle time.Duration) (int64, error) {
	cutoff := s.now().UTC().Add(-idle)
	n, err := s.repo.DeactivateInactive(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deactivate inactive users: %w", err)
	}
	return n, nil
}

func (s *Service) render(ctx context.Context, actor rbac.Actor, items []User) ([]any, error) {
	kinds := make([]rbac.ViewKind, len(items))
	var withPayments []int64
	for i, u := range items {
		kinds[i] = rbac.SelectView(actor, u.ID)
		if needsPayments(kinds[i]) {
			withPayments = append(withPayments, u.ID)
		}
	}
	payments, err := s.repo.PaymentsForUsers(ctx, withPayments)
	if err != nil {
		return nil, fmt.Errorf("user payments: %w", err)
	}
	out := make([]any, len(items))
	for i, u := range items {
		out[i] = project(kinds[i], u, payments[u.ID])
	}
	return out, nil
}

func (s *Service) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", httpx.NewFieldError("password", "ensure this field has no more than 72 bytes")
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// NormalizeEmail trims the address and lowercases its domain part.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return email
	}
	return local + "@" + strings.ToLower(domain)
}
