package users

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/learnhub/learnhub/internal/platform/httpx"
	"github.com/learnhub/learnhub/internal/shared"
)

type memRepo struct {
	users       map[int64]User
	payments    map[int64][]Payment
	nextID      int64
	paymentsFor [][]int64
	cutoffs     []time.Time
}

func newMemRepo() *memRepo {
	return &memRepo{users: map[int64]User{}, payments: map[int64][]Payment{}}
}

func (r *memRepo) add(u User) User {
	r.nextID++
	u.ID = r.nextID
	u.IsActive = true
	r.users[u.ID] = u
	return u
}

func (r *memRepo) emailTaken(email string, except int64) bool {
	for id, u := range r.users {
		if id != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (r *memRepo) Create(ctx context.Context, u User) (User, error) {
	if r.emailTaken(u.Email, 0) {
		return User{}, ErrEmailTaken
	}
	return r.add(u), nil
}

func (r *memRepo) Get(ctx context.Context, id int64) (User, error) {
	u, ok := r.users[id]
	if !ok {
		return User{}, fmt.Errorf("user: %w", httpx.ErrNotFound)
	}
	return u, nil
}

func (r *memRepo) List(ctx context.Context, page shared.PageRequest) ([]User, int, error) {
	ids := make([]int64, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	var out []User
	for i, id := range ids {
		if i >= page.Offset() && len(out) < page.Limit() {
			out = append(out, r.users[id])
		}
	}
	return out, len(ids), nil
}

func (r *memRepo) Update(ctx context.Context, id int64, updates map[string]interface{}) (User, error) {
	u, err := r.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if v, ok := updates["email"]; ok {
		if r.emailTaken(v.(string), id) {
			return User{}, ErrEmailTaken
		}
		u.Email = v.(string)
	}
	if v, ok := updates["password"]; ok {
		u.PasswordHash = v.(string)
	}
	if v, ok := updates["phone"]; ok {
		s := v.(string)
		u.Phone = &s
	}
	if v, ok := updates["city"]; ok {
		s := v.(string)
		u.City = &s
	}
	if v, ok := updates["first_name"]; ok {
		u.FirstName = v.(string)
	}
	if v, ok := updates["last_name"]; ok {
		u.LastName = v.(string)
	}
	r.users[id] = u
	return u, nil
}

func (r *memRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.users[id]; !ok {
		return fmt.Errorf("user %d: %w", id, httpx.ErrNotFound)
	}
	delete(r.users, id)
	return nil
}

func (r *memRepo) PaymentsForUsers(ctx context.Context, userIDs []int64) (map[int64][]Payment, error) {
	r.paymentsFor = append(r.paymentsFor, slices.Clone(userIDs))
	out := make(map[int64][]Payment)
	for _, id := range userIDs {
		if ps, ok := r.payments[id]; ok {
			out[id] = ps
		}
	}
	return out, nil
}

func (r *memRepo) DeactivateInactive(ctx context.Context, lastLoginBefore time.Time) (int64, error) {
	r.cutoffs = append(r.cutoffs, lastLoginBefore)
	var n int64
	for id, u := range r.users {
		if u.IsActive && !u.IsStaff && u.LastLogin != nil && u.LastLogin.Before(lastLoginBefore) {
			u.IsActive = false
			r.users[id] = u
			n++
		}
	}
	return n, nil
}

type recordingAuditor struct {
	logs []shared.AuditLog
}

func (a *recordingAuditor) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}
