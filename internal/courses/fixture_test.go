package courses

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub/internal/rbac"
)

const threshold = 4 * time.Hour

var (
	t0        = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	longAgo   = t0.Add(-10 * time.Hour)
	anonymous = rbac.Anonymous()
	alice     = rbac.NewUserActor(1)
	bob       = rbac.NewUserActor(2)
	moderator = rbac.NewUserActor(3, rbac.RoleModerator)
)

type fixture struct {
	repo     *memRepo
	notifier *fakeNotifier
	clock    *fakeClock
	auditor  *recordingAuditor
	outcomes []string
	workflow *Workflow
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     newMemRepo(),
		notifier: &fakeNotifier{},
		clock:    &fakeClock{now: t0},
		auditor:  &recordingAuditor{},
	}
	f.workflow = NewWorkflow(threshold, f.notifier, nil,
		WithClock(f.clock.Now),
		WithOutcomeObserver(func(o string) { f.outcomes = append(f.outcomes, o) }),
	)
	f.svc = NewService(f.repo, rbac.NewEngine(), f.workflow, f.auditor, nil)
	return f
}

// mutate runs the workflow for courseID the way a service does.
func (f *fixture) mutate(t *testing.T, courseID int64) {
	t.Helper()
	var pending *Notification
	err := f.repo.WithTx(context.Background(), func(ctx context.Context, tx Repository) error {
		var err error
		pending, err = f.workflow.OnMutated(ctx, tx, courseID)
		return err
	})
	require.NoError(t, err)
	f.workflow.Dispatch(context.Background(), pending)
}
