package courses

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnMutatedDebouncesWithinThreshold(t *testing.T) {
	f := newFixture(t)
	course := f.repo.addCourse("Go Basics", ptr(alice.ID), longAgo)
	f.repo.subscribe(10, "ann@example.com", course.ID)

	f.mutate(t, course.ID)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, []string{"ann@example.com"}, f.notifier.sent[0].recipients)
	assert.Contains(t, f.notifier.sent[0].subject, "Go Basics")

	f.clock.Advance(time.Hour)
	f.mutate(t, course.ID)
	assert.Len(t, f.notifier.sent, 1, "second change within the threshold must stay silent")

	f.clock.Advance(threshold + time.Second)
	f.repo.subscribe(11, "ben@example.com", course.ID)
	f.mutate(t, course.ID)
	require.Len(t, f.notifier.sent, 2)
	assert.Equal(t, []string{"ann@example.com", "ben@example.com"}, f.notifier.sent[1].recipients)

	assert.Equal(t, []string{OutcomeSubmitted, OutcomeSuppressed, OutcomeSubmitted}, f.outcomes)
	assert.Equal(t, f.clock.now, f.repo.courses[course.ID].UpdatedAt)
}

func TestOnMutatedExactThresholdIsSuppressed(t *testing.T) {
	f := newFixture(t)
	course := f.repo.addCourse("Edge", ptr(alice.ID), t0.Add(-threshold))
	f.repo.subscribe(10, "ann@example.com", course.ID)

	f.mutate(t, course.ID)
	assert.Empty(t, f.notifier.sent)
	assert.Equal(t, []string{OutcomeSuppressed}, f.outcomes)
}

// Each change is compared with the stamp written by the change before it, so
// a steady stream of edits closer than the threshold never notifies even when
// the total time since the last email far exceeds it.
func TestOnMutatedBurstCurrentBehaviourUndercounts(t *testing.T) {
	f := newFixture(t)
	course := f.repo.addCourse("Busy", ptr(alice.ID), longAgo)
	f.repo.subscribe(10, "ann@example.com", course.ID)

	f.mutate(t, course.ID)
	require.Len(t, f.notifier.sent, 1)

	for range 4 {
		f.clock.Advance(3 * time.Hour)
		f.mutate(t, course.ID)
	}
	assert.Len(t, f.notifier.sent, 1)
	assert.Equal(t, t0.Add(12*time.Hour), f.repo.courses[course.ID].UpdatedAt)
}

func TestOnMutatedStampNeverMovesBackwards(t *testing.T) {
	f := newFixture(t)
	future := t0.Add(time.Hour)
	course := f.repo.addCourse("Skewed", ptr(alice.ID), future)

	f.mutate(t, course.ID)
	assert.Equal(t, future, f.repo.courses[course.ID].UpdatedAt)
	assert.Equal(t, []string{OutcomeSuppressed}, f.outcomes)
}

func TestDispatchSkipsCoursesWithoutSubscribers(t *testing.T) {
	f := newFixture(t)
	course := f.repo.addCourse("Lonely", ptr(alice.ID), longAgo)

	f.mutate(t, course.ID)
	assert.Empty(t, f.notifier.sent)
	assert.Equal(t, []string{OutcomeNoRecipients}, f.outcomes)
}

func TestNotifierFailureDoesNotFailMutation(t *testing.T) {
	f := newFixture(t)
	course := f.repo.addCourse("Go Basics", ptr(alice.ID), longAgo)
	f.repo.subscribe(10, "ann@example.com", course.ID)
	f.notifier.err = errBoom

	updated, err := f.svc.UpdateCourse(context.Background(), alice, course.ID, CourseInput{Name: ptr("Go Advanced")}, true)
	require.NoError(t, err)
	assert.Equal(t, "Go Advanced", updated.Name)
	assert.Equal(t, []string{OutcomeFailed}, f.outcomes)
}

func TestStampFailureAbortsMutation(t *testing.T) {
	f := newFixture(t)
	course := f.repo.addCourse("Go Basics", ptr(alice.ID), longAgo)
	f.repo.failStamp = errBoom

	_, err := f.svc.UpdateCourse(context.Background(), alice, course.ID, CourseInput{Name: ptr("Go Advanced")}, true)
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, "Go Basics", f.repo.courses[course.ID].Name, "content write must roll back with the stamp")
	assert.Empty(t, f.notifier.sent)
}
