package courses

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub/internal/rbac"
	_ "github.com/learnhub/learnhub/testing"
)

func newTestRouter(f *fixture) http.Handler {
	h := NewHandler(nil, f.svc)
	r := chi.NewRouter()
	r.Route("/courses", h.MountCourseRoutes)
	r.Route("/lessons", h.MountLessonRoutes)
	r.Route("/subscriptions", h.MountSubscriptionRoutes)
	return r
}

func do(t *testing.T, router http.Handler, actor rbac.Actor, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	req = req.WithContext(rbac.ContextWithActor(req.Context(), actor))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHandlerStatusMapping(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)
	course := f.repo.addCourse("Go", ptr(alice.ID), longAgo)
	lesson := f.repo.addLesson("Intro", ptr(course.ID), ptr(alice.ID))
	lessonPath := "/lessons/" + strconv.FormatInt(lesson.ID, 10)

	assert.Equal(t, http.StatusUnauthorized, do(t, router, anonymous, http.MethodGet, "/courses", "").Code)
	assert.Equal(t, http.StatusForbidden, do(t, router, bob, http.MethodGet, lessonPath, "").Code)
	assert.Equal(t, http.StatusOK, do(t, router, alice, http.MethodGet, lessonPath, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, alice, http.MethodGet, "/courses/abc", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, alice, http.MethodGet, "/courses?page=0", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, alice, http.MethodPost, "/courses", "{not json").Code)
	assert.Equal(t, http.StatusNoContent, do(t, router, alice, http.MethodDelete, lessonPath, "").Code)
}

func TestHandlerCourseListPage(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)
	for _, name := range []string{"a", "b", "c"} {
		f.repo.addCourse(name, ptr(alice.ID), longAgo)
	}

	rr := do(t, router, bob, http.MethodGet, "/courses?page=2&page_size=2", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Count      int      `json:"count"`
		TotalPages int      `json:"total_pages"`
		Results    []Course `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Count)
	assert.Equal(t, 2, body.TotalPages)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "c", body.Results[0].Name)
}

func TestHandlerCreateLessonRejectsForeignLink(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)
	course := f.repo.addCourse("Go", ptr(alice.ID), longAgo)

	payload := `{"name":"Spam","course":` + strconv.FormatInt(course.ID, 10) + `,"video_url":"http://evil.com/x"}`
	rr := do(t, router, alice, http.MethodPost, "/lessons", payload)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), `"field":"video_url"`)
	assert.Contains(t, rr.Body.String(), "evil.com")
}

func TestHandlerToggle(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)
	course := f.repo.addCourse("Go", ptr(alice.ID), longAgo)
	payload := `{"course":` + strconv.FormatInt(course.ID, 10) + `}`

	rr := do(t, router, bob, http.MethodPost, "/subscriptions/toggle", payload)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"subscribed":true,"message":"subscription added"}`, rr.Body.String())

	rr = do(t, router, bob, http.MethodPost, "/subscriptions/toggle", payload)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"subscribed":false,"message":"subscription removed"}`, rr.Body.String())

	rr = do(t, router, bob, http.MethodPost, "/subscriptions/toggle", `{"course":424242}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerAnonymousMalformedRequestIsUnauthorized(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)

	cases := []struct {
		name, method, path, body string
	}{
		{"create course bad json", http.MethodPost, "/courses", "{not json"},
		{"list courses bad page", http.MethodGet, "/courses?page=abc", ""},
		{"get course bad id", http.MethodGet, "/courses/xyz", ""},
		{"patch course bad id", http.MethodPatch, "/courses/xyz", "{"},
		{"delete course bad id", http.MethodDelete, "/courses/xyz", ""},
		{"list lessons bad page", http.MethodGet, "/lessons?page=abc", ""},
		{"get lesson bad id", http.MethodGet, "/lessons/xyz", ""},
		{"create lesson bad json", http.MethodPost, "/lessons", "]"},
		{"put lesson bad id", http.MethodPut, "/lessons/xyz", "{}"},
		{"delete lesson bad id", http.MethodDelete, "/lessons/xyz", ""},
		{"toggle bad json", http.MethodPost, "/subscriptions/toggle", "["},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, router, anonymous, tc.method, tc.path, tc.body)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		})
	}
}
