package courses

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub/internal/platform/httpx"
)

func TestYoutubeOnlyRejectsForeignHost(t *testing.T) {
	err := lessonContent.Validate(map[string]string{
		"video_url": "https://youtube.com/watch?v=x http://evil.com/x",
	})
	require.Error(t, err)

	var fe *httpx.FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "video_url", fe.Field)
	assert.Contains(t, fe.Reason, "evil.com")
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestYoutubeOnlyAccepts(t *testing.T) {
	values := []string{
		"plain text mentioning evil.com and www.example.org",
		"see https://youtu.be/abc and http://ytimg.com/x.jpg",
		"watch https://youtube.com",
		"intro http://youtube.ru then more",
	}
	for _, value := range values {
		assert.NoError(t, lessonContent.Validate(map[string]string{"description": value}), value)
	}
}

func TestYoutubeOnlyHostTokenIncludesQuery(t *testing.T) {
	// The host token runs to the next space or slash only.
	assert.Error(t, lessonContent.Validate(map[string]string{"description": "https://youtube.com?v=1"}))
}

func TestYoutubeOnlyMarkerIsCaseInsensitive(t *testing.T) {
	err := lessonContent.Validate(map[string]string{"description": "HtTpS://evil.com/path"})
	var fe *httpx.FieldError
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe.Reason, "evil.com")
}

func TestYoutubeOnlyMatchesHostsExactly(t *testing.T) {
	assert.Error(t, lessonContent.Validate(map[string]string{"video_url": "https://www.youtube.com/watch?v=1"}))
}

func TestYoutubeOnlyIgnoresUndesignatedFields(t *testing.T) {
	assert.NoError(t, courseContent.Validate(map[string]string{
		"preview": "http://evil.com/preview.png",
	}))
}

func TestYoutubeOnlyReportsFirstFieldByName(t *testing.T) {
	err := lessonContent.Validate(map[string]string{
		"video_url":   "http://bad-two.com",
		"description": "http://bad-one.com",
	})
	var fe *httpx.FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "description", fe.Field)
}
