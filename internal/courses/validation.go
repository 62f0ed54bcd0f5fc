package courses

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/learnhub/learnhub/internal/platform/httpx"
)

var linkMarker = regexp.MustCompile(`(?i)https?://`)

// allowedVideoHosts lists hosts that may be linked from checked fields.
// Matching is exact: subdomains such as www.youtube.com are not listed.
var allowedVideoHosts = map[string]struct{}{
	"youtube.com":     {},
	"youtube.ru":      {},
	"googlevideo.com": {},
	"ytimg.com":       {},
	"youtu.be":        {},
}

// YoutubeOnly rejects links to hosts outside the video allow-list in the
// designated fields. It scans for http(s):// markers rather than parsing
// URLs, so malformed links pass as long as the host token is allowed.
type YoutubeOnly struct {
	fields map[string]struct{}
}

// NewYoutubeOnly checks only the named fields.
func NewYoutubeOnly(fields ...string) YoutubeOnly {
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return YoutubeOnly{fields: set}
}

// Validate inspects values keyed by field name. Fields are visited in name
// order so the reported field is deterministic.
func (p YoutubeOnly) Validate(values map[string]string) error {
	names := make([]string, 0, len(values))
	for name := range values {
		if _, ok := p.fields[name]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if host, ok := firstForeignHost(values[name]); !ok {
			return httpx.NewFieldError(name, fmt.Sprintf("only YouTube links are allowed, not %s", host))
		}
	}
	return nil
}

func firstForeignHost(text string) (string, bool) {
	parts := linkMarker.Split(text, -1)
	for _, rest := range parts[1:] {
		host := rest
		if i := strings.IndexAny(host, " /"); i >= 0 {
			host = host[:i]
		}
		if _, ok := allowedVideoHosts[host]; !ok {
			return host, false
		}
	}
	return "", true
}

var (
	courseContent = NewYoutubeOnly("description")
	lessonContent = NewYoutubeOnly("description", "video_url")
)

func presentFields(fields map[string]*string) map[string]string {
	out := make(map[string]string, len(fields))
	for name, v := range fields {
		if v != nil {
			out[name] = *v
		}
	}
	return out
}
