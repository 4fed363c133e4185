package testutils

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Browser drives a handler over real HTTP with a cookie jar. Redirects are
// not followed so tests can assert on them.
type Browser struct {
	t      *testing.T
	server *httptest.Server
	client *http.Client
}

type Response struct {
	Code     int
	Body     string
	Location string
	Header   http.Header
}

func NewBrowser(t *testing.T, handler http.Handler) *Browser {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &Browser{
		t:      t,
		server: server,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *Browser) URL(path string) string {
	return b.server.URL + path
}

func (b *Browser) Get(path string) *Response {
	b.t.Helper()
	resp, err := b.client.Get(b.URL(path))
	require.NoError(b.t, err)
	return b.read(resp)
}

func (b *Browser) Post(path string, form url.Values) *Response {
	b.t.Helper()
	resp, err := b.client.PostForm(b.URL(path), form)
	require.NoError(b.t, err)
	return b.read(resp)
}

func (b *Browser) read(resp *http.Response) *Response {
	b.t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return &Response{
		Code:     resp.StatusCode,
		Body:     string(body),
		Location: resp.Header.Get("Location"),
		Header:   resp.Header,
	}
}

var tokenPattern = regexp.MustCompile(`token=([A-Za-z0-9_\-.]+)`)

// ExtractToken returns the token query parameter of the first link in body.
func ExtractToken(t *testing.T, body string) string {
	t.Helper()
	match := tokenPattern.FindStringSubmatch(body)
	require.Len(t, match, 2, "no token link in %q", body)
	return match[1]
}

// LinkPath returns the path and query of the first http(s) link in body.
func LinkPath(t *testing.T, body string) string {
	t.Helper()
	start := strings.Index(body, "http")
	require.GreaterOrEqual(t, start, 0, "no link in %q", body)
	end := strings.IndexAny(body[start:], " \n\"'<")
	if end < 0 {
		end = len(body) - start
	}
	u, err := url.Parse(body[start : start+end])
	require.NoError(t, err)
	return u.RequestURI()
}

var csrfPattern = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

// CSRFToken returns the hidden csrf_token field of a rendered form.
func CSRFToken(t *testing.T, body string) string {
	t.Helper()
	match := csrfPattern.FindStringSubmatch(body)
	require.Len(t, match, 2, "no csrf field in page")
	return match[1]
}
