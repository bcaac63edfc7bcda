package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/acquisition-engine/internal/source"
	"github.com/sells-group/acquisition-engine/pkg/jina"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// stubScraper serves canned pages keyed by URL.
type stubScraper struct {
	name     string
	pages    map[string]string
	err      error
	disabled bool
	calls    int
}

func (s *stubScraper) Name() string           { return s.name }
func (s *stubScraper) Supports(_ string) bool { return !s.disabled }

func (s *stubScraper) Scrape(_ context.Context, url string) (*source.PageContent, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	text, ok := s.pages[url]
	if !ok {
		return nil, errors.New("not found")
	}
	return &source.PageContent{URL: url, Text: text}, nil
}

func TestProviderFetchesScopePages(t *testing.T) {
	primary := &stubScraper{name: "primary", pages: map[string]string{
		"https://acme.example.com":       "Acme builds gym software.",
		"https://acme.example.com/about": "Founded in 2016. Team of 45.",
	}}
	p := NewProvider(primary)

	pages, err := p.Fetch(context.Background(), "https://acme.example.com/", "about")
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "Acme builds gym software.", pages[0].Text)
	assert.Equal(t, "Founded in 2016. Team of 45.", pages[1].Text)
}

func TestProviderFallsThroughChain(t *testing.T) {
	failing := &stubScraper{name: "local_http", err: errors.New("blocked (cloudflare)")}
	backup := &stubScraper{name: "jina", pages: map[string]string{
		"https://acme.example.com/pricing": "$12,000 per year",
	}}
	p := NewProvider(failing, backup)

	pages, err := p.Fetch(context.Background(), "https://acme.example.com", "pricing")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "$12,000 per year", pages[0].Text)
	assert.Positive(t, failing.calls)
}

func TestProviderSkipsUnsupportedScraper(t *testing.T) {
	open := &stubScraper{name: "jina", disabled: true}
	backup := &stubScraper{name: "firecrawl", pages: map[string]string{
		"https://acme.example.com": "content here",
	}}
	p := NewProvider(open, backup)

	pages, err := p.Fetch(context.Background(), "https://acme.example.com", "")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Zero(t, open.calls)
}

func TestProviderErrorWhenAllPagesFail(t *testing.T) {
	failing := &stubScraper{name: "local_http", err: errors.New("status 500")}
	p := NewProvider(failing)

	_, err := p.Fetch(context.Background(), "https://acme.example.com", "about")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scope about")
}

func TestProviderPartialScopeSuccess(t *testing.T) {
	partial := &stubScraper{name: "primary", pages: map[string]string{
		"https://acme.example.com/pricing": "$500 per seat annually",
	}}
	p := NewProvider(partial)

	// /plans fails but /pricing succeeds; no error.
	pages, err := p.Fetch(context.Background(), "https://acme.example.com", "pricing")
	require.NoError(t, err)
	require.Len(t, pages, 1)
}

func TestLocalScraperExtractsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Acme Fitness</title><style>.x{}</style></head>
<body><nav>Home | About</nav><h1>Gym management software</h1>
<p>Founded in 2016, Acme serves 300 fitness clubs with scheduling &amp; billing.</p>
<footer>Copyright</footer></body></html>`))
	}))
	defer srv.Close()

	page, err := NewLocalScraper().Scrape(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Acme Fitness", page.Title)
	assert.Contains(t, page.Text, "Gym management software")
	assert.Contains(t, page.Text, "scheduling & billing")
	assert.NotContains(t, page.Text, "Home | About")
	assert.NotContains(t, page.Text, "<p>")
}

func TestLocalScraperRejectsErrorsAndBlocks(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr string
	}{
		{
			name: "http error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, strings.Repeat("server error ", 20), http.StatusInternalServerError)
			},
			wantErr: "status 500",
		},
		{
			name: "captcha block",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(strings.Repeat("x", 200) + "please solve this reCAPTCHA to continue"))
			},
			wantErr: "blocked (captcha)",
		},
		{
			name: "empty page",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html></html>"))
			},
			wantErr: "empty page",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewLocalScraper().Scrape(context.Background(), srv.URL)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDetectBlockCloudflareHeaders(t *testing.T) {
	resp := &http.Response{StatusCode: 403, Header: http.Header{}}
	resp.Header.Set("cf-ray", "abc123")

	blocked, blockType := DetectBlock(resp, []byte("denied"))
	assert.True(t, blocked)
	assert.Equal(t, BlockCloudflare, blockType)
}

func TestDetectBlockJSShell(t *testing.T) {
	resp := &http.Response{StatusCode: 200, Header: http.Header{}}
	body := []byte(`<html><noscript>This site requires JavaScript</noscript></html>`)

	blocked, blockType := DetectBlock(resp, body)
	assert.True(t, blocked)
	assert.Equal(t, BlockJSShell, blockType)
}

func TestDetectBlockCleanPage(t *testing.T) {
	resp := &http.Response{StatusCode: 200, Header: http.Header{}}
	blocked, _ := DetectBlock(resp, []byte("<html><body>Welcome to Acme</body></html>"))
	assert.False(t, blocked)
}

// fakeJina scripts Read responses.
type fakeJina struct {
	content string
	err     error
	calls   int
}

func (f *fakeJina) Read(_ context.Context, targetURL string) (*jina.ReadResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &jina.ReadResponse{
		Code: 200,
		Data: jina.ReadData{URL: targetURL, Title: "Acme", Content: f.content},
	}, nil
}

func (f *fakeJina) Search(context.Context, string) (*jina.SearchResponse, error) {
	return nil, errors.New("not implemented")
}

func TestJinaScraperSuccess(t *testing.T) {
	client := &fakeJina{content: strings.Repeat("Acme builds vertical SaaS for gyms. ", 5)}
	j := NewJinaScraper(client)

	page, err := j.Scrape(context.Background(), "https://acme.example.com")
	require.NoError(t, err)
	assert.Equal(t, "Acme", page.Title)
	assert.Contains(t, page.Text, "vertical SaaS")
}

func TestJinaScraperRejectsThinContent(t *testing.T) {
	j := NewJinaScraper(&fakeJina{content: "tiny"})

	_, err := j.Scrape(context.Background(), "https://acme.example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable content")
}

func TestJinaCircuitBreakerOpensAfterFailures(t *testing.T) {
	client := &fakeJina{err: errors.New("upstream 502")}
	j := NewJinaScraper(client)

	for i := 0; i < 3; i++ {
		_, err := j.Scrape(context.Background(), "https://acme.example.com")
		require.Error(t, err)
	}

	assert.False(t, j.Supports("https://acme.example.com"))
	_, err := j.Scrape(context.Background(), "https://acme.example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker open")
	assert.Equal(t, 3, client.calls)
}
