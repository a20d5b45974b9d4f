package builtin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleHTML = `<!doctype html><html><head><title>Powers of two</title></head>
<body><article><h1>Powers of two</h1>
<p>Two raised to the tenth power is 1024. This paragraph is long enough that the
readability extractor keeps it as the main content of the page, which it needs to
do for the test to see the text it expects in the extracted output.</p>
<p>See <a href="https://example.com/more">more examples</a> for details.</p>
</article></body></html>`

func fetchResult(t *testing.T, out string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	return m
}

func TestWebFetch_HTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	out, err := WebFetch(0, srv.Client()).Invoke(context.Background(), map[string]any{"url": srv.URL})
	require.NoError(t, err)

	m := fetchResult(t, out)
	assert.Equal(t, "readability", m["extractor"])
	assert.EqualValues(t, 200, m["status"])
	assert.Contains(t, m["text"], "1024")
}

func TestWebFetch_JSONAndTruncation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"values":[` + strings.Repeat("1,", 200) + `1]}`))
	}))
	defer srv.Close()

	out, err := WebFetch(0, srv.Client()).Invoke(context.Background(), map[string]any{
		"url":      srv.URL,
		"maxChars": 100,
	})
	require.NoError(t, err)

	m := fetchResult(t, out)
	assert.Equal(t, "json", m["extractor"])
	assert.Equal(t, true, m["truncated"])
	assert.EqualValues(t, 100, m["length"])
}

func TestWebFetch_RejectsNonHTTP(t *testing.T) {
	_, err := WebFetch(0, nil).Invoke(context.Background(), map[string]any{"url": "file:///etc/passwd"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only http/https")
}

func TestWebFetch_ExtractModeEnum(t *testing.T) {
	_, err := WebFetch(0, nil).Invoke(context.Background(), map[string]any{
		"url":         "https://example.com",
		"extractMode": "pdf",
	})
	require.Error(t, err)
}
