package wiki

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, status int, body string) (*httptest.Server, *string) {
	t.Helper()

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv, &gotPath
}

func TestLookupSuccess(t *testing.T) {
	srv, path := newServer(t, http.StatusOK,
		`{"title":"Elon Musk","extract":"Elon Musk is a businessman. He founded SpaceX.","lang":"en"}`)

	c := NewClient(srv.Client(), Config{Endpoint: srv.URL + "/page/summary/"})

	s, ok := c.Lookup(context.Background(), "elon musk")
	require.True(t, ok)
	assert.Equal(t, Summary{Name: "Elon Musk", Extract: "Elon Musk is a businessman"}, s)
	assert.Equal(t, "/page/summary/elon%20musk", *path)
}

func TestLookupAbsent(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "not found", status: http.StatusNotFound, body: `{"title":"Not found."}`},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`},
		{name: "invalid json", status: http.StatusOK, body: `{"title":`},
		{name: "missing extract", status: http.StatusOK, body: `{"title":"Bill Gates"}`},
		{name: "missing title", status: http.StatusOK, body: `{"extract":"Someone."}`},
		{name: "empty extract", status: http.StatusOK, body: `{"title":"Bill Gates","extract":""}`},
		{name: "non string title", status: http.StatusOK, body: `{"title":42,"extract":"x."}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newServer(t, tc.status, tc.body)
			c := NewClient(srv.Client(), Config{Endpoint: srv.URL})

			s, ok := c.Lookup(context.Background(), "bill gates")
			assert.False(t, ok)
			assert.Equal(t, Summary{}, s)
		})
	}
}

func TestLookupNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	c := NewClient(nil, Config{Endpoint: endpoint, Timeout: time.Second})

	_, ok := c.Lookup(context.Background(), "steve jobs")
	assert.False(t, ok)
}

func TestLookupTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), Config{Endpoint: srv.URL, Timeout: 50 * time.Millisecond})

	_, ok := c.Lookup(context.Background(), "jeff bezos")
	assert.False(t, ok)
}

func TestFirstSentence(t *testing.T) {
	assert.Equal(t, "Brian Lara is a cricketer", FirstSentence("Brian Lara is a cricketer. He played for the West Indies."))
	assert.Equal(t, "no period here", FirstSentence("no period here"))
	assert.Equal(t, "", FirstSentence(".leading"))
	assert.Equal(t, "Warren E", FirstSentence("Warren E. Buffett is an investor."))
}
