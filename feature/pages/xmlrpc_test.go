package pages

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"content-sync/core/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okResponse = `<?xml version="1.0"?>
<methodResponse><params><param><value><boolean>1</boolean></value></param></params></methodResponse>`

const faultResponse = `<?xml version="1.0"?>
<methodResponse><fault><value><struct>
<member><name>faultCode</name><value><int>404</int></value></member>
<member><name>faultString</name><value><string>Page not found</string></value></member>
</struct></value></fault></methodResponse>`

func TestXMLRPCClient_EditPage(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "alice", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "text/xml", r.Header.Get("Content-Type"))
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		_, _ = w.Write([]byte(okResponse))
	}))
	defer srv.Close()

	client := newXMLRPCClient(srv.URL, "alice", "secret", srv.Client())
	err := client.EditPage(context.Background(), PageEdit{
		PageID:       42,
		Title:        "Q&A",
		Description:  "https://example.com/podcast/",
		IsNavigation: true,
	})
	require.NoError(t, err)

	assert.Contains(t, body, "<methodName>microblog.editPage</methodName>")
	assert.Contains(t, body, "<int>42</int>")
	assert.Contains(t, body, "<string>alice</string>")
	assert.Contains(t, body, "<name>title</name><value><string>Q&amp;A</string></value>")
	assert.Contains(t, body, "<name>is_navigation</name><value><boolean>1</boolean></value>")
}

func TestXMLRPCClient_Fault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(faultResponse))
	}))
	defer srv.Close()

	client := newXMLRPCClient(srv.URL, "alice", "secret", srv.Client())
	err := client.EditPage(context.Background(), PageEdit{PageID: 1})
	require.Error(t, err)

	var fault *FaultError
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, 404, fault.Code)
	assert.Equal(t, "Page not found", fault.Message)
	assert.True(t, IsFault(err))
	assert.False(t, retry.Classify(err).Retryable())
}

func TestXMLRPCClient_HTTPErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   retry.Kind
	}{
		{"unauthorized", http.StatusUnauthorized, "nope", retry.KindAuth},
		{"unavailable", http.StatusServiceUnavailable, "later", retry.KindNetwork},
		{"malformed", http.StatusOK, "<html>", retry.KindData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := newXMLRPCClient(srv.URL, "alice", "secret", srv.Client())
			err := client.EditPage(context.Background(), PageEdit{PageID: 1})
			require.Error(t, err)
			assert.Equal(t, tt.kind, retry.Classify(err))
		})
	}
}

func TestNewClient_MissingCredentials(t *testing.T) {
	_, err := NewClient(Config{Endpoint: "http://localhost", Username: "alice"})
	assert.ErrorIs(t, err, retry.ErrMissingCredentials)
}
