package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var labelBytes = []byte("\xff\xd8fake-jpeg")

// newServer serves the photo under /file and answers annotate calls with respond
func newServer(t *testing.T, respond func(w http.ResponseWriter, req annotateRequest)) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/file", func(w http.ResponseWriter, r *http.Request) {
		w.Write(labelBytes)
	})
	mux.HandleFunc("/v1/images:annotate", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))

		var req annotateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		respond(w, req)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestExtractText_ReturnsFullText(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, req annotateRequest) {
		require.Len(t, req.Requests, 1)
		assert.Equal(t, base64.StdEncoding.EncodeToString(labelBytes), req.Requests[0].Image.Content)
		assert.Equal(t, []feature{{Type: "TEXT_DETECTION"}}, req.Requests[0].Features)
		w.Write([]byte(`{"responses":[{"fullTextAnnotation":{"text":"YONKA\nRéf. 12345\n"}}]}`))
	})

	client := NewClient(srv.URL+"/v1/images:annotate", "secret", time.Second, zap.NewNop())
	text, err := client.ExtractText(context.Background(), srv.URL+"/file")
	require.NoError(t, err)
	assert.Equal(t, "YONKA\nRéf. 12345\n", text)
}

func TestExtractText_NoTextIsEmpty(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, req annotateRequest) {
		w.Write([]byte(`{"responses":[{}]}`))
	})

	client := NewClient(srv.URL+"/v1/images:annotate", "secret", time.Second, zap.NewNop())
	text, err := client.ExtractText(context.Background(), srv.URL+"/file")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtractText_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		respond func(w http.ResponseWriter, req annotateRequest)
		wantErr error
	}{
		{
			name: "status",
			respond: func(w http.ResponseWriter, req annotateRequest) {
				http.Error(w, "quota exceeded", http.StatusTooManyRequests)
			},
			wantErr: ErrInvalidResponse,
		},
		{
			name: "per image error",
			respond: func(w http.ResponseWriter, req annotateRequest) {
				w.Write([]byte(`{"responses":[{"error":{"code":3,"message":"Bad image data."}}]}`))
			},
			wantErr: ErrInvalidResponse,
		},
		{
			name: "malformed body",
			respond: func(w http.ResponseWriter, req annotateRequest) {
				w.Write([]byte(`{"responses":`))
			},
			wantErr: ErrInvalidResponse,
		},
		{
			name: "empty responses",
			respond: func(w http.ResponseWriter, req annotateRequest) {
				w.Write([]byte(`{"responses":[]}`))
			},
			wantErr: ErrInvalidResponse,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newServer(t, tc.respond)
			client := NewClient(srv.URL+"/v1/images:annotate", "secret", time.Second, zap.NewNop())
			_, err := client.ExtractText(context.Background(), srv.URL+"/file")
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestExtractText_DownloadFailure(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, req annotateRequest) {
		t.Error("annotate must not be called")
	})

	client := NewClient(srv.URL+"/v1/images:annotate", "secret", time.Second, zap.NewNop())
	_, err := client.ExtractText(context.Background(), srv.URL+"/missing")
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestNewClient_DefaultEndpoint(t *testing.T) {
	client := NewClient("", "key", time.Second, zap.NewNop())
	assert.Equal(t, DefaultEndpoint, client.endpoint)
}
