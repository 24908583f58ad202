package octoprint

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"octowatch/internal/printers"
)

func TestFetchCurrentJob(t *testing.T) {
	tests := []struct {
		name           string
		status         int
		body           string
		wantState      *string
		wantCompletion *float64
		wantCode       int
		wantAuth       bool
	}{
		{
			name:           "state and completion",
			status:         http.StatusOK,
			body:           `{"state":"Printing","progress":{"completion":42.5}}`,
			wantState:      strPtr("Printing"),
			wantCompletion: floatPtr(42.5),
		},
		{
			name:      "null completion",
			status:    http.StatusOK,
			body:      `{"state":"Operational","progress":{"completion":null}}`,
			wantState: strPtr("Operational"),
		},
		{
			name:   "missing state",
			status: http.StatusOK,
			body:   `{}`,
		},
		{
			name:     "forbidden",
			status:   http.StatusForbidden,
			body:     `{"error":"Invalid API key"}`,
			wantCode: http.StatusForbidden,
			wantAuth: true,
		},
		{
			name:     "server error",
			status:   http.StatusInternalServerError,
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/api/job", r.URL.Path)
				require.Equal(t, "secret", r.Header.Get("X-Api-Key"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(time.Second)
			info, err := client.FetchCurrentJob(context.Background(), printers.Printer{Name: "MK4", URL: server.URL + "/", APIKey: "secret"})
			if tt.wantCode != 0 {
				require.Error(t, err)
				require.Equal(t, tt.wantCode, StatusCode(err))
				require.Equal(t, tt.wantAuth, IsAuthError(err))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantState, info.State)
			require.Equal(t, tt.wantCompletion, info.Completion)
		})
	}
}

func TestFetchCurrentJobSendsBasicAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "alice", user)
		require.Equal(t, "hunter2", pass)
		_, _ = w.Write([]byte(`{"state":"Paused"}`))
	}))
	defer server.Close()

	info, err := NewClient(time.Second).FetchCurrentJob(context.Background(), printers.Printer{
		URL: server.URL, Username: "alice", Password: "hunter2",
	})
	require.NoError(t, err)
	require.Equal(t, "Paused", *info.State)
}

func TestFetchCurrentJobDecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[1,2,3]`))
	}))
	defer server.Close()

	_, err := NewClient(time.Second).FetchCurrentJob(context.Background(), printers.Printer{URL: server.URL})
	require.Error(t, err)
	require.Zero(t, StatusCode(err))
}

func TestFetchCurrentJobTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(time.Second).FetchCurrentJob(context.Background(), printers.Printer{URL: url})
	require.Error(t, err)
	var statusErr *StatusError
	require.False(t, errors.As(err, &statusErr))
}

func TestLoginIsPassive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/login", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"name":"_api","session":"abc"}`))
	}))
	defer server.Close()

	session, err := NewClient(time.Second).Login(context.Background(), printers.Printer{URL: server.URL, APIKey: "k"})
	require.NoError(t, err)
	require.Equal(t, Session{Name: "_api", Session: "abc"}, session)
}

func TestMissingURL(t *testing.T) {
	_, err := NewClient(time.Second).FetchCurrentJob(context.Background(), printers.Printer{Name: "MK4"})
	require.ErrorContains(t, err, "has no url")
}

func strPtr(v string) *string     { return &v }
func floatPtr(v float64) *float64 { return &v }
