package quality

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/memengine/internal/errs"
)

func TestRemoteTier_ScoresFromEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req remoteScoreRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "c", req.Content)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(remoteScoreResponse{Score: 0.8})
	}))
	defer srv.Close()

	tier := NewRemoteTier(RemoteTierConfig{Name: "remote_a", Endpoint: srv.URL}, nil)
	score, err := tier.Score(context.Background(), ScoreRequest{Content: "c"})
	require.NoError(t, err)
	require.Equal(t, 0.8, score)
	require.Equal(t, "remote_a", tier.Name())
}

func TestRemoteTier_NoEndpointUnavailable(t *testing.T) {
	tier := NewRemoteTier(RemoteTierConfig{Name: "remote_b"}, nil)
	_, err := tier.Score(context.Background(), ScoreRequest{Content: "c"})
	require.ErrorIs(t, err, errs.ErrEvaluatorUnavailable)
}

func TestRemoteTier_ServerErrorUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tier := NewRemoteTier(RemoteTierConfig{Endpoint: srv.URL}, nil)
	_, err := tier.Score(context.Background(), ScoreRequest{Content: "c"})
	require.ErrorIs(t, err, errs.ErrEvaluatorUnavailable)
}

func TestRemoteTier_RateLimitedUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	tier := NewRemoteTier(RemoteTierConfig{Endpoint: srv.URL}, nil)
	_, err := tier.Score(context.Background(), ScoreRequest{Content: "c"})
	require.ErrorIs(t, err, errs.ErrEvaluatorUnavailable)
}
