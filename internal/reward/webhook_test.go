package reward

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ranked-ladder/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookClient_Award(t *testing.T) {
	var (
		got     awardRequest
		idemKey string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		idemKey = r.Header.Get("Idempotency-Key")
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewWebhookClient(srv.URL, zerolog.Nop())
	ev := domain.ProgressionEvent{ID: "ev1", PlayerID: "p1", Type: domain.EventPromotion, FromTier: "bronze", ToTier: "silver"}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Award(ctx, "p1", ev))

	assert.Equal(t, "p1", got.PlayerID)
	assert.Equal(t, "silver", got.Event.ToTier)
	assert.Equal(t, "ev1", idemKey)
}

func TestWebhookClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewWebhookClient(srv.URL, zerolog.Nop())
	err := c.Award(context.Background(), "p1", domain.ProgressionEvent{ID: "ev1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestLogAwarder(t *testing.T) {
	assert.NoError(t, NewLogAwarder(zerolog.Nop()).Award(context.Background(), "p1", domain.ProgressionEvent{}))
}
