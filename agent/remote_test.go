package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2679373161/AI-Trader/gate"
	"github.com/2679373161/AI-Trader/ledger"
	"github.com/2679373161/AI-Trader/market"
)

func remoteFixtureView(t *testing.T) *gate.View {
	t.Helper()

	s := market.NewStore()
	px := decimal.RequireFromString("150.25")
	require.NoError(t, s.Add(market.PriceRecord{
		Symbol: "AAPL", Date: day1, Open: px, High: px, Low: px, Close: px,
	}))
	return gate.New(s, day1).View()
}

func TestRemoteDeciderStep(t *testing.T) {
	t.Parallel()

	var got stepRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/step", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stepResponse{Terminated: true})
	}))
	defer srv.Close()

	d := NewRemote("remote-1", srv.URL, []string{"AAPL", "MSFT"}, time.Second)

	res, err := d.Step(context.Background(), StepContext{
		Agent:    "remote-1",
		Date:     day1,
		Market:   remoteFixtureView(t),
		Position: ledger.NewPosition(decimal.NewFromInt(10_000)),
	})
	require.NoError(t, err)
	assert.True(t, res.Terminated)

	assert.Equal(t, "remote-1", got.Agent)
	assert.Equal(t, "2024-01-02", got.Date)
	assert.Equal(t, "10000", got.Cash)
	// MSFT has no history, so only AAPL is quoted
	require.Len(t, got.Quotes, 1)
	assert.Equal(t, "AAPL", got.Quotes[0].Symbol)
	assert.Equal(t, "150.25", got.Quotes[0].Open)
}

func TestRemoteDeciderServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	d := NewRemote("remote-1", srv.URL, []string{"AAPL"}, time.Second)
	_, err := d.Step(context.Background(), StepContext{
		Agent:    "remote-1",
		Date:     day1,
		Market:   remoteFixtureView(t),
		Position: ledger.NewPosition(decimal.NewFromInt(1)),
	})
	assert.Error(t, err)
}

func TestRemoteDeciderTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	d := NewRemote("remote-1", srv.URL, []string{"AAPL"}, 20*time.Millisecond)
	_, err := d.Step(context.Background(), StepContext{
		Agent:    "remote-1",
		Date:     day1,
		Market:   remoteFixtureView(t),
		Position: ledger.NewPosition(decimal.NewFromInt(1)),
	})
	assert.Error(t, err)
}
