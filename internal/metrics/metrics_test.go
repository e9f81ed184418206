package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AlouiLouai/takwira/internal/model"
	"github.com/AlouiLouai/takwira/internal/store"
	"github.com/AlouiLouai/takwira/internal/store/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func scrape(t *testing.T, rec *Recorder) string {
	t.Helper()
	srv := httptest.NewServer(rec.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestRecorderExposesHTTPMetrics(t *testing.T) {
	rec := NewRecorder()
	rec.RecordHTTPRequest(http.MethodGet, "/api/players", http.StatusOK, 5*time.Millisecond)
	rec.RecordHTTPRequest(http.MethodGet, "/api/players", http.StatusOK, 7*time.Millisecond)
	rec.FeedClientOpened()
	rec.SetSessions(3)

	out := scrape(t, rec)
	assert.Contains(t, out, `takwira_http_requests_total{method="GET",route="/api/players",status="200"} 2`)
	assert.Contains(t, out, `takwira_http_request_duration_seconds_count{method="GET",route="/api/players"} 2`)
	assert.Contains(t, out, "takwira_feed_clients 1")
	assert.Contains(t, out, "takwira_board_sessions 3")
	assert.Contains(t, out, "go_goroutines")
}

func TestNilRecorderIsSilent(t *testing.T) {
	var rec *Recorder
	assert.NotPanics(t, func() {
		rec.RecordHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
		rec.RecordStoreOp(OpUpsert, time.Millisecond, nil)
		rec.RecordChange()
		rec.FeedClientOpened()
		rec.FeedClientClosed()
		rec.SetSessions(1)
	})

	gw := store.NewMemoryGateway(store.MemoryOptions{})
	assert.Same(t, gw, InstrumentGateway(gw, nil))
}

func TestInstrumentedGatewayCountsResults(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	next := mocks.NewMockGateway(ctrl)
	rec := NewRecorder()
	gw := InstrumentGateway(next, rec)

	next.EXPECT().FetchAll(gomock.Any()).Return(nil, nil)
	next.EXPECT().Delete(gomock.Any(), model.TeamA, 2).Return(errors.New("boom"))
	next.EXPECT().UpdatePosition(gomock.Any(), model.TeamB, 1, 10.0, 20.0).Return(nil)
	next.EXPECT().CheckReadiness(gomock.Any()).Return(store.Readiness{ErrorKind: store.ErrorConnection})

	_, err := gw.FetchAll(ctx)
	require.NoError(t, err)
	assert.Error(t, gw.Delete(ctx, model.TeamA, 2))
	require.NoError(t, gw.UpdatePosition(ctx, model.TeamB, 1, 10, 20))
	assert.False(t, gw.CheckReadiness(ctx).IsReady)

	out := scrape(t, rec)
	assert.Contains(t, out, `takwira_store_operations_total{op="fetch_all",result="ok"} 1`)
	assert.Contains(t, out, `takwira_store_operations_total{op="delete",result="error"} 1`)
	assert.Contains(t, out, `takwira_store_operations_total{op="update_position",result="ok"} 1`)
	assert.Contains(t, out, `takwira_store_operations_total{op="readiness",result="error"} 1`)
}

func TestInstrumentedSubscribeCountsChanges(t *testing.T) {
	ctx := context.Background()
	rec := NewRecorder()
	gw := InstrumentGateway(store.NewMemoryGateway(store.MemoryOptions{}), rec)

	got := make(chan struct{}, 1)
	sub, err := gw.Subscribe(ctx, func() {
		select {
		case got <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	_, err = gw.Upsert(ctx, store.Row{Name: "Messi", AvatarSeed: "s", TeamID: model.TeamA, SlotIndex: 0})
	require.NoError(t, err)

	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("no change notification")
	}
	assert.Contains(t, scrape(t, rec), "takwira_store_change_notifications_total 1")
}
