package backtest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource 按请求区间生成连续 K 线。
type fakeSource struct {
	mu    sync.Mutex
	calls int
	step  int64
	fail  bool
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeSource) Fetch(_ context.Context, req FetchRequest) ([]Candle, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fail {
		return nil, assert.AnError
	}
	var out []Candle
	for ts := req.Start; ts <= req.End && len(out) < req.Limit; ts += f.step {
		out = append(out, Candle{
			OpenTime:  ts,
			CloseTime: ts + f.step - 1,
			Open:      100,
			High:      101,
			Low:       99,
			Close:     100,
			Volume:    1,
		})
	}
	return out, nil
}

func newTestService(t *testing.T, src CandleSource) *Service {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc, err := NewService(ServiceConfig{
		Store:           store,
		Sources:         map[string]CandleSource{"binance": src},
		DefaultExchange: "binance",
		RateLimitPerMin: 60000,
	})
	require.NoError(t, err)
	return svc
}

func waitJob(t *testing.T, svc *Service, id string) FetchJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := svc.JobSnapshot(id)
		require.True(t, ok)
		switch job.Status {
		case JobStatusDone, JobStatusPartial, JobStatusFailed:
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job did not finish in time")
	return FetchJob{}
}

func TestServiceFetchFillsGaps(t *testing.T) {
	hour := int64(3600_000)
	src := &fakeSource{step: hour}
	svc := newTestService(t, src)

	job, err := svc.SubmitFetch(FetchParams{
		Symbol:    "BTCUSDT",
		Timeframe: "1h",
		Start:     hour,
		End:       10 * hour,
	})
	require.NoError(t, err)

	done := waitJob(t, svc, job.ID)
	assert.Equal(t, JobStatusDone, done.Status)
	assert.Empty(t, done.Missing)

	candles, err := svc.RangeCandles(context.Background(), "BTCUSDT", "1h", hour, 10*hour)
	require.NoError(t, err)
	assert.Len(t, candles, 10)
}

func TestServiceFetchAlreadyComplete(t *testing.T) {
	hour := int64(3600_000)
	src := &fakeSource{step: hour}
	svc := newTestService(t, src)

	params := FetchParams{Symbol: "BTCUSDT", Timeframe: "1h", Start: hour, End: 5 * hour}
	job, err := svc.SubmitFetch(params)
	require.NoError(t, err)
	waitJob(t, svc, job.ID)

	// 第二次提交无需再访问远端
	before := src.callCount()
	job2, err := svc.SubmitFetch(params)
	require.NoError(t, err)
	assert.Equal(t, JobStatusDone, job2.Status)
	assert.Equal(t, before, src.callCount())
}

func TestServiceFetchSourceError(t *testing.T) {
	hour := int64(3600_000)
	src := &fakeSource{step: hour, fail: true}
	svc := newTestService(t, src)

	job, err := svc.SubmitFetch(FetchParams{
		Symbol:    "BTCUSDT",
		Timeframe: "1h",
		Start:     hour,
		End:       3 * hour,
	})
	require.NoError(t, err)

	done := waitJob(t, svc, job.ID)
	assert.Equal(t, JobStatusFailed, done.Status)
}

func TestServiceRejectsBadInput(t *testing.T) {
	hour := int64(3600_000)
	svc := newTestService(t, &fakeSource{step: hour})

	_, err := svc.SubmitFetch(FetchParams{Timeframe: "1h", Start: 0, End: hour})
	assert.Error(t, err, "missing symbol")

	_, err = svc.SubmitFetch(FetchParams{Symbol: "BTCUSDT", Timeframe: "1w", Start: 0, End: hour})
	assert.Error(t, err, "bad timeframe")

	_, err = svc.SubmitFetch(FetchParams{Symbol: "BTCUSDT", Timeframe: "1h", Start: hour, End: hour})
	assert.Error(t, err, "empty range")
}
