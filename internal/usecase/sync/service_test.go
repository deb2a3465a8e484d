package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tickerdex/internal/domain"
	domidx "github.com/kailas-cloud/tickerdex/internal/domain/index"
	"github.com/kailas-cloud/tickerdex/internal/domain/ticker"
)

type mockStore struct {
	pushFn   func(symbol string) domidx.SyncReport
	pullFn   func(symbol string) domidx.SyncReport
	loadFn   func(symbol string) (domidx.Index, bool, error)
	localFn  func() ([]ticker.Symbol, error)
	remoteFn func() ([]ticker.Symbol, error)

	pushes int
	pulls  int
}

func (m *mockStore) SyncToRemote(_ context.Context, symbol string) domidx.SyncReport {
	m.pushes++
	return m.pushFn(symbol)
}

func (m *mockStore) SyncFromRemote(_ context.Context, symbol string) domidx.SyncReport {
	m.pulls++
	return m.pullFn(symbol)
}

func (m *mockStore) Load(_ context.Context, symbol string) (domidx.Index, bool, error) {
	return m.loadFn(symbol)
}

func (m *mockStore) LocalTickers() ([]ticker.Symbol, error) { return m.localFn() }

func (m *mockStore) RemoteTickers(_ context.Context) ([]ticker.Symbol, error) { return m.remoteFn() }

var fastRetry = Config{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

func okReport(symbol string, dir domidx.Direction) domidx.SyncReport {
	return domidx.SyncReport{Ticker: ticker.Symbol(symbol), Direction: dir}
}

func transportReport(symbol string, dir domidx.Direction) domidx.SyncReport {
	r := okReport(symbol, dir)
	r.Mapping.Err = fmt.Errorf("upload: %w", domain.ErrRemoteTransport)
	return r
}

func missingReport(symbol string) domidx.SyncReport {
	r := okReport(symbol, domidx.DirectionPull)
	r.Index.Err = domain.ErrRemoteArtifactMissing
	r.Mapping.Err = domain.ErrRemoteArtifactMissing
	return r
}

func sampleIndex(t *testing.T) domidx.Index {
	t.Helper()
	idx, err := domidx.New([][]float32{{1, 0}}, []string{"revenue grew"})
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	return idx
}

func TestPush_RetriesTransportFailure(t *testing.T) {
	st := &mockStore{}
	st.pushFn = func(symbol string) domidx.SyncReport {
		if st.pushes == 1 {
			return transportReport(symbol, domidx.DirectionPush)
		}
		return okReport(symbol, domidx.DirectionPush)
	}

	r := New(st, fastRetry, zap.NewNop()).Push(context.Background(), "MSFT")
	if !r.OK() {
		t.Fatalf("expected success, got %v", r.Err())
	}
	if st.pushes != 2 {
		t.Errorf("expected 2 attempts, got %d", st.pushes)
	}
}

func TestPush_AttemptsBounded(t *testing.T) {
	st := &mockStore{pushFn: func(symbol string) domidx.SyncReport {
		return transportReport(symbol, domidx.DirectionPush)
	}}

	r := New(st, fastRetry, zap.NewNop()).Push(context.Background(), "MSFT")
	if !r.HasTransportError() {
		t.Fatal("expected last report to carry the transport error")
	}
	if st.pushes != 3 {
		t.Errorf("expected 3 attempts, got %d", st.pushes)
	}
}

func TestPush_MissingLocalNotRetried(t *testing.T) {
	st := &mockStore{pushFn: func(symbol string) domidx.SyncReport {
		r := okReport(symbol, domidx.DirectionPush)
		r.Index.Err = domain.ErrArtifactMissing
		return r
	}}

	r := New(st, fastRetry, zap.NewNop()).Push(context.Background(), "MSFT")
	if !errors.Is(r.Index.Err, domain.ErrArtifactMissing) {
		t.Errorf("expected ErrArtifactMissing, got %v", r.Index.Err)
	}
	if st.pushes != 1 {
		t.Errorf("expected a single attempt, got %d", st.pushes)
	}
}

func TestPull_RemoteMissingNotRetried(t *testing.T) {
	st := &mockStore{pullFn: missingReport}

	r := New(st, fastRetry, zap.NewNop()).Pull(context.Background(), "GOOG")
	if !r.RemoteMissing() {
		t.Errorf("expected remote missing, got %v", r.Err())
	}
	if st.pulls != 1 {
		t.Errorf("expected a single attempt, got %d", st.pulls)
	}
}

func TestEnsure_LocalHit(t *testing.T) {
	idx := sampleIndex(t)
	st := &mockStore{
		loadFn: func(string) (domidx.Index, bool, error) { return idx, true, nil },
		pullFn: func(string) domidx.SyncReport {
			t.Fatal("pull must not run when local data exists")
			return domidx.SyncReport{}
		},
	}

	ok, err := New(st, fastRetry, zap.NewNop()).Ensure(context.Background(), "msft")
	if err != nil || !ok {
		t.Fatalf("expected (true, nil), got (%v, %v)", ok, err)
	}
}

func TestEnsure_PullsWhenAbsent(t *testing.T) {
	idx := sampleIndex(t)
	st := &mockStore{}
	st.loadFn = func(string) (domidx.Index, bool, error) {
		if st.pulls == 0 {
			return domidx.Index{}, false, nil
		}
		return idx, true, nil
	}
	st.pullFn = func(symbol string) domidx.SyncReport { return okReport(symbol, domidx.DirectionPull) }

	ok, err := New(st, fastRetry, zap.NewNop()).Ensure(context.Background(), "MSFT")
	if err != nil || !ok {
		t.Fatalf("expected (true, nil), got (%v, %v)", ok, err)
	}
	if st.pulls != 1 {
		t.Errorf("expected one pull, got %d", st.pulls)
	}
}

func TestEnsure_RemoteMissing(t *testing.T) {
	st := &mockStore{
		loadFn: func(string) (domidx.Index, bool, error) { return domidx.Index{}, false, nil },
		pullFn: missingReport,
	}

	ok, err := New(st, fastRetry, zap.NewNop()).Ensure(context.Background(), "GOOG")
	if err != nil || ok {
		t.Fatalf("expected (false, nil), got (%v, %v)", ok, err)
	}
}

func TestEnsure_CorruptLocalPulls(t *testing.T) {
	idx := sampleIndex(t)
	st := &mockStore{}
	st.loadFn = func(string) (domidx.Index, bool, error) {
		if st.pulls == 0 {
			return domidx.Index{}, false, domain.ErrCorruptArtifact
		}
		return idx, true, nil
	}
	st.pullFn = func(symbol string) domidx.SyncReport { return okReport(symbol, domidx.DirectionPull) }

	ok, err := New(st, fastRetry, zap.NewNop()).Ensure(context.Background(), "MSFT")
	if err != nil || !ok {
		t.Fatalf("expected (true, nil), got (%v, %v)", ok, err)
	}
}

func TestEnsure_TransportFailure(t *testing.T) {
	st := &mockStore{
		loadFn: func(string) (domidx.Index, bool, error) { return domidx.Index{}, false, nil },
		pullFn: func(symbol string) domidx.SyncReport { return transportReport(symbol, domidx.DirectionPull) },
	}

	_, err := New(st, fastRetry, zap.NewNop()).Ensure(context.Background(), "MSFT")
	if !errors.Is(err, domain.ErrRemoteTransport) {
		t.Fatalf("expected ErrRemoteTransport, got %v", err)
	}
}

func TestEnsure_InvalidTicker(t *testing.T) {
	st := &mockStore{}
	_, err := New(st, fastRetry, zap.NewNop()).Ensure(context.Background(), "  ")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPullAll(t *testing.T) {
	st := &mockStore{
		remoteFn: func() ([]ticker.Symbol, error) { return []ticker.Symbol{"AAPL", "GOOG"}, nil },
		pullFn: func(symbol string) domidx.SyncReport {
			if symbol == "GOOG" {
				return missingReport(symbol)
			}
			return okReport(symbol, domidx.DirectionPull)
		},
	}

	reports, err := New(st, fastRetry, zap.NewNop()).PullAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	if !reports["AAPL"].OK() {
		t.Errorf("AAPL should succeed: %v", reports["AAPL"].Err())
	}
	if !reports["GOOG"].RemoteMissing() {
		t.Errorf("GOOG should be missing remotely")
	}
}

func TestPullAll_ListError(t *testing.T) {
	st := &mockStore{remoteFn: func() ([]ticker.Symbol, error) {
		return nil, fmt.Errorf("scan: %w", domain.ErrRemoteTransport)
	}}

	if _, err := New(st, fastRetry, zap.NewNop()).PullAll(context.Background()); !errors.Is(err, domain.ErrRemoteTransport) {
		t.Fatalf("expected ErrRemoteTransport, got %v", err)
	}
}

func TestPushAll(t *testing.T) {
	st := &mockStore{
		localFn: func() ([]ticker.Symbol, error) { return []ticker.Symbol{"MSFT"}, nil },
		pushFn:  func(symbol string) domidx.SyncReport { return okReport(symbol, domidx.DirectionPush) },
	}

	reports, err := New(st, fastRetry, zap.NewNop()).PushAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reports) != 1 || st.pushes != 1 {
		t.Fatalf("expected one push, got %d reports and %d pushes", len(reports), st.pushes)
	}
}

func TestConfigDefaults(t *testing.T) {
	c := Config{}.withDefaults()
	if c.MaxAttempts != DefaultMaxAttempts || c.InitialInterval != DefaultInitialInterval || c.MaxInterval != DefaultMaxInterval {
		t.Errorf("unexpected defaults: %+v", c)
	}
}
