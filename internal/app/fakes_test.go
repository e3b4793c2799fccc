package app

import (
	"context"
	"sync"
	"time"

	"github.com/powerfm/livecast/internal/core"
	"github.com/powerfm/livecast/internal/domain"
)

// fakeSink records every event it receives, in delivery order.
type fakeSink struct {
	mu     sync.Mutex
	events []core.Event
	closed bool
}

func (s *fakeSink) TrySend(ev core.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *fakeSink) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *fakeSink) kinds() []core.EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.EventKind, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Kind())
	}
	return out
}

func (s *fakeSink) count(kind core.EventKind) int {
	n := 0
	for _, k := range s.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

func (s *fakeSink) last(kind core.EventKind) (core.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Kind() == kind {
			return s.events[i], true
		}
	}
	return nil, false
}

// fakeRelay answers every call successfully unless an error is installed,
// and counts room leaves per peer.
type fakeRelay struct {
	mu           sync.Mutex
	joinErr      error
	transportErr error
	joins        []string
	leaves       map[string]int
}

func newFakeRelay() *fakeRelay {
	return &fakeRelay{leaves: make(map[string]int)}
}

func (r *fakeRelay) leaveCount(peer string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaves[peer]
}

func (r *fakeRelay) JoinRoom(_ context.Context, _ domain.RoomID, peerID, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.joinErr != nil {
		return r.joinErr
	}
	r.joins = append(r.joins, peerID)
	return nil
}

func (r *fakeRelay) LeaveRoom(_ context.Context, _ domain.RoomID, peerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaves[peerID]++
	return nil
}

func (r *fakeRelay) RouterCapabilities(context.Context, domain.RoomID) (map[string]any, error) {
	return map[string]any{"codecs": []any{}}, nil
}

func (r *fakeRelay) CreateTransport(_ context.Context, _ domain.RoomID, peerID string, _ bool) (map[string]any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.transportErr != nil {
		return nil, r.transportErr
	}
	return map[string]any{"id": "transport-" + peerID}, nil
}

func (r *fakeRelay) ConnectTransport(context.Context, domain.RoomID, string, string, map[string]any) error {
	return nil
}

func (r *fakeRelay) Produce(context.Context, domain.RoomID, string, string, string, map[string]any, map[string]any) (string, error) {
	return "producer-1", nil
}

func (r *fakeRelay) Consume(context.Context, domain.RoomID, string, string, map[string]any) (map[string]any, error) {
	return map[string]any{"id": "consumer-1"}, nil
}

func (r *fakeRelay) ResumeConsumer(context.Context, domain.RoomID, string, string) error { return nil }
func (r *fakeRelay) PauseProducer(context.Context, domain.RoomID, string, string) error  { return nil }
func (r *fakeRelay) ResumeProducer(context.Context, domain.RoomID, string, string) error { return nil }

func (r *fakeRelay) Producers(context.Context, domain.RoomID, string) ([]map[string]any, error) {
	return nil, nil
}

// fakeVerifier resolves only the references it was seeded with.
type fakeVerifier struct {
	mu    sync.Mutex
	known map[string]int64
}

func newFakeVerifier() *fakeVerifier {
	return &fakeVerifier{known: make(map[string]int64)}
}

func (v *fakeVerifier) seed(ref string, amountCents int64) {
	v.mu.Lock()
	v.known[ref] = amountCents
	v.mu.Unlock()
}

func (v *fakeVerifier) VerifyReference(_ context.Context, ref string) (core.PaymentVerification, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	amount, ok := v.known[ref]
	if !ok {
		return core.PaymentVerification{}, &core.PaymentError{Reason: "unknown reference"}
	}
	return core.PaymentVerification{Ref: ref, AmountCents: amount}, nil
}

func (v *fakeVerifier) ChargeSavedMethod(_ context.Context, _ string, amountCents int64, _ string) (core.PaymentVerification, error) {
	return core.PaymentVerification{Ref: "pi_fake", AmountCents: amountCents}, nil
}

type testEnv struct {
	coord    *Coordinator
	relay    *fakeRelay
	verifier *fakeVerifier
}

func newTestEnv(tick time.Duration) *testEnv {
	relay := newFakeRelay()
	verifier := newFakeVerifier()
	registry := NewSessionRegistry(5, 3)
	coord := &Coordinator{
		Registry: registry,
		Relay:    relay,
		Spotlights: &SpotlightEngine{
			Registry: registry,
			Relay:    relay,
			Payments: verifier,
			Tick:     tick,
		},
		Tips: &TipEngine{
			Registry:      registry,
			Payments:      verifier,
			Denominations: []int64{200, 500, 1000, 2000, 5000},
		},
		RoomPrefix: "rm-",
		RecentChat: 5,
	}
	return &testEnv{coord: coord, relay: relay, verifier: verifier}
}

var defaultTier = domain.SpotlightTier{Name: "2min", PriceCents: 500, Duration: 2 * time.Minute}

func (te *testEnv) startSession(t testingT) (domain.SessionID, *fakeSink) {
	t.Helper()
	sink := &fakeSink{}
	id, _, err := te.coord.StartSession(context.Background(), "host-client", sink, "Morning Show", "DJ Ray", domain.KindAudio, "host-peer")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	return id, sink
}

func (te *testEnv) join(t testingT, id domain.SessionID, client domain.ClientID, name, peer string) *fakeSink {
	t.Helper()
	sink := &fakeSink{}
	if _, err := te.coord.JoinSession(context.Background(), client, sink, id, name, peer); err != nil {
		t.Fatalf("join session: %v", err)
	}
	return sink
}

// testingT is the slice of *testing.T the helpers need.
type testingT interface {
	Helper()
	Fatalf(format string, args ...any)
}
