package eventbus

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/ShaharFullStack/tdscorchedearth/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu     sync.Mutex
	events []*Envelope
}

func (c *collector) handle(_ context.Context, ev *Envelope) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *collector) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev.EventType)
	}
	return out
}

func mustEnvelope(t *testing.T, eventType, matchID string) *Envelope {
	t.Helper()
	ev, err := NewEnvelope("test", eventType, map[string]int{"turn": 1})
	require.NoError(t, err)
	ev.MatchID = matchID
	return ev
}

func TestNewEnvelope(t *testing.T) {
	ev, err := NewEnvelope("session", "match.shot", map[string]float64{"power": 20})
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, PriorityLow, ev.Priority)

	var payload map[string]float64
	require.NoError(t, ev.Decode(&payload))
	assert.Equal(t, 20.0, payload["power"])

	_, err = NewEnvelope("session", "bad", make(chan int))
	assert.Error(t, err, "канал не сериализуется в JSON")
}

func TestMemoryBusDeliversInOrder(t *testing.T) {
	bus := NewMemoryBus(16)
	var c collector
	_, err := bus.Subscribe(context.Background(), Filter{}, c.handle)
	require.NoError(t, err)

	for _, typ := range []string{"match.turn", "match.shot", "match.explosion"} {
		require.NoError(t, bus.Publish(context.Background(), mustEnvelope(t, typ, "m1")))
	}
	require.NoError(t, bus.Close())

	assert.Equal(t, []string{"match.turn", "match.shot", "match.explosion"}, c.types())
	stats := bus.Metrics()
	assert.Equal(t, uint64(3), stats.Published)
	assert.Equal(t, uint64(3), stats.Consumed)
}

func TestMemoryBusFilters(t *testing.T) {
	bus := NewMemoryBus(16)
	var byType, byMatch collector
	_, err := bus.Subscribe(context.Background(), Filter{Types: []string{"match.over"}}, byType.handle)
	require.NoError(t, err)
	_, err = bus.Subscribe(context.Background(), Filter{MatchIDs: []string{"m2"}}, byMatch.handle)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), mustEnvelope(t, "match.turn", "m1")))
	require.NoError(t, bus.Publish(context.Background(), mustEnvelope(t, "match.over", "m1")))
	require.NoError(t, bus.Publish(context.Background(), mustEnvelope(t, "match.turn", "m2")))
	require.NoError(t, bus.Close())

	assert.Equal(t, []string{"match.over"}, byType.types())
	assert.Equal(t, []string{"match.turn"}, byMatch.types())
}

func TestMemoryBusUnsubscribeAndClose(t *testing.T) {
	bus := NewMemoryBus(4)
	var c collector
	sub, err := bus.Subscribe(context.Background(), Filter{}, c.handle)
	require.NoError(t, err)
	sub.Unsubscribe()

	require.NoError(t, bus.Publish(context.Background(), mustEnvelope(t, "match.turn", "m1")))
	require.NoError(t, bus.Close())
	assert.Empty(t, c.types())

	assert.ErrorIs(t, bus.Publish(context.Background(), mustEnvelope(t, "match.turn", "m1")), ErrBusClosed)
	_, err = bus.Subscribe(context.Background(), Filter{}, c.handle)
	assert.ErrorIs(t, err, ErrBusClosed)
	assert.NoError(t, bus.Close(), "повторное закрытие безопасно")
}

func TestSubjectFor(t *testing.T) {
	assert.Equal(t, "scorched.match.shot", subjectFor("match.shot"))
	assert.Equal(t, "scorched.bad_type_", subjectFor("bad type>"))
}

func TestMetricsExporterCollect(t *testing.T) {
	bus := NewMemoryBus(8)
	reg := prometheus.NewRegistry()
	exporter, err := NewMetricsExporter(bus, reg)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), mustEnvelope(t, "match.turn", "m1")))
	require.NoError(t, bus.Publish(context.Background(), mustEnvelope(t, "match.turn", "m1")))
	require.NoError(t, bus.Close())

	prev := exporter.collect(Stats{})
	assert.Equal(t, 2.0, testutil.ToFloat64(exporter.published))
	exporter.collect(prev)
	assert.Equal(t, 2.0, testutil.ToFloat64(exporter.published), "повторный сбор без новых событий ничего не добавляет")

	_, err = NewMetricsExporter(bus, reg)
	assert.Error(t, err, "повторная регистрация отклоняется")

	exporter.Stop()
	exporter.Stop()
}

func TestLoggingListener(t *testing.T) {
	bus := NewMemoryBus(4)
	var buf strings.Builder
	var mu sync.Mutex
	log := logging.NewConsoleLogger("eventbus", &lockedWriter{mu: &mu, b: &buf})
	log.SetLevels(logging.DEBUG, logging.ERROR)

	_, err := StartLoggingListener(context.Background(), bus, log)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), mustEnvelope(t, "match.over", "m9")))
	require.NoError(t, bus.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, buf.String(), "match.over match=m9")
}

type lockedWriter struct {
	mu *sync.Mutex
	b  *strings.Builder
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.b.Write(p)
}
