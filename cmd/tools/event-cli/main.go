package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/ShaharFullStack/tdscorchedearth/internal/eventbus"
)

const (
	defaultNATSURL = "nats://localhost:4222"
	timeFormat     = "2006-01-02T15:04:05Z"
)

func main() {
	var (
		natsURL    = flag.String("nats", defaultNATSURL, "адрес NATS")
		stream     = flag.String("stream", "SCORCHED", "имя потока JetStream")
		eventTypes = flag.String("types", "", "фильтр типов событий (через запятую)")
		matches    = flag.String("matches", "", "фильтр матчей (через запятую)")
		limit      = flag.Int("limit", 0, "выйти после N событий, 0: без ограничения")
		payload    = flag.Bool("payload", false, "печатать полезную нагрузку")
		duration   = flag.Duration("for", 0, "сколько слушать, 0: до Ctrl+C")
	)
	flag.Parse()

	bus, err := eventbus.NewJetStreamBus(*natsURL, *stream, 0)
	if err != nil {
		log.Fatalf("❌ Не удалось подключиться к NATS: %v", err)
	}
	defer bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var seen atomic.Int64
	filter := eventbus.Filter{
		Types:    parseStringList(*eventTypes),
		MatchIDs: parseStringList(*matches),
	}
	sub, err := bus.Subscribe(ctx, filter, func(_ context.Context, ev *eventbus.Envelope) {
		printEvent(ev, *payload)
		if n := seen.Add(1); *limit > 0 && n >= int64(*limit) {
			cancel()
		}
	})
	if err != nil {
		log.Fatalf("❌ Ошибка подписки: %v", err)
	}
	defer sub.Unsubscribe()

	fmt.Printf("🎬 Слушаем %s (поток %s)\n", *natsURL, *stream)
	<-ctx.Done()
	fmt.Printf("\n📊 Всего событий: %d\n", seen.Load())
}

// printEvent выводит событие одной строкой
func printEvent(ev *eventbus.Envelope, withPayload bool) {
	fmt.Printf("[%s] %s/%s match=%s user=%s prio=%d\n",
		ev.Timestamp.UTC().Format(timeFormat), ev.Source, ev.EventType, ev.MatchID, ev.UserID, ev.Priority)
	if withPayload && len(ev.Payload) > 0 {
		var pretty map[string]interface{}
		if err := json.Unmarshal(ev.Payload, &pretty); err == nil {
			out, _ := json.MarshalIndent(pretty, "  ", "  ")
			fmt.Printf("  %s\n", out)
		}
	}
}

func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
