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
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ShaharFullStack/tdscorchedearth/internal/combat"
	"github.com/ShaharFullStack/tdscorchedearth/internal/logging"
	"github.com/ShaharFullStack/tdscorchedearth/internal/sim"
)

func main() {
	var (
		matches      = flag.Int("matches", 20, "матчей на каждую сложность")
		seed         = flag.Int64("seed", 1, "базовый seed")
		spread       = flag.Float64("spread", 0.05, "ошибка наводчика, рад")
		difficulties = flag.String("difficulty", "", "сложности через запятую, пусто: все")
		campaign     = flag.Bool("campaign", false, "переносить прогресс и покупать улучшения")
		asJSON       = flag.Bool("json", false, "вывод в JSON")
		verbose      = flag.Bool("v", false, "подробный журнал")
	)
	flag.Parse()

	logger := logging.NewConsoleLogger("sim", os.Stderr)
	if *verbose {
		logger.SetLevels(logging.DEBUG, logging.DEBUG)
	} else {
		logger.SetLevels(logging.WARN, logging.WARN)
	}

	levels := combat.Difficulties
	if *difficulties != "" {
		levels = nil
		for _, name := range strings.Split(*difficulties, ",") {
			levels = append(levels, combat.ParseDifficulty(strings.TrimSpace(name)))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results := make([]sim.Result, len(levels))
	g, ctx := errgroup.WithContext(ctx)
	for i, d := range levels {
		g.Go(func() error {
			res, err := sim.Run(ctx, sim.Config{
				Difficulty: d,
				Matches:    *matches,
				Seed:       *seed + int64(i)*1_000_003,
				Spread:     *spread,
				Campaign:   *campaign,
				Logger:     logger,
			})
			if err != nil {
				return fmt.Errorf("%s: %w", d, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("❌ Прогон прерван: %v", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			log.Fatalf("❌ Ошибка вывода: %v", err)
		}
		return
	}

	fmt.Printf("%-8s %7s %5s %6s %6s %8s %6s\n", "уровень", "матчей", "побед", "пораж", "ничьи", "winrate", "ходов")
	for _, r := range results {
		fmt.Printf("%-8s %7d %5d %6d %6d %7.1f%% %6.1f\n",
			r.Difficulty, r.Matches, r.Wins, r.Losses, r.Unfinished, r.WinRate()*100, r.AvgTurns())
	}
}
