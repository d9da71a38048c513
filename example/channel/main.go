package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/LineFlow"
)

// Runs against a simulated line instead of the document API.
func main() {
	flow, err := lineflow.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg := flow.Config()
	cfg.Refresh.Enabled = true
	cfg.Refresh.RunOnStart = true
	cfg.Refresh.Interval = 5 * time.Second

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sub, events, closeEvents := lineflow.NewChannelSubscriber(8)
	go report(events)

	rt, err := flow.
		StreamIN(lineflow.StreamInSource(lineflow.NewStaticSource("simulator", simulate(time.Now(), 2*time.Hour)))).
		StreamOUT(lineflow.StreamOutSubscriber(sub))
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}
	if err := rt.Start(); err != nil {
		log.Fatalf("start: %v", err)
	}
	<-ctx.Done()

	closeEvents()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func report(events <-chan lineflow.Event) {
	for ev := range events {
		if ev.Result == nil {
			fmt.Printf("error: %s\n", ev.Error)
			continue
		}
		s := ev.Result.Summary
		fmt.Printf("[%s] %d stoppages, %s down, availability %.1f%%\n",
			ev.RunID[:8], s.Records, s.TotalDowntime, s.Availability*100)
	}
}

// simulate produces one sample every 10s with a few stoppages.
func simulate(now time.Time, span time.Duration) []lineflow.Sample {
	var out []lineflow.Sample
	speed := 12.0
	for ts := now.Add(-span); !ts.After(now); ts = ts.Add(10 * time.Second) {
		if rand.Float64() < 0.01 {
			speed = 0
		} else if speed == 0 && rand.Float64() < 0.05 {
			speed = 12
		}
		out = append(out, lineflow.Sample{
			Timestamp: ts,
			Speed:     lineflow.Measurement{Value: speed + rand.Float64(), Valid: true},
		})
	}
	return out
}
