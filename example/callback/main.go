package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/LineFlow/pkg/lineflow"
)

func main() {
	flow, err := lineflow.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	callback := func(ev lineflow.Event) {
		if ev.Kind == lineflow.EventError {
			fmt.Printf("run failed: %s\n", ev.Error)
			return
		}
		for _, rec := range ev.Result.Records {
			fmt.Printf("%s stopped for %s (%d samples)\n",
				rec.Start.Format(time.RFC3339),
				rec.Duration,
				rec.SampleCount,
			)
		}
	}

	if err := flow.Run(ctx, lineflow.StreamOutCallback(callback)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}
