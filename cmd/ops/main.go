package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"

	opscmd "github.com/xtding233/carbon-crafts/internal/cmd/ops"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("[CARBON-OPS] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := opscmd.Run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}
}
