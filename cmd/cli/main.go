package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sujinchoi3/my-todolist/internal/client/cli"
	"github.com/sujinchoi3/my-todolist/internal/client/config"
	"github.com/sujinchoi3/my-todolist/internal/logging"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()

	logger, err := logging.NewJSONLogger(os.Stderr, "warn")
	if err != nil {
		log.Fatalf("%v", err)
	}

	app, err := cli.NewApp(cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)

}
