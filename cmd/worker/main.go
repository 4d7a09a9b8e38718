package main

import (
	"context"
	"log"
	"os"

	"github.com/carpoolnetwork/trust-service/internal/app/bootstrap"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "configs/default.yaml"
	}
	ctx := context.Background()
	runtime, err := bootstrap.NewRuntime(ctx, path)
	if err != nil {
		log.Fatalf("bootstrap worker runtime: %v", err)
	}
	if err := runtime.RunWorker(ctx); err != nil {
		log.Fatalf("run worker: %v", err)
	}
}
