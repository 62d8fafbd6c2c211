package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"webchat/internal/app"
)

func main() {
	// .env is optional; real env vars win either way.
	_ = godotenv.Load()

	cfg := app.LoadServerConfig()
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "server listen address")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "sqlite database path")
	flag.StringVar(&cfg.UploadDir, "uploads", cfg.UploadDir, "directory for uploaded files")
	flag.StringVar(&cfg.PublicDir, "public", cfg.PublicDir, "directory of static assets to serve")
	flag.Int64Var(&cfg.MaxFileSize, "max-upload", cfg.MaxFileSize, "maximum upload size in bytes")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handle, err := app.RunServer(ctx, cfg)
	if err != nil {
		log.Fatalf("start server: %v", err)
	}
	log.Printf("webchat server listening on %s", handle.Addr())

	if err := handle.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
