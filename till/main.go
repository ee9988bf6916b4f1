package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"billdesk/m/internal/client"
	"billdesk/m/internal/config"
	"billdesk/m/internal/session"
	"billdesk/m/internal/terminal"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend := client.New(cfg.BackendURL,
		client.WithHTTPClient(&http.Client{}),
		client.WithToken(cfg.APIToken),
		client.WithTimeout(cfg.RequestTimeout),
	)

	view := terminal.NewView(os.Stdout)
	sess := session.New(backend, view, session.Options{
		CheckoutTimeout: cfg.CheckoutTimeout,
		SearchRate:      cfg.SearchRate,
	})

	log.SetOutput(os.Stderr)
	log.Printf("billing till connected to %s", backend.BaseURL())
	if err := sess.Start(ctx); err != nil {
		log.Printf("initial history load failed: %v", err)
	}

	if err := terminal.Run(ctx, sess, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		log.Fatalf("till stopped: %v", err)
	}
}
