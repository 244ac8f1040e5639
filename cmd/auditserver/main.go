// Command auditserver exposes the script auditor over HTTP: start audit
// jobs, stream their progress over websockets, and browse scan history.
// Usage: go run ./cmd/auditserver [-addr :8080] [-storage DIR]
package main

import (
	"flag"
	"log"

	"github.com/tagscope/tagscope/internal/app"
	"github.com/tagscope/tagscope/internal/capture"
	"github.com/tagscope/tagscope/internal/server"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	storage := flag.String("storage", "", "Storage root for the history database (default: XDG data dir)")
	backend := flag.String("backend", "chromedp", "Capture backend: chromedp|static")
	flag.Parse()

	appCfg := app.DefaultConfig()
	if *storage != "" {
		appCfg.StorageRoot = *storage
	}
	appCfg.CaptureCfg.Backend = capture.Backend(*backend)

	srv, err := server.NewServer(server.Config{
		ListenAddr: *addr,
		AppConfig:  appCfg,
	})
	if err != nil {
		log.Fatalf("starting server: %v", err)
	}
	defer srv.Close()

	log.Printf("audit server listening on %s", *addr)
	if err := srv.HTTPServer().ListenAndServe(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
