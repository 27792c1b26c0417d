// viewsyncd hosts the view-sync harness behind an HTTP API. Without a real
// rendering host it wires the in-memory surfaces from internal/testkit as
// collaborators, which is enough to exercise the full suite end to end.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"viewsync/domain/view"
	"viewsync/internal"
	"viewsync/internal/config"
	"viewsync/internal/container"
	"viewsync/internal/testkit"
	"viewsync/ui"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.NewDefaultLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := container.New(ctx, cfg, demoCollaborators(), logger)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer app.Shutdown()

	app.Monitor.ApplyInitialState()

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: ui.NewServer(app).Handler(),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("viewsyncd listening on %s", server.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	logger.Info("viewsyncd stopped")
}

// demoCollaborators builds in-memory surfaces and stores so the harness can
// run without a real rendering host attached.
func demoCollaborators() container.Collaborators {
	base := testkit.NewFakeSurface(view.State{
		Longitude: 10, Latitude: 45, Zoom: 5, Width: 1280, Height: 720})
	overlay := testkit.NewFakeSurface(view.State{
		Longitude: 10, Latitude: 45, Zoom: 4, Width: 1280, Height: 720})

	now := time.Now().UTC()
	return container.Collaborators{
		BaseView:  base,
		Overlay:   overlay,
		Clock:     testkit.NewFakeClockControl(now.Add(-6*time.Hour), now),
		Selection: testkit.NewFakeSelectionStore("sat-1", "sat-2", "sat-3"),
	}
}
