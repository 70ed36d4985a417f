// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"punchclock_backend/internal/config"
	"punchclock_backend/internal/punch"
	"punchclock_backend/internal/registry"
	"punchclock_backend/internal/routes"
	"punchclock_backend/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := storage.Open(cfg)
	if err != nil {
		log.Fatalf("db: %v", err)
	}

	svc := punch.NewService(db, registry.New(db), cfg.PunchSkew, cfg.ManualCodeTTL)
	r := routes.NewRouter(db, cfg, svc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sweepManualCodes(ctx, svc, cfg.ManualCodeSweep)
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	<-sweepDone
}

// sweepManualCodes deletes expired manual codes every interval until ctx is
// done. A zero interval disables it.
func sweepManualCodes(ctx context.Context, svc *punch.Service, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := svc.SweepManualCodes(ctx)
			if err != nil {
				log.Printf("manual code sweep: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("manual code sweep: removed %d", n)
			}
		}
	}
}
