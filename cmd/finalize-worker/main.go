package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/ticketfair/ticketfair/internal/adapters/crdb"
	mongoadapter "github.com/ticketfair/ticketfair/internal/adapters/mongo"
	redisadapter "github.com/ticketfair/ticketfair/internal/adapters/redis"
	"github.com/ticketfair/ticketfair/internal/config"
	"github.com/ticketfair/ticketfair/internal/domain"
	"github.com/ticketfair/ticketfair/internal/observability"
	"github.com/ticketfair/ticketfair/internal/settlement"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger("finalize-worker")

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	audit := mongoadapter.NewAuditLogger(mongoClient.Database("ticketfair"), logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	redisCache := redisadapter.NewCache(redisClient)

	svc := settlement.NewService(cfg, repo, redisCache, audit, logger, nil)

	worker := NewFinalizeWorker(repo, svc, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Run(ctx, cfg.FinalizeInterval)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown finalize worker")
}

// FinalizeWorker closes auctions whose window has ended but whose
// organizer never finalized them. The close price at or past the end of
// the window is the floor price.
type FinalizeWorker struct {
	repo   *crdb.Repository
	svc    *settlement.Service
	logger observability.Logger
}

func NewFinalizeWorker(repo *crdb.Repository, svc *settlement.Service, logger observability.Logger) *FinalizeWorker {
	return &FinalizeWorker{repo: repo, svc: svc, logger: logger}
}

func (w *FinalizeWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case tick := <-ticker.C:
			now := tick.Unix()
			events, err := w.repo.GetFinalizableEvents(ctx, now)
			if err != nil {
				w.logger.Error("failed to get finalizable events", err)
				continue
			}
			// Each finalization is its own transaction on its own pool
			// connection, so closing a backlog fans out.
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(4)
			for _, ev := range events {
				ev := ev
				g.Go(func() error {
					closePrice := domain.CurrentPrice(ev, now)
					_, err := w.svc.FinalizeAuction(gctx, ev.Organizer, ev.ID, closePrice)
					if err != nil && !errors.Is(err, domain.ErrInvalidEventState) {
						w.logger.WithField("event_id", ev.ID.String()).Error("failed to finalize auction", err)
					}
					return nil
				})
			}
			g.Wait()
		}
	}
}
