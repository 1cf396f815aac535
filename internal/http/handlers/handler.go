package handlers

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"tablewood-catering-services/internal/checkout"
	"tablewood-catering-services/internal/config"
	"tablewood-catering-services/internal/order"
	"tablewood-catering-services/internal/queue"
	"tablewood-catering-services/internal/storage"
)

type Handler struct {
	DB     *pgxpool.Pool
	Logger *zap.Logger
	Config config.Config
	Queue  *queue.Client
	Store  *storage.ObjectStore

	Initiator    *checkout.Initiator
	Materializer *order.Materializer
}

func New(db *pgxpool.Pool, logger *zap.Logger, cfg config.Config, qc *queue.Client, store *storage.ObjectStore) *Handler {
	return &Handler{
		DB:     db,
		Logger: logger,
		Config: cfg,
		Queue:  qc,
		Store:  store,
		Initiator: &checkout.Initiator{
			DB:     db,
			Logger: logger,
			Config: cfg,
		},
		Materializer: &order.Materializer{
			DB:     db,
			Logger: logger,
			Config: cfg,
			Queue:  qc,
		},
	}
}
