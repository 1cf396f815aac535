package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"tablewood-catering-services/internal/auth"
	"tablewood-catering-services/internal/config"
	"tablewood-catering-services/internal/http/handlers"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server pushes live order-board updates to back-office clients. The feed is
// poll based: one goroutine per tenant with subscribers watches max(updated_at)
// and broadcasts a fresh snapshot when it moves.
type Server struct {
	DB     *pgxpool.Pool
	Logger *zap.Logger
	Config config.Config

	ordersFeed *ordersFeed
}

func New(db *pgxpool.Pool, logger *zap.Logger, cfg config.Config) *Server {
	interval := cfg.WSOrdersPollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Server{
		DB:     db,
		Logger: logger,
		Config: cfg,
		ordersFeed: &ordersFeed{
			db:       db,
			logger:   logger,
			interval: interval,
			subs:     make(map[int64]map[*wsClient]struct{}),
			watching: make(map[int64]struct{}),
		},
	}
}

type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsClient) writeJSON(value any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(value)
}

func (c *wsClient) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

type ordersFeed struct {
	db       *pgxpool.Pool
	logger   *zap.Logger
	interval time.Duration

	mu       sync.RWMutex
	subs     map[int64]map[*wsClient]struct{}
	watching map[int64]struct{}
}

func (f *ordersFeed) subscribe(tenantID int64, client *wsClient) (unsubscribe func()) {
	if f.addSubscriber(tenantID, client) {
		go f.watchLoop(context.Background(), tenantID)
	}
	return func() { f.removeSubscriber(tenantID, client) }
}

// addSubscriber registers the client and reports whether a watcher must be
// started for the tenant.
func (f *ordersFeed) addSubscriber(tenantID int64, client *wsClient) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs[tenantID] == nil {
		f.subs[tenantID] = make(map[*wsClient]struct{})
	}
	f.subs[tenantID][client] = struct{}{}
	if _, ok := f.watching[tenantID]; !ok {
		f.watching[tenantID] = struct{}{}
		return true
	}
	return false
}

func (f *ordersFeed) removeSubscriber(tenantID int64, client *wsClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	clients := f.subs[tenantID]
	delete(clients, client)
	if len(clients) == 0 {
		delete(f.subs, tenantID)
	}
}

func (f *ordersFeed) broadcast(tenantID int64, message any) {
	f.mu.RLock()
	clientsMap := f.subs[tenantID]
	clients := make([]*wsClient, 0, len(clientsMap))
	for c := range clientsMap {
		clients = append(clients, c)
	}
	f.mu.RUnlock()

	for _, c := range clients {
		if err := c.writeJSON(message); err != nil {
			_ = c.conn.Close()
			f.mu.Lock()
			if current := f.subs[tenantID]; current != nil {
				delete(current, c)
				if len(current) == 0 {
					delete(f.subs, tenantID)
				}
			}
			f.mu.Unlock()
		}
	}
}

// unwatchIfIdle clears the watching mark and reports true when the tenant
// has no subscribers left. The check and the clear happen under one lock, so
// a concurrent subscribe either finds the mark already gone and starts a new
// watcher, or is seen here and keeps the current one alive.
func (f *ordersFeed) unwatchIfIdle(tenantID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.subs[tenantID]) > 0 {
		return false
	}
	delete(f.watching, tenantID)
	return true
}

func (f *ordersFeed) fetchBoardUpdatedAt(ctx context.Context, tenantID int64) time.Time {
	var updated time.Time
	err := f.db.QueryRow(ctx, `
		select coalesce(max(updated_at), 'epoch'::timestamptz)
		from orders
		where tenant_id = $1
	`, tenantID).Scan(&updated)
	if err != nil {
		return time.Time{}
	}
	return updated
}

// watchLoop runs while the tenant has at least one subscriber; it exits after
// the last one leaves and is restarted on the next subscribe.
func (f *ordersFeed) watchLoop(ctx context.Context, tenantID int64) {
	lastSeen := f.fetchBoardUpdatedAt(ctx, tenantID)
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for range ticker.C {
		if f.unwatchIfIdle(tenantID) {
			return
		}

		updated := f.fetchBoardUpdatedAt(ctx, tenantID)
		if !updated.After(lastSeen) {
			continue
		}
		lastSeen = updated

		orders, err := handlers.FetchActiveOrders(ctx, f.db, tenantID)
		if err != nil {
			if f.logger != nil {
				f.logger.Warn("orders feed fetch failed", zap.Int64("tenantId", tenantID), zap.Error(err))
			}
			f.broadcast(tenantID, map[string]any{"type": "orders.refresh", "updatedAt": updated})
			continue
		}
		f.broadcast(tenantID, map[string]any{"type": "orders.state", "data": orders, "updatedAt": updated})
	}
}

// AdminOrdersWS upgrades an authenticated back-office connection and streams
// order-board snapshots. Browsers cannot set headers on websocket dials, so
// the bearer token travels as a query parameter.
func (s *Server) AdminOrdersWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	token := r.URL.Query().Get("token")
	claims, err := auth.VerifyAccessToken(token, s.Config.JWTSecret)
	if err != nil || claims.TenantID <= 0 {
		_ = conn.WriteJSON(map[string]any{"type": "error", "message": "unauthorized"})
		return
	}

	ctx := r.Context()
	client := &wsClient{conn: conn}
	unsubscribe := s.ordersFeed.subscribe(claims.TenantID, client)
	defer unsubscribe()

	// Initial snapshot before any change is observed.
	if orders, err := handlers.FetchActiveOrders(ctx, s.DB, claims.TenantID); err == nil {
		_ = client.writeJSON(map[string]any{"type": "orders.state", "data": orders, "updatedAt": time.Now()})
	}

	heartbeat := s.Config.WSHeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	pingTicker := time.NewTicker(heartbeat)
	defer pingTicker.Stop()

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, readErr := conn.ReadMessage(); readErr != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-clientClosed:
			return
		case <-ctx.Done():
			return
		case <-pingTicker.C:
			if err := client.ping(); err != nil {
				return
			}
		}
	}
}
