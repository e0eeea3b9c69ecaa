package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	listenerMinReconnect = 2 * time.Second
	listenerMaxReconnect = time.Minute
	listenerPing         = 90 * time.Second
)

// PostgresBridge fans events out with NOTIFY and relays LISTEN notifications,
// including the ones raised by table triggers, into the local hub.
type PostgresBridge struct {
	db      *sqlx.DB
	dsn     string
	channel string
	hub     *Hub
	origin  string
	logger  *zap.Logger
}

// NewPostgresBridge constructs a bridge. dsn opens the dedicated listener
// connection; db is used for NOTIFY.
func NewPostgresBridge(db *sqlx.DB, dsn, channel string, hub *Hub, logger *zap.Logger) *PostgresBridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresBridge{
		db:      db,
		dsn:     dsn,
		channel: channel,
		hub:     hub,
		origin:  newOrigin(),
		logger:  logger.Named("realtime.postgres"),
	}
}

// Publish delivers ev locally and notifies other instances.
func (b *PostgresBridge) Publish(ctx context.Context, ev Event) error {
	_ = b.hub.Publish(ctx, ev)

	payload, err := encodeEnvelope(b.origin, ev)
	if err != nil {
		return err
	}
	if _, err := b.db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, b.channel, payload); err != nil {
		return fmt.Errorf("pg_notify %s: %w", b.channel, err)
	}
	return nil
}

// Run listens on the channel until ctx is done.
func (b *PostgresBridge) Run(ctx context.Context) error {
	listener := pq.NewListener(b.dsn, listenerMinReconnect, listenerMaxReconnect, b.onListenerEvent)
	defer listener.Close() //nolint:errcheck

	if err := listener.Listen(b.channel); err != nil {
		return fmt.Errorf("listen %s: %w", b.channel, err)
	}
	b.logger.Info("realtime bridge listening", zap.String("channel", b.channel))

	ping := time.NewTicker(listenerPing)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-listener.Notify:
			if !ok {
				return fmt.Errorf("listener for %s closed", b.channel)
			}
			b.handleNotification(ctx, n)
		case <-ping.C:
			if err := listener.Ping(); err != nil {
				b.logger.Warn("listener ping failed", zap.Error(err))
			}
		}
	}
}

// handleNotification relays one notification. A nil notification means the
// connection was re-established and anything may have been missed.
func (b *PostgresBridge) handleNotification(ctx context.Context, n *pq.Notification) {
	if n == nil {
		b.logger.Info("listener reconnected, requesting full refresh")
		for _, table := range AllTables {
			_ = b.hub.Publish(ctx, NewEvent(table, ActionRefresh, ""))
		}
		return
	}

	env, err := decodeEnvelope(n.Extra)
	if err != nil {
		b.logger.Warn("dropping notification", zap.String("channel", n.Channel), zap.Error(err))
		return
	}
	if env.Origin == b.origin {
		return
	}
	_ = b.hub.Publish(ctx, env.Event)
}

func (b *PostgresBridge) onListenerEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnectionAttemptFailed, pq.ListenerEventDisconnected:
		b.logger.Warn("listener connection problem", zap.Int("event", int(ev)), zap.Error(err))
	case pq.ListenerEventReconnected:
		b.logger.Info("listener reconnected")
	}
}
