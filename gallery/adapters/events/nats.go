package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"morty.dev/characters/gallery/core"
)

const (
	SubjectFavoriteToggled = "gallery.favorites.toggled"
	HeaderSession          = "Gallery-Session"

	flushTimeout = 2 * time.Second
)

// Publisher announces favorites changes on NATS. A nil connection turns
// every publish into a no-op.
type Publisher struct {
	log *slog.Logger
	nc  *nats.Conn
}

func NewPublisher(log *slog.Logger, addr string) (*Publisher, error) {
	nc, err := nats.Connect(addr,
		nats.Name("gallery"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		log.Error("failed to connect to nats", "address", addr, "error", err)
		return nil, err
	}
	return &Publisher{log: log, nc: nc}, nil
}

// Close drains pending messages before closing the connection.
func (p *Publisher) Close() {
	if p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.log.Error("failed to drain nats connection", "error", err)
		p.nc.Close()
	}
}

func (p *Publisher) PublishFavoriteToggled(_ context.Context, ev core.FavoriteToggled) {
	if p.nc == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		p.log.Error("failed to encode favorite event", "error", err)
		return
	}

	msg := nats.NewMsg(SubjectFavoriteToggled)
	msg.Header.Set(HeaderSession, ev.Session)
	msg.Data = data
	if err := p.nc.PublishMsg(msg); err != nil {
		p.log.Error("failed to publish favorite event", "id", ev.ID, "error", err)
		return
	}
	if err := p.nc.FlushTimeout(flushTimeout); err != nil {
		p.log.Warn("failed to flush nats connection", "error", err)
	}
}

func (p *Publisher) Ping(context.Context) error {
	if p.nc == nil || !p.nc.IsConnected() {
		return nats.ErrConnectionClosed
	}
	return nil
}
