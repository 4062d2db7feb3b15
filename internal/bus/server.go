// Package bus carries the engine's event traffic over an embedded
// NATS server: service adapter events inbound on svc.<service>.<event>
// subjects, engine events outbound on rpg.message, rpg.whisper,
// rpg.patches, and rpg.tick.
package bus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// Outbound subjects.
const (
	SubjectMessage = "rpg.message"
	SubjectWhisper = "rpg.whisper"
	SubjectPatches = "rpg.patches"
	SubjectTick    = "rpg.tick"
)

// InboundSubject builds the subject a service adapter publishes the
// given event on.
func InboundSubject(service, event string) string {
	return fmt.Sprintf("svc.%s.%s", service, event)
}

type Server struct {
	ns   *server.Server
	conn *nats.Conn

	startupTimeout time.Duration
	host           string
	port           int
}

func NewServer(opts ...ServerOpt) (*Server, error) {
	s := &Server{
		startupTimeout: 10 * time.Second,
		host:           "127.0.0.1",
	}

	for _, opt := range opts {
		opt(s)
	}

	ns, err := server.NewServer(&server.Options{
		Host:   s.host,
		Port:   s.port,
		NoSigs: true, // Let the application handle signals
	})

	s.ns = ns

	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Server) Start(ctx context.Context) error {
	s.ns.Start()

	if !s.ns.ReadyForConnections(s.startupTimeout) {
		return fmt.Errorf("nats server not ready for connections")
	}

	conn, err := nats.Connect(s.clientURL())
	if err != nil {
		return fmt.Errorf("creating nats client connection: %w", err)
	}
	s.conn = conn

	slog.InfoContext(ctx, "bus listening", "addr", s.ns.Addr())

	<-ctx.Done()
	s.conn.Close()
	s.ns.Shutdown()
	s.ns.WaitForShutdown()

	return nil
}

// Subscribe creates a subscription on the given subject. Returns an
// unsubscribe function.
func (s *Server) Subscribe(subject string, handler func(data []byte)) (func(), error) {
	if s.conn == nil {
		return nil, fmt.Errorf("bus not started")
	}
	sub, err := s.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return nil, err
	}
	return func() { sub.Unsubscribe() }, nil
}

// Publish sends a message to the given subject.
func (s *Server) Publish(subject string, data []byte) error {
	if s.conn == nil {
		return fmt.Errorf("bus not started")
	}
	return s.conn.Publish(subject, data)
}

func (s *Server) clientURL() string {
	return fmt.Sprintf("nats://%s:%d", s.host, s.port)
}
