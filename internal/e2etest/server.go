package e2etest

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"testing"

	"github.com/myrjola/petracoach/internal/logging"
	"github.com/myrjola/petracoach/internal/testhelpers"
)

const (
	// LogAddrKey is the log key under which the server announces its listening address.
	LogAddrKey = "addr"
	// LogDsnKey is the log key under which the database announces its read-write DSN.
	LogDsnKey = "sqlDsn"

	readinessPath = "/api/healthy"
)

// RunFunc starts the service and blocks until ctx is cancelled.
type RunFunc func(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error

// Server is a coach API instance running inside a test. The first JSON client and a handle to its SQLite database
// come ready for use.
type Server struct {
	url    string
	client *Client
	db     *sql.DB
	cancel context.CancelCauseFunc
	done   chan struct{}
}

// announced collects the address and DSN the service logs while starting.
type announced struct {
	addr chan string
	dsn  chan string
}

func (a announced) replaceAttr(_ []string, attr slog.Attr) slog.Attr {
	switch attr.Key {
	case LogAddrKey:
		a.addr <- attr.Value.String()
	case LogDsnKey:
		a.dsn <- attr.Value.String()
	}
	return attr
}

// StartServer runs the service with lookupEnv as its environment and waits until the readiness endpoint answers.
// Server logs go to t.Log. The server is shut down when the test ends.
func StartServer(t *testing.T, lookupEnv func(string) (string, bool), run RunFunc) (*Server, error) {
	t.Helper()
	ctx, cancel := context.WithCancelCause(t.Context())
	done := make(chan struct{})
	ann := announced{addr: make(chan string, 1), dsn: make(chan string, 1)}
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(testhelpers.NewWriter(t), &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: ann.replaceAttr,
	})))

	go func() {
		defer close(done)
		if err := run(ctx, logger, lookupEnv); err != nil {
			cancel(err)
		}
	}()
	server := &Server{url: "", client: nil, db: nil, cancel: cancel, done: done}
	t.Cleanup(server.Shutdown)

	var addr, dsn string
	for addr == "" || dsn == "" {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("server stopped before ready: %w", context.Cause(ctx))
		case addr = <-ann.addr:
		case dsn = <-ann.dsn:
		}
	}

	var err error
	server.url = "http://" + addr
	if server.client, err = NewClient(server.url); err != nil {
		return nil, fmt.Errorf("new client: %w", err)
	}
	if err = server.client.WaitForReady(ctx, readinessPath); err != nil {
		return nil, fmt.Errorf("wait for ready: %w", err)
	}
	if server.db, err = sql.Open("sqlite3", dsn); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return server, nil
}

// Client is the JSON client of the first test user.
func (s *Server) Client() *Client {
	return s.client
}

// NewUser returns a client with an empty cookie jar, so the service identifies it as a new anonymous user.
func (s *Server) NewUser() (*Client, error) {
	return NewClient(s.url)
}

func (s *Server) URL() string {
	return s.url
}

// Count returns the number of rows in table. Only pass table names the test controls.
func (s *Server) Count(ctx context.Context, table string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// Shutdown stops the service and waits for run to return. It is safe to call more than once.
func (s *Server) Shutdown() {
	s.cancel(nil)
	<-s.done
	if s.db != nil {
		_ = s.db.Close()
		s.db = nil
	}
}
