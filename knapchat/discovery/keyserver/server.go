package keyserver

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/TheusHen/knapchat/knapchat/discovery"
	"github.com/TheusHen/knapchat/knapchat/errs"
)

// DefaultAddr is where parties look for the directory unless configured.
const DefaultAddr = "localhost:9000"

// maxRequest bounds a single request document.
const maxRequest = 1 << 20

// Store is what the server needs from its backing directory.
type Store interface {
	discovery.Resolver
	discovery.Lister
}

// Options configures a Server. Zero values are usable.
type Options struct {
	Logger *logrus.Entry
	// ConnTimeout bounds one request/response exchange. Zero means no limit.
	ConnTimeout time.Duration
	// Registry receives the server metrics. Nil creates a private registry.
	Registry *prometheus.Registry
}

// Server serves the directory protocol over a net.Listener.
type Server struct {
	store   Store
	log     *logrus.Entry
	timeout time.Duration
	metrics *metrics

	wg sync.WaitGroup
}

func NewServer(store Store, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &Server{
		store:   store,
		log:     log.WithField("component", "keyserver"),
		timeout: opts.ConnTimeout,
		metrics: newMetrics(reg, store),
	}
}

// ListenAndServe listens on addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return errs.Mark(errors.Wrapf(err, "keyserver: listen %s", addr), errs.ErrNetwork)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, handling each on its
// own goroutine. It closes ln and waits for in-flight requests before
// returning. A cancelled context is not an error.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.log.WithField("addr", ln.Addr().String()).Info("Key server listening")

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	defer s.wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.log.Info("Key server stopped")
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.log.WithError(err).Warn("Temporary accept failure")
				continue
			}
			_ = ln.Close()
			return errs.Mark(errors.Wrap(err, "keyserver: accept"), errs.ErrNetwork)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(conn)
		}()
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	log := s.log.WithField("remote", conn.RemoteAddr().String())
	log.Debug("Accepted connection")

	if s.timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(s.timeout))
	}

	var raw json.RawMessage
	dec := json.NewDecoder(io.LimitReader(conn, maxRequest))
	var resp Response
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			log.Debug("Connection closed before a request")
			return
		}
		log.WithError(err).Error("Invalid JSON request")
		resp = errorResponse(msgInvalidJSON)
		s.metrics.observe("", resp.Status)
	} else {
		resp = s.Handle(context.Background(), raw)
	}

	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		log.WithError(err).Error("Failed to write response")
	}
}

// Handle answers one request document. It never fails; problems with the
// request are reported in the response.
func (s *Server) Handle(ctx context.Context, data []byte) Response {
	req, err := decodeRequest(data)
	if err != nil {
		s.log.WithError(err).Error("Invalid JSON request")
		s.metrics.observe("", StatusError)
		return errorResponse(msgInvalidJSON)
	}

	var resp Response
	typ := req.typ()
	switch typ {
	case TypeRegister:
		resp = s.handleRegister(ctx, req)
	case TypeRetrieve:
		resp = s.handleRetrieve(ctx, req)
	default:
		s.log.WithField("request_type", typ).Error("Invalid request type")
		resp = errorResponse(msgInvalidType)
		typ = ""
	}
	s.metrics.observe(typ, resp.Status)
	return resp
}

func (s *Server) handleRegister(ctx context.Context, req rawRequest) Response {
	id, okID := req.clientID()
	key, present, valid := req.publicKey()
	if !okID || !present {
		s.log.Error("Invalid register request")
		return errorResponse(msgInvalidRegister)
	}
	if !valid {
		s.log.WithField("client_id", id).Error("Invalid register request")
		return errorResponse(msgNotIntList)
	}
	if err := s.store.Register(ctx, id, key); err != nil {
		s.log.WithError(err).WithField("client_id", id).Error("Register failed")
		return errorResponse(msgInvalidRegister)
	}
	s.log.WithField("client_id", id).Info("Public key registered")
	return Response{Status: StatusSuccess, Message: msgRegistered}
}

func (s *Server) handleRetrieve(ctx context.Context, req rawRequest) Response {
	id, ok := req.clientID()
	if !ok {
		s.log.Error("Invalid retrieve request, missing client_id")
		return errorResponse(msgMissingID)
	}
	key, err := s.store.Retrieve(ctx, id)
	if err != nil {
		s.log.WithField("client_id", id).Error("Entry not found")
		return errorResponse(msgNotFound)
	}
	s.log.WithField("client_id", id).Info("Public key retrieved")
	return Response{Status: StatusSuccess, PublicKey: key}
}
