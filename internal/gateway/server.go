// Package gateway simulates the gridstore HTTP gateway: a discovery endpoint
// that hands out node ports round-robin, and a pool of node servers that
// accept POST /api/1.0/nodes.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const nodeBody = "<html><body>Hello routers</body></html>\n"

type ServerConfig struct {
	Host string
	// Port of the discovery endpoint. 0 picks a free port.
	Port int
	// Sockets is the number of node servers behind the gateway.
	Sockets int
	// BasePort is the first node port; 0 lets the OS choose each one.
	BasePort int

	// Jitter is the upper bound of a random delay added to node responses.
	Jitter time.Duration
	// FailRate and GatewayFailRate are the fractions of node and discovery
	// requests answered with 500.
	FailRate        float64
	GatewayFailRate float64
}

// RootResponse is the body of GET /api/1.0/.
type RootResponse struct {
	Result  string `json:"result"`
	Ports   []int  `json:"ports"`
	UsePort int    `json:"use_port"`
}

type Server struct {
	cfg    ServerConfig
	logger *slog.Logger

	gateway *http.Server
	port    int
	nodes   []*http.Server
	ports   []int

	next         atomic.Uint64
	gatewayHits  atomic.Int64
	nodeHits     atomic.Int64
	rejectedHits atomic.Int64

	wg sync.WaitGroup
}

// Start binds the gateway and all node servers, then serves them in the
// background. All listeners are open when Start returns.
func Start(cfg ServerConfig, logger *slog.Logger) (*Server, error) {
	if cfg.Sockets < 1 {
		cfg.Sockets = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cfg: cfg, logger: logger}

	var listeners []net.Listener
	closeAll := func() {
		for _, ln := range listeners {
			ln.Close()
		}
	}

	for i := 0; i < cfg.Sockets; i++ {
		port := 0
		if cfg.BasePort > 0 {
			port = cfg.BasePort + i
		}
		ln, err := net.Listen("tcp", net.JoinHostPort(cfg.Host, strconv.Itoa(port)))
		if err != nil {
			closeAll()
			return nil, err
		}
		listeners = append(listeners, ln)
		s.ports = append(s.ports, ln.Addr().(*net.TCPAddr).Port)
	}

	gln, err := net.Listen("tcp", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)))
	if err != nil {
		closeAll()
		return nil, err
	}
	s.port = gln.Addr().(*net.TCPAddr).Port

	for _, ln := range listeners {
		srv := &http.Server{Handler: s.NodeHandler()}
		s.nodes = append(s.nodes, srv)
		s.serve(srv, ln)
	}
	s.gateway = &http.Server{Handler: s.GatewayHandler()}
	s.serve(s.gateway, gln)

	logger.Info("gateway listening", "port", s.port, "node_servers", len(s.ports))
	return s, nil
}

func (s *Server) serve(srv *http.Server, ln net.Listener) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server failed", "addr", ln.Addr().String(), "error", err)
		}
	}()
}

// Port is the bound discovery port.
func (s *Server) Port() int { return s.port }

// Ports lists the node ports in hand-out order.
func (s *Server) Ports() []int {
	out := make([]int, len(s.ports))
	copy(out, s.ports)
	return out
}

// NextPort returns the next node port, cycling through the pool.
func (s *Server) NextPort() int {
	i := s.next.Add(1) - 1
	return s.ports[i%uint64(len(s.ports))]
}

func (s *Server) GatewayHits() int64 { return s.gatewayHits.Load() }

func (s *Server) NodeHits() int64 { return s.nodeHits.Load() }

// Rejected counts requests answered with 500 by failure injection.
func (s *Server) Rejected() int64 { return s.rejectedHits.Load() }

func (s *Server) GatewayHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/api/1.0/", s.handleRoot)
	return r
}

func (s *Server) NodeHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/api/1.0/nodes", s.handleNodes)
	return r
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.gatewayHits.Add(1)
	w.Header().Set("Connection", "close")

	if s.cfg.GatewayFailRate > 0 && rand.Float64() < s.cfg.GatewayFailRate {
		s.rejectedHits.Add(1)
		http.Error(w, "gateway unavailable", http.StatusInternalServerError)
		return
	}

	body, err := json.Marshal(RootResponse{
		Result:  "OK",
		Ports:   s.ports,
		UsePort: s.NextPort(),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	s.nodeHits.Add(1)
	if s.cfg.Jitter > 0 {
		time.Sleep(time.Duration(rand.Int63n(int64(s.cfg.Jitter))))
	}

	w.Header().Set("Connection", "close")
	if s.cfg.FailRate > 0 && rand.Float64() < s.cfg.FailRate {
		s.rejectedHits.Add(1)
		http.Error(w, "node unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	w.Header().Set("Content-Length", strconv.Itoa(len(nodeBody)))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(nodeBody))
}

// Shutdown stops every server and waits for them to exit.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.gateway.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	for _, srv := range s.nodes {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.wg.Wait()
	return errors.Join(errs...)
}

// Close shuts down without a deadline.
func (s *Server) Close() error {
	return s.Shutdown(context.Background())
}
