package agent

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	UserAgent          = "de-ovgu-http-connect/1.0"
	DefaultHost        = "localhost"
	DefaultGatewayPort = 35497
)

// GatewayInfo is the gateway's answer to the discovery request.
type GatewayInfo struct {
	UsePort int `json:"use_port"`
}

type Config struct {
	Host        string
	GatewayPort int
	Client      *http.Client
	Retry       RetryPolicy
	Logger      *slog.Logger
}

// NewClient builds the shared HTTP client. timeout 0 disables the deadline.
func NewClient(timeout time.Duration) *http.Client {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 2000
	t.MaxConnsPerHost = 2000
	t.MaxIdleConnsPerHost = 2000
	t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}

	return &http.Client{
		Timeout:   timeout,
		Transport: t,
	}
}

// Agent is one simulated client. It exists only once its gateway lookup
// succeeded, so Info is always populated before Start.
type Agent struct {
	ID string

	cfg  Config
	info GatewayInfo

	gatewayElapsed time.Duration
	requestElapsed time.Duration

	started atomic.Bool
	done    chan struct{}
	err     error
}

// New asks the gateway which port to use. Transport failures are retried
// under cfg.Retry; a non-200 answer returns an error matching ErrFatal.
func New(ctx context.Context, cfg Config) (*Agent, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.GatewayPort == 0 {
		cfg.GatewayPort = DefaultGatewayPort
	}
	if cfg.Client == nil {
		cfg.Client = NewClient(0)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	a := &Agent{
		ID:   uuid.New().String(),
		cfg:  cfg,
		done: make(chan struct{}),
	}

	start := time.Now()
	body, err := a.do(ctx, PhaseGateway, a.GatewayURL())
	a.gatewayElapsed = time.Since(start)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(body, &a.info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedGatewayInfo, err)
	}
	if a.info.UsePort <= 0 || a.info.UsePort > 65535 {
		return nil, fmt.Errorf("%w: use_port %d out of range", ErrMalformedGatewayInfo, a.info.UsePort)
	}
	return a, nil
}

func (a *Agent) GatewayURL() string {
	return "http://" + a.cfg.Host + ":" + strconv.Itoa(a.cfg.GatewayPort) + "/api/1.0/"
}

func (a *Agent) NodeURL() string {
	return "http://" + a.cfg.Host + ":" + strconv.Itoa(a.info.UsePort) + "/api/1.0/nodes"
}

func (a *Agent) Info() GatewayInfo { return a.info }

// Port is the node port handed out by the gateway.
func (a *Agent) Port() int { return a.info.UsePort }

func (a *Agent) GatewayElapsed() time.Duration { return a.gatewayElapsed }

// RequestElapsed is only meaningful after Wait returned.
func (a *Agent) RequestElapsed() time.Duration { return a.requestElapsed }

// Start runs the node request on its own goroutine.
func (a *Agent) Start(ctx context.Context) {
	if !a.started.CompareAndSwap(false, true) {
		panic("agent: Start called twice")
	}
	go a.run(ctx)
}

func (a *Agent) run(ctx context.Context) {
	defer close(a.done)
	start := time.Now()
	_, a.err = a.do(ctx, PhaseRequest, a.NodeURL())
	a.requestElapsed = time.Since(start)
}

// Done is closed when the node request finished.
func (a *Agent) Done() <-chan struct{} { return a.done }

// Wait blocks until the node request finished and returns its error.
func (a *Agent) Wait() error {
	if !a.started.Load() {
		panic("agent: Wait called before Start")
	}
	<-a.done
	return a.err
}

func (a *Agent) do(ctx context.Context, phase Phase, url string) ([]byte, error) {
	log := a.cfg.Logger.With("agent", a.ID, "phase", string(phase))

	req, err := http.NewRequestWithContext(ctx, phase.Method(), url, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, code, err := a.roundTrip(req)
		if err == nil {
			if code != http.StatusOK {
				log.Error("request rejected", "url", url, "status", code)
				return nil, &StatusError{Phase: phase, URL: url, Code: code}
			}
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		log.Debug("transport error, retrying", "url", url, "attempt", attempt, "error", err)
		if a.cfg.Retry.exhausted(attempt) {
			return nil, &RetryError{Phase: phase, URL: url, Attempts: attempt, Err: err}
		}

		if d := a.cfg.Retry.delay(attempt); d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}
}

func (a *Agent) roundTrip(req *http.Request) ([]byte, int, error) {
	resp, err := a.cfg.Client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Only the status matters; a failed drain just forfeits connection reuse.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}
