package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	// DefaultPort is the stepper firmware's TCP port.
	DefaultPort = "8082"
	// DefaultConfigPort is where a device in setup mode accepts network settings.
	DefaultConfigPort = "8080"
)

// maxResponseSize bounds one firmware reply.
const maxResponseSize = 1024

// Config contains device bridge settings.
type Config struct {
	ConnectTimeout  time.Duration
	CommandTimeout  time.Duration
	RateLimitRPS    float64       // Commands per second across all endpoints, 0 = unlimited
	BreakerFailures int           // Consecutive transport failures that block an endpoint
	BreakerOpen     time.Duration // How long a blocked endpoint rejects commands
}

// DefaultConfig matches the firmware's expectations.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout:  5 * time.Second,
		CommandTimeout:  10 * time.Second,
		RateLimitRPS:    5,
		BreakerFailures: 3,
		BreakerOpen:     30 * time.Second,
	}
}

// Result describes one executed command. Transport failures are reported
// here with Success=false rather than as errors.
type Result struct {
	Command  Command       `json:"command"`
	Response Response      `json:"response"`
	Duration time.Duration `json:"duration"`
	Success  bool          `json:"success"`
}

// Controller sends stepper commands over TCP.
type Controller struct {
	config  Config
	limiter *rate.Limiter
	dialer  net.Dialer

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewController creates a controller. Zero config fields use DefaultConfig.
func NewController(config Config) *Controller {
	def := DefaultConfig()
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = def.ConnectTimeout
	}
	if config.CommandTimeout <= 0 {
		config.CommandTimeout = def.CommandTimeout
	}
	if config.BreakerFailures <= 0 {
		config.BreakerFailures = def.BreakerFailures
	}
	if config.BreakerOpen <= 0 {
		config.BreakerOpen = def.BreakerOpen
	}

	limit := rate.Inf
	if config.RateLimitRPS > 0 {
		limit = rate.Limit(config.RateLimitRPS)
	}

	return &Controller{
		config:   config,
		limiter:  rate.NewLimiter(limit, 1),
		dialer:   net.Dialer{Timeout: config.ConnectTimeout},
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// ParseEndpoint accepts "host", "host:port" or "scheme://host:port" and returns host:port.
// A bare host gets defaultPort.
func ParseEndpoint(endpoint, defaultPort string) (string, error) {
	addr := strings.TrimSpace(endpoint)
	if i := strings.Index(addr, "://"); i >= 0 {
		addr = addr[i+3:]
	}
	addr = strings.TrimSuffix(addr, "/")
	if addr == "" {
		return "", fmt.Errorf("invalid endpoint %q", endpoint)
	}

	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, defaultPort)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	return addr, nil
}

func (c *Controller) breaker(addr string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cb, ok := c.breakers[addr]; ok {
		return cb
	}
	failures := uint32(c.config.BreakerFailures)
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    addr,
		Timeout: c.config.BreakerOpen,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("endpoint", name).Str("from", from.String()).Str("to", to.String()).Msg("Device endpoint breaker changed state")
		},
	})
	c.breakers[addr] = cb
	return cb
}

// Execute validates and sends one command. Validation failures and a cancelled
// context are returned as errors; anything that goes wrong on the wire is in the Result.
func (c *Controller) Execute(ctx context.Context, endpoint string, cmd Command) (Result, error) {
	if err := Validate(cmd); err != nil {
		return Result{}, err
	}
	addr, err := ParseEndpoint(endpoint, DefaultPort)
	if err != nil {
		return Result{}, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return Result{}, err
	}

	start := time.Now()
	out, err := c.breaker(addr).Execute(func() (interface{}, error) {
		return c.send(ctx, addr, cmd)
	})
	result := Result{Command: cmd, Duration: time.Since(start)}

	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			err = fmt.Errorf("endpoint %s temporarily blocked after repeated failures: %w", addr, err)
		}
		log.Warn().Err(err).Str("endpoint", addr).Stringer("command", cmd).Msg("Device command failed")
		result.Response = Response{Kind: ResponseError, Message: err.Error()}
		return result, nil
	}

	result.Response = out.(Response)
	result.Success = true
	log.Debug().
		Str("endpoint", addr).
		Stringer("command", cmd).
		Stringer("response", result.Response).
		Dur("duration", result.Duration).
		Msg("Device command executed")
	return result, nil
}

func (c *Controller) send(ctx context.Context, addr string, cmd Command) (Response, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return Response{}, err
	}

	conn, err := c.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return Response{}, fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.config.CommandTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return Response{}, err
	}

	if _, err := conn.Write(payload); err != nil {
		return Response{}, fmt.Errorf("failed to send command: %w", err)
	}

	// The firmware writes one unterminated JSON value and keeps the socket open
	buf := make([]byte, maxResponseSize)
	n, err := conn.Read(buf)
	if err != nil {
		return Response{}, fmt.Errorf("failed to read response: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(buf[:n], &resp); err != nil {
		return Response{}, fmt.Errorf("invalid response %q: %w", buf[:n], err)
	}
	return resp, nil
}
