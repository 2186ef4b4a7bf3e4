package ami

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Response terminators. Accumulation stops on the first one seen anywhere
// in the buffer; AMI has no fixed-length framing.
const (
	endCommandMarker       = "--END COMMAND--"
	peerlistCompleteMarker = "Event: PeerlistComplete"
	goodbyeMarker          = "Response: Goodbye"

	authAcceptedMarker = "Authentication accepted"

	readChunkSize = 4096
)

// Config carries the AMI endpoint, identity and timeout policy.
type Config struct {
	Host     string
	Port     int
	Username string
	Secret   string

	// DialTimeout bounds connection setup so one slow action cannot stall
	// a workflow indefinitely.
	DialTimeout time.Duration
	// ReadTimeout bounds each individual read while accumulating a response.
	ReadTimeout time.Duration
	// ActionTimeout is the wall-clock ceiling across a whole SendAction call.
	ActionTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.DialTimeout <= 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 5 * time.Second
	}
	if c.ActionTimeout <= 0 {
		c.ActionTimeout = 30 * time.Second
	}
	return c
}

// Client exchanges single actions with the Asterisk Manager Interface.
//
// The AMI multiplexes unsolicited events and command responses on one
// session. This client deliberately opens a fresh connection per action and
// tears it down before returning, so concurrent callers never share a
// socket or see each other's traffic. A single shared Client instance
// serializes its callers with a mutex; isolation on the wire comes from the
// per-action connection, not from the lock.
type Client struct {
	cfg    Config
	logger *slog.Logger

	mu            sync.Mutex
	conn          net.Conn
	reader        *bufio.Reader
	authenticated bool
}

// NewClient creates an AMI client. No connection is made until needed.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		cfg:    cfg.withDefaults(),
		logger: logger.With("component", "ami_client"),
	}
}

// Connect dials the AMI, consumes the banner line and performs the login
// handshake. It is a no-op when already authenticated. All failures are
// returned as errors after the socket has been torn down.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	if c.authenticated && c.conn != nil {
		return nil
	}

	addr := net.JoinHostPort(c.cfg.Host, fmt.Sprintf("%d", c.cfg.Port))
	dialer := net.Dialer{Timeout: c.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to AMI at %s: %w", addr, err)
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)

	// The server greets with one CRLF-terminated banner line. Its content
	// is logged but not validated beyond presence.
	if err := conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout)); err != nil {
		c.teardown()
		return fmt.Errorf("failed to arm banner read deadline: %w", err)
	}
	banner, err := c.reader.ReadString('\n')
	if err != nil {
		c.teardown()
		return fmt.Errorf("failed to read AMI banner: %w", err)
	}
	c.logger.InfoContext(ctx, "AMI banner received", "banner", strings.TrimSpace(banner))

	login := NewAction("Login").
		Set("Username", c.cfg.Username).
		Set("Secret", c.cfg.Secret).
		Set("Events", "off")
	if err := c.write(login.serialize(uuid.NewString())); err != nil {
		c.teardown()
		return fmt.Errorf("failed to send login action: %w", err)
	}

	response, err := c.readUntilBlankLine()
	if err != nil {
		c.teardown()
		return fmt.Errorf("failed to read login response: %w", err)
	}
	if !strings.Contains(response, authAcceptedMarker) {
		c.teardown()
		return errors.New("AMI authentication failed")
	}

	c.authenticated = true
	c.logger.InfoContext(ctx, "AMI authentication successful")
	return nil
}

// SendAction sends one action and accumulates its response until a known
// terminator is seen, the peer stops sending, or the timeout budget runs
// out. A fresh correlation id is assigned on every call. The connection is
// torn down before returning on every path: this client never keeps a
// session open across actions.
func (c *Client) SendAction(ctx context.Context, action *Action) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.teardown()

	if err := c.connectLocked(ctx); err != nil {
		return "", err
	}

	actionID := uuid.NewString()
	logger := c.logger.With("action", action.Name(), "action_id", actionID)

	deadline := time.Now().Add(c.cfg.ActionTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return "", fmt.Errorf("failed to arm write deadline: %w", err)
	}
	if err := c.write(action.serialize(actionID)); err != nil {
		logger.ErrorContext(ctx, "Error sending action to AMI", "error", err)
		return "", fmt.Errorf("failed to send action %q: %w", action.Name(), err)
	}

	var buf strings.Builder
	chunk := make([]byte, readChunkSize)
	for {
		if time.Now().After(deadline) {
			logger.ErrorContext(ctx, "AMI action exceeded its time budget")
			return "", fmt.Errorf("action %q timed out after %s", action.Name(), c.cfg.ActionTimeout)
		}

		readDeadline := time.Now().Add(c.cfg.ReadTimeout)
		if readDeadline.After(deadline) {
			readDeadline = deadline
		}
		if err := c.conn.SetReadDeadline(readDeadline); err != nil {
			return "", fmt.Errorf("failed to arm read deadline: %w", err)
		}

		n, err := c.reader.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if s := buf.String(); strings.Contains(s, endCommandMarker) ||
				strings.Contains(s, peerlistCompleteMarker) ||
				strings.Contains(s, goodbyeMarker) {
				break
			}
		}
		if err != nil {
			// A clean close with no terminator still yields whatever was
			// accumulated; timeouts and other I/O errors abort the action.
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				break
			}
			logger.ErrorContext(ctx, "Error reading AMI response", "error", err)
			return "", fmt.Errorf("failed reading response for action %q: %w", action.Name(), err)
		}
	}

	logger.DebugContext(ctx, "AMI action completed", "response_bytes", buf.Len())
	return buf.String(), nil
}

// Command runs one CLI-style administrative command through the manager,
// e.g. "database put mask 4521 +15551234567".
func (c *Client) Command(ctx context.Context, command string) (string, error) {
	return c.SendAction(ctx, NewAction("Command").Set("Command", command))
}

// Disconnect closes the connection if present and resets state to "not
// connected". Idempotent: safe to call repeatedly or before any Connect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardown()
}

func (c *Client) teardown() {
	if c.conn != nil {
		if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			c.logger.Warn("AMI connection close failed", "error", err)
		}
	}
	c.conn = nil
	c.reader = nil
	c.authenticated = false
}

func (c *Client) write(payload []byte) error {
	for len(payload) > 0 {
		n, err := c.conn.Write(payload)
		if err != nil {
			return err
		}
		payload = payload[n:]
	}
	return nil
}

// readUntilBlankLine accumulates bytes until the first \r\n\r\n-terminated
// block is complete, with the per-read deadline applied to each read.
func (c *Client) readUntilBlankLine() (string, error) {
	var buf strings.Builder
	chunk := make([]byte, readChunkSize)
	for {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout)); err != nil {
			return "", err
		}
		n, err := c.reader.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if strings.Contains(buf.String(), "\r\n\r\n") {
				return buf.String(), nil
			}
		}
		if err != nil {
			return "", err
		}
	}
}
