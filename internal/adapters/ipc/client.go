package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotRunning indicates no daemon is listening on the socket.
var ErrNotRunning = errors.New("dyna daemon is not running")

// Client communicates with the daemon via IPC.
type Client struct {
	socketPath string
	lockPath   string
	timeout    time.Duration
}

// ClientConfig contains configuration for the IPC client.
type ClientConfig struct {
	SocketPath string
	LockPath   string
	Timeout    time.Duration
}

// NewClient creates a new IPC client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.SocketPath == "" {
		cfg.SocketPath = DefaultSocketPath()
	}
	if cfg.LockPath == "" {
		cfg.LockPath = LockPathFor(cfg.SocketPath)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		socketPath: cfg.SocketPath,
		lockPath:   cfg.LockPath,
		timeout:    cfg.Timeout,
	}
}

// IsRunning checks if a daemon is listening on the socket.
func (c *Client) IsRunning() bool {
	if _, err := os.Stat(c.socketPath); err != nil {
		return false
	}

	conn, err := net.DialTimeout("unix", c.socketPath, 500*time.Millisecond)
	if err != nil {
		return false
	}
	_ = conn.Close()

	return true
}

// PID returns the PID of the running daemon, or 0 if unknown.
func (c *Client) PID() int {
	data, err := os.ReadFile(c.lockPath)
	if err != nil {
		return 0
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}

	return pid
}

// Status requests the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call(MessageTypeStatusRequest, nil, MessageTypeStatusResponse, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Update asks the daemon to run an update cycle and waits for its summary.
func (c *Client) Update(timeout time.Duration) (*UpdateResponse, error) {
	req := UpdateRequest{TimeoutSeconds: int(timeout.Seconds())}
	var resp UpdateResponse
	if err := c.call(MessageTypeUpdateRequest, req, MessageTypeUpdateResponse, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Check asks the daemon whether a plugin has an update.
func (c *Client) Check(author, id string) (*CheckResponse, error) {
	req := CheckRequest{Author: author, ID: id}
	var resp CheckResponse
	if err := c.call(MessageTypeCheckRequest, req, MessageTypeCheckResponse, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop.
func (c *Client) Stop(timeout time.Duration) (*StopResponse, error) {
	req := StopRequest{TimeoutSeconds: int(timeout.Seconds())}
	var resp StopResponse
	if err := c.call(MessageTypeStopRequest, req, MessageTypeStopResponse, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// call sends a request and decodes a response of the wanted type into out.
func (c *Client) call(msgType MessageType, payload interface{}, want MessageType, out interface{}) error {
	if !c.IsRunning() {
		return ErrNotRunning
	}

	resp, err := c.sendRequest(msgType, payload)
	if err != nil {
		return err
	}

	switch resp.Type {
	case want:
		if err := json.Unmarshal(resp.Payload, out); err != nil {
			return fmt.Errorf("failed to parse %s: %w", want, err)
		}
		return nil
	case MessageTypeErrorResponse:
		var errResp ErrorResponse
		if err := json.Unmarshal(resp.Payload, &errResp); err != nil {
			return fmt.Errorf("failed to parse error response: %w", err)
		}
		return fmt.Errorf("%s: %s", errResp.Code, errResp.Message)
	default:
		return fmt.Errorf("unexpected response type %q", resp.Type)
	}
}

// sendRequest sends a request and waits for a response.
func (c *Client) sendRequest(msgType MessageType, payload interface{}) (*Message, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w", err)
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetDeadline(time.Now().Add(c.timeout))

	msg, err := NewMessage(msgType, uuid.New().String(), payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	var resp Message
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &resp, nil
}
