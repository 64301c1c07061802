package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/dyna/internal/domain/plugin"
	"github.com/felixgeelhaar/dyna/internal/domain/updater"
	"github.com/felixgeelhaar/dyna/internal/ports"
)

// defaultUpdateTimeout bounds a cycle requested over the socket.
const defaultUpdateTimeout = 10 * time.Minute

// Controller is the part of the running daemon the socket exposes.
type Controller interface {
	SchedulerStatus() updater.SchedulerStatus
	Plugins() []plugin.Record
	Debug() *updater.DebugSurface
	RunCycle(ctx context.Context) (*updater.CycleReport, error)
	CheckUpdatesForPlugin(ctx context.Context, author, id string) bool
	Stop(ctx context.Context) error
}

// Server handles IPC communication via Unix socket.
type Server struct {
	socketPath string
	lockPath   string
	controller Controller
	version    string
	logger     ports.Logger

	listener net.Listener
	mu       sync.RWMutex
	closed   bool
	wg       sync.WaitGroup
}

// ServerConfig contains configuration for the IPC server.
type ServerConfig struct {
	SocketPath string
	LockPath   string
	Version    string
	Logger     ports.Logger
}

// DefaultSocketPath returns the default socket path.
func DefaultSocketPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".dyna", "dyna.sock")
}

// LockPathFor returns the PID file that accompanies socketPath.
func LockPathFor(socketPath string) string {
	return strings.TrimSuffix(socketPath, filepath.Ext(socketPath)) + ".pid"
}

// NewServer creates a new IPC server.
func NewServer(cfg ServerConfig, controller Controller) *Server {
	if cfg.SocketPath == "" {
		cfg.SocketPath = DefaultSocketPath()
	}
	if cfg.LockPath == "" {
		cfg.LockPath = LockPathFor(cfg.SocketPath)
	}
	if cfg.Logger == nil {
		cfg.Logger = ports.Discard()
	}

	return &Server{
		socketPath: cfg.SocketPath,
		lockPath:   cfg.LockPath,
		controller: controller,
		version:    cfg.Version,
		logger:     cfg.Logger,
	}
}

// Start begins listening for connections.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("server is closed")
	}

	dir := filepath.Dir(s.socketPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	// A socket that accepts connections belongs to another daemon.
	if conn, err := net.DialTimeout("unix", s.socketPath, 200*time.Millisecond); err == nil {
		_ = conn.Close()
		return fmt.Errorf("another daemon is listening on %s", s.socketPath)
	}

	// Remove stale socket file
	if err := os.RemoveAll(s.socketPath); err != nil {
		return fmt.Errorf("failed to remove stale socket: %w", err)
	}

	if err := s.createLockFile(); err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		s.removeLockFile()
		return fmt.Errorf("failed to listen on socket: %w", err)
	}

	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		_ = listener.Close()
		s.removeLockFile()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.listener = listener

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop stops the server and waits for open connections to finish.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}

	s.closed = true

	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.mu.Unlock()

	// Wait outside the lock; handlers may still be writing.
	s.wg.Wait()

	_ = os.RemoveAll(s.socketPath)
	s.removeLockFile()

	return nil
}

// SocketPath returns the socket path.
func (s *Server) SocketPath() string {
	return s.socketPath
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.RLock()
			closed := s.closed
			s.mu.RUnlock()

			if closed {
				return
			}
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))

	decoder := json.NewDecoder(conn)
	var msg Message
	if err := decoder.Decode(&msg); err != nil {
		if err != io.EOF {
			s.sendError(conn, msg.RequestID, ErrorCodeInvalidRequest, "failed to decode message")
		}
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	s.handleMessage(conn, &msg)
}

func (s *Server) handleMessage(conn net.Conn, msg *Message) {
	switch msg.Type {
	case MessageTypeStatusRequest:
		s.handleStatusRequest(conn, msg)
	case MessageTypeUpdateRequest:
		s.handleUpdateRequest(conn, msg)
	case MessageTypeCheckRequest:
		s.handleCheckRequest(conn, msg)
	case MessageTypeStopRequest:
		s.handleStopRequest(conn, msg)
	default:
		s.sendError(conn, msg.RequestID, ErrorCodeInvalidRequest, "unknown message type")
	}
}

func (s *Server) handleStatusRequest(conn net.Conn, msg *Message) {
	response := StatusResponse{
		Scheduler: s.controller.SchedulerStatus(),
		Plugins:   len(s.controller.Plugins()),
		Debug:     s.controller.Debug() != nil,
		Version:   s.version,
		PID:       os.Getpid(),
	}

	s.sendResponse(conn, msg.RequestID, MessageTypeStatusResponse, response)
}

func (s *Server) handleUpdateRequest(conn net.Conn, msg *Message) {
	var req UpdateRequest
	if msg.Payload != nil {
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			s.sendError(conn, msg.RequestID, ErrorCodeInvalidRequest, "invalid update request payload")
			return
		}
	}

	timeout := defaultUpdateTimeout
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info(ctx, "update requested over control socket")
	report, err := s.controller.RunCycle(ctx)
	if report == nil && err != nil {
		s.sendError(conn, msg.RequestID, ErrorCodeNotRunning, err.Error())
		return
	}
	s.sendResponse(conn, msg.RequestID, MessageTypeUpdateResponse, newUpdateResponse(report, err))
}

func (s *Server) handleCheckRequest(conn net.Conn, msg *Message) {
	var req CheckRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		s.sendError(conn, msg.RequestID, ErrorCodeInvalidRequest, "invalid check request payload")
		return
	}
	if req.Author == "" || req.ID == "" {
		s.sendError(conn, msg.RequestID, ErrorCodeInvalidRequest, "author and id are required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	available := s.controller.CheckUpdatesForPlugin(ctx, req.Author, req.ID)
	tracked := false
	for _, r := range s.controller.Plugins() {
		if r.Author == req.Author && r.ID == req.ID {
			tracked = true
			break
		}
	}

	s.sendResponse(conn, msg.RequestID, MessageTypeCheckResponse, CheckResponse{
		Key:       plugin.Key(req.Author, req.ID),
		Available: available,
		Tracked:   tracked,
	})
}

func (s *Server) handleStopRequest(conn net.Conn, msg *Message) {
	var req StopRequest
	if msg.Payload != nil {
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			s.sendError(conn, msg.RequestID, ErrorCodeInvalidRequest, "invalid stop request payload")
			return
		}
	}

	timeout := 30 * time.Second
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.controller.Stop(ctx); err != nil {
		s.sendResponse(conn, msg.RequestID, MessageTypeStopResponse, StopResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	s.sendResponse(conn, msg.RequestID, MessageTypeStopResponse, StopResponse{
		Success: true,
		Message: "daemon stopping",
	})
}

func (s *Server) sendResponse(conn net.Conn, requestID string, msgType MessageType, payload interface{}) {
	msg, err := NewMessage(msgType, requestID, payload)
	if err != nil {
		return
	}

	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_ = json.NewEncoder(conn).Encode(msg) // Best effort, connection may be closed
}

func (s *Server) sendError(conn net.Conn, requestID, code, message string) {
	s.sendResponse(conn, requestID, MessageTypeErrorResponse, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// createLockFile writes the current PID next to the socket.
func (s *Server) createLockFile() error {
	dir := filepath.Dir(s.lockPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data := fmt.Sprintf("%d\n", os.Getpid())
	return os.WriteFile(s.lockPath, []byte(data), 0o600)
}

func (s *Server) removeLockFile() {
	_ = os.RemoveAll(s.lockPath)
}
