package stream

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Boundary is the multipart boundary between MJPEG frames.
const Boundary = "FRAME"

// ContentType is the response content type for the MJPEG stream.
const ContentType = "multipart/x-mixed-replace; boundary=" + Boundary

// minBackoff is the floor for the retry delay after a failed capture.
const minBackoff = 500 * time.Millisecond

// FrameSource produces one JPEG frame per call. Implemented by
// camera.Capturer; faked in tests.
type FrameSource interface {
	CaptureOnce(ctx context.Context, outputPath string, width, height int) error
}

// Session is one client's live stream. Each session owns a private scratch
// file so concurrent sessions never interleave writes to the same path.
type Session struct {
	ID          string
	clientKey   string
	scratchPath string
	ctx         context.Context
	cancel      context.CancelFunc
}

// Manager tracks active stream sessions, at most one per client key.
type Manager struct {
	source        FrameSource
	scratchDir    string
	width         int
	height        int
	frameInterval time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a stream manager. frameInterval zero means re-trigger
// the next capture immediately; a positive value paces the stream.
func NewManager(source FrameSource, scratchDir string, width, height int, frameInterval time.Duration) *Manager {
	return &Manager{
		source:        source,
		scratchDir:    scratchDir,
		width:         width,
		height:        height,
		frameInterval: frameInterval,
		sessions:      make(map[string]*Session),
	}
}

// Open returns the session for clientKey, creating one if needed. The second
// return value reports whether a session was already running for that client.
func (m *Manager) Open(clientKey string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[clientKey]; ok {
		return existing, true
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:        uuid.New().String(),
		clientKey: clientKey,
		ctx:       ctx,
		cancel:    cancel,
	}
	s.scratchPath = filepath.Join(m.scratchDir, fmt.Sprintf("stream_%s.jpg", s.ID))
	m.sessions[clientKey] = s
	log.Printf("[STREAM] Session %s opened for %s", s.ID, clientKey)
	return s, false
}

// Close stops the session for clientKey, killing any in-flight capture.
// Returns false when no session was running; calling it again is a no-op.
func (m *Manager) Close(clientKey string) bool {
	m.mu.Lock()
	s, ok := m.sessions[clientKey]
	if ok {
		delete(m.sessions, clientKey)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	s.cancel()
	log.Printf("[STREAM] Session %s closed", s.ID)
	return true
}

// CloseAll stops every active session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.cancel()
	}
}

// Has reports whether a session is running for clientKey.
func (m *Manager) Has(clientKey string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[clientKey]
	return ok
}

// ActiveCount returns the number of live sessions.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Run drives the capture loop for a session, writing multipart frames to w
// until the client disconnects (clientCtx) or the session is stopped. Write
// errors after disconnect are swallowed, never surfaced to the user.
func (m *Manager) Run(clientCtx context.Context, s *Session, w io.Writer) {
	ctx, cancel := context.WithCancel(clientCtx)
	defer cancel()
	go func() {
		// Propagate an explicit stop into the loop's context so the
		// in-flight capture process gets killed, not just unscheduled.
		select {
		case <-s.ctx.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	defer func() {
		m.mu.Lock()
		if m.sessions[s.clientKey] == s {
			delete(m.sessions, s.clientKey)
		}
		m.mu.Unlock()
		s.cancel()
		os.Remove(s.scratchPath)
		log.Printf("[STREAM] Session %s finished", s.ID)
	}()

	backoff := m.frameInterval * 5
	if backoff < minBackoff {
		backoff = minBackoff
	}

	for ctx.Err() == nil {
		if err := m.source.CaptureOnce(ctx, s.scratchPath, m.width, m.height); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[STREAM] Session %s capture error: %v", s.ID, err)
			if !sleep(ctx, backoff) {
				return
			}
			continue
		}

		data, err := os.ReadFile(s.scratchPath)
		if err != nil {
			log.Printf("[STREAM] Session %s scratch read error: %v", s.ID, err)
			if !sleep(ctx, backoff) {
				return
			}
			continue
		}

		// Cancellation is checked before every write.
		if ctx.Err() != nil {
			return
		}
		writeFrame(w, data)

		if m.frameInterval > 0 && !sleep(ctx, m.frameInterval) {
			return
		}
	}
}

// writeFrame emits one multipart part. The writer may be a disconnected
// client; errors are deliberately ignored.
func writeFrame(w io.Writer, data []byte) {
	fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", Boundary, len(data))
	w.Write(data)
	io.WriteString(w, "\r\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// sleep waits for d or until ctx is done, reporting whether the full delay
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
