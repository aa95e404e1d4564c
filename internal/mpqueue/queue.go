package mpqueue

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/testrig-core/internal/component"
	"github.com/nerrad567/testrig-core/internal/fifo"
)

// Logger defines the logging interface used by the queue host.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Timeouts for the client side of the wire protocol.
const (
	// dialTimeout bounds connecting to the hosting process.
	dialTimeout = 5 * time.Second

	// putTimeout bounds a complete put exchange.
	putTimeout = 5 * time.Second

	// responseGrace is added to a get's own timeout when setting the
	// read deadline, covering wire latency on top of the host-side wait.
	responseGrace = 5 * time.Second
)

// Queue is one end of an unbounded, process-safe frame queue.
//
// The creating process holds the hosting end (New); any process holding the
// handle may hold an attached end (Attach, or unmarshalling a serialized
// handle). Both ends expose the same Put/Get contract.
//
// All public methods are thread-safe.
type Queue struct {
	path   string
	logger Logger

	// Hosting end.
	host    bool
	ln      net.Listener
	buf     *fifo.Queue
	wg      sync.WaitGroup
	peersMu sync.Mutex
	peers   map[net.Conn]struct{}

	// Attached end: one lazily-dialed connection, one exchange at a time.
	connMu sync.Mutex
	conn   net.Conn

	mu     sync.Mutex
	closed bool
}

// New creates and hosts a queue, listening on a fresh unix socket under
// dir. An empty dir uses the system temp directory. The returned queue is
// the hosting end; its Handle can be passed to other processes.
func New(dir string) (*Queue, error) {
	if dir == "" {
		d, err := os.MkdirTemp("", "testrig-mpq-")
		if err != nil {
			return nil, fmt.Errorf("creating queue directory: %w", err)
		}
		dir = d
	}

	// Short names: unix socket paths have a hard length limit.
	path := filepath.Join(dir, "q-"+uuid.NewString()[:8]+".sock")

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("hosting queue at %s: %w", path, err)
	}

	q := &Queue{
		path:   path,
		logger: noopLogger{},
		host:   true,
		ln:     ln,
		buf:    fifo.New(),
		peers:  make(map[net.Conn]struct{}),
	}

	q.wg.Add(1)
	go q.serve()

	return q, nil
}

// Attach returns a handle to a queue hosted elsewhere, identified by its
// socket path. The connection is dialed lazily on first use.
func Attach(path string) *Queue {
	return &Queue{
		path:   path,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the queue.
func (q *Queue) SetLogger(logger Logger) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.logger = logger
}

// Handle returns the identity of the queue: the unix socket path valid in
// every process on this host.
func (q *Queue) Handle() string {
	return q.path
}

// IsHost reports whether this end hosts the buffer.
func (q *Queue) IsHost() bool {
	return q.host
}

// Put appends a frame to the queue. It never blocks beyond the cost of the
// local append (hosting end) or one wire exchange (attached end).
func (q *Queue) Put(f *component.Frame) error {
	if q.isClosed() {
		return ErrClosed
	}

	if q.host {
		q.buf.Push(f)
		return nil
	}

	resp, err := q.exchange(&request{Op: opPut, Frame: f}, putTimeout)
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("%w: %s", ErrProtocol, resp.Err)
	}
	return nil
}

// Get removes and returns the oldest frame, waiting up to timeout.
// It returns (nil, nil) when no frame arrived in time.
func (q *Queue) Get(timeout time.Duration) (*component.Frame, error) {
	if q.isClosed() {
		return nil, ErrClosed
	}

	if q.host {
		return q.buf.Pop(timeout), nil
	}

	if timeout < 0 {
		timeout = 0
	}
	resp, err := q.exchange(&request{Op: opGet, TimeoutMS: timeout.Milliseconds()}, timeout+responseGrace)
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, fmt.Errorf("%w: %s", ErrProtocol, resp.Err)
	}
	if resp.Empty {
		return nil, nil
	}
	return resp.Frame, nil
}

// Len returns the number of buffered frames. Only the hosting end can
// answer cheaply; attached ends report -1.
func (q *Queue) Len() int {
	if q.host {
		return q.buf.Len()
	}
	return -1
}

// Close tears down this end of the queue. The hosting end stops serving
// and removes the socket, invalidating every attached handle; an attached
// end only drops its connection. Proxy channel close/reopen must NOT call
// this - queue identity outlives channel state.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	var err error
	if q.host {
		err = q.ln.Close()
		q.peersMu.Lock()
		for conn := range q.peers {
			_ = conn.Close()
		}
		q.peersMu.Unlock()
		q.wg.Wait()
		_ = os.Remove(q.path)
	}

	q.connMu.Lock()
	if q.conn != nil {
		_ = q.conn.Close()
		q.conn = nil
	}
	q.connMu.Unlock()

	return err
}

// MarshalBinary encodes the queue as its handle. The full identity of the
// queue is the socket path; buffered frames stay with the hosting process.
func (q *Queue) MarshalBinary() ([]byte, error) {
	return []byte(q.path), nil
}

// UnmarshalBinary restores a queue handle from its serialized form as an
// attached end of the same queue, never a new one.
func (q *Queue) UnmarshalBinary(data []byte) error {
	q.path = string(data)
	q.logger = noopLogger{}
	q.host = false
	q.ln = nil
	q.buf = nil
	q.closed = false
	return nil
}

func (q *Queue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// exchange performs one request/response round trip on the attached end.
// A broken connection is dropped so the next call redials.
func (q *Queue) exchange(req *request, deadline time.Duration) (*response, error) {
	q.connMu.Lock()
	defer q.connMu.Unlock()

	if q.conn == nil {
		conn, err := net.DialTimeout("unix", q.path, dialTimeout)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDialFailed, err)
		}
		q.conn = conn
	}

	if err := q.conn.SetDeadline(time.Now().Add(deadline)); err != nil {
		return nil, fmt.Errorf("setting wire deadline: %w", err)
	}

	if err := writeMessage(q.conn, req); err != nil {
		q.dropConnLocked()
		return nil, err
	}

	var resp response
	if err := readMessage(q.conn, &resp); err != nil {
		q.dropConnLocked()
		return nil, fmt.Errorf("reading queue response: %w", err)
	}
	return &resp, nil
}

// dropConnLocked discards a broken connection. Callers must hold connMu.
func (q *Queue) dropConnLocked() {
	if q.conn != nil {
		_ = q.conn.Close()
		q.conn = nil
	}
}

// serve accepts attached peers and answers their requests.
func (q *Queue) serve() {
	defer q.wg.Done()

	for {
		conn, err := q.ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				q.logger.Error("queue accept failed", "path", q.path, "error", err)
			}
			return
		}

		q.peersMu.Lock()
		q.peers[conn] = struct{}{}
		q.peersMu.Unlock()

		// Not part of q.wg: a peer goroutine blocked serving a
		// bounded get finishes on its own once its conn is closed.
		go q.serveConn(conn)
	}
}

// serveConn handles one attached peer until it disconnects.
func (q *Queue) serveConn(conn net.Conn) {
	defer func() {
		q.peersMu.Lock()
		delete(q.peers, conn)
		q.peersMu.Unlock()
		_ = conn.Close()
	}()

	for {
		var req request
		if err := readMessage(conn, &req); err != nil {
			// EOF is the peer going away, which is routine.
			return
		}

		var resp response
		switch req.Op {
		case opPut:
			q.buf.Push(req.Frame)
			resp.OK = true
		case opGet:
			f := q.buf.Pop(time.Duration(req.TimeoutMS) * time.Millisecond)
			resp.OK = true
			if f == nil {
				resp.Empty = true
			} else {
				resp.Frame = f
			}
		default:
			resp.Err = fmt.Sprintf("unknown op %q", req.Op)
		}

		if err := writeMessage(conn, &resp); err != nil {
			q.logger.Warn("queue response write failed", "path", q.path, "error", err)
			return
		}
	}
}
