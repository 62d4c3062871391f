package tcpserver

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gridguard/leop-server/internal/adapter/observability"
	"github.com/gridguard/leop-server/internal/domain"
)

// Submitter admits plan requests into the pipeline.
type Submitter interface {
	Submit(req domain.PlanRequest) error
}

type eventKind int

const (
	evAttach eventKind = iota // new connection handed over by the pool
	evLine                    // reader delivered one client line
	evClosed                  // reader saw EOF, error, or idle timeout
	evDone                    // pipeline finished; PROCESSING → READY
)

// event is the single message type flowing into a worker's loop. The
// slot generation guards against a recycled slot receiving a stale
// reader's or the pipeline's signal for a previous occupant.
type event struct {
	kind eventKind
	slot int
	gen  uint64
	line string
	conn net.Conn
}

type slot struct {
	state      connState
	conn       net.Conn
	gen        uint64
	lastActive time.Time
}

// Worker owns a fixed slot table of connections. All slot mutation
// happens on the worker's own goroutine; readers and the pipeline talk
// to it exclusively through the events channel.
type Worker struct {
	id          int
	maxClients  int
	bufSize     int
	idleTimeout time.Duration
	poll        time.Duration
	submitter   Submitter

	events chan event
	stop   chan struct{}
	done   chan struct{}

	// count is read by the pool for least-loaded selection. Reserved by
	// the pool on Add, released by the worker when a slot frees.
	count      atomic.Int32
	genCounter uint64
	slots      []slot
}

func newWorker(id int, opts PoolOptions, submitter Submitter) *Worker {
	return &Worker{
		id:          id,
		maxClients:  opts.MaxClientsPerWorker,
		bufSize:     opts.BufferSize,
		idleTimeout: opts.IdleTimeout,
		poll:        opts.PollInterval,
		submitter:   submitter,
		events:      make(chan event, opts.MaxClientsPerWorker*4),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
		slots:       make([]slot, opts.MaxClientsPerWorker),
	}
}

func (w *Worker) start() {
	go w.run()
}

// attach hands a connection to the worker. The pool has already
// reserved a count slot; if the worker is stopping, the reservation is
// rolled back and the socket closed.
func (w *Worker) attach(conn net.Conn) {
	select {
	case w.events <- event{kind: evAttach, conn: conn}:
	case <-w.stop:
		_ = conn.Close()
		w.count.Add(-1)
	}
}

// send delivers an event unless the worker is stopping.
func (w *Worker) send(ev event) {
	select {
	case w.events <- ev:
	case <-w.stop:
	}
}

func (w *Worker) run() {
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()
	for {
		select {
		case <-w.stop:
			w.closeAll()
			close(w.done)
			return
		case ev := <-w.events:
			w.handle(ev)
		case <-ticker.C:
			w.sweepIdle()
		}
	}
}

func (w *Worker) handle(ev event) {
	switch ev.kind {
	case evAttach:
		w.handleAttach(ev.conn)
		return
	}

	s := &w.slots[ev.slot]
	if s.state == stateDisconnected || s.gen != ev.gen {
		return // stale signal for a recycled slot
	}

	switch ev.kind {
	case evLine:
		s.lastActive = time.Now()
		w.handleLine(ev.slot, s, ev.line)
	case evClosed:
		w.closeSlot(ev.slot)
	case evDone:
		if s.state == stateProcessing {
			s.state = stateReady
		}
	}
}

func (w *Worker) handleAttach(conn net.Conn) {
	idx := w.freeSlot()
	if idx < 0 {
		// cannot happen while the pool reserves before attach
		slog.Error("no free slot despite reservation", slog.Int("worker", w.id))
		_ = conn.Close()
		w.count.Add(-1)
		return
	}

	w.genCounter++
	w.slots[idx] = slot{
		state:      stateConnected,
		conn:       conn,
		gen:        w.genCounter,
		lastActive: time.Now(),
	}
	observability.ConnectionsActive.Inc()

	if _, err := conn.Write([]byte(banner)); err != nil {
		w.closeSlot(idx)
		return
	}
	w.slots[idx].state = stateReady

	slog.Debug("connection attached",
		slog.Int("worker", w.id),
		slog.Int("slot", idx),
		slog.String("remote", conn.RemoteAddr().String()))

	go w.readLoop(idx, w.slots[idx].gen, conn)
}

// readLoop runs one goroutine per connection, converting the blocking
// socket into line events. The read deadline doubles as the idle
// timeout.
func (w *Worker) readLoop(idx int, gen uint64, conn net.Conn) {
	r := bufio.NewReaderSize(conn, w.bufSize)
	for {
		if w.idleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(w.idleTimeout))
		}
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			w.send(event{kind: evLine, slot: idx, gen: gen, line: line})
		}
		if err != nil {
			w.send(event{kind: evClosed, slot: idx, gen: gen})
			return
		}
	}
}

func (w *Worker) handleLine(idx int, s *slot, raw string) {
	if s.state == stateProcessing {
		// input during processing is dropped; the response is on its way
		return
	}

	line := strings.TrimSpace(raw)
	cmd, location, region := parseCommand(line)
	switch cmd {
	case "", "help":
		observability.CommandsTotal.WithLabelValues("help").Inc()
		w.write(s, helpText)
	case "forecast":
		observability.CommandsTotal.WithLabelValues("forecast").Inc()
		w.write(s, processingAck)
		req := domain.PlanRequest{
			ID:       uuid.NewString(),
			Location: location,
			Region:   region,
			Conn:     &clientHandle{w: w, slot: idx, gen: s.gen, conn: s.conn},
		}
		err := w.submitter.Submit(req)
		switch {
		case err == nil:
			s.state = stateProcessing
		case errors.Is(err, domain.ErrQueueFull), errors.Is(err, domain.ErrQueueClosed):
			w.write(s, queueFullNotice)
		default:
			slog.Error("submit failed", slog.Int("worker", w.id), slog.Any("error", err))
			w.write(s, queueFullNotice)
		}
	default:
		observability.CommandsTotal.WithLabelValues("unknown").Inc()
		w.write(s, unknownCommandNotice)
	}
}

func (w *Worker) write(s *slot, text string) {
	if _, err := s.conn.Write([]byte(text)); err != nil {
		slog.Debug("client write failed", slog.Int("worker", w.id), slog.Any("error", err))
	}
}

func (w *Worker) freeSlot() int {
	for i := range w.slots {
		if w.slots[i].state == stateDisconnected {
			return i
		}
	}
	return -1
}

func (w *Worker) closeSlot(idx int) {
	s := &w.slots[idx]
	if s.state == stateDisconnected {
		return
	}
	_ = s.conn.Close()
	*s = slot{}
	w.count.Add(-1)
	observability.ConnectionsActive.Dec()
	slog.Debug("connection closed", slog.Int("worker", w.id), slog.Int("slot", idx))
}

func (w *Worker) closeAll() {
	for i := range w.slots {
		if w.slots[i].state != stateDisconnected {
			w.closeSlot(i)
		}
	}
}

// sweepIdle force-closes connections whose last activity exceeds the
// idle timeout. Readers enforce the same bound via deadlines; the sweep
// additionally covers slots stuck in PROCESSING.
func (w *Worker) sweepIdle() {
	if w.idleTimeout <= 0 {
		return
	}
	cutoff := time.Now().Add(-w.idleTimeout)
	for i := range w.slots {
		s := &w.slots[i]
		if s.state != stateDisconnected && s.lastActive.Before(cutoff) {
			slog.Info("closing idle connection", slog.Int("worker", w.id), slog.Int("slot", i))
			w.closeSlot(i)
		}
	}
}

// clientHandle is the pipeline's handle to one connection occupancy.
// Writes go straight to the socket; Release hops back onto the worker
// goroutine, which performs the PROCESSING → READY transition. The
// generation makes both safe after the slot has been recycled.
type clientHandle struct {
	w    *Worker
	slot int
	gen  uint64
	conn net.Conn
}

func (h *clientHandle) WriteString(s string) error {
	_, err := h.conn.Write([]byte(s))
	return err
}

func (h *clientHandle) Release() {
	h.w.send(event{kind: evDone, slot: h.slot, gen: h.gen})
}
