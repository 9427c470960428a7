package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/bastiangx/autocomplete/pkg/protocol"
	"github.com/bastiangx/autocomplete/pkg/suggest"
	"github.com/charmbracelet/log"
)

// maxLineBytes is far above any valid command; longer lines are discarded whole and
// answered with a parse error.
const maxLineBytes = 4096

// Handler answers protocol commands. It holds no per-connection state and can serve
// many connections at once.
type Handler struct {
	engine      suggest.Suggester
	logger      *log.Logger
	idleTimeout time.Duration
	commands    atomic.Int64
}

func NewHandler(engine suggest.Suggester, logger *log.Logger, idleTimeout time.Duration) *Handler {
	return &Handler{
		engine:      engine,
		logger:      logger,
		idleTimeout: idleTimeout,
	}
}

// Commands returns the number of lines dispatched so far.
func (h *Handler) Commands() int64 {
	return h.commands.Load()
}

// session is the state of a single connection.
type session struct {
	h      *Handler
	rw     io.ReadWriter
	reader *bufio.Reader
	writer *bufio.Writer
	logger *log.Logger
}

// Serve runs the read/dispatch/respond loop on rw until the peer goes away, a write
// fails or ctx is done. A clean close returns nil. If rw has a SetReadDeadline method a
// read blocked when ctx is done is interrupted; other streams see ctx at the next line.
func (h *Handler) Serve(ctx context.Context, rw io.ReadWriter) error {
	logger := h.logger
	if conn, ok := rw.(net.Conn); ok {
		logger = logger.With("remote", conn.RemoteAddr().String())
	}

	s := &session{
		h:      h,
		rw:     rw,
		reader: bufio.NewReaderSize(rw, maxLineBytes),
		writer: bufio.NewWriter(rw),
		logger: logger,
	}

	// wake a blocked read when ctx is done
	if d, ok := rw.(readDeadliner); ok {
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-ctx.Done():
				if err := d.SetReadDeadline(time.Now()); err != nil {
					logger.Debug("Cannot interrupt read", "err", err)
				}
			case <-done:
			}
		}()
	}
	return s.run(ctx)
}

type readDeadliner interface {
	SetReadDeadline(time.Time) error
}

// FileStream serves the protocol over a file and a writer, such as stdin and stdout.
// Read deadlines are passed to In, which supports them for pipes but not for every
// terminal.
type FileStream struct {
	In  *os.File
	Out io.Writer
}

func (s FileStream) Read(p []byte) (int, error)  { return s.In.Read(p) }
func (s FileStream) Write(p []byte) (int, error) { return s.Out.Write(p) }

func (s FileStream) SetReadDeadline(t time.Time) error {
	return s.In.SetReadDeadline(t)
}

func (s *session) run(ctx context.Context) error {
	s.logger.Debug("Connected")
	defer s.logger.Debug("Disconnected")

	if err := s.respond(protocol.Banner); err != nil {
		return err
	}

	for {
		// the deadline is set before ctx is checked so a shutdown nudge is never overwritten
		s.setDeadline()
		if ctx.Err() != nil {
			return nil
		}

		line, tooLong, err := s.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) && (tooLong || strings.TrimSpace(line) != "") {
				// answer an unterminated last line before closing
				s.respond(s.dispatch(line, tooLong))
			}
			return s.closeReason(err)
		}

		if err := s.respond(s.dispatch(line, tooLong)); err != nil {
			return err
		}
	}
}

func (s *session) setDeadline() {
	if s.h.idleTimeout <= 0 {
		return
	}
	if conn, ok := s.rw.(readDeadliner); ok {
		conn.SetReadDeadline(time.Now().Add(s.h.idleTimeout))
	}
}

// readLine returns the next line including its terminator.
func (s *session) readLine() (string, bool, error) {
	tooLong := false
	for {
		chunk, err := s.reader.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			tooLong = true
			continue
		}
		if tooLong {
			return "", true, err
		}
		return string(chunk), false, err
	}
}

// closeReason maps read errors that mean "the connection is over" to nil.
func (s *session) closeReason(err error) error {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed), errors.Is(err, syscall.ECONNRESET):
		return nil
	case errors.Is(err, os.ErrDeadlineExceeded):
		s.logger.Debug("Read deadline reached, closing")
		return nil
	}
	return err
}

func (s *session) respond(msg string) error {
	if _, err := s.writer.WriteString(protocol.Terminate(msg)); err != nil {
		return err
	}
	return s.writer.Flush()
}

// dispatch turns one input line into its response. It never panics.
func (s *session) dispatch(line string, tooLong bool) (resp string) {
	s.h.commands.Add(1)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered from panic during dispatch", "panic", r, "line", strings.TrimSpace(line))
			resp = protocol.RetryMessage
		}
	}()

	if tooLong {
		s.logger.Debug("Discarded overlong line")
		return protocol.ParseErrorMessage
	}

	cmd, err := protocol.Parse(line)
	if err != nil {
		var perr *protocol.ParseError
		if errors.As(err, &perr) {
			s.logger.Debug("Rejected command", "input", perr.Input)
			return perr.Error()
		}
		s.logger.Errorf("Parsing command: %v", err)
		return protocol.RetryMessage
	}

	switch c := cmd.(type) {
	case protocol.GetSuggestions:
		return s.getSuggestions(c.Prefix)
	default:
		s.logger.Errorf("Unhandled command type %T", cmd)
		return protocol.RetryMessage
	}
}

func (s *session) getSuggestions(prefix string) string {
	start := time.Now()
	entries, err := s.h.engine.Suggest(prefix)
	elapsed := time.Since(start)

	switch {
	case errors.Is(err, suggest.ErrSuggestionsNotFound):
		s.logger.Debug("No suggestions", "prefix", prefix, "took", elapsed)
		return protocol.NotFoundMessage
	case err != nil:
		s.logger.Errorf("Suggesting for prefix '%s': %v", prefix, err)
		return protocol.RetryMessage
	}

	words := make([]string, len(entries))
	for i, e := range entries {
		words[i] = e.Word
	}
	s.logger.Debug("Suggestions served", "prefix", prefix, "count", len(words), "took", elapsed)
	return protocol.FormatSuggestions(words)
}
