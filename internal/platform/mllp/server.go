package mllp

import (
	"bytes"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/hl7engine/internal/platform/hl7v2"
)

const (
	// StartBlock is the MLLP start-of-message byte (VT / vertical tab).
	StartBlock = 0x0B

	// EndBlock is the MLLP end-of-message byte (FS / file separator).
	EndBlock = 0x1C

	// CarriageReturn is the trailing CR after the end block.
	CarriageReturn = 0x0D

	// maxMessageSize is the maximum buffer size for a single MLLP message (1 MB).
	maxMessageSize = 1 << 20

	// readTimeout is the read deadline applied to each connection.
	readTimeout = 30 * time.Second
)

// Handler is called for each received HL7v2 message. It returns the reply to
// send back in wire format, or nil to send no response.
type Handler func(msg *hl7v2.Message) []byte

// Server listens for HL7v2 messages over MLLP/TCP.
type Server struct {
	addr     string
	handler  Handler
	logger   zerolog.Logger
	listener net.Listener
	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewServer creates a new MLLP server that will listen on the given address
// and dispatch parsed messages to handler.
func NewServer(addr string, handler Handler, logger zerolog.Logger) *Server {
	return &Server{
		addr:    addr,
		handler: handler,
		logger:  logger,
		conns:   make(map[net.Conn]struct{}),
		done:    make(chan struct{}),
	}
}

// Start begins listening for connections. It is non-blocking: the accept loop
// runs in a background goroutine.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("mllp: failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop()
	}()

	return nil
}

// Stop gracefully shuts down the server. It closes the listener, then closes
// all tracked connections, and waits for all goroutines to finish.
func (s *Server) Stop() error {
	close(s.done)

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}

	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()

	return err
}

// Addr returns the listener address string. This is especially useful when the
// server was started with port 0 (OS-assigned port).
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// acceptLoop runs in its own goroutine, accepting new TCP connections until
// the listener is closed.
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			s.logger.Error().Err(err).Msg("mllp accept error")
			return
		}

		s.trackConn(conn, true)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.trackConn(conn, false)
			defer conn.Close()
			s.handleConnection(conn)
		}()
	}
}

// trackConn adds or removes a connection from the tracked set.
func (s *Server) trackConn(conn net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}

// handleConnection reads MLLP-framed messages from conn, parses them,
// dispatches to the handler, and writes back any response.
func (s *Server) handleConnection(conn net.Conn) {
	buf := make([]byte, 0, 4096)
	readBuf := make([]byte, 4096)

	for {
		select {
		case <-s.done:
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))

		n, err := conn.Read(readBuf)
		if n > 0 {
			buf = append(buf, readBuf[:n]...)

			if len(buf) > maxMessageSize {
				s.logger.Warn().
					Str("remote", conn.RemoteAddr().String()).
					Msg("mllp message exceeds max size, closing connection")
				return
			}

			// Process all complete messages in the buffer.
			for {
				msgBytes, rest, found := Unframe(buf)
				if !found {
					break
				}
				buf = rest

				s.processMessage(conn, msgBytes)
			}
		}

		if err != nil {
			// Timeout or EOF is normal when idle or the client disconnects.
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				if len(buf) == 0 {
					return
				}
				continue
			}
			return
		}
	}
}

// processMessage parses a single message, calls the handler, and writes
// the response (if any) back to conn.
func (s *Server) processMessage(conn net.Conn, raw []byte) {
	msg, err := hl7v2.Parse(raw)
	if err != nil {
		// No control ID to reference, so no NAK can be addressed. Log and drop.
		s.logger.Error().Err(err).
			Str("remote", conn.RemoteAddr().String()).
			Msg("mllp parse error")
		return
	}

	s.logger.Info().
		Str("type", msg.Type).
		Str("trigger", msg.TriggerEvent).
		Str("control_id", msg.ControlID).
		Str("sending_app", msg.SendingApp).
		Msg("mllp message received")

	resp := s.handler(msg)
	if resp == nil {
		return
	}

	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if _, err := conn.Write(Frame(resp)); err != nil {
		s.logger.Error().Err(err).Msg("mllp write error")
	}
}

// Frame wraps raw HL7v2 bytes in MLLP framing:
//
//	<0x0B> + message + <0x1C><0x0D>
func Frame(data []byte) []byte {
	frame := make([]byte, 0, len(data)+3)
	frame = append(frame, StartBlock)
	frame = append(frame, data...)
	frame = append(frame, EndBlock, CarriageReturn)
	return frame
}

// Unframe extracts HL7v2 bytes from an MLLP frame. It looks for the first
// start block byte, then reads until end block + CR. It returns the extracted
// message, any remaining bytes after the frame, and whether a complete frame
// was found.
func Unframe(data []byte) (message []byte, rest []byte, found bool) {
	startIdx := bytes.IndexByte(data, StartBlock)
	if startIdx == -1 {
		return nil, data, false
	}

	endSeq := []byte{EndBlock, CarriageReturn}
	endIdx := bytes.Index(data[startIdx+1:], endSeq)
	if endIdx == -1 {
		return nil, data, false
	}
	endIdx = startIdx + 1 + endIdx

	return data[startIdx+1 : endIdx], data[endIdx+2:], true
}

// AckHandler returns a Handler that validates each message and replies with
// an application-accept ack, or an application-error ack carrying the first
// error finding when strict is set and the message fails validation.
func AckHandler(strict bool) Handler {
	return func(msg *hl7v2.Message) []byte {
		if strict {
			result := hl7v2.Validate(msg)
			if !result.Valid {
				desc := "message failed structural validation"
				for _, f := range result.Findings {
					if f.Severity == hl7v2.SeverityError {
						desc = f.Description
						break
					}
				}
				ack := hl7v2.GenerateAck(msg, hl7v2.AckApplicationError, desc, &hl7v2.ErrorCondition{
					Code:        "102", // data type error, per HL7 table 0357
					Description: desc,
				})
				return []byte(ack.String())
			}
		}
		ack := hl7v2.GenerateAck(msg, hl7v2.AckApplicationAccept, "", nil)
		return []byte(ack.String())
	}
}
