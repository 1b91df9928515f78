// Package connection is the websocket client transport of a relay
// connection, with permessage-deflate used when the relay agrees to it.
package connection

import (
	"bytes"
	"compress/flate"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/Hubmakerlabs/aionostr/pkg/context"
	"github.com/Hubmakerlabs/aionostr/pkg/slog"
	"github.com/gobwas/httphead"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsflate"
	"github.com/gobwas/ws/wsutil"
)

var log, chk = slog.New(os.Stderr)

// MaxMessageSize is the write buffer size, messages longer than this are
// sent in several frames.
const MaxMessageSize = 512000

// C is safe for one reader and any number of writers. Replies to control
// frames are written by the reader under the same lock as messages.
type C struct {
	Conn              net.Conn
	mu                sync.Mutex
	enableCompression bool
	controlHandler    wsutil.FrameHandlerFunc
	control           bytes.Buffer
	flateReader       *wsflate.Reader
	reader            *wsutil.Reader
	flateWriter       *wsflate.Writer
	writer            *wsutil.Writer
	msgState          *wsflate.MessageState
}

// NewConnection dials the relay, offering compression.
func NewConnection(c context.T, url string,
	requestHeader http.Header) (connection *C, err error) {

	dialer := ws.Dialer{
		Header: ws.HandshakeHeaderHTTP(requestHeader),
		Extensions: []httphead.Option{
			wsflate.DefaultParameters.Option(),
		},
	}
	conn, _, hs, err := dialer.Dial(c, url)
	if chk.D(err) {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}
	enableCompression := false
	state := ws.StateClientSide
	for _, extension := range hs.Extensions {
		if string(extension.Name) == wsflate.ExtensionName {
			enableCompression = true
			state |= ws.StateExtended
			break
		}
	}
	var flateReader *wsflate.Reader
	var msgState wsflate.MessageState
	if enableCompression {
		msgState.SetCompressed(true)
		flateReader = wsflate.NewReader(nil,
			func(r io.Reader) wsflate.Decompressor {
				return flate.NewReader(r)
			})
	}
	connection = &C{
		Conn:              conn,
		enableCompression: enableCompression,
		msgState:          &msgState,
	}
	connection.controlHandler = wsutil.ControlFrameHandler(&connection.control,
		ws.StateClientSide)
	reader := &wsutil.Reader{
		Source: conn,
		State:  state,
		OnIntermediate: func(h ws.Header, r io.Reader) error {
			return connection.handleControl(h, r)
		},
		CheckUTF8: false,
		Extensions: []wsutil.RecvExtension{
			&msgState,
		},
	}
	var flateWriter *wsflate.Writer
	if enableCompression {
		flateWriter = wsflate.NewWriter(nil,
			func(w io.Writer) wsflate.Compressor {
				fw, e := flate.NewWriter(w, 4)
				if chk.E(e) {
					log.E.F("failed to create flate writer: %v", e)
				}
				return fw
			})
	}
	writer := wsutil.NewWriterSize(conn, state, ws.OpText, MaxMessageSize)
	writer.SetExtensions(&msgState)
	connection.flateReader = flateReader
	connection.reader = reader
	connection.flateWriter = flateWriter
	connection.writer = writer
	log.D.F("connected to %s compression=%v", url, enableCompression)
	return
}

// deadline applies the context deadline, if any, to the next network
// operation, returning a function that clears it.
func (c *C) deadline(cx context.T, set func(time.Time) error) func() {
	if d, ok := cx.Deadline(); ok {
		chk.T(set(d))
		return func() { chk.T(set(time.Time{})) }
	}
	return func() {}
}

// handleControl answers a ping or close frame. The reply is buffered and
// then written whole, so it never lands inside a message being written.
func (c *C) handleControl(h ws.Header, r io.Reader) (err error) {
	c.control.Reset()
	err = c.controlHandler(h, r)
	if c.control.Len() > 0 {
		c.mu.Lock()
		_, werr := c.Conn.Write(c.control.Bytes())
		c.mu.Unlock()
		if err == nil {
			err = werr
		}
	}
	return
}

// WriteMessage sends one text message.
func (c *C) WriteMessage(cx context.T, data []byte) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.deadline(cx, c.Conn.SetWriteDeadline)()
	if c.msgState.IsCompressed() && c.enableCompression {
		c.flateWriter.Reset(c.writer)
		if _, err = io.Copy(c.flateWriter, bytes.NewReader(data)); chk.D(err) {
			return fmt.Errorf("failed to write message: %w", err)
		}
		if err = c.flateWriter.Close(); chk.D(err) {
			return fmt.Errorf("failed to close flate writer: %w", err)
		}
	} else {
		if _, err = io.Copy(c.writer, bytes.NewReader(data)); chk.D(err) {
			return fmt.Errorf("failed to write message: %w", err)
		}
	}
	if err = c.writer.Flush(); chk.D(err) {
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	return nil
}

// ReadMessage copies the next text or binary message into buf, answering
// control frames on the way.
func (c *C) ReadMessage(cx context.T, buf io.Writer) (err error) {
	for {
		select {
		case <-cx.Done():
			return context.Cause(cx)
		default:
		}
		var h ws.Header
		if h, err = c.reader.NextFrame(); chk.T(err) {
			chk.T(c.Conn.Close())
			return fmt.Errorf("failed to advance frame: %w", err)
		}
		if h.OpCode.IsControl() {
			if err = c.handleControl(h, c.reader); chk.D(err) {
				return fmt.Errorf("failed to handle control frame: %w", err)
			}
		} else if h.OpCode == ws.OpBinary || h.OpCode == ws.OpText {
			break
		}
		if err = c.reader.Discard(); chk.D(err) {
			return fmt.Errorf("failed to discard: %w", err)
		}
	}
	if c.msgState.IsCompressed() && c.enableCompression {
		c.flateReader.Reset(c.reader)
		if _, err = io.Copy(buf, c.flateReader); chk.D(err) {
			return fmt.Errorf("failed to read message: %w", err)
		}
	} else {
		if _, err = io.Copy(buf, c.reader); chk.D(err) {
			return fmt.Errorf("failed to read message: %w", err)
		}
	}
	return nil
}

// Ping sends a ping control frame.
func (c *C) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return wsutil.WriteClientMessage(c.Conn, ws.OpPing, nil)
}

// Close sends a close frame, best effort, and closes the socket.
func (c *C) Close() (err error) {
	// the deadline also releases a write blocked on the lock holder
	_ = c.Conn.SetWriteDeadline(time.Now().Add(time.Second))
	c.mu.Lock()
	_ = c.Conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = ws.WriteFrame(c.Conn, ws.MaskFrameInPlace(ws.NewCloseFrame(
		ws.NewCloseFrameBody(ws.StatusNormalClosure, ""))))
	c.mu.Unlock()
	return c.Conn.Close()
}
