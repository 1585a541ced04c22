package client

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stregea/PartyChat/internal/protocol"
)

// Connection is a live, logged-in session with a PartyChat server. Dial runs
// the handshake before returning, so a Connection always starts with the
// transcript snapshot already applied to its room.
type Connection struct {
	conn    *websocket.Conn
	room    *ChatRoom
	user    protocol.User
	writeMu sync.Mutex

	done     chan struct{}
	stopOnce sync.Once
	err      error
}

// Dial connects to the server, logs in under the given username, and starts
// the receive loop. It returns protocol.ErrInvalidUsername or
// protocol.ErrUserAlreadyExists when the server rejects the login.
func Dial(host string, port int, username string) (*Connection, error) {
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/ws",
	}

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial(u.String(), nil)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", u.Host, err)
	}

	c := &Connection{
		conn: conn,
		room: NewChatRoom(),
		user: protocol.User{Username: username},
		done: make(chan struct{}),
	}

	if err := c.login(username); err != nil {
		_ = conn.Close()
		return nil, err
	}

	go c.run()
	return c, nil
}

// login sends the LOGIN request and interprets the reply. On success it also
// consumes the transcript snapshot that follows.
func (c *Connection) login(username string) error {
	if err := c.write(protocol.NewLogin(username)); err != nil {
		return err
	}

	reply, err := c.read()
	if err != nil {
		return err
	}

	switch reply.Type {
	case protocol.TypeLoginSuccess:
	case protocol.TypeInvalidUsername:
		return protocol.ErrInvalidUsername
	case protocol.TypeUserAlreadyExists:
		return protocol.ErrUserAlreadyExists
	case protocol.TypeError:
		return fmt.Errorf("server error: %s", reply.Reason)
	default:
		return fmt.Errorf("unexpected %s reply to login", reply.Type)
	}

	snapshot, err := c.read()
	if err != nil {
		return err
	}
	if snapshot.Type != protocol.TypeChatRoom {
		return fmt.Errorf("expected transcript snapshot, got %s", snapshot.Type)
	}
	c.room.SetSnapshot(snapshot.Transcript)
	return nil
}

// run receives server requests until the stream ends or the server reports an
// unrecoverable error, in which case the session terminates immediately.
func (c *Connection) run() {
	for {
		req, err := c.read()
		if err != nil {
			c.stop(nil)
			return
		}

		switch req.Type {
		case protocol.TypeMessageSent:
			if req.Message != nil {
				c.room.Add(*req.Message)
			}
		case protocol.TypeError:
			c.stop(fmt.Errorf("server error: %s", req.Reason))
			return
		default:
		}
	}
}

// Send submits one chat message. The send timestamp travels with the request
// but the server stamps its own commit time on the broadcast.
func (c *Connection) Send(body string) error {
	return c.write(protocol.NewSendMessage(time.Now().UnixMilli(), body))
}

// Room returns the locally mirrored chat room.
func (c *Connection) Room() *ChatRoom {
	return c.room
}

// User returns the identity this session logged in under.
func (c *Connection) User() protocol.User {
	return c.user
}

// Done is closed when the session ends, for any reason.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Err reports why the session ended. It is meaningful only after Done is
// closed; a clean disconnect yields nil.
func (c *Connection) Err() error {
	<-c.done
	return c.err
}

// Close ends the session, notifying the server when the socket is still up.
func (c *Connection) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	c.stop(nil)
	return nil
}

func (c *Connection) stop(err error) {
	c.stopOnce.Do(func() {
		c.err = err
		_ = c.conn.Close()
		close(c.done)
	})
}

func (c *Connection) write(req protocol.Request) error {
	frame, err := req.Encode()
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("write %s request: %w", req.Type, err)
	}
	return nil
}

func (c *Connection) read() (protocol.Request, error) {
	_, frame, err := c.conn.ReadMessage()
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return protocol.Request{}, err
		}
		return protocol.Request{}, fmt.Errorf("read request: %w", err)
	}
	return protocol.Decode(frame)
}
