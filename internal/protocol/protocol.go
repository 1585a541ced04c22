// Package protocol defines the typed requests exchanged between the PartyChat
// server and its clients, together with the JSON envelope that frames them on
// the wire. Every WebSocket message carries exactly one request.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// RequestType identifies the kind of request carried by an envelope.
type RequestType string

// The request types of the chat protocol. LOGIN and SEND_MESSAGE travel from
// client to server; every other type travels from server to client.
const (
	TypeLogin             RequestType = "LOGIN"
	TypeLoginSuccess      RequestType = "LOGIN_SUCCESS"
	TypeChatRoom          RequestType = "CHAT_ROOM"
	TypeInvalidUsername   RequestType = "INVALID_USERNAME"
	TypeUserAlreadyExists RequestType = "USER_ALREADY_EXISTS"
	TypeSendMessage       RequestType = "SEND_MESSAGE"
	TypeMessageSent       RequestType = "MESSAGE_SENT"
	TypeError             RequestType = "ERROR"
)

var knownTypes = map[RequestType]struct{}{
	TypeLogin:             {},
	TypeLoginSuccess:      {},
	TypeChatRoom:          {},
	TypeInvalidUsername:   {},
	TypeUserAlreadyExists: {},
	TypeSendMessage:       {},
	TypeMessageSent:       {},
	TypeError:             {},
}

// Login outcome errors, shared by the server registry and the client session.
var (
	ErrInvalidUsername   = errors.New("invalid username")
	ErrUserAlreadyExists = errors.New("user already exists")
)

// User identifies a chat participant by display name. Names are compared
// exactly as sent: no trimming, no case folding.
type User struct {
	Username string `json:"username"`
}

// Message is one chat message. SentAt is milliseconds since the Unix epoch,
// assigned by the server when the message is committed.
type Message struct {
	Author User   `json:"author"`
	SentAt int64  `json:"sent_at"`
	Body   string `json:"body"`
}

// Request is the wire envelope. Type is always present; the payload fields are
// populated according to the request type.
type Request struct {
	Type       RequestType `json:"type"`
	User       *User       `json:"user,omitempty"`
	Message    *Message    `json:"message,omitempty"`
	Transcript string      `json:"transcript,omitempty"`
	Reason     string      `json:"reason,omitempty"`
}

// NewLogin builds the LOGIN request a client sends first on every connection.
func NewLogin(username string) Request {
	return Request{Type: TypeLogin, User: &User{Username: username}}
}

// NewLoginSuccess builds the reply to a valid, available username.
func NewLoginSuccess() Request {
	return Request{Type: TypeLoginSuccess}
}

// NewChatRoom builds the transcript snapshot sent immediately after a
// successful login. An empty snapshot means the room has no history yet.
func NewChatRoom(snapshot string) Request {
	return Request{Type: TypeChatRoom, Transcript: snapshot}
}

// NewInvalidUsername builds the reply to a login with an empty username.
func NewInvalidUsername() Request {
	return Request{Type: TypeInvalidUsername, Reason: string(TypeInvalidUsername)}
}

// NewUserAlreadyExists builds the reply to a login with a name that is
// currently registered.
func NewUserAlreadyExists() Request {
	return Request{Type: TypeUserAlreadyExists, Reason: string(TypeUserAlreadyExists)}
}

// NewSendMessage builds the SEND_MESSAGE request. The author is implied by
// the session, so only the timestamp and body are carried.
func NewSendMessage(sentAt int64, body string) Request {
	return Request{Type: TypeSendMessage, Message: &Message{SentAt: sentAt, Body: body}}
}

// NewMessageSent builds the fan-out notification for one committed message.
func NewMessageSent(msg Message) Request {
	return Request{Type: TypeMessageSent, Message: &msg}
}

// NewError builds the ERROR request. A client receiving it must terminate
// its session.
func NewError(reason string) Request {
	return Request{Type: TypeError, Reason: reason}
}

// Encode serializes the request into a single wire frame.
func (r Request) Encode() ([]byte, error) {
	frame, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", r.Type, err)
	}
	return frame, nil
}

// Decode parses a wire frame into a request, rejecting frames without a
// recognized request type.
func Decode(frame []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(frame, &req); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}
	if req.Type == "" {
		return Request{}, errors.New("decode request: missing type")
	}
	if _, ok := knownTypes[req.Type]; !ok {
		return Request{}, fmt.Errorf("decode request: unknown type %q", req.Type)
	}
	return req, nil
}

// FormatLine renders a committed message as one transcript line,
// "HH:MM:SS | <username>: <body>". The server transcript and the client's
// local chat room use the same rendering.
func FormatLine(msg Message) string {
	stamp := time.UnixMilli(msg.SentAt).Format("15:04:05")
	return fmt.Sprintf("%s | %s: %s", stamp, msg.Author.Username, msg.Body)
}
