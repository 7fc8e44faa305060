// Package remote lets a library be used over the network.
//
// # Protocol
//
// Every logical call opens its own WebSocket connection to GET /library and
// exchanges JSON frames:
//
//	client                               server
//	  hello {version}                ->
//	                                 <-  hello {version, challenge}
//	  command {hash, challenge,      ->
//	           command, args}
//	                                 <-  progress {[min,max,value]}   (0..n)
//	  ack                            ->
//	                                 <-  part {...}                   (GET_STORY)
//	  ack                            ->
//	                                 <-  reply {payload}
//
// SAVE_STORY is acknowledged by the server before the client streams the
// story parts, each acknowledged in turn and followed by an empty part.
//
// hash is the hex MD5 of the shared key. challenge answers the server's
// per-connection challenge with blake2b-256(key + " <==> " + challenge).
// A command failing either check gets a reply with a null payload and has
// no effect. Lookups that find nothing answer with an "absent" reply
// instead, so a null reply always means the command was rejected. An address collecting too many such failures is refused with
// 429 Too Many Requests until its lockout expires.
package remote

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mrlokans/storyshelf/internal/entities"
	"github.com/mrlokans/storyshelf/internal/library"
)

// Version of the wire protocol. Both sides must agree.
const Version = 1

// Command names
type Command string

const (
	CmdPing           Command = "PING"
	CmdGetMetadata    Command = "GET_METADATA"
	CmdGetStory       Command = "GET_STORY"
	CmdSaveStory      Command = "SAVE_STORY"
	CmdImport         Command = "IMPORT"
	CmdDeleteStory    Command = "DELETE_STORY"
	CmdGetCover       Command = "GET_COVER"
	CmdGetCustomCover Command = "GET_CUSTOM_COVER"
	CmdGetSourceCover Command = "GET_SOURCE_COVER" // alias of GET_CUSTOM_COVER
	CmdSetCover       Command = "SET_COVER"
	CmdChangeSTA      Command = "CHANGE_STA"
	CmdChangeSource   Command = "CHANGE_SOURCE" // alias of CHANGE_STA
	CmdExit           Command = "EXIT"
)

// Fixed replies and arguments
const (
	ReplyPong  = "PONG"
	ReplyBye   = "BYE"
	AllStories = "*"
)

var (
	// ErrTransport wraps every connection level failure
	ErrTransport = errors.New("remote transport error")

	// ErrVersion indicates the peer speaks another protocol version
	ErrVersion = errors.New("remote protocol version mismatch")

	// ErrProtocol indicates an unexpected or malformed frame
	ErrProtocol = errors.New("remote protocol violation")

	// ErrUnavailable is returned while the client refuses to dial after
	// repeated connection failures
	ErrUnavailable = errors.New("remote library unavailable")

	// ErrRemote carries a failure reported by the server
	ErrRemote = errors.New("remote library error")

	// ErrLockedOut is returned when the server refuses this address after
	// too many rejected commands
	ErrLockedOut = fmt.Errorf("remote locked out: %w", library.ErrUnauthorized)
)

// Kind tells what a frame carries.
type Kind string

const (
	KindHello    Kind = "hello"
	KindCommand  Kind = "command"
	KindReply    Kind = "reply"
	KindProgress Kind = "progress"
	KindPart     Kind = "part"
	KindAck      Kind = "ack"
)

// Frame is one WebSocket message.
type Frame struct {
	Kind      Kind            `json:"kind"`
	Version   int             `json:"version,omitempty"`
	Hash      string          `json:"hash,omitempty"`
	Challenge string          `json:"challenge,omitempty"`
	Command   Command         `json:"command,omitempty"`
	Args      []string        `json:"args,omitempty"`
	Progress  []int           `json:"progress,omitempty"`
	Part      *Part           `json:"part,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Error     string          `json:"error,omitempty"`
	Code      ErrorCode       `json:"code,omitempty"`
}

// IsNull reports whether the frame carries no payload.
func (f *Frame) IsNull() bool {
	return len(f.Payload) == 0 || string(f.Payload) == "null"
}

// Decode unmarshals the payload into v.
func (f *Frame) Decode(v any) error {
	if f.IsNull() {
		return nil
	}
	if err := json.Unmarshal(f.Payload, v); err != nil {
		return errors.Join(ErrProtocol, err)
	}
	return nil
}

// ErrorCode classifies a failure reported in a reply so the client can
// map it back onto the library errors.
type ErrorCode string

const (
	CodeNotFound    ErrorCode = "not_found"
	CodeReadOnly    ErrorCode = "read_only"
	CodeNoAdapter   ErrorCode = "no_adapter"
	CodeInvalidMeta ErrorCode = "invalid_meta"
	CodeBadRequest  ErrorCode = "bad_request"
	CodeInternal    ErrorCode = "internal"

	// CodeAbsent marks a reply to a lookup that found nothing. It carries
	// no error and no payload, unlike the null reply of a rejected command.
	CodeAbsent ErrorCode = "absent"
)

var codeErrors = map[ErrorCode]error{
	CodeNotFound:    library.ErrNotFound,
	CodeReadOnly:    library.ErrReadOnly,
	CodeNoAdapter:   library.ErrNoAdapter,
	CodeInvalidMeta: library.ErrInvalidMeta,
	CodeBadRequest:  ErrProtocol,
}

func codeOf(err error) ErrorCode {
	for code, target := range codeErrors {
		if errors.Is(err, target) {
			return code
		}
	}
	return CodeInternal
}

func errorFrame(err error) *Frame {
	return &Frame{Kind: KindReply, Error: err.Error(), Code: codeOf(err)}
}

func absentFrame() *Frame {
	return &Frame{Kind: KindReply, Code: CodeAbsent}
}

// IsAbsent reports whether the reply says the requested object does not
// exist (or cannot be read).
func (f *Frame) IsAbsent() bool {
	return f.Kind == KindReply && f.Code == CodeAbsent
}

// Err returns the failure carried by a reply, or nil.
func (f *Frame) Err() error {
	if f.Error == "" {
		return nil
	}
	if target, ok := codeErrors[f.Code]; ok {
		return fmt.Errorf("%w: %w: %s", ErrRemote, target, f.Error)
	}
	return fmt.Errorf("%w: %s", ErrRemote, f.Error)
}

func replyFrame(payload any) (*Frame, error) {
	if payload == nil {
		return &Frame{Kind: KindReply}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Frame{Kind: KindReply, Payload: data}, nil
}

// PartKind discriminates the objects of a decomposed story.
type PartKind string

const (
	PartStory     PartKind = "story"
	PartChapter   PartKind = "chapter"
	PartParagraph PartKind = "paragraph"
)

// Part is one object of a decomposed story. A part frame without a Part
// ends the stream.
type Part struct {
	Kind      PartKind            `json:"kind"`
	Story     *entities.Story     `json:"story,omitempty"`
	Chapter   *entities.Chapter   `json:"chapter,omitempty"`
	Paragraph *entities.Paragraph `json:"paragraph,omitempty"`
}
