package remote

import (
	"context"
	"fmt"

	"github.com/mrlokans/storyshelf/internal/entities"
	"github.com/mrlokans/storyshelf/internal/library"
	"github.com/mrlokans/storyshelf/internal/progress"
)

// Request is one decoded command. Serve runs it against the library and
// writes the reply (and any streamed frames) to the exchange.
type Request interface {
	Command() Command
	Serve(ctx context.Context, x *exchange) error
}

type (
	PingRequest        struct{}
	GetMetadataRequest struct{ LUID string }
	GetStoryRequest    struct{ LUID string }
	SaveStoryRequest   struct{ LUID string }
	ImportRequest      struct{ URL, LUID string }
	DeleteStoryRequest struct{ LUID string }
	GetCoverRequest    struct{ LUID string }

	GetCustomCoverRequest struct {
		Kind library.CoverKind
		Key  string
	}

	SetCoverRequest struct {
		Kind library.CoverKind
		Key  string
		LUID string
	}

	ChangeSTARequest struct {
		LUID, Source, Title, Author string
	}

	ExitRequest struct{}
)

// decodeRequest maps a command name and its arguments onto a Request.
func decodeRequest(cmd Command, args []string) (Request, error) {
	arg := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}
	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%w: %s needs %d arguments, got %d", ErrProtocol, cmd, n, len(args))
		}
		return nil
	}

	switch cmd {
	case CmdPing:
		return PingRequest{}, nil
	case CmdGetMetadata:
		if err := need(1); err != nil {
			return nil, err
		}
		return GetMetadataRequest{LUID: arg(0)}, nil
	case CmdGetStory:
		if err := need(1); err != nil {
			return nil, err
		}
		return GetStoryRequest{LUID: arg(0)}, nil
	case CmdSaveStory:
		return SaveStoryRequest{LUID: arg(0)}, nil
	case CmdImport:
		if err := need(1); err != nil {
			return nil, err
		}
		return ImportRequest{URL: arg(0), LUID: arg(1)}, nil
	case CmdDeleteStory:
		if err := need(1); err != nil {
			return nil, err
		}
		return DeleteStoryRequest{LUID: arg(0)}, nil
	case CmdGetCover:
		if err := need(1); err != nil {
			return nil, err
		}
		return GetCoverRequest{LUID: arg(0)}, nil
	case CmdGetCustomCover, CmdGetSourceCover:
		if err := need(2); err != nil {
			return nil, err
		}
		kind := library.CoverKind(arg(0))
		if !kind.Valid() {
			return nil, fmt.Errorf("%w: unknown cover kind %q", ErrProtocol, kind)
		}
		return GetCustomCoverRequest{Kind: kind, Key: arg(1)}, nil
	case CmdSetCover:
		if err := need(3); err != nil {
			return nil, err
		}
		kind := library.CoverKind(arg(0))
		if !kind.Valid() {
			return nil, fmt.Errorf("%w: unknown cover kind %q", ErrProtocol, kind)
		}
		return SetCoverRequest{Kind: kind, Key: arg(1), LUID: arg(2)}, nil
	case CmdChangeSTA, CmdChangeSource:
		if err := need(4); err != nil {
			return nil, err
		}
		return ChangeSTARequest{LUID: arg(0), Source: arg(1), Title: arg(2), Author: arg(3)}, nil
	case CmdExit:
		return ExitRequest{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown command %q", ErrProtocol, cmd)
	}
}

// exchange is the server side of one authenticated command.
type exchange struct {
	lib     library.Contract
	session *session
	fwd     *forwarder
	exit    func()

	replied bool
}

func (x *exchange) reply(payload any) error {
	frame, err := replyFrame(payload)
	if err != nil {
		return err
	}
	x.replied = true
	return x.session.send(frame)
}

// absent tells the client the requested object does not exist.
func (x *exchange) absent() error {
	x.replied = true
	return x.session.send(absentFrame())
}

// progress returns a node whose changes are forwarded to the client.
func (x *exchange) progress(name string) (*progress.Progress, func()) {
	return x.fwd.attach(name)
}

func (PingRequest) Command() Command { return CmdPing }

func (PingRequest) Serve(ctx context.Context, x *exchange) error {
	return x.reply(ReplyPong)
}

func (GetMetadataRequest) Command() Command { return CmdGetMetadata }

// Serve answers "*" with every story and a LUID with that story only (or
// absent).
func (r GetMetadataRequest) Serve(ctx context.Context, x *exchange) error {
	if r.LUID != AllStories {
		meta, err := x.lib.GetInfo(ctx, r.LUID)
		if err != nil {
			return err
		}
		if meta == nil {
			return x.absent()
		}
		return x.reply(meta.WithoutCover())
	}

	pg, detach := x.progress("metadata")
	defer detach()

	metas, err := x.lib.GetMetas(ctx, pg)
	if err != nil {
		return err
	}
	out := make([]*entities.MetaData, 0, len(metas))
	for _, meta := range metas {
		out = append(out, meta.WithoutCover())
	}
	return x.reply(out)
}

func (GetStoryRequest) Command() Command { return CmdGetStory }

// Serve sends the metadata without its cover as the reply, then the parts
// of the story. A story the library cannot read is answered as absent.
func (r GetStoryRequest) Serve(ctx context.Context, x *exchange) error {
	pg, detach := x.progress("story")
	story, err := x.lib.GetStory(ctx, r.LUID, nil, pg)
	detach()
	if err != nil {
		return err
	}
	if story == nil {
		return x.absent()
	}

	if err := x.reply(story.Meta.WithoutCover()); err != nil {
		return err
	}
	return x.session.sendParts(BreakStory(story))
}

func (SaveStoryRequest) Command() Command { return CmdSaveStory }

// Serve acknowledges the command, receives the parts of a story and saves
// it. The reply is the LUID the story was saved under.
func (r SaveStoryRequest) Serve(ctx context.Context, x *exchange) error {
	if err := x.session.ack(); err != nil {
		return err
	}

	var rb Rebuilder
	if err := x.session.receiveParts(&rb); err != nil {
		return err
	}
	story := rb.Story()
	if story == nil {
		return fmt.Errorf("%w: no story part received", ErrProtocol)
	}

	pg, detach := x.progress("save")
	defer detach()

	saved, err := x.lib.Save(ctx, story, r.LUID, pg)
	if err != nil {
		return err
	}
	return x.reply(saved.Meta.LUID)
}

func (ImportRequest) Command() Command { return CmdImport }

func (r ImportRequest) Serve(ctx context.Context, x *exchange) error {
	pg, detach := x.progress("import")
	defer detach()

	meta, err := x.lib.Import(ctx, r.URL, r.LUID, pg)
	if err != nil {
		return err
	}
	return x.reply(meta.WithoutCover())
}

func (DeleteStoryRequest) Command() Command { return CmdDeleteStory }

func (r DeleteStoryRequest) Serve(ctx context.Context, x *exchange) error {
	if err := x.lib.Delete(ctx, r.LUID); err != nil {
		return err
	}
	return x.reply(r.LUID)
}

func (GetCoverRequest) Command() Command { return CmdGetCover }

func (r GetCoverRequest) Serve(ctx context.Context, x *exchange) error {
	cover, err := x.lib.GetCover(ctx, r.LUID)
	if err != nil {
		return err
	}
	if cover == nil {
		return x.absent()
	}
	return x.reply(cover)
}

func (GetCustomCoverRequest) Command() Command { return CmdGetCustomCover }

func (r GetCustomCoverRequest) Serve(ctx context.Context, x *exchange) error {
	cover, err := x.lib.GetCustomCover(ctx, r.Kind, r.Key)
	if err != nil {
		return err
	}
	if cover == nil {
		return x.absent()
	}
	return x.reply(cover)
}

func (SetCoverRequest) Command() Command { return CmdSetCover }

func (r SetCoverRequest) Serve(ctx context.Context, x *exchange) error {
	var err error
	switch r.Kind {
	case library.CoverSource:
		err = x.lib.SetSourceCover(ctx, r.Key, r.LUID)
	case library.CoverAuthor:
		err = x.lib.SetAuthorCover(ctx, r.Key, r.LUID)
	}
	if err != nil {
		return err
	}
	return x.reply(true)
}

func (ChangeSTARequest) Command() Command { return CmdChangeSTA }

func (r ChangeSTARequest) Serve(ctx context.Context, x *exchange) error {
	pg, detach := x.progress("change")
	defer detach()

	if err := x.lib.ChangeSTA(ctx, r.LUID, r.Source, r.Title, r.Author, pg); err != nil {
		return err
	}
	return x.reply(true)
}

func (ExitRequest) Command() Command { return CmdExit }

func (ExitRequest) Serve(ctx context.Context, x *exchange) error {
	if err := x.reply(ReplyBye); err != nil {
		return err
	}
	x.exit()
	return nil
}
