package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/mrlokans/storyshelf/internal/entities"
	"github.com/mrlokans/storyshelf/internal/library"
	"github.com/mrlokans/storyshelf/internal/metrics"
	"github.com/mrlokans/storyshelf/internal/progress"
)

const (
	defaultDialTimeout     = 5 * time.Second
	defaultBreakerFailures = 5
	defaultBreakerCooldown = 30 * time.Second
)

// ClientConfig configures a Client.
type ClientConfig struct {
	// URL of the library endpoint, e.g. ws://localhost:8080/library
	URL string
	Key string

	DialTimeout  time.Duration
	WriteTimeout time.Duration

	// Consecutive dial failures after which calls fail fast with
	// ErrUnavailable for BreakerCooldown
	BreakerFailures uint32
	BreakerCooldown time.Duration

	// Outputs used by Export, which runs locally
	Outputs []library.OutputFormat

	Metrics *metrics.Collector
	Logger  *zap.Logger
}

// Client is a library living on another host. Every call opens its own
// connection.
type Client struct {
	cfg     ClientConfig
	keyHash string
	dialer  *websocket.Dialer
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Collector
	logger  *zap.Logger
}

var _ library.Contract = (*Client)(nil)

// NewClient creates a Client. No connection is made until the first call.
func NewClient(cfg ClientConfig) *Client {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = defaultBreakerFailures
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = defaultBreakerCooldown
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("client").With(zap.String("url", cfg.URL))

	failures := cfg.BreakerFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "remote-library",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})

	return &Client{
		cfg:     cfg,
		keyHash: HashKey(cfg.Key),
		dialer:  &websocket.Dialer{HandshakeTimeout: cfg.DialTimeout},
		breaker: breaker,
		metrics: cfg.Metrics,
		logger:  logger,
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	var lockedOut bool
	res, err := c.breaker.Execute(func() (any, error) {
		dialCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
		defer cancel()
		ws, resp, err := c.dialer.DialContext(dialCtx, c.cfg.URL, nil)
		if err != nil && resp != nil && resp.StatusCode == http.StatusTooManyRequests {
			// the server is up, it refuses us
			lockedOut = true
			return nil, nil
		}
		return ws, err
	})
	if lockedOut {
		c.metrics.Dialed("locked")
		return nil, ErrLockedOut
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.metrics.Dialed("rejected")
		return nil, ErrUnavailable
	}
	if err != nil {
		c.metrics.Dialed("failed")
		c.logger.Warn("cannot reach remote library", zap.Error(err))
		return nil, fmt.Errorf("%w: dial: %w", ErrTransport, err)
	}
	c.metrics.Dialed("ok")
	return res.(*websocket.Conn), nil
}

// open dials, runs the handshake and sends the command.
func (c *Client) open(ctx context.Context, cmd Command, args ...string) (*session, error) {
	ws, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	sess := newSession(ws, c.cfg.WriteTimeout, c.metrics, c.logger)

	fail := func(err error) (*session, error) {
		sess.close()
		if errors.Is(err, ErrTransport) {
			c.logger.Warn("connection lost", zap.String("command", string(cmd)), zap.Error(err))
		}
		return nil, err
	}

	if err := sess.send(&Frame{Kind: KindHello, Version: Version}); err != nil {
		return fail(err)
	}
	hello, err := sess.expect(KindHello)
	if err != nil {
		return fail(err)
	}
	if hello.Version != Version {
		return fail(fmt.Errorf("%w: server speaks %d, client %d", ErrVersion, hello.Version, Version))
	}

	err = sess.send(&Frame{
		Kind:      KindCommand,
		Hash:      c.keyHash,
		Challenge: AnswerChallenge(c.cfg.Key, hello.Challenge),
		Command:   cmd,
		Args:      args,
	})
	if err != nil {
		return fail(err)
	}
	return sess, nil
}

// awaitReply reads frames until the reply, feeding progress frames into
// pg and acknowledging them.
func (c *Client) awaitReply(sess *session, pg *progress.Progress) (*Frame, error) {
	for {
		f, err := sess.receive()
		if err != nil {
			if errors.Is(err, ErrTransport) {
				c.logger.Warn("connection lost", zap.Error(err))
			}
			return nil, err
		}

		switch f.Kind {
		case KindProgress:
			if err := applyTick(pg, f.Progress); err != nil {
				return nil, err
			}
			if err := sess.ack(); err != nil {
				return nil, err
			}
		case KindReply:
			if err := f.Err(); err != nil {
				return nil, err
			}
			return f, nil
		default:
			return nil, fmt.Errorf("%w: unexpected %s frame", ErrProtocol, f.Kind)
		}
	}
}

func applyTick(pg *progress.Progress, tick []int) error {
	if len(tick) != 3 || tick[0] > tick[1] {
		return fmt.Errorf("%w: bad progress tick %v", ErrProtocol, tick)
	}
	pg.SetMinMax(tick[0], tick[1])
	pg.SetProgress(tick[2])
	return nil
}

// request runs a command whose whole answer is a single reply.
func (c *Client) request(ctx context.Context, pg *progress.Progress, cmd Command, args ...string) (*Frame, error) {
	sess, err := c.open(ctx, cmd, args...)
	if err != nil {
		return nil, err
	}
	defer sess.close()
	return c.awaitReply(sess, pg)
}

// mustRequest is request for commands that answer something or absent; a
// null reply means the server refused the key.
func (c *Client) mustRequest(ctx context.Context, pg *progress.Progress, cmd Command, args ...string) (*Frame, error) {
	f, err := c.request(ctx, pg, cmd, args...)
	if err != nil {
		return nil, err
	}
	if f.IsNull() && !f.IsAbsent() {
		return nil, errRejected
	}
	return f, nil
}

// Status pings the server. Dial failures mean Unavailable, a reply that is
// not PONG Invalid and a null reply Unauthorized.
func (c *Client) Status(ctx context.Context) library.Status {
	f, err := c.request(ctx, nil, CmdPing)
	switch {
	case errors.Is(err, ErrUnavailable), errors.Is(err, ErrTransport):
		return library.StatusUnavailable
	case errors.Is(err, library.ErrUnauthorized):
		return library.StatusUnauthorized
	case err != nil:
		return library.StatusInvalid
	case f.IsNull():
		return library.StatusUnauthorized
	}

	var pong string
	if err := f.Decode(&pong); err != nil || pong != ReplyPong {
		return library.StatusInvalid
	}
	return library.StatusReadWrite
}

// Ping reports whether the server answers PONG.
func (c *Client) Ping(ctx context.Context) error {
	f, err := c.mustRequest(ctx, nil, CmdPing)
	if err != nil {
		return err
	}
	var pong string
	if err := f.Decode(&pong); err != nil {
		return err
	}
	if pong != ReplyPong {
		return fmt.Errorf("%w: unexpected ping reply %q", ErrProtocol, pong)
	}
	return nil
}

// Stop asks the server to shut down.
func (c *Client) Stop(ctx context.Context) error {
	f, err := c.mustRequest(ctx, nil, CmdExit)
	if err != nil {
		return err
	}
	var bye string
	if err := f.Decode(&bye); err != nil {
		return err
	}
	if bye != ReplyBye {
		return fmt.Errorf("%w: unexpected exit reply %q", ErrProtocol, bye)
	}
	c.logger.Info("remote library stopped")
	return nil
}

func (c *Client) GetMetas(ctx context.Context, pg *progress.Progress) ([]*entities.MetaData, error) {
	defer pg.Done()

	f, err := c.mustRequest(ctx, pg, CmdGetMetadata, AllStories)
	if err != nil {
		return nil, err
	}
	var metas []*entities.MetaData
	if err := f.Decode(&metas); err != nil {
		return nil, err
	}
	return metas, nil
}

func (c *Client) GetList(ctx context.Context, pg *progress.Progress) (*library.MetaResultList, error) {
	metas, err := c.GetMetas(ctx, pg)
	if err != nil {
		return nil, err
	}
	return library.NewMetaResultList(metas), nil
}

// GetInfo returns the metadata of luid, or nil if the server has none.
func (c *Client) GetInfo(ctx context.Context, luid string) (*entities.MetaData, error) {
	f, err := c.mustRequest(ctx, nil, CmdGetMetadata, luid)
	if err != nil {
		return nil, err
	}
	if f.IsAbsent() {
		return nil, nil
	}
	var meta *entities.MetaData
	if err := f.Decode(&meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// Refresh has nothing to drop on the client side; it only checks the
// listing can be fetched.
func (c *Client) Refresh(ctx context.Context, pg *progress.Progress) error {
	_, err := c.GetMetas(ctx, pg)
	return err
}

// GetStory downloads a story. A story the server cannot read is reported
// as nil without an error.
func (c *Client) GetStory(ctx context.Context, luid string, meta *entities.MetaData, pg *progress.Progress) (*entities.Story, error) {
	defer pg.Done()

	sess, err := c.open(ctx, CmdGetStory, luid)
	if err != nil {
		return nil, err
	}
	defer sess.close()

	f, err := c.awaitReply(sess, pg)
	if err != nil {
		return nil, err
	}
	if f.IsAbsent() {
		c.logger.Warn("remote story unavailable", zap.String("luid", luid))
		return nil, nil
	}
	if f.IsNull() {
		return nil, errRejected
	}

	var replied *entities.MetaData
	if err := f.Decode(&replied); err != nil {
		return nil, err
	}

	var rb Rebuilder
	if err := sess.receiveParts(&rb); err != nil {
		return nil, err
	}
	story := rb.Story()
	if story == nil {
		return nil, fmt.Errorf("%w: story %s sent without parts", ErrProtocol, luid)
	}
	if story.Meta == nil {
		story.Meta = replied
	}

	if meta != nil {
		if story.Meta != nil {
			if story.Meta.Cover != nil {
				meta.Cover = story.Meta.Cover
			}
			if story.Meta.Resume != nil {
				meta.Resume = story.Meta.Resume
			}
		}
		story.Meta = meta
	}
	return story, nil
}

// GetStoryFile cannot work on a remote library and panics.
func (c *Client) GetStoryFile(ctx context.Context, luid string, pg *progress.Progress) (string, error) {
	panic(library.ErrUnsupported)
}

// Save uploads story part by part and returns it with the LUID the server
// assigned.
func (c *Client) Save(ctx context.Context, story *entities.Story, luid string, pg *progress.Progress) (*entities.Story, error) {
	defer pg.Done()

	if story == nil {
		return nil, fmt.Errorf("%w: missing story", library.ErrInvalidMeta)
	}
	if err := library.ValidateMeta(story.Meta); err != nil {
		return nil, err
	}

	sess, err := c.open(ctx, CmdSaveStory, luid)
	if err != nil {
		return nil, err
	}
	defer sess.close()

	if _, err := sess.expect(KindAck); err != nil {
		return nil, err
	}
	if err := sess.sendParts(BreakStory(story)); err != nil {
		return nil, err
	}

	f, err := c.awaitReply(sess, pg)
	if err != nil {
		return nil, err
	}
	if f.IsNull() {
		return nil, errRejected
	}
	var saved string
	if err := f.Decode(&saved); err != nil {
		return nil, err
	}

	story.Meta.LUID = saved
	story.Renumber()
	return story, nil
}

func (c *Client) Delete(ctx context.Context, luid string) error {
	_, err := c.mustRequest(ctx, nil, CmdDeleteStory, luid)
	return err
}

func (c *Client) GetCover(ctx context.Context, luid string) (*entities.Image, error) {
	return c.cover(ctx, CmdGetCover, luid)
}

func (c *Client) GetCustomCover(ctx context.Context, kind library.CoverKind, key string) (*entities.Image, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown cover kind %q", kind)
	}
	return c.cover(ctx, CmdGetCustomCover, string(kind), key)
}

func (c *Client) cover(ctx context.Context, cmd Command, args ...string) (*entities.Image, error) {
	f, err := c.mustRequest(ctx, nil, cmd, args...)
	if err != nil {
		return nil, err
	}
	if f.IsAbsent() {
		return nil, nil
	}
	var img *entities.Image
	if err := f.Decode(&img); err != nil {
		return nil, err
	}
	return img, nil
}

func (c *Client) GetSourceCover(ctx context.Context, source string) (*entities.Image, error) {
	return library.GroupCover(ctx, c, library.CoverSource, source)
}

func (c *Client) GetAuthorCover(ctx context.Context, author string) (*entities.Image, error) {
	return library.GroupCover(ctx, c, library.CoverAuthor, author)
}

func (c *Client) SetSourceCover(ctx context.Context, source, luid string) error {
	_, err := c.mustRequest(ctx, nil, CmdSetCover, string(library.CoverSource), source, luid)
	return err
}

func (c *Client) SetAuthorCover(ctx context.Context, author, luid string) error {
	_, err := c.mustRequest(ctx, nil, CmdSetCover, string(library.CoverAuthor), author, luid)
	return err
}

func (c *Client) ChangeSource(ctx context.Context, luid, source string, pg *progress.Progress) error {
	return library.ChangeOne(ctx, c, luid, pg, func(meta *entities.MetaData) { meta.Source = source })
}

func (c *Client) ChangeTitle(ctx context.Context, luid, title string, pg *progress.Progress) error {
	return library.ChangeOne(ctx, c, luid, pg, func(meta *entities.MetaData) { meta.Title = title })
}

func (c *Client) ChangeAuthor(ctx context.Context, luid, author string, pg *progress.Progress) error {
	return library.ChangeOne(ctx, c, luid, pg, func(meta *entities.MetaData) { meta.Author = author })
}

func (c *Client) ChangeSTA(ctx context.Context, luid, source, title, author string, pg *progress.Progress) error {
	defer pg.Done()
	_, err := c.mustRequest(ctx, pg, CmdChangeSTA, luid, source, title, author)
	return err
}

// SaveMeta downloads the story and uploads it again under the same LUID
// with meta. The server replaces the old copy on save.
func (c *Client) SaveMeta(ctx context.Context, meta *entities.MetaData, pg *progress.Progress) error {
	defer pg.Done()

	if err := library.ValidateMeta(meta); err != nil {
		return err
	}

	pgLoad := progress.New("load")
	pgSave := progress.New("save")
	pg.AddProgress(pgLoad, 50)
	pg.AddProgress(pgSave, 50)

	story, err := c.GetStory(ctx, meta.LUID, nil, pgLoad)
	if err != nil {
		return err
	}
	if story == nil {
		return fmt.Errorf("cannot reload story %s", meta.LUID)
	}

	updated := meta.Clone()
	if updated.Cover == nil {
		updated.Cover = story.Meta.Cover
	}
	if updated.Resume == nil {
		updated.Resume = story.Meta.Resume
	}
	story.Meta = updated

	_, err = c.Save(ctx, story, meta.LUID, pgSave)
	return err
}

// Import asks the server to import url. The URL must be reachable from
// the server.
func (c *Client) Import(ctx context.Context, url, luid string, pg *progress.Progress) (*entities.MetaData, error) {
	defer pg.Done()

	f, err := c.mustRequest(ctx, pg, CmdImport, url, luid)
	if err != nil {
		return nil, err
	}
	var meta *entities.MetaData
	if err := f.Decode(&meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// Export downloads luid and writes it locally with the named output.
func (c *Client) Export(ctx context.Context, luid, format, target string, pg *progress.Progress) (string, error) {
	defer pg.Done()

	var output library.OutputFormat
	for _, out := range c.cfg.Outputs {
		if strings.EqualFold(out.Name(), format) {
			output = out
			break
		}
	}
	if output == nil {
		return "", fmt.Errorf("%w: output format %q", library.ErrNoAdapter, format)
	}

	pgLoad := progress.New("load")
	pgExport := progress.New("export")
	pg.AddProgress(pgLoad, 50)
	pg.AddProgress(pgExport, 50)

	story, err := c.GetStory(ctx, luid, nil, pgLoad)
	if err != nil {
		return "", err
	}
	if story == nil {
		return "", fmt.Errorf("cannot load story %s", luid)
	}

	path, err := output.Process(story, target)
	if err != nil {
		return "", fmt.Errorf("failed to export %s as %s: %w", luid, format, err)
	}
	pgExport.Done()
	return path, nil
}
