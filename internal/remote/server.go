package remote

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mrlokans/storyshelf/internal/library"
	"github.com/mrlokans/storyshelf/internal/metrics"
)

const defaultShutdownTimeout = 10 * time.Second

// ServerConfig configures a Server.
type ServerConfig struct {
	// Key every command must be signed with
	Key string

	// Version is reported by /health
	Version string

	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Lockout of addresses that keep sending rejected commands
	RateLimit RateLimitConfig

	Metrics *metrics.Collector
	Logger  *zap.Logger
}

// Server exposes one library over the wire protocol.
type Server struct {
	lib      library.Contract
	auth     *authenticator
	limiter  *rateLimiter
	engine   *gin.Engine
	upgrader websocket.Upgrader
	metrics  *metrics.Collector
	logger   *zap.Logger
	cfg      ServerConfig

	mu         sync.Mutex
	httpServer *http.Server
	closing    bool
	active     sync.WaitGroup

	exitOnce sync.Once
	exited   chan struct{}
}

// NewServer creates a Server around lib. The key hash is computed once here.
func NewServer(lib library.Contract, cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	s := &Server{
		lib:     lib,
		auth:    newAuthenticator(cfg.Key),
		limiter: newRateLimiter(cfg.RateLimit),
		metrics: cfg.Metrics,
		logger:  logger.Named("server"),
		cfg:     cfg,
		exited:  make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Clients are programs, not browsers
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	router := gin.New()
	// Forwarding headers are client controlled; the lockout keys on the
	// peer address.
	if err := router.SetTrustedProxies(nil); err != nil {
		s.logger.Warn("cannot reset trusted proxies", zap.Error(err))
	}
	router.Use(gin.Recovery())
	router.Use(requestLogger(s.logger))

	router.GET("/library", s.limiter.middleware(), s.handleLibrary)
	router.GET("/health", NewHealthController(lib, cfg.Version).Status)
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	s.engine = router
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Exited is closed once a client sent EXIT or Shutdown was called.
func (s *Server) Exited() <-chan struct{} {
	return s.exited
}

// ListenAndServe listens on addr and serves until the server is shut down.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until the server is shut down. It returns
// nil after a graceful shutdown.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{Handler: s.engine}

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		ln.Close()
		return nil
	}
	s.httpServer = srv
	s.mu.Unlock()

	s.logger.Info("serving library", zap.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for running commands to
// finish or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.markExited()
	s.limiter.stop()

	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.closing = true
	s.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}

	// Upgraded connections are no longer tracked by http.Server
	done := make(chan struct{})
	go func() {
		s.active.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		err = errors.Join(err, ctx.Err())
	}
	return err
}

func (s *Server) markExited() {
	s.exitOnce.Do(func() { close(s.exited) })
}

// exit is triggered by the EXIT command, after BYE was sent.
func (s *Server) exit() {
	s.logger.Info("exit requested by client")
	s.markExited()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown failed", zap.Error(err))
		}
	}()
}

func (s *Server) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.active.Add(1)
	return true
}

func (s *Server) handleLibrary(c *gin.Context) {
	if !s.begin() {
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}
	defer s.active.Done()

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	ip := c.RemoteIP()
	sess := newSession(ws, s.cfg.WriteTimeout, s.metrics, s.logger.With(zap.String("client", ip)))
	defer sess.close()

	s.serveSession(c.Request.Context(), sess, ip)
}

// serveSession runs the handshake and at most one command.
func (s *Server) serveSession(ctx context.Context, sess *session, ip string) {
	hello, err := sess.expect(KindHello)
	if err != nil {
		sess.logger.Debug("handshake failed", zap.Error(err))
		return
	}
	if hello.Version != Version {
		sess.logger.Warn("protocol version mismatch", zap.Int("client_version", hello.Version))
		_ = sess.send(&Frame{Kind: KindHello, Version: Version})
		return
	}

	challenge := newChallenge()
	if err := sess.send(&Frame{Kind: KindHello, Version: Version, Challenge: challenge}); err != nil {
		sess.logger.Debug("handshake failed", zap.Error(err))
		return
	}

	cmd, err := sess.expect(KindCommand)
	if err != nil {
		sess.logger.Debug("no command received", zap.Error(err))
		return
	}

	if !s.auth.verify(cmd, challenge) {
		s.metrics.AuthRejected()
		if s.limiter.recordFailure(ip) {
			sess.logger.Warn("client locked out", zap.Duration("for", s.limiter.cfg.LockoutDuration))
		}
		sess.logger.Warn("command rejected", zap.String("command", string(cmd.Command)))
		_ = sess.send(&Frame{Kind: KindReply})
		return
	}
	s.limiter.recordSuccess(ip)

	s.dispatch(ctx, sess, cmd)
}

func (s *Server) dispatch(ctx context.Context, sess *session, cmd *Frame) {
	start := time.Now()

	req, err := decodeRequest(cmd.Command, cmd.Args)
	if err != nil {
		sess.logger.Warn("bad request", zap.Error(err))
		s.metrics.CommandServed(string(cmd.Command), "invalid", time.Since(start))
		_ = sess.send(errorFrame(err))
		return
	}

	x := &exchange{
		lib:     s.lib,
		session: sess,
		fwd:     newForwarder(sess),
		exit:    s.exit,
	}

	outcome := "ok"
	if err := req.Serve(ctx, x); err != nil {
		outcome = "error"
		sess.logger.Warn("command failed",
			zap.String("command", string(req.Command())),
			zap.Strings("args", cmd.Args),
			zap.Error(err))
		if !x.replied && !errors.Is(err, ErrTransport) {
			_ = sess.send(errorFrame(err))
		}
	} else {
		sess.logger.Debug("command served",
			zap.String("command", string(req.Command())),
			zap.Duration("took", time.Since(start)))
	}
	s.metrics.CommandServed(string(req.Command()), outcome, time.Since(start))
}

// requestLogger logs plain HTTP requests. Upgraded connections log their
// own lifecycle.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}
