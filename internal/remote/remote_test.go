package remote

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/storyshelf/internal/database"
	"github.com/mrlokans/storyshelf/internal/entities"
	"github.com/mrlokans/storyshelf/internal/exporters"
	"github.com/mrlokans/storyshelf/internal/importers"
	"github.com/mrlokans/storyshelf/internal/library"
	"github.com/mrlokans/storyshelf/internal/metrics"
	"github.com/mrlokans/storyshelf/internal/progress"
)

const testKey = "s3cret"

type testEnv struct {
	server  *Server
	lib     *library.Library
	metrics *metrics.Collector
	url     string
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()
	return setupServerWith(t, nil)
}

func setupServerWith(t *testing.T, configure func(*ServerConfig)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend, err := database.Open(t.TempDir(), database.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	lib := library.New(backend, library.Options{
		Inputs:  importers.Default(nil),
		Outputs: exporters.Default(),
	})
	m := metrics.New()
	cfg := ServerConfig{Key: testKey, Version: "test", Metrics: m}
	if configure != nil {
		configure(&cfg)
	}
	srv := NewServer(lib, cfg)
	t.Cleanup(srv.limiter.stop)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{
		server:  srv,
		lib:     lib,
		metrics: m,
		url:     wsURL(ts.URL) + "/library",
	}
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func (e *testEnv) client(key string) *Client {
	return NewClient(ClientConfig{
		URL:         e.url,
		Key:         key,
		DialTimeout: 2 * time.Second,
		Outputs:     exporters.Default(),
	})
}

func sampleStory(title string) *entities.Story {
	story := &entities.Story{Meta: &entities.MetaData{
		Title:  title,
		Author: "Jane Doe",
		Source: "site/section",
		Tags:   []string{"fantasy"},
	}}
	for i := 0; i < 3; i++ {
		chap := &entities.Chapter{Name: "Chapter"}
		chap.AddParagraph(entities.NewTextParagraph(entities.ParagraphNormal, "Once upon a time"))
		chap.AddParagraph(entities.NewTextParagraph(entities.ParagraphQuote, "Hello there"))
		story.AddChapter(chap)
	}
	return story
}

// rawServer runs handle on every upgraded connection.
func rawServer(t *testing.T, handle func(ws *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		handle(ws)
	}))
	t.Cleanup(ts.Close)
	return wsURL(ts.URL)
}

// countTicks counts listener calls on pg.
func countTicks(pg *progress.Progress) func() int {
	var mu sync.Mutex
	n := 0
	pg.AddProgressListener(func(*progress.Progress, string) {
		mu.Lock()
		n++
		mu.Unlock()
	})
	return func() int {
		mu.Lock()
		defer mu.Unlock()
		return n
	}
}

func TestRemoteSaveAndGetStory(t *testing.T) {
	ctx := context.Background()
	env := setupServer(t)
	client := env.client(testKey)

	story := sampleStory("Remote Tale")
	want := story.Clone()

	pg := progress.New("save")
	saved, err := client.Save(ctx, story, "", pg)
	require.NoError(t, err)
	assert.Equal(t, "0001", saved.Meta.LUID)
	assert.True(t, pg.IsDone())

	got, err := client.GetStory(ctx, "0001", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "0001", got.Meta.LUID)
	assert.Equal(t, want.Meta.Title, got.Meta.Title)
	assert.Equal(t, want.Meta.Tags, got.Meta.Tags)
	assert.Equal(t, want.Chapters, got.Chapters)

	// the server side agrees
	info, err := env.lib.GetInfo(ctx, "0001")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "Remote Tale", info.Title)

	second, err := client.Save(ctx, sampleStory("Another"), "", nil)
	require.NoError(t, err)
	assert.Equal(t, "0002", second.Meta.LUID)
}

func TestRemoteSaveStreamsParts(t *testing.T) {
	ctx := context.Background()
	env := setupServer(t)
	client := env.client(testKey)

	story := imageStory(2, 4, 1)

	_, err := client.Save(ctx, story, "", nil)
	require.NoError(t, err)

	assert.Equal(t, float64(1+3+2+4+1), testutil.ToFloat64(env.metrics.PartsStreamed.WithLabelValues("in")))

	got, err := client.GetStory(ctx, "0001", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Meta.ImageDocument)
	assert.Equal(t, story.Meta.Cover, got.Meta.Cover)
	require.Len(t, got.Chapters, 3)
	assert.Len(t, got.Chapters[1].Paragraphs, 4)
	assert.Equal(t, story.Chapters[1].Paragraphs, got.Chapters[1].Paragraphs)

	assert.Equal(t, float64(1+3+2+4+1), testutil.ToFloat64(env.metrics.PartsStreamed.WithLabelValues("out")))
}

func TestRemoteGetStoryOverlaysMeta(t *testing.T) {
	ctx := context.Background()
	env := setupServer(t)
	client := env.client(testKey)

	story := sampleStory("Covered")
	story.Meta.Cover = entities.NewImage([]byte("png"))
	_, err := client.Save(ctx, story, "", nil)
	require.NoError(t, err)

	meta := &entities.MetaData{LUID: "0001", Title: "Caller's copy"}
	got, err := client.GetStory(ctx, "0001", meta, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Same(t, meta, got.Meta)
	assert.Equal(t, []byte("png"), got.Meta.Cover.Data)
}

func TestRemoteGetStoryErrors(t *testing.T) {
	ctx := context.Background()
	env := setupServer(t)
	client := env.client(testKey)

	_, err := client.GetStory(ctx, "0042", nil, nil)
	assert.ErrorIs(t, err, library.ErrNotFound)
	assert.ErrorIs(t, err, ErrRemote)

	assert.PanicsWithValue(t, library.ErrUnsupported, func() {
		_, _ = client.GetStoryFile(ctx, "0001", nil)
	})
}

func TestClientAbsentAndNullReplies(t *testing.T) {
	ctx := context.Background()

	serve := func(reply *Frame) string {
		return rawServer(t, func(ws *websocket.Conn) {
			var f Frame
			_ = ws.ReadJSON(&f)
			_ = ws.WriteJSON(&Frame{Kind: KindHello, Version: Version, Challenge: "c"})
			_ = ws.ReadJSON(&f)
			_ = ws.WriteJSON(reply)
		})
	}

	t.Run("absent story", func(t *testing.T) {
		client := NewClient(ClientConfig{URL: serve(absentFrame()), Key: testKey})

		story, err := client.GetStory(ctx, "0001", nil, nil)
		require.NoError(t, err)
		assert.Nil(t, story)
	})

	t.Run("absent cover", func(t *testing.T) {
		client := NewClient(ClientConfig{URL: serve(absentFrame()), Key: testKey})

		cover, err := client.GetCover(ctx, "0001")
		require.NoError(t, err)
		assert.Nil(t, cover)
	})

	t.Run("null story is a rejection", func(t *testing.T) {
		client := NewClient(ClientConfig{URL: serve(&Frame{Kind: KindReply}), Key: testKey})

		_, err := client.GetStory(ctx, "0001", nil, nil)
		assert.ErrorIs(t, err, library.ErrUnauthorized)
	})

	t.Run("null info is a rejection", func(t *testing.T) {
		client := NewClient(ClientConfig{URL: serve(&Frame{Kind: KindReply}), Key: testKey})

		_, err := client.GetInfo(ctx, "0001")
		assert.ErrorIs(t, err, library.ErrUnauthorized)
	})
}

func TestRemoteWrongKey(t *testing.T) {
	ctx := context.Background()
	env := setupServer(t)

	_, err := env.lib.Save(ctx, sampleStory("Keep Me"), "", nil)
	require.NoError(t, err)

	intruder := env.client("guess")

	err = intruder.Delete(ctx, "0001")
	assert.ErrorIs(t, err, library.ErrUnauthorized)

	_, err = intruder.Save(ctx, sampleStory("Spam"), "", nil)
	assert.ErrorIs(t, err, library.ErrUnauthorized)

	assert.Equal(t, library.StatusUnauthorized, intruder.Status(ctx))

	story, err := intruder.GetStory(ctx, "0001", nil, nil)
	assert.ErrorIs(t, err, library.ErrUnauthorized)
	assert.Nil(t, story)

	meta, err := intruder.GetInfo(ctx, "0001")
	assert.ErrorIs(t, err, library.ErrUnauthorized)
	assert.Nil(t, meta)

	err = intruder.ChangeTitle(ctx, "0001", "Hijacked", nil)
	assert.ErrorIs(t, err, library.ErrUnauthorized)
	assert.NotErrorIs(t, err, library.ErrNotFound)

	_, err = intruder.GetCover(ctx, "0001")
	assert.ErrorIs(t, err, library.ErrUnauthorized)

	info, err := env.lib.GetInfo(ctx, "0001")
	require.NoError(t, err)
	require.NotNil(t, info, "story must survive a rejected delete")
	assert.Equal(t, "Keep Me", info.Title)

	metas, err := env.lib.GetMetas(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, metas, 1)

	assert.Equal(t, 7.0, testutil.ToFloat64(env.metrics.AuthRejections))
}

func TestRemoteLockout(t *testing.T) {
	ctx := context.Background()
	env := setupServerWith(t, func(cfg *ServerConfig) {
		cfg.RateLimit = RateLimitConfig{MaxFailures: 2, LockoutDuration: time.Minute}
	})

	intruder := env.client("guess")
	assert.Equal(t, library.StatusUnauthorized, intruder.Status(ctx))
	assert.Equal(t, library.StatusUnauthorized, intruder.Status(ctx))

	// refused before the handshake from now on, whatever the key
	err := intruder.Ping(ctx)
	assert.ErrorIs(t, err, ErrLockedOut)
	assert.ErrorIs(t, err, library.ErrUnauthorized)

	err = env.client(testKey).Ping(ctx)
	assert.ErrorIs(t, err, ErrLockedOut)

	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.AuthRejections))
}

func TestRemoteLockoutIgnoresForwardedFor(t *testing.T) {
	ctx := context.Background()
	env := setupServerWith(t, func(cfg *ServerConfig) {
		cfg.RateLimit = RateLimitConfig{MaxFailures: 2, LockoutDuration: time.Minute}
	})

	guess := func(forwardedFor string) (*http.Response, error) {
		header := http.Header{}
		header.Set("X-Forwarded-For", forwardedFor)
		ws, resp, err := websocket.DefaultDialer.Dial(env.url, header)
		if err != nil {
			return resp, err
		}
		defer ws.Close()

		require.NoError(t, ws.WriteJSON(&Frame{Kind: KindHello, Version: Version}))
		var hello Frame
		require.NoError(t, ws.ReadJSON(&hello))
		require.NoError(t, ws.WriteJSON(&Frame{
			Kind:      KindCommand,
			Hash:      HashKey("guess"),
			Challenge: AnswerChallenge("guess", hello.Challenge),
			Command:   CmdPing,
		}))
		var reply Frame
		require.NoError(t, ws.ReadJSON(&reply))
		assert.True(t, reply.IsNull())
		return resp, nil
	}

	_, err := guess("198.51.100.1")
	require.NoError(t, err)
	_, err = guess("198.51.100.2")
	require.NoError(t, err)

	// rotating the header does not buy more guesses
	resp, err := guess("198.51.100.3")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.AuthRejections))
	assert.ErrorIs(t, env.client(testKey).Ping(ctx), ErrLockedOut)
}

func TestRemoteWrongHashRightChallenge(t *testing.T) {
	env := setupServer(t)

	ws, _, err := websocket.DefaultDialer.Dial(env.url, nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.WriteJSON(&Frame{Kind: KindHello, Version: Version}))
	var hello Frame
	require.NoError(t, ws.ReadJSON(&hello))
	require.NotEmpty(t, hello.Challenge)

	require.NoError(t, ws.WriteJSON(&Frame{
		Kind:      KindCommand,
		Hash:      HashKey("guess"),
		Challenge: AnswerChallenge(testKey, hello.Challenge),
		Command:   CmdPing,
	}))
	var reply Frame
	require.NoError(t, ws.ReadJSON(&reply))
	assert.Equal(t, KindReply, reply.Kind)
	assert.True(t, reply.IsNull())
	assert.Empty(t, reply.Error)
}

func TestRemoteGetMetadata(t *testing.T) {
	ctx := context.Background()

	t.Run("empty library", func(t *testing.T) {
		env := setupServer(t)
		client := env.client(testKey)

		pg := progress.New("list")
		ticks := countTicks(pg)

		metas, err := client.GetMetas(ctx, pg)
		require.NoError(t, err)
		assert.Empty(t, metas)
		assert.LessOrEqual(t, ticks(), 1)
		assert.LessOrEqual(t, testutil.ToFloat64(env.metrics.ProgressTicks), 1.0)
		assert.Equal(t, 1.0, pg.Relative())
	})

	t.Run("lists and looks up stories", func(t *testing.T) {
		env := setupServer(t)
		client := env.client(testKey)

		for _, title := range []string{"One", "Two"} {
			story := sampleStory(title)
			story.Meta.Cover = entities.NewImage([]byte("img"))
			_, err := env.lib.Save(ctx, story, "", nil)
			require.NoError(t, err)
		}

		list, err := client.GetList(ctx, nil)
		require.NoError(t, err)
		require.Equal(t, 2, list.Len())
		assert.Equal(t, "One", list.Metas()[0].Title)
		assert.Nil(t, list.Metas()[0].Cover)
		assert.Equal(t, []string{"site/section"}, list.Sources())

		info, err := client.GetInfo(ctx, "0002")
		require.NoError(t, err)
		require.NotNil(t, info)
		assert.Equal(t, "Two", info.Title)

		missing, err := client.GetInfo(ctx, "0099")
		require.NoError(t, err)
		assert.Nil(t, missing)

		require.NoError(t, client.Refresh(ctx, nil))
	})
}

func TestRemoteDelete(t *testing.T) {
	ctx := context.Background()
	env := setupServer(t)
	client := env.client(testKey)

	_, err := client.Save(ctx, sampleStory("Gone Soon"), "", nil)
	require.NoError(t, err)

	require.NoError(t, client.Delete(ctx, "0001"))

	info, err := client.GetInfo(ctx, "0001")
	require.NoError(t, err)
	assert.Nil(t, info)

	// unknown LUIDs are fine
	require.NoError(t, client.Delete(ctx, "0077"))
}

func TestRemoteChangeMeta(t *testing.T) {
	ctx := context.Background()
	env := setupServer(t)
	client := env.client(testKey)

	story := sampleStory("Old Title")
	story.Meta.Cover = entities.NewImage([]byte("cover"))
	_, err := client.Save(ctx, story, "", nil)
	require.NoError(t, err)

	pg := progress.New("change")
	require.NoError(t, client.ChangeTitle(ctx, "0001", "New Title", pg))
	assert.True(t, pg.IsDone())

	require.NoError(t, client.ChangeSTA(ctx, "0001", "elsewhere", "Newest", "John Roe", nil))

	info, err := env.lib.GetInfo(ctx, "0001")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "elsewhere", info.Source)
	assert.Equal(t, "Newest", info.Title)
	assert.Equal(t, "John Roe", info.Author)

	got, err := client.GetStory(ctx, "0001", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Len(t, got.Chapters, 3)
	assert.Equal(t, []byte("cover"), got.Meta.Cover.Data)

	err = client.ChangeAuthor(ctx, "0404", "Nobody", nil)
	assert.ErrorIs(t, err, library.ErrNotFound)

	meta := info.Clone()
	meta.Tags = []string{"retagged"}
	require.NoError(t, client.SaveMeta(ctx, meta, nil))

	info, err = env.lib.GetInfo(ctx, "0001")
	require.NoError(t, err)
	assert.Equal(t, []string{"retagged"}, info.Tags)
}

func TestRemoteCovers(t *testing.T) {
	ctx := context.Background()
	env := setupServer(t)
	client := env.client(testKey)

	story := sampleStory("With Cover")
	story.Meta.Cover = entities.NewImage([]byte("first-cover"))
	_, err := client.Save(ctx, story, "", nil)
	require.NoError(t, err)

	cover, err := client.GetCover(ctx, "0001")
	require.NoError(t, err)
	require.NotNil(t, cover)
	assert.Equal(t, []byte("first-cover"), cover.Data)

	// no custom cover yet, falls back to the first story of the group
	fallback, err := client.GetSourceCover(ctx, "site")
	require.NoError(t, err)
	require.NotNil(t, fallback)
	assert.Equal(t, []byte("first-cover"), fallback.Data)

	custom, err := client.GetCustomCover(ctx, library.CoverAuthor, "Jane Doe")
	require.NoError(t, err)
	assert.Nil(t, custom)

	require.NoError(t, client.SetAuthorCover(ctx, "Jane Doe", "0001"))

	custom, err = client.GetCustomCover(ctx, library.CoverAuthor, "Jane Doe")
	require.NoError(t, err)
	require.NotNil(t, custom)
	assert.Equal(t, []byte("first-cover"), custom.Data)

	author, err := client.GetAuthorCover(ctx, "Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, custom, author)

	err = client.SetSourceCover(ctx, "site", "0404")
	assert.ErrorIs(t, err, library.ErrNotFound)
}

func TestRemoteImportExport(t *testing.T) {
	ctx := context.Background()
	env := setupServer(t)
	client := env.client(testKey)

	src := filepath.Join(t.TempDir(), "story.txt")
	require.NoError(t, os.WriteFile(src, []byte("Imported Tale\nAuthor: Jane Doe\n\nChapter 1: Start\n\nHello there.\n"), 0644))

	pg := progress.New("import")
	meta, err := client.Import(ctx, src, "", pg)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "0001", meta.LUID)
	assert.Equal(t, "Imported Tale", meta.Title)
	assert.True(t, pg.IsDone())

	_, err = client.Import(ctx, "story.unknown", "", nil)
	assert.ErrorIs(t, err, library.ErrNoAdapter)

	target := t.TempDir()
	path, err := client.Export(ctx, "0001", "json", target, nil)
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, err = client.Export(ctx, "0001", "epub", target, nil)
	assert.ErrorIs(t, err, library.ErrNoAdapter)
}

func TestRemoteProgressTicks(t *testing.T) {
	ctx := context.Background()
	env := setupServer(t)
	client := env.client(testKey)

	_, err := client.Save(ctx, sampleStory("Ticking"), "", nil)
	require.NoError(t, err)

	pg := progress.New("story")
	var mu sync.Mutex
	var seen [][3]int
	detach := progress.Attach(pg, progress.SinkFunc(func(min, max, value int) {
		mu.Lock()
		seen = append(seen, [3]int{min, max, value})
		mu.Unlock()
	}))
	defer detach()

	_, err = client.GetStory(ctx, "0001", nil, pg)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	for i := 1; i < len(seen); i++ {
		assert.NotEqual(t, seen[i-1], seen[i])
		assert.GreaterOrEqual(t, seen[i][2], seen[i-1][2])
	}
	assert.Equal(t, 1.0, pg.Relative())
}

func TestClientStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("read write", func(t *testing.T) {
		env := setupServer(t)
		client := env.client(testKey)
		assert.Equal(t, library.StatusReadWrite, client.Status(ctx))
		assert.NoError(t, client.Ping(ctx))
	})

	t.Run("unavailable", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		url := wsURL(ts.URL) + "/library"
		ts.Close()

		client := NewClient(ClientConfig{URL: url, Key: testKey, DialTimeout: time.Second})
		assert.Equal(t, library.StatusUnavailable, client.Status(ctx))
	})

	t.Run("malformed reply", func(t *testing.T) {
		url := rawServer(t, func(ws *websocket.Conn) {
			var f Frame
			_ = ws.ReadJSON(&f)
			_ = ws.WriteJSON(&Frame{Kind: KindHello, Version: Version, Challenge: "c"})
			_ = ws.ReadJSON(&f)
			_ = ws.WriteMessage(websocket.TextMessage, []byte("{not json"))
		})

		client := NewClient(ClientConfig{URL: url, Key: testKey})
		assert.Equal(t, library.StatusInvalid, client.Status(ctx))
	})

	t.Run("unexpected reply", func(t *testing.T) {
		url := rawServer(t, func(ws *websocket.Conn) {
			var f Frame
			_ = ws.ReadJSON(&f)
			_ = ws.WriteJSON(&Frame{Kind: KindHello, Version: Version, Challenge: "c"})
			_ = ws.ReadJSON(&f)
			payload, _ := json.Marshal("PANG")
			_ = ws.WriteJSON(&Frame{Kind: KindReply, Payload: payload})
		})

		client := NewClient(ClientConfig{URL: url, Key: testKey})
		assert.Equal(t, library.StatusInvalid, client.Status(ctx))
	})

	t.Run("version mismatch", func(t *testing.T) {
		url := rawServer(t, func(ws *websocket.Conn) {
			var f Frame
			_ = ws.ReadJSON(&f)
			_ = ws.WriteJSON(&Frame{Kind: KindHello, Version: Version + 1})
		})

		client := NewClient(ClientConfig{URL: url, Key: testKey})
		assert.Equal(t, library.StatusInvalid, client.Status(ctx))
		assert.ErrorIs(t, client.Ping(ctx), ErrVersion)
	})
}

func TestClientBreaker(t *testing.T) {
	ctx := context.Background()

	ts := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(ts.URL) + "/library"
	ts.Close()

	m := metrics.New()
	client := NewClient(ClientConfig{
		URL:             url,
		Key:             testKey,
		DialTimeout:     time.Second,
		BreakerFailures: 2,
		BreakerCooldown: time.Minute,
		Metrics:         m,
	})

	assert.ErrorIs(t, client.Ping(ctx), ErrTransport)
	assert.ErrorIs(t, client.Ping(ctx), ErrTransport)

	// open now: no more dialing
	assert.ErrorIs(t, client.Ping(ctx), ErrUnavailable)
	assert.Equal(t, library.StatusUnavailable, client.Status(ctx))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Dials.WithLabelValues("failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Dials.WithLabelValues("rejected")))
}

func TestServerVersionMismatch(t *testing.T) {
	env := setupServer(t)

	ws, _, err := websocket.DefaultDialer.Dial(env.url, nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.WriteJSON(&Frame{Kind: KindHello, Version: Version + 7}))
	var hello Frame
	require.NoError(t, ws.ReadJSON(&hello))
	assert.Equal(t, Version, hello.Version)
	assert.Empty(t, hello.Challenge)
}

func TestServerExit(t *testing.T) {
	ctx := context.Background()
	env := setupServer(t)
	client := env.client(testKey)

	require.NoError(t, client.Stop(ctx))

	select {
	case <-env.server.Exited():
	case <-time.After(5 * time.Second):
		t.Fatal("server did not exit")
	}
}

func TestServerShutdown(t *testing.T) {
	env := setupServer(t)

	ln, err := (&net.ListenConfig{}).Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- env.server.Serve(ln) }()

	client := NewClient(ClientConfig{URL: "ws://" + ln.Addr().String() + "/library", Key: testKey})
	require.Eventually(t, func() bool {
		return client.Status(context.Background()) == library.StatusReadWrite
	}, 5*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, env.server.Shutdown(ctx))
	require.NoError(t, <-done)
}

func TestServerHealthAndMetrics(t *testing.T) {
	env := setupServer(t)
	httpURL := "http" + strings.TrimPrefix(strings.TrimSuffix(env.url, "/library"), "ws")

	resp, err := http.Get(httpURL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "read-write", health.Library)
	assert.Equal(t, "test", health.Version)

	require.NoError(t, env.client(testKey).Ping(context.Background()))

	mresp, err := http.Get(httpURL + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close()
	assert.Equal(t, http.StatusOK, mresp.StatusCode)
}
