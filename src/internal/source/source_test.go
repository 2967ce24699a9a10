package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lognarrator/src/internal/auth"
	"lognarrator/src/internal/config"
	"lognarrator/src/internal/core"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
	"github.com/valyala/fastjson"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

// collect reads n entries or fails after timeout
func collect(t *testing.T, ch <-chan core.LogEntry, n int, timeout time.Duration) []core.LogEntry {
	t.Helper()
	var out []core.LogEntry
	deadline := time.After(timeout)
	for len(out) < n {
		select {
		case e := <-ch:
			out = append(out, e)
		case <-deadline:
			t.Fatalf("timed out after %d of %d entries", len(out), n)
		}
	}
	return out
}

func expectNone(t *testing.T, ch <-chan core.LogEntry, wait time.Duration) {
	t.Helper()
	select {
	case e := <-ch:
		t.Fatalf("unexpected entry: %q", e.Message)
	case <-time.After(wait):
	}
}

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestFileSource_ReadsFromBeginning(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	appendFile(t, path, "[ERROR] disk full\nplain line\n")

	src, err := NewFileSource("files", &config.FileSourceOptions{
		Include:          []string{filepath.Join(dir, "*.log")},
		StartAt:          "beginning",
		PollIntervalMS:   10,
		RescanIntervalMS: 20,
	}, newTestLogger())
	require.NoError(t, err)

	sink := make(chan core.LogEntry, 10)
	require.NoError(t, src.Start(sink))
	defer src.Stop()

	entries := collect(t, sink, 2, 2*time.Second)
	assert.Equal(t, "[ERROR] disk full", entries[0].Message)
	assert.Equal(t, "ERROR", entries[0].Level)
	assert.Equal(t, "files", entries[0].Source)
	assert.Equal(t, path, entries[0].Attributes["file.path"])
	assert.Equal(t, "app.log", entries[0].Attributes["file.name"])
	assert.Equal(t, "plain line", entries[1].Message)

	appendFile(t, path, `{"time":"2024-05-01T12:00:00Z","level":"warn","msg":"json line","user":"bob","code":7}`+"\n")
	entries = collect(t, sink, 1, 2*time.Second)
	assert.Equal(t, "json line", entries[0].Message)
	assert.Equal(t, "WARN", entries[0].Level)
	assert.Equal(t, "bob", entries[0].Attributes["user"])
	assert.Equal(t, "7", entries[0].Attributes["code"])
	assert.True(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Equal(entries[0].Time))
}

func TestFileSource_StartAtEnd(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "old.log")
	appendFile(t, existing, "history\n")

	src, err := NewFileSource("files", &config.FileSourceOptions{
		Include:          []string{filepath.Join(dir, "*.log")},
		StartAt:          "end",
		PollIntervalMS:   10,
		RescanIntervalMS: 20,
	}, newTestLogger())
	require.NoError(t, err)

	sink := make(chan core.LogEntry, 10)
	require.NoError(t, src.Start(sink))
	defer src.Stop()

	expectNone(t, sink, 100*time.Millisecond)

	appendFile(t, existing, "fresh\n")
	entries := collect(t, sink, 1, 2*time.Second)
	assert.Equal(t, "fresh", entries[0].Message)

	// Files discovered after start are read from their beginning
	appendFile(t, filepath.Join(dir, "new.log"), "first of new\n")
	entries = collect(t, sink, 1, 2*time.Second)
	assert.Equal(t, "first of new", entries[0].Message)
}

func TestFileSource_Exclude(t *testing.T) {
	dir := t.TempDir()
	appendFile(t, filepath.Join(dir, "keep.log"), "kept\n")
	appendFile(t, filepath.Join(dir, "debug.log"), "skipped\n")

	src, err := NewFileSource("files", &config.FileSourceOptions{
		Include:                []string{filepath.Join(dir, "*.log")},
		ExcludeFilenamePattern: "^debug",
		PollIntervalMS:         10,
		RescanIntervalMS:       20,
	}, newTestLogger())
	require.NoError(t, err)

	sink := make(chan core.LogEntry, 10)
	require.NoError(t, src.Start(sink))
	defer src.Stop()

	entries := collect(t, sink, 1, 2*time.Second)
	assert.Equal(t, "kept", entries[0].Message)
	expectNone(t, sink, 100*time.Millisecond)
}

func TestFileSource_Truncation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	appendFile(t, path, "one\ntwo\n")

	src, err := NewFileSource("files", &config.FileSourceOptions{
		Include:        []string{path},
		PollIntervalMS: 10,
	}, newTestLogger())
	require.NoError(t, err)

	sink := make(chan core.LogEntry, 10)
	require.NoError(t, src.Start(sink))
	defer src.Stop()
	collect(t, sink, 2, 2*time.Second)

	require.NoError(t, os.WriteFile(path, []byte("x\n"), 0o644))
	entries := collect(t, sink, 1, 2*time.Second)
	assert.Equal(t, "x", entries[0].Message)
}

func TestFileSource_PartialLineWaits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	appendFile(t, path, "complete\npart")

	src, err := NewFileSource("files", &config.FileSourceOptions{
		Include:        []string{path},
		PollIntervalMS: 10,
	}, newTestLogger())
	require.NoError(t, err)

	sink := make(chan core.LogEntry, 10)
	require.NoError(t, src.Start(sink))
	defer src.Stop()

	entries := collect(t, sink, 1, 2*time.Second)
	assert.Equal(t, "complete", entries[0].Message)
	expectNone(t, sink, 50*time.Millisecond)

	appendFile(t, path, "ial\n")
	entries = collect(t, sink, 1, 2*time.Second)
	assert.Equal(t, "partial", entries[0].Message)
}

func TestFileSource_Lifecycle(t *testing.T) {
	src, err := NewFileSource("files", &config.FileSourceOptions{
		Include: []string{filepath.Join(t.TempDir(), "*.log")},
	}, newTestLogger())
	require.NoError(t, err)

	assert.ErrorIs(t, src.Stop(), core.ErrNotRunning)

	sink := make(chan core.LogEntry, 1)
	require.NoError(t, src.Start(sink))
	assert.ErrorIs(t, src.Start(sink), core.ErrAlreadyRunning)
	require.NoError(t, src.Stop())
	assert.ErrorIs(t, src.Stop(), core.ErrNotRunning)
}

func TestFileSource_StopUnblocksFullSink(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	appendFile(t, path, strings.Repeat("line\n", 10))

	src, err := NewFileSource("files", &config.FileSourceOptions{
		Include:        []string{path},
		PollIntervalMS: 10,
	}, newTestLogger())
	require.NoError(t, err)

	sink := make(chan core.LogEntry)
	require.NoError(t, src.Start(sink))
	time.Sleep(50 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		src.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on a full sink")
	}
}

func TestNewFileSource_Invalid(t *testing.T) {
	_, err := NewFileSource("f", &config.FileSourceOptions{}, newTestLogger())
	assert.ErrorIs(t, err, core.ErrConfiguration)

	_, err = NewFileSource("f", &config.FileSourceOptions{
		Include:                []string{"/tmp/*.log"},
		ExcludeFilenamePattern: "(",
	}, newTestLogger())
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestExtractLogLevel(t *testing.T) {
	testCases := map[string]string{
		"[ERROR] failed":       "ERROR",
		"warning: low memory":  "WARN",
		"2024 INFO started":    "INFO",
		"[DBG] trace values":   "DEBUG",
		"FATAL: out of memory": "FATAL",
		"nothing here":         "",
	}
	for line, want := range testCases {
		assert.Equal(t, want, extractLogLevel(line), line)
	}
}

func TestDetectRotation(t *testing.T) {
	base := time.Now()
	prev := fileStamp{inode: 7, size: 100, modTime: base}

	tests := []struct {
		name   string
		offset int64
		cur    fileStamp
		want   string
	}{
		{"Growth", 100, fileStamp{inode: 7, size: 150, modTime: base.Add(time.Second)}, ""},
		{"Truncated", 100, fileStamp{inode: 7, size: 10, modTime: base.Add(time.Second)}, "truncated"},
		{"MtimeBackwards", 100, fileStamp{inode: 7, size: 100, modTime: base.Add(-time.Hour)}, "mtime went backwards"},
		{"OffsetPastEnd", 120, fileStamp{inode: 7, size: 110, modTime: base}, "offset past end"},
		{"ReplacedEmpty", 100, fileStamp{inode: 8, size: 0, modTime: base.Add(time.Second)}, "replaced"},
		{"ReplacedLarger", 100, fileStamp{inode: 8, size: 200, modTime: base.Add(time.Second)}, "replaced"},
		{"ReplacedSameSize", 100, fileStamp{inode: 8, size: 100, modTime: base.Add(time.Second)}, "replaced"},
		{"UnknownInode", 100, fileStamp{size: 200, modTime: base.Add(time.Second)}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectRotation(prev, tt.offset, tt.cur))
		})
	}

	// An empty file swapped for another empty file
	assert.Equal(t, "replaced", detectRotation(
		fileStamp{inode: 7, modTime: base}, 0,
		fileStamp{inode: 8, modTime: base.Add(time.Second)}))
}

func TestFileWatcher_RenameAndCreateRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	appendFile(t, path, "old-1\nold-2\n")

	var got []string
	emit := func(_ context.Context, e core.LogEntry) error {
		got = append(got, e.Message)
		return nil
	}
	w := newFileWatcher(path, "files", false, time.Hour, emit, newTestLogger())
	require.NoError(t, w.open())

	ctx := context.Background()
	require.NoError(t, w.readNew(ctx))
	assert.Equal(t, []string{"old-1", "old-2"}, got)

	// New file already longer than the old offset when it is first seen
	require.NoError(t, os.Rename(path, path+".1"))
	appendFile(t, path, "new-1\nnew-2\nnew-3\n")

	got = nil
	require.NoError(t, w.readNew(ctx))
	assert.Equal(t, []string{"new-1", "new-2", "new-3"}, got)
	assert.Equal(t, 1, w.snapshot().Rotations)
}

func TestPriorityLevel(t *testing.T) {
	testCases := map[string]string{
		"0": "FATAL", "2": "FATAL", "3": "ERROR", "4": "WARN",
		"5": "INFO", "6": "INFO", "7": "DEBUG", "": "INFO",
	}
	for p, want := range testCases {
		assert.Equal(t, want, priorityLevel(p), p)
	}
}

// fakeDocker serves canned containers and multiplexed log streams
type fakeDocker struct {
	containers []types.ContainerJSON
	logs       map[string][]byte
	closed     bool
}

func (f *fakeDocker) ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error) {
	var out []types.Container
	for _, c := range f.containers {
		out = append(out, types.Container{ID: c.ID, Names: []string{c.Name}})
	}
	return out, nil
}

func (f *fakeDocker) ContainerInspect(ctx context.Context, ref string) (types.ContainerJSON, error) {
	for _, c := range f.containers {
		if c.ID == ref || strings.TrimPrefix(c.Name, "/") == ref {
			return c, nil
		}
	}
	return types.ContainerJSON{}, fmt.Errorf("no such container: %s", ref)
}

func (f *fakeDocker) ContainerLogs(ctx context.Context, id string, options container.LogsOptions) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.logs[id])), nil
}

func (f *fakeDocker) Close() error {
	f.closed = true
	return nil
}

func fakeContainer(id, name string, tty bool) types.ContainerJSON {
	return types.ContainerJSON{
		ContainerJSONBase: &types.ContainerJSONBase{
			ID:    id,
			Name:  "/" + name,
			State: &types.ContainerState{Running: true},
		},
		Config: &container.Config{Tty: tty},
	}
}

func TestDockerSource_DemuxesStreams(t *testing.T) {
	id := "0123456789abcdef0123"
	var stream bytes.Buffer
	_, err := stdcopy.NewStdWriter(&stream, stdcopy.Stdout).Write([]byte("2024-05-01T12:00:00.5Z hello world\n"))
	require.NoError(t, err)
	_, err = stdcopy.NewStdWriter(&stream, stdcopy.Stderr).Write([]byte("2024-05-01T12:00:01Z something broke\n"))
	require.NoError(t, err)

	fake := &fakeDocker{
		containers: []types.ContainerJSON{fakeContainer(id, "web", false)},
		logs:       map[string][]byte{id: stream.Bytes()},
	}

	src, err := NewDockerSource("docker", &config.DockerSourceOptions{
		Containers:       []string{"web"},
		RescanIntervalMS: 3600000,
	}, newTestLogger())
	require.NoError(t, err)
	src.newClient = func() (dockerAPI, error) { return fake, nil }

	sink := make(chan core.LogEntry, 10)
	require.NoError(t, src.Start(sink))

	entries := collect(t, sink, 2, 2*time.Second)
	require.NoError(t, src.Stop())
	assert.True(t, fake.closed)

	assert.Equal(t, "hello world", entries[0].Message)
	assert.Equal(t, "", entries[0].Level)
	assert.Equal(t, "stdout", entries[0].Attributes["stream"])
	assert.Equal(t, "0123456789ab", entries[0].Attributes["container.id"])
	assert.Equal(t, "web", entries[0].Attributes["container.name"])
	assert.True(t, time.Date(2024, 5, 1, 12, 0, 0, 500000000, time.UTC).Equal(entries[0].Time))

	assert.Equal(t, "something broke", entries[1].Message)
	assert.Equal(t, "ERROR", entries[1].Level)
	assert.Equal(t, "stderr", entries[1].Attributes["stream"])
}

func TestDockerSource_AllContainersTTY(t *testing.T) {
	fake := &fakeDocker{
		containers: []types.ContainerJSON{fakeContainer("aaa", "tty-box", true)},
		logs:       map[string][]byte{"aaa": []byte("2024-05-01T12:00:00Z [WARN] raw tty output\n")},
	}

	src, err := NewDockerSource("docker", &config.DockerSourceOptions{
		AllContainers:    true,
		RescanIntervalMS: 3600000,
	}, newTestLogger())
	require.NoError(t, err)
	src.newClient = func() (dockerAPI, error) { return fake, nil }

	sink := make(chan core.LogEntry, 10)
	require.NoError(t, src.Start(sink))
	defer src.Stop()

	entries := collect(t, sink, 1, 2*time.Second)
	assert.Equal(t, "[WARN] raw tty output", entries[0].Message)
	assert.Equal(t, "WARN", entries[0].Level)
	assert.Equal(t, "tty-box", entries[0].Attributes["container.name"])
}

func TestNewDockerSource_NoTargets(t *testing.T) {
	_, err := NewDockerSource("docker", &config.DockerSourceOptions{}, newTestLogger())
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func startTestReceiver(t *testing.T, opts *config.HTTPSourceOptions) (*HTTPReceiver, *fasthttp.Client, chan core.LogEntry) {
	t.Helper()
	recv, err := NewHTTPReceiver("otlp", opts, newTestLogger())
	require.NoError(t, err)

	ln := fasthttputil.NewInmemoryListener()
	recv.listen = func(string) (net.Listener, error) { return ln, nil }

	sink := make(chan core.LogEntry, 100)
	require.NoError(t, recv.Start(sink))
	t.Cleanup(func() { recv.Stop() })

	client := &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}
	return recv, client, sink
}

func doRequest(t *testing.T, client *fasthttp.Client, method, path, contentType, authHeader string, body []byte) int {
	t.Helper()
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI("http://receiver" + path)
	req.Header.SetMethod(method)
	if contentType != "" {
		req.Header.SetContentType(contentType)
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	req.SetBody(body)

	require.NoError(t, client.DoTimeout(req, resp, 2*time.Second))
	return resp.StatusCode()
}

func TestHTTPReceiver_Routes(t *testing.T) {
	recv, client, sink := startTestReceiver(t, &config.HTTPSourceOptions{Port: 4318})

	assert.Equal(t, fasthttp.StatusOK, doRequest(t, client, "GET", "/health", "", "", nil))
	assert.Equal(t, fasthttp.StatusNotFound, doRequest(t, client, "GET", "/v1/logs", "", "", nil))
	assert.Equal(t, fasthttp.StatusNotFound, doRequest(t, client, "POST", "/other", "application/json", "", []byte("{}")))

	body := []byte(`[{"message":"first","level":"INFO"},{"message":"second","attributes":{"k":"v"}}]`)
	assert.Equal(t, fasthttp.StatusOK, doRequest(t, client, "POST", "/v1/logs", "application/json", "", body))
	entries := collect(t, sink, 2, time.Second)
	assert.Equal(t, "first", entries[0].Message)
	assert.Equal(t, "otlp", entries[0].Source)
	assert.Equal(t, "v", entries[1].Attributes["k"])

	assert.Equal(t, fasthttp.StatusOK, doRequest(t, client, "POST", "/v1/logs", "application/x-protobuf", "", []byte{0x0a, 0x01, 0x02}))
	expectNone(t, sink, 50*time.Millisecond)

	assert.Equal(t, fasthttp.StatusInternalServerError, doRequest(t, client, "POST", "/v1/logs", "application/json", "", []byte(`{not json`)))

	stats := recv.GetStats()
	assert.Equal(t, uint64(2), stats.TotalEntries)
	assert.Equal(t, uint64(1), stats.Details["opaque_payloads"])
	assert.Equal(t, uint64(1), stats.Details["invalid_requests"])
}

func TestHTTPReceiver_Auth(t *testing.T) {
	_, client, sink := startTestReceiver(t, &config.HTTPSourceOptions{
		Port: 4318,
		Auth: &config.ReceiverAuthConfig{JWTSigningKey: "secret"},
	})

	body := []byte(`{"message":"guarded"}`)
	assert.Equal(t, fasthttp.StatusUnauthorized, doRequest(t, client, "POST", "/v1/logs", "application/json", "", body))
	assert.Equal(t, fasthttp.StatusUnauthorized, doRequest(t, client, "POST", "/v1/logs", "application/json", "Bearer nope", body))

	token, err := auth.MintToken("secret", "edge", "", "", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, fasthttp.StatusOK, doRequest(t, client, "POST", "/v1/logs", "application/json", "Bearer "+token, body))
	entries := collect(t, sink, 1, time.Second)
	assert.Equal(t, "guarded", entries[0].Message)
}

func TestHTTPReceiver_RateLimit(t *testing.T) {
	_, client, _ := startTestReceiver(t, &config.HTTPSourceOptions{
		Port:      4318,
		RateLimit: &config.RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 1},
	})

	body := []byte(`{"message":"x"}`)
	assert.Equal(t, fasthttp.StatusOK, doRequest(t, client, "POST", "/v1/logs", "application/json", "", body))
	assert.Equal(t, fasthttp.StatusTooManyRequests, doRequest(t, client, "POST", "/v1/logs", "application/json", "", body))
}

func TestHTTPReceiver_Lifecycle(t *testing.T) {
	recv, _, sink := startTestReceiver(t, &config.HTTPSourceOptions{Port: 4318})
	assert.ErrorIs(t, recv.Start(sink), core.ErrAlreadyRunning)
	require.NoError(t, recv.Stop())
	assert.ErrorIs(t, recv.Stop(), core.ErrNotRunning)
}

func TestHTTPReceiver_ListenFailure(t *testing.T) {
	recv, err := NewHTTPReceiver("otlp", &config.HTTPSourceOptions{Port: 4318}, newTestLogger())
	require.NoError(t, err)
	recv.listen = func(string) (net.Listener, error) { return nil, fmt.Errorf("address in use") }
	assert.ErrorIs(t, recv.Start(make(chan core.LogEntry)), core.ErrSourceStartup)
}

func TestDecodeEntries(t *testing.T) {
	var p fastjson.Parser

	testCases := []struct {
		name     string
		body     string
		messages []string
		wantErr  bool
	}{
		{"Single", `{"message":"one","timestamp":"2024-05-01T12:00:00Z"}`, []string{"one"}, false},
		{"Array", `[{"msg":"a"},{"body":"b"}]`, []string{"a", "b"}, false},
		{"NDJSON", "{\"message\":\"l1\"}\n\n{\"message\":\"l2\"}\n", []string{"l1", "l2"}, false},
		{"WireBatch", `{"records":[{"timestamp":1714564800000,"severity":"ERROR","severity_num":17,"body":"rec","attributes":{"a":"1"},"resource":{"source":"edge"}}]}`, []string{"rec"}, false},
		{"OTLP", `{"resourceLogs":[{"resource":{"attributes":[{"key":"service.name","value":{"stringValue":"api"}}]},"scopeLogs":[{"logRecords":[{"timeUnixNano":"1714564800000000000","severityText":"WARN","body":{"stringValue":"otlp rec"},"attributes":[{"key":"n","value":{"intValue":"3"}}]}]}]}]}`, []string{"otlp rec"}, false},
		{"MissingMessage", `{"level":"INFO"}`, nil, true},
		{"Garbage", `not json at all`, nil, true},
		{"Empty", `   `, nil, true},
		{"Scalar", `42`, nil, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			entries, err := decodeEntries(&p, []byte(tc.body), "recv")
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, entries, len(tc.messages))
			for i, msg := range tc.messages {
				assert.Equal(t, msg, entries[i].Message)
				assert.Equal(t, "recv", entries[i].Source)
			}
		})
	}

	entries, err := decodeEntries(&p, []byte(`{"records":[{"timestamp":1714564800000,"severity":"ERROR","body":"rec","attributes":{"a":"1"},"resource":{"source":"edge"}}]}`), "recv")
	require.NoError(t, err)
	assert.Equal(t, "ERROR", entries[0].Level)
	assert.Equal(t, "1", entries[0].Attributes["a"])
	assert.Equal(t, "edge", entries[0].Attributes["sender.source"])
	assert.Equal(t, int64(1714564800000), entries[0].Time.UnixMilli())

	entries, err = decodeEntries(&p, []byte(`{"resourceLogs":[{"resource":{"attributes":[{"key":"service.name","value":{"stringValue":"api"}}]},"scopeLogs":[{"logRecords":[{"timeUnixNano":"1714564800000000000","severityText":"WARN","body":{"stringValue":"x"},"attributes":[{"key":"n","value":{"intValue":"3"}}]}]}]}]}`), "recv")
	require.NoError(t, err)
	assert.Equal(t, "WARN", entries[0].Level)
	assert.Equal(t, "api", entries[0].Attributes["service.name"])
	assert.Equal(t, "3", entries[0].Attributes["n"])
	assert.Equal(t, int64(1714564800000), entries[0].Time.UnixMilli())
}
