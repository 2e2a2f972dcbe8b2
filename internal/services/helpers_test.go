package services

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/releasedesk/backend/internal/config"
	"github.com/releasedesk/backend/internal/models"
	"github.com/releasedesk/backend/internal/testutil"
)

var (
	pngBytes  = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	flacBytes = append([]byte("fLaC\x00\x00\x00\x22"), bytes.Repeat([]byte{0}, 64)...)
	pdfBytes  = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n%%EOF\n")
)

type testEnv struct {
	cfg      *config.Config
	upstream *testutil.Upstream
	sessions *testutil.SessionStore
	objects  *testutil.ObjectStore
	recorder *testutil.Recorder
	client   *UpstreamClient
	staging  *StagingService
	actor    Actor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	up := testutil.NewUpstream(t)
	cfg := up.Config()
	env := &testEnv{
		cfg:      cfg,
		upstream: up,
		sessions: testutil.NewSessionStore(),
		objects:  testutil.NewObjectStore(),
		recorder: &testutil.Recorder{},
		client:   NewUpstreamClient(cfg),
	}
	env.staging = NewStagingService(env.objects, cfg)

	sess := &models.Session{
		ID:            "sess-1",
		UserID:        "user-1",
		UpstreamToken: "upstream-token",
		User:          models.RemoteUser{ID: "user-1", Name: "Asha Rao", Email: "asha@example.com"},
		Currency:      "INR",
		CreatedAt:     time.Now(),
	}
	_ = env.sessions.Save(context.Background(), sess)
	env.actor = Actor{Session: sess, IPAddress: "10.0.0.1", UserAgent: "test"}
	return env
}

func upload(name string, content []byte) Upload {
	return Upload{Filename: name, Size: int64(len(content)), Body: bytes.NewReader(content)}
}

func okJSON(body interface{}) testutil.HandlerFunc {
	return func(w http.ResponseWriter, _ testutil.Request) {
		testutil.WriteJSON(w, http.StatusOK, body)
	}
}
