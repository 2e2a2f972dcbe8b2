package services

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/releasedesk/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageSniffsContentType(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	staged, err := env.staging.Stage(ctx, "sess-1", KindArtwork, "../cover.jpeg", int64(len(pngBytes)), strings.NewReader(string(pngBytes)))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(staged.Key, "staging/sess-1/artwork/"))
	assert.True(t, strings.HasSuffix(staged.Key, ".png"))
	assert.Equal(t, "image/png", staged.MimeType)
	assert.Equal(t, "cover.jpeg", staged.Filename)

	content, ctype, ok := env.objects.Object(staged.Key)
	require.True(t, ok)
	assert.Equal(t, pngBytes, content)
	assert.Equal(t, "image/png", ctype)
}

func TestStageRejectsWrongKind(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.staging.Stage(context.Background(), "sess-1", KindAudio, "cover.png", int64(len(pngBytes)), strings.NewReader(string(pngBytes)))
	assert.ErrorIs(t, err, ErrUnsupportedMedia)
	assert.Empty(t, env.objects.Keys())
}

func TestStageSizeLimits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.staging.Stage(ctx, "sess-1", KindDocument, "id.pdf", 0, strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyUpload)

	_, err = env.staging.Stage(ctx, "sess-1", KindDocument, "id.pdf", env.cfg.MaxUploadBytes()+1, strings.NewReader(string(pdfBytes)))
	assert.ErrorIs(t, err, ErrUploadTooLarge)
}

func TestOpenAndDiscard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	audio, err := env.staging.Stage(ctx, "sess-1", KindAudio, "take1.flac", int64(len(flacBytes)), strings.NewReader(string(flacBytes)))
	require.NoError(t, err)
	doc, err := env.staging.Stage(ctx, "sess-2", KindDocument, "id.pdf", int64(len(pdfBytes)), strings.NewReader(string(pdfBytes)))
	require.NoError(t, err)

	part, closer, err := env.staging.Open(ctx, "audio", audio)
	require.NoError(t, err)
	b, err := io.ReadAll(part.Body)
	require.NoError(t, err)
	closer.Close()
	assert.Equal(t, flacBytes, b)
	assert.Equal(t, "take1.flac", part.Filename)
	assert.Equal(t, "audio/flac", part.ContentType)

	_, _, err = env.staging.Open(ctx, "audio", nil)
	assert.Error(t, err)

	require.NoError(t, env.staging.DiscardSession(ctx, "sess-1"))
	assert.Equal(t, []string{doc.Key}, env.objects.Keys())

	require.NoError(t, env.staging.Discard(ctx, nil, doc, &models.StagedFile{}))
	assert.Empty(t, env.objects.Keys())
}
