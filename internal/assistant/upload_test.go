package assistant

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nvoss/zotassist/internal/models"
)

func writeTempPDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "paper.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 test"), 0o644))
	return path
}

func TestEnsureUploaded_DedupesByItemKey(t *testing.T) {
	path := writeTempPDF(t)
	remote := &fakeRemote{
		createFileFn: func(req openai.FileRequest) (openai.File, error) {
			assert.Equal(t, string(openai.PurposeAssistants), req.Purpose)
			assert.Equal(t, path, req.FilePath)
			return openai.File{ID: "file-1"}, nil
		},
	}
	uploader := NewUploader(remote, newTestState(newFakeClock()), zap.NewNop())
	doc := models.DocumentRef{ItemKey: "ITEM1", Title: "Paper"}

	first, err := uploader.EnsureUploaded(context.Background(), doc, path)
	require.NoError(t, err)
	assert.Equal(t, "file-1", first.FileID)

	second, err := uploader.EnsureUploaded(context.Background(), doc, path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, remote.createFileCalls, "second call must not upload again")
}

func TestEnsureUploaded_MissingFile(t *testing.T) {
	remote := &fakeRemote{}
	uploader := NewUploader(remote, newTestState(newFakeClock()), zap.NewNop())

	_, err := uploader.EnsureUploaded(context.Background(), models.DocumentRef{ItemKey: "ITEM1"}, "/does/not/exist.pdf")

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, "ITEM1", uploadErr.ItemKey)
	assert.Equal(t, 0, remote.createFileCalls)
}

func TestEnsureUploaded_RemoteFailureLeavesCacheEmpty(t *testing.T) {
	path := writeTempPDF(t)
	fail := true
	remote := &fakeRemote{
		createFileFn: func(req openai.FileRequest) (openai.File, error) {
			if fail {
				return openai.File{}, errors.New("upstream unavailable")
			}
			return openai.File{ID: "file-2"}, nil
		},
	}
	uploader := NewUploader(remote, newTestState(newFakeClock()), zap.NewNop())
	doc := models.DocumentRef{ItemKey: "ITEM2"}

	_, err := uploader.EnsureUploaded(context.Background(), doc, path)
	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)

	// The failed attempt must not be cached: the retry uploads again.
	fail = false
	handle, err := uploader.EnsureUploaded(context.Background(), doc, path)
	require.NoError(t, err)
	assert.Equal(t, "file-2", handle.FileID)
	assert.Equal(t, 2, remote.createFileCalls)
}
