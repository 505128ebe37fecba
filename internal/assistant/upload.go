package assistant

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/nvoss/zotassist/internal/models"
	"github.com/nvoss/zotassist/internal/session"
)

// Uploader deduplicates document uploads: each library item is uploaded to
// OpenAI at most once per cache lifetime.
type Uploader struct {
	client Remote
	state  *session.State
	logger *zap.Logger
}

func NewUploader(client Remote, state *session.State, logger *zap.Logger) *Uploader {
	return &Uploader{
		client: client,
		state:  state,
		logger: logger,
	}
}

// EnsureUploaded returns the remote file handle for doc, uploading the file
// at localPath only if no handle is cached. The cache is not written on
// failure, so a retry attempts the upload again.
func (u *Uploader) EnsureUploaded(ctx context.Context, doc models.DocumentRef, localPath string) (models.FileHandle, error) {
	if fileID, ok := u.state.FileID(doc.ItemKey); ok {
		u.logger.Info("using cached file id",
			zap.String("item_key", doc.ItemKey),
			zap.String("file_id", fileID))
		return models.FileHandle{ItemKey: doc.ItemKey, FileID: fileID}, nil
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return models.FileHandle{}, &UploadError{
			ItemKey: doc.ItemKey,
			Err:     fmt.Errorf("file not readable: %w", err),
		}
	}

	u.logger.Info("uploading document",
		zap.String("item_key", doc.ItemKey),
		zap.String("path", localPath),
		zap.Int64("size_bytes", info.Size()))

	file, err := u.client.CreateFile(ctx, openai.FileRequest{
		FileName: filepath.Base(localPath),
		FilePath: localPath,
		Purpose:  string(openai.PurposeAssistants),
	})
	if err != nil {
		return models.FileHandle{}, &UploadError{ItemKey: doc.ItemKey, Err: err}
	}

	u.state.RememberFileID(doc.ItemKey, file.ID)
	u.logger.Info("uploaded document",
		zap.String("item_key", doc.ItemKey),
		zap.String("file_id", file.ID))

	return models.FileHandle{ItemKey: doc.ItemKey, FileID: file.ID}, nil
}
