package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/feltkeeper/feltkeeper/internal/client/models"
	"github.com/feltkeeper/feltkeeper/internal/client/projections"
	"github.com/feltkeeper/feltkeeper/internal/client/repositories/records"
	"github.com/feltkeeper/feltkeeper/internal/dbx"
	"github.com/feltkeeper/feltkeeper/internal/logging"
	"github.com/feltkeeper/feltkeeper/internal/netx"
)

// Presigner grants a short-lived upload URL for an attachment's bytes.
type Presigner interface {
	PresignUpload(ctx context.Context, attachmentID string) (string, error)
}

// AttachmentService pushes locally captured attachment bytes to remote
// storage. The sync engine calls UploadPending after every successful push;
// an attachment that fails to upload keeps its flag and is retried on the
// next cycle.
type AttachmentService interface {
	UploadPending(ctx context.Context) error
}

type attachmentService struct {
	db       *sql.DB
	proj     *projections.Projections
	presign  Presigner
	log      logging.Logger
	now      func() string
	readFile func(string) ([]byte, error)
}

func NewAttachmentService(db *sql.DB, proj *projections.Projections, presign Presigner, log logging.Logger) AttachmentService {
	return &attachmentService{
		db:       db,
		proj:     proj,
		presign:  presign,
		log:      log,
		now:      models.NowISO,
		readFile: os.ReadFile,
	}
}

func (s *attachmentService) UploadPending(ctx context.Context) error {
	var errs []error
	for _, a := range s.proj.PendingUploads() {
		if err := s.uploadOne(ctx, a); err != nil {
			s.log.Warn(ctx, "attachment upload failed", "attachment", a.ID, "error", err)
			errs = append(errs, fmt.Errorf("attachment %s: %w", a.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *attachmentService) uploadOne(ctx context.Context, a models.Attachment) error {
	url, err := s.presign.PresignUpload(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("presign: %w", err)
	}

	data, err := s.readFile(localPath(a.ContentUri))
	if err != nil {
		return fmt.Errorf("read content: %w", err)
	}

	var mime string
	if a.MimeType != nil {
		mime = *a.MimeType
	}
	if err := netx.UploadToPresignedURL(ctx, url, mime, data); err != nil {
		return err
	}

	// Bytes are remote now; clear the flag with a tracked update so the
	// state change syncs like any other write.
	a.UploadRequired = false
	a.UpdatedAt = s.now()
	a.Dirty = true
	err = writeTracked(ctx, s.db, models.TableAttachments, models.OpUpdate, a.ID, &a,
		func(ctx context.Context, tx dbx.DBTX) error {
			return records.NewSQLiteRepository(tx).UpsertAttachment(ctx, &a)
		})
	if err != nil {
		return err
	}
	s.proj.ApplyAttachments(a)
	return nil
}

// localPath strips a file scheme off a content URI; anything else is treated
// as a plain filesystem path.
func localPath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}
