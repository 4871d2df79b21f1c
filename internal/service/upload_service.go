package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/id"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const badFilenameChars = `/\?%*:|"<>`

// UploadService runs the two-phase upload handshake: initiate hands out a
// short-lived signed target URL, the blob endpoint accepts the bytes, and
// finalize seals the upload after checking the blob really arrived.
type UploadService struct {
	uploads repository.UploadRepository
	store   *persistence.FileStore
	secret  []byte
	ttl     time.Duration
	maxSize int64
	logger  *zap.Logger
	now     func() time.Time
}

// UploadDependencies bundles collaborators for the upload service.
type UploadDependencies struct {
	UploadRepo repository.UploadRepository
	Store      *persistence.FileStore
	Secret     string
	Upload     config.UploadConfig
	Logger     *zap.Logger

	// Now overrides the clock in tests; nil means time.Now.
	Now func() time.Time
}

// NewUploadService constructs the service.
func NewUploadService(deps UploadDependencies) *UploadService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &UploadService{
		uploads: deps.UploadRepo,
		store:   deps.Store,
		secret:  []byte(deps.Secret),
		ttl:     deps.Upload.URLTTL(),
		maxSize: deps.Upload.MaxSizeBytes,
		logger:  deps.Logger,
		now:     now,
	}
}

// Initiate validates the declared metadata and hands out the signed blob
// target.
func (s *UploadService) Initiate(ctx context.Context, owner id.ID, meta domain.UploadMetadata) (domain.InitiatedUpload, error) {
	if err := s.validateMetadata(meta); err != nil {
		return domain.InitiatedUpload{}, err
	}

	uploadID := id.Generate()
	upload := &domain.Upload{ID: uploadID, Owner: owner, State: domain.UploadStateInitiated, Metadata: meta}
	if err := s.uploads.Insert(ctx, upload); err != nil {
		return domain.InitiatedUpload{}, apperrors.NewInternalError(err)
	}

	expiration := s.now().Add(s.ttl)
	token := s.signGrant(uploadID, expiration)

	s.logger.Info("upload initiated",
		zap.String("upload_id", uploadID.String()),
		zap.String("owner", owner.String()),
		zap.String("filename", meta.Filename))

	return domain.InitiatedUpload{
		ID:  uploadID,
		URL: fmt.Sprintf("/api/upload/%s/blob", uploadID),
		Fields: map[string]string{
			"token":   token,
			"expires": strconv.FormatInt(expiration.Unix(), 10),
		},
		Expiration: expiration.UTC(),
	}, nil
}

// ReceiveBlob stores the bytes behind a valid grant. The byte count must
// match the declared size exactly.
func (s *UploadService) ReceiveBlob(ctx context.Context, uploadID id.ID, token, expires string, r io.Reader) error {
	expiresUnix, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return apperrors.NewUnauthorized("malformed upload grant")
	}
	expiration := time.Unix(expiresUnix, 0)
	if s.now().After(expiration) {
		return apperrors.NewUnauthorized("upload grant expired")
	}
	if !hmac.Equal([]byte(s.signGrant(uploadID, expiration)), []byte(token)) {
		return apperrors.NewUnauthorized("invalid upload grant")
	}

	upload, err := s.get(ctx, uploadID)
	if err != nil {
		return err
	}
	if upload.State != domain.UploadStateInitiated {
		return apperrors.NewConflict("upload already finalized")
	}

	written, err := s.store.Put(uploadID.String(), io.LimitReader(r, upload.Metadata.Size+1))
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if written != upload.Metadata.Size {
		return apperrors.NewValidationError("blob size does not match declared metadata")
	}
	return nil
}

// Finalize seals the upload. Only the initiator may finalize, and only after
// the declared bytes actually arrived.
func (s *UploadService) Finalize(ctx context.Context, performer id.ID, uploadID id.ID) error {
	upload, err := s.get(ctx, uploadID)
	if err != nil {
		return err
	}
	if upload.State != domain.UploadStateInitiated {
		return apperrors.NewConflict("upload already finalized")
	}
	if upload.Owner != performer {
		return apperrors.NewForbidden("only the initiator may finalize the upload")
	}

	size, err := s.store.Size(uploadID.String())
	if err != nil || size != upload.Metadata.Size {
		return apperrors.NewValidationError("blob was not uploaded")
	}

	upload.State = domain.UploadStateFinalized
	if err := s.uploads.Update(ctx, upload); err != nil {
		return apperrors.NewInternalError(err)
	}
	s.logger.Info("upload finalized", zap.String("upload_id", uploadID.String()))
	return nil
}

// File opens a finalized blob for download.
func (s *UploadService) File(ctx context.Context, uploadID id.ID) (domain.UploadMetadata, io.ReadCloser, error) {
	upload, err := s.get(ctx, uploadID)
	if err != nil {
		return domain.UploadMetadata{}, nil, err
	}
	if upload.State != domain.UploadStateFinalized {
		return domain.UploadMetadata{}, nil, apperrors.NewNotFound("upload")
	}
	blob, err := s.store.Open(uploadID.String())
	if err != nil {
		return domain.UploadMetadata{}, nil, apperrors.NewInternalError(err)
	}
	return upload.Metadata, blob, nil
}

func (s *UploadService) get(ctx context.Context, uploadID id.ID) (*domain.Upload, error) {
	upload, err := s.uploads.Get(ctx, uploadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("upload")
		}
		return nil, apperrors.NewInternalError(err)
	}
	return upload, nil
}

func (s *UploadService) validateMetadata(meta domain.UploadMetadata) error {
	if meta.Filename == "" || strings.ContainsAny(meta.Filename, badFilenameChars) {
		return apperrors.NewValidationError("invalid filename")
	}
	if meta.ContentType == "" {
		return apperrors.NewValidationError("content type must not be empty")
	}
	if meta.Size <= 0 {
		return apperrors.NewValidationError("size must be positive")
	}
	if s.maxSize > 0 && meta.Size > s.maxSize {
		return apperrors.NewValidationError("file too large")
	}
	return nil
}

func (s *UploadService) signGrant(uploadID id.ID, expiration time.Time) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s:%d", uploadID, expiration.Unix())
	return hex.EncodeToString(mac.Sum(nil))
}
