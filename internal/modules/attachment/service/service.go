package attachment

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"anoa.com/attachments/internal/entity"
	"anoa.com/attachments/internal/modules/attachment/dto"
	"anoa.com/attachments/internal/modules/attachment/repository"
	authz "anoa.com/attachments/internal/modules/authz/service"
	changefeed "anoa.com/attachments/internal/modules/changefeed/service"
	search "anoa.com/attachments/internal/modules/search/service"
	"anoa.com/attachments/pkg/apperror"
	"anoa.com/attachments/pkg/token"
	"go.uber.org/zap"
)

type AttachmentService interface {
	CreateAttachment(ctx context.Context, token string, req *dto.CreateAttachmentRequest) (*entity.Attachment, error)
	// UpdateAttachment returns nil data and no error when id does not exist.
	UpdateAttachment(ctx context.Context, token, id string, patch map[string]any) (*entity.Attachment, error)
	DeleteAttachment(ctx context.Context, token, id string) error
	CleanupOrphanAttachments(ctx context.Context) error
}

type attachmentService struct {
	attachmentRepo repository.AttachmentRepository
	reader         Reader
	verifier       token.Verifier
	gate           gate
	background     *Background
	changes        changefeed.Publisher
	meili          search.MeiliSearchService
	orphanMaxAge   time.Duration
	logger         *zap.Logger
	now            func() time.Time
}

// NewAttachmentService wires the write pipeline. meili may be nil when no
// search index is configured.
func NewAttachmentService(attachmentRepo repository.AttachmentRepository, verifier token.Verifier, decider authz.Decider, background *Background, changes changefeed.Publisher, meili search.MeiliSearchService, orphanMaxAge time.Duration, logger *zap.Logger) AttachmentService {
	return &attachmentService{
		attachmentRepo: attachmentRepo,
		reader:         attachmentRepo,
		verifier:       verifier,
		gate:           gate{decider: decider},
		background:     background,
		changes:        changes,
		meili:          meili,
		orphanMaxAge:   orphanMaxAge,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *attachmentService) CreateAttachment(ctx context.Context, tok string, req *dto.CreateAttachmentRequest) (*entity.Attachment, error) {
	var subject string

	return runPipeline(ctx, s.logger, "create",
		step{StateValidating, func(ctx context.Context) (*outcome, error) {
			if req == nil {
				return nil, apperror.InvalidInput("body", "JSON body is missing.")
			}
			if req.File == nil {
				return nil, apperror.InvalidInput("attachment", "File is missing.")
			}
			return nil, nil
		}},
		step{StateAuthenticating, func(ctx context.Context) (*outcome, error) {
			claims, err := s.verifier.Verify(tok)
			if err != nil {
				s.logger.Debug("Rejected attachment create", zap.Error(err))
				return nil, apperror.Unauthorized()
			}
			subject = claims.SubjectID()
			return nil, nil
		}},
		step{StateWriting, func(ctx context.Context) (*outcome, error) {
			attachment := &entity.Attachment{
				Filename:      req.File.Filename,
				Mimetype:      req.File.Mimetype,
				Size:          req.File.Size,
				Path:          req.File.Path,
				Timestamp:     s.now().UTC(),
				UserID:        subject,
				ParentID:      req.ParentID,
				ParentType:    req.ParentType,
				ParentSubtype: req.ParentSubtype,
			}

			inserted, err := s.attachmentRepo.Create(ctx, attachment)
			if err != nil {
				return nil, apperror.Internal(fmt.Errorf("insert attachment: %w", err))
			}
			if inserted == 0 {
				return nil, apperror.WriteFailed("Failed writing to database.")
			}

			s.logger.Info("Attachment created", zap.String("id", attachment.ID), zap.String("user_id", subject))
			s.afterWrite(ctx, changefeed.Change{Type: changefeed.ChangeInsert, NewVal: attachment})
			return finish(attachment)
		}},
	)
}

func (s *attachmentService) UpdateAttachment(ctx context.Context, tok, id string, patch map[string]any) (*entity.Attachment, error) {
	var (
		current *entity.Attachment
		diff    map[string]any
	)

	return runPipeline(ctx, s.logger, "update",
		step{StateValidating, func(ctx context.Context) (*outcome, error) {
			if id == "" {
				return nil, apperror.InvalidInput("id", "Attachment id is missing.")
			}
			return nil, validatePatch(patch)
		}},
		step{StateFetching, func(ctx context.Context) (*outcome, error) {
			attachment, found, err := fetchByID(ctx, s.reader, id)
			if err != nil {
				return nil, apperror.Internal(fmt.Errorf("fetch attachment %s: %w", id, err))
			}
			if !found {
				return finish(nil)
			}
			current = attachment
			return nil, nil
		}},
		step{StateAuthorizing, func(ctx context.Context) (*outcome, error) {
			return nil, s.authorize(ctx, tok, current)
		}},
		step{StateDiffing, func(ctx context.Context) (*outcome, error) {
			diff = ComputeDiff(current, patch)
			if len(diff) == 0 {
				return finish(current)
			}
			return nil, nil
		}},
		step{StateWriting, func(ctx context.Context) (*outcome, error) {
			replaced, updated, err := s.attachmentRepo.Update(ctx, id, diff)
			if err != nil {
				return nil, apperror.Internal(fmt.Errorf("update attachment %s: %w", id, err))
			}
			if replaced == 0 {
				return finish(current)
			}

			s.logger.Info("Attachment updated", zap.String("id", id), zap.Int("fields", len(diff)))
			s.afterWrite(ctx, changefeed.Change{Type: changefeed.ChangeUpdate, OldVal: current, NewVal: updated})
			return finish(updated)
		}},
	)
}

func (s *attachmentService) DeleteAttachment(ctx context.Context, tok, id string) error {
	var current *entity.Attachment

	_, err := runPipeline(ctx, s.logger, "delete",
		step{StateValidating, func(ctx context.Context) (*outcome, error) {
			if id == "" {
				return nil, apperror.InvalidInput("id", "Attachment id is missing.")
			}
			return nil, nil
		}},
		step{StateFetching, func(ctx context.Context) (*outcome, error) {
			attachment, found, err := fetchByID(ctx, s.reader, id)
			if err != nil {
				return nil, apperror.Internal(fmt.Errorf("fetch attachment %s: %w", id, err))
			}
			if !found {
				return nil, apperror.NotFound("Attachment not found.")
			}
			current = attachment
			return nil, nil
		}},
		step{StateAuthorizing, func(ctx context.Context) (*outcome, error) {
			return nil, s.authorize(ctx, tok, current)
		}},
		step{StateWriting, func(ctx context.Context) (*outcome, error) {
			deleted, removed, err := s.attachmentRepo.Delete(ctx, id)
			if err != nil {
				return nil, apperror.Internal(fmt.Errorf("delete attachment %s: %w", id, err))
			}
			if deleted == 0 {
				return finish(nil)
			}

			s.logger.Info("Attachment deleted", zap.String("id", id))
			s.afterWrite(ctx, changefeed.Change{Type: changefeed.ChangeDelete, OldVal: removed})

			// Cleanup starts in this step since the row is already gone.
			s.logger.Debug("Attachment pipeline step", zap.String("op", "delete"), zap.String("state", string(StateCleaning)))
			s.background.DeleteFile(ctx, removed.Path)
			return finish(nil)
		}},
	)
	return err
}

// CleanupOrphanAttachments removes attachments that were never linked to a
// parent within orphanMaxAge, together with their files.
func (s *attachmentService) CleanupOrphanAttachments(ctx context.Context) error {
	cutoff := s.now().Add(-s.orphanMaxAge)

	orphans, err := s.attachmentRepo.FindOrphans(ctx, cutoff)
	if err != nil {
		return err
	}

	removed := 0
	for _, orphan := range orphans {
		deleted, old, err := s.attachmentRepo.Delete(ctx, orphan.ID)
		if err != nil {
			// The next sweep picks it up again.
			s.logger.Warn("Failed to delete orphan attachment", zap.String("id", orphan.ID), zap.Error(err))
			continue
		}
		if deleted == 0 {
			continue
		}

		removed++
		s.afterWrite(ctx, changefeed.Change{Type: changefeed.ChangeDelete, OldVal: old})
		s.background.DeleteFile(ctx, old.Path)
	}

	if removed > 0 {
		s.logger.Info("Removed orphan attachments", zap.Int("count", removed), zap.Time("cutoff", cutoff))
	}
	return nil
}

func (s *attachmentService) authorize(ctx context.Context, tok string, current *entity.Attachment) error {
	decision, err := s.gate.Authorize(ctx, tok, current.UserID)
	if err != nil {
		return apperror.Internal(fmt.Errorf("authorize attachment %s: %w", current.ID, err))
	}
	if decision == Deny {
		return apperror.Unauthorized()
	}
	return nil
}

// afterWrite publishes the change set and syncs the search index, detached
// from the request.
func (s *attachmentService) afterWrite(ctx context.Context, change changefeed.Change) {
	if s.changes != nil {
		s.background.Go(ctx, "publish change", func(ctx context.Context) error {
			return s.changes.Publish(ctx, change)
		})
	}

	if s.meili == nil {
		return
	}
	s.background.Go(ctx, "sync search index", func(ctx context.Context) error {
		if change.NewVal == nil {
			return s.meili.DeleteAttachment(change.OldVal.ID)
		}
		return s.meili.IndexAttachment(change.NewVal)
	})
}

// validatePatch rejects parent fields that are neither a string nor null, or
// that do not fit their column. Other keys are left to ComputeDiff, which
// ignores them.
func validatePatch(patch map[string]any) error {
	for field := range entity.MutableColumns {
		value, ok := patch[field]
		if !ok || value == nil {
			continue
		}
		str, isString := value.(string)
		if !isString {
			return apperror.InvalidInput(field, fmt.Sprintf("%s must be a string or null.", field))
		}
		if limit := entity.MutableFieldMaxLength[field]; utf8.RuneCountInString(str) > limit {
			return apperror.InvalidInput(field, fmt.Sprintf("%s must be at most %d characters", field, limit))
		}
	}
	return nil
}
