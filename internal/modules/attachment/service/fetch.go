package attachment

import (
	"context"
	"errors"

	"anoa.com/attachments/internal/entity"
	"anoa.com/attachments/pkg/apperror"
)

// Reader is the read path attachments are fetched through before a write.
type Reader interface {
	FindByID(ctx context.Context, id string) (*entity.Attachment, error)
}

// fetchByID separates a missing attachment (found == false, err == nil) from a
// failing read.
func fetchByID(ctx context.Context, reader Reader, id string) (attachment *entity.Attachment, found bool, err error) {
	attachment, err = reader.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if attachment == nil {
		return nil, false, nil
	}
	return attachment, true, nil
}
