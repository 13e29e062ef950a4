package attachment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"anoa.com/attachments/internal/entity"
	authz "anoa.com/attachments/internal/modules/authz/service"
	changefeed "anoa.com/attachments/internal/modules/changefeed/service"
	"anoa.com/attachments/pkg/apperror"
	"anoa.com/attachments/pkg/token"
)

type fakeRepo struct {
	mu          sync.Mutex
	rows        map[string]*entity.Attachment
	findErr     error
	createCount int
	updateCount int
	deleteCount int
	// zeroWrites makes Create/Update/Delete report zero affected rows.
	zeroWrites bool
	// onDelete runs after a row is removed.
	onDelete func()
	nextID   int
}

func newFakeRepo(rows ...*entity.Attachment) *fakeRepo {
	r := &fakeRepo{rows: map[string]*entity.Attachment{}}
	for _, row := range rows {
		r.rows[row.ID] = clone(row)
	}
	return r
}

func clone(a *entity.Attachment) *entity.Attachment {
	c := *a
	return &c
}

func (r *fakeRepo) Create(ctx context.Context, attachment *entity.Attachment) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCount++
	if r.zeroWrites {
		return 0, nil
	}
	r.nextID++
	attachment.ID = fmt.Sprintf("att-%d", r.nextID)
	r.rows[attachment.ID] = clone(attachment)
	return 1, nil
}

func (r *fakeRepo) FindByID(ctx context.Context, id string) (*entity.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	row, ok := r.rows[id]
	if !ok {
		return nil, fmt.Errorf("attachment %s: %w", id, apperror.ErrNotFound)
	}
	return clone(row), nil
}

func (r *fakeRepo) Update(ctx context.Context, id string, fields map[string]any) (int64, *entity.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCount++
	row, ok := r.rows[id]
	if !ok || r.zeroWrites {
		return 0, nil, nil
	}
	for field, value := range fields {
		var ptr *string
		if s, isString := value.(string); isString {
			ptr = &s
		}
		switch field {
		case entity.FieldParentID:
			row.ParentID = ptr
		case entity.FieldParentType:
			row.ParentType = ptr
		case entity.FieldParentSubtype:
			row.ParentSubtype = ptr
		default:
			return 0, nil, fmt.Errorf("field %q is not mutable", field)
		}
	}
	return 1, clone(row), nil
}

func (r *fakeRepo) Delete(ctx context.Context, id string) (int64, *entity.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteCount++
	row, ok := r.rows[id]
	if !ok || r.zeroWrites {
		return 0, nil, nil
	}
	delete(r.rows, id)
	if r.onDelete != nil {
		r.onDelete()
	}
	return 1, row, nil
}

func (r *fakeRepo) FindOrphans(ctx context.Context, cutoffTime time.Time) ([]entity.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var orphans []entity.Attachment
	for _, row := range r.rows {
		if row.ParentID == nil && row.Timestamp.Before(cutoffTime) {
			orphans = append(orphans, *row)
		}
	}
	return orphans, nil
}

type fakeVerifier struct {
	subjects map[string]string
}

func (v fakeVerifier) Verify(tokenString string) (*token.Claims, error) {
	subject, ok := v.subjects[tokenString]
	if !ok {
		return nil, token.ErrInvalidToken
	}
	return &token.Claims{UserID: subject}, nil
}

// fakeDecider allows a token to edit attachments of the owners listed for it.
type fakeDecider struct {
	mu      sync.Mutex
	allowed map[string][]string
	err     error
	calls   []authz.AuthContext
}

func (d *fakeDecider) UserCan(ctx context.Context, tok, action string, authCtx authz.AuthContext) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, authCtx)
	if d.err != nil {
		return false, d.err
	}
	if action != authz.ActionEditAttachment {
		return false, nil
	}
	for _, owner := range d.allowed[tok] {
		if owner == authCtx.Owner {
			return true, nil
		}
	}
	return false, nil
}

type fakeFiles struct {
	mu      sync.Mutex
	deleted []string
	err     error
}

func (f *fakeFiles) DeleteObject(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return f.err
}

func (f *fakeFiles) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

type fakePublisher struct {
	mu      sync.Mutex
	changes []changefeed.Change
}

func (p *fakePublisher) Publish(ctx context.Context, change changefeed.Change) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, change)
	return nil
}

func (p *fakePublisher) published() []changefeed.Change {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]changefeed.Change(nil), p.changes...)
}

type fakeIndex struct {
	mu      sync.Mutex
	indexed []string
	removed []string
}

func (i *fakeIndex) IndexAttachment(attachment *entity.Attachment) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.indexed = append(i.indexed, attachment.ID)
	return nil
}

func (i *fakeIndex) DeleteAttachment(id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.removed = append(i.removed, id)
	return errors.New("index unavailable")
}
