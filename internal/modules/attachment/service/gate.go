package attachment

import (
	"context"

	authz "anoa.com/attachments/internal/modules/authz/service"
)

type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// gate asks whether a caller may edit an attachment owned by owner. Edits and
// deletes are both checked as ActionEditAttachment against the stored owner.
type gate struct {
	decider authz.Decider
}

func (g gate) Authorize(ctx context.Context, token, owner string) (Decision, error) {
	can, err := g.decider.UserCan(ctx, token, authz.ActionEditAttachment, authz.AuthContext{Owner: owner})
	if err != nil {
		return Deny, err
	}
	if !can {
		return Deny, nil
	}
	return Allow, nil
}
