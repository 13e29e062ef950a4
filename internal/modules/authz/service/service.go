package authz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"anoa.com/attachments/pkg/token"
	"go.uber.org/zap"
)

// ActionEditAttachment covers both editing and deleting an attachment.
const ActionEditAttachment = "attachments:edit"

const roleAdmin = "admin"

// AuthContext is what the decision is made against.
type AuthContext struct {
	Owner string `json:"owner"`
}

// Decider answers whether the bearer of token may perform action. A false
// answer is a decision, an error means no decision could be obtained.
type Decider interface {
	UserCan(ctx context.Context, token, action string, authCtx AuthContext) (bool, error)
}

type remoteDecider struct {
	baseURL string
	client  *http.Client
}

// NewRemoteDecider asks the authorization service at baseURL.
func NewRemoteDecider(baseURL string, client *http.Client) Decider {
	if client == nil {
		client = http.DefaultClient
	}
	return &remoteDecider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
}

type decisionRequest struct {
	What    string      `json:"what"`
	Context AuthContext `json:"context"`
}

type decisionResponse struct {
	Can bool `json:"can"`
}

func (d *remoteDecider) UserCan(ctx context.Context, tok, action string, authCtx AuthContext) (bool, error) {
	payload, err := json.Marshal(decisionRequest{What: action, Context: authCtx})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/authorize", bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("failed to build authorization request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("authorization service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("authorization service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decision decisionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decision); err != nil {
		return false, fmt.Errorf("failed to decode authorization decision: %w", err)
	}
	return decision.Can, nil
}

type ownerPolicy struct {
	verifier token.Verifier
	logger   *zap.Logger
}

// NewOwnerPolicy decides locally: owners may edit their own attachments and
// admins may edit any. Used when no authorization service is configured.
func NewOwnerPolicy(verifier token.Verifier, logger *zap.Logger) Decider {
	return &ownerPolicy{verifier: verifier, logger: logger}
}

func (p *ownerPolicy) UserCan(ctx context.Context, tok, action string, authCtx AuthContext) (bool, error) {
	if action != ActionEditAttachment {
		return false, nil
	}

	claims, err := p.verifier.Verify(tok)
	if err != nil {
		p.logger.Debug("Denying request with unverifiable token", zap.Error(err))
		return false, nil
	}

	if claims.Role == roleAdmin {
		return true, nil
	}
	return authCtx.Owner != "" && claims.SubjectID() == authCtx.Owner, nil
}
