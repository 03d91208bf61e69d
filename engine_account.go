package authcore

import (
	"context"
	"errors"
)

// GetAccount returns the public view of one account.
func (e *Engine) GetAccount(ctx context.Context, id string) (PublicUser, error) {
	if e == nil || e.accounts == nil {
		return PublicUser{}, ErrEngineNotReady
	}
	acct, err := e.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return PublicUser{}, ErrNotFound
		}
		return PublicUser{}, storeErr(err)
	}
	return acct.Public(), nil
}

// ListAccounts returns every account. Callers restrict it to super users.
func (e *Engine) ListAccounts(ctx context.Context) ([]PublicUser, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}
	accts, err := e.accounts.List(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	out := make([]PublicUser, 0, len(accts))
	for i := range accts {
		out = append(out, accts[i].Public())
	}
	return out, nil
}

// UpdateRole changes the role of targetID. An actor cannot change its own role.
func (e *Engine) UpdateRole(ctx context.Context, actorID, targetID string, role Role) (PublicUser, error) {
	if e == nil || e.accounts == nil {
		return PublicUser{}, ErrEngineNotReady
	}
	if actorID == targetID {
		return PublicUser{}, ErrSelfModification
	}
	if !role.Valid() {
		return PublicUser{}, ErrInvalidRole
	}

	if err := e.accounts.UpdateRole(ctx, targetID, role); err != nil {
		if errors.Is(err, ErrNotFound) {
			return PublicUser{}, ErrNotFound
		}
		return PublicUser{}, storeErr(err)
	}

	e.metricInc(MetricRoleChanged)
	e.emitAudit(ctx, auditEventRoleChange, true, targetID, "", nil, func() map[string]string {
		return map[string]string{"actor": actorID, "role": string(role)}
	})
	return e.GetAccount(ctx, targetID)
}

// DeleteAccount removes targetID. An actor cannot delete itself.
func (e *Engine) DeleteAccount(ctx context.Context, actorID, targetID string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}
	if actorID == targetID {
		return ErrSelfModification
	}

	if err := e.accounts.Delete(ctx, targetID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return storeErr(err)
	}

	e.metricInc(MetricAccountDeleted)
	e.emitAudit(ctx, auditEventAccountDeleted, true, targetID, "", nil, func() map[string]string {
		return map[string]string{"actor": actorID}
	})
	return nil
}
