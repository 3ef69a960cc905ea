package services

import (
	"fmt"

	"orgnet/contexts/governance/election-engine/domain/entities"
	domainerrors "orgnet/contexts/governance/election-engine/domain/errors"
)

// CheckDelegation validates a new authorization against the active ones
// that could apply to the same election. A delegating user holds at most
// one active authorization, and nobody is both a proxy and a delegator.
func CheckDelegation(candidate entities.ProxyAuthorization, active []entities.ProxyAuthorization) error {
	if candidate.DelegatingUserID == candidate.ProxyUserID {
		return fmt.Errorf("%w: a user cannot be their own proxy", domainerrors.ErrValidation)
	}
	for _, other := range active {
		if other.Revoked || other.AuthorizationID == candidate.AuthorizationID {
			continue
		}
		if !candidate.SharesScope(other) || !other.SharesScope(candidate) {
			continue
		}
		switch {
		case other.DelegatingUserID == candidate.DelegatingUserID:
			return fmt.Errorf("%w: %s already delegated their vote", domainerrors.ErrConflict, candidate.DelegatingUserID)
		case other.DelegatingUserID == candidate.ProxyUserID:
			return fmt.Errorf("%w: proxy %s delegated their own vote", domainerrors.ErrProxyChainForbidden, candidate.ProxyUserID)
		case other.ProxyUserID == candidate.DelegatingUserID:
			return fmt.Errorf("%w: %s already acts as a proxy", domainerrors.ErrProxyChainForbidden, candidate.DelegatingUserID)
		}
	}
	return nil
}
