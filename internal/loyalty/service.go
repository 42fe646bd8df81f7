package loyalty

import (
	"context"
	"errors"
	"fmt"

	"github.com/ovaphlow/pitchfork/service-loyalty-go/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-loyalty-go/internal/user/repo"
)

// maxAttempts bounds retries when a generated code is already held by someone else.
const maxAttempts = 5

var (
	ErrAlreadyAssigned = errors.New("loyalty card already assigned")
	ErrCodesExhausted  = errors.New("could not generate an unused loyalty code")
)

// AlreadyAssignedError carries the code the user already holds.
type AlreadyAssignedError struct {
	Code string
}

func (e *AlreadyAssignedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrAlreadyAssigned, e.Code)
}

func (e *AlreadyAssignedError) Is(target error) bool { return target == ErrAlreadyAssigned }

// Service assigns loyalty card codes. A user gets at most one code, ever.
type Service struct {
	newCode CodeGenerator
}

// NewService builds the service; a nil gen uses NewCode.
func NewService(gen CodeGenerator) *Service {
	if gen == nil {
		gen = NewCode
	}
	return &Service{newCode: gen}
}

// Assign gives the user behind email a new code. The write only lands while
// the column is still NULL, so two concurrent calls cannot both succeed.
func (s *Service) Assign(ctx context.Context, store user.CredentialStore, email string) (string, error) {
	email = user.NormalizeEmail(email)
	if existing, err := s.existingCode(ctx, store, email); err != nil {
		return "", err
	} else if existing != "" {
		return "", &AlreadyAssignedError{Code: existing}
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return "", err
		}
		err = store.UpdateLoyaltyCode(ctx, email, code)
		switch {
		case err == nil:
			return code, nil
		case errors.Is(err, userrepo.ErrDuplicate):
			continue
		case errors.Is(err, userrepo.ErrLoyaltyAssigned):
			// lost a race, or the row vanished between the read and the update
			existing, rerr := s.existingCode(ctx, store, email)
			if rerr != nil {
				return "", rerr
			}
			if existing == "" {
				return "", fmt.Errorf("loyalty code for %s not persisted", email)
			}
			return "", &AlreadyAssignedError{Code: existing}
		default:
			return "", err
		}
	}
	return "", ErrCodesExhausted
}

func (s *Service) existingCode(ctx context.Context, store user.CredentialStore, email string) (string, error) {
	u, err := store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return "", user.ErrInvalidCredentials
		}
		return "", err
	}
	if u.LoyaltyCardID == nil {
		return "", nil
	}
	return *u.LoyaltyCardID, nil
}
