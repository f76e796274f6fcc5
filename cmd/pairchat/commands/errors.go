package commands

import (
	"context"
	"errors"
	"fmt"

	"pairchat/internal/domain"
	"pairchat/internal/relay"
)

var errPasswordRequired = errors.New("password required (-p)")

// describe prefixes err with what it means to the person at the terminal.
// The wrapped chain is kept for errors.Is.
func describe(err error) error {
	var re *relay.RelayError
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return nil
	case errors.Is(err, domain.ErrNotEstablished):
		return fmt.Errorf("still waiting for the other participant: %w", err)
	case errors.Is(err, domain.ErrSlotTaken):
		return fmt.Errorf("that slot is already in use for this session: %w", err)
	case errors.Is(err, domain.ErrAuthentication),
		errors.Is(err, domain.ErrTransportDecrypt),
		errors.Is(err, domain.ErrSignatureInvalid),
		errors.Is(err, domain.ErrKeyGeneration):
		return fmt.Errorf("cryptographic failure (wrong password or tampered data): %w", err)
	case errors.Is(err, domain.ErrPeerUnavailable), errors.Is(err, domain.ErrRelayClosed):
		return fmt.Errorf("the other participant is gone: %w", err)
	case errors.Is(err, domain.ErrRateLimited):
		return fmt.Errorf("relay is rate limiting this connection: %w", err)
	case errors.As(err, &re):
		return fmt.Errorf("relay refused the request (%s): %w", re.Code, err)
	default:
		return err
	}
}
