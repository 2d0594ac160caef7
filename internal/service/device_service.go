package service

import (
	"context"

	"notevault-server/internal/domain"
	"notevault-server/internal/repository"
)

// DeviceService lists and revokes the credentials trusted by the vault.
type DeviceService struct {
	credentials repository.CredentialRepository
}

func NewDeviceService(credentials repository.CredentialRepository) *DeviceService {
	return &DeviceService{credentials: credentials}
}

// List returns every trusted device, flagging the one the caller is using.
func (s *DeviceService) List(ctx context.Context, ownerID, currentCredentialID string) ([]*domain.DeviceResponse, error) {
	creds, err := s.credentials.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	devices := make([]*domain.DeviceResponse, 0, len(creds))
	for _, c := range creds {
		devices = append(devices, &domain.DeviceResponse{
			ID:         c.ID,
			Label:      c.Label,
			CreatedAt:  c.CreatedAt,
			LastUsedAt: c.LastUsedAt,
			Current:    c.ID == currentCredentialID,
		})
	}

	return devices, nil
}

// Revoke removes a device. The last remaining credential can never be
// revoked; losing it would lock the owner out of their own vault for good.
func (s *DeviceService) Revoke(ctx context.Context, ownerID, credentialID string) error {
	cred, err := s.credentials.FindByID(ctx, credentialID)
	if err != nil {
		return err
	}
	if cred == nil || cred.OwnerID != ownerID {
		return domain.E(domain.KindNotFound, "device not found")
	}

	deleted, err := s.credentials.DeleteGuarded(ctx, ownerID, credentialID)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.E(domain.KindLastDevice, "cannot revoke the vault's last device")
	}

	return nil
}
