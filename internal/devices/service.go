// Package devices tracks the end-to-end encryption keys a user registers
// per device.
package devices

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/moda-commerce/moda-backend/pkg/auth"
	"github.com/moda-commerce/moda-backend/pkg/db/models"
	pkgerrors "github.com/moda-commerce/moda-backend/pkg/errors"
)

const (
	maxDeviceName = 128
	maxPublicKey  = 8192
)

type RegisterInput struct {
	DeviceName string  `json:"deviceName" validate:"required,max=128"`
	UserAgent  *string `json:"userAgent,omitempty" validate:"omitempty,max=512"`
	PublicKey  string  `json:"publicKey" validate:"required,max=8192"`
}

type Service interface {
	RegisterDevice(ctx context.Context, principal auth.Principal, input RegisterInput) (*models.UserDevice, error)
	ListDevices(ctx context.Context, principal auth.Principal) ([]models.UserDevice, error)
	RemoveDevice(ctx context.Context, principal auth.Principal, deviceID uuid.UUID) error
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("device repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) RegisterDevice(ctx context.Context, principal auth.Principal, input RegisterInput) (*models.UserDevice, error) {
	if err := requireUser(principal); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.DeviceName)
	key := strings.TrimSpace(input.PublicKey)
	switch {
	case name == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "device name required")
	case len(name) > maxDeviceName:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "device name too long")
	case key == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "public key required")
	case len(key) > maxPublicKey:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "public key too long")
	}

	seen := s.now().UTC()
	device := &models.UserDevice{
		UserID:      principal.UserID,
		DeviceName:  name,
		UserAgent:   input.UserAgent,
		PublicKey:   key,
		Fingerprint: Fingerprint(key),
		LastSeenAt:  &seen,
	}
	if err := s.repo.Upsert(ctx, device); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "register device")
	}
	stored, err := s.repo.FindByName(ctx, principal.UserID, name)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load device")
	}
	return stored, nil
}

func (s *service) ListDevices(ctx context.Context, principal auth.Principal) ([]models.UserDevice, error) {
	if err := requireUser(principal); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByUser(ctx, principal.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list devices")
	}
	return rows, nil
}

func (s *service) RemoveDevice(ctx context.Context, principal auth.Principal, deviceID uuid.UUID) error {
	if err := requireUser(principal); err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, principal.UserID, deviceID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove device")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "device not found")
	}
	return nil
}

// Fingerprint is the hex blake2b-256 digest of a public key.
func Fingerprint(publicKey string) string {
	sum := blake2b.Sum256([]byte(publicKey))
	return hex.EncodeToString(sum[:])
}

func requireUser(principal auth.Principal) error {
	if principal.UserID == uuid.Nil || !principal.Valid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return nil
}
