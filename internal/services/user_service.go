package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/scolarfaso/backend/internal/config"
	"github.com/scolarfaso/backend/internal/models"
	"github.com/scolarfaso/backend/pkg/crypto"
	"github.com/scolarfaso/backend/pkg/phone"
	"gorm.io/gorm"
)

type UserService struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewUserService(db *gorm.DB, cfg *config.Config) *UserService {
	return &UserService{db: db, cfg: cfg}
}

// GetUserByID retrieves a user by ID
func (s *UserService) GetUserByID(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return &user, nil
}

// GetUserByPhone retrieves a user by phone number. The number is normalized
// first, canonical phone is the directory key.
func (s *UserService) GetUserByPhone(phoneNumber string) (*models.User, error) {
	canonical, err := phone.Normalize(phoneNumber)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.Where("phone = ?", canonical).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return &user, nil
}

// SetPassword re-hashes and stores the user's password. Called at the end of
// the password-reset flow, after the password_reset OTP verified.
func (s *UserService) SetPassword(userID uuid.UUID, newPassword string) error {
	hashed, err := crypto.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	res := s.db.Model(&models.User{}).Where("id = ?", userID).Update("password", hashed)
	if res.Error != nil {
		return fmt.Errorf("%w: %v", ErrStore, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetActive toggles the account's active flag.
func (s *UserService) SetActive(userID uuid.UUID, active bool) error {
	res := s.db.Model(&models.User{}).Where("id = ?", userID).Update("is_active", active)
	if res.Error != nil {
		return fmt.Errorf("%w: %v", ErrStore, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CreateDefaultAdmin seeds the platform admin account on first start.
func (s *UserService) CreateDefaultAdmin() error {
	canonical, err := phone.Normalize(s.cfg.AdminPhone)
	if err != nil {
		return fmt.Errorf("invalid ADMIN_PHONE: %w", err)
	}

	var existing models.User
	if err := s.db.Where("phone = ?", canonical).First(&existing).Error; err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}

	hashed, err := crypto.HashPassword(s.cfg.AdminPassword, s.cfg.BcryptCost)
	if err != nil {
		return err
	}

	admin := &models.User{
		Phone:    canonical,
		Name:     s.cfg.AdminName,
		Role:     models.RoleAdmin,
		Password: hashed,
		IsActive: true,
	}
	if err := s.db.Create(admin).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	log.Printf("Created default admin account for %s", canonical)
	return nil
}
