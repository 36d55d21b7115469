// internal/domain/user/address_service.go
package user

import (
	"errors"
	"fmt"
	"strings"

	"github.com/your-org/marketplace-backend/internal/config"
	"gorm.io/gorm"
)

// AddressService handles address business logic
type AddressService struct {
	db     *gorm.DB
	config *config.Config
}

// NewAddressService creates a new address service
func NewAddressService(db *gorm.DB, cfg *config.Config) *AddressService {
	return &AddressService{
		db:     db,
		config: cfg,
	}
}

// CreateAddressRequest represents address creation data
type CreateAddressRequest struct {
	Label        string `json:"label"`
	Street       string `json:"street" binding:"required"`
	Number       string `json:"number" binding:"required"`
	Complement   string `json:"complement"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city" binding:"required"`
	State        string `json:"state" binding:"required,len=2"`
	PostalCode   string `json:"postal_code" binding:"required"`
	IsDefault    bool   `json:"is_default"`
}

// UpdateAddressRequest represents address update data
type UpdateAddressRequest struct {
	Label        *string `json:"label"`
	Street       *string `json:"street"`
	Number       *string `json:"number"`
	Complement   *string `json:"complement"`
	Neighborhood *string `json:"neighborhood"`
	City         *string `json:"city"`
	State        *string `json:"state" binding:"omitempty,len=2"`
	PostalCode   *string `json:"postal_code"`
	IsDefault    *bool   `json:"is_default"`
}

// GetUserAddresses retrieves all addresses for a user
func (s *AddressService) GetUserAddresses(userID uint) ([]Address, error) {
	var addresses []Address

	// Order by default first, then by creation date
	err := s.db.Where("user_id = ?", userID).
		Order("is_default DESC, created_at DESC").
		Find(&addresses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve addresses: %w", err)
	}

	return addresses, nil
}

// GetAddress retrieves a specific address for a user
func (s *AddressService) GetAddress(userID, addressID uint) (*Address, error) {
	var address Address
	result := s.db.Where("id = ? AND user_id = ?", addressID, userID).First(&address)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("address not found")
		}
		return nil, fmt.Errorf("failed to retrieve address: %w", result.Error)
	}

	return &address, nil
}

// CreateAddress creates a new address for a user. The postal code is
// normalized to digits before storage.
func (s *AddressService) CreateAddress(userID uint, req *CreateAddressRequest) (*Address, error) {
	cep, err := normalizeCEP(req.PostalCode)
	if err != nil {
		return nil, err
	}

	// Start transaction
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	// If this is set as default, unset the previous default
	if req.IsDefault {
		if err := s.unsetDefaultAddresses(tx, userID); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	address := Address{
		UserID:       userID,
		Label:        req.Label,
		Street:       req.Street,
		Number:       req.Number,
		Complement:   req.Complement,
		Neighborhood: req.Neighborhood,
		City:         req.City,
		State:        strings.ToUpper(req.State),
		PostalCode:   cep,
		IsDefault:    req.IsDefault,
	}

	if err := tx.Create(&address).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create address: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &address, nil
}

// UpdateAddress updates an existing address
func (s *AddressService) UpdateAddress(userID, addressID uint, req *UpdateAddressRequest) (*Address, error) {
	// Get existing address
	address, err := s.GetAddress(userID, addressID)
	if err != nil {
		return nil, err
	}

	// Start transaction
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	// If setting as default, unset the previous default
	if req.IsDefault != nil && *req.IsDefault {
		if err := s.unsetDefaultAddresses(tx, userID); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	// Build updates map
	updates := make(map[string]interface{})

	if req.Label != nil {
		updates["label"] = *req.Label
	}
	if req.Street != nil {
		updates["street"] = *req.Street
	}
	if req.Number != nil {
		updates["number"] = *req.Number
	}
	if req.Complement != nil {
		updates["complement"] = *req.Complement
	}
	if req.Neighborhood != nil {
		updates["neighborhood"] = *req.Neighborhood
	}
	if req.City != nil {
		updates["city"] = *req.City
	}
	if req.State != nil {
		updates["state"] = strings.ToUpper(*req.State)
	}
	if req.PostalCode != nil {
		cep, err := normalizeCEP(*req.PostalCode)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		updates["postal_code"] = cep
	}
	if req.IsDefault != nil {
		updates["is_default"] = *req.IsDefault
	}

	// Update address
	if err := tx.Model(address).Updates(updates).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update address: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Reload address with updates
	return s.GetAddress(userID, addressID)
}

// DeleteAddress deletes an address
func (s *AddressService) DeleteAddress(userID, addressID uint) error {
	result := s.db.Where("id = ? AND user_id = ?", addressID, userID).Delete(&Address{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete address: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("address not found")
	}
	return nil
}

// GetDefaultAddress gets the default address for a user
func (s *AddressService) GetDefaultAddress(userID uint) (*Address, error) {
	var address Address
	result := s.db.Where("user_id = ? AND is_default = ?", userID, true).First(&address)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no default address found")
		}
		return nil, fmt.Errorf("failed to retrieve default address: %w", result.Error)
	}

	return &address, nil
}

// ValidateAddress validates address completeness for orders
func (s *AddressService) ValidateAddress(address *Address) error {
	if address.Street == "" {
		return fmt.Errorf("street is required")
	}
	if address.Number == "" {
		return fmt.Errorf("number is required")
	}
	if address.City == "" {
		return fmt.Errorf("city is required")
	}
	if address.State == "" {
		return fmt.Errorf("state is required")
	}
	if _, err := normalizeCEP(address.PostalCode); err != nil {
		return err
	}
	return nil
}

// unsetDefaultAddresses removes the default flag from all addresses of a user
func (s *AddressService) unsetDefaultAddresses(tx *gorm.DB, userID uint) error {
	return tx.Model(&Address{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).Error
}

// normalizeCEP strips non-digits and requires a full 8-digit CEP
func normalizeCEP(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	cep := b.String()
	if len(cep) != 8 {
		return "", fmt.Errorf("postal code must contain 8 digits")
	}
	return cep, nil
}
