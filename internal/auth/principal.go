package auth

import "rental-backend/internal/models"

// Principal is the authenticated caller, passed explicitly into every service call
type Principal struct {
	UserID int         `json:"user_id"`
	Role   models.Role `json:"role"`
}

func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

// OwnsProperty is true for the listing's owner account
func (p Principal) OwnsProperty(prop *models.Property) bool {
	return p.Role == models.RoleOwner && prop.OwnerID == p.UserID
}

// CanManageProperty covers the owner and any admin
func (p Principal) CanManageProperty(prop *models.Property) bool {
	return p.IsAdmin() || p.OwnsProperty(prop)
}
