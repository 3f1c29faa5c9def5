package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleVendor Role = "vendor"
)

func (r Role) IsValid() bool {
	return r == RoleBuyer || r == RoleVendor
}

const DefaultBuyerWallet = 100

type VendorInfo struct {
	StoreName   string `bson:"storeName,omitempty" json:"storeName,omitempty"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
}

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	UserName     string             `bson:"userName" json:"userName"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	Wallet       *int               `bson:"wallet,omitempty" json:"wallet,omitempty"`
	Address      Address            `bson:"address" json:"address"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	VendorInfo   *VendorInfo        `bson:"vendorInfo,omitempty" json:"vendorInfo,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Normalize drops fields that do not belong to the user's role.
func (u *User) Normalize() {
	switch u.Role {
	case RoleBuyer:
		u.VendorInfo = nil
		if u.Wallet == nil {
			w := DefaultBuyerWallet
			u.Wallet = &w
		}
	case RoleVendor:
		u.Wallet = nil
	}
}

// Identity is the verified caller attached to each request.
type Identity struct {
	UserID primitive.ObjectID
	Role   Role
}

// Buyer is the account context checkout needs.
type Buyer struct {
	ID      primitive.ObjectID
	Email   string
	Address Address
}
