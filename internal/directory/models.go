package directory

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role names an employee's access level.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
)

// Supplier is a vendor that purchase invoices are raised against.
type Supplier struct {
	ID        string    `json:"id"`
	Name      string    `json:"name" validate:"required,max=120"`
	Email     string    `json:"email,omitempty" validate:"omitempty,email"`
	Phone     string    `json:"phone,omitempty" validate:"omitempty,max=32"`
	Address   string    `json:"address,omitempty" validate:"max=255"`
	TaxID     string    `json:"taxId,omitempty" validate:"max=32"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Item is a stock keeping unit.
type Item struct {
	ID         string          `json:"id"`
	SKU        string          `json:"sku" validate:"required,max=64"`
	Name       string          `json:"name" validate:"required,max=120"`
	Unit       string          `json:"unit,omitempty" validate:"omitempty,max=16"`
	CostPrice  decimal.Decimal `json:"costPrice" validate:"gte=0"`
	SalePrice  decimal.Decimal `json:"salePrice" validate:"gte=0"`
	TaxPercent decimal.Decimal `json:"taxPercent" validate:"gte=0,lte=100"`
	Stock      decimal.Decimal `json:"stock"`
	SupplierID string          `json:"supplierId,omitempty" validate:"omitempty,uuid"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Employee is a console user. PasswordHash never leaves the process.
type Employee struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// EmployeeInput is the create/update payload for employees.
type EmployeeInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Role     Role   `json:"role" validate:"required,oneof=admin manager staff"`
	Active   *bool  `json:"active"`
	Password string `json:"password" validate:"omitempty,min=8"`
}
