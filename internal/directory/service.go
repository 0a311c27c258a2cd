package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-inventory/internal/common"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("directory: record not found")
	// ErrDuplicate is returned when a unique field (SKU, employee email) is already taken.
	ErrDuplicate = errors.New("directory: duplicate record")
	// ErrLastAdmin prevents removing or demoting the only active admin.
	ErrLastAdmin = errors.New("directory: at least one active admin is required")
)

// Service owns suppliers, stock items and employees.
type Service struct {
	Suppliers *Table[Supplier]
	Items     *Table[Item]
	Employees *Table[Employee]

	validate *validator.Validate
	now      func() time.Time
}

// NewService constructs an empty directory.
func NewService() *Service {
	return &Service{
		Suppliers: NewTable(func(s Supplier) string { return s.ID }, func(s Supplier) string { return s.Name }),
		Items:     NewTable(func(i Item) string { return i.ID }, func(i Item) string { return i.Name }),
		Employees: NewTable(func(e Employee) string { return e.ID }, func(e Employee) string { return e.Name }),
		validate:  common.NewValidator(),
		now:       time.Now,
	}
}

// WithNow allows tests to override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ListSuppliers returns a page of suppliers whose name contains query.
func (s *Service) ListSuppliers(_ context.Context, query string, page, perPage int) ([]Supplier, int) {
	return s.Suppliers.List(query, page, perPage)
}

// Supplier fetches a supplier by id.
func (s *Service) Supplier(_ context.Context, id string) (Supplier, error) {
	sup, ok := s.Suppliers.Get(id)
	if !ok {
		return Supplier{}, ErrNotFound
	}
	return sup, nil
}

// CreateSupplier validates and stores a new supplier.
func (s *Service) CreateSupplier(_ context.Context, in Supplier) (Supplier, error) {
	in = normalizeSupplier(in)
	if err := common.Struct(s.validate, in); err != nil {
		return Supplier{}, err
	}
	now := s.now().UTC()
	in.ID = uuid.NewString()
	in.CreatedAt, in.UpdatedAt = now, now
	s.Suppliers.Put(in)
	return in, nil
}

// UpdateSupplier replaces the mutable fields of a supplier.
func (s *Service) UpdateSupplier(_ context.Context, id string, in Supplier) (Supplier, error) {
	in = normalizeSupplier(in)
	if err := common.Struct(s.validate, in); err != nil {
		return Supplier{}, err
	}
	updated, ok, err := s.Suppliers.Update(id, func(cur *Supplier) error {
		in.ID, in.CreatedAt, in.UpdatedAt = cur.ID, cur.CreatedAt, s.now().UTC()
		*cur = in
		return nil
	})
	if !ok {
		return Supplier{}, ErrNotFound
	}
	return updated, err
}

// DeleteSupplier removes a supplier. Items referencing it keep a dangling id.
func (s *Service) DeleteSupplier(_ context.Context, id string) error {
	if !s.Suppliers.Delete(id) {
		return ErrNotFound
	}
	return nil
}

// ListItems returns a page of stock items whose name contains query.
func (s *Service) ListItems(_ context.Context, query string, page, perPage int) ([]Item, int) {
	return s.Items.List(query, page, perPage)
}

// Item fetches a stock item by id.
func (s *Service) Item(_ context.Context, id string) (Item, error) {
	it, ok := s.Items.Get(id)
	if !ok {
		return Item{}, ErrNotFound
	}
	return it, nil
}

// CreateItem validates and stores a new stock item. SKUs are unique.
func (s *Service) CreateItem(ctx context.Context, in Item) (Item, error) {
	in = normalizeItem(in)
	if err := s.checkItem(ctx, in); err != nil {
		return Item{}, err
	}
	now := s.now().UTC()
	in.ID = uuid.NewString()
	in.CreatedAt, in.UpdatedAt = now, now
	if err := s.Items.Insert(in, func(existing Item) error { return skuTaken(existing, in.SKU) }); err != nil {
		return Item{}, err
	}
	return in, nil
}

// UpdateItem replaces the catalogue fields of a stock item. Stock is only
// changed through AdjustStock.
func (s *Service) UpdateItem(ctx context.Context, id string, in Item) (Item, error) {
	in = normalizeItem(in)
	if err := s.checkItem(ctx, in); err != nil {
		return Item{}, err
	}
	updated, ok, err := s.Items.UpdateGuarded(id, func(cur *Item, others []Item) error {
		for _, other := range others {
			if err := skuTaken(other, in.SKU); err != nil {
				return err
			}
		}
		in.ID, in.CreatedAt, in.UpdatedAt, in.Stock = cur.ID, cur.CreatedAt, s.now().UTC(), cur.Stock
		*cur = in
		return nil
	})
	if !ok {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, err
	}
	return updated, nil
}

// DeleteItem removes a stock item.
func (s *Service) DeleteItem(_ context.Context, id string) error {
	if !s.Items.Delete(id) {
		return ErrNotFound
	}
	return nil
}

// AdjustStock adds delta (which may be negative) to an item's stock level.
func (s *Service) AdjustStock(_ context.Context, id string, delta decimal.Decimal) (Item, error) {
	updated, ok, err := s.Items.Update(id, func(cur *Item) error {
		cur.Stock = cur.Stock.Add(delta)
		cur.UpdatedAt = s.now().UTC()
		return nil
	})
	if !ok {
		return Item{}, fmt.Errorf("adjust stock %s: %w", id, ErrNotFound)
	}
	return updated, err
}

func (s *Service) checkItem(ctx context.Context, in Item) error {
	if err := common.Struct(s.validate, in); err != nil {
		return err
	}
	if in.SupplierID != "" {
		if _, err := s.Supplier(ctx, in.SupplierID); err != nil {
			return &common.ValidationError{Fields: []common.FieldError{{Field: "supplierId", Rule: "exists"}}}
		}
	}
	return nil
}

func skuTaken(existing Item, sku string) error {
	if strings.EqualFold(existing.SKU, sku) {
		return fmt.Errorf("sku %q: %w", sku, ErrDuplicate)
	}
	return nil
}

func emailTaken(existing Employee, email string) error {
	if existing.Email == email {
		return fmt.Errorf("email %q: %w", email, ErrDuplicate)
	}
	return nil
}

// keepsAdmin fails when removing cur from the active admins would leave none.
func keepsAdmin(cur Employee, others []Employee) error {
	if cur.Role != RoleAdmin || !cur.Active {
		return nil
	}
	for _, e := range others {
		if e.Role == RoleAdmin && e.Active {
			return nil
		}
	}
	return ErrLastAdmin
}

// ListEmployees returns a page of employees whose name contains query.
func (s *Service) ListEmployees(_ context.Context, query string, page, perPage int) ([]Employee, int) {
	return s.Employees.List(query, page, perPage)
}

// Employee fetches an employee by id.
func (s *Service) Employee(_ context.Context, id string) (Employee, error) {
	emp, ok := s.Employees.Get(id)
	if !ok {
		return Employee{}, ErrNotFound
	}
	return emp, nil
}

// EmployeeByEmail looks up an employee by case-insensitive email.
func (s *Service) EmployeeByEmail(_ context.Context, email string) (Employee, error) {
	needle := strings.ToLower(strings.TrimSpace(email))
	emp, ok := s.Employees.Find(func(e Employee) bool { return e.Email == needle })
	if !ok {
		return Employee{}, ErrNotFound
	}
	return emp, nil
}

// CreateEmployee validates the payload, hashes the password and stores the employee.
func (s *Service) CreateEmployee(ctx context.Context, in EmployeeInput) (Employee, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := common.Struct(s.validate, in); err != nil {
		return Employee{}, err
	}
	if in.Password == "" {
		return Employee{}, &common.ValidationError{Fields: []common.FieldError{{Field: "password", Rule: "required"}}}
	}
	if _, err := s.EmployeeByEmail(ctx, in.Email); err == nil {
		return Employee{}, fmt.Errorf("email %q: %w", in.Email, ErrDuplicate)
	}
	hash, err := argon2id.CreateHash(in.Password, argon2id.DefaultParams)
	if err != nil {
		return Employee{}, fmt.Errorf("hash password: %w", err)
	}
	now := s.now().UTC()
	emp := Employee{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		Role:         in.Role,
		Active:       in.Active == nil || *in.Active,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Employees.Insert(emp, func(existing Employee) error { return emailTaken(existing, emp.Email) }); err != nil {
		return Employee{}, err
	}
	return emp, nil
}

// UpdateEmployee changes profile, role and optionally the password.
func (s *Service) UpdateEmployee(ctx context.Context, id string, in EmployeeInput) (Employee, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := common.Struct(s.validate, in); err != nil {
		return Employee{}, err
	}
	if other, err := s.EmployeeByEmail(ctx, in.Email); err == nil && other.ID != id {
		return Employee{}, fmt.Errorf("email %q: %w", in.Email, ErrDuplicate)
	}
	var hash string
	if in.Password != "" {
		h, err := argon2id.CreateHash(in.Password, argon2id.DefaultParams)
		if err != nil {
			return Employee{}, fmt.Errorf("hash password: %w", err)
		}
		hash = h
	}
	updated, ok, err := s.Employees.UpdateGuarded(id, func(e *Employee, others []Employee) error {
		for _, other := range others {
			if err := emailTaken(other, in.Email); err != nil {
				return err
			}
		}
		active := e.Active
		if in.Active != nil {
			active = *in.Active
		}
		if in.Role != RoleAdmin || !active {
			if err := keepsAdmin(*e, others); err != nil {
				return err
			}
		}
		e.Name, e.Email, e.Role, e.Active = in.Name, in.Email, in.Role, active
		if hash != "" {
			e.PasswordHash = hash
		}
		e.UpdatedAt = s.now().UTC()
		return nil
	})
	if !ok {
		return Employee{}, ErrNotFound
	}
	if err != nil {
		return Employee{}, err
	}
	return updated, nil
}

// DeleteEmployee removes an employee, refusing to remove the last active admin.
func (s *Service) DeleteEmployee(_ context.Context, id string) error {
	found, err := s.Employees.DeleteGuarded(id, keepsAdmin)
	if !found {
		return ErrNotFound
	}
	return err
}

func normalizeSupplier(in Supplier) Supplier {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	in.TaxID = strings.TrimSpace(in.TaxID)
	return in
}

func normalizeItem(in Item) Item {
	in.SKU = strings.ToUpper(strings.TrimSpace(in.SKU))
	in.Name = strings.TrimSpace(in.Name)
	in.Unit = strings.TrimSpace(in.Unit)
	in.SupplierID = strings.TrimSpace(in.SupplierID)
	return in
}
