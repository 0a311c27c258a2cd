// Package seed loads the demo suppliers, items and employees used by a fresh console.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-inventory/internal/directory"
)

// Options controls what Run loads. Demo employees share AdminPassword.
type Options struct {
	AdminEmail    string
	AdminPassword string
}

// Result counts the records Run created.
type Result struct {
	Suppliers int
	Items     int
	Employees int
}

type demoItem struct {
	sku, name, unit string
	cost, sale, tax string
	stock           int64
	supplier        int
}

var demoSuppliers = []directory.Supplier{
	{Name: "Northwind Traders", Email: "orders@northwind.example", Phone: "+1-555-0100", Address: "12 Harbour Road"},
	{Name: "Contoso Supplies", Email: "sales@contoso.example", Phone: "+1-555-0110", Address: "88 Market Street"},
	{Name: "Fabrikam Hardware", Email: "hello@fabrikam.example", Phone: "+1-555-0120", Address: "5 Foundry Lane"},
}

var demoItems = []demoItem{
	{"SKU-1001", "Ballpoint pen (box of 50)", "box", "8.50", "12.00", "10", 40, 0},
	{"SKU-1002", "A4 copy paper", "ream", "3.20", "4.99", "10", 120, 0},
	{"SKU-2001", "USB-C cable 1m", "pcs", "2.10", "5.50", "10", 75, 1},
	{"SKU-2002", "Wireless mouse", "pcs", "9.00", "17.90", "10", 25, 1},
	{"SKU-3001", "Claw hammer", "pcs", "6.40", "11.25", "5", 18, 2},
	{"SKU-3002", "Wood screws 4x40 (200)", "pack", "3.75", "6.80", "5", 60, 2},
}

// Run creates the admin account and the demo catalogue. An existing admin
// email makes it a no-op so restarts against a warm store are safe.
func Run(ctx context.Context, dir *directory.Service, opts Options, logger zerolog.Logger) (Result, error) {
	var res Result
	email := strings.ToLower(strings.TrimSpace(opts.AdminEmail))
	if email == "" {
		return res, errors.New("seed: admin email is required")
	}
	if _, err := dir.EmployeeByEmail(ctx, email); err == nil {
		logger.Info().Str("email", email).Msg("seed skipped, admin already present")
		return res, nil
	}

	employees := []directory.EmployeeInput{
		{Name: "Administrator", Email: email, Role: directory.RoleAdmin, Password: opts.AdminPassword},
		{Name: "Maya Manager", Email: demoEmail(email, "manager"), Role: directory.RoleManager, Password: opts.AdminPassword},
		{Name: "Sam Staff", Email: demoEmail(email, "staff"), Role: directory.RoleStaff, Password: opts.AdminPassword},
	}
	for _, in := range employees {
		if _, err := dir.CreateEmployee(ctx, in); err != nil {
			return res, fmt.Errorf("seed employee %s: %w", in.Email, err)
		}
		res.Employees++
	}

	supplierIDs := make([]string, 0, len(demoSuppliers))
	for _, in := range demoSuppliers {
		sup, err := dir.CreateSupplier(ctx, in)
		if err != nil {
			return res, fmt.Errorf("seed supplier %s: %w", in.Name, err)
		}
		supplierIDs = append(supplierIDs, sup.ID)
		res.Suppliers++
	}

	for _, d := range demoItems {
		_, err := dir.CreateItem(ctx, directory.Item{
			SKU:        d.sku,
			Name:       d.name,
			Unit:       d.unit,
			CostPrice:  decimal.RequireFromString(d.cost),
			SalePrice:  decimal.RequireFromString(d.sale),
			TaxPercent: decimal.RequireFromString(d.tax),
			Stock:      decimal.NewFromInt(d.stock),
			SupplierID: supplierIDs[d.supplier],
		})
		if err != nil {
			return res, fmt.Errorf("seed item %s: %w", d.sku, err)
		}
		res.Items++
	}

	logger.Info().
		Int("employees", res.Employees).
		Int("suppliers", res.Suppliers).
		Int("items", res.Items).
		Msg("demo data seeded")
	return res, nil
}

// demoEmail derives role@domain from the admin address.
func demoEmail(admin, role string) string {
	_, domain, ok := strings.Cut(admin, "@")
	if !ok || domain == "" {
		domain = "example.com"
	}
	return role + "@" + domain
}
