package directory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alexedwards/argon2id"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-inventory/internal/common"
)

func TestSupplierCRUD(t *testing.T) {
	ctx := context.Background()
	svc := NewService()

	created, err := svc.CreateSupplier(ctx, Supplier{Name: "  Acme Supplies ", Email: "Sales@Acme.test"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "Acme Supplies", created.Name)
	require.Equal(t, "sales@acme.test", created.Email)

	updated, err := svc.UpdateSupplier(ctx, created.ID, Supplier{Name: "Acme Ltd"})
	require.NoError(t, err)
	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, created.CreatedAt, updated.CreatedAt)

	rows, total := svc.ListSuppliers(ctx, "acme", 1, 10)
	require.Equal(t, 1, total)
	require.Equal(t, "Acme Ltd", rows[0].Name)

	require.NoError(t, svc.DeleteSupplier(ctx, created.ID))
	require.ErrorIs(t, svc.DeleteSupplier(ctx, created.ID), ErrNotFound)
}

func TestSupplierValidation(t *testing.T) {
	_, err := NewService().CreateSupplier(context.Background(), Supplier{Email: "not-an-email"})
	var verr *common.ValidationError
	require.ErrorAs(t, err, &verr)
	require.ElementsMatch(t, []common.FieldError{{Field: "name", Rule: "required"}, {Field: "email", Rule: "email"}}, verr.Fields)
}

func TestItemSKUUniqueAndStock(t *testing.T) {
	ctx := context.Background()
	svc := NewService()

	first, err := svc.CreateItem(ctx, Item{SKU: "bolt-10", Name: "Bolt", CostPrice: decimal.NewFromInt(2), SalePrice: decimal.NewFromInt(3), Stock: decimal.NewFromInt(5)})
	require.NoError(t, err)
	require.Equal(t, "BOLT-10", first.SKU)

	_, err = svc.CreateItem(ctx, Item{SKU: "BOLT-10", Name: "Other bolt"})
	require.ErrorIs(t, err, ErrDuplicate)

	_, err = svc.CreateItem(ctx, Item{SKU: "NUT", Name: "Nut", CostPrice: decimal.NewFromInt(-1)})
	var verr *common.ValidationError
	require.ErrorAs(t, err, &verr)

	adjusted, err := svc.AdjustStock(ctx, first.ID, decimal.NewFromInt(-7))
	require.NoError(t, err)
	require.True(t, adjusted.Stock.Equal(decimal.NewFromInt(-2)))

	updated, err := svc.UpdateItem(ctx, first.ID, Item{SKU: "BOLT-10", Name: "Bolt M10", Stock: decimal.NewFromInt(100)})
	require.NoError(t, err)
	require.True(t, updated.Stock.Equal(decimal.NewFromInt(-2)), "stock only changes through AdjustStock")

	_, err = svc.AdjustStock(ctx, "missing", decimal.NewFromInt(1))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestItemSupplierMustExist(t *testing.T) {
	_, err := NewService().CreateItem(context.Background(), Item{SKU: "X", Name: "X", SupplierID: "8d3f0c2e-7a4b-4f55-9a43-2b8f6f0e9e11"})
	var verr *common.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "supplierId", verr.Fields[0].Field)
}

func TestEmployeeLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := NewService()

	admin, err := svc.CreateEmployee(ctx, EmployeeInput{Name: "Ada", Email: "ADA@example.test", Role: RoleAdmin, Password: "correct horse"})
	require.NoError(t, err)
	require.True(t, admin.Active)
	ok, err := argon2id.ComparePasswordAndHash("correct horse", admin.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.CreateEmployee(ctx, EmployeeInput{Name: "Dup", Email: "ada@example.test", Role: RoleStaff, Password: "password1"})
	require.ErrorIs(t, err, ErrDuplicate)

	_, err = svc.CreateEmployee(ctx, EmployeeInput{Name: "No pass", Email: "np@example.test", Role: RoleStaff})
	var verr *common.ValidationError
	require.ErrorAs(t, err, &verr)

	found, err := svc.EmployeeByEmail(ctx, " Ada@Example.test ")
	require.NoError(t, err)
	require.Equal(t, admin.ID, found.ID)

	_, err = svc.UpdateEmployee(ctx, admin.ID, EmployeeInput{Name: "Ada", Email: "ada@example.test", Role: RoleStaff})
	require.ErrorIs(t, err, ErrLastAdmin)
	require.ErrorIs(t, svc.DeleteEmployee(ctx, admin.ID), ErrLastAdmin)

	second, err := svc.CreateEmployee(ctx, EmployeeInput{Name: "Bob", Email: "bob@example.test", Role: RoleAdmin, Password: "password2"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteEmployee(ctx, admin.ID))

	inactive := false
	_, err = svc.UpdateEmployee(ctx, second.ID, EmployeeInput{Name: "Bob", Email: "bob@example.test", Role: RoleAdmin, Active: &inactive})
	require.ErrorIs(t, err, ErrLastAdmin)
}

func TestConcurrentCreatesKeepUniqueness(t *testing.T) {
	ctx := context.Background()
	svc := NewService()

	const workers = 8
	var wg sync.WaitGroup
	emailErrs := make([]error, workers)
	skuErrs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, emailErrs[i] = svc.CreateEmployee(ctx, EmployeeInput{Name: "Dup", Email: "dup@example.com", Role: RoleStaff, Password: "password1"})
			_, skuErrs[i] = svc.CreateItem(ctx, Item{SKU: "race-1", Name: "Race"})
		}(i)
	}
	wg.Wait()

	for name, errs := range map[string][]error{"email": emailErrs, "sku": skuErrs} {
		created := 0
		for _, err := range errs {
			if err == nil {
				created++
				continue
			}
			require.ErrorIs(t, err, ErrDuplicate, name)
		}
		require.Equal(t, 1, created, name)
	}
	require.Equal(t, 1, svc.Employees.Len())
	require.Equal(t, 1, svc.Items.Len())
}

func TestConcurrentDemotionsKeepOneAdmin(t *testing.T) {
	ctx := context.Background()
	svc := NewService()

	var admins []Employee
	for _, email := range []string{"a@example.test", "b@example.test"} {
		emp, err := svc.CreateEmployee(ctx, EmployeeInput{Name: "Admin", Email: email, Role: RoleAdmin, Password: "password1"})
		require.NoError(t, err)
		admins = append(admins, emp)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(admins))
	for i, emp := range admins {
		wg.Add(1)
		go func(i int, emp Employee) {
			defer wg.Done()
			if i == 0 {
				_, errs[i] = svc.UpdateEmployee(ctx, emp.ID, EmployeeInput{Name: "Admin", Email: emp.Email, Role: RoleStaff})
				return
			}
			errs[i] = svc.DeleteEmployee(ctx, emp.ID)
		}(i, emp)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if errors.Is(err, ErrLastAdmin) {
			failed++
		} else {
			require.NoError(t, err)
		}
	}
	require.Equal(t, 1, failed)

	rows, _ := svc.ListEmployees(ctx, "", 1, 10)
	activeAdmins := 0
	for _, e := range rows {
		if e.Role == RoleAdmin && e.Active {
			activeAdmins++
		}
	}
	require.Equal(t, 1, activeAdmins)
}
