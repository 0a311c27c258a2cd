// Package navigation defines the console sections and which roles may see and change them.
// The router derives its role checks from the same table that builds the menu.
package navigation

import (
	"net/http"
	"slices"

	"github.com/noah-isme/backend-inventory/internal/common"
)

// Section keys.
const (
	Dashboard = "dashboard"
	Suppliers = "suppliers"
	Items     = "items"
	Employees = "employees"
	Orders    = "orders"
	Purchases = "purchases"
	Reports   = "reports"
)

var (
	everyone = []string{"admin", "manager", "staff"}
	managers = []string{"admin", "manager"}
	admins   = []string{"admin"}
)

// Entry is one item of the console menu.
type Entry struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Path     string `json:"path"`
	CanWrite bool   `json:"canWrite"`
}

type section struct {
	Entry
	read  []string
	write []string
}

var menu = []section{
	{Entry: Entry{Key: Dashboard, Label: "Dashboard", Path: "/"}, read: everyone},
	{Entry: Entry{Key: Orders, Label: "Orders", Path: "/orders"}, read: everyone, write: everyone},
	{Entry: Entry{Key: Purchases, Label: "Purchases", Path: "/purchases"}, read: managers, write: managers},
	{Entry: Entry{Key: Items, Label: "Items", Path: "/items"}, read: everyone, write: managers},
	{Entry: Entry{Key: Suppliers, Label: "Suppliers", Path: "/suppliers"}, read: everyone, write: managers},
	{Entry: Entry{Key: Employees, Label: "Employees", Path: "/employees"}, read: admins, write: admins},
	{Entry: Entry{Key: Reports, Label: "Reports", Path: "/reports"}, read: managers},
}

// ForRole returns the menu entries visible to role, in menu order.
func ForRole(role string) []Entry {
	out := make([]Entry, 0, len(menu))
	for _, s := range menu {
		if !slices.Contains(s.read, role) {
			continue
		}
		e := s.Entry
		e.CanWrite = slices.Contains(s.write, role)
		out = append(out, e)
	}
	if len(out) == 0 {
		out = append(out, menu[0].Entry)
	}
	return out
}

// Allowed returns the roles permitted to read, or with write set to modify, a section.
func Allowed(key string, write bool) []string {
	for _, s := range menu {
		if s.Key != key {
			continue
		}
		if write {
			return slices.Clone(s.write)
		}
		return slices.Clone(s.read)
	}
	return nil
}

// Handler serves GET /api/v1/navigation for the authenticated caller.
func Handler(w http.ResponseWriter, r *http.Request) {
	role := common.Role(r.Context())
	common.JSON(w, http.StatusOK, map[string]any{
		"data": ForRole(role),
		"role": role,
	})
}
