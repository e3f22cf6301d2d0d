// Package access decides which transactions a caller may see and touch.
package access

import "github.com/Dan9191/expense-service/internal/models"

// Permission grants or denies a caller access to a transaction.
// A nil caller is an anonymous request; a nil tx is a collection-level check.
type Permission interface {
	HasPermission(caller *models.User, tx *models.Transaction) bool
}

// PermissionFunc adapts a plain function to Permission
type PermissionFunc func(caller *models.User, tx *models.Transaction) bool

func (f PermissionFunc) HasPermission(caller *models.User, tx *models.Transaction) bool {
	return f(caller, tx)
}

// IsAuthenticated passes any identified caller
var IsAuthenticated = PermissionFunc(func(caller *models.User, _ *models.Transaction) bool {
	return caller != nil
})

// IsOwnerOrSuperuser passes superusers and the record's owner.
// Collection-level checks always pass.
var IsOwnerOrSuperuser = PermissionFunc(func(caller *models.User, tx *models.Transaction) bool {
	if tx == nil {
		return true
	}
	if caller == nil {
		return false
	}
	return caller.IsSuperuser || tx.OwnerID == caller.ID
})

// All passes only when every permission passes, evaluated in order
func All(perms ...Permission) Permission {
	return PermissionFunc(func(caller *models.User, tx *models.Transaction) bool {
		for _, p := range perms {
			if !p.HasPermission(caller, tx) {
				return false
			}
		}
		return true
	})
}

// Scope returns the owner restriction of an authenticated caller's visible set.
// nil means every owner.
func Scope(caller *models.User) *int64 {
	if caller.IsSuperuser {
		return nil
	}
	id := caller.ID
	return &id
}
