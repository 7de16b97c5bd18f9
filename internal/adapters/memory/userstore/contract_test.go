package userstore

import (
	"testing"

	"github.com/transitops/user-service/internal/adapters/contracttest"
	userstoreport "github.com/transitops/user-service/internal/ports/out/userstore"
)

func TestContract_UserStore(t *testing.T) {
	contracttest.RunUserStore(t, func(t *testing.T, deps contracttest.UserStoreDeps) (userstoreport.Store, func()) {
		t.Helper()
		return NewRepo(deps.Hasher, deps.Clock, deps.Lockout), nil
	})
}
