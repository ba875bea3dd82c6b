package testutil

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/andrebq/stockroom/auth"
	"github.com/andrebq/stockroom/inventory"
	"golang.org/x/crypto/bcrypt"
)

type (
	TestLog interface {
		Fatal(...interface{})
		Log(...interface{})
	}
)

// AcquireStore opens a sqlite store in a temporary directory, cleanup
// closes it and removes the directory.
func AcquireStore(ctx context.Context, t TestLog, name string) (*inventory.Store, func()) {
	dir, err := ioutil.TempDir("", "stockroom-tests")
	if err != nil {
		t.Fatal(err)
	}
	store, err := inventory.Open(ctx, filepath.Join(dir, name+".db"))
	if err != nil {
		os.RemoveAll(dir)
		t.Fatal(err)
	}
	return store, func() {
		err := store.Close()
		if err != nil {
			t.Log("unable to close store", err)
		}
		err = os.RemoveAll(dir)
		if err != nil {
			t.Log("unable to cleanup temp dir", dir)
		}
	}
}

// FastHasher uses the cheapest bcrypt cost, tests only.
func FastHasher(t TestLog) *auth.PasswordHasher {
	h, err := auth.NewPasswordHasher(auth.Bcrypt, bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return h
}
