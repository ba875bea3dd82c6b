package inventory

import "fmt"

type (
	DuplicateIdentity struct {
		Login string
	}

	ProductNotFound struct {
		ID string
	}

	InvalidProduct struct {
		Field  string
		Reason string
	}
)

func (d DuplicateIdentity) Error() string {
	return fmt.Sprintf("identity %v already exists", d.Login)
}

func (p ProductNotFound) Error() string {
	return fmt.Sprintf("product %v not found", p.ID)
}

func (i InvalidProduct) Error() string {
	return fmt.Sprintf("invalid product %v: %v", i.Field, i.Reason)
}
