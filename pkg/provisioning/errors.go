package provisioning

import "fmt"

// DuplicateAccountMessage is the fixed caller-visible duplicate message
const DuplicateAccountMessage = "A user with this email or phone number already exists"

// DuplicateAccountError means the requested email or contact number already
// belongs to a user. Raised before any write; no side effects.
type DuplicateAccountError struct{}

func (e *DuplicateAccountError) Error() string {
	return DuplicateAccountMessage
}

// RemoteBillingError wraps a billing gateway failure during provisioning.
// Always fatal to the saga; the underlying message is surfaced to the
// caller.
type RemoteBillingError struct {
	Err error
}

func (e *RemoteBillingError) Error() string {
	return e.Err.Error()
}

func (e *RemoteBillingError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a local write failure during provisioning. Fatal;
// triggers rollback.
type PersistenceError struct {
	Step string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Step, e.Err.Error())
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
