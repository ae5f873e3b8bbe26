package circuit

import (
	"errors"
	"fmt"
)

var (
	// ErrNoWritePermission is raised when a transaction mutates a circuit it
	// only declared for reading.
	ErrNoWritePermission = errors.New("no write permission")
	// ErrUndeclaredCircuit is raised when a transaction touches a circuit it
	// never declared.
	ErrUndeclaredCircuit = errors.New("circuit not declared by transaction")
	// ErrTransactionNotRunning is raised when a Mutator is used outside the
	// body of its running transaction.
	ErrTransactionNotRunning = errors.New("transaction is not running")
	// ErrTransactionReused is raised when a transaction is executed twice or
	// its access map is changed after submission.
	ErrTransactionReused = errors.New("transaction already submitted")
	// ErrMixedLockers is raised when one transaction declares circuits whose
	// locks belong to different lock managers.
	ErrMixedLockers = errors.New("circuits use different lock managers")
)

// AccessError is the panic value of every misuse of the mutation protocol.
type AccessError struct {
	Op      string
	Circuit string
	Err     error
}

func (e *AccessError) Error() string {
	if e.Circuit == "" {
		return fmt.Sprintf("circuit: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("circuit %q: %s: %v", e.Circuit, e.Op, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }
