package domain

import (
	"errors"
	"fmt"
)

// Access-control failures surfaced to the UI layer.
var (
	ErrInvalidCredentials         = errors.New("invalid credentials")
	ErrInvalidEmployeeCredentials = errors.New("invalid employee credentials")
	ErrEmployeeCheckFailed        = errors.New("employee credential check failed")
	ErrAuthCheckFailed            = errors.New("authentication check failed")
	ErrSignOutFailed              = errors.New("sign out failed")
	ErrUnsafeRedirect             = errors.New("redirect target is not a local path")
)

// Sign-up saga failures, one per stage.
var (
	ErrSignupFailed          = errors.New("signup failed")
	ErrIdGenerationFailed    = errors.New("customer id generation failed")
	ErrProfileCreationFailed = errors.New("profile creation failed")
	ErrVerificationFailed    = errors.New("profile verification failed")
)

// Adapter-level errors returned by the provider and record store.
var (
	ErrIdentityExists   = errors.New("identity already exists")
	ErrIdentityNotFound = errors.New("identity not found")
	ErrProfileNotFound  = errors.New("customer profile not found")
)

// SignupStage names one step of the sign-up saga.
type SignupStage string

const (
	StageCreateIdentity     SignupStage = "create_identity"
	StageGenerateCustomerID SignupStage = "generate_customer_id"
	StageInsertProfile      SignupStage = "insert_profile"
	StageVerifyProfile      SignupStage = "verify_profile"
)

// StageError reports which saga stage failed. errors.Is matches both the
// stage sentinel (Kind) and the underlying cause.
type StageError struct {
	Stage SignupStage
	Kind  error
	Cause error
}

func (e *StageError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Cause)
}

func (e *StageError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}
