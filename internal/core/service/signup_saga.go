package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/finportal/portal/internal/core/domain"
	"github.com/finportal/portal/internal/core/ports"
	"github.com/finportal/portal/internal/pkg/metrics"
)

const compensationTimeout = 10 * time.Second

// SignupRequest carries the account fields collected by the sign-up form.
type SignupRequest struct {
	Email    string
	Password string
	FullName string
	Phone    string
}

// signupState is threaded through the saga steps.
type signupState struct {
	req        SignupRequest
	userID     string
	customerID string
}

// sagaStep is one ordered sign-up step. compensate, when set, runs if this
// step fails and undoes the effects of earlier steps.
type sagaStep struct {
	stage      domain.SignupStage
	kind       error
	run        func(ctx context.Context, st *signupState) error
	compensate func(ctx context.Context, st *signupState) error
}

// SignupSaga creates an account in four strictly sequential steps: identity,
// customer id, profile row, read-after-write verification.
type SignupSaga struct {
	provider ports.SessionProvider
	records  ports.RecordStore
	log      zerolog.Logger
}

func NewSignupSaga(provider ports.SessionProvider, records ports.RecordStore, log zerolog.Logger) *SignupSaga {
	return &SignupSaga{provider: provider, records: records, log: log}
}

func (g *SignupSaga) steps() []sagaStep {
	return []sagaStep{
		{
			stage: domain.StageCreateIdentity,
			kind:  domain.ErrSignupFailed,
			run:   g.createIdentity,
		},
		{
			stage: domain.StageGenerateCustomerID,
			kind:  domain.ErrIdGenerationFailed,
			run:   g.generateCustomerID,
		},
		{
			stage:      domain.StageInsertProfile,
			kind:       domain.ErrProfileCreationFailed,
			run:        g.insertProfile,
			compensate: g.deleteIdentity,
		},
		{
			stage: domain.StageVerifyProfile,
			kind:  domain.ErrVerificationFailed,
			run:   g.verifyProfile,
		},
	}
}

// Run executes the saga and returns the generated customer identifier. A
// failure is a *domain.StageError matching the stage sentinel.
func (g *SignupSaga) Run(ctx context.Context, req SignupRequest) (string, error) {
	st := &signupState{req: req}

	for _, step := range g.steps() {
		err := step.run(ctx, st)
		if err == nil {
			continue
		}

		g.log.Error().
			Err(err).
			Str("stage", string(step.stage)).
			Str("email", req.Email).
			Str("user_id", st.userID).
			Msg("signup stage failed")

		if step.compensate != nil {
			g.runCompensation(ctx, step, st)
		}
		metrics.SignupsTotal.WithLabelValues(string(step.stage)).Inc()
		return "", &domain.StageError{Stage: step.stage, Kind: step.kind, Cause: err}
	}

	metrics.SignupsTotal.WithLabelValues("ok").Inc()
	g.log.Info().
		Str("user_id", st.userID).
		Str("customer_id", st.customerID).
		Msg("customer signed up")
	return st.customerID, nil
}

// runCompensation is best-effort: its failure is logged and never replaces
// the error of the failed step.
func (g *SignupSaga) runCompensation(ctx context.Context, step sagaStep, st *signupState) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if err := step.compensate(ctx, st); err != nil {
		metrics.SignupCompensationsTotal.WithLabelValues("failed").Inc()
		g.log.Error().
			Err(err).
			Str("stage", string(step.stage)).
			Str("user_id", st.userID).
			Msg("signup compensation failed")
		return
	}
	metrics.SignupCompensationsTotal.WithLabelValues("ok").Inc()
	g.log.Warn().Str("user_id", st.userID).Msg("signup rolled back identity")
}

func (g *SignupSaga) createIdentity(ctx context.Context, st *signupState) error {
	userID, err := g.provider.SignUp(ctx, st.req.Email, st.req.Password, map[string]string{
		"full_name": st.req.FullName,
		"phone":     st.req.Phone,
	})
	if err != nil {
		return err
	}
	if userID == "" {
		return fmt.Errorf("provider returned an empty user id")
	}
	st.userID = userID
	return nil
}

func (g *SignupSaga) generateCustomerID(ctx context.Context, st *signupState) error {
	id, err := g.records.GenerateCustomerID(ctx)
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("record store returned an empty customer id")
	}
	st.customerID = id
	return nil
}

func (g *SignupSaga) insertProfile(ctx context.Context, st *signupState) error {
	return g.records.InsertCustomerProfile(ctx, &domain.CustomerProfile{
		CustomerID: st.customerID,
		UserID:     st.userID,
		FullName:   st.req.FullName,
		Email:      st.req.Email,
		Phone:      st.req.Phone,
		CreatedAt:  time.Now().UTC(),
	})
}

func (g *SignupSaga) deleteIdentity(ctx context.Context, st *signupState) error {
	return g.provider.DeleteIdentity(ctx, st.userID)
}

func (g *SignupSaga) verifyProfile(ctx context.Context, st *signupState) error {
	profile, err := g.records.ReadCustomerProfile(ctx, st.userID)
	if err != nil {
		return err
	}
	if profile.CustomerID != st.customerID {
		return fmt.Errorf("profile has customer id %q, want %q", profile.CustomerID, st.customerID)
	}
	return nil
}
