// Package pipeline orchestrates a form submission from "modal submitted"
// to "row durably appended or user notified of failure".
//
// Stages run strictly sequentially: Received -> Validating -> Persisting ->
// Notifying -> Done, with failure exits from Validating and Persisting
// routing to Failed, which still notifies the user before finishing. The
// platform acknowledgement has already been sent by the server layer
// before Run starts.
//
// The pipeline performs no automatic retries: each submission is attempted
// exactly once and the user resubmits via the retry button in the failure
// message.
package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/formgate/internal/form"
	"github.com/fyrsmithlabs/formgate/internal/logging"
	"github.com/fyrsmithlabs/formgate/internal/sheets"
)

// State identifies a pipeline stage.
type State string

const (
	StateReceived   State = "received"
	StateValidating State = "validating"
	StatePersisting State = "persisting"
	StateNotifying  State = "notifying"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Gateway persists a validated submission.
type Gateway interface {
	AppendRow(ctx context.Context, sub *form.Submission) error
}

// Notifier delivers the user-facing result message. Delivery failure is
// logged by the pipeline but cannot reopen it.
type Notifier interface {
	NotifySuccess(ctx context.Context, sub *form.Submission) error
	NotifyFailure(ctx context.Context, requester form.Requester, userMessage string) error
}

// Request carries one submission into the pipeline.
type Request struct {
	Requester form.Requester
	Fields    form.Fields
}

// Result is the terminal outcome of one pipeline run.
type Result struct {
	State       State // StateDone or StateFailed
	Submission  *form.Submission
	Err         error
	UserMessage string // set on failure: the sanitized text sent to the user
}

// Pipeline runs submissions through validate -> persist -> notify.
type Pipeline struct {
	gateway  Gateway
	notifier Notifier
	logger   *logging.Logger
	now      func() time.Time
}

// New creates a pipeline.
func New(gateway Gateway, notifier Notifier, logger *logging.Logger) (*Pipeline, error) {
	if gateway == nil {
		return nil, errors.New("gateway is required")
	}
	if notifier == nil {
		return nil, errors.New("notifier is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Pipeline{
		gateway:  gateway,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Run executes one submission to completion. It never returns an error to
// the caller: failures end in a Failed result after the user is notified.
func (p *Pipeline) Run(ctx context.Context, req Request) Result {
	p.logger.Debug(ctx, "pipeline state", zap.String("state", string(StateValidating)))

	sub, err := form.Parse(req.Fields, req.Requester, p.now())
	if err != nil {
		p.logger.Warn(ctx, "submission rejected", zap.Error(err))
		return p.fail(ctx, req.Requester, err)
	}

	ctx = logging.WithSubmissionID(ctx, sub.ID)
	p.logger.Debug(ctx, "pipeline state", zap.String("state", string(StatePersisting)))

	if err := p.gateway.AppendRow(ctx, sub); err != nil {
		p.logger.Error(ctx, "persist failed", zap.Error(err))
		return p.fail(ctx, req.Requester, err)
	}

	p.logger.Debug(ctx, "pipeline state", zap.String("state", string(StateNotifying)))

	if err := p.notifier.NotifySuccess(ctx, sub); err != nil {
		// Terminal side effect: the row is already durable, so a delivery
		// failure is logged and the outcome stays Done.
		p.logger.Warn(ctx, "success notification failed", zap.Error(err))
	}

	p.logger.Info(ctx, "submission processed",
		zap.String("requester", sub.Requester.Name),
		zap.String("department", sub.Department),
	)
	return Result{State: StateDone, Submission: sub}
}

// fail notifies the user of the failure and returns the Failed result.
func (p *Pipeline) fail(ctx context.Context, requester form.Requester, cause error) Result {
	msg := UserMessage(cause)

	if err := p.notifier.NotifyFailure(ctx, requester, msg); err != nil {
		p.logger.Warn(ctx, "failure notification failed", zap.Error(err))
	}

	return Result{State: StateFailed, Err: cause, UserMessage: msg}
}

// UserMessage maps an internal error to the fixed text shown to the user.
// Backend error detail never reaches the user; only the pre-defined
// messages below do.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, form.ErrMissingFields):
		return "Todos los campos son obligatorios"
	case errors.Is(err, form.ErrInvalidEmail):
		return "El formato del email no es válido"
	case errors.Is(err, form.ErrFieldTooLong):
		return "Uno de los campos supera la longitud máxima permitida"
	case errors.Is(err, sheets.ErrConnection):
		return "Error conectando con la hoja de cálculo"
	case errors.Is(err, sheets.ErrAppend):
		return "Error al guardar en la hoja de cálculo"
	default:
		return "Error desconocido al guardar datos"
	}
}
