// internal/slackbot/bot.go
package slackbot

import (
	"context"
	"errors"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/formgate/internal/logging"
	"github.com/fyrsmithlabs/formgate/internal/pipeline"
)

// SlackClient is the surface the adapter needs from the Slack Web API.
// *slack.Client satisfies it.
type SlackClient interface {
	OpenViewContext(ctx context.Context, triggerID string, view slack.ModalViewRequest) (*slack.ViewResponse, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	PostEphemeralContext(ctx context.Context, channelID, userID string, options ...slack.MsgOption) (string, error)
}

// Runner runs a submission through the pipeline.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) pipeline.Result
}

// Bot handles the Slack events behind the /formulario flow. The HTTP
// acknowledgement has already been written by the server layer before any
// Bot method runs.
type Bot struct {
	client   SlackClient
	pipeline Runner
	logger   *logging.Logger
}

// New creates a bot.
func New(client SlackClient, p Runner, logger *logging.Logger) (*Bot, error) {
	if client == nil {
		return nil, errors.New("slack client is required")
	}
	if p == nil {
		return nil, errors.New("pipeline is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Bot{client: client, pipeline: p, logger: logger}, nil
}

// HandleSlashCommand opens the registration modal for the invoking user.
// When the modal cannot be opened, the user gets an ephemeral fallback in
// the channel the command was issued from.
func (b *Bot) HandleSlashCommand(ctx context.Context, cmd slack.SlashCommand) {
	b.logger.Info(ctx, "slash command received",
		zap.String("command", cmd.Command),
		zap.String("user", cmd.UserName),
	)

	if _, err := b.client.OpenViewContext(ctx, cmd.TriggerID, BuildRegistrationModal()); err != nil {
		b.logger.Error(ctx, "opening modal failed", zap.Error(err))

		_, err := b.client.PostEphemeralContext(ctx, cmd.ChannelID, cmd.UserID,
			slack.MsgOptionText("❌ Hubo un error abriendo el formulario. Por favor intenta de nuevo.", false))
		if err != nil {
			b.logger.Warn(ctx, "fallback ephemeral failed", zap.Error(err))
		}
	}
}

// HandleInteraction dispatches an interaction payload: view submissions go
// through the pipeline; the retry button reopens the modal; everything
// else is acknowledged and ignored.
func (b *Bot) HandleInteraction(ctx context.Context, cb *slack.InteractionCallback) {
	switch cb.Type {
	case slack.InteractionTypeViewSubmission:
		if cb.View.CallbackID != CallbackIDSubmission {
			b.logger.Debug(ctx, "ignoring view submission", zap.String("callback_id", cb.View.CallbackID))
			return
		}

		b.logger.Info(ctx, "form submitted", zap.String("user", cb.User.Name))
		b.pipeline.Run(ctx, submissionRequest(cb))

	case slack.InteractionTypeBlockActions:
		if b.isRetry(cb) {
			b.logger.Info(ctx, "retry requested", zap.String("user", cb.User.Name))
			if _, err := b.client.OpenViewContext(ctx, cb.TriggerID, BuildRegistrationModal()); err != nil {
				b.logger.Error(ctx, "reopening modal failed", zap.Error(err))
			}
			return
		}
		b.logger.Debug(ctx, "ignoring block action")

	default:
		b.logger.Debug(ctx, "ignoring interaction", zap.String("type", string(cb.Type)))
	}
}

func (b *Bot) isRetry(cb *slack.InteractionCallback) bool {
	for _, action := range cb.ActionCallback.BlockActions {
		if action.ActionID == ActionRetry {
			return true
		}
	}
	return false
}
