// internal/slackbot/notifier.go
package slackbot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/slack-go/slack"

	"github.com/fyrsmithlabs/formgate/internal/form"
	"github.com/fyrsmithlabs/formgate/internal/logging"
)

// Notifier delivers pipeline results to the requesting user as direct
// messages. It implements pipeline.Notifier.
type Notifier struct {
	client SlackClient
	logger *logging.Logger
	loc    *time.Location
}

// NewNotifier creates a notifier. Timestamps in success messages are
// rendered in the given timezone (default: America/Mexico_City).
func NewNotifier(client SlackClient, logger *logging.Logger, timezone string) (*Notifier, error) {
	if client == nil {
		return nil, errors.New("slack client is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if timezone == "" {
		timezone = "America/Mexico_City"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	return &Notifier{client: client, logger: logger, loc: loc}, nil
}

// NotifySuccess sends the confirmation DM with the submitted values and a
// formatted local timestamp.
func (n *Notifier) NotifySuccess(ctx context.Context, sub *form.Submission) error {
	blocks := []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("✅ *¡Formulario enviado correctamente!*\n\n¡Gracias *%s*! Hemos recibido tu información correctamente.", sub.FullName),
				false, false),
			nil, nil,
		),
		slack.NewSectionBlock(nil, []*slack.TextBlockObject{
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*👤 Nombre:*\n%s", sub.FullName), false, false),
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*🏢 Departamento:*\n%s", sub.Department), false, false),
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*📧 Email:*\n%s", sub.Email), false, false),
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*📅 Fecha:*\n%s", sub.SubmittedAt.In(n.loc).Format("02/01/2006 15:04:05")), false, false),
		}, nil),
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*💬 Tu mensaje:*\n_\"%s\"_", sub.Message), false, false),
			nil, nil,
		),
		slack.NewDividerBlock(),
		slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.MarkdownType, "🔄 _Te contactaremos pronto. Gracias por usar nuestro formulario._", false, false),
		),
	}

	_, _, err := n.client.PostMessageContext(ctx, sub.Requester.ID,
		slack.MsgOptionText("✅ Formulario enviado correctamente", false),
		slack.MsgOptionBlocks(blocks...),
	)
	if err != nil {
		return fmt.Errorf("posting success message: %w", err)
	}
	return nil
}

// NotifyFailure sends the failure DM: the sanitized reason, guidance, and
// a retry button.
func (n *Notifier) NotifyFailure(ctx context.Context, requester form.Requester, userMessage string) error {
	retry := slack.NewButtonBlockElement(ActionRetry, "retry",
		slack.NewTextBlockObject(slack.PlainTextType, "🔄 Intentar de nuevo", false, false))
	retry.Style = slack.StylePrimary

	blocks := []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, "❌ *Error al enviar formulario*\n\nHubo un problema procesando tu información:", false, false),
			nil, nil,
		),
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("```%s```", userMessage), false, false),
			nil, nil,
		),
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, "*¿Qué puedes hacer?*\n• Intenta enviar el formulario nuevamente\n• Verifica que todos los campos estén completos\n• Contacta al administrador si el problema persiste", false, false),
			nil, nil,
		),
		slack.NewActionBlock("", retry),
	}

	_, _, err := n.client.PostMessageContext(ctx, requester.ID,
		slack.MsgOptionText("❌ Error al enviar formulario", false),
		slack.MsgOptionBlocks(blocks...),
	)
	if err != nil {
		return fmt.Errorf("posting failure message: %w", err)
	}
	return nil
}
