// Package slackbot adapts Slack slash commands, modal submissions and
// direct messages to the submission pipeline.
package slackbot

import (
	"github.com/slack-go/slack"

	"github.com/fyrsmithlabs/formgate/internal/form"
)

// Block and action identifiers for the registration modal. These are the
// keys under which Slack reports the submitted values back.
const (
	CallbackIDSubmission = "form_submission"

	blockFullName   = "nombre_block"
	actionFullName  = "nombre_input"
	blockEmail      = "email_block"
	actionEmail     = "email_input"
	blockDepartment = "departamento_block"
	actionDept      = "departamento_select"
	blockMessage    = "mensaje_block"
	actionMessage   = "mensaje_input"

	// ActionRetry is the action ID of the retry button in failure messages.
	ActionRetry = "retry_form"
)

// BuildRegistrationModal returns the data-entry modal opened by the
// /formulario slash command.
func BuildRegistrationModal() slack.ModalViewRequest {
	nameInput := slack.NewPlainTextInputBlockElement(
		slack.NewTextBlockObject(slack.PlainTextType, "Ej: Juan Pérez García", false, false),
		actionFullName,
	)
	nameInput.MaxLength = form.MaxFullNameLen

	emailInput := slack.NewPlainTextInputBlockElement(
		slack.NewTextBlockObject(slack.PlainTextType, "ejemplo@empresa.com", false, false),
		actionEmail,
	)

	deptOptions := make([]*slack.OptionBlockObject, 0, len(form.Departments))
	for _, d := range form.Departments {
		deptOptions = append(deptOptions, slack.NewOptionBlockObject(
			d.Value,
			slack.NewTextBlockObject(slack.PlainTextType, d.Label, false, false),
			nil,
		))
	}
	deptSelect := slack.NewOptionsSelectBlockElement(
		slack.OptTypeStatic,
		slack.NewTextBlockObject(slack.PlainTextType, "Selecciona tu área de trabajo", false, false),
		actionDept,
		deptOptions...,
	)

	messageInput := slack.NewPlainTextInputBlockElement(
		slack.NewTextBlockObject(slack.PlainTextType, "Describe tu solicitud, comentario o consulta aquí...", false, false),
		actionMessage,
	)
	messageInput.Multiline = true
	messageInput.MaxLength = form.MaxMessageLen

	blocks := slack.Blocks{BlockSet: []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, "*¡Hola! 👋 Completa la siguiente información:*", false, false),
			nil, nil,
		),
		slack.NewDividerBlock(),
		slack.NewInputBlock(blockFullName,
			slack.NewTextBlockObject(slack.PlainTextType, "👤 Nombre Completo", false, false),
			nil, nameInput),
		slack.NewInputBlock(blockEmail,
			slack.NewTextBlockObject(slack.PlainTextType, "📧 Correo Electrónico", false, false),
			nil, emailInput),
		slack.NewInputBlock(blockDepartment,
			slack.NewTextBlockObject(slack.PlainTextType, "🏢 Departamento", false, false),
			nil, deptSelect),
		slack.NewInputBlock(blockMessage,
			slack.NewTextBlockObject(slack.PlainTextType, "💬 Mensaje o Consulta", false, false),
			nil, messageInput),
		slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.MarkdownType, "🔒 _Tus datos serán tratados de forma confidencial_", false, false),
		),
	}}

	return slack.ModalViewRequest{
		Type:       slack.VTModal,
		CallbackID: CallbackIDSubmission,
		Title:      slack.NewTextBlockObject(slack.PlainTextType, "📋 Formulario de Registro", false, false),
		Submit:     slack.NewTextBlockObject(slack.PlainTextType, "Enviar", false, false),
		Close:      slack.NewTextBlockObject(slack.PlainTextType, "Cancelar", false, false),
		Blocks:     blocks,
	}
}
