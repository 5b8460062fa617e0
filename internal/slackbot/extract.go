// internal/slackbot/extract.go
package slackbot

import (
	"github.com/slack-go/slack"

	"github.com/fyrsmithlabs/formgate/internal/form"
	"github.com/fyrsmithlabs/formgate/internal/pipeline"
)

// submissionRequest extracts the submitted field values from a
// view_submission payload. Absent values come back as empty strings and
// are rejected by validation, not here.
func submissionRequest(cb *slack.InteractionCallback) pipeline.Request {
	req := pipeline.Request{
		Requester: form.Requester{ID: cb.User.ID, Name: cb.User.Name},
	}

	if cb.View.State == nil {
		return req
	}
	values := cb.View.State.Values

	req.Fields = form.Fields{
		FullName: values[blockFullName][actionFullName].Value,
		Email:    values[blockEmail][actionEmail].Value,
		Message:  values[blockMessage][actionMessage].Value,
	}

	selected := values[blockDepartment][actionDept].SelectedOption
	req.Fields.Department = form.Option{
		Value: selected.Value,
		Label: optionLabel(selected),
	}

	return req
}

func optionLabel(opt slack.OptionBlockObject) string {
	if opt.Text == nil {
		return ""
	}
	return opt.Text.Text
}
