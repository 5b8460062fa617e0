package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/formgate/internal/logging"
)

// handleSlackEvents receives slash-command invocations and interaction
// payloads. The signature is verified against the raw body before any
// parsing; the acknowledgement is written as soon as the event is decoded,
// and processing continues in the background.
func (s *Server) handleSlackEvents(c echo.Context) error {
	ctx := c.Request().Context()
	req := c.Request()

	req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBodyBytes)
	body, err := io.ReadAll(req.Body)
	if err != nil {
		s.logger.Warn(ctx, "failed to read request body", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := s.verifySignature(req.Header, body); err != nil {
		s.logger.Warn(ctx, "request signature verification failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid signature")
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	switch {
	case values.Get("payload") != "":
		var callback slack.InteractionCallback
		if err := json.Unmarshal([]byte(values.Get("payload")), &callback); err != nil {
			s.logger.Warn(ctx, "failed to decode interaction payload", zap.Error(err))
			return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
		}
		s.acknowledge(c)
		s.dispatch(c, func(ctx context.Context) {
			s.handler.HandleInteraction(ctx, &callback)
		})
		return nil

	case values.Get("command") != "":
		req.Body = io.NopCloser(bytes.NewReader(body))
		req.ContentLength = int64(len(body))
		cmd, err := slack.SlashCommandParse(req)
		if err != nil {
			s.logger.Warn(ctx, "failed to parse slash command", zap.Error(err))
			return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
		}
		s.acknowledge(c)
		s.dispatch(c, func(ctx context.Context) {
			s.handler.HandleSlashCommand(ctx, cmd)
		})
		return nil

	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unsupported payload")
	}
}

// verifySignature checks the Slack request signature against the raw body.
func (s *Server) verifySignature(header http.Header, body []byte) error {
	verifier, err := slack.NewSecretsVerifier(header, s.signingSecret.Value())
	if err != nil {
		return err
	}
	if _, err := verifier.Write(body); err != nil {
		return err
	}
	return verifier.Ensure()
}

// acknowledge writes the empty 200 response Slack expects within its
// response window, before any slow work begins.
func (s *Server) acknowledge(c echo.Context) {
	if err := c.NoContent(http.StatusOK); err != nil {
		s.logger.Warn(c.Request().Context(), "failed to write acknowledgement", zap.Error(err))
	}
}

// dispatch runs fn in the background with a context detached from the
// request. The request may complete or be cancelled by the client; the
// event is processed to completion regardless.
func (s *Server) dispatch(c echo.Context, fn func(ctx context.Context)) {
	requestID := c.Response().Header().Get(echo.HeaderXRequestID)
	ctx := context.Background()
	if requestID != "" {
		ctx = logging.WithRequestID(ctx, requestID)
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error(ctx, "panic during event processing", zap.Any("panic", r))
			}
		}()
		fn(ctx)
	}()
}
