// Package sheets provides the gateway to the destination Google Sheets
// spreadsheet.
//
// The gateway authenticates lazily on first use and is reused for the life
// of the process. All errors are returned as tagged failures; nothing
// panics across the package boundary.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/formgate/internal/config"
	"github.com/fyrsmithlabs/formgate/internal/form"
	"github.com/fyrsmithlabs/formgate/internal/logging"
)

// Gateway errors.
var (
	// ErrConnection indicates authentication or metadata load failed.
	// Fatal to the current request, never to the process.
	ErrConnection = errors.New("sheets: connection failed")

	// ErrAppend indicates the header-write or row-append step failed.
	ErrAppend = errors.New("sheets: append failed")
)

// headerRow is the fixed 7-column header, written lazily when the first
// row lands on an empty sheet.
var headerRow = []string{
	"Fecha y Hora",
	"Usuario Slack",
	"Nombre Completo",
	"Email",
	"Departamento",
	"Mensaje",
	"ID Usuario",
}

// Config configures the gateway.
type Config struct {
	// SpreadsheetID is the target spreadsheet identifier.
	SpreadsheetID string

	// CredentialsJSON is the full service-account credentials payload.
	CredentialsJSON config.Secret

	// Timezone is the location used to render row timestamps
	// (default: America/Mexico_City).
	Timezone string
}

// tableClient is the minimal surface the gateway needs from the remote
// tabular store once a connection is established.
type tableClient interface {
	RowCount(ctx context.Context) (int, error)
	Append(ctx context.Context, row []interface{}) error
}

// dialFunc establishes an authenticated connection and loads table metadata.
type dialFunc func(ctx context.Context) (tableClient, error)

// Gateway appends form submissions to the destination spreadsheet.
//
// The connection is dialed once on first use. The mutex serializes the
// dial and the count/header/append sequence so that two submissions
// racing on an empty sheet cannot both write the header.
type Gateway struct {
	cfg    *Config
	logger *logging.Logger
	loc    *time.Location
	dial   dialFunc

	mu     sync.Mutex
	client tableClient
}

// New creates a gateway. No network traffic happens until the first append.
func New(cfg *Config, logger *logging.Logger) (*Gateway, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("spreadsheet ID is required")
	}
	if !cfg.CredentialsJSON.IsSet() {
		return nil, errors.New("credentials are required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	tz := cfg.Timezone
	if tz == "" {
		tz = "America/Mexico_City"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	g := &Gateway{
		cfg:    cfg,
		logger: logger,
		loc:    loc,
	}
	g.dial = g.dialGoogle
	return g, nil
}

// AppendRow appends one submission as a new last row, writing the header
// first when the sheet is empty.
func (g *Gateway) AppendRow(ctx context.Context, sub *form.Submission) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	client, err := g.ensureReadyLocked(ctx)
	if err != nil {
		return err
	}

	count, err := client.RowCount(ctx)
	if err != nil {
		return fmt.Errorf("%w: reading row count: %v", ErrAppend, err)
	}

	if count == 0 {
		g.logger.Info(ctx, "writing header row to empty sheet")
		if err := client.Append(ctx, toCells(headerRow)); err != nil {
			return fmt.Errorf("%w: writing header: %v", ErrAppend, err)
		}
	}

	if err := client.Append(ctx, g.rowValues(sub)); err != nil {
		return fmt.Errorf("%w: %v", ErrAppend, err)
	}

	g.logger.Info(ctx, "row appended",
		zap.String("department", sub.Department),
		zap.String("requester", sub.Requester.Name),
	)
	return nil
}

// ensureReadyLocked dials the remote store once. Subsequent calls are
// no-ops for the life of the gateway. Callers must hold g.mu.
func (g *Gateway) ensureReadyLocked(ctx context.Context) (tableClient, error) {
	if g.client != nil {
		return g.client, nil
	}

	client, err := g.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	g.client = client
	return client, nil
}

// rowValues renders a submission as the 7 ordered columns.
func (g *Gateway) rowValues(sub *form.Submission) []interface{} {
	return []interface{}{
		sub.SubmittedAt.In(g.loc).Format("02/01/2006 15:04:05"),
		sub.Requester.Name,
		sub.FullName,
		sub.Email,
		sub.Department,
		sub.Message,
		sub.Requester.ID,
	}
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
