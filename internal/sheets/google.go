package sheets

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// dialGoogle authenticates with the service-account credentials and loads
// spreadsheet metadata. The first sheet of the document is the destination
// table.
func (g *Gateway) dialGoogle(ctx context.Context) (tableClient, error) {
	jwtCfg, err := google.JWTConfigFromJSON([]byte(g.cfg.CredentialsJSON.Value()), sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithHTTPClient(jwtCfg.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("creating sheets client: %w", err)
	}

	doc, err := svc.Spreadsheets.Get(g.cfg.SpreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("loading spreadsheet metadata: %w", err)
	}
	if len(doc.Sheets) == 0 {
		return nil, errors.New("spreadsheet has no sheets")
	}

	sheetName := doc.Sheets[0].Properties.Title

	g.logger.Info(ctx, "google sheets connected",
		zap.String("title", doc.Properties.Title),
		zap.String("sheet", sheetName),
	)

	return &googleTable{
		svc:           svc,
		spreadsheetID: g.cfg.SpreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// googleTable implements tableClient against the Sheets v4 API.
type googleTable struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string
}

// tableRange returns the A1 range covering the whole destination sheet.
// The sheet title is quoted so titles with spaces stay valid A1 notation.
func (t *googleTable) tableRange() string {
	return fmt.Sprintf("'%s'", t.sheetName)
}

func (t *googleTable) RowCount(ctx context.Context) (int, error) {
	resp, err := t.svc.Spreadsheets.Values.Get(t.spreadsheetID, t.tableRange()).Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	return len(resp.Values), nil
}

func (t *googleTable) Append(ctx context.Context, row []interface{}) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{row}}
	_, err := t.svc.Spreadsheets.Values.Append(t.spreadsheetID, t.tableRange(), vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}
