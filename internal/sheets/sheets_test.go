package sheets

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/formgate/internal/config"
	"github.com/fyrsmithlabs/formgate/internal/form"
	"github.com/fyrsmithlabs/formgate/internal/logging"
)

// fakeTable is an in-memory tableClient.
type fakeTable struct {
	mu        sync.Mutex
	rows      [][]interface{}
	countErr  error
	appendErr error
}

func (f *fakeTable) RowCount(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	return len(f.rows), nil
}

func (f *fakeTable) Append(ctx context.Context, row []interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.rows = append(f.rows, row)
	return nil
}

func testGateway(t *testing.T, table tableClient, dialErr error) (*Gateway, *int) {
	t.Helper()

	g, err := New(&Config{
		SpreadsheetID:   "sheet-123",
		CredentialsJSON: config.Secret(`{"client_email":"svc@test","private_key":"k"}`),
		Timezone:        "UTC",
	}, logging.NewNop())
	require.NoError(t, err)

	dialCount := 0
	g.dial = func(ctx context.Context) (tableClient, error) {
		dialCount++
		if dialErr != nil {
			return nil, dialErr
		}
		return table, nil
	}
	return g, &dialCount
}

func testSubmission() *form.Submission {
	return &form.Submission{
		ID:          "sub-1",
		Requester:   form.Requester{ID: "U123", Name: "ana.ruiz"},
		FullName:    "Ana Ruiz",
		Email:       "ana@x.com",
		Department:  "💼 Ventas",
		Message:     "hola",
		SubmittedAt: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestNew(t *testing.T) {
	t.Run("requires spreadsheet ID", func(t *testing.T) {
		_, err := New(&Config{CredentialsJSON: config.Secret("{}")}, nil)
		assert.Error(t, err)
	})

	t.Run("requires credentials", func(t *testing.T) {
		_, err := New(&Config{SpreadsheetID: "sheet-123"}, nil)
		assert.Error(t, err)
	})

	t.Run("rejects unknown timezone", func(t *testing.T) {
		_, err := New(&Config{
			SpreadsheetID:   "sheet-123",
			CredentialsJSON: config.Secret("{}"),
			Timezone:        "Nowhere/Void",
		}, nil)
		assert.Error(t, err)
	})
}

func TestAppendRow(t *testing.T) {
	ctx := context.Background()

	t.Run("writes header before first row on empty sheet", func(t *testing.T) {
		table := &fakeTable{}
		g, _ := testGateway(t, table, nil)

		require.NoError(t, g.AppendRow(ctx, testSubmission()))

		require.Len(t, table.rows, 2)
		assert.Equal(t, toCells(headerRow), table.rows[0])
		assert.Equal(t, []interface{}{
			"14/03/2025 09:30:00",
			"ana.ruiz",
			"Ana Ruiz",
			"ana@x.com",
			"💼 Ventas",
			"hola",
			"U123",
		}, table.rows[1])
	})

	t.Run("no header write when sheet already has rows", func(t *testing.T) {
		table := &fakeTable{rows: [][]interface{}{toCells(headerRow)}}
		g, _ := testGateway(t, table, nil)

		require.NoError(t, g.AppendRow(ctx, testSubmission()))

		require.Len(t, table.rows, 2)
		assert.Equal(t, "Ana Ruiz", table.rows[1][2])
	})

	t.Run("dials exactly once across repeated appends", func(t *testing.T) {
		table := &fakeTable{}
		g, dialCount := testGateway(t, table, nil)

		for i := 0; i < 5; i++ {
			require.NoError(t, g.AppendRow(ctx, testSubmission()))
		}

		assert.Equal(t, 1, *dialCount)
		assert.Len(t, table.rows, 6) // header + 5 data rows
	})

	t.Run("dial failure returns ErrConnection and is retried next call", func(t *testing.T) {
		g, dialCount := testGateway(t, nil, errors.New("bad credentials"))

		err := g.AppendRow(ctx, testSubmission())
		assert.ErrorIs(t, err, ErrConnection)

		err = g.AppendRow(ctx, testSubmission())
		assert.ErrorIs(t, err, ErrConnection)
		assert.Equal(t, 2, *dialCount)
	})

	t.Run("row count failure returns ErrAppend", func(t *testing.T) {
		table := &fakeTable{countErr: errors.New("quota exceeded")}
		g, _ := testGateway(t, table, nil)

		err := g.AppendRow(ctx, testSubmission())
		assert.ErrorIs(t, err, ErrAppend)
	})

	t.Run("append failure returns ErrAppend", func(t *testing.T) {
		table := &fakeTable{appendErr: errors.New("write denied")}
		g, _ := testGateway(t, table, nil)

		err := g.AppendRow(ctx, testSubmission())
		assert.ErrorIs(t, err, ErrAppend)
	})

	t.Run("concurrent appends on empty sheet write one header", func(t *testing.T) {
		table := &fakeTable{}
		g, _ := testGateway(t, table, nil)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, g.AppendRow(ctx, testSubmission()))
			}()
		}
		wg.Wait()

		require.Len(t, table.rows, 9) // one header + 8 data rows
		headers := 0
		for _, row := range table.rows {
			if row[0] == "Fecha y Hora" {
				headers++
			}
		}
		assert.Equal(t, 1, headers)
	})

	t.Run("timestamp rendered in configured timezone", func(t *testing.T) {
		table := &fakeTable{rows: [][]interface{}{toCells(headerRow)}}

		g, err := New(&Config{
			SpreadsheetID:   "sheet-123",
			CredentialsJSON: config.Secret("{}"),
			Timezone:        "America/Mexico_City",
		}, logging.NewNop())
		require.NoError(t, err)
		g.dial = func(ctx context.Context) (tableClient, error) { return table, nil }

		sub := testSubmission()
		sub.SubmittedAt = time.Date(2025, 1, 15, 18, 0, 0, 0, time.UTC) // UTC-6 in January

		require.NoError(t, g.AppendRow(ctx, sub))
		assert.Equal(t, "15/01/2025 12:00:00", table.rows[1][0])
	})
}
