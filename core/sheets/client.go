package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"content-sync/core/retry"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// Client reads and writes spreadsheet cells.
type Client interface {
	// ReadRange returns the rows of an A1 range as strings.
	ReadRange(ctx context.Context, a1Range string) ([][]string, error)
	// UpdateCell writes one cell.
	UpdateCell(ctx context.Context, a1Cell, value string) error
}

// GoogleClient is the Google Sheets implementation of Client.
type GoogleClient struct {
	service       *gsheets.Service
	spreadsheetID string
	timeout       time.Duration
}

// NewClient authenticates with the service account in cfg.
func NewClient(ctx context.Context, cfg Config) (*GoogleClient, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, fmt.Errorf("sheets spreadsheet id not set")
	}

	key, err := cfg.Credentials()
	if err != nil {
		return nil, err
	}

	creds, err := google.CredentialsFromJSON(ctx, key, gsheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parsing sheets credentials: %w: %w", retry.ErrMissingCredentials, err)
	}

	service, err := gsheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &GoogleClient{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		timeout:       timeout,
	}, nil
}

// ReadRange returns the rows of a1Range. Short rows are not padded.
func (c *GoogleClient) ReadRange(ctx context.Context, a1Range string) ([][]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.service.Spreadsheets.Values.Get(c.spreadsheetID, a1Range).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", a1Range, err)
	}
	return toStrings(resp.Values), nil
}

// UpdateCell writes value into a1Cell.
func (c *GoogleClient) UpdateCell(ctx context.Context, a1Cell, value string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body := &gsheets.ValueRange{Values: [][]interface{}{{value}}}
	_, err := c.service.Spreadsheets.Values.Update(c.spreadsheetID, a1Cell, body).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("writing %s: %w", a1Cell, err)
	}
	return nil
}

func toStrings(values [][]interface{}) [][]string {
	rows := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, v := range row {
			if v == nil {
				continue
			}
			cells[j] = fmt.Sprint(v)
		}
		rows[i] = cells
	}
	return rows
}
