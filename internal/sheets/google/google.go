package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"conti/internal/core"
	"conti/internal/log"
	"conti/internal/store"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Options configures a plan exporter.
type Options struct {
	SpreadsheetID string
	// SheetName is the tab for the all scope; group plans go to
	// "<SheetName> - <group name>".
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// Client writes settlement plans to a Google spreadsheet, one tab per scope.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger

	mu    sync.Mutex
	known map[string]bool
}

var _ store.PlanExporter = (*Client)(nil)

func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if opts.SheetName == "" {
		opts.SheetName = "Settle Up"
	}

	logger := log.ForComponent(log.ComponentSheets)
	svc, err := newSheetsService(ctx, logger, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		sheetName:     opts.SheetName,
		logger:        logger,
		known:         map[string]bool{},
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, logger *log.Logger, opts Options) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		logger.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(opts.CredentialsJSON)
	case opts.CredentialsFile != "":
		logger.InfoContext(ctx, "Reading credentials from file", "path", opts.CredentialsFile)
		b, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ExportPlan replaces the contents of the plan's tab with the plan.
func (c *Client) ExportPlan(ctx context.Context, plan core.Plan, names map[string]string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	title := c.sheetTitle(plan)
	if err := c.ensureSheet(ctx, title); err != nil {
		return err
	}

	rng := quoteSheet(title)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng+"!A:Z", &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", title, err)
	}

	vr := &gsheet.ValueRange{Values: planRows(plan, names)}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng+"!A1", vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write %s: %w", title, err)
	}

	c.logger.InfoContext(ctx, "Plan exported to Google Sheets",
		log.FieldOperation, log.OpExport,
		"sheet", title,
		log.FieldScope, plan.Scope,
		log.FieldInstructions, len(plan.Instructions))
	return nil
}

// ensureSheet adds the tab when the spreadsheet does not have it yet.
func (c *Client) ensureSheet(ctx context.Context, title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.known[title] {
		return nil
	}

	resp, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range resp.Sheets {
		if sh.Properties != nil {
			c.known[sh.Properties.Title] = true
		}
	}
	if c.known[title] {
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	c.known[title] = true
	c.logger.InfoContext(ctx, "Created plan sheet", "sheet", title)
	return nil
}

func (c *Client) sheetTitle(plan core.Plan) string {
	if plan.Scope == core.ScopeAll {
		return c.sheetName
	}
	name := plan.Name
	if name == "" {
		name = plan.Scope
	}
	return c.sheetName + " - " + name
}
