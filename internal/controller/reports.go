package controller

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/finbuddy/fin/internal/events"
	"github.com/finbuddy/fin/pkg/finbuddy"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ReportsAPI is the part of the gateway the reports page needs.
type ReportsAPI interface {
	DownloadReportPDF(ctx context.Context, portfolioID int64) (*finbuddy.Blob, error)
	SendReportEmail(ctx context.Context, portfolioID int64, email string) error
}

// Reports exports the active portfolio.
type Reports struct {
	page
	api ReportsAPI
}

// NewReports creates the reports controller.
func NewReports(api ReportsAPI, deps Deps) *Reports {
	r := &Reports{api: api}
	r.init("reports", deps)
	events.Subscribe(r.deps.Bus, func(e events.PortfolioChanged) { r.setPortfolio(e.PortfolioID) })
	return r
}

// ReportFilename is the name a portfolio's PDF report is saved under.
func ReportFilename(portfolioID int64) string {
	return fmt.Sprintf("portfolio-report-%d.pdf", portfolioID)
}

// Download saves the PDF report into dir and returns its path. wrap, when
// set, receives the file writer and the expected size, e.g. to show
// progress.
func (r *Reports) Download(ctx context.Context, dir string, wrap func(w io.Writer, size int64) io.Writer) (string, error) {
	id := r.PortfolioID()
	if id == 0 {
		r.notify(LevelWarning, "Please select a portfolio first")
		return "", ErrNoPortfolio
	}

	blob, err := r.api.DownloadReportPDF(ctx, id)
	if err != nil {
		return "", r.report(err, "Failed to download PDF")
	}
	defer func() { _ = blob.Body.Close() }()

	path := filepath.Join(dir, ReportFilename(id))
	f, err := os.Create(path)
	if err != nil {
		return "", r.report(fmt.Errorf("failed to create %s: %w", path, err), "Failed to download PDF")
	}

	var w io.Writer = f
	if wrap != nil {
		w = wrap(f, blob.ContentLength)
	}
	if _, err := io.Copy(w, blob.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", r.report(fmt.Errorf("failed to write %s: %w", path, err), "Failed to download PDF")
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", r.report(err, "Failed to download PDF")
	}

	r.notify(LevelSuccess, "PDF downloaded successfully")
	return path, nil
}

// ValidEmail reports whether s looks like an e-mail address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

// Email sends the report of the active portfolio to address.
func (r *Reports) Email(ctx context.Context, address string) error {
	id := r.PortfolioID()
	if id == 0 {
		r.notify(LevelWarning, "Please select a portfolio first")
		return ErrNoPortfolio
	}
	address = strings.TrimSpace(address)
	if !ValidEmail(address) {
		return r.report(invalid("please enter a valid email address"), "Failed to send report")
	}

	if err := r.api.SendReportEmail(ctx, id, address); err != nil {
		return r.report(err, "Failed to send report")
	}
	r.notify(LevelSuccess, "Report sent to "+address)
	return nil
}
