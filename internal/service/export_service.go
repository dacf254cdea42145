package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/apnealab/dive-scheduler-api/internal/dto"
	appErrors "github.com/apnealab/dive-scheduler-api/pkg/errors"
	"github.com/apnealab/dive-scheduler-api/pkg/export"
	"github.com/apnealab/dive-scheduler-api/pkg/storage"
)

const (
	// ExportFormatCSV renders the workload section only, one row per instructor.
	ExportFormatCSV = "csv"
	// ExportFormatPDF renders the full monthly report.
	ExportFormatPDF = "pdf"
)

type statsProvider interface {
	MonthlySummary(ctx context.Context, orgID string, year, month int) (*dto.MonthlySummary, error)
	WorkloadBalance(ctx context.Context, orgID string, year, month int) (*dto.WorkloadBalance, error)
}

// ExportService renders monthly reports to files and hands out signed
// download tokens for them.
type ExportService struct {
	stats   statsProvider
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	storage *storage.LocalStorage
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(stats statsProvider, store *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		stats:   stats,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		storage: store,
		signer:  signer,
		logger:  logger,
	}
}

// MonthlyReport renders the month's summary and workload balance in the
// requested format, persists the file and returns a signed token for
// downloading it.
func (s *ExportService) MonthlyReport(ctx context.Context, orgID string, year, month int, format string) (*dto.ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	summary, err := s.stats.MonthlySummary(ctx, orgID, year, month)
	if err != nil {
		return nil, err
	}
	workload, err := s.stats.WorkloadBalance(ctx, orgID, year, month)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch format {
	case ExportFormatCSV:
		data, err = s.csv.Render(workloadTable(workload))
	case ExportFormatPDF:
		title := fmt.Sprintf("Monthly Report %04d-%02d", year, month)
		sections := map[string]export.Table{
			"Summary":          summaryTable(summary),
			"Instructors":      instructorTable(summary),
			"Workload Balance": workloadTable(workload),
		}
		data, err = s.pdf.Render(title, sections, []string{"Summary", "Instructors", "Workload Balance"})
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}

	fileID := uuid.NewString()
	fileName := fmt.Sprintf("%s/report-%04d-%02d-%s.%s", orgID, year, month, fileID, format)
	relPath, err := s.storage.Save(fileName, data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store report")
	}

	token, expiresAt, err := s.signer.Generate(fileID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download token")
	}

	s.logger.Info("report exported",
		zap.String("org_id", orgID),
		zap.String("format", format),
		zap.String("file", relPath))

	return &dto.ExportResult{
		FileName:  relPath,
		Format:    format,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Download validates a signed token and opens the referenced file.
func (s *ExportService) Download(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export file not found")
	}
	return file, relPath, nil
}

// Cleanup removes export files older than the provided TTL.
func (s *ExportService) Cleanup(ttl time.Duration) {
	deleted, err := s.storage.CleanupOlderThan(ttl)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return
	}
	if len(deleted) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
	}
}

func summaryTable(summary *dto.MonthlySummary) export.Table {
	return export.Table{
		Columns: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Total Lessons", strconv.Itoa(summary.TotalLessons)},
			{"Covered Lessons", strconv.Itoa(summary.CoveredLessons)},
			{"Coverage %", fmt.Sprintf("%.1f", summary.CoveragePercent)},
			{"Total Availabilities", strconv.Itoa(summary.TotalAvailabilities)},
			{"Pool Only", strconv.Itoa(summary.PoolOnly)},
			{"Classroom Only", strconv.Itoa(summary.ClassroomOnly)},
			{"Pool And Classroom", strconv.Itoa(summary.Both)},
		},
	}
}

func instructorTable(summary *dto.MonthlySummary) export.Table {
	rows := make([][]string, 0, len(summary.Instructors))
	for _, stat := range summary.Instructors {
		rows = append(rows, []string{
			stat.Name,
			stat.Username,
			strconv.Itoa(stat.Total),
			strconv.Itoa(stat.Pool),
			strconv.Itoa(stat.Classroom),
		})
	}
	return export.Table{
		Columns: []string{"Name", "Username", "Total", "Pool", "Classroom"},
		Rows:    rows,
	}
}

func workloadTable(balance *dto.WorkloadBalance) export.Table {
	rows := make([][]string, 0, len(balance.Entries))
	for _, entry := range balance.Entries {
		last := ""
		if entry.LastAvailability != nil {
			last = entry.LastAvailability.Format(dateLayout)
		}
		rows = append(rows, []string{
			entry.Name,
			entry.Username,
			strconv.Itoa(entry.Count),
			last,
			entry.Tier,
		})
	}
	return export.Table{
		Columns: []string{"Name", "Username", "Availabilities", "Last Availability", "Tier"},
		Rows:    rows,
	}
}
