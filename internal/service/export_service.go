package service

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"costportal/internal/filter"
	"costportal/internal/model"
	"costportal/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Solicitações"

var exportHeaders = []string{
	"Data", "Filial", "Transportadora", "NF", "Pedido", "Motivo",
	"Setor", "Centro de Custo", "Valor NF", "Valor Frete",
	"Valor Solicitado", "Valor Aprovado", "Status", "Analista", "Origem",
}

// Import column order matches the template produced by BuildTemplate.
var templateHeaders = []string{
	"Data", "Filial", "Transportadora", "NF", "Pedido", "Motivo",
	"Setor", "Centro de Custo", "Valor NF", "Valor Frete", "Valor Aprovado", "Analista",
}

// ImportSummary reports the outcome of a spreadsheet import.
type ImportSummary struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

type ExportService interface {
	Export(ctx context.Context, f filter.Filter, actor Actor) (*excelize.File, error)
	BuildTemplate() (*excelize.File, error)
	Import(ctx context.Context, r io.Reader, actor Actor) (ImportSummary, error)
}

type exportService struct {
	repo     repository.RequestRepository
	requests RequestService
}

func NewExportService(repo repository.RequestRepository, requests RequestService) ExportService {
	return &exportService{repo: repo, requests: requests}
}

// Export renders the filtered request list as a workbook, one row per
// record, values rounded to cents.
func (s *exportService) Export(ctx context.Context, f filter.Filter, actor Actor) (*excelize.File, error) {
	if actor.Branch != model.WildcardBranch {
		f.Branch = actor.Branch
	}

	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	matched := f.Apply(all)

	wb := excelize.NewFile()
	if err := wb.SetSheetName(wb.GetSheetName(0), exportSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := wb.SetCellValue(exportSheet, cell, h); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for row, r := range matched {
		values := []interface{}{
			r.CreatedAt.Format("02/01/2006"),
			r.BranchUF,
			r.CarrierName,
			r.InvoiceNumber,
			r.OrderNumber,
			r.Reason,
			r.Department,
			r.CostCenter,
			roundCents(r.InvoiceValue),
			roundCents(r.FreightValue),
			roundCents(r.RequestedValue),
			roundCents(r.ApprovedValue),
			r.Status,
			r.AnalystName,
			r.Origin,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := wb.SetCellValue(exportSheet, cell, v); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", row+2, err)
			}
		}
	}
	return wb, nil
}

// BuildTemplate produces the headers-only workbook users fill in for bulk
// import.
func (s *exportService) BuildTemplate() (*excelize.File, error) {
	wb := excelize.NewFile()
	if err := wb.SetSheetName(wb.GetSheetName(0), exportSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	for i, h := range templateHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := wb.SetCellValue(exportSheet, cell, h); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}
	return wb, nil
}

// Import reads a filled template and inserts the rows as already-approved
// historical records. Rows that cannot be parsed are skipped and reported,
// never aborting the batch.
func (s *exportService) Import(ctx context.Context, r io.Reader, actor Actor) (ImportSummary, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return ImportSummary{}, fmt.Errorf("workbook has no sheets")
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return ImportSummary{}, fmt.Errorf("failed to read rows: %w", err)
	}

	var summary ImportSummary
	var batch []model.CostRequest
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if isBlankRow(row) {
			continue
		}

		req, parseErr := parseImportRow(row)
		if parseErr != nil {
			summary.Skipped++
			summary.Errors = append(summary.Errors, fmt.Sprintf("linha %d: %v", i+1, parseErr))
			continue
		}
		if !actor.CanAccessBranch(req.BranchUF) {
			summary.Skipped++
			summary.Errors = append(summary.Errors, fmt.Sprintf("linha %d: filial %s fora do escopo", i+1, req.BranchUF))
			continue
		}
		req.AnalystName = firstNonEmpty(req.AnalystName, actor.Name)
		batch = append(batch, req)
	}

	if err := s.repo.CreateBatch(ctx, batch); err != nil {
		return ImportSummary{}, fmt.Errorf("failed to insert imported rows: %w", err)
	}
	summary.Imported = len(batch)

	if len(batch) > 0 {
		s.requests.PublishSnapshot(ctx)
	}
	return summary, nil
}

func parseImportRow(row []string) (model.CostRequest, error) {
	createdAt, err := parseImportDate(cellAt(row, 0))
	if err != nil {
		return model.CostRequest{}, err
	}

	branch := strings.ToUpper(strings.TrimSpace(cellAt(row, 1)))
	if len(branch) != 2 {
		return model.CostRequest{}, fmt.Errorf("filial inválida %q", cellAt(row, 1))
	}

	approved, err := ParseBRLAmount(cellAt(row, 10))
	if err != nil {
		return model.CostRequest{}, fmt.Errorf("valor aprovado: %w", err)
	}
	invoiceValue, _ := ParseBRLAmount(cellAt(row, 8))
	freightValue, _ := ParseBRLAmount(cellAt(row, 9))

	now := time.Now()
	return model.CostRequest{
		CreatedAt:         createdAt,
		BranchUF:          branch,
		CarrierName:       strings.TrimSpace(cellAt(row, 2)),
		InvoiceNumber:     strings.TrimSpace(cellAt(row, 3)),
		OrderNumber:       strings.TrimSpace(cellAt(row, 4)),
		Reason:            strings.TrimSpace(cellAt(row, 5)),
		Department:        strings.TrimSpace(cellAt(row, 6)),
		CostCenter:        strings.TrimSpace(cellAt(row, 7)),
		InvoiceValue:      invoiceValue,
		FreightValue:      freightValue,
		RequestedValue:    approved,
		ApprovedValue:     approved,
		Status:            model.StatusApproved,
		Origin:            model.OriginImport,
		AnalystName:       strings.TrimSpace(cellAt(row, 11)),
		ApproverSignature: "Importado via planilha",
		ApprovedAt:        &now,
	}, nil
}

// parseImportDate accepts the pt-BR day-first formats spreadsheets
// produce. A date-only value is stamped at noon so timezone conversion
// never shifts the calendar day.
func parseImportDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"02/01/2006", "2/1/2006", "02/01/06", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("data inválida %q", raw)
}

// ParseBRLAmount converts pt-BR formatted currency text ("R$ 1.234,56")
// to a float. Plain machine decimals ("1234.56") also parse.
func ParseBRLAmount(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	s = strings.ReplaceAll(s, "R$", "")
	s = strings.TrimSpace(s)

	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("valor inválido %q", raw)
	}
	return v, nil
}

func roundCents(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
