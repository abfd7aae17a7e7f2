// Package excel bulk-imports authored cards from spreadsheet workbooks, for
// the authoring boundary. Simple formats map onto flat columns; the richer
// formats travel as a JSON payload column.
package excel

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/example/studyengine/internal/database"
	"github.com/example/studyengine/pkg/models"
)

// Column layout of an import sheet. All indexes are zero-based.
const (
	colCourse = iota
	colType
	colQuestion
	colAnswer
	colOptions
	colHint
	colExplanation
	colPayload
	columnCount
)

// optionSeparator splits the options column of multiple_choice rows and the
// answers of multi-select rows.
const optionSeparator = "|"

// ImportConfig defines the import source.
type ImportConfig struct {
	FilePath   string // path to the .xlsx or .csv file
	SheetName  string // sheet to read, xlsx only
	SkipHeader bool   // skip the first row
}

// DefaultImportConfig returns the default import configuration.
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		SheetName:  "Sheet1",
		SkipHeader: true,
	}
}

// ImportResult holds the outcome of an import run. Row failures are reported
// here and never abort the run.
type ImportResult struct {
	TotalProcessed int
	Created        int
	Skipped        int
	Errors         []string
}

// Importer reads card rows into the card repository.
type Importer struct {
	cards *database.CardRepository
}

// NewImporter creates an importer backed by the given repository.
func NewImporter(cards *database.CardRepository) *Importer {
	return &Importer{cards: cards}
}

// Import loads cards from an Excel or CSV file.
func (im *Importer) Import(ctx context.Context, config ImportConfig) (*ImportResult, error) {
	ext := strings.ToLower(filepath.Ext(config.FilePath))
	if ext == ".csv" {
		return im.importFromCSV(ctx, config)
	}
	return im.importFromExcel(ctx, config)
}

func (im *Importer) importFromExcel(ctx context.Context, config ImportConfig) (*ImportResult, error) {
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(config.SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	result := &ImportResult{}
	for i, row := range rows {
		if config.SkipHeader && i == 0 {
			continue
		}
		im.processRow(ctx, row, i+1, result)
	}
	return result, nil
}

func (im *Importer) importFromCSV(ctx context.Context, config ImportConfig) (*ImportResult, error) {
	f, err := os.Open(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	result := &ImportResult{}
	for line := 1; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", line, err))
			continue
		}
		if config.SkipHeader && line == 1 {
			continue
		}
		im.processRow(ctx, row, line, result)
	}
	return result, nil
}

func (im *Importer) processRow(ctx context.Context, row []string, line int, result *ImportResult) {
	result.TotalProcessed++
	card, err := rowToCard(row)
	if err != nil {
		result.Skipped++
		result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", line, err))
		return
	}
	if err := im.cards.Create(ctx, card); err != nil {
		result.Skipped++
		result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", line, err))
		return
	}
	result.Created++
}

// rowToCard builds a card from one sheet row and validates it.
func rowToCard(row []string) (*models.Card, error) {
	padded := make([]string, columnCount)
	copy(padded, row)
	for i := range padded {
		padded[i] = strings.TrimSpace(padded[i])
	}

	card := &models.Card{
		CourseID:    padded[colCourse],
		Type:        models.CardType(padded[colType]),
		Question:    padded[colQuestion],
		Hint:        padded[colHint],
		Explanation: padded[colExplanation],
	}
	if card.CourseID == "" {
		return nil, fmt.Errorf("missing course id")
	}

	switch card.Type {
	case models.CardTypeBasic, models.CardTypeCloze:
		card.Text = &models.TextPayload{Answer: padded[colAnswer]}
	case models.CardTypeTrueFalse:
		answer, err := strconv.ParseBool(padded[colAnswer])
		if err != nil {
			return nil, fmt.Errorf("true_false answer must be a boolean, got %q", padded[colAnswer])
		}
		card.TrueFalse = &models.TrueFalsePayload{CorrectAnswer: answer}
	case models.CardTypeMultipleChoice:
		options := splitList(padded[colOptions])
		answers := splitList(padded[colAnswer])
		choice := &models.ChoicePayload{
			Options:              options,
			AllowMultipleCorrect: len(answers) > 1,
		}
		if choice.AllowMultipleCorrect {
			choice.CorrectAnswers = answers
		} else if len(answers) == 1 {
			choice.CorrectAnswer = answers[0]
		}
		card.Choice = choice
	case models.CardTypeMatching, models.CardTypeCategorization,
		models.CardTypeImage, models.CardTypeOrdered:
		// Structured formats arrive as a JSON payload column authored by the
		// export side of the catalog.
		if padded[colPayload] == "" {
			return nil, fmt.Errorf("card type %q requires the payload column", card.Type)
		}
		if err := decodePayload(card, padded[colPayload]); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownCardType, card.Type)
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}
	return card, nil
}

func decodePayload(card *models.Card, raw string) error {
	var err error
	switch card.Type {
	case models.CardTypeMatching:
		card.Matching = &models.MatchingPayload{}
		err = json.Unmarshal([]byte(raw), card.Matching)
	case models.CardTypeCategorization:
		card.Categorization = &models.CategorizationPayload{}
		err = json.Unmarshal([]byte(raw), card.Categorization)
	case models.CardTypeImage:
		card.Image = &models.ImagePayload{}
		err = json.Unmarshal([]byte(raw), card.Image)
	case models.CardTypeOrdered:
		card.Ordered = &models.OrderedPayload{}
		err = json.Unmarshal([]byte(raw), card.Ordered)
	}
	if err != nil {
		return fmt.Errorf("%w: payload column does not decode: %v", models.ErrInvalidCardPayload, err)
	}
	return nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, optionSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
