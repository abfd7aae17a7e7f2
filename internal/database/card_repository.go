package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/example/studyengine/pkg/models"
)

// CardRepository handles database operations for authored cards. The engine
// consumes cards read-only; Create and Delete exist for the import tool and
// the authoring boundary.
type CardRepository struct {
	db *sqlx.DB
}

// NewCardRepository creates a new repository instance.
func NewCardRepository(db *sqlx.DB) *CardRepository {
	return &CardRepository{db: db}
}

// cardRow is the flat table shape; the type-specific payload travels as JSON.
type cardRow struct {
	ID          string    `db:"id"`
	CourseID    string    `db:"course_id"`
	CardType    string    `db:"card_type"`
	Question    string    `db:"question"`
	Hint        string    `db:"hint"`
	Explanation string    `db:"explanation"`
	Payload     []byte    `db:"payload"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// cardPayload is the JSON envelope stored in the payload column.
type cardPayload struct {
	Text           *models.TextPayload           `json:"text,omitempty"`
	Choice         *models.ChoicePayload         `json:"choice,omitempty"`
	TrueFalse      *models.TrueFalsePayload      `json:"true_false,omitempty"`
	Matching       *models.MatchingPayload       `json:"matching,omitempty"`
	Categorization *models.CategorizationPayload `json:"categorization,omitempty"`
	Image          *models.ImagePayload          `json:"image,omitempty"`
	Ordered        *models.OrderedPayload        `json:"ordered,omitempty"`
}

func toRow(card *models.Card) (*cardRow, error) {
	payload, err := json.Marshal(cardPayload{
		Text:           card.Text,
		Choice:         card.Choice,
		TrueFalse:      card.TrueFalse,
		Matching:       card.Matching,
		Categorization: card.Categorization,
		Image:          card.Image,
		Ordered:        card.Ordered,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode card payload: %w", err)
	}
	return &cardRow{
		ID:          card.ID,
		CourseID:    card.CourseID,
		CardType:    string(card.Type),
		Question:    card.Question,
		Hint:        card.Hint,
		Explanation: card.Explanation,
		Payload:     payload,
		CreatedAt:   card.CreatedAt,
		UpdatedAt:   card.UpdatedAt,
	}, nil
}

func (r *cardRow) toModel() (*models.Card, error) {
	var payload cardPayload
	if err := json.Unmarshal(r.Payload, &payload); err != nil {
		return nil, fmt.Errorf("%w: stored payload for card %s does not decode: %v",
			models.ErrInvalidCardPayload, r.ID, err)
	}
	return &models.Card{
		ID:             r.ID,
		CourseID:       r.CourseID,
		Type:           models.CardType(r.CardType),
		Question:       r.Question,
		Hint:           r.Hint,
		Explanation:    r.Explanation,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		Text:           payload.Text,
		Choice:         payload.Choice,
		TrueFalse:      payload.TrueFalse,
		Matching:       payload.Matching,
		Categorization: payload.Categorization,
		Image:          payload.Image,
		Ordered:        payload.Ordered,
	}, nil
}

// Create inserts a new card, assigning an id when the caller left it empty.
func (r *CardRepository) Create(ctx context.Context, card *models.Card) error {
	if err := card.Validate(); err != nil {
		return err
	}
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	card.CreatedAt = now
	card.UpdatedAt = now

	row, err := toRow(card)
	if err != nil {
		return err
	}
	query := r.db.Rebind(`
		INSERT INTO cards (id, course_id, card_type, question, hint, explanation, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if _, err := r.db.ExecContext(ctx, query,
		row.ID, row.CourseID, row.CardType, row.Question, row.Hint, row.Explanation,
		row.Payload, row.CreatedAt, row.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

// GetByID returns a single card or ErrNotFound.
func (r *CardRepository) GetByID(ctx context.Context, id string) (*models.Card, error) {
	var row cardRow
	query := r.db.Rebind(`SELECT * FROM cards WHERE id = ?`)
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: card %s", models.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return row.toModel()
}

// GetByCourse returns every card in a course.
func (r *CardRepository) GetByCourse(ctx context.Context, courseID string) ([]models.Card, error) {
	var rows []cardRow
	query := r.db.Rebind(`SELECT * FROM cards WHERE course_id = ? ORDER BY created_at ASC`)
	if err := r.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, fmt.Errorf("failed to get cards for course %s: %w", courseID, err)
	}
	return rowsToModels(rows)
}

// GetAll returns every stored card.
func (r *CardRepository) GetAll(ctx context.Context) ([]models.Card, error) {
	var rows []cardRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT * FROM cards ORDER BY created_at ASC`); err != nil {
		return nil, fmt.Errorf("failed to get cards: %w", err)
	}
	return rowsToModels(rows)
}

// Delete removes a card by id.
func (r *CardRepository) Delete(ctx context.Context, id string) error {
	query := r.db.Rebind(`DELETE FROM cards WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: card %s", models.ErrNotFound, id)
	}
	return nil
}

func rowsToModels(rows []cardRow) ([]models.Card, error) {
	cards := make([]models.Card, 0, len(rows))
	for i := range rows {
		card, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		cards = append(cards, *card)
	}
	return cards, nil
}
