package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/studyengine/internal/database"
	"github.com/example/studyengine/internal/excel"
	"github.com/example/studyengine/internal/study"
	"github.com/example/studyengine/pkg/models"
)

func newTestServer(t *testing.T) (*Server, *database.CardRepository) {
	t.Helper()
	db, err := database.Connect(database.Config{SQLitePath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cards := database.NewCardRepository(db)
	svc := study.NewService(
		cards,
		database.NewReviewStateRepository(db),
		database.NewUserSettingsRepository(db),
		database.NewStatisticsRepository(db),
		zap.NewNop(),
	)
	return New(svc, excel.NewImporter(cards), zap.NewNop()), cards
}

func seedBasicCard(t *testing.T, cards *database.CardRepository) *models.Card {
	t.Helper()
	card := &models.Card{
		CourseID: "course-1",
		Type:     models.CardTypeBasic,
		Question: "Capital of France?",
		Text:     &models.TextPayload{Answer: "Paris"},
	}
	require.NoError(t, cards.Create(context.Background(), card))
	return card
}

func doJSON(s *Server, method, path, userID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if userID != "" {
		req.Header.Set(userHeader, userID)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestSubmitReviewEndpoint(t *testing.T) {
	s, cards := newTestServer(t)
	card := seedBasicCard(t, cards)

	body := fmt.Sprintf(`{"card_id": %q, "quality": 3}`, card.ID)
	rec := doJSON(s, http.MethodPost, "/api/v1/reviews", "user-1", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var state models.ReviewState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, 6, state.IntervalDays)
	assert.Equal(t, 1, state.Repetitions)
}

func TestSubmitReviewRequiresUserHeader(t *testing.T) {
	s, cards := newTestServer(t)
	card := seedBasicCard(t, cards)

	body := fmt.Sprintf(`{"card_id": %q, "quality": 3}`, card.ID)
	rec := doJSON(s, http.MethodPost, "/api/v1/reviews", "", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitReviewRejectsOutOfRangeQuality(t *testing.T) {
	s, cards := newTestServer(t)
	card := seedBasicCard(t, cards)

	for _, quality := range []int{0, 5, -2} {
		body := fmt.Sprintf(`{"card_id": %q, "quality": %d}`, card.ID, quality)
		rec := doJSON(s, http.MethodPost, "/api/v1/reviews", "user-1", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "quality %d", quality)
	}
}

func TestSubmitReviewUnknownCard(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(s, http.MethodPost, "/api/v1/reviews", "user-1", `{"card_id": "ghost", "quality": 3}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSkipEndpoint(t *testing.T) {
	s, cards := newTestServer(t)
	card := seedBasicCard(t, cards)

	rec := doJSON(s, http.MethodPost, "/api/v1/reviews/skip", "user-1", fmt.Sprintf(`{"card_id": %q}`, card.ID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var state models.ReviewState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, 0, state.TimesReviewed)
}

func TestDueCardsEndpoint(t *testing.T) {
	s, cards := newTestServer(t)
	seedBasicCard(t, cards)

	rec := doJSON(s, http.MethodGet, "/api/v1/due-cards?course_id=course-1", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Entries []models.StudyEntry `json:"entries"`
		Count   int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "Capital of France?", resp.Entries[0].Card.Question)
}

func TestDueCardsEmptyQueueIsOK(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(s, http.MethodGet, "/api/v1/due-cards", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Count)
}

func TestDueCardsInvalidLimit(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(s, http.MethodGet, "/api/v1/due-cards?limit=banana", "user-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvaluateEndpoint(t *testing.T) {
	s, cards := newTestServer(t)
	card := seedBasicCard(t, cards)

	body := fmt.Sprintf(`{"card_id": %q, "response": {"text": "  PARIS "}}`, card.ID)
	rec := doJSON(s, http.MethodPost, "/api/v1/evaluate", "user-1", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var verdict struct {
		Correct  bool   `json:"correct"`
		Expected string `json:"expected"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verdict))
	assert.True(t, verdict.Correct)
	assert.Equal(t, "Paris", verdict.Expected)
}

func TestEvaluateEndpointMalformedResponse(t *testing.T) {
	s, cards := newTestServer(t)
	card := seedBasicCard(t, cards)

	body := fmt.Sprintf(`{"card_id": %q, "response": {"selected": ["Paris"]}}`, card.ID)
	rec := doJSON(s, http.MethodPost, "/api/v1/evaluate", "user-1", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPresentationEndpoint(t *testing.T) {
	s, cards := newTestServer(t)
	card := &models.Card{
		CourseID: "course-1",
		Type:     models.CardTypeMultipleChoice,
		Question: "Pick a prime.",
		Choice: &models.ChoicePayload{
			Options:       []string{"4", "7", "9"},
			CorrectAnswer: "7",
		},
	}
	require.NoError(t, cards.Create(context.Background(), card))

	rec := doJSON(s, http.MethodGet, "/api/v1/cards/"+card.ID+"/presentation", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var p struct {
		Options []string `json:"options"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.ElementsMatch(t, []string{"4", "7", "9"}, p.Options)

	rec = doJSON(s, http.MethodGet, "/api/v1/cards/ghost/presentation", "user-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFrequencyEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(s, http.MethodGet, "/api/v1/settings/frequency", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"mode": "normal"}`, rec.Body.String())

	rec = doJSON(s, http.MethodPut, "/api/v1/settings/frequency", "user-1", `{"mode": "relaxed"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(s, http.MethodGet, "/api/v1/settings/frequency", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"mode": "relaxed"}`, rec.Body.String())

	rec = doJSON(s, http.MethodPut, "/api/v1/settings/frequency", "user-1", `{"mode": "hyperspeed"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordSessionEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	body := `{"course_id": "course-1", "total": 10, "correct": 8,
		"started_at": "2025-06-15T10:00:00Z", "duration_seconds": 300}`
	rec := doJSON(s, http.MethodPost, "/api/v1/sessions", "user-1", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var session models.StudySession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.Equal(t, 10, session.TotalAnswered)
	assert.Equal(t, 8, session.TotalCorrect)
	assert.NotEmpty(t, session.ID)
}

func TestRecordSessionRejectsImpossibleTally(t *testing.T) {
	s, _ := newTestServer(t)

	body := `{"total": 3, "correct": 5, "started_at": "2025-06-15T10:00:00Z"}`
	rec := doJSON(s, http.MethodPost, "/api/v1/sessions", "user-1", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListSessionsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	for i := 0; i < 3; i++ {
		body := `{"course_id": "course-1", "total": 5, "correct": 4,
			"started_at": "2025-06-15T10:00:00Z", "duration_seconds": 120}`
		rec := doJSON(s, http.MethodPost, "/api/v1/sessions", "user-1", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := doJSON(s, http.MethodGet, "/api/v1/sessions", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Sessions []models.StudySession `json:"sessions"`
		Count    int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Count)

	rec = doJSON(s, http.MethodGet, "/api/v1/sessions?limit=2", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)

	rec = doJSON(s, http.MethodGet, "/api/v1/sessions?limit=banana", "user-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(s, http.MethodGet, "/api/v1/sessions", "user-2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Count)
}

func doImport(s *Server, userID, filename, content string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, _ := w.CreateFormFile("file", filename)
	part.Write([]byte(content))
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cards/import", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	if userID != "" {
		req.Header.Set(userHeader, userID)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestImportCardsEndpoint(t *testing.T) {
	s, cards := newTestServer(t)

	csv := "course,type,question,answer,options,hint,explanation,payload\n" +
		"course-9,basic,Capital of Japan?,Tokyo,,,,\n" +
		"course-9,hologram,Bad type?,x,,,,\n"
	rec := doImport(s, "user-1", "cards.csv", csv)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result excel.ImportResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.TotalProcessed)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Skipped)

	stored, err := cards.GetByCourse(context.Background(), "course-9")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Capital of Japan?", stored[0].Question)
}

func TestImportCardsEndpointRequiresFile(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(s, http.MethodPost, "/api/v1/cards/import", "user-1", "{}")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doImport(s, "", "cards.csv", "course,type\n")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCourseStatsEndpoint(t *testing.T) {
	s, cards := newTestServer(t)
	seedBasicCard(t, cards)

	rec := doJSON(s, http.MethodGet, "/api/v1/stats?course_id=course-1", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var stats models.CourseStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalCards)
	assert.Equal(t, 1, stats.NewCards)

	rec = doJSON(s, http.MethodGet, "/api/v1/stats", "user-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
