package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/example/studyengine/internal/excel"
	"github.com/example/studyengine/internal/srs"
	"github.com/example/studyengine/internal/study"
	"github.com/example/studyengine/pkg/models"
)

const userHeader = "X-User-ID"

type reviewRequest struct {
	CardID         string `json:"card_id" validate:"required"`
	Quality        int    `json:"quality" validate:"required,min=1,max=4"`
	ResponseTimeMs int    `json:"response_time_ms" validate:"omitempty,min=0"`
}

type skipRequest struct {
	CardID string `json:"card_id" validate:"required"`
}

type evaluateRequest struct {
	CardID   string          `json:"card_id" validate:"required"`
	Response json.RawMessage `json:"response" validate:"required"`
}

type frequencyRequest struct {
	Mode string `json:"mode" validate:"required,oneof=intensive normal relaxed"`
}

type sessionRequest struct {
	CourseID        string                  `json:"course_id"`
	Total           int                     `json:"total" validate:"required,min=1"`
	Correct         int                     `json:"correct" validate:"min=0"`
	ByType          map[models.CardType]int `json:"by_type"`
	StartedAt       time.Time               `json:"started_at" validate:"required"`
	DurationSeconds int                     `json:"duration_seconds" validate:"min=0"`
}

func (s *Server) userID(c echo.Context) (string, error) {
	id := c.Request().Header.Get(userHeader)
	if id == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "missing "+userHeader+" header")
	}
	return id, nil
}

func (s *Server) bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := s.validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// httpStatus maps the engine's error taxonomy onto response codes so clients
// can tell "fix the content" (422) from "retry the request" (409) from "fix
// the client payload" (400).
func httpStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrMalformedResponse):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrConcurrentModification):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidCardPayload), errors.Is(err, models.ErrUnknownCardType):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func fail(err error) error {
	return echo.NewHTTPError(httpStatus(err), err.Error())
}

func (s *Server) handleSubmitReview(c echo.Context) error {
	userID, err := s.userID(c)
	if err != nil {
		return err
	}
	var req reviewRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	state, err := s.svc.SubmitReview(c.Request().Context(), userID, req.CardID, srs.Quality(req.Quality), req.ResponseTimeMs)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, state)
}

func (s *Server) handleSkip(c echo.Context) error {
	userID, err := s.userID(c)
	if err != nil {
		return err
	}
	var req skipRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	state, err := s.svc.SkipCard(c.Request().Context(), userID, req.CardID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, state)
}

func (s *Server) handleDueCards(c echo.Context) error {
	userID, err := s.userID(c)
	if err != nil {
		return err
	}
	opts := srs.DueOptions{
		PracticeAll:     queryBool(c, "practice_all"),
		DifficultOnly:   queryBool(c, "difficult_only"),
		RecentlyLearned: queryBool(c, "recently_learned"),
		Shuffle:         queryBool(c, "shuffle"),
	}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		opts.Limit = limit
	}
	entries, err := s.svc.DueCards(c.Request().Context(), userID, c.QueryParam("course_id"), opts)
	if err != nil {
		return fail(err)
	}
	// An empty queue is the normal "nothing due" outcome.
	return c.JSON(http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

func (s *Server) handleEvaluate(c echo.Context) error {
	if _, err := s.userID(c); err != nil {
		return err
	}
	var req evaluateRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	verdict, err := s.svc.Evaluate(c.Request().Context(), req.CardID, req.Response)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, verdict)
}

func (s *Server) handlePresentation(c echo.Context) error {
	if _, err := s.userID(c); err != nil {
		return err
	}
	p, err := s.svc.Presentation(c.Request().Context(), c.Param("id"), nil)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) handleGetFrequency(c echo.Context) error {
	userID, err := s.userID(c)
	if err != nil {
		return err
	}
	mode, err := s.svc.FrequencyMode(c.Request().Context(), userID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"mode": string(mode)})
}

func (s *Server) handlePutFrequency(c echo.Context) error {
	userID, err := s.userID(c)
	if err != nil {
		return err
	}
	var req frequencyRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	mode, err := models.ParseFrequencyMode(req.Mode)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := s.svc.SetFrequencyMode(c.Request().Context(), userID, mode); err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"mode": string(mode)})
}

func (s *Server) handleRecordSession(c echo.Context) error {
	userID, err := s.userID(c)
	if err != nil {
		return err
	}
	var req sessionRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	if req.Correct > req.Total {
		return echo.NewHTTPError(http.StatusBadRequest, "correct cannot exceed total")
	}
	tally := study.Tally{Total: req.Total, Correct: req.Correct, ByType: req.ByType}
	session, err := s.svc.RecordSession(c.Request().Context(), userID, req.CourseID, tally,
		req.StartedAt, time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, session)
}

func (s *Server) handleListSessions(c echo.Context) error {
	userID, err := s.userID(c)
	if err != nil {
		return err
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
	}
	sessions, err := s.svc.Sessions(c.Request().Context(), userID, limit)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// handleImportCards accepts a card workbook or CSV as a multipart upload. Row
// failures come back in the result body; they never fail the request.
func (s *Server) handleImportCards(c echo.Context) error {
	if _, err := s.userID(c); err != nil {
		return err
	}
	header, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing file upload")
	}
	src, err := header.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable file upload")
	}
	defer src.Close()

	// The importer reads from disk, so spool the upload to a temp file with
	// the original extension intact for format detection.
	tmp, err := os.CreateTemp("", "cards-*"+filepath.Ext(header.Filename))
	if err != nil {
		return fail(err)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		return fail(err)
	}

	cfg := excel.DefaultImportConfig()
	cfg.FilePath = tmp.Name()
	if sheet := c.FormValue("sheet"); sheet != "" {
		cfg.SheetName = sheet
	}
	result, err := s.importer.Import(c.Request().Context(), cfg)
	if err != nil {
		return fail(err)
	}
	s.logger.Info("card import finished",
		zap.String("file", header.Filename),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
	)
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleCourseStats(c echo.Context) error {
	userID, err := s.userID(c)
	if err != nil {
		return err
	}
	courseID := c.QueryParam("course_id")
	if courseID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing course_id")
	}
	stats, err := s.svc.CourseStats(c.Request().Context(), userID, courseID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, stats)
}

func queryBool(c echo.Context, name string) bool {
	v, _ := strconv.ParseBool(c.QueryParam(name))
	return v
}
