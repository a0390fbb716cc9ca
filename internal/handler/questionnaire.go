package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/amanicare/therapy-booking/internal/model"
	"github.com/amanicare/therapy-booking/internal/repository"
)

// QuestionnaireHandler serves the intake questionnaire endpoints.
type QuestionnaireHandler struct {
	Questionnaires *repository.QuestionnaireRepo
}

func NewQuestionnaireHandler(q *repository.QuestionnaireRepo) *QuestionnaireHandler {
	if q == nil {
		panic("nil repository passed to NewQuestionnaireHandler")
	}
	return &QuestionnaireHandler{Questionnaires: q}
}

type questionnaireReq struct {
	FullName              string   `json:"full_name"`
	AgeRange              string   `json:"age_range"`
	GenderIdentity        string   `json:"gender_identity"`
	RelationshipStatus    string   `json:"relationship_status"`
	WorkOrStudy           string   `json:"work_or_study"`
	TherapyReasons        []string `json:"therapy_reasons"`
	IssueDuration         string   `json:"issue_duration"`
	AttendedTherapyBefore bool     `json:"attended_therapy_before"`
	TherapyGoals          string   `json:"therapy_goals"`
	SessionPreference     string   `json:"session_preference"`
	PreferredDaysTimes    string   `json:"preferred_days_times"`
	ComfortLevelSharing   int      `json:"comfort_level_sharing"`
	PreferredMethods      *string  `json:"preferred_methods"`
	AdditionalInfo        *string  `json:"additional_info"`
}

type questionnaireResp struct {
	ID                    uint64   `json:"id"`
	UserID                uint64   `json:"user_id"`
	FullName              string   `json:"full_name"`
	AgeRange              string   `json:"age_range"`
	GenderIdentity        string   `json:"gender_identity"`
	RelationshipStatus    string   `json:"relationship_status"`
	WorkOrStudy           string   `json:"work_or_study"`
	TherapyReasons        []string `json:"therapy_reasons"`
	IssueDuration         string   `json:"issue_duration"`
	AttendedTherapyBefore bool     `json:"attended_therapy_before"`
	TherapyGoals          string   `json:"therapy_goals"`
	SessionPreference     string   `json:"session_preference"`
	PreferredDaysTimes    string   `json:"preferred_days_times"`
	ComfortLevelSharing   int      `json:"comfort_level_sharing"`
	PreferredMethods      *string  `json:"preferred_methods,omitempty"`
	AdditionalInfo        *string  `json:"additional_info,omitempty"`
	CreatedAt             string   `json:"created_at"`
	UpdatedAt             string   `json:"updated_at"`
}

func toQuestionnaireResp(q model.Questionnaire) questionnaireResp {
	return questionnaireResp{
		ID:                    q.ID,
		UserID:                q.UserID,
		FullName:              q.FullName,
		AgeRange:              q.AgeRange,
		GenderIdentity:        q.GenderIdentity,
		RelationshipStatus:    q.RelationshipStatus,
		WorkOrStudy:           q.WorkOrStudy,
		TherapyReasons:        q.TherapyReasons,
		IssueDuration:         q.IssueDuration,
		AttendedTherapyBefore: q.AttendedTherapyBefore,
		TherapyGoals:          q.TherapyGoals,
		SessionPreference:     q.SessionPreference,
		PreferredDaysTimes:    q.PreferredDaysTimes,
		ComfortLevelSharing:   q.ComfortLevelSharing,
		PreferredMethods:      q.PreferredMethods,
		AdditionalInfo:        q.AdditionalInfo,
		CreatedAt:             q.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:             q.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// Submit upserts the caller's questionnaire. A second submission
// replaces the stored answers rather than failing.
func (h *QuestionnaireHandler) Submit(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req questionnaireReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" || len(req.TherapyReasons) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "full_name and therapy_reasons are required"})
	}
	if req.ComfortLevelSharing < 1 || req.ComfortLevelSharing > 10 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "comfort_level_sharing must be 1-10"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	q := model.Questionnaire{
		UserID:                userID,
		FullName:              req.FullName,
		AgeRange:              strings.TrimSpace(req.AgeRange),
		GenderIdentity:        strings.TrimSpace(req.GenderIdentity),
		RelationshipStatus:    strings.TrimSpace(req.RelationshipStatus),
		WorkOrStudy:           strings.TrimSpace(req.WorkOrStudy),
		TherapyReasons:        req.TherapyReasons,
		IssueDuration:         strings.TrimSpace(req.IssueDuration),
		AttendedTherapyBefore: req.AttendedTherapyBefore,
		TherapyGoals:          strings.TrimSpace(req.TherapyGoals),
		SessionPreference:     strings.TrimSpace(req.SessionPreference),
		PreferredDaysTimes:    strings.TrimSpace(req.PreferredDaysTimes),
		ComfortLevelSharing:   req.ComfortLevelSharing,
		PreferredMethods:      req.PreferredMethods,
		AdditionalInfo:        req.AdditionalInfo,
	}
	id, err := h.Questionnaires.Upsert(ctx, q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save questionnaire failed"})
	}
	q.ID = id
	stored, err := h.Questionnaires.GetByUser(ctx, userID)
	if err == nil {
		return c.JSON(http.StatusCreated, toQuestionnaireResp(stored))
	}
	return c.JSON(http.StatusCreated, toQuestionnaireResp(q))
}

// Mine returns the caller's questionnaire.
func (h *QuestionnaireHandler) Mine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	q, err := h.Questionnaires.GetByUser(ctx, userID)
	if err != nil {
		if err == repository.ErrQuestionnaireNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "questionnaire not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toQuestionnaireResp(q))
}

// ListAll returns every questionnaire (admin).
func (h *QuestionnaireHandler) ListAll(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Questionnaires.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]questionnaireResp, 0, len(items))
	for _, q := range items {
		out = append(out, toQuestionnaireResp(q))
	}
	return c.JSON(http.StatusOK, echo.Map{"questionnaires": out})
}

// Get returns one questionnaire by id (admin).
func (h *QuestionnaireHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid questionnaire id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	q, err := h.Questionnaires.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrQuestionnaireNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "questionnaire not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toQuestionnaireResp(q))
}
