package httpd

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/RubachokBoss/attempt-service/internal/middleware"
	"github.com/RubachokBoss/attempt-service/internal/models"
	"github.com/RubachokBoss/attempt-service/internal/service"
	"github.com/RubachokBoss/attempt-service/pkg/utils"
)

func (h *Handler) BeginAttempt(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requireCaller(w, r)
	if !ok {
		return
	}

	assignmentID, ok := uuidParam(w, r, "id", "assignment id")
	if !ok {
		return
	}

	handle, err := h.attemptService.Begin(r.Context(), assignmentID, callerID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	status := http.StatusCreated
	if handle.Resumed {
		status = http.StatusOK
	}
	utils.SuccessResponse(w, status, handle)
}

func (h *Handler) SubmitAttempt(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requireCaller(w, r)
	if !ok {
		return
	}

	assignmentID, ok := uuidParam(w, r, "id", "assignment id")
	if !ok {
		return
	}

	var req models.SubmitAttemptRequest
	if err := utils.ReadJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.AttemptID != "" {
		if _, err := uuid.Parse(req.AttemptID); err != nil {
			utils.ErrorResponse(w, http.StatusBadRequest, "Invalid attempt_id format")
			return
		}
	}

	req.AssignmentID = assignmentID
	req.StudentID = callerID

	attempt, err := h.attemptService.Submit(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	utils.SuccessResponse(w, http.StatusOK, attempt)
}

func (h *Handler) GradeAttempt(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requireCaller(w, r)
	if !ok {
		return
	}

	attemptID, ok := uuidParam(w, r, "id", "attempt id")
	if !ok {
		return
	}

	var req models.GradeAttemptRequest
	if err := utils.ReadJSON(r, &req); err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	attempt, err := h.attemptService.Grade(r.Context(), attemptID, callerID, req.Score)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	utils.SuccessResponse(w, http.StatusOK, attempt)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := h.requestLogger(r)

	svcErr, ok := service.AsError(err)
	if !ok {
		log.Error().Err(err).Msg("Attempt service error")
		utils.ErrorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	status := statusFor(svcErr)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("code", svcErr.Code).Msg("Attempt service error")
		utils.CodedErrorResponse(w, status, svcErr.Code, "Internal server error")
		return
	}

	log.Debug().Err(err).Str("code", svcErr.Code).Int("status", status).Msg("Attempt request rejected")
	utils.CodedErrorResponse(w, status, svcErr.Code, err.Error())
}

func statusFor(err *service.Error) int {
	switch err.Class {
	case service.ClassNotFound:
		return http.StatusNotFound
	case service.ClassReferential:
		return http.StatusInternalServerError
	}

	switch err {
	case service.ErrNotApprovedMember, service.ErrAttemptNotOwnedByCaller, service.ErrNotAssignmentOwner:
		return http.StatusForbidden
	case service.ErrMissingRequiredPayload:
		return http.StatusBadRequest
	case service.ErrActivityFlowMismatch, service.ErrInvalidScore:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusConflict
	}
}

func requireCaller(w http.ResponseWriter, r *http.Request) (string, bool) {
	callerID := middleware.CallerID(r.Context())
	if callerID == "" {
		utils.ErrorResponse(w, http.StatusUnauthorized, middleware.UserIDHeader+" header is required")
		return "", false
	}
	return callerID, true
}

func uuidParam(w http.ResponseWriter, r *http.Request, name, label string) (string, bool) {
	value := chi.URLParam(r, name)
	if _, err := uuid.Parse(value); err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid "+label+" format")
		return "", false
	}
	return value, true
}
