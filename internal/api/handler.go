package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/goxa2020/journal-bot/internal/config"
	"github.com/goxa2020/journal-bot/internal/db"
	"github.com/goxa2020/journal-bot/internal/logger"
	"github.com/goxa2020/journal-bot/internal/model"
	"github.com/goxa2020/journal-bot/internal/queue"
	"github.com/goxa2020/journal-bot/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const defaultHistoryLimit = 5

type Handler struct {
	repo     db.Repository
	producer *queue.Producer
	store    storage.Storage
	cfg      *config.Config
	log      zerolog.Logger
}

func NewHandler(
	repo db.Repository,
	producer *queue.Producer,
	store storage.Storage,
	cfg *config.Config,
) *Handler {
	return &Handler{
		repo:     repo,
		producer: producer,
		store:    store,
		cfg:      cfg,
		log:      logger.Get(),
	}
}

func (h *Handler) SetCredentials(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	var req model.CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "login and password are required"})
		return
	}

	if err := h.repo.SetCredentials(c.Request.Context(), userID, req.Login, req.Password); err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("Failed to store credentials")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.log.Info().Int64("user_id", userID).Msg("Credentials stored")
	c.JSON(http.StatusOK, gin.H{"message": "Credentials saved"})
}

func (h *Handler) TriggerSync(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	// Reject before queueing when no credentials are stored; the run would
	// only produce an error log entry.
	login, password, err := h.repo.GetCredentials(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("Failed to load credentials")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if login == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No stored credentials for user"})
		return
	}

	job := model.SyncJob{UserID: userID}
	if err := h.producer.EnqueueSyncJob(c.Request.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue sync job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue sync job"})
		return
	}

	h.log.Info().Int64("user_id", userID).Msg("Sync job enqueued")
	c.JSON(http.StatusAccepted, gin.H{
		"message": "Sync job queued successfully",
		"job":     job,
	})
}

func (h *Handler) GetSyncHistory(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	runs, err := h.repo.ListSyncLogs(c.Request.Context(), userID, limit)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("Failed to list sync logs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, model.SyncHistoryResponse{UserID: userID, Runs: runs})
}

func (h *Handler) ListSubjects(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	subjects, err := h.repo.ListSubjects(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("Failed to list subjects")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_id": userID, "subjects": subjects})
}

func (h *Handler) ListRecentGrades(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	grades, err := h.repo.ListRecentGrades(c.Request.Context(), userID, limit)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("Failed to list recent grades")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_id": userID, "grades": grades})
}

func (h *Handler) TriggerReport(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	job := model.ReportJob{UserID: userID}
	if err := h.producer.EnqueueReportJob(c.Request.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue report job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue report job"})
		return
	}

	h.log.Info().Int64("user_id", userID).Msg("Report job enqueued")
	c.JSON(http.StatusAccepted, gin.H{
		"message": "Report job queued successfully",
		"job":     job,
	})
}

// DownloadReport streams a previously generated workbook. The object key is
// rebuilt from the authenticated user ID, so one user cannot reach another's
// reports by guessing file names.
func (h *Handler) DownloadReport(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	file := c.Param("file")
	key := fmt.Sprintf("reports/%d/%s", userID, file)

	exists, err := h.store.Exists(c.Request.Context(), key)
	if err != nil {
		h.log.Error().Err(err).Str("object_key", key).Msg("Failed to check report object")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}

	body, err := h.store.Download(c.Request.Context(), key)
	if err != nil {
		h.log.Error().Err(err).Str("object_key", key).Msg("Failed to download report object")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	defer body.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		h.log.Error().Err(err).Str("object_key", key).Msg("Failed to stream report")
	}
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.cfg.App.Name,
		"version": h.cfg.App.Version,
	})
}

func userIDParam(c *gin.Context) (int64, bool) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return 0, false
	}
	return userID, true
}
