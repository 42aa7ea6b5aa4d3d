package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jeffects/shipstation-endpoint/internal/domain/fulfillment"
	"github.com/jeffects/shipstation-endpoint/internal/infrastructure/logger"
	"github.com/jeffects/shipstation-endpoint/internal/interfaces/http/dto"
)

// defaultSyncRecordLimit is used when the listing query has no limit
const defaultSyncRecordLimit = 50

// SyncRecordHandler lists the sync record audit trail
type SyncRecordHandler struct {
	BaseHandler
	records fulfillment.SyncRecordRepository
}

// NewSyncRecordHandler creates a SyncRecordHandler
func NewSyncRecordHandler(records fulfillment.SyncRecordRepository) *SyncRecordHandler {
	return &SyncRecordHandler{records: records}
}

// List handles GET /sync_records?limit=N, newest first
func (h *SyncRecordHandler) List(c *gin.Context) {
	var req dto.SyncRecordListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.Error(c, dto.ErrCodeBadRequest, "limit must be between 1 and 500")
		return
	}
	if req.Limit == 0 {
		req.Limit = defaultSyncRecordLimit
	}

	records, err := h.records.FindRecent(c.Request.Context(), req.Limit)
	if err != nil {
		logger.L(c.Request.Context()).Error("Failed to list sync records", zap.Error(err))
		h.Error(c, dto.ErrCodeInternal, "Failed to list sync records")
		return
	}
	h.Success(c, dto.NewSyncRecordResponses(records))
}
