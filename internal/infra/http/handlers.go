package http

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/mahmed0x1/ARTEMIS/internal/domain"
	"github.com/mahmed0x1/ARTEMIS/internal/infra/contenthash"
	"github.com/mahmed0x1/ARTEMIS/internal/usecase"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type batchRequest struct {
	Hashes []string `json:"hashes" binding:"required"`
}

type batchResponse struct {
	Statuses map[string]domain.LicenseStatus `json:"statuses"`
}

type registerRequest struct {
	ContentHash string `json:"content_hash" binding:"required"`
	LicenseID   string `json:"license_id" binding:"required"`
}

type evaluateRequest struct {
	Purpose string   `json:"purpose"`
	Hashes  []string `json:"hashes" binding:"required"`
}

// handleStatus accepts the hash as hex (with or without 0x) or as a
// sha2-256 CID.
func (s *Server) handleStatus(c *gin.Context) {
	hash, err := contenthash.Parse(c.Param("hash"))
	if err != nil {
		writeError(c, err)
		return
	}
	status, err := s.resolver.Resolve(c.Request.Context(), hash)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if !s.checkBatchSize(c, len(req.Hashes)) {
		return
	}
	statuses, err := s.resolver.ResolveMany(c.Request.Context(), usecase.HexInputs(req.Hashes))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, batchResponse{Statuses: statuses})
}

func (s *Server) handleRegister(c *gin.Context) {
	if !s.requireAdmin(c) || !s.requireRegistrar(c) {
		return
	}
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	hash, err := contenthash.Parse(req.ContentHash)
	if err != nil {
		writeError(c, err)
		return
	}
	receipt, err := s.registrar.Register(c.Request.Context(), usecase.RegisterCommand{Hash: hash, LicenseID: req.LicenseID})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, receipt)
}

func (s *Server) handleRevoke(c *gin.Context) {
	if !s.requireAdmin(c) || !s.requireRegistrar(c) {
		return
	}
	hash, err := contenthash.Parse(c.Param("hash"))
	if err != nil {
		writeError(c, err)
		return
	}
	receipt, err := s.registrar.Revoke(c.Request.Context(), hash)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (s *Server) handleEvaluate(c *gin.Context) {
	if s.evaluator == nil {
		writeErrorCode(c, http.StatusServiceUnavailable, "POLICY_UNAVAILABLE", "usage policy is not configured")
		return
	}
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if !s.checkBatchSize(c, len(req.Hashes)) {
		return
	}
	report, err := s.evaluator.Evaluate(c.Request.Context(), strings.TrimSpace(req.Purpose), req.Hashes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleSchema(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"functions": domain.RegistrySchema})
}

func (s *Server) checkBatchSize(c *gin.Context, n int) bool {
	if s.batchMaxHashes > 0 && n > s.batchMaxHashes {
		c.JSON(http.StatusBadRequest, errorResponse{
			Code:    "BATCH_TOO_LARGE",
			Message: "too many hashes in one request",
			Details: map[string]any{"max": s.batchMaxHashes, "got": n},
		})
		return false
	}
	return true
}

func (s *Server) requireAdmin(c *gin.Context) bool {
	if s.adminAPIKey == "" {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "admin key required")
		return false
	}
	key := strings.TrimSpace(c.GetHeader("X-Admin-Key"))
	if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.adminAPIKey)) != 1 {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid admin key")
		return false
	}
	return true
}

func (s *Server) requireRegistrar(c *gin.Context) bool {
	if s.registrar == nil {
		writeError(c, domain.ErrReadOnly)
		return false
	}
	return true
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInvalidHashFormat):
		status, code = http.StatusBadRequest, "INVALID_HASH_FORMAT"
	case errors.Is(err, domain.ErrInvalidLicenseID):
		status, code = http.StatusBadRequest, "INVALID_LICENSE_ID"
	case errors.Is(err, domain.ErrAlreadyRegistered):
		status, code = http.StatusConflict, "ALREADY_REGISTERED"
	case errors.Is(err, domain.ErrNotRegistered):
		status, code = http.StatusNotFound, "NOT_REGISTERED"
	case errors.Is(err, domain.ErrAlreadyRevoked):
		status, code = http.StatusConflict, "ALREADY_REVOKED"
	case errors.Is(err, domain.ErrNotRevokable):
		status, code = http.StatusConflict, "NOT_REVOKABLE"
	case errors.Is(err, domain.ErrExecutionReverted):
		status, code = http.StatusConflict, "EXECUTION_REVERTED"
	case errors.Is(err, domain.ErrReadOnly):
		status, code = http.StatusServiceUnavailable, "REGISTRY_READ_ONLY"
	case errors.Is(err, domain.ErrTransportFault):
		status, code = http.StatusServiceUnavailable, "REGISTRY_UNAVAILABLE"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "TIMEOUT"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
