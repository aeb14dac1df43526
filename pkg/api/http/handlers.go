package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ogghst/puntini/internal/domain"
)

// GoalSubmitRequest represents a goal submission request
type GoalSubmitRequest struct {
	Goal string `json:"goal" binding:"required"`
}

// GoalSubmitResponse represents a goal submission response
type GoalSubmitResponse struct {
	ExecutionID string    `json:"execution_id"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ResumeRequest carries the human choice for a suspended execution.
type ResumeRequest struct {
	OptionID string         `json:"option_id" binding:"required"`
	NodeID   string         `json:"node_id"`
	Params   map[string]any `json:"params"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	checks := gin.H{"orchestrator": "ok"}

	if s.graph != nil {
		if _, err := s.graph.Stats(c.Request.Context()); err != nil {
			checks["graph"] = "unreachable"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "degraded",
				"timestamp": time.Now(),
				"checks":    checks,
			})
			return
		}
		checks["graph"] = "ok"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"checks":    checks,
	})
}

// handleSubmitGoal handles goal submission
func (s *Server) handleSubmitGoal(c *gin.Context) {
	var req GoalSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Error("invalid request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	executionID, err := s.orchestrator.SubmitGoal(c.Request.Context(), req.Goal)
	if err != nil {
		s.logger.Error("failed to submit goal", zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: ErrorDetail{
				Code:    "SUBMISSION_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusCreated, GoalSubmitResponse{
		ExecutionID: executionID,
		Status:      string(domain.ExecutionStatusRunning),
		SubmittedAt: time.Now(),
	})
}

// handleListGoals lists known execution IDs.
func (s *Server) handleListGoals(c *gin.Context) {
	ids, err := s.orchestrator.ListExecutions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "LIST_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"executions": ids,
		"total":      len(ids),
	})
}

// handleGetGoal returns the full execution state.
func (s *Server) handleGetGoal(c *gin.Context) {
	executionID := c.Param("id")

	state, err := s.orchestrator.GetState(c.Request.Context(), executionID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: ErrorDetail{
				Code:    "NOT_FOUND",
				Message: "execution not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, state)
}

// handleGetStatus returns a compact status view.
func (s *Server) handleGetStatus(c *gin.Context) {
	executionID := c.Param("id")

	state, err := s.orchestrator.GetState(c.Request.Context(), executionID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: ErrorDetail{
				Code:    "NOT_FOUND",
				Message: "execution not found",
			},
		})
		return
	}

	resp := gin.H{
		"execution_id": state.ID,
		"status":       state.Status,
		"stage":        state.Stage,
		"step_count":   state.StepCount,
		"submitted_at": state.SubmittedAt,
		"updated_at":   state.UpdatedAt,
		"completed_at": state.CompletedAt,
	}
	if state.Status == domain.ExecutionStatusSuspended && state.Escalation != nil {
		resp["escalation"] = state.Escalation
	}
	if state.Status == domain.ExecutionStatusCompleted {
		resp["answer"] = state.Answer
	}
	if state.Status == domain.ExecutionStatusFailed {
		resp["error"] = state.Error
	}

	c.JSON(http.StatusOK, resp)
}

// handleResumeGoal applies a human choice to a suspended execution.
func (s *Server) handleResumeGoal(c *gin.Context) {
	executionID := c.Param("id")

	var req ResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	choice := domain.HumanChoice{
		OptionID: req.OptionID,
		NodeID:   req.NodeID,
		Params:   req.Params,
	}

	if err := s.orchestrator.ResumeWithInput(c.Request.Context(), executionID, choice); err != nil {
		status := http.StatusConflict
		if domain.IsNotFound(err) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{
			Error: ErrorDetail{
				Code:    "RESUME_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"execution_id": executionID,
		"status":       "resumed",
	})
}

// handleCancelGoal cancels a live execution.
func (s *Server) handleCancelGoal(c *gin.Context) {
	executionID := c.Param("id")

	if err := s.orchestrator.Cancel(c.Request.Context(), executionID); err != nil {
		status := http.StatusConflict
		if domain.IsNotFound(err) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{
			Error: ErrorDetail{
				Code:    "CANCELLATION_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"execution_id": executionID,
		"status":       string(domain.ExecutionStatusCancelled),
	})
}

// handleGraphStats exposes node/edge counts of the backing graph.
func (s *Server) handleGraphStats(c *gin.Context) {
	if s.graph == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: ErrorDetail{
				Code:    "NO_GRAPH",
				Message: "graph store not configured",
			},
		})
		return
	}

	stats, err := s.graph.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "STATS_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}
