package restapi

import (
	"errors"
	"net/http"

	"wallet_scanner/internal/app/port"
	"wallet_scanner/internal/app/service"
	"wallet_scanner/internal/domain/entity"

	"github.com/gin-gonic/gin"
)

// APISessionResponse is the envelope for session endpoints.
type APISessionResponse struct {
	Data          port.SessionSnapshot `json:"data"`
	Report        []string             `json:"report,omitempty"`
	StatusMessage string               `json:"status_message"`
}

// ConnectRequest selects the provider variant for a connect.
type ConnectRequest struct {
	Provider string `json:"provider" binding:"required,oneof=account wallet"`
}

// ScanRequest carries the two scan inputs.
type ScanRequest struct {
	TokenAddress string `json:"tokenAddress" binding:"required"`
	OwnerAddress string `json:"ownerAddress" binding:"required"`
}

// ExampleResponse returns the fill-example addresses.
type ExampleResponse struct {
	TokenAddress string `json:"tokenAddress"`
	OwnerAddress string `json:"ownerAddress"`
}

// SessionHandler handles HTTP requests for the scanning session.
type SessionHandler struct {
	sessionService port.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService port.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// GetSessionHandler returns the current session snapshot and report pane.
func (h *SessionHandler) GetSessionHandler(c *gin.Context) {
	c.JSON(http.StatusOK, APISessionResponse{
		Data:          h.sessionService.Snapshot(),
		StatusMessage: "Session state retrieved.",
	})
}

// ConnectHandler runs the connect sequence for the requested provider kind.
func (h *SessionHandler) ConnectHandler(c *gin.Context) {
	var req ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.sessionService.Connect(c.Request.Context(), port.ProviderKind(req.Provider))
	if err != nil {
		h.renderFailure(c, err)
		return
	}

	c.JSON(http.StatusOK, APISessionResponse{
		Data:          h.sessionService.Snapshot(),
		Report:        report,
		StatusMessage: "Connected.",
	})
}

// ToggleHandler flips the active network and resets the session.
func (h *SessionHandler) ToggleHandler(c *gin.Context) {
	snapshot := h.sessionService.ToggleNetwork()
	c.JSON(http.StatusOK, APISessionResponse{
		Data:          snapshot,
		Report:        snapshot.Report,
		StatusMessage: "Network toggled.",
	})
}

// ScanHandler validates the inputs and performs a token scan.
func (h *SessionHandler) ScanHandler(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.sessionService.Scan(c.Request.Context(), req.TokenAddress, req.OwnerAddress)
	if err != nil {
		h.renderFailure(c, err)
		return
	}

	c.JSON(http.StatusOK, APISessionResponse{
		Data:          h.sessionService.Snapshot(),
		Report:        report,
		StatusMessage: "Scan complete.",
	})
}

// ExampleHandler returns the example token for the active chain and the
// connected address.
func (h *SessionHandler) ExampleHandler(c *gin.Context) {
	token, owner, err := h.sessionService.ExampleAddresses()
	if err != nil {
		h.renderFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, ExampleResponse{TokenAddress: token, OwnerAddress: owner})
}

// renderFailure maps service errors onto HTTP statuses. The failure is also
// recorded in the session report, so the page stays interactive with a
// one-line message in the output pane.
func (h *SessionHandler) renderFailure(c *gin.Context, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, service.ErrOperationInFlight):
		status = http.StatusConflict
	case errors.Is(err, service.ErrNotConnected):
		status = http.StatusConflict
	case errors.Is(err, service.ErrSessionReset):
		status = http.StatusConflict
	case errors.Is(err, entity.ErrInvalidAddress):
		status = http.StatusBadRequest
	}
	c.JSON(status, APISessionResponse{
		Data:          h.sessionService.Snapshot(),
		StatusMessage: err.Error(),
	})
}
