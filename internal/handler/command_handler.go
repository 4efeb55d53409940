package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"unlock-relay/internal/domain"
	"unlock-relay/internal/middleware"
	"unlock-relay/internal/service"
	"unlock-relay/pkg/response"

	"github.com/go-playground/validator/v10"
)

// maxBodyBytes bounds request bodies; field lengths are not otherwise limited.
const maxBodyBytes = 64 << 10

type CommandHandler struct {
	commands *service.CommandService
	auth     *service.AuthService
	validate *validator.Validate
}

func NewCommandHandler(commands *service.CommandService, auth *service.AuthService) *CommandHandler {
	return &CommandHandler{
		commands: commands,
		auth:     auth,
		validate: validator.New(),
	}
}

// Issue creates an unlock command. The device is checked before the admin
// credential so an unknown device is reported as such.
func (h *CommandHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req domain.IssueCommandRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if err := h.commands.CheckDevice(req.DeviceID); err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.auth.AuthorizeAdmin(r.Header.Get(middleware.AdminKeyHeader), middleware.BearerToken(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	middleware.SetRole(w, "admin")

	cmd, err := h.commands.Issue(req.DeviceID, req.TTLSeconds)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, cmd.ToResponse())
}

func (h *CommandHandler) Poll(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		response.BadRequest(w, "device_id is required")
		return
	}

	cmd, err := h.commands.Poll(deviceID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, cmd.ToResponse())
}

func (h *CommandHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	var req domain.AckRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if err := h.auth.AuthorizeDevice(req.DeviceID, r.Header.Get(middleware.DeviceKeyHeader)); err != nil {
		writeServiceError(w, err)
		return
	}
	middleware.SetRole(w, "device")

	result, err := h.commands.Acknowledge(req.DeviceID, req.RequestID, req.Status)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, result)
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownDevice):
		response.NotFound(w, "Unknown device_id")
	case errors.Is(err, service.ErrInvalidDeviceKey):
		response.Unauthorized(w, "Invalid device key")
	case errors.Is(err, service.ErrUnauthorized):
		response.Unauthorized(w, "Invalid admin API key")
	default:
		response.InternalError(w, "Internal server error")
	}
}
