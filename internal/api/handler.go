package api

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/ad/persona-onboarding/internal/models"
	"github.com/ad/persona-onboarding/internal/services"
	"github.com/ad/persona-onboarding/internal/store"
	"github.com/ad/persona-onboarding/internal/wizard"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	sessions      *services.SessionManager
	personas      *services.PersonaService
	registry      *wizard.Registry
	router        *wizard.Router
	maxUploadSize int64
}

func NewHandler(sessions *services.SessionManager, personas *services.PersonaService, registry *wizard.Registry, maxUploadSize int64) *Handler {
	if maxUploadSize <= 0 {
		maxUploadSize = services.DefaultMaxUploadSize
	}
	return &Handler{
		sessions:      sessions,
		personas:      personas,
		registry:      registry,
		router:        wizard.NewRouter(registry),
		maxUploadSize: maxUploadSize,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ListSteps(c *gin.Context) {
	steps := h.registry.Steps()
	resp := make([]StepResponse, 0, len(steps))
	for _, s := range steps {
		resp = append(resp, StepResponse{Index: s.Index, Key: s.Key, Name: s.Name, Skippable: s.Skippable, Kind: s.Kind})
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) CreatePersona(c *gin.Context) {
	var req CreatePersonaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}

	persona, err := h.personas.Create(c.Request.Context(), req.DisplayName)
	if err != nil {
		log.Printf("[API] Failed to create persona: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create persona"})
		return
	}
	c.JSON(http.StatusCreated, toPersonaResponse(persona))
}

func (h *Handler) GetPersona(c *gin.Context) {
	overview, err := h.personas.Overview(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toOverviewResponse(overview))
}

func (h *Handler) GetWizard(c *gin.Context) {
	machine, ok := h.openSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toWizardResponse(machine.Snapshot(), h.router))
}

// Next accepts a JSON body for form steps and a multipart "file" field for
// the resume upload.
func (h *Handler) Next(c *gin.Context) {
	machine, ok := h.openSession(c)
	if !ok {
		return
	}

	payload, err := h.readPayload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.respond(c, machine, machine.Next(c.Request.Context(), payload))
}

func (h *Handler) Back(c *gin.Context) {
	machine, ok := h.openSession(c)
	if !ok {
		return
	}
	h.respond(c, machine, machine.Back())
}

func (h *Handler) Skip(c *gin.Context) {
	machine, ok := h.openSession(c)
	if !ok {
		return
	}
	h.respond(c, machine, machine.Skip(c.Request.Context()))
}

func (h *Handler) openSession(c *gin.Context) (*wizard.Machine, bool) {
	personaID := c.Param("id")
	if _, err := h.personas.Get(c.Request.Context(), personaID); err != nil {
		h.fail(c, err)
		return nil, false
	}
	return h.sessions.Open(c.Request.Context(), personaID), true
}

func (h *Handler) respond(c *gin.Context, machine *wizard.Machine, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[API] Wizard action failed for persona %s: %v", machine.PersonaID(), err)
	}
	resp := toWizardResponse(machine.Snapshot(), h.router)
	if err != nil {
		resp.Error = err.Error()
	}
	c.JSON(status, resp)
	h.sessions.Release(machine)
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(status, gin.H{"error": "persona not found"})
		return
	}
	log.Printf("[API] Request failed: %v", err)
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *Handler) readPayload(c *gin.Context) (models.Payload, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile("file")
		if err != nil {
			return models.Payload{}, err
		}
		f, err := header.Open()
		if err != nil {
			return models.Payload{}, err
		}
		defer f.Close()

		// One byte over the limit is enough for the service to reject it.
		content, err := io.ReadAll(io.LimitReader(f, h.maxUploadSize+1))
		if err != nil {
			return models.Payload{}, err
		}
		return models.Payload{Upload: &models.Upload{
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Content:     content,
		}}, nil
	}

	data, err := c.GetRawData()
	if err != nil {
		return models.Payload{}, err
	}
	return models.Payload{Data: data}, nil
}
