package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/ad/persona-onboarding/internal/services"
	"github.com/ad/persona-onboarding/internal/store"
	tgmodels "github.com/go-telegram/bot/models"
)

// AdminHandler serves read-only inspection commands to the admin chat.
type AdminHandler struct {
	adminID    int64
	msgManager *services.MessageManager
	personas   *services.PersonaService
	sessions   *services.SessionManager
}

func NewAdminHandler(adminID int64, msgManager *services.MessageManager, personas *services.PersonaService, sessions *services.SessionManager) *AdminHandler {
	return &AdminHandler{
		adminID:    adminID,
		msgManager: msgManager,
		personas:   personas,
		sessions:   sessions,
	}
}

func (h *AdminHandler) HandleCommand(ctx context.Context, msg *tgmodels.Message) bool {
	if msg.From == nil || msg.From.ID != h.adminID {
		return false
	}

	fields := strings.Fields(msg.Text)
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "/sessions":
		h.msgManager.SendText(ctx, msg.Chat.ID, fmt.Sprintf("Active sessions: %d", h.sessions.Len()))
		return true
	case "/persona":
		if len(fields) != 2 {
			h.msgManager.SendText(ctx, msg.Chat.ID, "Usage: /persona <id>")
			return true
		}
		h.showPersona(ctx, msg.Chat.ID, fields[1])
		return true
	}
	return false
}

func (h *AdminHandler) showPersona(ctx context.Context, chatID int64, personaID string) {
	overview, err := h.personas.Overview(ctx, personaID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.msgManager.SendText(ctx, chatID, "Persona not found")
			return
		}
		log.Printf("[BOT] Failed to load overview of persona %s: %v", personaID, err)
		h.msgManager.SendText(ctx, chatID, "❌ Failed to load persona: "+err.Error())
		return
	}
	h.msgManager.SendText(ctx, chatID, services.FormatOverview(overview))
}
