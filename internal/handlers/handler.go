package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/ad/persona-onboarding/internal/fsm"
	"github.com/ad/persona-onboarding/internal/models"
	"github.com/ad/persona-onboarding/internal/services"
	"github.com/ad/persona-onboarding/internal/store"
	"github.com/ad/persona-onboarding/internal/wizard"
	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
)

const unknownCommandHint = "Unknown command. Use /start, /back or /skip, or reply with your answer."

const (
	CallbackBack = "wizard:back"
	CallbackSkip = "wizard:skip"
)

type FileFetcher interface {
	Fetch(ctx context.Context, fileID string, limit int64) ([]byte, error)
}

type BotHandler struct {
	bot           services.TelegramAPI
	adminID       int64
	errorManager  *services.ErrorManager
	msgManager    *services.MessageManager
	personas      *services.PersonaService
	sessions      *services.SessionManager
	chatStates    store.ChatStateStore
	router        *wizard.Router
	files         FileFetcher
	adminHandler  *AdminHandler
	maxUploadSize int64
}

func NewBotHandler(
	b services.TelegramAPI,
	adminID int64,
	errorManager *services.ErrorManager,
	msgManager *services.MessageManager,
	personas *services.PersonaService,
	sessions *services.SessionManager,
	chatStates store.ChatStateStore,
	registry *wizard.Registry,
	files FileFetcher,
	maxUploadSize int64,
) *BotHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = services.DefaultMaxUploadSize
	}
	return &BotHandler{
		bot:           b,
		adminID:       adminID,
		errorManager:  errorManager,
		msgManager:    msgManager,
		personas:      personas,
		sessions:      sessions,
		chatStates:    chatStates,
		router:        wizard.NewRouter(registry),
		files:         files,
		adminHandler:  NewAdminHandler(adminID, msgManager, personas, sessions),
		maxUploadSize: maxUploadSize,
	}
}

func (h *BotHandler) HandleUpdate(ctx context.Context, _ *bot.Bot, update *tgmodels.Update) {
	defer h.recoverPanic(ctx, update)

	if update.Message != nil {
		h.handleMessage(ctx, update.Message)
	} else if update.CallbackQuery != nil {
		h.handleCallback(ctx, update.CallbackQuery)
	}
}

func (h *BotHandler) recoverPanic(ctx context.Context, update *tgmodels.Update) {
	if r := recover(); r != nil {
		log.Printf("[BOT] Recovered panic: %v", r)
		h.errorManager.NotifyAdmin(ctx, r, update, h.stepInfo(ctx, update))
	}
}

func (h *BotHandler) stepInfo(ctx context.Context, update *tgmodels.Update) string {
	var userID int64
	switch {
	case update.Message != nil && update.Message.From != nil:
		userID = update.Message.From.ID
	case update.CallbackQuery != nil:
		userID = update.CallbackQuery.From.ID
	default:
		return ""
	}

	state, err := h.chatStates.GetChatState(ctx, userID)
	if err != nil {
		return ""
	}
	machine, ok := h.sessions.Get(state.PersonaID)
	if !ok {
		return ""
	}
	snap := machine.Snapshot()
	return fmt.Sprintf("%d (%s)", snap.CurrentStep, snap.StepName)
}

func (h *BotHandler) handleMessage(ctx context.Context, msg *tgmodels.Message) {
	if msg.From == nil {
		return
	}
	userID := msg.From.ID

	switch msg.Text {
	case "/start":
		h.handleStart(ctx, msg)
		return
	case "/back":
		h.withMachine(ctx, userID, func(m *wizard.Machine) error { return m.Back() })
		return
	case "/skip":
		h.withMachine(ctx, userID, func(m *wizard.Machine) error { return m.Skip(ctx) })
		return
	}

	if userID == h.adminID && h.adminHandler.HandleCommand(ctx, msg) {
		return
	}

	if msg.Document != nil {
		h.handleDocument(ctx, msg)
		return
	}
	if strings.HasPrefix(msg.Text, "/") {
		h.msgManager.SendText(ctx, msg.Chat.ID, unknownCommandHint)
		return
	}
	if strings.TrimSpace(msg.Text) != "" {
		h.handleTextAnswer(ctx, msg)
		return
	}

	h.msgManager.SendText(ctx, msg.Chat.ID, "Please answer with text, or send your resume as a document.")
}

func (h *BotHandler) handleCallback(ctx context.Context, callback *tgmodels.CallbackQuery) {
	h.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callback.ID,
	})

	userID := callback.From.ID
	switch callback.Data {
	case CallbackBack:
		h.withMachine(ctx, userID, func(m *wizard.Machine) error { return m.Back() })
	case CallbackSkip:
		h.withMachine(ctx, userID, func(m *wizard.Machine) error { return m.Skip(ctx) })
	}
}

func (h *BotHandler) handleStart(ctx context.Context, msg *tgmodels.Message) {
	userID := msg.From.ID

	persona, err := h.personas.EnsureForTelegram(ctx, userID, displayName(msg.From))
	if err != nil {
		log.Printf("[BOT] Failed to register user %d: %v", userID, err)
		h.sendError(ctx, msg.Chat.ID, "Registration failed, please try /start again later.")
		return
	}
	if err := h.msgManager.BindChat(ctx, userID, persona.ID); err != nil {
		log.Printf("[BOT] Failed to bind chat for user %d: %v", userID, err)
	}

	machine := h.sessions.Open(ctx, persona.ID)
	snap := machine.Snapshot()

	welcome := fmt.Sprintf("Welcome, %s! Let's build your persona in %d steps.", firstNonEmpty(persona.DisplayName, "there"), snap.TotalSteps)
	if len(snap.CompletedSteps) > 0 && snap.Phase == fsm.PhaseActive {
		welcome = fmt.Sprintf("Welcome back, %s! Picking up at step %d.", firstNonEmpty(persona.DisplayName, "there"), snap.CurrentStep)
	}
	h.msgManager.SendText(ctx, msg.Chat.ID, welcome)

	if snap.LoadErr != nil {
		h.msgManager.SendText(ctx, msg.Chat.ID, "We could not restore your saved progress, so we are starting from the first step.")
	}

	h.sendStep(ctx, userID, machine)
}

func (h *BotHandler) handleTextAnswer(ctx context.Context, msg *tgmodels.Message) {
	data, err := json.Marshal(map[string]string{"text": strings.TrimSpace(msg.Text)})
	if err != nil {
		h.sendError(ctx, msg.Chat.ID, "Could not read your answer.")
		return
	}

	h.withMachine(ctx, msg.From.ID, func(m *wizard.Machine) error {
		return m.Next(ctx, models.Payload{Data: data})
	})
}

func (h *BotHandler) handleDocument(ctx context.Context, msg *tgmodels.Message) {
	userID := msg.From.ID
	doc := msg.Document

	h.withMachine(ctx, userID, func(m *wizard.Machine) error {
		form, ok := h.router.Route(m.Snapshot().CurrentStep)
		if !ok || form.Kind() != models.StepKindUpload {
			return errDocumentNotExpected
		}
		if doc.FileSize > h.maxUploadSize {
			return services.ErrUploadTooLarge
		}

		content, err := h.files.Fetch(ctx, doc.FileID, h.maxUploadSize)
		if err != nil {
			log.Printf("[BOT] Failed to download document from user %d: %v", userID, err)
			return errDownloadFailed
		}

		return m.Next(ctx, models.Payload{Upload: &models.Upload{
			FileName:    doc.FileName,
			ContentType: doc.MimeType,
			Content:     content,
		}})
	})
}

var (
	errNoSession           = errors.New("no onboarding session")
	errDocumentNotExpected = errors.New("document sent to a text step")
	errDownloadFailed      = errors.New("document download failed")
)

// withMachine runs action against the user's wizard and re-renders the
// current step. The prompt is left alone while a submission is in flight.
func (h *BotHandler) withMachine(ctx context.Context, userID int64, action func(*wizard.Machine) error) {
	machine, err := h.machineFor(ctx, userID)
	if err != nil {
		h.msgManager.SendText(ctx, userID, describeError(err))
		return
	}

	if err := action(machine); err != nil {
		h.msgManager.SendText(ctx, userID, describeError(err))
		if errors.Is(err, wizard.ErrSubmissionInFlight) {
			return
		}
	}

	h.sendStep(ctx, userID, machine)
}

func (h *BotHandler) machineFor(ctx context.Context, userID int64) (*wizard.Machine, error) {
	state, err := h.chatStates.GetChatState(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("[BOT] Failed to load chat state for user %d: %v", userID, err)
		}
		return nil, errNoSession
	}
	return h.sessions.Open(ctx, state.PersonaID), nil
}

func (h *BotHandler) sendStep(ctx context.Context, userID int64, machine *wizard.Machine) {
	snap := machine.Snapshot()

	if snap.Phase == fsm.PhaseCompleted {
		h.msgManager.DeletePreviousPrompt(ctx, userID)
		h.msgManager.SendText(ctx, userID, "🎉 Your persona is ready. Thanks for completing onboarding!")
		h.sessions.Release(machine)
		return
	}

	form, _ := h.router.Route(snap.CurrentStep)
	if err := h.msgManager.SendPrompt(ctx, userID, FormatStepPrompt(snap, form), BuildWizardKeyboard(snap)); err != nil {
		log.Printf("[BOT] Failed to send step %d to user %d: %v", snap.CurrentStep, userID, err)
	}
}

func (h *BotHandler) sendError(ctx context.Context, chatID int64, text string) {
	h.msgManager.SendText(ctx, chatID, "❌ "+text)
}

// FormatStepPrompt renders the message for the current step.
func FormatStepPrompt(snap wizard.Snapshot, form wizard.Form) string {
	var sb strings.Builder
	sb.WriteString(services.FormatProgressBar(len(snap.CompletedSteps), snap.TotalSteps))
	fmt.Fprintf(&sb, "\n\nStep %d of %d: %s\n\n%s", snap.CurrentStep, snap.TotalSteps, snap.StepName, form.Prompt())
	if form.Kind() == models.StepKindUpload {
		sb.WriteString("\n\n📎 Send the file as a document.")
	}
	if snap.IsStepSkippable {
		sb.WriteString("\n\nThis step is optional.")
	}
	return sb.String()
}

func BuildWizardKeyboard(snap wizard.Snapshot) *tgmodels.InlineKeyboardMarkup {
	if !snap.Phase.AcceptsInput() {
		return nil
	}

	var row []tgmodels.InlineKeyboardButton
	if snap.CurrentStep > 1 {
		row = append(row, tgmodels.InlineKeyboardButton{Text: "⬅️ Back", CallbackData: CallbackBack})
	}
	if snap.IsStepSkippable {
		row = append(row, tgmodels.InlineKeyboardButton{Text: "Skip ➡️", CallbackData: CallbackSkip})
	}
	if len(row) == 0 {
		return nil
	}
	return &tgmodels.InlineKeyboardMarkup{InlineKeyboard: [][]tgmodels.InlineKeyboardButton{row}}
}

func describeError(err error) string {
	switch {
	case errors.Is(err, errNoSession):
		return "Send /start to begin onboarding."
	case errors.Is(err, errDocumentNotExpected):
		return "This step expects a text answer."
	case errors.Is(err, errDownloadFailed):
		return "❌ Could not download your file, please send it again."
	case errors.Is(err, wizard.ErrSubmissionInFlight):
		return "⏳ Still saving your previous answer, one moment."
	case errors.Is(err, wizard.ErrCheckpointLoading):
		return "⏳ Still loading your progress, try again in a moment."
	case errors.Is(err, wizard.ErrStepNotSkippable):
		return "This step can't be skipped."
	case errors.Is(err, wizard.ErrCannotGoBack):
		return "You're already on the first step."
	case errors.Is(err, wizard.ErrWizardCompleted):
		return "Your onboarding is already complete."
	case errors.Is(err, services.ErrUploadRequired):
		return "📎 Please send your resume as a document, or press Skip."
	case errors.Is(err, services.ErrUploadTooLarge):
		return "❌ That file is too large."
	case errors.Is(err, services.ErrEmptyPayload), errors.Is(err, services.ErrInvalidJSON):
		return "Please send a text answer."
	default:
		return "❌ Something went wrong saving this step, please try again."
	}
}

func displayName(u *tgmodels.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" && u.Username != "" {
		name = "@" + u.Username
	}
	return name
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
