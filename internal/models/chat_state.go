package models

type ChatState struct {
	TelegramUserID      int64
	PersonaID           string
	LastPromptMessageID int
}
