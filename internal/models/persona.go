package models

import (
	"fmt"
	"strings"
	"time"
)

type Persona struct {
	ID             string
	DisplayName    string
	TelegramUserID int64
	CreatedAt      time.Time
}

func (p *Persona) Label() string {
	var parts []string
	if p.DisplayName != "" {
		parts = append(parts, p.DisplayName)
	}
	if p.TelegramUserID != 0 {
		parts = append(parts, fmt.Sprintf("tg:%d", p.TelegramUserID))
	}
	parts = append(parts, fmt.Sprintf("[%s]", p.ID))
	return strings.Join(parts, " ")
}
