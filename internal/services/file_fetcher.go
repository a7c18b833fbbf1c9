package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
)

// TelegramFileFetcher downloads files users send to the bot.
type TelegramFileFetcher struct {
	bot    TelegramAPI
	client *http.Client
}

func NewTelegramFileFetcher(b TelegramAPI) *TelegramFileFetcher {
	return &TelegramFileFetcher{
		bot:    b,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch reads at most limit+1 bytes so callers can tell an oversized file
// from one that fits exactly.
func (f *TelegramFileFetcher) Fetch(ctx context.Context, fileID string, limit int64) ([]byte, error) {
	file, err := f.bot.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", fileID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.bot.FileDownloadLink(file), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file %s: status %d", fileID, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, limit+1))
}
