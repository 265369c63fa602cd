package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"salonbot/internal/conversation"
)

// mediaGroupLimit is the most photos Telegram accepts in one album
const mediaGroupLimit = 10

// Transport delivers conversation output through the Bot API and downloads uploaded files
type Transport struct {
	api        API
	httpClient *http.Client
	logger     *zap.Logger
}

// NewTransport creates a transport; timeout bounds file downloads
func NewTransport(api API, timeout time.Duration, logger *zap.Logger) *Transport {
	return &Transport{
		api:        api,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (t *Transport) Send(ctx context.Context, out conversation.Outgoing) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	msg := tgbotapi.NewMessage(out.ChatID, out.Text)
	if out.HTML {
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
	}
	switch {
	case out.RemoveKeyboard:
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	case len(out.Keyboard) > 0:
		msg.ReplyMarkup = replyKeyboard(out.Keyboard)
	}

	sent, err := t.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("failed to send message: %w", err)
	}
	return sent.MessageID, nil
}

func (t *Transport) SendDocument(ctx context.Context, chatID int64, filePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.api.Send(tgbotapi.NewDocument(chatID, tgbotapi.FilePath(filePath))); err != nil {
		return fmt.Errorf("failed to send document: %w", err)
	}
	return nil
}

// SendMediaGroup sends photos as albums of at most ten; a lone photo goes as a plain photo
func (t *Transport) SendMediaGroup(ctx context.Context, chatID int64, fileIDs []string) error {
	for start := 0; start < len(fileIDs); start += mediaGroupLimit {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+mediaGroupLimit, len(fileIDs))
		chunk := fileIDs[start:end]

		if len(chunk) == 1 {
			if _, err := t.api.Send(tgbotapi.NewPhoto(chatID, tgbotapi.FileID(chunk[0]))); err != nil {
				return fmt.Errorf("failed to send photo: %w", err)
			}
			continue
		}

		media := make([]interface{}, 0, len(chunk))
		for _, id := range chunk {
			media = append(media, tgbotapi.NewInputMediaPhoto(tgbotapi.FileID(id)))
		}
		if _, err := t.api.SendMediaGroup(tgbotapi.NewMediaGroup(chatID, media)); err != nil {
			return fmt.Errorf("failed to send media group: %w", err)
		}
	}
	return nil
}

func (t *Transport) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

func (t *Transport) FileURL(ctx context.Context, fileID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	link, err := t.api.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve file: %w", err)
	}
	return link, nil
}

// SaveFile downloads fileID to dir/<fileID><ext>, keeping the extension Telegram stored it with
func (t *Transport) SaveFile(ctx context.Context, fileID, dir string) (string, error) {
	link, err := t.FileURL(ctx, fileID)
	if err != nil {
		return "", err
	}

	ext := ".jpg"
	if u, err := url.Parse(link); err == nil && path.Ext(u.Path) != "" {
		ext = path.Ext(u.Path)
	}
	target := filepath.Join(dir, fileID+ext)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create download request: %w", err)
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download file: status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	tmp := target + ".part"
	file, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to store file: %w", err)
	}

	t.logger.Debug("File saved", zap.String("file_id", fileID), zap.String("path", target))
	return target, nil
}

func replyKeyboard(keyboard conversation.Keyboard) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(keyboard))
	for _, row := range keyboard {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, button := range row {
			if button.RequestLocation {
				buttons = append(buttons, tgbotapi.NewKeyboardButtonLocation(button.Text))
				continue
			}
			buttons = append(buttons, tgbotapi.NewKeyboardButton(button.Text))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewReplyKeyboard(rows...)
}
