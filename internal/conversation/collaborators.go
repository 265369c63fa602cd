package conversation

import (
	"context"

	"salonbot/internal/models"
)

// Button is a reply keyboard button
type Button struct {
	Text            string
	RequestLocation bool
}

// Keyboard is a reply keyboard, row by row
type Keyboard [][]Button

// Outgoing is a message to send
type Outgoing struct {
	ChatID         int64
	Text           string
	HTML           bool
	Keyboard       Keyboard
	RemoveKeyboard bool
}

// Transport delivers messages to chats
type Transport interface {
	// Send returns the id of the sent message
	Send(ctx context.Context, msg Outgoing) (int, error)
	SendDocument(ctx context.Context, chatID int64, path string) error
	SendMediaGroup(ctx context.Context, chatID int64, fileIDs []string) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// FileFetcher resolves and downloads files uploaded to the chat
type FileFetcher interface {
	FileURL(ctx context.Context, fileID string) (string, error)
	// SaveFile downloads fileID into dir and returns the saved path
	SaveFile(ctx context.Context, fileID, dir string) (string, error)
}

// TextExtractor recognizes text on an image; an empty result means no text
type TextExtractor interface {
	ExtractText(ctx context.Context, imageURL string) (string, error)
}

// OrderService creates and adjusts orders in the shop
type OrderService interface {
	CreateOrder(ctx context.Context, order models.OrderRecord) (*models.RemoteOrder, error)
	ApplyFixedCoupon(ctx context.Context, orderID int64, existing []models.CouponLine, amount string) (*models.RemoteOrder, error)
}

// DocumentService fetches order PDFs to local files
type DocumentService interface {
	DocumentPath(ctx context.Context, docType models.DocumentType, orderID int64) (string, error)
}
