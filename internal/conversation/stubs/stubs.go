package stubs

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"salonbot/internal/conversation"
	"salonbot/internal/models"
)

// Transport records everything the engine sends
type Transport struct {
	mu        sync.Mutex
	nextID    int
	Messages  []conversation.Outgoing
	Documents map[int64][]string
	Media     map[int64][][]string
	Deleted   []int
	SendErr   error
	// DocErr fails SendDocument for paths with the given base name
	DocErr map[string]error
}

// NewTransport creates an empty recording transport
func NewTransport() *Transport {
	return &Transport{
		Documents: make(map[int64][]string),
		Media:     make(map[int64][][]string),
	}
}

func (t *Transport) Send(ctx context.Context, msg conversation.Outgoing) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.SendErr != nil {
		return 0, t.SendErr
	}
	t.nextID++
	t.Messages = append(t.Messages, msg)
	return t.nextID, nil
}

func (t *Transport) SendDocument(ctx context.Context, chatID int64, path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.DocErr[filepath.Base(path)]; err != nil {
		return err
	}
	t.Documents[chatID] = append(t.Documents[chatID], path)
	return nil
}

func (t *Transport) SendMediaGroup(ctx context.Context, chatID int64, fileIDs []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Media[chatID] = append(t.Media[chatID], append([]string(nil), fileIDs...))
	return nil
}

func (t *Transport) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Deleted = append(t.Deleted, messageID)
	return nil
}

// Texts returns the texts sent to chatID, keyboard cleanup dots excluded
func (t *Transport) Texts(chatID int64) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var texts []string
	for _, m := range t.Messages {
		if m.ChatID == chatID && !m.RemoveKeyboard {
			texts = append(texts, m.Text)
		}
	}
	return texts
}

// Last returns the last message sent to chatID
func (t *Transport) Last(chatID int64) (conversation.Outgoing, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.Messages) - 1; i >= 0; i-- {
		if m := t.Messages[i]; m.ChatID == chatID && !m.RemoveKeyboard {
			return m, true
		}
	}
	return conversation.Outgoing{}, false
}

// Reset forgets recorded messages
func (t *Transport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Messages = nil
	t.Deleted = nil
}

// Files serves file URLs and pretends to download into dir
type Files struct {
	Err   error
	Saved []string
}

func (f *Files) FileURL(ctx context.Context, fileID string) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	return "https://files.example/" + fileID, nil
}

func (f *Files) SaveFile(ctx context.Context, fileID, dir string) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	path := filepath.Join(dir, fileID+".jpg")
	f.Saved = append(f.Saved, path)
	return path, nil
}

// OCR returns a fixed text per image URL, or Text for any other URL
type OCR struct {
	Text  string
	ByURL map[string]string
	Err   error
	Calls []string
}

func (o *OCR) ExtractText(ctx context.Context, imageURL string) (string, error) {
	o.Calls = append(o.Calls, imageURL)
	if o.Err != nil {
		return "", o.Err
	}
	if text, ok := o.ByURL[imageURL]; ok {
		return text, nil
	}
	return o.Text, nil
}

// FixedCouponCall is one recorded ApplyFixedCoupon invocation
type FixedCouponCall struct {
	OrderID  int64
	Existing []models.CouponLine
	Amount   string
}

// Orders records order calls and returns canned remote orders
type Orders struct {
	Created     []models.OrderRecord
	Coupons     []FixedCouponCall
	CreateErr   error
	CouponErr   error
	NextID      int64
	Total       string
	UpdateTotal string
}

func (o *Orders) CreateOrder(ctx context.Context, order models.OrderRecord) (*models.RemoteOrder, error) {
	o.Created = append(o.Created, order)
	if o.CreateErr != nil {
		return nil, o.CreateErr
	}
	id := o.NextID
	if id == 0 {
		id = 1001
	}
	remote := &models.RemoteOrder{ID: id, Total: o.Total}
	if p, ok := order.DiscountPercent(); ok && p > 0 {
		remote.CouponLines = []models.CouponLine{{Code: fmt.Sprintf("tgbot_yonka_%d", p)}}
	}
	return remote, nil
}

func (o *Orders) ApplyFixedCoupon(ctx context.Context, orderID int64, existing []models.CouponLine, amount string) (*models.RemoteOrder, error) {
	o.Coupons = append(o.Coupons, FixedCouponCall{OrderID: orderID, Existing: existing, Amount: amount})
	if o.CouponErr != nil {
		return nil, o.CouponErr
	}
	lines := append(append([]models.CouponLine(nil), existing...), models.CouponLine{Code: "tgbot_fixed_" + amount})
	return &models.RemoteOrder{ID: orderID, Total: o.UpdateTotal, CouponLines: lines}, nil
}

// Documents returns /docs/<type><id>.pdf unless the type is listed in Fail
type Documents struct {
	Fail map[models.DocumentType]error
}

func (d *Documents) DocumentPath(ctx context.Context, docType models.DocumentType, orderID int64) (string, error) {
	if err := d.Fail[docType]; err != nil {
		return "", err
	}
	return fmt.Sprintf("/docs/%s%d.pdf", docType, orderID), nil
}
