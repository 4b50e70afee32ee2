package services

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"gudam-backend/config"
	"gudam-backend/internal/apperr"
	"gudam-backend/internal/models"
	"gudam-backend/internal/store"
	"gudam-backend/internal/utils"
)

// Notification types
const (
	NotifTypeAgentMatchRequest    = "agent_match_request"
	NotifTypeListingAssigned      = "listing_assigned"
	NotifTypeVerificationComplete = "verification_complete"
	NotifTypeProductUpdated       = "product_updated"
	NotifTypeOrderPlaced          = "order_placed"
	NotifTypeOrderStatus          = "order_status"
)

// NotificationService records in-app notifications and optionally mirrors
// them over SMS. Delivery is fire-and-forget: callers must never treat a
// failed notification as fatal to the primary operation.
type NotificationService struct {
	store  *store.Client
	config *config.Config
	client *http.Client
	hub    *NotificationHub
}

// NewNotificationService creates a new notification service. hub may be nil
// when no realtime stream is attached (tests, one-shot tools).
func NewNotificationService(st *store.Client, cfg *config.Config, hub *NotificationHub) *NotificationService {
	return &NotificationService{
		store:  st,
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		hub:    hub,
	}
}

// Send creates a notification record, pushes it to any live stream, and
// optionally sends an SMS. Returns nil when the record could not be created;
// SMS failures alone do not count as delivery failure.
func (s *NotificationService) Send(userID, notifType, title, titleBN, message, messageBN, relatedID string, sms bool) *models.Notification {
	if titleBN == "" {
		titleBN = title
	}
	if messageBN == "" {
		messageBN = message
	}

	notif := &models.Notification{
		ID:        utils.ShortID("NTF", uuid.New().String()),
		UserID:    userID,
		Type:      notifType,
		Title:     title,
		TitleBN:   titleBN,
		Message:   message,
		MessageBN: messageBN,
		RelatedID: relatedID,
		IsRead:    false,
		CreatedAt: utils.NowISO(),
	}

	row := store.Row{
		"id":         notif.ID,
		"user_id":    notif.UserID,
		"type":       notif.Type,
		"title":      notif.Title,
		"title_bn":   notif.TitleBN,
		"message":    notif.Message,
		"message_bn": notif.MessageBN,
		"related_id": nullable(notif.RelatedID),
		"is_read":    false,
		"created_at": notif.CreatedAt,
	}
	if _, err := s.store.Insert("notifications", row); err != nil {
		log.Printf("notification insert failed for user %s: %v", userID, err)
		return nil
	}

	if s.hub != nil {
		s.hub.Publish(notif)
	}

	if sms {
		s.smsToUser(userID, "গুদাম: "+notif.MessageBN)
	}

	return notif
}

// smsToUser looks up the user's phone and sends the message, swallowing all
// failures.
func (s *NotificationService) smsToUser(userID, message string) {
	rows, _, err := s.store.Select("users", store.Query{Filters: []store.Filter{store.Eq("id", userID)}})
	if err != nil || len(rows) == 0 {
		return
	}
	phone := models.Str(rows[0], "phone")
	if phone == "" {
		return
	}
	s.SendSMS(phone, message)
}

// SendSMS posts a message to the configured sms.net.bd-style gateway.
// Returns false when the gateway is unconfigured or the send fails.
func (s *NotificationService) SendSMS(phone, message string) bool {
	if s.config.SMSAPIKey == "" {
		return false
	}

	params := url.Values{}
	params.Set("api_key", s.config.SMSAPIKey)
	params.Set("msg", message)
	params.Set("to", utils.NormalizeBDPhone(phone))

	resp, err := s.client.Get(s.config.SMSAPIURL + "?" + params.Encode())
	if err != nil {
		log.Printf("SMS send error: %v", err)
		return false
	}
	defer resp.Body.Close()

	var result struct {
		Error int `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Printf("SMS response decode error: %v", err)
		return false
	}
	return result.Error == 0
}

// UserNotifications returns a user's notifications, newest first, optionally
// filtered by read status.
func (s *NotificationService) UserNotifications(userID string, isRead *bool, page, pageSize int) ([]*models.Notification, int, error) {
	filters := []store.Filter{store.Eq("user_id", userID)}
	if isRead != nil {
		filters = append(filters, store.Eq("is_read", *isRead))
	}

	rows, total, err := s.store.Select("notifications", store.Query{
		Filters:    filters,
		OrderBy:    "created_at",
		Descending: true,
		Offset:     (page - 1) * pageSize,
		Limit:      pageSize,
		Count:      true,
	})
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}

	items := make([]*models.Notification, 0, len(rows))
	for _, r := range rows {
		items = append(items, models.NotificationFromRow(r))
	}
	return items, total, nil
}

// UnreadCount returns the number of unread notifications for a user.
func (s *NotificationService) UnreadCount(userID string) (int, error) {
	_, total, err := s.store.Select("notifications", store.Query{
		Filters: []store.Filter{store.Eq("user_id", userID), store.Eq("is_read", false)},
		Count:   true,
	})
	if err != nil {
		return 0, apperr.Internal(err)
	}
	return total, nil
}

// MarkAsRead marks a single notification as read.
func (s *NotificationService) MarkAsRead(notificationID string) (*models.Notification, error) {
	rows, err := s.store.Update("notifications",
		[]store.Filter{store.Eq("id", notificationID)},
		store.Row{"is_read": true})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("বিজ্ঞপ্তি পাওয়া যায়নি (Notification not found)")
	}
	return models.NotificationFromRow(rows[0]), nil
}

// MarkAllAsRead marks every unread notification of a user as read.
func (s *NotificationService) MarkAllAsRead(userID string) error {
	_, err := s.store.Update("notifications",
		[]store.Filter{store.Eq("user_id", userID), store.Eq("is_read", false)},
		store.Row{"is_read": true})
	if err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// nullable keeps empty strings out of nullable TEXT columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
