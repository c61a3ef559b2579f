package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/6231368521/VacQ/internal/models"
)

const textbeltURL = "https://textbelt.com/text"

// NotificationService sends booking-confirmation SMS through the Textbelt
// HTTP API. Sends are synchronous and bounded by the client timeout;
// detaching them from the request is the caller's choice.
type NotificationService struct {
	log      *zap.Logger
	client   *http.Client
	endpoint string
}

func NewNotificationService(log *zap.Logger) *NotificationService {
	return &NotificationService{
		log:      log,
		client:   &http.Client{Timeout: 10 * time.Second},
		endpoint: textbeltURL,
	}
}

// SendBookingConfirmationSMS texts the user a confirmation of their new
// appointment. Users without a phone number are skipped.
func (s *NotificationService) SendBookingConfirmationSMS(user *models.User, hospital *models.Hospital, appt *models.Appointment) {
	if user.Tel == "" {
		s.log.Debug("SMS not sent: user has no phone number", zap.String("user", user.ID.Hex()))
		return
	}

	body := fmt.Sprintf(
		"Appointment confirmed: %s at %s on %s.",
		user.Name,
		hospital.Name,
		appt.ApptDate.Format("Jan 2 at 3:04 PM"),
	)
	s.sendSMS(user.Tel, body)
}

func (s *NotificationService) sendSMS(phone, message string) {
	payload, _ := json.Marshal(map[string]string{
		"phone":   phone,
		"message": message,
		"key":     os.Getenv("TEXTBELT_API_KEY"),
	})

	resp, err := s.client.Post(s.endpoint, "application/json", bytes.NewBuffer(payload))
	if err != nil {
		s.log.Warn("Textbelt request failed", zap.String("phone", phone), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		s.log.Warn("Textbelt response unreadable", zap.Error(err))
		return
	}

	if success, _ := result["success"].(bool); !success {
		reason, _ := result["error"].(string)
		s.log.Warn("SMS delivery failed", zap.String("phone", phone), zap.String("reason", reason))
		return
	}
	s.log.Info("SMS sent", zap.String("phone", phone))
}
