package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jwalitptl/clinic-booking-api/internal/email"
	"github.com/jwalitptl/clinic-booking-api/internal/model"
	"github.com/jwalitptl/clinic-booking-api/pkg/circuitbreaker"
	"github.com/jwalitptl/clinic-booking-api/pkg/logger"
	"github.com/jwalitptl/clinic-booking-api/pkg/messaging"
	"github.com/jwalitptl/clinic-booking-api/pkg/metrics"
)

const (
	channelEmail = "email"
	channelEvent = "event"
)

// Notifier is the best-effort sink for appointment lifecycle changes.
// Calls return immediately; delivery failures are logged and counted only.
type Notifier interface {
	AppointmentBooked(ctx context.Context, apt *model.Appointment)
	AppointmentCompleted(ctx context.Context, apt *model.Appointment)
	AppointmentPaid(ctx context.Context, apt *model.Appointment)
}

// AppointmentEvent is the payload published to the broker.
type AppointmentEvent struct {
	AppointmentID string  `json:"appointmentId"`
	UserID        string  `json:"userId"`
	DocID         string  `json:"docId"`
	SlotDate      string  `json:"slotDate"`
	SlotTime      string  `json:"slotTime"`
	Amount        float64 `json:"amount"`
}

type Service struct {
	sender    email.Sender
	publisher *messaging.Publisher
	breaker   *circuitbreaker.CircuitBreaker
	logger    *logger.Logger
	metrics   *metrics.Metrics
	timeout   time.Duration
	wg        sync.WaitGroup
}

func NewService(sender email.Sender, publisher *messaging.Publisher, log *logger.Logger, m *metrics.Metrics, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if publisher == nil {
		publisher = messaging.NewPublisher(nil, "appointments")
	}
	return &Service{
		sender:    sender,
		publisher: publisher,
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "email",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		}),
		logger:  log,
		metrics: m,
		timeout: timeout,
	}
}

func (s *Service) AppointmentBooked(ctx context.Context, apt *model.Appointment) {
	msg := email.Message{
		To:      apt.UserData.Email,
		ToName:  apt.UserData.Name,
		Subject: fmt.Sprintf("Appointment Confirmed - Dr. %s", apt.DocData.Name),
		Text: fmt.Sprintf("Your appointment has been successfully scheduled.\n\nDoctor: Dr. %s\nDate: %s\nTime: %s\n",
			apt.DocData.Name, apt.SlotDate, apt.SlotTime),
	}
	s.dispatch(ctx, messaging.EventAppointmentBooked, apt, &msg)
}

func (s *Service) AppointmentCompleted(ctx context.Context, apt *model.Appointment) {
	msg := email.Message{
		To:      apt.UserData.Email,
		ToName:  apt.UserData.Name,
		Subject: fmt.Sprintf("Appointment Completed - Dr. %s", apt.DocData.Name),
		Text: fmt.Sprintf("Your appointment with Dr. %s on %s at %s is marked as completed.\n",
			apt.DocData.Name, apt.SlotDate, apt.SlotTime),
	}
	s.dispatch(ctx, messaging.EventAppointmentCompleted, apt, &msg)
}

func (s *Service) AppointmentPaid(ctx context.Context, apt *model.Appointment) {
	s.dispatch(ctx, messaging.EventAppointmentPaid, apt, nil)
}

// Wait blocks until in-flight deliveries finish. Used on shutdown and in tests.
func (s *Service) Wait() {
	s.wg.Wait()
}

// dispatch detaches from the request so a finished response does not cancel delivery.
func (s *Service) dispatch(ctx context.Context, eventType string, apt *model.Appointment, msg *email.Message) {
	snapshot := *apt
	ctx = context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		log := s.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"appointment_id": snapshot.ID.String(),
			"event":          eventType,
		})

		if msg != nil && s.sender != nil && msg.To != "" {
			err := s.breaker.Execute(func() error { return s.sender.Send(ctx, *msg) })
			if err != nil {
				s.metrics.NotificationFailures.WithLabelValues(channelEmail).Inc()
				log.Error(err, "Failed to send appointment email")
			}
		}

		event := AppointmentEvent{
			AppointmentID: snapshot.ID.String(),
			UserID:        snapshot.UserID.String(),
			DocID:         snapshot.DocID.String(),
			SlotDate:      snapshot.SlotDate,
			SlotTime:      snapshot.SlotTime,
			Amount:        snapshot.Amount,
		}
		if err := s.publisher.PublishEvent(ctx, eventType, event); err != nil {
			s.metrics.NotificationFailures.WithLabelValues(channelEvent).Inc()
			log.Error(err, "Failed to publish appointment event")
		}
	}()
}
