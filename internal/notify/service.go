package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/medicarehealth/practice-platform/internal/appointments"
	"github.com/medicarehealth/practice-platform/pkg/logging"
)

// Service turns appointment lifecycle events into patient email. It
// satisfies the appointments.Notifier interface.
type Service struct {
	sender EmailSender
	logger *logging.Logger
}

// NewService creates the notification service. A nil sender downgrades
// to the logging stub so callers never need a nil check.
func NewService(sender EmailSender, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if sender == nil {
		sender = NewStubEmailSender(logger)
	}
	return &Service{sender: sender, logger: logger}
}

// AppointmentReceived confirms that a booking request reached the
// practice and is awaiting review.
func (s *Service) AppointmentReceived(ctx context.Context, appt *appointments.Appointment) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nWe received your appointment request for %s and our staff will review it shortly. "+
			"You will get another email once it is confirmed.\n\nYour request:\n%s\n\nMediCare Health Center",
		firstName(appt.Name), serviceLabel(appt), appt.Message,
	)
	return s.sender.Send(ctx, EmailMessage{
		To:      appt.Email,
		ToName:  appt.Name,
		Subject: "We received your appointment request",
		Body:    body,
	})
}

// AppointmentStatusChanged emails the patient when staff confirm or
// cancel a request. Other transitions stay quiet.
func (s *Service) AppointmentStatusChanged(ctx context.Context, appt *appointments.Appointment, to appointments.Status) error {
	var subject, body string
	switch to {
	case appointments.StatusConfirmed:
		subject = "Your appointment is confirmed"
		body = fmt.Sprintf(
			"Hi %s,\n\nYour appointment for %s has been confirmed.%s\n\n"+
				"If you need to reschedule, reply to this email or call the front desk.\n\nMediCare Health Center",
			firstName(appt.Name), serviceLabel(appt), scheduleLine(appt),
		)
	case appointments.StatusCancelled:
		subject = "Your appointment was cancelled"
		body = fmt.Sprintf(
			"Hi %s,\n\nYour appointment request for %s has been cancelled. "+
				"If this was a mistake, you can book again any time.\n\nMediCare Health Center",
			firstName(appt.Name), serviceLabel(appt),
		)
	default:
		return nil
	}

	return s.sender.Send(ctx, EmailMessage{
		To:      appt.Email,
		ToName:  appt.Name,
		Subject: subject,
		Body:    body,
	})
}

func serviceLabel(appt *appointments.Appointment) string {
	if appt.Service != nil && appt.Service.Name != "" {
		return appt.Service.Name
	}
	return appointments.DefaultServiceName
}

func scheduleLine(appt *appointments.Appointment) string {
	var parts []string
	if appt.ScheduledDate != nil {
		parts = append(parts, appt.ScheduledDate.Format("Monday, January 2 2006"))
	}
	if appt.ScheduledTime != nil && *appt.ScheduledTime != "" {
		parts = append(parts, "at "+*appt.ScheduledTime)
	}
	if appt.Location != nil && *appt.Location != "" {
		parts = append(parts, "("+*appt.Location+")")
	}
	if len(parts) == 0 {
		return ""
	}
	return " Scheduled for " + strings.Join(parts, " ") + "."
}

func firstName(full string) string {
	full = strings.TrimSpace(full)
	if full == "" {
		return "there"
	}
	if i := strings.IndexByte(full, ' '); i > 0 {
		return full[:i]
	}
	return full
}
