package appointments

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/medicarehealth/practice-platform/internal/identity"
	"github.com/medicarehealth/practice-platform/internal/observability/metrics"
	"github.com/medicarehealth/practice-platform/pkg/logging"
)

var apptTracer = otel.Tracer("medicare.internal.appointments")

// DefaultServiceName labels appointments whose service row is missing or
// could not be resolved.
const DefaultServiceName = "General Consultation"

// CatalogLookup resolves display names for the service and doctor a row
// references. Lookups are best effort; failures degrade to defaults.
type CatalogLookup interface {
	ServiceName(ctx context.Context, id int64) (string, error)
	DoctorRef(ctx context.Context, id int64) (name, specialty string, err error)
}

// Notifier delivers patient-facing email for appointment events.
type Notifier interface {
	AppointmentReceived(ctx context.Context, appt *Appointment) error
	AppointmentStatusChanged(ctx context.Context, appt *Appointment, to Status) error
}

// Actor identifies who is performing an appointment operation.
type Actor struct {
	Email string
	Role  identity.Role
}

// ActorFromSession builds an Actor from an authenticated session.
func ActorFromSession(sess *identity.Session) Actor {
	return Actor{Email: sess.Email, Role: sess.Role}
}

// Service owns appointment lifecycle rules on top of the repository.
type Service struct {
	repo     Repository
	catalog  CatalogLookup
	notifier Notifier
	logger   *logging.Logger
	metrics  *metrics.AppointmentMetrics
}

// NewService wires the appointment service. catalog and notifier may be
// nil; the service degrades to defaults and no email respectively.
func NewService(repo Repository, catalog CatalogLookup, notifier Notifier, logger *logging.Logger, m *metrics.AppointmentMetrics) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, catalog: catalog, notifier: notifier, logger: logger, metrics: m}
}

// Create validates and stores a booking request. Any status supplied by
// the caller is discarded; new rows always start pending.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Appointment, error) {
	ctx, span := apptTracer.Start(ctx, "appointments.create")
	defer span.End()

	serviceID, err := req.Validate()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("appointment.service_id", serviceID))

	appt, err := s.repo.Create(ctx, req, serviceID)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveCreated()
	s.enrich(ctx, appt)

	if s.notifier != nil {
		if err := s.notifier.AppointmentReceived(ctx, appt); err != nil {
			s.logger.Warn("appointment received email failed", "appointment_id", appt.ID, "error", err)
		}
	}

	s.logger.Info("appointment created",
		"appointment_id", appt.ID,
		"service_id", serviceID,
		"status", appt.Status,
	)
	return appt, nil
}

// Get returns one appointment. Non-admin callers only see their own
// rows; a mismatch reads as not found rather than leaking existence.
func (s *Service) Get(ctx context.Context, actor Actor, id int64) (*Appointment, error) {
	ctx, span := apptTracer.Start(ctx, "appointments.get")
	defer span.End()

	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != identity.RoleAdmin && actor.Role != identity.RoleDoctor && appt.Email != actor.Email {
		return nil, ErrNotFound
	}
	s.enrich(ctx, appt)
	return appt, nil
}

// ListForPatient returns the actor's own appointments, newest first.
func (s *Service) ListForPatient(ctx context.Context, actor Actor) ([]*Appointment, error) {
	ctx, span := apptTracer.Start(ctx, "appointments.list_for_patient")
	defer span.End()

	items, err := s.repo.ListByEmail(ctx, actor.Email)
	if err != nil {
		return nil, err
	}
	for _, appt := range items {
		s.enrich(ctx, appt)
	}
	return items, nil
}

// ListAll returns every appointment with requester profile data, for
// staff views.
func (s *Service) ListAll(ctx context.Context) ([]*Appointment, error) {
	ctx, span := apptTracer.Start(ctx, "appointments.list_all")
	defer span.End()

	items, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, appt := range items {
		s.enrich(ctx, appt)
	}
	return items, nil
}

// UpdateStatus applies a lifecycle transition on behalf of an actor.
// Staff may move non-terminal rows anywhere; patients may only cancel
// their own pending or confirmed rows. Requesting the status a row is
// already in succeeds without writing, so a repeated cancel is safe.
func (s *Service) UpdateStatus(ctx context.Context, actor Actor, id int64, to Status) (*Appointment, error) {
	ctx, span := apptTracer.Start(ctx, "appointments.update_status")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("appointment.id", id),
		attribute.String("appointment.target_status", string(to)),
		attribute.String("actor.role", string(actor.Role)),
	)

	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	staff := actor.Role == identity.RoleAdmin || actor.Role == identity.RoleDoctor
	if !staff {
		if appt.Email != actor.Email {
			return nil, ErrNotFound
		}
		if to != StatusCancelled {
			return nil, ErrForbiddenTransition
		}
	}

	if appt.Status == to {
		s.enrich(ctx, appt)
		return appt, nil
	}
	if appt.Status.Terminal() {
		return nil, ErrForbiddenTransition
	}

	allowedFrom := []Status{StatusPending, StatusConfirmed}
	moved, err := s.repo.UpdateStatus(ctx, id, to, allowedFrom)
	if err != nil {
		return nil, err
	}
	if !moved {
		// A concurrent writer got there first. Re-read so a race to
		// the same target still reports success.
		appt, err = s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if appt.Status == to {
			s.enrich(ctx, appt)
			return appt, nil
		}
		return nil, ErrForbiddenTransition
	}

	appt.Status = to
	s.metrics.ObserveTransition(string(to), string(actor.Role))
	s.enrich(ctx, appt)

	if s.notifier != nil && (to == StatusConfirmed || to == StatusCancelled) {
		if err := s.notifier.AppointmentStatusChanged(ctx, appt, to); err != nil {
			s.logger.Warn("appointment status email failed", "appointment_id", appt.ID, "status", to, "error", err)
		}
	}

	s.logger.Info("appointment status updated",
		"appointment_id", id,
		"status", to,
		"actor_role", actor.Role,
	)
	return appt, nil
}

// UpdateSchedule edits the staff-managed scheduling fields of a row.
func (s *Service) UpdateSchedule(ctx context.Context, id int64, upd ScheduleUpdate) (*Appointment, error) {
	ctx, span := apptTracer.Start(ctx, "appointments.update_schedule")
	defer span.End()
	span.SetAttributes(attribute.Int64("appointment.id", id))

	if err := s.repo.UpdateSchedule(ctx, id, upd); err != nil {
		return nil, err
	}
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("appointments: reload after schedule update: %w", err)
	}
	s.enrich(ctx, appt)
	return appt, nil
}

// enrich attaches display names for the referenced service and doctor.
// The appointment itself is the source of truth; a failed lookup falls
// back to defaults instead of failing the request.
func (s *Service) enrich(ctx context.Context, appt *Appointment) {
	appt.Service = &ServiceRef{Name: DefaultServiceName}
	if s.catalog == nil {
		return
	}
	if appt.ServiceID != nil {
		if name, err := s.catalog.ServiceName(ctx, *appt.ServiceID); err == nil && name != "" {
			appt.Service.Name = name
		} else if err != nil {
			s.logger.Debug("service lookup failed", "service_id", *appt.ServiceID, "error", err)
		}
	}
	if appt.DoctorID != nil {
		name, specialty, err := s.catalog.DoctorRef(ctx, *appt.DoctorID)
		if err != nil {
			s.logger.Debug("doctor lookup failed", "doctor_id", *appt.DoctorID, "error", err)
			return
		}
		appt.Doctor = &DoctorRef{Name: name, Specialty: specialty}
	}
}
