package appointments

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/medicarehealth/practice-platform/internal/identity"
	"github.com/medicarehealth/practice-platform/internal/observability/metrics"
	"github.com/medicarehealth/practice-platform/pkg/logging"
)

type fakeCatalog struct {
	services map[int64]string
	doctors  map[int64][2]string
	err      error
}

func (f *fakeCatalog) ServiceName(_ context.Context, id int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.services[id], nil
}

func (f *fakeCatalog) DoctorRef(_ context.Context, id int64) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	ref, ok := f.doctors[id]
	if !ok {
		return "", "", errors.New("doctor not found")
	}
	return ref[0], ref[1], nil
}

type fakeNotifier struct {
	received []int64
	changed  []Status
	err      error
}

func (f *fakeNotifier) AppointmentReceived(_ context.Context, appt *Appointment) error {
	f.received = append(f.received, appt.ID)
	return f.err
}

func (f *fakeNotifier) AppointmentStatusChanged(_ context.Context, _ *Appointment, to Status) error {
	f.changed = append(f.changed, to)
	return f.err
}

func newTestService(t *testing.T, catalog CatalogLookup, notifier Notifier) (*Service, *InMemoryRepository) {
	t.Helper()
	repo := NewInMemoryRepository()
	m := metrics.NewAppointmentMetrics(prometheus.NewRegistry())
	return NewService(repo, catalog, notifier, logging.Default(), m), repo
}

func seedAppointment(t *testing.T, svc *Service, email string) *Appointment {
	t.Helper()
	appt, err := svc.Create(context.Background(), &CreateRequest{
		Name:      "Jane Rivera",
		Email:     email,
		Phone:     "555-0101",
		ServiceID: "3",
		Message:   "Knee pain after running",
	})
	if err != nil {
		t.Fatalf("seed create: %v", err)
	}
	return appt
}

func TestServiceCreateAlwaysPending(t *testing.T) {
	svc, repo := newTestService(t, nil, nil)

	appt, err := svc.Create(context.Background(), &CreateRequest{
		Name:      "Jane Rivera",
		Email:     "jane@example.com",
		Phone:     "555-0101",
		ServiceID: "3",
		Message:   "Knee pain after running",
		Status:    "confirmed",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if appt.Status != StatusPending {
		t.Fatalf("status = %q, want pending", appt.Status)
	}

	stored, err := repo.GetByID(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != StatusPending {
		t.Fatalf("stored status = %q, want pending", stored.Status)
	}
}

func TestServiceCreateValidation(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	cases := []struct {
		name string
		req  CreateRequest
		want error
	}{
		{"missing name", CreateRequest{Email: "a@b.c", Phone: "1", ServiceID: "3", Message: "m"}, ErrMissingName},
		{"missing email", CreateRequest{Name: "A", Phone: "1", ServiceID: "3", Message: "m"}, ErrMissingEmail},
		{"non-numeric service", CreateRequest{Name: "A", Email: "a@b.c", Phone: "1", ServiceID: "spa", Message: "m"}, ErrInvalidServiceID},
		{"zero service", CreateRequest{Name: "A", Email: "a@b.c", Phone: "1", ServiceID: "0", Message: "m"}, ErrInvalidServiceID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), &tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestServicePatientCanOnlyCancel(t *testing.T) {
	svc, repo := newTestService(t, nil, nil)
	appt := seedAppointment(t, svc, "jane@example.com")
	patient := Actor{Email: "jane@example.com", Role: identity.RoleUser}

	_, err := svc.UpdateStatus(context.Background(), patient, appt.ID, StatusCompleted)
	if !errors.Is(err, ErrForbiddenTransition) {
		t.Fatalf("err = %v, want ErrForbiddenTransition", err)
	}
	stored, _ := repo.GetByID(context.Background(), appt.ID)
	if stored.Status != StatusPending {
		t.Fatalf("stored status = %q, want pending untouched", stored.Status)
	}

	updated, err := svc.UpdateStatus(context.Background(), patient, appt.ID, StatusCancelled)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if updated.Status != StatusCancelled {
		t.Fatalf("status = %q, want cancelled", updated.Status)
	}
}

func TestServiceDoubleCancelIdempotent(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	appt := seedAppointment(t, svc, "jane@example.com")
	patient := Actor{Email: "jane@example.com", Role: identity.RoleUser}

	if _, err := svc.UpdateStatus(context.Background(), patient, appt.ID, StatusCancelled); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	again, err := svc.UpdateStatus(context.Background(), patient, appt.ID, StatusCancelled)
	if err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	if again.Status != StatusCancelled {
		t.Fatalf("status = %q, want cancelled", again.Status)
	}
}

func TestServiceTerminalStatesStayTerminal(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	admin := Actor{Email: "admin@medicarehealth.com", Role: identity.RoleAdmin}

	appt := seedAppointment(t, svc, "jane@example.com")
	if _, err := svc.UpdateStatus(context.Background(), admin, appt.ID, StatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), admin, appt.ID, StatusConfirmed); !errors.Is(err, ErrForbiddenTransition) {
		t.Fatalf("err = %v, want ErrForbiddenTransition", err)
	}
}

func TestServicePatientCannotTouchOthersRows(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	appt := seedAppointment(t, svc, "jane@example.com")
	stranger := Actor{Email: "mallory@example.com", Role: identity.RoleUser}

	if _, err := svc.UpdateStatus(context.Background(), stranger, appt.ID, StatusCancelled); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update err = %v, want ErrNotFound", err)
	}
	if _, err := svc.Get(context.Background(), stranger, appt.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get err = %v, want ErrNotFound", err)
	}
}

func TestServiceStaffLifecycle(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	doctor := Actor{Email: "doctor.lee@medicarehealth.com", Role: identity.RoleDoctor}

	appt := seedAppointment(t, svc, "jane@example.com")
	confirmed, err := svc.UpdateStatus(context.Background(), doctor, appt.ID, StatusConfirmed)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != StatusConfirmed {
		t.Fatalf("status = %q, want confirmed", confirmed.Status)
	}
	completed, err := svc.UpdateStatus(context.Background(), doctor, appt.ID, StatusCompleted)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != StatusCompleted {
		t.Fatalf("status = %q, want completed", completed.Status)
	}
}

func TestServiceEnrichmentDefaults(t *testing.T) {
	catalog := &fakeCatalog{err: errors.New("catalog unavailable")}
	svc, _ := newTestService(t, catalog, nil)
	admin := Actor{Email: "admin@medicarehealth.com", Role: identity.RoleAdmin}

	appt := seedAppointment(t, svc, "jane@example.com")
	got, err := svc.Get(context.Background(), admin, appt.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Service == nil || got.Service.Name != DefaultServiceName {
		t.Fatalf("service ref = %+v, want default name", got.Service)
	}
}

func TestServiceEnrichmentResolvesNames(t *testing.T) {
	catalog := &fakeCatalog{services: map[int64]string{3: "Physical Therapy"}}
	svc, _ := newTestService(t, catalog, nil)
	admin := Actor{Email: "admin@medicarehealth.com", Role: identity.RoleAdmin}

	appt := seedAppointment(t, svc, "jane@example.com")
	got, err := svc.Get(context.Background(), admin, appt.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Service == nil || got.Service.Name != "Physical Therapy" {
		t.Fatalf("service ref = %+v, want Physical Therapy", got.Service)
	}
}

func TestServiceNotifierCalls(t *testing.T) {
	notifier := &fakeNotifier{}
	svc, _ := newTestService(t, nil, notifier)
	admin := Actor{Email: "admin@medicarehealth.com", Role: identity.RoleAdmin}

	appt := seedAppointment(t, svc, "jane@example.com")
	if len(notifier.received) != 1 || notifier.received[0] != appt.ID {
		t.Fatalf("received notifications = %v", notifier.received)
	}

	if _, err := svc.UpdateStatus(context.Background(), admin, appt.ID, StatusConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), admin, appt.ID, StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(notifier.changed) != 2 || notifier.changed[0] != StatusConfirmed || notifier.changed[1] != StatusCancelled {
		t.Fatalf("changed notifications = %v", notifier.changed)
	}
}

func TestServiceNotifierFailureDoesNotBlock(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("smtp down")}
	svc, _ := newTestService(t, nil, notifier)

	if appt := seedAppointment(t, svc, "jane@example.com"); appt.Status != StatusPending {
		t.Fatalf("status = %q, want pending", appt.Status)
	}
}
