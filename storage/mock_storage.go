package storage

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockStorage implements the Storage interface for testing
type MockStorage struct {
	mock.Mock
}

// ListEvents implements the Storage interface
func (m *MockStorage) ListEvents(ctx context.Context, petID string) ([]EventDocument, error) {
	args := m.Called(ctx, petID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]EventDocument), args.Error(1)
}

// CreateEvent implements the Storage interface
func (m *MockStorage) CreateEvent(ctx context.Context, event *EventDocument) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// DeleteEvents implements the Storage interface
func (m *MockStorage) DeleteEvents(ctx context.Context, petID, title string) (int, error) {
	args := m.Called(ctx, petID, title)
	return args.Int(0), args.Error(1)
}

// ListVaccinations implements the Storage interface
func (m *MockStorage) ListVaccinations(ctx context.Context, petID string) ([]VaccinationDocument, error) {
	args := m.Called(ctx, petID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]VaccinationDocument), args.Error(1)
}

// GetVaccination implements the Storage interface
func (m *MockStorage) GetVaccination(ctx context.Context, petID, vaccineName string) (*VaccinationDocument, error) {
	args := m.Called(ctx, petID, vaccineName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*VaccinationDocument), args.Error(1)
}

// PutVaccination implements the Storage interface
func (m *MockStorage) PutVaccination(ctx context.Context, doc *VaccinationDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

// RecordAdministered implements the Storage interface
func (m *MockStorage) RecordAdministered(ctx context.Context, petID, vaccineName, administeredDate string) error {
	args := m.Called(ctx, petID, vaccineName, administeredDate)
	return args.Error(0)
}

// AppendReschedule implements the Storage interface
func (m *MockStorage) AppendReschedule(ctx context.Context, petID, vaccineName string, r RescheduleDocument) (int, error) {
	args := m.Called(ctx, petID, vaccineName, r)
	return args.Int(0), args.Error(1)
}

// DeleteVaccination implements the Storage interface
func (m *MockStorage) DeleteVaccination(ctx context.Context, petID, vaccineName string) error {
	args := m.Called(ctx, petID, vaccineName)
	return args.Error(0)
}
