package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"dms-object-service/internal/core/domain"
	"dms-object-service/internal/core/ports/output"
)

var (
	_ ports.RoleResolver     = (*MockRoleResolver)(nil)
	_ ports.ManifestArchive  = (*MockManifestArchive)(nil)
	_ ports.LifecycleMetrics = (*MockLifecycleMetrics)(nil)
)

// MockRoleResolver is a mock of RoleResolver.
type MockRoleResolver struct {
	mock.Mock
}

func (m *MockRoleResolver) Assignments(ctx context.Context, userID string) ([]domain.RoleAssignment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RoleAssignment), args.Error(1)
}

// Grant registers the assignments returned for userID.
func (m *MockRoleResolver) Grant(userID string, assignments ...domain.RoleAssignment) *MockRoleResolver {
	m.On("Assignments", mock.Anything, userID).Return(assignments, nil).Maybe()
	return m
}

// MockManifestArchive is a mock of ManifestArchive.
type MockManifestArchive struct {
	mock.Mock
}

func (m *MockManifestArchive) Put(ctx context.Context, key string, body []byte, contentType string) error {
	args := m.Called(ctx, key, body, contentType)
	return args.Error(0)
}

func (m *MockManifestArchive) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockManifestArchive) List(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockLifecycleMetrics is a mock of LifecycleMetrics.
type MockLifecycleMetrics struct {
	mock.Mock
}

func (m *MockLifecycleMetrics) DeletionCreated(entities int)  { m.Called(entities) }
func (m *MockLifecycleMetrics) DeletionReverted(entities int) { m.Called(entities) }
func (m *MockLifecycleMetrics) DeletionPurged(entities int)   { m.Called(entities) }

func (m *MockLifecycleMetrics) HistoryRecorded(relation domain.RelationType) {
	m.Called(relation)
}

func (m *MockLifecycleMetrics) MutationRejected(op domain.Operation) {
	m.Called(op)
}
