package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"www.github.com/Wanderer0074348/CalSync/src/auth"
	"www.github.com/Wanderer0074348/CalSync/src/calendar"
	"www.github.com/Wanderer0074348/CalSync/src/store"
)

// MockCoordinator implements handlers.FlowCoordinator
type MockCoordinator struct {
	mock.Mock
}

func (m *MockCoordinator) BeginAuthorization(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockCoordinator) CompleteAuthorization(ctx context.Context, code, state string) (*auth.GoogleUserInfo, *auth.Credential, error) {
	args := m.Called(ctx, code, state)
	var profile *auth.GoogleUserInfo
	if args.Get(0) != nil {
		profile = args.Get(0).(*auth.GoogleUserInfo)
	}
	var credential *auth.Credential
	if args.Get(1) != nil {
		credential = args.Get(1).(*auth.Credential)
	}
	return profile, credential, args.Error(2)
}

// MockUserStore implements handlers.UserUpserter and handlers.CalendarStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Upsert(ctx context.Context, profile *auth.GoogleUserInfo, credential *auth.Credential) (*store.UserRecord, error) {
	args := m.Called(ctx, profile, credential)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.UserRecord), args.Error(1)
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*store.UserRecord, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.UserRecord), args.Error(1)
}

func (m *MockUserStore) SaveCalendars(ctx context.Context, email string, calendars []store.CalendarEntry) error {
	args := m.Called(ctx, email, calendars)
	return args.Error(0)
}

func (m *MockUserStore) ToggleCalendar(ctx context.Context, email, calendarID string) (*store.CalendarEntry, error) {
	args := m.Called(ctx, email, calendarID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.CalendarEntry), args.Error(1)
}

// MockCalendarLister implements handlers.CalendarLister
type MockCalendarLister struct {
	mock.Mock
}

func (m *MockCalendarLister) ListCalendars(ctx context.Context, accessToken string) ([]calendar.Item, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]calendar.Item), args.Error(1)
}
