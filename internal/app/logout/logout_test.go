package logout_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/fieldwork/internal/app/apptest"
	"github.com/slok/fieldwork/internal/app/logout"
	"github.com/slok/fieldwork/internal/backend/backendmock"
	"github.com/slok/fieldwork/internal/connectivity"
	"github.com/slok/fieldwork/internal/model"
	"github.com/slok/fieldwork/internal/session"
)

type fakeSessions struct {
	signedOut bool
	err       error
}

func (f *fakeSessions) SignOut(ctx context.Context, s session.Session) error {
	f.signedOut = f.err == nil
	return f.err
}

func TestServiceRun(t *testing.T) {
	now := apptest.Now
	in := now.Add(-time.Hour)
	clockedIn := &model.Attendance{WorkerID: "w1", Day: "2026-05-04", ClockIn: &in, Events: []model.ClockEvent{{Type: model.ClockEventClockIn, At: in}}}

	tests := map[string]struct {
		online       bool
		mock         func(m *backendmock.MockAttendanceRepository)
		signOutErr   error
		expClockOut  bool
		expSignedOut bool
		expErr       bool
	}{
		"A clocked in worker should be clocked out before signing out.": {
			online: true,
			mock: func(m *backendmock.MockAttendanceRepository) {
				m.On("GetAttendance", mock.Anything, "w1", "2026-05-04").Once().Return(clockedIn, nil)
				m.On("SaveAttendance", mock.Anything, mock.MatchedBy(func(a model.Attendance) bool { return !a.ClockedIn() })).Once().Return(nil)
			},
			expClockOut:  true,
			expSignedOut: true,
		},
		"A clocked out worker should only sign out.": {
			online: true,
			mock: func(m *backendmock.MockAttendanceRepository) {
				m.On("GetAttendance", mock.Anything, "w1", "2026-05-04").Once().Return(nil, model.ErrNotFound)
			},
			expSignedOut: true,
		},
		"A clock out failure should not block the sign out.": {
			online: true,
			mock: func(m *backendmock.MockAttendanceRepository) {
				m.On("GetAttendance", mock.Anything, "w1", "2026-05-04").Once().Return(nil, errors.New("network down"))
			},
			expSignedOut: true,
		},
		"Offline, the attendance should not be touched.": {
			mock:         func(m *backendmock.MockAttendanceRepository) {},
			expSignedOut: true,
		},
		"A sign out failure should fail.": {
			online: true,
			mock: func(m *backendmock.MockAttendanceRepository) {
				m.On("GetAttendance", mock.Anything, "w1", "2026-05-04").Once().Return(nil, model.ErrNotFound)
			},
			signOutErr: errors.New("disk full"),
			expErr:     true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			m := &backendmock.MockAttendanceRepository{}
			test.mock(m)
			sessions := &fakeSessions{err: test.signOutErr}

			svc, err := logout.NewService(logout.ServiceConfig{
				Sessions:     sessions,
				Attendance:   m,
				Connectivity: connectivity.Static(test.online),
				Now:          func() time.Time { return now },
			})
			require.NoError(err)

			res, err := svc.Run(context.Background(), logout.Request{Session: session.Session{WorkerID: "w1"}})
			if test.expErr {
				assert.Error(err)
			} else {
				require.NoError(err)
				assert.Equal(test.expClockOut, res.AutoClockedOut)
			}
			assert.Equal(test.expSignedOut, sessions.signedOut)
			m.AssertExpectations(t)
		})
	}
}
