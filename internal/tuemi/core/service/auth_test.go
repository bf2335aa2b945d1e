package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuemi-io/tuemi/internal/incident"
	"github.com/tuemi-io/tuemi/internal/tuemi/core"
	"github.com/tuemi-io/tuemi/internal/tuemi/core/model"
)

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, incident.DefaultThresholds())

	u, err := f.svc.Register(ctx, NewUser{Email: " Luis@Uni.edu ", Name: "Luis", Password: password, Role: model.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, model.RoleStudent, u.Role, "self sign-up is always a student")
	assert.Equal(t, "luis@uni.edu", u.Email)
	assert.NotEqual(t, password, u.PasswordHash)

	_, err = f.svc.Register(ctx, NewUser{Email: "luis@uni.edu", Name: "Again", Password: password})
	assert.ErrorIs(t, err, core.ErrConflict)

	_, _, err = f.svc.Login(ctx, "luis@uni.edu", "wrong-password")
	assert.ErrorIs(t, err, core.ErrUnauthorized)
	_, _, err = f.svc.Login(ctx, "nobody@uni.edu", password)
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	sess, who, err := f.svc.Login(ctx, "luis@uni.edu", password)
	require.NoError(t, err)
	assert.Equal(t, u.ID, who.ID)
	assert.Equal(t, epoch.Add(defaultSessionTTL), sess.ExpiresAt)

	got, err := f.svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	require.NoError(t, f.svc.Logout(ctx, sess.Token))
	require.NoError(t, f.svc.Logout(ctx, sess.Token), "logout is idempotent")
	_, err = f.svc.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestSessionExpiry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, incident.DefaultThresholds())

	sess, _, err := f.svc.Login(ctx, "admin@tuemi.test", password)
	require.NoError(t, err)

	f.clock.Step(defaultSessionTTL)
	_, err = f.svc.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	_, err = f.svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	_, _, err = f.svc.Login(ctx, "admin@tuemi.test", password)
	require.NoError(t, err)
	f.clock.Step(defaultSessionTTL + time.Second)
	n, err := f.svc.PurgeExpiredSessions(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestUserValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, incident.DefaultThresholds())

	tests := []struct {
		name string
		in   NewUser
	}{
		{"bad email", NewUser{Email: "not-an-email", Name: "X", Password: password, Role: model.RoleStudent}},
		{"display name in email", NewUser{Email: "X <x@y.z>", Name: "X", Password: password, Role: model.RoleStudent}},
		{"short password", NewUser{Email: "x@y.z", Name: "X", Password: "short", Role: model.RoleStudent}},
		{"missing name", NewUser{Email: "x@y.z", Password: password, Role: model.RoleStudent}},
		{"unknown role", NewUser{Email: "x@y.z", Name: "X", Password: password, Role: "pilot"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateUser(ctx, tt.in)
			assert.ErrorIs(t, err, core.ErrInvalidArgument)
		})
	}
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, incident.DefaultThresholds())

	u, err := f.svc.UpdateUser(ctx, f.admin.ID, UserPatch{Name: ptr("Root"), Password: ptr("another-secret")})
	require.NoError(t, err)
	assert.Equal(t, "Root", u.Name)
	assert.Equal(t, model.RoleAdmin, u.Role)

	_, _, err = f.svc.Login(ctx, "admin@tuemi.test", "another-secret")
	require.NoError(t, err)

	_, err = f.svc.UpdateUser(ctx, f.admin.ID, UserPatch{Role: ptr(model.Role("pilot"))})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = f.svc.UpdateUser(ctx, "missing", UserPatch{})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSetSubscription(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, incident.DefaultThresholds())

	u, err := f.svc.Register(ctx, NewUser{Email: "eva@uni.edu", Name: "Eva", Password: password})
	require.NoError(t, err)
	assert.False(t, u.Abonado(f.clock.Now()))

	until := epoch.Add(30 * 24 * time.Hour)
	u, err = f.svc.SetSubscription(ctx, u.ID, true, until)
	require.NoError(t, err)
	assert.True(t, u.Abonado(f.clock.Now()))
	assert.False(t, u.Abonado(until))

	stored, err := f.svc.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, stored.SubscriptionExpiresAt.Equal(until))

	_, err = f.svc.SetSubscription(ctx, u.ID, true, epoch.Add(-time.Hour))
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	u, err = f.svc.SetSubscription(ctx, u.ID, false, until)
	require.NoError(t, err)
	assert.False(t, u.Subscribed)
	assert.True(t, u.SubscriptionExpiresAt.IsZero())

	students, err := f.svc.ListUsers(ctx, model.RoleStudent)
	require.NoError(t, err)
	assert.Len(t, students, 1)
}
