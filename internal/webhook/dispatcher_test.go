package webhook

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/coach/internal/domain"
)

type stubSyncer struct {
	synced  []domain.User
	updated []domain.User
	err     error
}

func (s *stubSyncer) SyncUser(_ context.Context, user domain.User) error {
	s.synced = append(s.synced, user)
	return s.err
}

func (s *stubSyncer) UpdateUser(_ context.Context, user domain.User) error {
	s.updated = append(s.updated, user)
	return s.err
}

func TestDispatchCreatedInvokesSync(t *testing.T) {
	syncer := &stubSyncer{}
	dispatcher := NewDispatcher(syncer)

	err := dispatcher.Dispatch(context.Background(), &Event{
		Type: EventUserCreated,
		Data: UserPayload{
			ID:             "user_1",
			FirstName:      "Jane",
			LastName:       "Doe",
			ImageURL:       "https://img.example/1.png",
			EmailAddresses: []EmailAddress{{EmailAddress: "jane@example.com"}, {EmailAddress: "alt@example.com"}},
		},
	})
	require.NoError(t, err)
	require.Len(t, syncer.synced, 1)
	require.Empty(t, syncer.updated)

	user := syncer.synced[0]
	require.Equal(t, "user_1", user.ClerkID)
	require.Equal(t, "jane@example.com", user.Email)
	require.Equal(t, "Jane Doe", user.Name)
	require.Equal(t, "https://img.example/1.png", user.Image)
}

func TestDispatchUpdatedInvokesUpdate(t *testing.T) {
	syncer := &stubSyncer{}
	dispatcher := NewDispatcher(syncer)

	err := dispatcher.Dispatch(context.Background(), &Event{
		Type: EventUserUpdated,
		Data: UserPayload{
			ID:             "user_2",
			FirstName:      "Sam",
			EmailAddresses: []EmailAddress{{EmailAddress: "sam@example.com"}},
		},
	})
	require.NoError(t, err)
	require.Empty(t, syncer.synced)
	require.Len(t, syncer.updated, 1)
	require.Equal(t, "Sam", syncer.updated[0].Name)
}

func TestDispatchIgnoresUnknownEventKinds(t *testing.T) {
	syncer := &stubSyncer{err: errors.New("should not be called")}
	dispatcher := NewDispatcher(syncer)

	err := dispatcher.Dispatch(context.Background(), &Event{Type: "session.created"})
	require.NoError(t, err)
	require.Empty(t, syncer.synced)
	require.Empty(t, syncer.updated)
}

func TestDispatchFailsOnEmptyEmailList(t *testing.T) {
	syncer := &stubSyncer{}
	dispatcher := NewDispatcher(syncer)

	err := dispatcher.Dispatch(context.Background(), &Event{
		Type: EventUserCreated,
		Data: UserPayload{ID: "user_3"},
	})
	require.ErrorIs(t, err, ErrNoEmailAddress)
	require.Empty(t, syncer.synced)
}

func TestProjectUserNameHandlesMissingParts(t *testing.T) {
	cases := []struct {
		first, last, want string
	}{
		{"Jane", "Doe", "Jane Doe"},
		{"Jane", "", "Jane"},
		{"", "Doe", "Doe"},
		{"", "", ""},
	}

	for _, tc := range cases {
		user, err := projectUser(UserPayload{
			ID:             "u",
			FirstName:      tc.first,
			LastName:       tc.last,
			EmailAddresses: []EmailAddress{{EmailAddress: "a@b.c"}},
		})
		require.NoError(t, err)
		require.Equal(t, tc.want, user.Name)
	}
}
