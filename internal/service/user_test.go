package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/foodgram/backend/internal/models"
	"github.com/foodgram/backend/internal/service"
	"github.com/foodgram/backend/internal/testhelpers"
)

const tinyPNG = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg=="

func newUserService(t *testing.T) (*service.UserService, *gorm.DB) {
	db := testhelpers.SetupTestDatabase(t)
	images := service.NewImageService(service.NewLocalStorage(t.TempDir(), "/media"))
	return service.NewUserService(db, images), db
}

func TestUserList(t *testing.T) {
	svc, db := newUserService(t)
	testhelpers.CreateUser(t, db, "charlie")
	testhelpers.CreateUser(t, db, "alice")
	testhelpers.CreateUser(t, db, "bob")

	users, total, err := svc.List(2, 0)
	require.NoError(t, err)

	assert.EqualValues(t, 3, total)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "bob", users[1].Username)
}

func TestGetByIDMissing(t *testing.T) {
	svc, _ := newUserService(t)

	_, err := svc.GetByID(uuid.New())
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestUpdateAvatar(t *testing.T) {
	svc, db := newUserService(t)
	user := testhelpers.CreateUser(t, db, "alice")
	ctx := context.Background()

	updated, err := svc.UpdateAvatar(ctx, user.ID, tinyPNG)
	require.NoError(t, err)
	assert.Contains(t, updated.Avatar, "/media/avatars/")

	require.NoError(t, svc.DeleteAvatar(ctx, user.ID))

	reloaded, err := svc.GetByID(user.ID)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Avatar)
}

func TestUpdateAvatarRejectsBadPayloads(t *testing.T) {
	svc, db := newUserService(t)
	user := testhelpers.CreateUser(t, db, "alice")
	ctx := context.Background()

	for name, payload := range map[string]string{
		"empty":          "",
		"not a data url": "just-some-text",
		"bad base64":     "data:image/png;base64,@@@@",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.UpdateAvatar(ctx, user.ID, payload)

			var vErr *service.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Contains(t, vErr.Fields, "avatar")
		})
	}
}

func TestSetPassword(t *testing.T) {
	svc, db := newUserService(t)
	user := testhelpers.CreateUser(t, db, "alice")

	t.Run("wrong current password", func(t *testing.T) {
		err := svc.SetPassword(user.ID, "not-the-password", "newpassword1!")

		var vErr *service.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Fields["current_password"], "wrong password")
	})

	t.Run("short new password", func(t *testing.T) {
		err := svc.SetPassword(user.ID, testhelpers.TestPassword, "short")

		var vErr *service.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Fields, "new_password")
	})

	t.Run("success", func(t *testing.T) {
		require.NoError(t, svc.SetPassword(user.ID, testhelpers.TestPassword, "newpassword1!"))

		reloaded, err := svc.GetByID(user.ID)
		require.NoError(t, err)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(reloaded.PasswordHash), []byte("newpassword1!")))
	})
}

func TestSubscribe(t *testing.T) {
	svc, db := newUserService(t)
	follower := testhelpers.CreateUser(t, db, "follower")
	author := testhelpers.CreateUser(t, db, "author")

	t.Run("to yourself", func(t *testing.T) {
		_, err := svc.Subscribe(follower.ID, follower.ID)
		assert.ErrorIs(t, err, service.ErrSelfSubscription)
	})

	t.Run("to a missing author", func(t *testing.T) {
		_, err := svc.Subscribe(follower.ID, uuid.New())
		assert.ErrorIs(t, err, service.ErrUserNotFound)
	})

	t.Run("success then duplicate", func(t *testing.T) {
		got, err := svc.Subscribe(follower.ID, author.ID)
		require.NoError(t, err)
		assert.Equal(t, author.ID, got.ID)

		_, err = svc.Subscribe(follower.ID, author.ID)
		assert.ErrorIs(t, err, service.ErrAlreadySubscribed)
	})
}

func TestUnsubscribe(t *testing.T) {
	svc, db := newUserService(t)
	follower := testhelpers.CreateUser(t, db, "follower")
	author := testhelpers.CreateUser(t, db, "author")

	err := svc.Unsubscribe(follower.ID, author.ID)
	assert.ErrorIs(t, err, service.ErrNotSubscribed)

	_, err = svc.Subscribe(follower.ID, author.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Unsubscribe(follower.ID, author.ID))

	subscribed, err := svc.IsSubscribed(follower.ID, author.ID)
	require.NoError(t, err)
	assert.False(t, subscribed)
}

func TestSubscriptionsOrderedByFollowAge(t *testing.T) {
	svc, db := newUserService(t)
	follower := testhelpers.CreateUser(t, db, "follower")
	first := testhelpers.CreateUser(t, db, "zoe")
	second := testhelpers.CreateUser(t, db, "adam")

	_, err := svc.Subscribe(follower.ID, first.ID)
	require.NoError(t, err)
	_, err = svc.Subscribe(follower.ID, second.ID)
	require.NoError(t, err)

	// Follow order wins over any alphabetical ordering.
	authors, total, err := svc.Subscriptions(follower.ID, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, authors, 2)
	assert.Equal(t, "zoe", authors[0].Username)
	assert.Equal(t, "adam", authors[1].Username)
}

func TestSubscribedSet(t *testing.T) {
	svc, db := newUserService(t)
	follower := testhelpers.CreateUser(t, db, "follower")
	followed := testhelpers.CreateUser(t, db, "followed")
	ignored := testhelpers.CreateUser(t, db, "ignored")

	_, err := svc.Subscribe(follower.ID, followed.ID)
	require.NoError(t, err)

	set, err := svc.SubscribedSet(follower.ID, []uuid.UUID{followed.ID, ignored.ID})
	require.NoError(t, err)
	assert.True(t, set[followed.ID])
	assert.False(t, set[ignored.ID])

	// Anonymous viewers get an empty set.
	set, err = svc.SubscribedSet(uuid.Nil, []uuid.UUID{followed.ID})
	require.NoError(t, err)
	assert.Empty(t, set)
}

func TestSubscriptionSurvivesUserReload(t *testing.T) {
	svc, db := newUserService(t)
	follower := testhelpers.CreateUser(t, db, "follower")
	author := testhelpers.CreateUser(t, db, "author")

	_, err := svc.Subscribe(follower.ID, author.ID)
	require.NoError(t, err)

	var sub models.Subscription
	require.NoError(t, db.Where("user_id = ?", follower.ID).First(&sub).Error)
	assert.Equal(t, author.ID, sub.AuthorID)
	assert.NotEqual(t, uuid.Nil, sub.ID)
}
