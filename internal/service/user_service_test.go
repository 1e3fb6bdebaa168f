package service

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/gustavohdab/rettiwt-backend/internal/fanout"
	"github.com/gustavohdab/rettiwt-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterHashesPasswordAndNormalizesEmail(t *testing.T) {
	var created *models.User
	users := &userRepoStub{
		createFn: func(_ context.Context, u *models.User) error {
			u.ID = 1
			created = u
			return nil
		},
	}
	svc := NewUserService(users, nil)

	user, err := svc.Register(context.Background(), RegisterInput{
		Username: "newuser",
		Email:    "New.User@GMAIL.com",
		Password: "sup3rsecret",
		Name:     "New User",
	})
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.Equal(t, "newuser@gmail.com", created.Email)
	assert.NotEqual(t, "sup3rsecret", created.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.Password), []byte("sup3rsecret")))
	assert.Equal(t, models.RoleUser, user.Role)
	assert.True(t, user.IsActive)
}

func TestRegisterValidation(t *testing.T) {
	svc := NewUserService(&userRepoStub{}, nil)

	cases := []struct {
		name string
		in   RegisterInput
	}{
		{"short username", RegisterInput{Username: "ab", Email: "a@b.com", Password: "sup3rsecret"}},
		{"reserved username", RegisterInput{Username: "admin", Email: "a@b.com", Password: "sup3rsecret"}},
		{"bad email", RegisterInput{Username: "validname", Email: "not-an-email", Password: "sup3rsecret"}},
		{"weak password", RegisterInput{Username: "validname", Email: "a@b.com", Password: "short"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.in)
			assertAppErrorCode(t, err, models.CodeValidation)
		})
	}
}

func TestRegisterConflicts(t *testing.T) {
	users := &userRepoStub{
		getByUsernameFn: func(_ context.Context, username string) (*models.User, error) {
			if username == "taken" {
				return &models.User{ID: 2, Username: "taken"}, nil
			}
			return nil, nil
		},
		getByEmailFn: func(_ context.Context, email string) (*models.User, error) {
			if email == "used@example.com" {
				return &models.User{ID: 3}, nil
			}
			return nil, nil
		},
	}
	svc := NewUserService(users, nil)

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "taken", Email: "fresh@example.com", Password: "sup3rsecret",
	})
	assertAppErrorCode(t, err, models.CodeConflict)

	_, err = svc.Register(context.Background(), RegisterInput{
		Username: "freshname", Email: "used@example.com", Password: "sup3rsecret",
	})
	assertAppErrorCode(t, err, models.CodeConflict)
}

func TestAuthenticate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("sup3rsecret"), bcrypt.MinCost)
	require.NoError(t, err)

	account := &models.User{ID: 1, Email: "a@b.com", Password: string(hash), IsActive: true}
	users := &userRepoStub{
		getByEmailFn: func(_ context.Context, email string) (*models.User, error) {
			if email == account.Email {
				u := *account
				return &u, nil
			}
			return nil, nil
		},
	}
	svc := NewUserService(users, nil)

	got, err := svc.Authenticate(context.Background(), "a@b.com", "sup3rsecret")
	require.NoError(t, err)
	assert.Equal(t, uint(1), got.ID)

	_, err = svc.Authenticate(context.Background(), "a@b.com", "wrongpass1")
	assertAppErrorCode(t, err, models.CodeAuthentication)

	_, err = svc.Authenticate(context.Background(), "nobody@b.com", "sup3rsecret")
	assertAppErrorCode(t, err, models.CodeAuthentication)

	// Deactivated accounts fail the same way as bad credentials.
	account.IsActive = false
	_, err = svc.Authenticate(context.Background(), "a@b.com", "sup3rsecret")
	assertAppErrorCode(t, err, models.CodeAuthentication)
}

func TestUpdateProfilePartial(t *testing.T) {
	current := &models.User{ID: 1, Name: "Old Name", Bio: "old bio", Location: "somewhere"}
	var saved *models.User
	users := &userRepoStub{
		getByIDFn: func(context.Context, uint) (*models.User, error) {
			u := *current
			return &u, nil
		},
		updateFn: func(_ context.Context, u *models.User) error {
			saved = u
			return nil
		},
	}
	svc := NewUserService(users, nil)

	newBio := "new bio"
	empty := ""
	_, err := svc.UpdateProfile(context.Background(), 1, UpdateProfileInput{
		Bio:      &newBio,
		Location: &empty,
	})
	require.NoError(t, err)
	require.NotNil(t, saved)

	// Nil fields stay, set fields move, empty strings clear.
	assert.Equal(t, "Old Name", saved.Name)
	assert.Equal(t, "new bio", saved.Bio)
	assert.Equal(t, "", saved.Location)
}

func TestUpdateProfileFieldLimits(t *testing.T) {
	svc := NewUserService(&userRepoStub{}, nil)

	tooLong := string(make([]rune, 200))
	_, err := svc.UpdateProfile(context.Background(), 1, UpdateProfileInput{Bio: &tooLong})
	assertAppErrorCode(t, err, models.CodeValidation)
}

func TestFollowSelfRejected(t *testing.T) {
	users := &userRepoStub{
		getByUsernameFn: func(_ context.Context, username string) (*models.User, error) {
			return &models.User{ID: 1, Username: username}, nil
		},
	}
	svc := NewUserService(users, nil)

	_, err := svc.Follow(context.Background(), 1, "myself")
	assertAppErrorCode(t, err, models.CodeInvalidOperation)

	_, err = svc.Unfollow(context.Background(), 1, "myself")
	assertAppErrorCode(t, err, models.CodeInvalidOperation)
}

func TestFollowEmitsEvent(t *testing.T) {
	users := &userRepoStub{
		getByUsernameFn: func(_ context.Context, username string) (*models.User, error) {
			return &models.User{ID: 2, Username: username}, nil
		},
		getProfileFn: func(_ context.Context, username string, _ uint) (*models.User, error) {
			return &models.User{ID: 2, Username: username, FollowedByViewer: true}, nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Username: "actor"}, nil
		},
	}
	sink := &sinkStub{}
	svc := NewUserService(users, sink)

	target, err := svc.Follow(context.Background(), 1, "target")
	require.NoError(t, err)
	assert.True(t, target.FollowedByViewer)

	events := sink.all()
	require.Len(t, events, 1)
	followed, ok := events[0].(fanout.Followed)
	require.True(t, ok)
	assert.Equal(t, uint(1), followed.Actor.ID)
	assert.Equal(t, uint(2), followed.Target.ID)
}

func TestFollowUnknownTarget(t *testing.T) {
	svc := NewUserService(&userRepoStub{}, nil)

	_, err := svc.Follow(context.Background(), 1, "ghost")
	assertAppErrorCode(t, err, models.CodeNotFound)
}

func TestFollowDuplicateSurfacesAlreadyDone(t *testing.T) {
	users := &userRepoStub{
		getByUsernameFn: func(_ context.Context, username string) (*models.User, error) {
			return &models.User{ID: 2, Username: username}, nil
		},
		followFn: func(context.Context, uint, uint) error {
			return models.NewAlreadyDoneError("already following this user")
		},
	}
	sink := &sinkStub{}
	svc := NewUserService(users, sink)

	_, err := svc.Follow(context.Background(), 1, "target")
	assertAppErrorCode(t, err, models.CodeAlreadyDone)
	assert.Empty(t, sink.all())
}
