package auth

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapbnb/api/internal/logging"
	"github.com/swapbnb/api/internal/user"
)

type fakeUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*user.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[uuid.UUID]*user.User)}
}

func (f *fakeUserStore) put(u *user.User) *user.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	f.users[u.ID] = u
	return u
}

func (f *fakeUserStore) find(match func(*user.User) bool) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}

func (f *fakeUserStore) Create(_ context.Context, email, passwordHash, token string) (*user.User, error) {
	if _, err := f.GetByEmail(context.Background(), email); err == nil {
		return nil, user.ErrDuplicateEmail
	}
	now := time.Now()
	return f.put(&user.User{Email: email, PasswordHash: passwordHash, EmailVerificationToken: &token, EmailVerificationSentAt: &now}), nil
}

func (f *fakeUserStore) CreateOAuth(_ context.Context, email, name, avatarURL, provider, providerID string) (*user.User, error) {
	return f.put(&user.User{Email: email, Name: name, AvatarURL: avatarURL, EmailVerified: true, OAuthProvider: provider, OAuthProviderID: providerID}), nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*user.User, error) {
	return f.find(func(u *user.User) bool { return u.Email == email })
}

func (f *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	return f.find(func(u *user.User) bool { return u.ID == id })
}

func (f *fakeUserStore) GetByOAuth(_ context.Context, provider, providerID string) (*user.User, error) {
	return f.find(func(u *user.User) bool { return u.OAuthProvider == provider && u.OAuthProviderID == providerID })
}

func (f *fakeUserStore) GetByVerificationToken(_ context.Context, token string) (*user.User, error) {
	return f.find(func(u *user.User) bool {
		return !u.EmailVerified && u.EmailVerificationToken != nil && *u.EmailVerificationToken == token
	})
}

func (f *fakeUserStore) CheckIfTokenAlreadyUsed(_ context.Context, token string) (bool, error) {
	_, err := f.find(func(u *user.User) bool {
		return u.EmailVerified && u.EmailVerificationToken != nil && *u.EmailVerificationToken == token
	})
	return err == nil, nil
}

func (f *fakeUserStore) mutate(id uuid.UUID, fn func(*user.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return user.ErrNotFound
	}
	fn(u)
	return nil
}

func (f *fakeUserStore) MarkEmailAsVerified(_ context.Context, id uuid.UUID) error {
	return f.mutate(id, func(u *user.User) { u.EmailVerified = true })
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	return f.mutate(id, func(u *user.User) { u.PasswordHash = hash })
}

func (f *fakeUserStore) UpdateVerificationToken(_ context.Context, id uuid.UUID, token string) error {
	return f.mutate(id, func(u *user.User) {
		now := time.Now()
		u.EmailVerificationToken = &token
		u.EmailVerificationSentAt = &now
	})
}

func (f *fakeUserStore) LinkOAuth(_ context.Context, id uuid.UUID, provider, providerID string) error {
	return f.mutate(id, func(u *user.User) {
		u.OAuthProvider = provider
		u.OAuthProviderID = providerID
		u.EmailVerified = true
	})
}

type sentEmail struct {
	kind, to, token string
}

type fakeEmail struct {
	sent chan sentEmail
}

func newFakeEmail() *fakeEmail {
	return &fakeEmail{sent: make(chan sentEmail, 8)}
}

func (f *fakeEmail) SendVerificationEmail(_ context.Context, to, token string) error {
	f.sent <- sentEmail{"verify", to, token}
	return nil
}

func (f *fakeEmail) SendPasswordResetEmail(_ context.Context, to, token string) error {
	f.sent <- sentEmail{"reset", to, token}
	return nil
}

func (f *fakeEmail) next(t *testing.T) sentEmail {
	t.Helper()
	select {
	case m := <-f.sent:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("no email sent")
		return sentEmail{}
	}
}

type serviceFixture struct {
	svc    *Service
	users  *fakeUserStore
	emails *fakeEmail
}

func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()
	_, client := newTestRedis(t)
	tokens, err := NewJWTService([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	users := newFakeUserStore()
	emails := newFakeEmail()
	logger := logging.NewWithHandler(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(users, NewRedisRepository(client), NewPasswordResetRepository(client), tokens, emails, logger, 15*time.Minute, 24*time.Hour)
	return serviceFixture{svc: svc, users: users, emails: emails}
}

func TestService_RegisterVerifyLogin(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, "  Ana@Example.com ", "supersecret")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)

	_, err = f.svc.Login(ctx, "ana@example.com", "supersecret")
	assert.ErrorIs(t, err, ErrEmailNotVerified)

	mail := f.emails.next(t)
	assert.Equal(t, "verify", mail.kind)
	require.NoError(t, f.svc.VerifyEmail(ctx, mail.token))
	assert.ErrorIs(t, f.svc.VerifyEmail(ctx, mail.token), ErrEmailAlreadyVerified)

	tokens, err := f.svc.Login(ctx, "ANA@example.com", "supersecret")
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, "Bearer", tokens.TokenType)

	_, err = f.svc.Login(ctx, "ana@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_RegisterValidation(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "", "supersecret")
	assert.ErrorIs(t, err, ErrEmailRequired)
	_, err = f.svc.Register(ctx, "not-an-email", "supersecret")
	assert.ErrorIs(t, err, ErrInvalidEmailFormat)
	_, err = f.svc.Register(ctx, "ana@example.com", "short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	_, err = f.svc.Register(ctx, "ana@example.com", "supersecret")
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, "ana@example.com", "supersecret")
	assert.ErrorIs(t, err, user.ErrDuplicateEmail)
}

func TestService_RefreshRotatesToken(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.users.put(&user.User{Email: "ana@example.com", EmailVerified: true})
	u, err := f.users.GetByEmail(ctx, "ana@example.com")
	require.NoError(t, err)

	first, err := f.svc.generateTokens(ctx, u.ID, u.Email)
	require.NoError(t, err)

	second, err := f.svc.RefreshAccessToken(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = f.svc.RefreshAccessToken(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)

	_, err = f.svc.RefreshAccessToken(ctx, "never-issued")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_PasswordReset(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "ana@example.com", "supersecret")
	require.NoError(t, err)
	verify := f.emails.next(t)
	require.NoError(t, f.svc.VerifyEmail(ctx, verify.token))

	old, err := f.svc.Login(ctx, "ana@example.com", "supersecret")
	require.NoError(t, err)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "ana@example.com"))
	reset := f.emails.next(t)
	assert.Equal(t, "reset", reset.kind)

	require.NoError(t, f.svc.ResetPassword(ctx, reset.token, "brand-new-pass"))
	assert.ErrorIs(t, f.svc.ResetPassword(ctx, reset.token, "another-pass"), ErrPasswordResetTokenNotFound)

	_, err = f.svc.Login(ctx, "ana@example.com", "supersecret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "ana@example.com", "brand-new-pass")
	assert.NoError(t, err)

	_, err = f.svc.RefreshAccessToken(ctx, old.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)
}

func TestService_RequestPasswordResetUnknownEmail(t *testing.T) {
	f := newServiceFixture(t)
	assert.NoError(t, f.svc.RequestPasswordReset(context.Background(), "ghost@example.com"))
	assert.Empty(t, f.emails.sent)
}

func TestService_LoginWithOAuth(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	info := OAuthUserInfo{Provider: "github", ProviderID: "42", Email: "Dev@Example.com", EmailVerified: true, Name: "Dev"}

	_, err := f.svc.LoginWithOAuth(ctx, info)
	require.NoError(t, err)
	created, err := f.users.GetByEmail(ctx, "dev@example.com")
	require.NoError(t, err)
	assert.Equal(t, "github", created.OAuthProvider)

	// second login finds the same account by provider identity
	_, err = f.svc.LoginWithOAuth(ctx, info)
	require.NoError(t, err)
	assert.Len(t, f.users.users, 1)
}

func TestService_LoginWithOAuthLinksExistingAccount(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	existing := f.users.put(&user.User{Email: "ana@example.com", PasswordHash: "x"})

	_, err := f.svc.LoginWithOAuth(ctx, OAuthUserInfo{Provider: "google", ProviderID: "g-1", Email: "ana@example.com", EmailVerified: true})
	require.NoError(t, err)

	linked, err := f.users.GetByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "google", linked.OAuthProvider)
	assert.True(t, linked.EmailVerified)
	assert.Len(t, f.users.users, 1)
}

func TestService_LoginWithOAuthRequiresVerifiedEmail(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.LoginWithOAuth(context.Background(), OAuthUserInfo{Provider: "github", ProviderID: "7", Email: "x@example.com"})
	assert.ErrorIs(t, err, ErrOAuthEmailMissing)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	f := newServiceFixture(t)

	hash, err := f.svc.hashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, f.svc.verifyPassword(hash, "correct horse"))
	assert.False(t, f.svc.verifyPassword(hash, "battery staple"))
	assert.False(t, f.svc.verifyPassword("not-a-hash", "correct horse"))
}
