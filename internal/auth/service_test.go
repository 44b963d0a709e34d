package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/pitwall/internal/model"
	"github.com/hitoshi/pitwall/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn           func(ctx context.Context, id string) (*model.User, error)
	createWithIdentityFn func(ctx context.Context, user *model.User, identity *model.Identity) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	if m.createWithIdentityFn != nil {
		return m.createWithIdentityFn(ctx, user, identity)
	}
	return nil
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, _, _, _ string) error {
	return nil
}

func (m *mockUserRepo) DeleteByID(_ context.Context, _ string) error {
	return nil
}

type mockIdentityRepo struct {
	findByProviderFn func(ctx context.Context, provider, providerAccountID string) (*model.Identity, error)
	updateTokensFn   func(ctx context.Context, id string, identity *model.Identity) error
}

func (m *mockIdentityRepo) FindByProviderAndAccountID(ctx context.Context, provider, providerAccountID string) (*model.Identity, error) {
	if m.findByProviderFn != nil {
		return m.findByProviderFn(ctx, provider, providerAccountID)
	}
	return nil, nil
}

func (m *mockIdentityRepo) UpdateTokens(ctx context.Context, id string, identity *model.Identity) error {
	if m.updateTokensFn != nil {
		return m.updateTokensFn(ctx, id, identity)
	}
	return nil
}

type mockSessionRepo struct {
	createFn         func(ctx context.Context, session *model.Session) error
	findByTokenFn    func(ctx context.Context, token string) (*model.Session, error)
	deleteByTokenFn  func(ctx context.Context, token string) error
	deleteByUserIDFn func(ctx context.Context, userID string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByToken(ctx context.Context, token string) (*model.Session, error) {
	if m.findByTokenFn != nil {
		return m.findByTokenFn(ctx, token)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByToken(ctx context.Context, token string) error {
	if m.deleteByTokenFn != nil {
		return m.deleteByTokenFn(ctx, token)
	}
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if m.deleteByUserIDFn != nil {
		return m.deleteByUserIDFn(ctx, userID)
	}
	return nil
}

type mockVerificationRepo struct {
	createFn           func(ctx context.Context, req *model.VerificationRequest) error
	findByIdentifierFn func(ctx context.Context, identifier string) (*model.VerificationRequest, error)
	deleteByIDFn       func(ctx context.Context, id string) error
}

func (m *mockVerificationRepo) Create(ctx context.Context, req *model.VerificationRequest) error {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return nil
}

func (m *mockVerificationRepo) FindByIdentifier(ctx context.Context, identifier string) (*model.VerificationRequest, error) {
	if m.findByIdentifierFn != nil {
		return m.findByIdentifierFn(ctx, identifier)
	}
	return nil, nil
}

func (m *mockVerificationRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

type mockOAuthProvider struct {
	getLoginURLFn  func(state string) string
	exchangeCodeFn func(ctx context.Context, code string) (*OAuthUserInfo, error)
}

func (m *mockOAuthProvider) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return ""
}

func (m *mockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	if m.exchangeCodeFn != nil {
		return m.exchangeCodeFn(ctx, code)
	}
	return nil, nil
}

type mockAvatarGuard struct {
	validateURLFn func(rawURL string) error
}

func (m *mockAvatarGuard) ValidateURL(rawURL string) error {
	if m.validateURLFn != nil {
		return m.validateURLFn(rawURL)
	}
	return nil
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ repository.IdentityRepository = (*mockIdentityRepo)(nil)
var _ repository.SessionRepository = (*mockSessionRepo)(nil)
var _ repository.VerificationRepository = (*mockVerificationRepo)(nil)
var _ OAuthProvider = (*mockOAuthProvider)(nil)
var _ AvatarURLValidator = (*mockAvatarGuard)(nil)

// --- テスト ---

func TestGetLoginURL_ReturnsOAuthURL(t *testing.T) {
	provider := &mockOAuthProvider{
		getLoginURLFn: func(state string) string {
			return "https://accounts.google.com/o/oauth2/auth?state=" + state
		},
	}
	svc := NewService(provider, nil, nil, nil, nil, &mockAvatarGuard{}, ServiceConfig{SessionMaxAge: 86400})

	url := svc.GetLoginURL("test-state")

	if url == "" {
		t.Fatal("expected non-empty URL")
	}
	expected := "https://accounts.google.com/o/oauth2/auth?state=test-state"
	if url != expected {
		t.Errorf("GetLoginURL() = %q, want %q", url, expected)
	}
}

func TestHandleCallback_NewUser_CreatesUserAndIdentityAndSession(t *testing.T) {
	ctx := context.Background()

	var createdUser *model.User
	var createdIdentity *model.Identity
	var createdSession *model.Session

	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return &OAuthUserInfo{
				ProviderAccountID: "google-user-123",
				Email:             "test@example.com",
				EmailVerified:     true,
				Name:              "Test User",
				AvatarURL:         "https://lh3.googleusercontent.com/a/photo",
				Provider:          "google",
				AccessToken:       "access-token-1",
				RefreshToken:      "refresh-token-1",
			}, nil
		},
	}

	userRepo := &mockUserRepo{
		createWithIdentityFn: func(ctx context.Context, user *model.User, identity *model.Identity) error {
			createdUser = user
			createdIdentity = identity
			return nil
		},
	}

	identityRepo := &mockIdentityRepo{
		findByProviderFn: func(ctx context.Context, provider, providerAccountID string) (*model.Identity, error) {
			// ユーザーが見つからない（新規ユーザー）
			return nil, nil
		},
	}

	sessionRepo := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			createdSession = session
			return nil
		},
	}

	svc := NewService(provider, userRepo, identityRepo, sessionRepo, nil, &mockAvatarGuard{}, ServiceConfig{SessionMaxAge: 86400})

	session, err := svc.HandleCallback(ctx, "auth-code-123", "203.0.113.1", "test-agent")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}

	// セッションが返されること
	if session == nil {
		t.Fatal("expected non-nil session")
	}
	if session.Token == "" {
		t.Error("expected non-empty session token")
	}
	if session.UserID == "" {
		t.Error("expected non-empty user ID in session")
	}

	// ユーザーが作成されること
	if createdUser == nil {
		t.Fatal("expected user to be created")
	}
	if createdUser.Email != "test@example.com" {
		t.Errorf("user email = %q, want %q", createdUser.Email, "test@example.com")
	}
	if createdUser.AvatarURL != "https://lh3.googleusercontent.com/a/photo" {
		t.Errorf("user avatarURL = %q, want %q", createdUser.AvatarURL, "https://lh3.googleusercontent.com/a/photo")
	}
	if !createdUser.EmailVerified {
		t.Error("expected email to be marked verified")
	}

	// identityが作成され、トークンが保存されること
	if createdIdentity == nil {
		t.Fatal("expected identity to be created")
	}
	if createdIdentity.Provider != "google" {
		t.Errorf("identity provider = %q, want %q", createdIdentity.Provider, "google")
	}
	if createdIdentity.ProviderAccountID != "google-user-123" {
		t.Errorf("identity providerAccountID = %q, want %q", createdIdentity.ProviderAccountID, "google-user-123")
	}
	if createdIdentity.AccessToken != "access-token-1" {
		t.Errorf("identity accessToken = %q, want %q", createdIdentity.AccessToken, "access-token-1")
	}

	// セッションが作成されること
	if createdSession == nil {
		t.Fatal("expected session to be created")
	}
	if createdSession.UserID != createdUser.ID {
		t.Errorf("session userID = %q, want %q", createdSession.UserID, createdUser.ID)
	}
	if createdSession.IPAddress != "203.0.113.1" {
		t.Errorf("session ipAddress = %q, want %q", createdSession.IPAddress, "203.0.113.1")
	}
	if createdSession.ExpiresAt.Before(time.Now()) {
		t.Error("session should not be expired")
	}
}

func TestHandleCallback_NewUser_UnsafeAvatarURLDropped(t *testing.T) {
	ctx := context.Background()

	var createdUser *model.User

	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return &OAuthUserInfo{
				ProviderAccountID: "google-user-unsafe",
				Email:             "unsafe@example.com",
				Name:              "Unsafe Avatar",
				AvatarURL:         "https://169.254.169.254/latest/meta-data/",
				Provider:          "google",
			}, nil
		},
	}

	userRepo := &mockUserRepo{
		createWithIdentityFn: func(ctx context.Context, user *model.User, identity *model.Identity) error {
			createdUser = user
			return nil
		},
	}

	guard := &mockAvatarGuard{
		validateURLFn: func(rawURL string) error {
			return errors.New("blocked IP address")
		},
	}

	svc := NewService(provider, userRepo, &mockIdentityRepo{}, &mockSessionRepo{}, nil, guard, ServiceConfig{SessionMaxAge: 86400})

	_, err := svc.HandleCallback(ctx, "auth-code", "", "")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}

	if createdUser == nil {
		t.Fatal("expected user to be created")
	}
	if createdUser.AvatarURL != "" {
		t.Errorf("avatarURL = %q, want empty for unsafe URL", createdUser.AvatarURL)
	}
}

func TestHandleCallback_UnverifiedEmail_RecordsVerificationRequest(t *testing.T) {
	ctx := context.Background()

	var recordedReq *model.VerificationRequest

	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return &OAuthUserInfo{
				ProviderAccountID: "google-user-unverified",
				Email:             "unverified@example.com",
				EmailVerified:     false,
				Name:              "Unverified User",
				Provider:          "google",
			}, nil
		},
	}

	verificationRepo := &mockVerificationRepo{
		createFn: func(ctx context.Context, req *model.VerificationRequest) error {
			recordedReq = req
			return nil
		},
	}

	svc := NewService(provider, &mockUserRepo{}, &mockIdentityRepo{}, &mockSessionRepo{}, verificationRepo, &mockAvatarGuard{}, ServiceConfig{SessionMaxAge: 86400})

	_, err := svc.HandleCallback(ctx, "auth-code-unverified", "", "")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}

	if recordedReq == nil {
		t.Fatal("expected verification request to be recorded for unverified email")
	}
	if recordedReq.Identifier != "unverified@example.com" {
		t.Errorf("identifier = %q, want %q", recordedReq.Identifier, "unverified@example.com")
	}
	if recordedReq.Value == "" {
		t.Error("expected non-empty verification token")
	}
	if !recordedReq.ExpiresAt.After(time.Now()) {
		t.Error("verification request should not be expired")
	}
}

func TestHandleCallback_VerifiedEmail_SkipsVerificationRequest(t *testing.T) {
	ctx := context.Background()

	created := false

	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return &OAuthUserInfo{
				ProviderAccountID: "google-user-verified",
				Email:             "verified@example.com",
				EmailVerified:     true,
				Name:              "Verified User",
				Provider:          "google",
			}, nil
		},
	}

	verificationRepo := &mockVerificationRepo{
		createFn: func(ctx context.Context, req *model.VerificationRequest) error {
			created = true
			return nil
		},
	}

	svc := NewService(provider, &mockUserRepo{}, &mockIdentityRepo{}, &mockSessionRepo{}, verificationRepo, &mockAvatarGuard{}, ServiceConfig{SessionMaxAge: 86400})

	_, err := svc.HandleCallback(ctx, "auth-code-verified", "", "")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}

	if created {
		t.Error("verification request should not be recorded for verified email")
	}
}

func TestHandleCallback_VerificationRecordFailure_DoesNotBlockLogin(t *testing.T) {
	ctx := context.Background()

	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return &OAuthUserInfo{
				ProviderAccountID: "google-user-vfail",
				Email:             "vfail@example.com",
				EmailVerified:     false,
				Name:              "VFail User",
				Provider:          "google",
			}, nil
		},
	}

	verificationRepo := &mockVerificationRepo{
		createFn: func(ctx context.Context, req *model.VerificationRequest) error {
			return errors.New("db error")
		},
	}

	svc := NewService(provider, &mockUserRepo{}, &mockIdentityRepo{}, &mockSessionRepo{}, verificationRepo, &mockAvatarGuard{}, ServiceConfig{SessionMaxAge: 86400})

	session, err := svc.HandleCallback(ctx, "auth-code-vfail", "", "")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}
	if session == nil {
		t.Fatal("expected session despite verification record failure")
	}
}

func TestHandleCallback_ExistingUser_UpdatesTokensAndCreatesSession(t *testing.T) {
	ctx := context.Background()

	existingUserID := "existing-user-id-456"
	var createdSession *model.Session
	var updatedIdentity *model.Identity

	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return &OAuthUserInfo{
				ProviderAccountID: "google-user-789",
				Email:             "existing@example.com",
				Name:              "Existing User",
				Provider:          "google",
				AccessToken:       "fresh-access-token",
			}, nil
		},
	}

	identityRepo := &mockIdentityRepo{
		findByProviderFn: func(ctx context.Context, provider, providerAccountID string) (*model.Identity, error) {
			// 既存ユーザーのidentityが見つかる
			return &model.Identity{
				ID:                "identity-id-1",
				UserID:            existingUserID,
				Provider:          "google",
				ProviderAccountID: "google-user-789",
			}, nil
		},
		updateTokensFn: func(ctx context.Context, id string, identity *model.Identity) error {
			updatedIdentity = identity
			return nil
		},
	}

	sessionRepo := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			createdSession = session
			return nil
		},
	}

	svc := NewService(provider, &mockUserRepo{}, identityRepo, sessionRepo, nil, &mockAvatarGuard{}, ServiceConfig{SessionMaxAge: 86400})

	session, err := svc.HandleCallback(ctx, "auth-code-existing", "", "")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}

	if session == nil {
		t.Fatal("expected non-nil session")
	}
	if session.UserID != existingUserID {
		t.Errorf("session userID = %q, want %q", session.UserID, existingUserID)
	}

	// 既存identityのトークンが更新されること
	if updatedIdentity == nil {
		t.Fatal("expected identity tokens to be updated")
	}
	if updatedIdentity.AccessToken != "fresh-access-token" {
		t.Errorf("accessToken = %q, want %q", updatedIdentity.AccessToken, "fresh-access-token")
	}

	// セッションが作成されること
	if createdSession == nil {
		t.Fatal("expected session to be created")
	}
	if createdSession.UserID != existingUserID {
		t.Errorf("session userID = %q, want %q", createdSession.UserID, existingUserID)
	}
}

func TestHandleCallback_OAuthError_ReturnsError(t *testing.T) {
	ctx := context.Background()

	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return nil, errors.New("oauth exchange failed")
		},
	}

	svc := NewService(provider, nil, nil, nil, nil, &mockAvatarGuard{}, ServiceConfig{SessionMaxAge: 86400})

	_, err := svc.HandleCallback(ctx, "bad-code", "", "")
	if err == nil {
		t.Fatal("expected error from HandleCallback")
	}
}

func TestHandleCallback_UserCreationError_ReturnsError(t *testing.T) {
	ctx := context.Background()

	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return &OAuthUserInfo{
				ProviderAccountID: "google-user-err",
				Email:             "error@example.com",
				Name:              "Error User",
				Provider:          "google",
			}, nil
		},
	}

	identityRepo := &mockIdentityRepo{
		findByProviderFn: func(ctx context.Context, provider, providerAccountID string) (*model.Identity, error) {
			return nil, nil // 新規ユーザー
		},
	}

	userRepo := &mockUserRepo{
		createWithIdentityFn: func(ctx context.Context, user *model.User, identity *model.Identity) error {
			return errors.New("db error")
		},
	}

	svc := NewService(provider, userRepo, identityRepo, nil, nil, &mockAvatarGuard{}, ServiceConfig{SessionMaxAge: 86400})

	_, err := svc.HandleCallback(ctx, "auth-code-err", "", "")
	if err == nil {
		t.Fatal("expected error from HandleCallback")
	}
}

func TestLogout_DeletesSession(t *testing.T) {
	ctx := context.Background()

	var deletedToken string

	sessionRepo := &mockSessionRepo{
		deleteByTokenFn: func(ctx context.Context, token string) error {
			deletedToken = token
			return nil
		},
	}

	svc := NewService(nil, nil, nil, sessionRepo, nil, &mockAvatarGuard{}, ServiceConfig{SessionMaxAge: 86400})

	err := svc.Logout(ctx, "token-to-delete")
	if err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	if deletedToken != "token-to-delete" {
		t.Errorf("deleted token = %q, want %q", deletedToken, "token-to-delete")
	}
}

func TestLogout_EmptyToken_ReturnsError(t *testing.T) {
	ctx := context.Background()

	svc := NewService(nil, nil, nil, nil, nil, &mockAvatarGuard{}, ServiceConfig{SessionMaxAge: 86400})

	err := svc.Logout(ctx, "")
	if err == nil {
		t.Fatal("expected error for empty session token")
	}
}

func TestGetCurrentUser_ValidSession_ReturnsUser(t *testing.T) {
	ctx := context.Background()

	userID := "user-id-123"

	sessionRepo := &mockSessionRepo{
		findByTokenFn: func(ctx context.Context, token string) (*model.Session, error) {
			return &model.Session{
				ID:        "session-valid",
				UserID:    userID,
				Token:     token,
				ExpiresAt: time.Now().Add(1 * time.Hour),
			}, nil
		},
	}

	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{
				ID:    userID,
				Email: "user@example.com",
				Name:  "Test User",
			}, nil
		},
	}

	svc := NewService(nil, userRepo, nil, sessionRepo, nil, &mockAvatarGuard{}, ServiceConfig{SessionMaxAge: 86400})

	user, err := svc.GetCurrentUser(ctx, "valid-token")
	if err != nil {
		t.Fatalf("GetCurrentUser() error = %v", err)
	}

	if user == nil {
		t.Fatal("expected non-nil user")
	}
	if user.ID != userID {
		t.Errorf("user ID = %q, want %q", user.ID, userID)
	}
}

func TestGetCurrentUser_ExpiredSession_ReturnsError(t *testing.T) {
	ctx := context.Background()

	sessionRepo := &mockSessionRepo{
		findByTokenFn: func(ctx context.Context, token string) (*model.Session, error) {
			// 期限切れセッション -> リポジトリはnilを返す
			return nil, nil
		},
	}

	svc := NewService(nil, nil, nil, sessionRepo, nil, &mockAvatarGuard{}, ServiceConfig{SessionMaxAge: 86400})

	_, err := svc.GetCurrentUser(ctx, "expired-token")
	if err == nil {
		t.Fatal("expected error for expired session")
	}
}

func TestGetCurrentUser_EmptyToken_ReturnsError(t *testing.T) {
	ctx := context.Background()

	svc := NewService(nil, nil, nil, nil, nil, &mockAvatarGuard{}, ServiceConfig{SessionMaxAge: 86400})

	_, err := svc.GetCurrentUser(ctx, "")
	if err == nil {
		t.Fatal("expected error for empty session token")
	}
}
