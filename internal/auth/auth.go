package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"todo_service/internal/auth/verification"
	"todo_service/internal/email"
	"todo_service/internal/lib/jwt"
	sl "todo_service/internal/lib/logger/sl"
	"todo_service/internal/models"
	"todo_service/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrSessionExpired     = errors.New("session expired or invalid")

	ErrRateLimited = verification.ErrRateLimited
	ErrBlocked     = verification.ErrBlocked
	ErrInvalidCode = verification.ErrInvalidCode
)

// * State: состояние учетной записи, выводится из isVerified
type State int

const (
	StateUnregistered State = iota
	StatePendingVerification
	StateVerified
)

func (s State) String() string {
	switch s {
	case StatePendingVerification:
		return "pending_verification"
	case StateVerified:
		return "verified"
	default:
		return "unregistered"
	}
}

func StateOf(user models.User) State {
	if user.IsVerified {
		return StateVerified
	}

	return StatePendingVerification
}

type UserSaver interface {
	SaveUser(ctx context.Context, user models.User) (int64, error)
	SetEmailVerified(ctx context.Context, userID int64) error
	DeleteUser(ctx context.Context, userID int64) error
}

type UserProvider interface {
	User(ctx context.Context, email string) (models.User, error)
	Users(ctx context.Context) ([]models.User, error)
}

type SessionManager interface {
	Issue(ctx context.Context, userID int64, token string) error
	Validate(ctx context.Context, userID int64, token string) (bool, error)
	Revoke(ctx context.Context, userID int64) error
}

type CodeGate interface {
	IssueCode(ctx context.Context, email, code string, firstSend bool) error
	CheckCode(ctx context.Context, email, candidate string) error
}

type UserCache interface {
	ReadAll(ctx context.Context) ([]models.PublicUser, error)
	Invalidate(ctx context.Context) error
}

// * TodoCache сбрасывается при удалении пользователя, задачи удаляются каскадно
type TodoCache interface {
	Invalidate(ctx context.Context) error
}

type Publisher interface {
	SendMessage(ctx context.Context, msg models.EmailMessage) error
}

type Auth struct {
	log         *slog.Logger
	usrSaver    UserSaver
	usrProvider UserProvider
	sessions    SessionManager
	codes       CodeGate
	users       UserCache
	todos       TodoCache
	publisher   Publisher
	tokenSecret string
	tokenTTL    time.Duration
}

func New(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	sessions SessionManager,
	codes CodeGate,
	users UserCache,
	todos TodoCache,
	publisher Publisher,
	tokenSecret string,
	tokenTTL time.Duration,
) *Auth {
	return &Auth{
		log:         log,
		usrSaver:    userSaver,
		usrProvider: userProvider,
		sessions:    sessions,
		codes:       codes,
		users:       users,
		todos:       todos,
		publisher:   publisher,
		tokenSecret: tokenSecret,
		tokenTTL:    tokenTTL,
	}
}

// * PublicUsersLoader читает пользователей из хранилища для кеша users:all
func PublicUsersLoader(p UserProvider) func(ctx context.Context) ([]models.PublicUser, error) {
	return func(ctx context.Context) ([]models.PublicUser, error) {
		users, err := p.Users(ctx)
		if err != nil {
			return nil, err
		}

		public := make([]models.PublicUser, 0, len(users))
		for _, u := range users {
			public = append(public, u.Public())
		}

		return public, nil
	}
}

// * Register создает неподтвержденного пользователя и отправляет код.
// Ошибка отправки письма только логируется.
func (a *Auth) Register(ctx context.Context, reg models.Registration) (State, error) {
	const op = "auth.Register"

	log := a.log.With(slog.String("op", op))

	log.Info("Registering new user")

	if _, err := a.usrProvider.User(ctx, reg.Email); err == nil {
		log.Warn("User already exists")
		return StateUnregistered, ErrUserExists
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		log.Error("failed to get user", sl.Err(err))
		return StateUnregistered, fmt.Errorf("%s: %w", op, err)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return StateUnregistered, fmt.Errorf("%s: %w", op, err)
	}

	id, err := a.usrSaver.SaveUser(ctx, models.User{
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
		Email:     reg.Email,
		PassHash:  passHash,
		Role:      models.RoleUser,
	})
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("User already exists")
			return StateUnregistered, ErrUserExists
		}

		log.Error("Failed to save user", sl.Err(err))
		return StateUnregistered, fmt.Errorf("%s: %w", op, err)
	}

	a.invalidateUsers(ctx, log)

	code, err := verification.GenerateCode()
	if err != nil {
		return StateUnregistered, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.codes.IssueCode(ctx, reg.Email, code, true); err != nil {
		log.Error("failed to store verification code", sl.Err(err))
		return StateUnregistered, fmt.Errorf("%s: %w", op, err)
	}

	a.enqueue(ctx, log, func() (models.EmailMessage, error) {
		return email.VerificationEmail(reg.Email, reg.LastName, code)
	})

	log.Info("User registered", slog.Int64("id", id))

	return StatePendingVerification, nil
}

// * ResendCode выдает новый код с учетом кулдауна
func (a *Auth) ResendCode(ctx context.Context, userEmail string) error {
	const op = "auth.ResendCode"

	log := a.log.With(slog.String("op", op))

	code, err := verification.GenerateCode()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.codes.IssueCode(ctx, userEmail, code, false); err != nil {
		if errors.Is(err, ErrRateLimited) {
			log.Info("resend is on cooldown")
			return ErrRateLimited
		}

		log.Error("failed to store verification code", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	a.enqueue(ctx, log, func() (models.EmailMessage, error) {
		return email.ResendEmail(userEmail, code)
	})

	return nil
}

// * Verify переводит учетную запись в Verified при верном коде
func (a *Auth) Verify(ctx context.Context, userEmail, code string) (State, error) {
	const op = "auth.Verify"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.User(ctx, userEmail)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return StateUnregistered, ErrUserNotFound
		}

		log.Error("failed to get user", sl.Err(err))
		return StateUnregistered, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.codes.CheckCode(ctx, userEmail, code); err != nil {
		if errors.Is(err, ErrBlocked) || errors.Is(err, ErrInvalidCode) {
			log.Info("verification rejected", slog.Int64("uid", user.ID), sl.Err(err))
			return StateOf(user), err
		}

		log.Error("failed to check code", sl.Err(err))
		return StateOf(user), fmt.Errorf("%s: %w", op, err)
	}

	if err := a.usrSaver.SetEmailVerified(ctx, user.ID); err != nil {
		log.Error("failed to update status in database", sl.Err(err))
		return StateOf(user), fmt.Errorf("%s: %w", op, err)
	}

	a.invalidateUsers(ctx, log)

	a.enqueue(ctx, log, func() (models.EmailMessage, error) {
		return email.VerifiedEmail(user.Email, user.LastName)
	})

	log.Info("user verified", slog.Int64("uid", user.ID))

	return StateVerified, nil
}

// * Login проверяет учетные данные, выпускает токен и перезаписывает сессию
func (a *Auth) Login(ctx context.Context, userEmail, password string) (string, models.PublicUser, error) {
	const op = "auth.Login"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.User(ctx, userEmail)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			return "", models.PublicUser{}, ErrUserNotFound
		}

		log.Error("failed to get user", sl.Err(err))
		return "", models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		log.Info("invalid credentials", sl.Err(err))
		return "", models.PublicUser{}, ErrInvalidCredentials
	}

	token, err := jwt.NewToken(user, a.tokenSecret, a.tokenTTL)
	if err != nil {
		log.Error("failed to generate token", sl.Err(err))
		return "", models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.sessions.Issue(ctx, user.ID, token); err != nil {
		log.Error("failed to save session", sl.Err(err))
		return "", models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in successfully", slog.Int64("uid", user.ID))

	return token, user.Public(), nil
}

// * Authenticate проверяет подпись токена и что он совпадает с активной сессией
func (a *Auth) Authenticate(ctx context.Context, token string) (*jwt.Claims, error) {
	const op = "auth.Authenticate"

	claims, err := jwt.ParseToken(token, a.tokenSecret)
	if err != nil {
		return nil, ErrInvalidToken
	}

	ok, err := a.sessions.Validate(ctx, claims.ID, token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return nil, ErrSessionExpired
	}

	return claims, nil
}

func (a *Auth) Logout(ctx context.Context, userID int64) error {
	const op = "auth.Logout"

	if err := a.sessions.Revoke(ctx, userID); err != nil {
		a.log.Error("failed to delete session", slog.String("op", op), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	a.log.Info("logout successful", slog.String("op", op), slog.Int64("uid", userID))

	return nil
}

func (a *Auth) ListUsers(ctx context.Context) ([]models.PublicUser, error) {
	const op = "auth.ListUsers"

	users, err := a.users.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}

// * DeleteUser удаляет пользователя вместе с задачами
func (a *Auth) DeleteUser(ctx context.Context, userID int64) error {
	const op = "auth.DeleteUser"

	log := a.log.With(slog.String("op", op))

	if err := a.usrSaver.DeleteUser(ctx, userID); err != nil {
		log.Error("failed to delete user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	a.invalidateUsers(ctx, log)

	if err := a.todos.Invalidate(ctx); err != nil {
		log.Error("failed to invalidate todos cache", sl.Err(err))
	}

	return nil
}

func (a *Auth) invalidateUsers(ctx context.Context, log *slog.Logger) {
	if err := a.users.Invalidate(ctx); err != nil {
		log.Error("failed to invalidate users cache", sl.Err(err))
	}
}

func (a *Auth) enqueue(ctx context.Context, log *slog.Logger, build func() (models.EmailMessage, error)) {
	msg, err := build()
	if err != nil {
		log.Error("failed to build email", sl.Err(err))
		return
	}

	if err := a.publisher.SendMessage(ctx, msg); err != nil {
		log.Error("failed to enqueue email", slog.String("subject", msg.Subject), sl.Err(err))
	}
}
