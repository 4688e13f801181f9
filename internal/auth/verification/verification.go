package verification

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"todo_service/internal/config"
	sl "todo_service/internal/lib/logger/sl"
	"todo_service/internal/storage"
)

var (
	ErrRateLimited = errors.New("Please wait before requesting another code")
	ErrBlocked     = errors.New("Too many attempts. Try again later.")
	ErrInvalidCode = errors.New("Invalid verification code")
)

const (
	OutcomeIssued      = "issued"
	OutcomeRateLimited = "rate_limited"
	OutcomeBlocked     = "blocked"
	OutcomeInvalid     = "invalid"
	OutcomeVerified    = "verified"
)

type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

type Recorder interface {
	RecordVerification(outcome string)
}

type Gate struct {
	log     *slog.Logger
	kv      KV
	limits  config.Verification
	metrics Recorder
}

func New(log *slog.Logger, kv KV, limits config.Verification, metrics Recorder) *Gate {
	return &Gate{
		log:     log,
		kv:      kv,
		limits:  limits,
		metrics: metrics,
	}
}

func codeKey(email string) string     { return "verify:" + email }
func cooldownKey(email string) string { return "verify_cooldown:" + email }
func attemptsKey(email string) string { return "verify_attempts:" + email }

// * GenerateCode возвращает случайный шестизначный код
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("verification.GenerateCode: %w", err)
	}

	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// * CanResend true, пока не действует кулдаун
func (g *Gate) CanResend(ctx context.Context, email string) (bool, error) {
	const op = "verification.Gate.CanResend"

	active, err := g.kv.Exists(ctx, cooldownKey(email))
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return !active, nil
}

// * IssueCode сохраняет новый код вместо прежнего.
// Первая отправка при регистрации идет в обход кулдауна и не выставляет его.
func (g *Gate) IssueCode(ctx context.Context, email, code string, firstSend bool) error {
	const op = "verification.Gate.IssueCode"

	if !firstSend {
		ok, err := g.CanResend(ctx, email)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if !ok {
			g.metrics.RecordVerification(OutcomeRateLimited)
			return ErrRateLimited
		}
	}

	if err := g.kv.Del(ctx, codeKey(email)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := g.kv.Set(ctx, codeKey(email), code, g.limits.CodeTTL); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if !firstSend {
		if err := g.kv.Set(ctx, cooldownKey(email), "1", g.limits.ResendCooldown); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	g.metrics.RecordVerification(OutcomeIssued)

	return nil
}

// * CheckCode считает каждую незаблокированную попытку, даже если кода уже нет
func (g *Gate) CheckCode(ctx context.Context, email, candidate string) error {
	const op = "verification.Gate.CheckCode"

	log := g.log.With(slog.String("op", op))

	attempts, err := g.attempts(ctx, email)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if attempts >= g.limits.MaxAttempts {
		g.metrics.RecordVerification(OutcomeBlocked)
		return ErrBlocked
	}

	n, err := g.kv.Incr(ctx, attemptsKey(email))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 1 {
		if err := g.kv.Expire(ctx, attemptsKey(email), g.limits.AttemptWindow); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	stored, err := g.kv.Get(ctx, codeKey(email))
	if err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}

	if stored == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) != 1 {
		g.metrics.RecordVerification(OutcomeInvalid)
		return ErrInvalidCode
	}

	if err := g.kv.Del(ctx, codeKey(email)); err != nil {
		log.Warn("failed to delete used code", sl.Err(err))
	}
	if err := g.kv.Del(ctx, attemptsKey(email)); err != nil {
		log.Warn("failed to reset attempts", sl.Err(err))
	}

	g.metrics.RecordVerification(OutcomeVerified)

	return nil
}

func (g *Gate) attempts(ctx context.Context, email string) (int64, error) {
	raw, err := g.kv.Get(ctx, attemptsKey(email))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return 0, nil
		}

		return 0, err
	}

	var n int64
	if _, err := fmt.Sscan(raw, &n); err != nil {
		return 0, err
	}

	return n, nil
}
