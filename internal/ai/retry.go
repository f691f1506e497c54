package ai

import (
	"context"
	"errors"
	"time"

	"bedtime-server/internal/models"
)

// RetryNotifier получает пользовательские уведомления о ходе повторов.
// Политика повторов сама по себе чистая, все side-effect'ы идут сюда.
type RetryNotifier interface {
	// NotifyRetry вызывается перед ожиданием, attempt начинается с 1.
	NotifyRetry(attempt int, delay time.Duration)
	// NotifyFailure вызывается один раз при терминальной ошибке.
	NotifyFailure(err error)
}

// NopNotifier отбрасывает все уведомления.
type NopNotifier struct{}

func (NopNotifier) NotifyRetry(int, time.Duration) {}
func (NopNotifier) NotifyFailure(error)            {}

// RetryPolicy задаёт экспоненциальный backoff для rate-limit ошибок.
// Задержка зависит только от номера попытки, не от часов.
type RetryPolicy struct {
	MaxRetries int           // количество повторов после первой попытки
	BaseDelay  time.Duration // задержка перед первым повтором
}

// DefaultRetryPolicy - 3 повтора с задержками 2s, 4s, 8s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: 2 * time.Second}
}

// Delay возвращает BaseDelay * 2^(attempt-1).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(1<<(attempt-1))
}

// ShouldRetry решает, повторять ли после attempt-го провала.
// Повторяются только rate-limit ошибки, всё остальное терминально.
func (p RetryPolicy) ShouldRetry(attempt int, err error) bool {
	return attempt <= p.MaxRetries && errors.Is(err, models.ErrRateLimit)
}

// Executor выполняет операцию с повторами по политике. Счётчик попыток
// живёт внутри одного вызова Execute, конкурентные вызовы независимы.
type Executor struct {
	policy   RetryPolicy
	notifier RetryNotifier
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewExecutor создаёт исполнителя с указанной политикой и нотификатором.
func NewExecutor(policy RetryPolicy, notifier RetryNotifier) *Executor {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Executor{
		policy:   policy,
		notifier: notifier,
		sleep:    sleepCtx,
	}
}

// Execute вызывает op, повторяя её при rate-limit ошибках согласно политике.
// Отмена контекста прерывает ожидание между попытками.
func (e *Executor) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	attempt := 0
	for {
		err := op(ctx)
		if err == nil {
			return nil
		}

		attempt++
		if !e.policy.ShouldRetry(attempt, err) {
			e.notifier.NotifyFailure(err)
			return err
		}

		delay := e.policy.Delay(attempt)
		log.Warn().
			Int("attempt", attempt).
			Dur("delay", delay).
			Err(err).
			Msg("Rate limit от провайдера, ожидаем перед повтором")
		retriesTotal.Inc()
		e.notifier.NotifyRetry(attempt, delay)

		if err := e.sleep(ctx, delay); err != nil {
			e.notifier.NotifyFailure(err)
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
