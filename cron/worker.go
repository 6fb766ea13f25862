package cron

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"servly/config"
	"servly/services/booking"
	"servly/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TypeResponseTimeout = "booking:response_timeout"

type responseTimeoutPayload struct {
	BookingID string `json:"bookingId"`
}

func redisOpts() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// TimeoutScheduler enqueues delayed reopen tasks for targeted
// bookings awaiting a provider response.
type TimeoutScheduler struct {
	client *asynq.Client
}

// NewTimeoutScheduler creates a scheduler backed by the task queue.
func NewTimeoutScheduler() *TimeoutScheduler {
	return &TimeoutScheduler{client: asynq.NewClient(redisOpts())}
}

// ScheduleResponseTimeout schedules a reopen check after the dispatch
// window elapses.
func (s *TimeoutScheduler) ScheduleResponseTimeout(bookingID string, in time.Duration) error {
	payload, err := json.Marshal(responseTimeoutPayload{BookingID: bookingID})
	if err != nil {
		return err
	}
	task := asynq.NewTask(TypeResponseTimeout, payload)
	_, err = s.client.Enqueue(task, asynq.ProcessIn(in))
	return err
}

// Close releases the underlying queue client.
func (s *TimeoutScheduler) Close() error {
	return s.client.Close()
}

// InitTimeoutWorker runs the async worker in background. The handler
// reopens targeted bookings whose provider never responded; bookings
// that were accepted, rejected or cancelled in the meantime are left
// alone.
func InitTimeoutWorker(engine booking.BookingEngine) *asynq.Server {
	logger := utils.GetLogger()

	srv := asynq.NewServer(
		redisOpts(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeResponseTimeout, handleResponseTimeout(engine))

	go func() {
		logger.Info("starting dispatch timeout worker")
		if err := srv.Run(mux); err != nil {
			logger.Error("dispatch timeout worker stopped", zap.Error(err))
		}
	}()

	return srv
}

func handleResponseTimeout(engine booking.BookingEngine) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		logger := utils.GetLogger()

		var payload responseTimeoutPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return err
		}

		reopened, err := engine.ReopenBooking(ctx, payload.BookingID)
		if err != nil {
			var invalid booking.InvalidTransitionError
			if errors.As(err, &invalid) || errors.Is(err, booking.ErrBookingNotFound) {
				// The booking moved on before the window elapsed.
				return nil
			}
			logger.Warn("response timeout reopen failed",
				zap.String("bookingId", payload.BookingID), zap.Error(err))
			return err
		}

		logger.Info("reopened targeted booking to pool",
			zap.String("bookingId", reopened.ID))
		return nil
	}
}
