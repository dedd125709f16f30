package alerts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/skillflow/internal/db"
)

// Store persists delivered notifications.
type Store interface {
	Create(ctx context.Context, n db.Notification) error
}

// Processor handles notification tasks pulled from Redis.
type Processor struct {
	store Store
	log   *logrus.Logger
}

func NewProcessor(store Store, log *logrus.Logger) *Processor {
	return &Processor{store: store, log: log}
}

// NewServer builds the asynq worker; run it with server.Run(p.Mux()).
func NewServer(redisAddr string, log *logrus.Logger) *asynq.Server {
	return asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			QueueNotifications: 10,
			QueueAlerts:        5,
		},
		Logger: log,
	})
}

func (p *Processor) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskServiceUpdate, p.handleServiceUpdate)
	mux.HandleFunc(TaskStaleService, p.handleStaleService)
	return mux
}

func (p *Processor) handleServiceUpdate(ctx context.Context, t *asynq.Task) error {
	var msg ServiceUpdatePayload
	if err := json.Unmarshal(t.Payload(), &msg); err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	for _, to := range msg.Recipients {
		err := p.store.Create(ctx, db.Notification{
			Account:   to,
			Type:      msg.Kind,
			Title:     msg.Title,
			Body:      msg.Body,
			ServiceID: msg.ServiceID,
		})
		if err != nil {
			return err
		}
	}
	p.log.WithFields(logrus.Fields{"service_id": msg.ServiceID, "kind": msg.Kind, "recipients": len(msg.Recipients)}).Info("notification delivered")
	return nil
}

func (p *Processor) handleStaleService(ctx context.Context, t *asynq.Task) error {
	var msg StaleServicePayload
	if err := json.Unmarshal(t.Payload(), &msg); err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	p.log.WithFields(logrus.Fields{"service_id": msg.ServiceID, "status": msg.Status, "idle_for": msg.IdleFor}).Warn("service is stale")
	for _, to := range msg.Recipients {
		err := p.store.Create(ctx, db.Notification{
			Account:   to,
			Type:      TaskStaleService,
			Title:     "Service needs attention",
			Body:      fmt.Sprintf("Service %d has been %s for %d blocks without progress. Either party may open a dispute.", msg.ServiceID, msg.Status, msg.IdleFor),
			ServiceID: msg.ServiceID,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
