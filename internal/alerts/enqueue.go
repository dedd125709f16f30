package alerts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/sudo-init-do/skillflow/internal/events"
)

var titles = map[events.Kind]string{
	events.ApplicationSubmitted:     "New application",
	events.ApplicationWithdrawn:     "Application withdrawn",
	events.SuggestionAccepted:       "New suggested provider",
	events.ProviderSelected:         "You have been selected",
	events.SessionStarted:           "Session started",
	events.WorkMarkedCompleted:      "Work delivered, please confirm",
	events.ServiceCompleted:         "Payment released",
	events.ProviderRated:            "You received a rating",
	events.DisputeOpened:            "Dispute opened",
	events.DisputeResolved:          "Dispute resolved",
	events.ServiceCancelled:         "Service cancelled",
	events.ServiceEmergencyCanceled: "Service cancelled by the platform",
}

// Enqueuer is the subset of *asynq.Client the notifier needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Notifier turns engine events into notification tasks.
type Notifier struct {
	client Enqueuer
	admins []string
}

func NewNotifier(client Enqueuer, admins []string) *Notifier {
	return &Notifier{client: client, admins: admins}
}

// Publish enqueues the task for e, if the event warrants one.
func (n *Notifier) Publish(ctx context.Context, e events.Event) error {
	task, queue, err := n.BuildTask(e)
	if err != nil || task == nil {
		return err
	}
	_, err = n.client.EnqueueContext(ctx, task, asynq.Queue(queue), asynq.MaxRetry(5))
	return err
}

// BuildTask returns nil when nobody needs to hear about e.
func (n *Notifier) BuildTask(e events.Event) (*asynq.Task, string, error) {
	if e.Kind == events.ServiceStale {
		status, _ := e.Payload["status"].(string)
		idle, _ := e.Payload["idle_for"].(uint64)
		b, err := json.Marshal(StaleServicePayload{
			ServiceID:  e.ServiceID,
			Recipients: append(append([]string(nil), n.admins...), e.Parties...),
			Status:     status,
			IdleFor:    idle,
			At:         e.At,
		})
		if err != nil {
			return nil, "", err
		}
		return asynq.NewTask(TaskStaleService, b), QueueAlerts, nil
	}

	title, ok := titles[e.Kind]
	if !ok {
		return nil, "", nil
	}
	var recipients []string
	for _, p := range e.Parties {
		if p != e.Actor {
			recipients = append(recipients, p)
		}
	}
	if len(recipients) == 0 {
		return nil, "", nil
	}
	b, err := json.Marshal(ServiceUpdatePayload{
		EventID:    e.ID,
		Seq:        e.Seq,
		Kind:       string(e.Kind),
		ServiceID:  e.ServiceID,
		Recipients: recipients,
		Title:      title,
		Body:       fmt.Sprintf("Service %d: %s by %s.", e.ServiceID, e.Kind, e.Actor),
		At:         e.At,
	})
	if err != nil {
		return nil, "", err
	}
	return asynq.NewTask(TaskServiceUpdate, b), QueueNotifications, nil
}
