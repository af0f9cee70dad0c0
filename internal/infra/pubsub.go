package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// EventDayEndReportGenerated is the event type published once a Z-Report commits.
const EventDayEndReportGenerated = "day_end_report.generated"

// GCPClientOptions builds the client options shared by the Pub/Sub and
// Storage clients. Empty credentials fall back to Application Default Credentials.
func GCPClientOptions(credentialsJSON string) []option.ClientOption {
	if credentialsJSON == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsJSON([]byte(credentialsJSON))}
}

type reportEvent struct {
	Event       string    `json:"event"`
	ReportID    string    `json:"report_id"`
	PublishedAt time.Time `json:"published_at"`
}

// ReportEvents publishes day-end report events to a Pub/Sub topic for
// downstream consumers (accounting sync, owner dashboards).
type ReportEvents struct {
	client  *pubsub.Client
	topic   *pubsub.Topic
	timeout time.Duration
}

// NewReportEvents connects to topicID and fails if the topic does not exist.
func NewReportEvents(ctx context.Context, projectID, topicID string, opts ...option.ClientOption) (*ReportEvents, error) {
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	topic := client.Topic(topicID)
	ok, err := topic.Exists(ctx)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pubsub topic %q: %w", topicID, err)
	}
	if !ok {
		_ = client.Close()
		return nil, fmt.Errorf("pubsub topic %q does not exist", topicID)
	}
	return &ReportEvents{client: client, topic: topic, timeout: 10 * time.Second}, nil
}

// PublishDayEndReport blocks until the server acknowledges the event.
func (e *ReportEvents) PublishDayEndReport(ctx context.Context, reportID uuid.UUID) error {
	data, err := json.Marshal(reportEvent{
		Event:       EventDayEndReportGenerated,
		ReportID:    reportID.String(),
		PublishedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	res := e.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"event": EventDayEndReportGenerated},
	})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("pubsub publish: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes the client.
func (e *ReportEvents) Close() error {
	e.topic.Stop()
	return e.client.Close()
}
