package config

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

// AnomalyAlertMessage is the payload published for every flagged day.
type AnomalyAlertMessage struct {
	BusinessId    string    `json:"business_id"`
	Series        string    `json:"series"`
	Date          time.Time `json:"date"`
	Amount        string    `json:"amount"`
	WindowFrom    time.Time `json:"window_from"`
	WindowTo      time.Time `json:"window_to"`
	CorrelationId string    `json:"correlation_id"`
}

var (
	pubsubClient   *pubsub.Client
	pubsubClientMu sync.Mutex
)

func init() {
	// Load env from .env
	godotenv.Load()
}

func getPubSubProjectID() string {
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		return v
	}
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v
	}
	return os.Getenv("GCP_PROJECT")
}

// AnomalyAlertTopic is empty when alert publishing is not configured.
func AnomalyAlertTopic() string {
	return os.Getenv("ANOMALY_ALERT_TOPIC")
}

// GetPubSubClient returns the shared Pub/Sub client, creating it on first
// use. It uses Application Default Credentials unless PUBSUB_CREDENTIALS_JSON
// is provided.
func GetPubSubClient(ctx context.Context) (*pubsub.Client, error) {
	pubsubClientMu.Lock()
	defer pubsubClientMu.Unlock()
	if pubsubClient != nil {
		return pubsubClient, nil
	}

	projectID := getPubSubProjectID()
	if projectID == "" {
		return nil, errors.New("PUBSUB_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
	}

	var (
		c   *pubsub.Client
		err error
	)
	if credJSON := os.Getenv("PUBSUB_CREDENTIALS_JSON"); credJSON != "" {
		c, err = pubsub.NewClient(ctx, projectID, option.WithCredentialsJSON([]byte(credJSON)))
	} else {
		c, err = pubsub.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, err
	}
	pubsubClient = c
	log.Printf("pubsub client ready (project_id=%s)", projectID)
	return pubsubClient, nil
}

// PublishAnomalyAlerts publishes msgs to topicName and waits for every
// server acknowledgement, returning the first failure.
func PublishAnomalyAlerts(ctx context.Context, topicName string, msgs []AnomalyAlertMessage) error {
	if topicName == "" {
		return errors.New("topicName is required")
	}
	if len(msgs) == 0 {
		return nil
	}
	client, err := GetPubSubClient(ctx)
	if err != nil {
		return err
	}

	t := client.Topic(topicName)
	defer t.Stop()

	results := make([]*pubsub.PublishResult, 0, len(msgs))
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		results = append(results, t.Publish(ctx, &pubsub.Message{
			Data: data,
			Attributes: map[string]string{
				"business_id": m.BusinessId,
				"series":      m.Series,
			},
		}))
	}
	for _, r := range results {
		if _, err := r.Get(ctx); err != nil {
			return err
		}
	}
	return nil
}
