package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/your-org/facewatch/internal/models"
)

// Producer publishes detection events to NATS so external consumers
// (alerting, archival, dashboards) can react without polling the API.
type Producer struct {
	conn *nats.Conn
}

func NewProducer(url string) (*Producer, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &Producer{conn: conn}, nil
}

// PublishDetection emits one detection event on detections.<camera>.
func (p *Producer) PublishDetection(camera string, ev models.DetectionEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal detection event: %w", err)
	}
	if err := p.conn.Publish("detections."+camera, payload); err != nil {
		return fmt.Errorf("publish detection: %w", err)
	}
	return nil
}

func (p *Producer) Ping() error {
	if !p.conn.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}

func (p *Producer) Close() {
	p.conn.Drain()
}
