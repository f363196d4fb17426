package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	nats "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/medease/internal/models"
)

type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Write(ev Event) error {
	s.logger.Info().
		Str("user_id", ev.UserID).
		Str("action", ev.Action).
		Str("entity", ev.Entity).
		Str("entity_id", ev.EntityID).
		Str("metadata", metadataJSON(ev.Metadata)).
		Time("at", ev.At).
		Msg("audit")
	return nil
}

// GormSink stores events in the audit_logs table of the selfhosted schema.
type GormSink struct {
	db *gorm.DB
}

func NewGormSink(db *gorm.DB) *GormSink {
	return &GormSink{db: db}
}

func (s *GormSink) Write(ev Event) error {
	row := models.AuditLog{
		UserID:    ev.UserID,
		Action:    ev.Action,
		Entity:    ev.Entity,
		EntityID:  ev.EntityID,
		Metadata:  metadataJSON(ev.Metadata),
		CreatedAt: ev.At,
	}
	return s.db.Create(&row).Error
}

type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes each event as JSON on one subject.
type NATSSink struct {
	conn    publisher
	subject string
}

func NewNATSSink(conn publisher, subject string) *NATSSink {
	return &NATSSink{conn: conn, subject: subject}
}

func (s *NATSSink) Write(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := s.conn.Publish(s.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", s.subject, err)
	}
	return nil
}

// ConnectNATS retries the initial connection for a few seconds.
func ConnectNATS(ctx context.Context, url string, logger zerolog.Logger) (*nats.Conn, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = 5 * time.Second

	var nc *nats.Conn
	op := func() error {
		conn, err := nats.Connect(url, nats.Name("medease"))
		if err != nil {
			logger.Warn().Err(err).Msg("nats not ready")
			return err
		}
		nc = conn
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return nc, nil
}
