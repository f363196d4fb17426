package ticket

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/BruksfildServices01/medease/internal/models"
)

type ArchiveConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	URLTTL          time.Duration
}

// Archiver stores rendered tickets and hands out time-limited download
// links.
type Archiver struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	ttl     time.Duration
}

func NewArchiver(cfg ArchiveConfig) *Archiver {
	opts := s3.Options{
		Region: cfg.Region,
		Credentials: aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}
	client := s3.New(opts)

	ttl := cfg.URLTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Archiver{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		ttl:     ttl,
	}
}

// Key is the object key of an appointment's ticket.
func Key(ap models.Appointment, f Format) string {
	return fmt.Sprintf("tickets/%s/%s-%d.%s", ap.UserID, ap.TicketNo, ap.ID, f.Ext())
}

// Archive uploads the rendered ticket and returns a presigned GET URL.
func (a *Archiver) Archive(ctx context.Context, ap models.Appointment, f Format) (string, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, Render(ap), f); err != nil {
		return "", err
	}

	key := Key(ap, f)
	if _, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(f.ContentType()),
	}); err != nil {
		return "", fmt.Errorf("upload ticket: %w", err)
	}

	req, err := a.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(a.ttl))
	if err != nil {
		return "", fmt.Errorf("presign ticket: %w", err)
	}
	return req.URL, nil
}
