// Package s3archive copies finalized table closings to an S3 bucket as JSON documents.
package s3archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"restaurant-pos/internal/config"
	"restaurant-pos/internal/domain"
)

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Archiver struct {
	client objectPutter
	bucket string
}

// New builds an archiver from the default AWS credential chain. A custom endpoint
// switches to path-style addressing for MinIO or LocalStack.
func New(ctx context.Context, cfg config.ArchiveConfig) (*Archiver, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithClient(client, cfg.Bucket), nil
}

func NewWithClient(client objectPutter, bucket string) *Archiver {
	return &Archiver{client: client, bucket: bucket}
}

// Key is closings/<yyyy>/<mm>/<closing id>.json, by closing time in UTC.
func Key(c domain.TableClosing) string {
	t := c.ClosedAt.UTC()
	return fmt.Sprintf("closings/%04d/%02d/%s.json", t.Year(), int(t.Month()), c.ID)
}

func (a *Archiver) Archive(ctx context.Context, c domain.TableClosing) error {
	body, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode closing: %w", err)
	}
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(Key(c)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put failed for closing %s: %w", c.ID, err)
	}
	return nil
}
