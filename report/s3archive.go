/*
Copyright (C) 2026  d4 Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Factory describes where archived run results get uploaded. Adapted
// field-for-field from storage/persistence-s3.go's S3Factory, minus the
// schema/column/log object layout that storage doesn't need here: a run
// result is one object per run, not a sharded column store.
type S3Factory struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Endpoint        string // custom endpoint for S3-compatible storage (MinIO, etc.)
	Bucket          string
	Prefix          string
	ForcePathStyle  bool
}

// S3Archive uploads run results under <prefix>/<run-id>.json.lz4, opening
// its AWS client lazily on first use the same way S3Storage.ensureOpen
// defers config loading until the first real operation.
type S3Archive struct {
	factory *S3Factory

	mu     sync.Mutex
	client *s3.Client
	opened bool
}

// NewS3Archive builds an archive writer for factory. No network call is
// made until the first Put or Get.
func NewS3Archive(factory *S3Factory) *S3Archive {
	return &S3Archive{factory: factory}
}

func (a *S3Archive) ensureOpen(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.opened {
		return nil
	}

	var opts []func(*config.LoadOptions) error
	if a.factory.Region != "" {
		opts = append(opts, config.WithRegion(a.factory.Region))
	}
	if a.factory.AccessKeyID != "" && a.factory.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				a.factory.AccessKeyID,
				a.factory.SecretAccessKey,
				"",
			),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("report: loading AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if a.factory.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(a.factory.Endpoint)
		})
	}
	if a.factory.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	a.client = s3.NewFromConfig(cfg, s3Opts...)
	a.opened = true
	return nil
}

func (a *S3Archive) key(runID string) string {
	prefix := a.factory.Prefix
	if prefix == "" {
		return runID + ".json.lz4"
	}
	return prefix + "/" + runID + ".json.lz4"
}

// Put lz4-compresses result's JSON rendering and uploads it under the
// run's ID.
func (a *S3Archive) Put(ctx context.Context, result *Result) error {
	if err := a.ensureOpen(ctx); err != nil {
		return err
	}

	raw, err := result.ToJSON()
	if err != nil {
		return fmt.Errorf("report: marshaling result: %w", err)
	}
	compressed, err := Compress(raw)
	if err != nil {
		return fmt.Errorf("report: compressing result: %w", err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.factory.Bucket),
		Key:    aws.String(a.key(result.RunID.String())),
		Body:   bytes.NewReader(compressed),
	})
	if err != nil {
		return fmt.Errorf("report: uploading %s: %w", result.RunID, err)
	}
	return nil
}

// Get downloads and decompresses a previously archived result.
func (a *S3Archive) Get(ctx context.Context, runID string) (*Result, error) {
	if err := a.ensureOpen(ctx); err != nil {
		return nil, err
	}

	resp, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.factory.Bucket),
		Key:    aws.String(a.key(runID)),
	})
	if err != nil {
		return nil, fmt.Errorf("report: downloading %s: %w", runID, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("report: reading %s: %w", runID, err)
	}
	raw, err := Decompress(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("report: decompressing %s: %w", runID, err)
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("report: parsing %s: %w", runID, err)
	}
	return &result, nil
}
