// Package blobsync uploads locally cached bulk artifacts to an S3-compatible
// blob store, one remote object per cached file under each scope.
package blobsync

import (
	"context"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jonathanhudak/knowledge-collector/cache"
)

type Config struct {
	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string
	Bucket    string
}

type Client struct {
	client *s3.Client
	bucket string
	region string
	store  *cache.Store
}

func New(cfg Config, store *cache.Store) (*Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, errors.Wrap(err, "load AWS config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &Client{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		store:  store,
	}, nil
}

// EnsureContainer creates the bucket if it does not already exist.
func (c *Client) EnsureContainer(ctx context.Context, name string) error {
	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(name)})
	if err == nil {
		return nil
	}

	_, err = c.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(name),
		CreateBucketConfiguration: &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(c.region),
		},
	})
	if err != nil {
		return errors.Wrapf(err, "create bucket %s", name)
	}

	logrus.WithField("bucket", name).Info("Bucket created")
	return nil
}

// Upload stores a local file under the given remote key.
func (c *Client) Upload(ctx context.Context, localPath, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return errors.Wrapf(err, "open %s", localPath)
	}
	defer f.Close()

	_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return errors.Wrapf(err, "upload %s", key)
	}
	return nil
}

// Sync uploads every cached bulk artifact to the blob store, organized as
// <scope>/<file> remote keys. Training data exports ride along when present.
func (c *Client) Sync(ctx context.Context) (int, error) {
	if err := c.EnsureContainer(ctx, c.bucket); err != nil {
		return 0, err
	}

	scopes, err := c.store.Scopes()
	if err != nil {
		return 0, err
	}

	uploaded := 0
	for _, scope := range scopes {
		videoIDs, err := c.store.ScopeVideos(scope)
		if err != nil {
			return uploaded, err
		}
		for _, videoID := range videoIDs {
			key := cache.Key{Scope: scope, VideoID: videoID, Kind: cache.BulkTranscript}
			remote := scope + "/" + videoID + ".json"
			if err := c.Upload(ctx, c.store.Path(key), remote); err != nil {
				return uploaded, err
			}
			uploaded++
		}

		trainingPath := c.store.TrainingDataPath(scope)
		if _, err := os.Stat(trainingPath); err == nil {
			if err := c.Upload(ctx, trainingPath, scope+"/"+filepath.Base(trainingPath)); err != nil {
				return uploaded, err
			}
			uploaded++
		}
	}

	logrus.WithFields(logrus.Fields{
		"bucket":   c.bucket,
		"uploaded": uploaded,
	}).Info("Cache synchronized to blob store")
	return uploaded, nil
}

// IsCredentialsError reports whether err stems from missing or rejected
// credentials on the sync target.
func IsCredentialsError(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "InvalidAccessKeyId", "SignatureDoesNotMatch", "AccessDenied",
			"MissingAuthenticationToken", "CredentialsNotFound":
			return true
		}
	}
	return false
}
