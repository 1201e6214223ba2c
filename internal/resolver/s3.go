package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/getnara/unstruct/internal/domain"
)

// resolveS3 fetches an asset from a customer-owned S3 bucket using the
// credentials stored on the asset record.
func (r *AssetResolver) resolveS3(ctx context.Context, asset *domain.Asset, localPath string) error {
	if asset.Bucket == "" {
		return &ConfigurationError{Source: "AWS_S3", Field: "bucket"}
	}
	if asset.ObjectKey == "" {
		return &ConfigurationError{Source: "AWS_S3", Field: "object_key"}
	}
	accessKey := asset.Credentials["access_key"]
	secretKey := asset.Credentials["secret_key"]
	if accessKey == "" || secretKey == "" {
		return &ConfigurationError{Source: "AWS_S3", Field: "credentials"}
	}

	region := asset.Credentials["region"]
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		),
	)
	if err != nil {
		return &SourceUnavailableError{Source: "AWS_S3", Err: fmt.Errorf("failed to load AWS config: %w", err)}
	}

	client := s3.NewFromConfig(awsCfg)

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(asset.Bucket),
		Key:    aws.String(asset.ObjectKey),
	})
	if err != nil {
		if isS3NotFound(err) {
			return &NotFoundError{Source: "AWS_S3", Ref: asset.Bucket + "/" + asset.ObjectKey}
		}
		return &SourceUnavailableError{Source: "AWS_S3", Err: err}
	}
	defer result.Body.Close()

	return writeFile(localPath, result.Body)
}

// isS3NotFound reports whether err is a missing-object or
// missing-bucket response rather than a transient failure.
func isS3NotFound(err error) bool {
	var noKey *types.NoSuchKey
	var noBucket *types.NoSuchBucket
	var notFound *types.NotFound
	return errors.As(err, &noKey) || errors.As(err, &noBucket) || errors.As(err, &notFound)
}
