package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"
	"github.com/itm-space/backend-resources/internal/appconfig"
	"github.com/sethvargo/go-envconfig"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

const (
	SourceEnv        = "env"
	SourceAWS        = "aws"
	SourceKubernetes = "kubernetes"
)

var ErrSecretNotFound = errors.New("secret not found")

// Source returns the value of a named secret.
type Source interface {
	Get(ctx context.Context, cfg appconfig.SecretConfig) (string, error)
}

// EnvSource reads secrets from environment variables. cfg.Name is the variable name.
type EnvSource struct {
	Lookuper envconfig.Lookuper
}

func (s EnvSource) Get(_ context.Context, cfg appconfig.SecretConfig) (string, error) {
	value, ok := s.Lookuper.Lookup(cfg.Name)
	if !ok || value == "" {
		return "", fmt.Errorf("%w: environment variable %s is not set", ErrSecretNotFound, cfg.Name)
	}
	return value, nil
}

// SecretsManagerAPI is the part of the Secrets Manager client used here.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSource reads secrets from AWS Secrets Manager. When cfg.Key is set the
// secret string is treated as a JSON object and the key is extracted.
type AWSSource struct {
	Client SecretsManagerAPI
}

func (s AWSSource) Get(ctx context.Context, cfg appconfig.SecretConfig) (string, error) {
	out, err := s.Client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(cfg.Name),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("%w: aws secret %s", ErrSecretNotFound, cfg.Name)
		}
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("failed to get aws secret %s: %s: %s", cfg.Name, apiErr.ErrorCode(), apiErr.ErrorMessage())
		}
		return "", fmt.Errorf("failed to get aws secret %s: %w", cfg.Name, err)
	}

	value := aws.ToString(out.SecretString)
	if cfg.Key == "" {
		return value, nil
	}

	var fields map[string]string
	if err := json.Unmarshal([]byte(value), &fields); err != nil {
		return "", fmt.Errorf("aws secret %s is not a JSON object: %w", cfg.Name, err)
	}
	field, ok := fields[cfg.Key]
	if !ok {
		return "", fmt.Errorf("%w: key %s in aws secret %s", ErrSecretNotFound, cfg.Key, cfg.Name)
	}
	return field, nil
}

// KubernetesSource reads a key from a Kubernetes secret.
type KubernetesSource struct {
	Client kubernetes.Interface
}

func (s KubernetesSource) Get(ctx context.Context, cfg appconfig.SecretConfig) (string, error) {
	secret, err := s.Client.CoreV1().Secrets(cfg.Namespace).Get(ctx, cfg.Name, metav1.GetOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to get kubernetes secret %s/%s: %w", cfg.Namespace, cfg.Name, err)
	}

	value, ok := secret.Data[cfg.Key]
	if !ok {
		return "", fmt.Errorf("%w: key %s in kubernetes secret %s/%s", ErrSecretNotFound, cfg.Key, cfg.Namespace, cfg.Name)
	}
	return string(value), nil
}

// Resolver picks a Source by the configured source name.
type Resolver struct {
	Sources map[string]Source
}

func (r Resolver) Resolve(ctx context.Context, cfg appconfig.SecretConfig) (string, error) {
	source, ok := r.Sources[cfg.Source]
	if !ok {
		return "", fmt.Errorf("unsupported secret source %q", cfg.Source)
	}
	return source.Get(ctx, cfg)
}
