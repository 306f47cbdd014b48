package app

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/rs/zerolog"
)

type secretGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

func newSecretsClient(ctx context.Context, cfg Config) (*secretsmanager.Client, error) {
	var optFns []func(*config.LoadOptions) error
	if cfg.AWS.Region != "" {
		optFns = append(optFns, config.WithRegion(cfg.AWS.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("unable to load aws config: %w", err)
	}
	return secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
		if cfg.AWS.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.Endpoint)
		}
	}), nil
}

// resolveDSN returns the configured DSN, or the value of database.dsn_secret
// when it is set. Only string secrets are supported.
func resolveDSN(ctx context.Context, cfg Config, secrets func(context.Context) (secretGetter, error)) (string, error) {
	if cfg.Database.DSNSecret == "" {
		return cfg.Database.DSN, nil
	}
	c, err := secrets(ctx)
	if err != nil {
		return "", err
	}
	out, err := c.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(cfg.Database.DSNSecret),
	})
	if err != nil {
		return "", fmt.Errorf("unable to retrieve secret %s: %w", cfg.Database.DSNSecret, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s is not a string", cfg.Database.DSNSecret)
	}
	zerolog.Ctx(ctx).Debug().Str("secret", cfg.Database.DSNSecret).Msg("database dsn loaded from secrets manager")
	return *out.SecretString, nil
}
