package auth

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// SessionName is the STS role session name used for role assumption.
const SessionName = "OpenSearchClientSession"

// ConfigLoader loads the AWS configuration for an optional shared-config
// profile. A non-empty region overrides whatever the configuration resolves.
type ConfigLoader func(ctx context.Context, awsProfile, region string) (aws.Config, error)

// RoleAssumer exchanges the base configuration's credentials for temporary
// credentials of roleARN.
type RoleAssumer func(ctx context.Context, cfg aws.Config, roleARN, sessionName string) (aws.Credentials, error)

// LoadAWSConfig is the default ConfigLoader backed by the SDK default chain.
func LoadAWSConfig(ctx context.Context, awsProfile, region string) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if awsProfile != "" {
		opts = append(opts, config.WithSharedConfigProfile(awsProfile))
	}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	return config.LoadDefaultConfig(ctx, opts...)
}

// AssumeRoleSTS is the default RoleAssumer. It calls sts:AssumeRole once.
func AssumeRoleSTS(ctx context.Context, cfg aws.Config, roleARN, sessionName string) (aws.Credentials, error) {
	provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(cfg), roleARN, func(o *stscreds.AssumeRoleOptions) {
		o.RoleSessionName = sessionName
	})
	return provider.Retrieve(ctx)
}
