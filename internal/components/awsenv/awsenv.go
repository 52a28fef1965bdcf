// Package awsenv holds the AWS plumbing shared by components: SDK config
// from the resolved secrets, IAM policy documents, and the role lifecycle
// used to grant hosted engines access to test buckets.
package awsenv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"icebergtest/internal/config"
	"icebergtest/pkg/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

const awsSubsystem = "AWS"

// LoadConfig builds an SDK config. Static keys from the secrets are used
// when present; otherwise the default credential chain applies.
func LoadConfig(ctx context.Context, creds config.AWSCredentials) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(creds.Region)}
	if creds.AccessKeyID != "" && creds.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

// Statement is one IAM policy statement.
type Statement struct {
	Sid       string         `json:"Sid"`
	Effect    string         `json:"Effect"`
	Principal map[string]any `json:"Principal,omitempty"`
	Action    []string       `json:"Action"`
	Resource  any            `json:"Resource,omitempty"`
	Condition map[string]any `json:"Condition,omitempty"`
}

// PolicyDocument is an IAM policy.
type PolicyDocument struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

// NewPolicy wraps statements in a 2012-10-17 policy.
func NewPolicy(statements ...Statement) PolicyDocument {
	return PolicyDocument{Version: "2012-10-17", Statement: statements}
}

// JSON renders the policy.
func (p PolicyDocument) JSON() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode policy: %w", err)
	}
	return string(data), nil
}

// PlaceholderExternalID is used in the initial trust policy until the
// hosted service reveals its real external id.
const PlaceholderExternalID = "<api_aws_external_id>"

// BucketAccess grants object read/write on a bucket.
func BucketAccess(bucket string) []Statement {
	return []Statement{
		{
			Effect: "Allow",
			Action: []string{
				"s3:PutObject",
				"s3:GetObject",
				"s3:GetObjectVersion",
				"s3:DeleteObject",
				"s3:DeleteObjectVersion",
			},
			Resource: fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
		},
		{
			Effect:    "Allow",
			Action:    []string{"s3:ListBucket", "s3:GetBucketLocation"},
			Resource:  fmt.Sprintf("arn:aws:s3:::%s", bucket),
			Condition: map[string]any{"StringLike": map[string]any{"s3:prefix": []string{"*"}}},
		},
	}
}

// GlueReadAccess grants read access to the Glue catalog and one database.
func GlueReadAccess(accountID, database string) Statement {
	return Statement{
		Effect: "Allow",
		Action: []string{
			"glue:GetCatalog",
			"glue:GetConfig",
			"glue:GetDatabase",
			"glue:GetDatabases",
			"glue:GetTable",
			"glue:GetTables",
		},
		Resource: []string{
			fmt.Sprintf("arn:aws:glue:*:%s:table/*/*", accountID),
			fmt.Sprintf("arn:aws:glue:*:%s:catalog", accountID),
			fmt.Sprintf("arn:aws:glue:*:%s:database/%s", accountID, database),
		},
	}
}

// AssumeBy allows principal to assume the role with the given external id.
func AssumeBy(principal map[string]any, externalID string) Statement {
	return Statement{
		Effect:    "Allow",
		Principal: principal,
		Action:    []string{"sts:AssumeRole"},
		Condition: map[string]any{"StringEquals": map[string]any{"sts:ExternalId": externalID}},
	}
}

// AssumeByAWS allows an AWS principal ARN to assume the role.
func AssumeByAWS(arn, externalID string) Statement {
	return AssumeBy(map[string]any{"AWS": arn}, externalID)
}

// PropagationDelay is how long IAM changes are given to reach the services
// that assume the role.
var PropagationDelay = 10 * time.Second

// WaitForPropagation sleeps for PropagationDelay or until ctx is done.
func WaitForPropagation(ctx context.Context) error {
	if PropagationDelay <= 0 {
		return nil
	}
	logging.Debug(awsSubsystem, "Waiting %s for IAM changes to propagate", PropagationDelay)
	timer := time.NewTimer(PropagationDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IAMAPI is the subset of the IAM client used by RoleManager.
type IAMAPI interface {
	CreateRole(ctx context.Context, params *iam.CreateRoleInput, optFns ...func(*iam.Options)) (*iam.CreateRoleOutput, error)
	PutRolePolicy(ctx context.Context, params *iam.PutRolePolicyInput, optFns ...func(*iam.Options)) (*iam.PutRolePolicyOutput, error)
	UpdateAssumeRolePolicy(ctx context.Context, params *iam.UpdateAssumeRolePolicyInput, optFns ...func(*iam.Options)) (*iam.UpdateAssumeRolePolicyOutput, error)
	DeleteRolePolicy(ctx context.Context, params *iam.DeleteRolePolicyInput, optFns ...func(*iam.Options)) (*iam.DeleteRolePolicyOutput, error)
	DeleteRole(ctx context.Context, params *iam.DeleteRoleInput, optFns ...func(*iam.Options)) (*iam.DeleteRoleOutput, error)
}

// STSAPI is the subset of the STS client used to find the account id.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// NewIAM and NewSTS build clients; tests replace them.
var (
	NewIAM = func(cfg aws.Config) IAMAPI { return iam.NewFromConfig(cfg) }
	NewSTS = func(cfg aws.Config) STSAPI { return sts.NewFromConfig(cfg) }
)

// AccountID returns the AWS account of the configured credentials.
func AccountID(ctx context.Context, client STSAPI) (string, error) {
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("failed to get caller identity: %w", err)
	}
	return aws.ToString(out.Account), nil
}

// RoleManager owns one IAM role with one inline policy.
type RoleManager struct {
	client     IAMAPI
	roleName   string
	policyName string
	arn        string
	created    bool
	hasPolicy  bool
}

// NewRoleManager manages roleName with an inline policy named policyName.
func NewRoleManager(client IAMAPI, roleName, policyName string) *RoleManager {
	return &RoleManager{client: client, roleName: roleName, policyName: policyName}
}

// ARN returns the role ARN once created.
func (r *RoleManager) ARN() string {
	return r.arn
}

// RoleName returns the managed role name.
func (r *RoleManager) RoleName() string {
	return r.roleName
}

// Create creates the role with a trust policy and attaches the permissions.
func (r *RoleManager) Create(ctx context.Context, trust PolicyDocument, permissions PolicyDocument) (string, error) {
	trustJSON, err := trust.JSON()
	if err != nil {
		return "", err
	}
	out, err := r.client.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(r.roleName),
		AssumeRolePolicyDocument: aws.String(trustJSON),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create role %s: %w", r.roleName, err)
	}
	r.created = true
	if out.Role != nil {
		r.arn = aws.ToString(out.Role.Arn)
	}
	logging.Info(awsSubsystem, "Created role %s (%s)", r.roleName, r.arn)

	permJSON, err := permissions.JSON()
	if err != nil {
		return "", err
	}
	if _, err := r.client.PutRolePolicy(ctx, &iam.PutRolePolicyInput{
		RoleName:       aws.String(r.roleName),
		PolicyName:     aws.String(r.policyName),
		PolicyDocument: aws.String(permJSON),
	}); err != nil {
		return "", fmt.Errorf("failed to put role policy %s: %w", r.policyName, err)
	}
	r.hasPolicy = true
	logging.Info(awsSubsystem, "Attached policy %s to role %s", r.policyName, r.roleName)
	return r.arn, nil
}

// UpdateTrust replaces the role's trust policy.
func (r *RoleManager) UpdateTrust(ctx context.Context, trust PolicyDocument) error {
	trustJSON, err := trust.JSON()
	if err != nil {
		return err
	}
	if _, err := r.client.UpdateAssumeRolePolicy(ctx, &iam.UpdateAssumeRolePolicyInput{
		RoleName:       aws.String(r.roleName),
		PolicyDocument: aws.String(trustJSON),
	}); err != nil {
		return fmt.Errorf("failed to update trust policy of %s: %w", r.roleName, err)
	}
	logging.Info(awsSubsystem, "Updated trust policy of role %s", r.roleName)
	return nil
}

// Delete removes the inline policy and the role. Both steps are attempted;
// their errors are joined.
func (r *RoleManager) Delete(ctx context.Context) error {
	if !r.created {
		return nil
	}
	var errs []error
	if r.hasPolicy {
		if _, err := r.client.DeleteRolePolicy(ctx, &iam.DeleteRolePolicyInput{
			RoleName:   aws.String(r.roleName),
			PolicyName: aws.String(r.policyName),
		}); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete role policy %s: %w", r.policyName, err))
		} else {
			r.hasPolicy = false
		}
	}
	if _, err := r.client.DeleteRole(ctx, &iam.DeleteRoleInput{RoleName: aws.String(r.roleName)}); err != nil {
		errs = append(errs, fmt.Errorf("failed to delete role %s: %w", r.roleName, err))
	} else {
		r.created = false
		logging.Info(awsSubsystem, "Deleted role %s", r.roleName)
	}
	return errors.Join(errs...)
}
