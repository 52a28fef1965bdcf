// Package awsenvtest provides in-memory IAM and STS clients and swaps them
// into package awsenv for the duration of a test.
package awsenvtest

import (
	"context"
	"sync"
	"testing"

	"icebergtest/internal/components/awsenv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// AccountID is the account reported by the fake STS client.
const AccountID = "123456789012"

// IAM records role operations. Documents holds the latest "trust" and
// "policy" JSON.
type IAM struct {
	mu        sync.Mutex
	Calls     []string
	Documents map[string]string
	CreateErr error
	DeleteErr error
}

// NewIAM returns an empty fake.
func NewIAM() *IAM {
	return &IAM{Documents: map[string]string{}}
}

func (f *IAM) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, call)
}

func (f *IAM) setDocument(kind, doc string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Documents[kind] = doc
}

// Document returns the latest document of a kind.
func (f *IAM) Document(kind string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Documents[kind]
}

// RecordedCalls returns a copy of the calls made so far.
func (f *IAM) RecordedCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}

func (f *IAM) CreateRole(_ context.Context, in *iam.CreateRoleInput, _ ...func(*iam.Options)) (*iam.CreateRoleOutput, error) {
	f.record("CreateRole " + aws.ToString(in.RoleName))
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	f.setDocument("trust", aws.ToString(in.AssumeRolePolicyDocument))
	return &iam.CreateRoleOutput{Role: &types.Role{Arn: aws.String("arn:aws:iam::" + AccountID + ":role/" + aws.ToString(in.RoleName))}}, nil
}

func (f *IAM) PutRolePolicy(_ context.Context, in *iam.PutRolePolicyInput, _ ...func(*iam.Options)) (*iam.PutRolePolicyOutput, error) {
	f.record("PutRolePolicy " + aws.ToString(in.PolicyName))
	f.setDocument("policy", aws.ToString(in.PolicyDocument))
	return &iam.PutRolePolicyOutput{}, nil
}

func (f *IAM) UpdateAssumeRolePolicy(_ context.Context, in *iam.UpdateAssumeRolePolicyInput, _ ...func(*iam.Options)) (*iam.UpdateAssumeRolePolicyOutput, error) {
	f.record("UpdateAssumeRolePolicy " + aws.ToString(in.RoleName))
	f.setDocument("trust", aws.ToString(in.PolicyDocument))
	return &iam.UpdateAssumeRolePolicyOutput{}, nil
}

func (f *IAM) DeleteRolePolicy(_ context.Context, in *iam.DeleteRolePolicyInput, _ ...func(*iam.Options)) (*iam.DeleteRolePolicyOutput, error) {
	f.record("DeleteRolePolicy " + aws.ToString(in.PolicyName))
	if f.DeleteErr != nil {
		return nil, f.DeleteErr
	}
	return &iam.DeleteRolePolicyOutput{}, nil
}

func (f *IAM) DeleteRole(_ context.Context, in *iam.DeleteRoleInput, _ ...func(*iam.Options)) (*iam.DeleteRoleOutput, error) {
	f.record("DeleteRole " + aws.ToString(in.RoleName))
	return &iam.DeleteRoleOutput{}, nil
}

// STS reports AccountID as the caller's account.
type STS struct{}

func (STS) GetCallerIdentity(context.Context, *sts.GetCallerIdentityInput, ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return &sts.GetCallerIdentityOutput{Account: aws.String(AccountID)}, nil
}

// Use installs a fresh IAM fake and the STS fake, disables the propagation
// delay and restores everything when the test ends.
func Use(t testing.TB) *IAM {
	t.Helper()
	fake := NewIAM()

	origIAM, origSTS, origDelay := awsenv.NewIAM, awsenv.NewSTS, awsenv.PropagationDelay
	awsenv.NewIAM = func(aws.Config) awsenv.IAMAPI { return fake }
	awsenv.NewSTS = func(aws.Config) awsenv.STSAPI { return STS{} }
	awsenv.PropagationDelay = 0
	t.Cleanup(func() {
		awsenv.NewIAM, awsenv.NewSTS, awsenv.PropagationDelay = origIAM, origSTS, origDelay
	})
	return fake
}
