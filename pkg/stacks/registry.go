package stacks

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsecr"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"go.uber.org/zap"
)

const (
	RepositoryName = "nextjs-cdk-example-repository"
	// ImageMaxAgeDays is how long an image is kept before the lifecycle rule expires it.
	ImageMaxAgeDays = 30
)

type EcrStack struct {
	awscdk.Stack

	AppRepository awsecr.Repository
}

func NewEcrStack(scope constructs.Construct, id string, props *awscdk.StackProps) *EcrStack {
	s := &EcrStack{Stack: awscdk.NewStack(scope, jsii.String(id), props)}

	s.AppRepository = s.setupAppRepository()

	zap.L().Named("stacks").Debug("Declared registry stack", zap.String("stack", id))
	return s
}

func (s *EcrStack) setupAppRepository() awsecr.Repository {
	repository := awsecr.NewRepository(s.Stack, jsii.String("Repository"), &awsecr.RepositoryProps{
		RepositoryName:  jsii.String(RepositoryName),
		ImageScanOnPush: jsii.Bool(false),
		// The repository and its images go away with the stack.
		RemovalPolicy: awscdk.RemovalPolicy_DESTROY,
		LifecycleRules: &[]*awsecr.LifecycleRule{
			{MaxImageAge: awscdk.Duration_Days(jsii.Number(ImageMaxAgeDays))},
		},
	})

	awscdk.NewCfnOutput(s.Stack, jsii.String("RepositoryUri"), &awscdk.CfnOutputProps{
		Value: repository.RepositoryUri(),
	})
	return repository
}
