package stacks

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsapplicationautoscaling"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsecr"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsecs"
	elb "github.com/aws/aws-cdk-go/awscdk/v2/awselasticloadbalancingv2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"go.uber.org/zap"
)

const (
	ClusterName = "AppCluster"

	// AppPort is the port the container listens on, and the only port the app security group opens.
	AppPort = 3000

	TaskCpu       = "256"
	TaskMemoryMiB = "512"
	ContainerMiB  = 512

	DesiredCount = 1
	MinCapacity  = 1
	MaxCapacity  = 2

	TargetCpuUtilizationPercent = 70
	ScalingCooldownMinutes      = 5
)

type (
	AppServiceStackProps struct {
		awscdk.StackProps

		Vpc              awsec2.IVpc
		AppSecurityGroup awsec2.ISecurityGroup
		AppRepository    awsecr.IRepository
		TargetGroupArn   *string
	}

	AppServiceStack struct {
		awscdk.Stack

		Cluster        awsecs.Cluster
		TaskDefinition awsecs.TaskDefinition
		Service        awsecs.FargateService
	}

	setupClusterInput struct {
		vpc awsec2.IVpc
	}

	setupTaskDefinitionInput struct {
		appRepository awsecr.IRepository
	}

	setupServiceInput struct {
		appSecurityGroup awsec2.ISecurityGroup
	}

	setupLoadBalancerMappingInput struct {
		targetGroupArn *string
	}
)

func (p *AppServiceStackProps) validate() error {
	if p == nil {
		return fmt.Errorf("props are required")
	}
	var missing []string
	if p.Vpc == nil {
		missing = append(missing, "Vpc")
	}
	if p.AppSecurityGroup == nil {
		missing = append(missing, "AppSecurityGroup")
	}
	if p.AppRepository == nil {
		missing = append(missing, "AppRepository")
	}
	if p.TargetGroupArn == nil || *p.TargetGroupArn == "" {
		missing = append(missing, "TargetGroupArn")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required props %v", missing)
	}
	return nil
}

// NewAppServiceStack declares the ECS cluster, the Fargate task and service, its CPU based
// scaling and the binding of the service to the network stack's target group.
// The handles in props come from the network and registry stacks; a missing one is a wiring
// bug and panics, like an invalid construct would.
func NewAppServiceStack(scope constructs.Construct, id string, props *AppServiceStackProps) *AppServiceStack {
	if err := props.validate(); err != nil {
		panic(fmt.Errorf("app service stack %s: %w", id, err))
	}
	s := &AppServiceStack{Stack: awscdk.NewStack(scope, jsii.String(id), &props.StackProps)}

	s.Cluster = s.setupCluster(setupClusterInput{vpc: props.Vpc})
	s.TaskDefinition = s.setupTaskDefinition(setupTaskDefinitionInput{appRepository: props.AppRepository})
	s.Service = s.setupService(setupServiceInput{appSecurityGroup: props.AppSecurityGroup})
	s.setupLoadBalancerMapping(setupLoadBalancerMappingInput{targetGroupArn: props.TargetGroupArn})

	zap.L().Named("stacks").Debug("Declared app service stack", zap.String("stack", id))
	return s
}

func (s *AppServiceStack) setupCluster(in setupClusterInput) awsecs.Cluster {
	return awsecs.NewCluster(s.Stack, jsii.String("AppCluster"), &awsecs.ClusterProps{
		Vpc:         in.vpc,
		ClusterName: jsii.String(ClusterName),
	})
}

func (s *AppServiceStack) setupTaskDefinition(in setupTaskDefinitionInput) awsecs.TaskDefinition {
	taskDefinition := awsecs.NewTaskDefinition(s.Stack, jsii.String("TaskDefinition"), &awsecs.TaskDefinitionProps{
		NetworkMode:   awsecs.NetworkMode_AWS_VPC,
		Compatibility: awsecs.Compatibility_FARGATE,
		Cpu:           jsii.String(TaskCpu),
		MemoryMiB:     jsii.String(TaskMemoryMiB),
		RuntimePlatform: &awsecs.RuntimePlatform{
			CpuArchitecture:       awsecs.CpuArchitecture_ARM64(),
			OperatingSystemFamily: awsecs.OperatingSystemFamily_LINUX(),
		},
	})

	taskDefinition.AddContainer(jsii.String("Container"), &awsecs.ContainerDefinitionOptions{
		Image:          awsecs.ContainerImage_FromEcrRepository(in.appRepository, nil),
		MemoryLimitMiB: jsii.Number(ContainerMiB),
		PortMappings: &[]*awsecs.PortMapping{
			{ContainerPort: jsii.Number(AppPort)},
		},
	})
	return taskDefinition
}

func (s *AppServiceStack) setupService(in setupServiceInput) awsecs.FargateService {
	service := awsecs.NewFargateService(s.Stack, jsii.String("AppService"), &awsecs.FargateServiceProps{
		TaskDefinition: s.TaskDefinition,
		// Traffic only reaches the tasks through the load balancer.
		AssignPublicIp: jsii.Bool(false),
		Cluster:        s.Cluster,
		SecurityGroups: &[]awsec2.ISecurityGroup{in.appSecurityGroup},
		DesiredCount:   jsii.Number(DesiredCount),
	})

	scaling := service.AutoScaleTaskCount(&awsapplicationautoscaling.EnableScalingProps{
		MinCapacity: jsii.Number(MinCapacity),
		MaxCapacity: jsii.Number(MaxCapacity),
	})
	scaling.ScaleOnCpuUtilization(jsii.String("CpuScaling"), &awsecs.CpuUtilizationScalingProps{
		TargetUtilizationPercent: jsii.Number(TargetCpuUtilizationPercent),
		ScaleInCooldown:          awscdk.Duration_Minutes(jsii.Number(ScalingCooldownMinutes)),
		ScaleOutCooldown:         awscdk.Duration_Minutes(jsii.Number(ScalingCooldownMinutes)),
	})
	return service
}

func (s *AppServiceStack) setupLoadBalancerMapping(in setupLoadBalancerMappingInput) {
	targetGroup := elb.ApplicationTargetGroup_FromTargetGroupAttributes(
		s.Stack,
		jsii.String("ImportedTargetGroup"),
		&elb.TargetGroupAttributes{TargetGroupArn: in.targetGroupArn},
	)
	s.Service.AttachToApplicationTargetGroup(targetGroup)
}
