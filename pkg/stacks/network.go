package stacks

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	elb "github.com/aws/aws-cdk-go/awscdk/v2/awselasticloadbalancingv2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"go.uber.org/zap"
)

const (
	// MaxAzs bounds the availability zones the VPC spans. Regions with fewer zones get all of them.
	MaxAzs = 2
	// NatGateways is shared by every private subnet for outbound traffic.
	NatGateways = 1

	HTTPPort  = 80
	HTTPSPort = 443

	HealthCheckPath            = "/"
	HealthCheckIntervalSeconds = 30
)

type NetworkStack struct {
	awscdk.Stack

	Vpc              awsec2.Vpc
	Alb              elb.ApplicationLoadBalancer
	AlbSecurityGroup awsec2.SecurityGroup
	AppSecurityGroup awsec2.SecurityGroup
	TargetGroup      elb.ApplicationTargetGroup
}

// NewNetworkStack declares the VPC, the two security groups and the public load balancer
// with its target group. The app security group only admits traffic from the load balancer.
func NewNetworkStack(scope constructs.Construct, id string, props *awscdk.StackProps) *NetworkStack {
	s := &NetworkStack{Stack: awscdk.NewStack(scope, jsii.String(id), props)}

	s.Vpc = s.setupVpc()
	s.AlbSecurityGroup = s.setupAlbSecurityGroup()
	s.AppSecurityGroup = s.setupAppSecurityGroup()
	s.Alb = s.setupAppLoadBalancer()
	s.TargetGroup = s.setupTargetGroup()

	zap.L().Named("stacks").Debug("Declared network stack", zap.String("stack", id))
	return s
}

func (s *NetworkStack) setupVpc() awsec2.Vpc {
	vpc := awsec2.NewVpc(s.Stack, jsii.String("Vpc"), &awsec2.VpcProps{
		MaxAzs:                jsii.Number(MaxAzs),
		NatGateways:           jsii.Number(NatGateways),
		CreateInternetGateway: jsii.Bool(true),
		SubnetConfiguration: &[]*awsec2.SubnetConfiguration{
			{
				// Keep the /24 masks: larger blocks run into the per-account VPC and subnet limits.
				CidrMask:   jsii.Number(24),
				Name:       jsii.String("PublicSubnet"),
				SubnetType: awsec2.SubnetType_PUBLIC,
			},
			{
				CidrMask:   jsii.Number(24),
				Name:       jsii.String("PrivateSubnet"),
				SubnetType: awsec2.SubnetType_PRIVATE_WITH_EGRESS,
			},
		},
	})

	awscdk.NewCfnOutput(s.Stack, jsii.String("VpcId"), &awscdk.CfnOutputProps{Value: vpc.VpcId()})
	awscdk.NewCfnOutput(s.Stack, jsii.String("VpcPublicSubnetIds"), &awscdk.CfnOutputProps{
		Value: joinSubnetIds(vpc.PublicSubnets()),
	})
	awscdk.NewCfnOutput(s.Stack, jsii.String("VpcPrivateSubnetIds"), &awscdk.CfnOutputProps{
		Value: joinSubnetIds(vpc.PrivateSubnets()),
	})
	return vpc
}

func joinSubnetIds(subnets *[]awsec2.ISubnet) *string {
	ids := make([]*string, 0, len(*subnets))
	for _, subnet := range *subnets {
		ids = append(ids, subnet.SubnetId())
	}
	return awscdk.Fn_Join(jsii.String(","), &ids)
}

func (s *NetworkStack) setupAlbSecurityGroup() awsec2.SecurityGroup {
	sg := awsec2.NewSecurityGroup(s.Stack, jsii.String("AlbSecurityGroup"), &awsec2.SecurityGroupProps{
		Description:      jsii.String("Security group for the App load balancer"),
		Vpc:              s.Vpc,
		AllowAllOutbound: jsii.Bool(true),
	})
	sg.AddIngressRule(
		awsec2.Peer_AnyIpv4(),
		awsec2.Port_Tcp(jsii.Number(HTTPPort)),
		jsii.String("Allow HTTP traffic from anywhere"),
		nil,
	)
	sg.AddIngressRule(
		awsec2.Peer_AnyIpv4(),
		awsec2.Port_Tcp(jsii.Number(HTTPSPort)),
		jsii.String("Allow HTTPS traffic from anywhere"),
		nil,
	)
	return sg
}

func (s *NetworkStack) setupAppSecurityGroup() awsec2.SecurityGroup {
	sg := awsec2.NewSecurityGroup(s.Stack, jsii.String("AppSecurityGroup"), &awsec2.SecurityGroupProps{
		Description:      jsii.String("Security group for the App"),
		Vpc:              s.Vpc,
		AllowAllOutbound: jsii.Bool(true),
	})
	sg.AddIngressRule(
		s.AlbSecurityGroup,
		awsec2.Port_Tcp(jsii.Number(AppPort)),
		jsii.String("Allow traffic from the ALB on port 3000"),
		nil,
	)
	return sg
}

func (s *NetworkStack) setupAppLoadBalancer() elb.ApplicationLoadBalancer {
	alb := elb.NewApplicationLoadBalancer(s.Stack, jsii.String("AppLoadBalancer"), &elb.ApplicationLoadBalancerProps{
		Vpc:                s.Vpc,
		InternetFacing:     jsii.Bool(true),
		SecurityGroup:      s.AlbSecurityGroup,
		DeletionProtection: jsii.Bool(false),
		// Application load balancers reject false here.
		CrossZoneEnabled: jsii.Bool(true),
		VpcSubnets: &awsec2.SubnetSelection{
			SubnetType: awsec2.SubnetType_PUBLIC,
		},
	})

	awscdk.NewCfnOutput(s.Stack, jsii.String("AppLoadBalancerDnsName"), &awscdk.CfnOutputProps{
		Value: alb.LoadBalancerDnsName(),
	})
	return alb
}

func (s *NetworkStack) setupTargetGroup() elb.ApplicationTargetGroup {
	tg := elb.NewApplicationTargetGroup(s.Stack, jsii.String("TargetGroup"), &elb.ApplicationTargetGroupProps{
		Protocol:   elb.ApplicationProtocol_HTTP,
		Vpc:        s.Vpc,
		Port:       jsii.Number(HTTPPort),
		TargetType: elb.TargetType_IP,
		HealthCheck: &elb.HealthCheck{
			Path:     jsii.String(HealthCheckPath),
			Interval: awscdk.Duration_Seconds(jsii.Number(HealthCheckIntervalSeconds)),
		},
	})
	s.Alb.AddListener(jsii.String("Listener"), &elb.BaseApplicationListenerProps{
		Port:                jsii.Number(HTTPPort),
		Open:                jsii.Bool(true),
		DefaultTargetGroups: &[]elb.IApplicationTargetGroup{tg},
	})
	return tg
}
