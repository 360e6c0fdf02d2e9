package synth

import (
	"context"
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"github.com/nextjs-cdk-example/infra/pkg/config"
	"github.com/nextjs-cdk-example/infra/pkg/logging"
	"github.com/nextjs-cdk-example/infra/pkg/stacks"
	"github.com/nextjs-cdk-example/infra/pkg/visualizer"
	"go.uber.org/zap"
)

const (
	NetworkStackId    = "NetworkStack"
	RegistryStackId   = "EcrStack"
	AppServiceStackId = "AppServiceStack"

	ProjectName = "nextjs-cdk-example"
)

type Stacks struct {
	Network    *stacks.NetworkStack
	Registry   *stacks.EcrStack
	AppService *stacks.AppServiceStack
}

// Compose declares the three stacks in dependency order: the network and the registry are fully
// constructed before the app service stack receives their handles.
func Compose(app awscdk.App, cfg config.Config) Stacks {
	env := cfg.Environment()

	var s Stacks
	s.Network = stacks.NewNetworkStack(app, NetworkStackId, &awscdk.StackProps{Env: env})
	s.Registry = stacks.NewEcrStack(app, RegistryStackId, &awscdk.StackProps{Env: env})
	s.AppService = stacks.NewAppServiceStack(app, AppServiceStackId, &stacks.AppServiceStackProps{
		StackProps:       awscdk.StackProps{Env: env},
		Vpc:              s.Network.Vpc,
		AppSecurityGroup: s.Network.AppSecurityGroup,
		AppRepository:    s.Registry.AppRepository,
		TargetGroupArn:   s.Network.TargetGroup.TargetGroupArn(),
	})

	tags := awscdk.Tags_Of(app)
	tags.Add(jsii.String("Project"), jsii.String(ProjectName), nil)
	tags.Add(jsii.String("Environment"), jsii.String(cfg.NodeEnv), nil)
	return s
}

// Run synthesizes the cloud assembly and waits for the diagram report before returning the
// assembly directory.
func Run(ctx context.Context, cfg config.Config, renderer visualizer.Renderer) (string, error) {
	ctx, log := logging.Named(ctx, "synth")

	props := &awscdk.AppProps{}
	if cfg.OutDir != "" {
		props.Outdir = jsii.String(cfg.OutDir)
	}
	app := awscdk.NewApp(props)

	Compose(app, cfg)

	assembly := app.Synth(nil)
	dir := *assembly.Directory()
	log.Info("Synthesized cloud assembly", zap.String("dir", dir), zap.String("node_env", cfg.NodeEnv))

	files, err := visualizer.Report(ctx, dir, cfg.Diagrams, renderer)
	if err != nil {
		return dir, fmt.Errorf("could not report diagrams: %w", err)
	}
	log.Debug("Diagrams written", zap.Strings("files", files))
	return dir, nil
}
