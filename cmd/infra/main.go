package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/jsii-runtime-go"
	"github.com/nextjs-cdk-example/infra/pkg/cli"
)

func run() int {
	defer jsii.Close()

	app := &cli.App{}
	err := app.Execute(context.Background(), app.NewRootCmd())
	switch {
	case err == nil:
		return 0
	case errors.Is(err, cli.ErrAssembliesDiffer):
		// The changes are already printed.
		return 1
	default:
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
}

func main() {
	os.Exit(run())
}
