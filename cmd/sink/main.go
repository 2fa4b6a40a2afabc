package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-sink-client/internal/cli"
	"github.com/jrsteele09/go-sink-client/internal/config"
)

func main() {
	os.Exit(cli.GetExitCode(run(os.Args[1:])))
}

func run(args []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	if len(args) == 0 {
		displayAppname(c.GetAppName())
	}
	cmd := cli.NewRootCommand(c)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())

	// commands report their own failures; cobra's usage errors are not
	var exitErr *cli.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return cli.WrapExitError(cli.ExitCommandError, "usage", err)
	}
	return err
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
