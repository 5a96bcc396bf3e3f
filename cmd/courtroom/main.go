package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
)

// Options holds the flags shared by every command. The struct tags are
// interpreted by github.com/jessevdk/go-flags.
type Options struct {
	Config  string `short:"c" long:"config" default:"config.yaml" description:"config file path"`
	EnvFile string `long:"env-file" default:".env" description:"dotenv file loaded before the config"`

	Serve   ServeCmd   `command:"serve" description:"Start the HTTP API"`
	Run     RunCmd     `command:"run" description:"Run one scenario against an in-memory roster"`
	Predict PredictCmd `command:"predict" description:"Run a scenario, then predict the outcome"`
}

var opts Options

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.LongDescription = "virtual-courtroom simulates family court exchanges between AI role agents."

	if _, err := parser.Parse(); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		if !errors.As(err, &ferr) {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		}
		os.Exit(1)
	}
}
