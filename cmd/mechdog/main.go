package main

import (
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	"github.com/gwillem/mechdog/pkg/robot"
)

type Options struct {
	Config  string `short:"c" long:"config" default:"mechdog.json" description:"Configuration file"`
	Verbose []bool `short:"v" long:"verbose" description:"Verbose logging (repeat for more)"`

	Setup    SetupCommand    `command:"setup" description:"Find the servo bus, choose a variant and calibrate"`
	Run      RunCommand      `command:"run" description:"Drive the robot from the keyboard, MCU link and remote"`
	Simulate SimulateCommand `command:"simulate" alias:"sim" description:"Run commands against a simulated servo bus"`
	Variants VariantsCommand `command:"variants" description:"List the built-in robot variants"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "mechdog - quadruped gait controller for LSS and Feetech servo robots"
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		configureLogging()
		return cmd.Execute(args)
	}

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}

func configureLogging() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	switch len(opts.Verbose) {
	case 0:
		logrus.SetLevel(logrus.WarnLevel)
	case 1:
		logrus.SetLevel(logrus.InfoLevel)
	default:
		logrus.SetLevel(logrus.DebugLevel)
	}
}

// loadConfig reads the configuration file named by --config.
func loadConfig() (*robot.Config, error) {
	return robot.LoadConfigFrom(opts.Config)
}
