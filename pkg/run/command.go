/*
   xgdctl - Xbox security sector tools
   Copyright (c) 2024, the xgdctl authors

   This file is part of xgdctl.

   xgdctl is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   xgdctl is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with xgdctl. If not, see <http://www.gnu.org/licenses/>.
*/

package run

import (
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

//
const (
	epilogueHeader = `
Notes:

`
)

/*
	The package initializer sets up logging based on logrus. The following
	environment variables can be used to configure logging:

		LOG_FORMAT		set to `json` for JSON logging
		LOG_FORCE_COLORS	set to non-empty for forcing colorized log entries
		LOG_METHODS		set to non-empty for including methods in log
		LOG_LEVEL		`panic`, `fatal`, `error`, `warn`, `info`, `debug`, `trace`
		LOG_FILE		additionally log to this file, rotated at 10MB

	Log output goes to stderr, stdout is reserved for reports.
*/
func init() {
	configureLogging(os.Getenv)
}

//
func configureLogging(getenv func(string) string) {

	var out io.Writer = os.Stderr
	if f := getenv("LOG_FILE"); f != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   f,
			MaxSize:    10,
			MaxAge:     28,
			MaxBackups: 3,
		})
	}
	log.SetOutput(out)

	switch {
	case strings.EqualFold(getenv("LOG_FORMAT"), "json"):
		log.SetFormatter(&log.JSONFormatter{})
	case getenv("LOG_FORCE_COLORS") != "":
		log.SetFormatter(&log.TextFormatter{ForceColors: true})
	}

	log.SetReportCaller(getenv("LOG_METHODS") != "")

	if level := getenv("LOG_LEVEL"); level != "" {
		l, err := log.ParseLevel(level)
		if err != nil {
			log.Errorf("invalid log level: '%s'; valid levels are: panic, "+
				"fatal, error, warn, info, debug, trace", level)
		} else {
			log.SetLevel(l)
		}
	}
}

//
var (
	UnderTest bool
)

// DieOnError exits the running process if e is not nil. The error is printed
// to stderr.
func DieOnError(e error) {
	if e != nil {
		Die("%v\n", e)
	}
}

// Die prints the given message to stderr and exits the running process.
func Die(msg string, params ...interface{}) {
	err := fmt.Sprintf(msg, params...)
	fmt.Fprint(os.Stderr, err)
	if UnderTest {
		panic(err)
	}
	os.Exit(1)
}

/*
	NewCommand creates a base command instance, wrapping a new Cobra command.
	The	exec function is invoked when the command's Execute method is called.
*/
func NewCommand(use, short, long, helpPrologue, helpEpilogue string,
	exec func() error) *Command {

	ret := Command{
		cmd: &cobra.Command{
			Use:   use,
			Short: short,
			Long:  long,
			RunE: func(*cobra.Command, []string) error {
				return exec()
			},
			SilenceErrors:         true,
			SilenceUsage:          true,
			DisableFlagsInUseLine: true,
		},
		config:       viper.New(),
		helpPrologue: helpPrologue,
		helpEpilogue: helpEpilogue,
	}
	ret.helpFunc = ret.cmd.HelpFunc()
	ret.cmd.SetHelpFunc(ret.help)
	ret.cmd.Flags().SetNormalizeFunc(normalizeFlag)
	return &ret
}

// normalizeFlag lets flags be spelled with underscores, e.g. --dry_run
func normalizeFlag(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

/*
	Command is a wrapper around Cobra & Viper. Every command has a Viper
	instance of its own, so that commands created in the same process do not
	see each other's settings. A setting is looked up in this order: command
	line flag, environment variable, default.
*/
type Command struct {
	//
	cmd    *cobra.Command
	config *viper.Viper
	//
	settings []Setting
	//
	Args []string
	//
	helpPrologue string
	helpEpilogue string
	helpFunc     func(*cobra.Command, []string)
}

//
func (c *Command) help(cmd *cobra.Command, args []string) {
	if c.helpPrologue != "" {
		fmt.Fprintln(cmd.OutOrStdout(), c.helpPrologue)
	}
	if c.helpFunc != nil {
		c.helpFunc(cmd, args)
	}
	if c.helpEpilogue != "" {
		fmt.Fprintln(cmd.OutOrStdout(), epilogueHeader+c.helpEpilogue)
	} else {
		fmt.Fprintln(cmd.OutOrStdout())
	}
}

/*
	Execute invokes the exec function that was set on this command when it was
	created, with args as its command line. os.Args is never consulted.
*/
func (c *Command) Execute(args []string) error {
	if args == nil {
		args = []string{}
	}
	c.cmd.SetArgs(args)
	return c.cmd.Execute()
}

/*
	Setting declares one setting of a command. Target points to the string,
	bool, or int variable receiving the setting's value. Short and Env are
	optional. A nil Default stands for the zero value of the target's type.
*/
type Setting struct {
	Target  interface{}
	Flag    string
	Short   string
	Env     string
	Default interface{}
	Help    string
}

/*
	AddSettings registers settings with this command. A setting with a target
	of unsupported type, or a default not matching its target, is a programming
	error and makes the process die.
*/
func (c *Command) AddSettings(settings ...Setting) {

	flags := c.cmd.Flags()

	for _, s := range settings {

		help := s.Help
		if s.Env != "" {
			help = fmt.Sprintf("%s (%s)", s.Help, s.Env)
		}

		ok := true

		switch t := s.Target.(type) {

		case *string:
			var def string
			if s.Default != nil {
				def, ok = s.Default.(string)
			}
			flags.StringVarP(t, s.Flag, s.Short, def, help)

		case *bool:
			var def bool
			if s.Default != nil {
				def, ok = s.Default.(bool)
			}
			flags.BoolVarP(t, s.Flag, s.Short, def, help)

		case *int:
			var def int
			if s.Default != nil {
				def, ok = s.Default.(int)
			}
			flags.IntVarP(t, s.Flag, s.Short, def, help)

		default:
			Die("setting '%s' is of unsupported type %T\n", s.Flag, s.Target)
		}

		if !ok {
			Die("default value for setting '%s' has incorrect type %T\n",
				s.Flag, s.Default)
		}

		log.WithFields(log.Fields{
			"flag": s.Flag,
			"env":  s.Env,
			"type": fmt.Sprintf("%T", s.Target),
		}).Trace("add setting")

		c.config.BindPFlag(s.Flag, flags.Lookup(s.Flag))
		if s.Env != "" {
			c.config.BindEnv(s.Flag, s.Env)
		}
		c.settings = append(c.settings, s)
	}
}

/*
	ParseSettings places the values of all settings added via AddSettings in
	the variables bound to them, and collects the positional arguments. Call
	this from the exec function before using any of those variables.
*/
func (c *Command) ParseSettings() {

	for _, s := range c.settings {

		switch t := s.Target.(type) {
		case *string:
			*t = c.config.GetString(s.Flag)
		case *bool:
			*t = c.config.GetBool(s.Flag)
		case *int:
			*t = c.config.GetInt(s.Flag)
		}

		log.WithFields(log.Fields{
			"flag":  s.Flag,
			"value": settingValue(s.Target),
			"set":   c.config.IsSet(s.Flag),
		}).Trace("setting")
	}

	c.Args = c.cmd.Flags().Args()
}

//
func settingValue(target interface{}) interface{} {
	switch t := target.(type) {
	case *string:
		return *t
	case *bool:
		return *t
	case *int:
		return *t
	}
	return nil
}
