// Copyright © 2018 The ELPS authors

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "eclj",
	Short: "eclj — a Clojure compiler core",
	Long: `eclj analyzes Clojure forms into expression trees and either evaluates
the trees directly or compiles them into classes run by a small stack
machine.

Getting started:
  eclj run file.clj                  Run a source file
  eclj run -e '(+ 1 2)' -p           Evaluate an expression and print it
  eclj repl                          Start an interactive REPL
  eclj doc map                       Show documentation for a var
  eclj expand '(when x y)'           Show the expansion of a macro form
  eclj disasm '(fn [x] (inc x))'     List the classes compiled for a form

Execution modes (--mode):
  compile     Synthesize a class per top-level form and run it (default)
  interpret   Evaluate the analyzed expression tree directly

Compiler flags:
  --warn-on-reflection     Report host calls that cannot be resolved statically
  --unchecked-math         false, true or warn-on-boxed

Every flag may also be set in the config file ($HOME/.eclj.yaml) or the
environment with an ECLJ_ prefix, for example ECLJ_MODE=interpret.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// errReported is returned by commands which have already rendered their
// error to stderr.
var errReported = errors.New("error reported")

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.eclj.yaml)")
	flags.String("color", "auto", `Control colored output: "auto", "always", or "never".`)
	flags.String("mode", "compile", `Execution mode: "compile" or "interpret".`)
	flags.String("log-level", "warning", "Compiler log level (debug, info, warning, error).")
	flags.Bool("warn-on-reflection", false, "Warn about host calls resolved at run time.")
	flags.String("unchecked-math", "false", `Initial *unchecked-math*: "false", "true" or "warn-on-boxed".`)
	flags.Bool("intrinsics", true, "Inline core numeric functions as primitive operations.")
	flags.String("reader", "rd", `Source reader: "rd" (recursive descent) or "parsec".`)
	for _, name := range []string{"color", "mode", "log-level", "warn-on-reflection", "unchecked-math", "intrinsics", "reader"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(
		RunCommand(),
		ReplCommand(),
		DocCommand(),
		ExpandCommand(),
		DisasmCommand(),
	)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		// Search config in home directory with name ".eclj" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".eclj")
	}

	viper.SetEnvPrefix("eclj")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
