package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/audimetria/audimetria/internal/config"
	"github.com/audimetria/audimetria/internal/utils"
	"github.com/spf13/cobra"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

const (
	LOGO = `                  ___                 __       _
  ____ ___  ______/ (_)___ ___  ___  / /______(_)___ _
 / __ ` + "`" + `/ / / / __  / / __ ` + "`" + `__ \/ _ \/ __/ ___/ / __ ` + "`" + `/
/ /_/ / /_/ / /_/ / / / / / / /  __/ /_/ /  / / /_/ /
\__,_/\__,_/\__,_/_/_/ /_/ /_/\___/\__/_/  /_/\__,_/

`
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "audimetria",
	Short: "Collects nightly TV audience figures into a versioned dataset.",
	Long: LOGO + `audimetria scrapes the daily TV ranking for La Revuelta and El Hormiguero,
adds the days it has not seen yet to a JSON dataset and commits it back to GitHub.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.audimetria.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("proxy", "", "", "HTTP Proxy (Useful for debugging. Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")

	viper.BindPFlag(config.KeyProxy, rootCmd.PersistentFlags().Lookup("proxy"))
	config.Bind(viper.GetViper())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".audimetria")
		viper.SetConfigType("yaml")
	}

	// The config file is optional and never created; CI passes everything
	// through the environment.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(1)
		}
	}

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	if err := utils.SetLogLevel(levelString); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
