package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modeldriven/crm-e2e/test/framework/config"
)

var headedFlag bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the Web API session and the tables the suite needs",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in through the browser and save the session",
	Long: `login signs in to the model-driven app with the username, password and
TOTP secret from the environment, then saves the browser storage state. Later
commands and the end-to-end suite reuse the saved cookies.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().BoolVar(&headedFlag, "headed", false, "Show the browser window")

	rootCmd.AddCommand(checkCmd, loginCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	fw, err := newFramework(ctx, nil)
	if err != nil {
		return err
	}

	result, err := fw.CheckPrerequisites()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.String())
	return result.Err()
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	fw, err := newFramework(ctx, func(env *config.Environment) {
		if headedFlag {
			env.Headless = false
		}
	})
	if err != nil {
		return err
	}
	defer fw.Cleanup()

	if err := fw.Authenticate(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s, session saved to %s\n",
		fw.Environment().Username, fw.Environment().StorageStatePath)
	return nil
}
