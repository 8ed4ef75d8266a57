package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modeldriven/crm-e2e/test/framework"
	"github.com/modeldriven/crm-e2e/test/framework/concurrent"
	"github.com/modeldriven/crm-e2e/test/framework/entity"
	"github.com/modeldriven/crm-e2e/test/framework/record"
	"github.com/modeldriven/crm-e2e/test/framework/retry"
)

var (
	countFlag   int
	cleanupFlag bool
)

var seedCmd = &cobra.Command{
	Use:   "seed TABLE",
	Short: "Create generated contacts or accounts",
	Long: `seed creates --count records with generated values, --parallel at a time.
Throttled (429) or unavailable (503) responses are retried; timeouts are not,
since the record may already exist. With --cleanup the records are
deleted again before the command exits, which makes seed a quick load check.`,
	Example: `  crmctl seed contact --count 50 --parallel 5
  crmctl seed account --count 10 --cleanup`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&countFlag, "count", 10, "Number of records to create")
	seedCmd.Flags().IntVar(&parallelFlag, "parallel", 5, "Maximum concurrent creates")
	seedCmd.Flags().IntVar(&attemptsFlag, "attempts", 3, "Attempts per record when the Web API is throttling or unavailable")
	seedCmd.Flags().BoolVar(&cleanupFlag, "cleanup", false, "Delete the created records before exiting")

	rootCmd.AddCommand(seedCmd)
}

// generator returns a function creating one generated record of the table
func generator(fw *framework.Framework, d *entity.Descriptor) (func() (string, error), error) {
	switch d.LogicalName() {
	case "contact":
		return func() (string, error) { return fw.CreateRecord(record.NewContact().BuildGeneric()) }, nil
	case "account":
		return func() (string, error) { return fw.CreateRecord(record.NewAccount().BuildGeneric()) }, nil
	}
	return nil, fmt.Errorf("no generated values for table %s", d.LogicalName())
}

func runSeed(cmd *cobra.Command, args []string) (err error) {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	if countFlag <= 0 {
		return fmt.Errorf("--count must be positive, got %d", countFlag)
	}
	d, err := resolveTable(args[0])
	if err != nil {
		return err
	}
	fw, err := newFramework(ctx, nil)
	if err != nil {
		return err
	}
	create, err := generator(fw, d)
	if err != nil {
		return err
	}

	if cleanupFlag {
		defer func() {
			err = errors.Join(err, fw.Cleanup())
		}()
	}

	logger := fw.Logger()
	slots := make([]int, countFlag)
	ids, err := concurrent.MapWithLimit(ctx, slots, parallelFlag, func(ctx context.Context, _ int) (string, error) {
		return retry.DoWithData(ctx, func(ctx context.Context) (string, error) {
			return create()
		}, retryOptions(logger, attemptsFlag, retry.IsUnprocessed)...)
	})

	created := 0
	for _, id := range ids {
		if id != "" {
			created++
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
	}
	logger.Info("seed finished", "table", d.LogicalName(), "created", created, "requested", countFlag)

	if err != nil {
		return fmt.Errorf("created %d of %d %s records: %w", created, countFlag, d.LogicalName(), err)
	}
	return nil
}
