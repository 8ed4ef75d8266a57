package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/modeldriven/crm-e2e/test/framework"
	"github.com/modeldriven/crm-e2e/test/framework/concurrent"
	"github.com/modeldriven/crm-e2e/test/framework/entity"
	"github.com/modeldriven/crm-e2e/test/framework/record"
	"github.com/modeldriven/crm-e2e/test/framework/retry"
	"github.com/modeldriven/crm-e2e/test/framework/webapi"
)

// retryDelay is the first wait between attempts
var retryDelay = 2 * time.Second

var (
	selectFlag     []string
	setFlag        []string
	genericFlag    bool
	deactivateFlag bool
	waitFlag       bool
	parallelFlag   int
	attemptsFlag   int
)

var getCmd = &cobra.Command{
	Use:   "get TABLE [ID]",
	Short: "Read one record, or every record of a table",
	Example: `  crmctl get contact 3f1c0e0a-7d5b-ef11-bfe3-000d3a2b7c11 --select firstname,lastname
  crmctl get accounts -o json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runGet,
}

var createCmd = &cobra.Command{
	Use:   "create TABLE",
	Short: "Create a record from column assignments",
	Example: `  crmctl create contact --set firstname=Ada --set lastname=Lovelace
  crmctl create contact --generic --set emailaddress1=ada@example.com
  crmctl create account --set name=Contoso --set "revenue:=125000"`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

var updateCmd = &cobra.Command{
	Use:   "update TABLE ID",
	Short: "Update columns of a record, or deactivate it",
	Example: `  crmctl update contact 3f1c0e0a-7d5b-ef11-bfe3-000d3a2b7c11 --set telephone1=555-0100
  crmctl update contact 3f1c0e0a-7d5b-ef11-bfe3-000d3a2b7c11 --deactivate`,
	Args: cobra.ExactArgs(2),
	RunE: runUpdate,
}

var deleteCmd = &cobra.Command{
	Use:   "delete TABLE ID...",
	Short: "Delete records",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runDelete,
}

var cloneCmd = &cobra.Command{
	Use:   "clone TABLE ID",
	Short: "Create a copy of a record from its required columns",
	Args:  cobra.ExactArgs(2),
	RunE:  runClone,
}

func init() {
	getCmd.Flags().StringSliceVar(&selectFlag, "select", nil, "Columns to return")
	getCmd.Flags().IntVar(&attemptsFlag, "attempts", 3, "Attempts when the Web API is throttling or unavailable")

	createCmd.Flags().StringArrayVar(&setFlag, "set", nil, "Column assignment, column=value or column:=json (repeatable)")
	createCmd.Flags().BoolVar(&genericFlag, "generic", false, "Start from generated values for contact and account")
	createCmd.Flags().IntVar(&attemptsFlag, "attempts", 3, "Attempts when the Web API is throttling or unavailable")

	updateCmd.Flags().StringArrayVar(&setFlag, "set", nil, "Column assignment, column=value or column:=json (repeatable)")
	updateCmd.Flags().BoolVar(&deactivateFlag, "deactivate", false, "Set the record inactive")
	updateCmd.Flags().BoolVar(&waitFlag, "wait", false, "Wait until the record reads back as deactivated")

	deleteCmd.Flags().BoolVar(&waitFlag, "wait", false, "Wait until the records can no longer be read")
	deleteCmd.Flags().IntVar(&parallelFlag, "parallel", 5, "Maximum concurrent deletes")

	rootCmd.AddCommand(getCmd, createCmd, updateCmd, deleteCmd, cloneCmd)
}

// gateway returns the framework's Web API gateway or explains how to get one
func gateway(fw *framework.Framework) (*webapi.Gateway, error) {
	gw := fw.Gateway()
	if gw == nil {
		return nil, fmt.Errorf("%w: run \"crmctl login\" or configure an application user", framework.ErrNoCredentials)
	}
	return gw, nil
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	d, err := resolveTable(args[0])
	if err != nil {
		return err
	}
	fw, err := newFramework(ctx, nil)
	if err != nil {
		return err
	}

	// reads are idempotent
	opts := retryOptions(fw.Logger(), attemptsFlag, retry.IsTransient)
	if len(args) == 2 {
		row, err := retry.DoWithData(ctx, func(ctx context.Context) (webapi.Row, error) {
			return fw.FetchRecord(d.LogicalCollectionName(), args[1], selectFlag...)
		}, opts...)
		if err != nil {
			return err
		}
		return writeRecords(cmd.OutOrStdout(), outputFlag, row)
	}

	rows, err := retry.DoWithData(ctx, func(ctx context.Context) ([]webapi.Row, error) {
		return fw.ListRecords(d.LogicalCollectionName(), selectFlag...)
	}, opts...)
	if err != nil {
		return err
	}
	return writeRecords(cmd.OutOrStdout(), outputFlag, rows)
}

// genericFields returns generated values for tables that have a builder
func genericFields(d *entity.Descriptor) (map[string]any, error) {
	switch d.LogicalName() {
	case "contact":
		return record.NewContact().BuildGeneric().Fields(), nil
	case "account":
		return record.NewAccount().BuildGeneric().Fields(), nil
	}
	return nil, fmt.Errorf("no generated values for table %s", d.LogicalName())
}

func runCreate(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	d, err := resolveTable(args[0])
	if err != nil {
		return err
	}

	fields := map[string]any{}
	if genericFlag {
		if fields, err = genericFields(d); err != nil {
			return err
		}
	}
	assigned, err := parseAssignments(setFlag)
	if err != nil {
		return err
	}
	for k, v := range assigned {
		fields[k] = v
	}
	if len(fields) == 0 {
		return fmt.Errorf("nothing to create: pass --set or --generic")
	}

	fw, err := newFramework(ctx, nil)
	if err != nil {
		return err
	}
	gw, err := gateway(fw)
	if err != nil {
		return err
	}

	id, err := retry.DoWithData(ctx, func(ctx context.Context) (string, error) {
		return gw.Post(ctx, d.LogicalCollectionName(), webapi.WriteRequest{Data: fields})
	}, retryOptions(fw.Logger(), attemptsFlag, retry.IsUnprocessed)...)
	if err != nil {
		return framework.NewRecordError(d.LogicalCollectionName(), "", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	d, err := resolveTable(args[0])
	if err != nil {
		return err
	}
	fields, err := parseAssignments(setFlag)
	if err != nil {
		return err
	}
	if len(fields) == 0 && !deactivateFlag {
		return fmt.Errorf("nothing to update: pass --set or --deactivate")
	}

	fw, err := newFramework(ctx, nil)
	if err != nil {
		return err
	}

	id := args[1]
	if len(fields) > 0 {
		status, err := fw.UpdateRecord(d.LogicalCollectionName(), id, fields)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "updated %s(%s): %d\n", d.LogicalCollectionName(), id, status)
	}
	if deactivateFlag {
		status, err := fw.DeactivateRecord(d.LogicalCollectionName(), id)
		if err != nil {
			return err
		}
		if waitFlag {
			if _, err := fw.WaitForRecordMatching(d.LogicalCollectionName(), id, isInactive); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deactivated %s(%s): %d\n", d.LogicalCollectionName(), id, status)
	}
	return nil
}

func isInactive(row webapi.Row) bool {
	state, _ := row.String("statecode")
	return state == strconv.Itoa(framework.StateCodeInactive)
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	d, err := resolveTable(args[0])
	if err != nil {
		return err
	}
	fw, err := newFramework(ctx, nil)
	if err != nil {
		return err
	}
	gw, err := gateway(fw)
	if err != nil {
		return err
	}

	collection := d.LogicalCollectionName()
	ids := args[1:]
	err = concurrent.ForEachWithLimit(ctx, ids, parallelFlag, func(ctx context.Context, id string) error {
		if _, err := gw.Delete(ctx, collection, id); err != nil && !webapi.IsNotFound(err) {
			return framework.NewRecordError(collection, id, err)
		}
		if waitFlag {
			if err := fw.WaitForRecordDeleted(collection, id); err != nil {
				return framework.NewRecordError(collection, id, err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s(%s)\n", collection, id)
		return nil
	})
	return err
}

func runClone(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	d, err := resolveTable(args[0])
	if err != nil {
		return err
	}
	fw, err := newFramework(ctx, nil)
	if err != nil {
		return err
	}

	id, err := fw.CloneRecord(d, args[1])
	if err != nil {
		return err
	}
	// The clone is kept; the framework only tracks it.
	if err := fw.UntrackRecord(d.LogicalCollectionName(), id); err != nil {
		return err
	}

	return writeRecords(cmd.OutOrStdout(), outputFlag, map[string]any{
		"id":     id,
		"copied": d.Fields,
	})
}

// retryOptions builds the retry policy of a command. Creates must pass
// retry.IsUnprocessed so a committed row is never posted twice.
func retryOptions(logger *slog.Logger, attempts int, retryIf func(error) bool) []retry.Option {
	return []retry.Option{
		retry.WithMaxAttempts(attempts),
		retry.WithInitialDelay(retryDelay),
		retry.WithRetryIf(retryIf),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			logger.Warn("Web API request failed, retrying",
				"attempt", attempt,
				"delay", delay.Round(time.Millisecond),
				"error", err)
		}),
	}
}
