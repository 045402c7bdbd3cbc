package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"upkeep/internal/ipc"
	"upkeep/internal/schedule"
)

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage recurring maintenance schedules",
	}

	cmd.AddCommand(newScheduleListCommand(ctx))
	cmd.AddCommand(newScheduleShowCommand(ctx))
	cmd.AddCommand(newScheduleCreateCommand(ctx))
	cmd.AddCommand(newScheduleUpdateCommand(ctx))
	cmd.AddCommand(newScheduleDeleteCommand(ctx))
	cmd.AddCommand(newScheduleRunNowCommand(ctx))
	return cmd
}

func newScheduleListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ScheduleList()
				if err != nil {
					return err
				}
				if len(resp.Schedules) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No schedules defined")
					return nil
				}

				rows := make([][]string, 0, len(resp.Schedules))
				for _, def := range resp.Schedules {
					rows = append(rows, []string{
						def.ID,
						def.Name,
						string(def.Frequency),
						def.TimeOfDay,
						formatRecurrence(def),
						strings.Join(def.Operations, ","),
						yesNo(def.Enabled),
						formatFireTime(def.NextFire),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Name", "Frequency", "Time", "Days", "Operations", "Enabled", "Next fire"},
					rows,
					nil,
				))
				return nil
			})
		},
	}
}

func newScheduleShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one schedule in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ScheduleGet(args[0])
				if err != nil {
					return err
				}
				def := resp.Schedule
				rows := [][]string{
					{"ID", def.ID},
					{"Name", def.Name},
					{"Frequency", string(def.Frequency)},
					{"Time of day", def.TimeOfDay},
					{"Days", formatRecurrence(def)},
					{"Operations", strings.Join(def.Operations, ", ")},
					{"Enabled", yesNo(def.Enabled)},
					{"Last fired", formatFireTime(def.LastFired)},
					{"Next fire", formatFireTime(def.NextFire)},
					{"Created", formatFireTime(def.CreatedAt)},
					{"Updated", formatFireTime(def.UpdatedAt)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
				return nil
			})
		},
	}
}

type scheduleFlags struct {
	name       string
	operations []string
	frequency  string
	timeOfDay  string
	weekdays   []string
	dayOfMonth int
	disabled   bool
	force      bool
}

func (f *scheduleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Human-readable schedule name")
	cmd.Flags().StringSliceVar(&f.operations, "ops", nil, "Operations to run, comma separated")
	cmd.Flags().StringVar(&f.frequency, "frequency", "", "daily, weekly, or monthly")
	cmd.Flags().StringVar(&f.timeOfDay, "time", "", "Fire time as HH:MM")
	cmd.Flags().StringSliceVar(&f.weekdays, "weekdays", nil, "Weekdays for weekly schedules (mon,tue,...)")
	cmd.Flags().IntVar(&f.dayOfMonth, "day-of-month", 0, "Day of month for monthly schedules")
	cmd.Flags().BoolVar(&f.disabled, "disabled", false, "Create the schedule disabled")
	cmd.Flags().BoolVar(&f.force, "force", false, "Persist even when conflicts are detected")
}

// apply copies the flags the user actually set onto def.
func (f *scheduleFlags) apply(cmd *cobra.Command, def *schedule.Definition) error {
	if cmd.Flags().Changed("name") {
		def.Name = f.name
	}
	if cmd.Flags().Changed("ops") {
		def.Operations = f.operations
	}
	if cmd.Flags().Changed("frequency") {
		def.Frequency = schedule.Frequency(f.frequency)
	}
	if cmd.Flags().Changed("time") {
		def.TimeOfDay = f.timeOfDay
	}
	if cmd.Flags().Changed("weekdays") {
		days, err := parseWeekdays(f.weekdays)
		if err != nil {
			return err
		}
		def.Weekdays = days
	}
	if cmd.Flags().Changed("day-of-month") {
		def.DayOfMonth = f.dayOfMonth
	}
	if cmd.Flags().Changed("disabled") {
		def.Enabled = !f.disabled
	}
	return nil
}

func newScheduleCreateCommand(ctx *commandContext) *cobra.Command {
	flags := &scheduleFlags{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			def := schedule.Definition{Enabled: true}
			if err := flags.apply(cmd, &def); err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ScheduleCreate(ipc.ScheduleCreateRequest{Schedule: def, Force: flags.force})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				printConflicts(out, resp.Conflicts)
				if !resp.Created {
					return fmt.Errorf("schedule not created; rerun with --force to override")
				}
				fmt.Fprintf(out, "Created schedule %s (next fire %s)\n",
					resp.Schedule.ID, formatFireTime(resp.Schedule.NextFire))
				return nil
			})
		},
	}

	flags.register(cmd)
	return cmd
}

func newScheduleUpdateCommand(ctx *commandContext) *cobra.Command {
	flags := &scheduleFlags{}

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				existing, err := client.ScheduleGet(args[0])
				if err != nil {
					return err
				}
				def := existing.Schedule
				if err := flags.apply(cmd, &def); err != nil {
					return err
				}

				resp, err := client.ScheduleUpdate(ipc.ScheduleUpdateRequest{Schedule: def, Force: flags.force})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				printConflicts(out, resp.Conflicts)
				if !resp.Updated {
					return fmt.Errorf("schedule not updated; rerun with --force to override")
				}
				fmt.Fprintf(out, "Updated schedule %s (next fire %s)\n",
					resp.Schedule.ID, formatFireTime(resp.Schedule.NextFire))
				return nil
			})
		},
	}

	flags.register(cmd)
	return cmd
}

func newScheduleDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.ScheduleDelete(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted schedule %s\n", args[0])
				return nil
			})
		},
	}
}

func newScheduleRunNowCommand(ctx *commandContext) *cobra.Command {
	var detach bool

	cmd := &cobra.Command{
		Use:   "run-now <id>",
		Short: "Fire a schedule immediately without shifting its recurrence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ScheduleRunNow(args[0])
				if err != nil {
					return err
				}
				if detach {
					fmt.Fprintf(cmd.OutOrStdout(), "Run started (epoch %d)\n", resp.Epoch)
					return nil
				}
				return streamRun(cmd.Context(), cmd, client, resp.Epoch)
			})
		},
	}

	cmd.Flags().BoolVar(&detach, "detach", false, "Start the run without streaming output")
	return cmd
}

func printConflicts(out io.Writer, conflicts []string) {
	for _, conflict := range conflicts {
		fmt.Fprintf(out, "conflict: %s\n", conflict)
	}
}

func formatRecurrence(def schedule.Definition) string {
	switch def.Frequency {
	case schedule.Weekly:
		names := make([]string, 0, len(def.Weekdays))
		days := append([]time.Weekday(nil), def.Weekdays...)
		sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
		for _, day := range days {
			names = append(names, day.String()[:3])
		}
		return strings.Join(names, ",")
	case schedule.Monthly:
		return fmt.Sprintf("day %d", def.DayOfMonth)
	default:
		return "every day"
	}
}

func formatFireTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

func parseWeekdays(values []string) ([]time.Weekday, error) {
	days := make([]time.Weekday, 0, len(values))
	for _, value := range values {
		day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(value))]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", value)
		}
		days = append(days, day)
	}
	return days, nil
}
