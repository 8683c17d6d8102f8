package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/config"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
	"github.com/Shivanand-hulikatti/campus-events/internal/service"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	stressStudents int
	stressCapacity int
)

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Race concurrent registrations against one event",
	Long: `Create a fresh college, an event with --capacity seats and --students
students, then register every student at once. The summary shows how many
registrations won a seat; it never exceeds the capacity.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if stressStudents <= 0 || stressCapacity <= 0 {
			return fmt.Errorf("--students and --capacity must be positive")
		}
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		logger := config.NewLogger(cfg.Logging)

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()

		store, err := openStore(ctx, cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer store.Close()

		eventID, studentIDs, err := prepareStress(ctx, store, stressCapacity, stressStudents)
		if err != nil {
			return err
		}

		ledger := service.NewLedgerService(store, logger)
		results := runBookings(ctx, ledger, eventID, studentIDs)

		var won, full, other int
		for _, res := range results {
			switch {
			case res.Success:
				won++
			case errors.Is(res.Error, service.ErrEventFull):
				full++
			default:
				other++
				logger.Warn().Err(res.Error).Int64("student_id", res.StudentID).Msg("booking failed")
			}
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "event %d capacity %d\n", eventID, stressCapacity)
		fmt.Fprintf(out, "attempts:   %d\n", len(results))
		fmt.Fprintf(out, "registered: %d\n", won)
		fmt.Fprintf(out, "event full: %d\n", full)
		fmt.Fprintf(out, "other:      %d\n", other)
		if won > stressCapacity {
			return fmt.Errorf("capacity exceeded: %d registrations for %d seats", won, stressCapacity)
		}
		return nil
	},
}

func init() {
	stressCmd.Flags().IntVar(&stressStudents, "students", 50, "number of students registering concurrently")
	stressCmd.Flags().IntVar(&stressCapacity, "capacity", 10, "event capacity")
}

func prepareStress(ctx context.Context, store repository.Store, capacity, students int) (int64, []int64, error) {
	var (
		eventID    int64
		studentIDs = make([]int64, 0, students)
	)
	err := store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		collegeID, err := tx.InsertCollege(ctx, fmt.Sprintf("Stress College %d", time.Now().Unix()))
		if err != nil {
			return err
		}
		eventID, err = tx.InsertEvent(ctx, model.Event{
			Title:     "Stress Test",
			Type:      "Load",
			Capacity:  capacity,
			CollegeID: collegeID,
		})
		if err != nil {
			return err
		}
		for i := range students {
			id, err := tx.InsertStudent(ctx, model.Student{Name: fmt.Sprintf("Student %d", i+1), CollegeID: collegeID})
			if err != nil {
				return err
			}
			studentIDs = append(studentIDs, id)
		}
		return nil
	})
	if err != nil {
		return 0, nil, fmt.Errorf("prepare stress data: %w", err)
	}
	return eventID, studentIDs, nil
}

// runBookings registers every student concurrently, one goroutine each.
func runBookings(ctx context.Context, ledger *service.LedgerService, eventID int64, studentIDs []int64) []model.BookingResult {
	admin := model.Principal{Role: model.RoleAdmin}
	results := make([]model.BookingResult, len(studentIDs))

	var g errgroup.Group
	for i, sid := range studentIDs {
		g.Go(func() error {
			regID, err := ledger.RegisterStudent(ctx, admin, eventID, &sid)
			results[i] = model.BookingResult{
				StudentID:      sid,
				RegistrationID: regID,
				Success:        err == nil,
				Error:          err,
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
