package service

import (
	"context"
	"fmt"

	"github.com/Shivanand-hulikatti/campus-events/internal/auth"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
	"github.com/rs/zerolog"
)

type demoUser struct {
	email    string
	password string
	role     model.Role
	student  string
}

var (
	demoCollege  = "Acharya Institute"
	demoStudents = []string{"Alice", "Bob"}
	demoEvents   = []model.Event{
		{Title: "AI Workshop", Type: "Workshop", Capacity: 100},
		{Title: "HackWithInfy", Type: "Hackathon", Capacity: 200},
	}
	demoUsers = []demoUser{
		{email: "admin@demo", password: "adminpass", role: model.RoleAdmin},
		{email: "alice@demo", password: "alicepass", role: model.RoleStudent, student: "Alice"},
		{email: "bob@demo", password: "bobpass", role: model.RoleStudent, student: "Bob"},
	}
)

// Seed loads the demo college, students, events and logins into an empty
// store. It reports false without writing anything when a college already
// exists.
func Seed(ctx context.Context, store repository.Store, logger zerolog.Logger) (bool, error) {
	hashes := make([]string, len(demoUsers))
	for i, u := range demoUsers {
		h, err := auth.HashPassword(u.password)
		if err != nil {
			return false, err
		}
		hashes[i] = h
	}

	seeded := false
	err := store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		n, err := tx.CountColleges(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}

		collegeID, err := tx.InsertCollege(ctx, demoCollege)
		if err != nil {
			return fmt.Errorf("seed college: %w", err)
		}

		students := make(map[string]int64, len(demoStudents))
		for _, name := range demoStudents {
			id, err := tx.InsertStudent(ctx, model.Student{Name: name, CollegeID: collegeID})
			if err != nil {
				return fmt.Errorf("seed student %s: %w", name, err)
			}
			students[name] = id
		}

		for _, e := range demoEvents {
			e.CollegeID = collegeID
			if _, err := tx.InsertEvent(ctx, e); err != nil {
				return fmt.Errorf("seed event %s: %w", e.Title, err)
			}
		}

		for i, u := range demoUsers {
			cred := model.UserCredential{Email: u.email, PasswordHash: hashes[i], Role: u.role}
			if u.student != "" {
				id := students[u.student]
				cred.StudentID = &id
			}
			if _, err := tx.InsertUser(ctx, cred); err != nil {
				return fmt.Errorf("seed user %s: %w", u.email, err)
			}
		}
		seeded = true
		return nil
	})
	if err != nil {
		return false, translate(err)
	}

	if seeded {
		logger.Info().Str("college", demoCollege).Msg("demo data seeded")
	} else {
		logger.Info().Msg("store already has data, seed skipped")
	}
	return seeded, nil
}
