package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	appModels "github.com/yigit/tuitiontrack/internal/app/models"
	appRepos "github.com/yigit/tuitiontrack/internal/app/repositories"
	"github.com/yigit/tuitiontrack/internal/domain"
)

// DemoMobile is the login of the demo tutor.
const DemoMobile = "9999999999"

type demoBatch struct {
	batch    appModels.Batch
	students []appModels.Student
}

func demoBatches() []demoBatch {
	return []demoBatch{
		{
			batch: appModels.Batch{
				Name:                 "Class 10 Maths",
				Description:          "Board exam preparation",
				StartTime:            "17:00",
				EndTime:              "18:00",
				Days:                 "mo,we,fr",
				NotificationsEnabled: true,
			},
			students: []appModels.Student{
				{Name: "Aarav Sharma", Phone: "9000000001", School: "City Public School", Standard: "10"},
				{Name: "Diya Patel", Phone: "9000000002", School: "City Public School", Standard: "10"},
			},
		},
		{
			batch: appModels.Batch{
				Name:                 "Class 8 Science",
				StartTime:            "18:30",
				EndTime:              "19:30",
				Days:                 "tu,th,sa",
				NotificationsEnabled: true,
			},
			students: []appModels.Student{
				{Name: "Kabir Singh", Phone: "9000000003", School: "Green Valley School", Standard: "8"},
			},
		},
	}
}

// CreateDemoData creates a demo tutor with batches, students and one
// homework. Nothing is written when the demo tutor already exists.
func CreateDemoData(ctx context.Context, repos *appRepos.Repositories, clock *domain.Clock, lgr zerolog.Logger) error {
	_, err := repos.TutorRepository.GetByMobile(ctx, DemoMobile)
	if err == nil {
		lgr.Debug().Msg("Demo data already present")
		return nil
	}
	if !errors.Is(err, appRepos.ErrTutorNotFound) {
		return fmt.Errorf("error checking demo tutor: %w", err)
	}

	lgr.Info().Msg("Creating demo data...")
	tutor := &appModels.Tutor{
		Mobile:      DemoMobile,
		Name:        "Demo Tutor",
		TuitionName: "Demo Tuition Centre",
		Address:     "12 MG Road",
		Role:        appModels.RoleTutor,
	}
	if err := repos.TutorRepository.Create(ctx, tutor); err != nil {
		if errors.Is(err, appRepos.ErrMobileExists) {
			return nil
		}
		return fmt.Errorf("error creating demo tutor: %w", err)
	}

	var finalErr error // collect errors without stopping the process
	var firstBatch int64
	for _, db := range demoBatches() {
		batch := db.batch
		batch.UserID = tutor.ID
		if err := repos.BatchRepository.Create(ctx, &batch); err != nil {
			lgr.Error().Err(err).Str("batch", batch.Name).Msg("Error creating demo batch")
			finalErr = errors.Join(finalErr, err)
			continue
		}
		if firstBatch == 0 {
			firstBatch = batch.ID
		}
		for _, st := range db.students {
			st := st
			st.UserID, st.BatchID = tutor.ID, batch.ID
			if err := repos.StudentRepository.Create(ctx, &st); err != nil {
				lgr.Error().Err(err).Str("student", st.Name).Msg("Error creating demo student")
				finalErr = errors.Join(finalErr, err)
			}
		}
	}

	if firstBatch > 0 {
		hw := &appModels.Homework{
			UserID:         tutor.ID,
			BatchID:        &firstBatch,
			Title:          "Quadratic equations",
			Content:        "Solve exercise 4.2, questions **1 to 10**.",
			SubmissionDate: clock.Today().AddDays(3).UTC(),
		}
		if err := repos.HomeworkRepository.Create(ctx, hw); err != nil {
			lgr.Error().Err(err).Msg("Error creating demo homework")
			finalErr = errors.Join(finalErr, err)
		}
	}

	if finalErr == nil {
		lgr.Info().Str("mobile", DemoMobile).Msg("Demo data created")
	}
	return finalErr
}
