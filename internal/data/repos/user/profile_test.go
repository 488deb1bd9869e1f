package user

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/biomarker-backend/internal/data/repos/testutil"
	types "github.com/yungbote/biomarker-backend/internal/domain"
	"github.com/yungbote/biomarker-backend/internal/pkg/dbctx"
)

func TestUserProfileRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewUserProfileRepo(db, testutil.Logger(t))

	userID := uuid.New()
	got, err := repo.GetByUserID(dbc, userID)
	if err != nil || got != nil {
		t.Fatalf("GetByUserID missing: got=%v err=%v", got, err)
	}

	dob := time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC)
	if err := repo.Upsert(dbc, &types.UserProfile{UserID: userID, Gender: "female", DateOfBirth: &dob}); err != nil {
		t.Fatalf("Upsert create: %v", err)
	}
	if err := repo.Upsert(dbc, &types.UserProfile{UserID: userID, Gender: "male", DateOfBirth: &dob}); err != nil {
		t.Fatalf("Upsert update: %v", err)
	}

	got, err = repo.GetByUserID(dbc, userID)
	if err != nil || got == nil {
		t.Fatalf("GetByUserID: got=%v err=%v", got, err)
	}
	if got.Gender != "male" {
		t.Fatalf("Upsert did not update gender: %q", got.Gender)
	}
	n, err := repo.CountUsers(dbc)
	if err != nil || n < 1 {
		t.Fatalf("CountUsers: n=%d err=%v", n, err)
	}
}
