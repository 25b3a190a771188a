package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"maintenance-service/internal/model"
)

// dryRunDB builds statements against the postgres dialect without a server
// and records the SQL each create or query would have sent.
func dryRunDB(t *testing.T) (*gorm.DB, *[]string) {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=maintenance dbname=maintenance sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	if err != nil {
		t.Fatalf("open dry-run db: %v", err)
	}

	var statements []string
	record := func(tx *gorm.DB) {
		statements = append(statements, tx.Statement.SQL.String())
	}
	if err := db.Callback().Create().After("gorm:create").Register("test:record_sql", record); err != nil {
		t.Fatalf("register create callback: %v", err)
	}
	if err := db.Callback().Query().After("gorm:query").Register("test:record_sql", record); err != nil {
		t.Fatalf("register query callback: %v", err)
	}
	return db, &statements
}

func findStatement(statements []string, fragments ...string) (string, bool) {
	for _, sql := range statements {
		matched := true
		for _, fragment := range fragments {
			if !strings.Contains(sql, fragment) {
				matched = false
				break
			}
		}
		if matched {
			return sql, true
		}
	}
	return "", false
}

func TestNotificationInsertSkipsDuplicates(t *testing.T) {
	db, statements := dryRunDB(t)
	key := "intervention:7:assigned"

	_, err := NewNotificationRepository(db).InsertUnique(context.Background(), &model.Notification{
		Type:         model.NotificationInterventionAssigned,
		NotifiableID: 3,
		DedupKey:     &key,
	})
	if err != nil {
		t.Fatalf("InsertUnique: %v", err)
	}

	if _, ok := findStatement(*statements, `INSERT INTO "notifications"`, "ON CONFLICT DO NOTHING"); !ok {
		t.Errorf("no conflict-tolerant insert in %q", *statements)
	}
}

func TestPlanningUpsertUpdatesInPlace(t *testing.T) {
	db, statements := dryRunDB(t)

	err := NewPlanningRepository(db).Upsert(context.Background(), &model.Planning{
		InterventionID: 7,
		TechnicianID:   3,
		PlannedDate:    time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
		Status:         "scheduled",
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	sql, ok := findStatement(*statements, `INSERT INTO "plannings"`)
	if !ok {
		t.Fatalf("no insert in %q", *statements)
	}
	if !strings.Contains(sql, `ON CONFLICT ("intervention_id") DO UPDATE SET`) {
		t.Errorf("upsert does not target intervention_id: %s", sql)
	}
	for _, column := range []string{"technician_id", "planned_date", "status", "updated_at"} {
		if !strings.Contains(sql, `"`+column+`"="excluded"."`+column+`"`) {
			t.Errorf("upsert does not refresh %s: %s", column, sql)
		}
	}
}

func TestInterventionGetForUpdateLocksRow(t *testing.T) {
	db, statements := dryRunDB(t)

	if _, err := NewInterventionRepository(db).GetForUpdate(context.Background(), 7); err != nil {
		t.Fatalf("GetForUpdate: %v", err)
	}

	if _, ok := findStatement(*statements, `FROM "interventions"`, "FOR UPDATE"); !ok {
		t.Errorf("no locking select in %q", *statements)
	}
}
