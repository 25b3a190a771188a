package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		phone VARCHAR(32),
		role VARCHAR(32) NOT NULL,
		password VARCHAR(255) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT chk_users_role CHECK (role IN ('admin', 'technician', 'client', 'user'))
	);`,
	`CREATE INDEX IF NOT EXISTS idx_users_role ON users (role);`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		priority VARCHAR(16) NOT NULL,
		status VARCHAR(32) NOT NULL DEFAULT 'open',
		category VARCHAR(255) NOT NULL,
		assigned_to BIGINT REFERENCES users(id) ON DELETE SET NULL,
		cancellation_reason TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT chk_tickets_priority CHECK (priority IN ('low', 'medium', 'high', 'urgent')),
		CONSTRAINT chk_tickets_status CHECK (status IN ('open', 'assigned', 'in_progress', 'resolved', 'closed', 'cancelled'))
	);`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_user_id ON tickets (user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_assigned_to ON tickets (assigned_to);`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets (status);`,
	`CREATE TABLE IF NOT EXISTS interventions (
		id BIGSERIAL PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		description TEXT,
		status VARCHAR(32) NOT NULL DEFAULT 'pending',
		scheduled_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		ticket_id BIGINT REFERENCES tickets(id) ON DELETE SET NULL,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		location VARCHAR(255),
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT chk_interventions_status CHECK (status IN ('pending', 'scheduled', 'in_progress', 'completed', 'cancelled'))
	);`,
	`CREATE INDEX IF NOT EXISTS idx_interventions_ticket_id ON interventions (ticket_id);`,
	`CREATE INDEX IF NOT EXISTS idx_interventions_user_id ON interventions (user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_interventions_scheduled_at ON interventions (scheduled_at);`,
	`CREATE TABLE IF NOT EXISTS plannings (
		id BIGSERIAL PRIMARY KEY,
		intervention_id BIGINT NOT NULL REFERENCES interventions(id) ON DELETE CASCADE,
		technician_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		planned_date DATE NOT NULL,
		status VARCHAR(32) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_plannings_intervention_id ON plannings (intervention_id);`,
	`CREATE INDEX IF NOT EXISTS idx_plannings_technician_date ON plannings (technician_id, planned_date);`,
	`CREATE TABLE IF NOT EXISTS intervention_reports (
		id BIGSERIAL PRIMARY KEY,
		intervention_id BIGINT NOT NULL REFERENCES interventions(id) ON DELETE CASCADE,
		technician_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		report TEXT NOT NULL,
		content TEXT,
		worked_hours NUMERIC(6, 2),
		status VARCHAR(16) NOT NULL DEFAULT 'draft',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT chk_intervention_reports_status CHECK (status IN ('draft', 'submitted', 'approved'))
	);`,
	`CREATE INDEX IF NOT EXISTS idx_intervention_reports_intervention_id ON intervention_reports (intervention_id);`,
	`CREATE TABLE IF NOT EXISTS intervention_status_log (
		id BIGSERIAL PRIMARY KEY,
		intervention_id BIGINT NOT NULL REFERENCES interventions(id) ON DELETE CASCADE,
		old_status VARCHAR(32),
		new_status VARCHAR(32) NOT NULL,
		note TEXT,
		changed_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_intervention_status_log_intervention_id ON intervention_status_log (intervention_id);`,
	`CREATE TABLE IF NOT EXISTS comments (
		id BIGSERIAL PRIMARY KEY,
		ticket_id BIGINT NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_comments_ticket_id ON comments (ticket_id);`,
	`CREATE TABLE IF NOT EXISTS messages (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		subject VARCHAR(255) NOT NULL,
		message TEXT NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id UUID PRIMARY KEY,
		type VARCHAR(64) NOT NULL,
		notifiable_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		data JSONB NOT NULL,
		dedup_key VARCHAR(128),
		read_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_notifiable_id ON notifications (notifiable_id, read_at);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_notifications_dedup
		ON notifications (notifiable_id, type, dedup_key)
		WHERE dedup_key IS NOT NULL;`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id UUID PRIMARY KEY,
		event_type VARCHAR(64) NOT NULL,
		aggregate_id BIGINT NOT NULL,
		recipients JSONB NOT NULL DEFAULT '[]',
		payload JSONB NOT NULL,
		attempts INT NOT NULL DEFAULT 0,
		last_error TEXT,
		delivered_at TIMESTAMPTZ,
		dropped_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_events_pending
		ON outbox_events (created_at)
		WHERE delivered_at IS NULL AND dropped_at IS NULL;`,
	`CREATE OR REPLACE FUNCTION set_row_updated_at()
	RETURNS TRIGGER AS $$
	BEGIN
		NEW.updated_at = NOW();
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql;`,
	`DO $$
	DECLARE
		tbl TEXT;
	BEGIN
		FOREACH tbl IN ARRAY ARRAY['users', 'tickets', 'interventions', 'plannings', 'intervention_reports', 'comments', 'messages', 'notifications']
		LOOP
			IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_' || tbl || '_updated_at') THEN
				EXECUTE format(
					'CREATE TRIGGER %I BEFORE UPDATE ON %I FOR EACH ROW EXECUTE PROCEDURE set_row_updated_at()',
					'trg_' || tbl || '_updated_at', tbl
				);
			END IF;
		END LOOP;
	END
	$$;`,
}

// Migrate applies the idempotent schema statements in order.
func Migrate(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
