package database

import (
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/config"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/visit"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/events"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:                                   newGormLogger(log, cfg.SlowQueryThreshold),
		PrepareStmt:                              true,
		DisableForeignKeyConstraintWhenMigrating: false,
		DisableAutomaticPing:                     false,
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: false,
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	start := time.Now()

	schemas := []string{"clinical", "audit"} // logical namespace
	for _, schema := range schemas {
		if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)).Error; err != nil {
			return fmt.Errorf("creating schema %s: %w", schema, err)
		}
	}

	// btree_gist lets the schedule exclusion constraint mix uuid/date
	// equality with range overlap.
	for _, ext := range []string{"btree_gist", "pg_trgm"} {
		if err := db.Exec(fmt.Sprintf("CREATE EXTENSION IF NOT EXISTS %s", ext)).Error; err != nil {
			return fmt.Errorf("creating extension %s: %w", ext, err)
		}
	}

	models := []any{
		&domain.AuditLog{},
		&patient.Patient{},
		&visit.Visit{},
		&appointment.Appointment{},
		&events.Entry{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}

	if err := createConstraints(db); err != nil {
		return fmt.Errorf("creating constraints: %w", err)
	}

	if err := createIndexes(db, log); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}

	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

// ScheduleExclusionConstraint is the name storage errors carry when two
// blocking appointments of one doctor overlap.
const ScheduleExclusionConstraint = "appointments_no_overlap"

func createConstraints(db *gorm.DB) error {
	constraints := []struct {
		name  string
		query string
	}{
		{
			name: ScheduleExclusionConstraint,
			query: `ALTER TABLE clinical.appointments ADD CONSTRAINT ` + ScheduleExclusionConstraint + `
				EXCLUDE USING gist (
					doctor_id WITH =,
					appointment_date WITH =,
					int4range(start_minute, end_minute) WITH &&
				) WHERE (status NOT IN ('cancelled', 'no_show'))`,
		},
		{
			name:  "appointments_valid_range",
			query: `ALTER TABLE clinical.appointments ADD CONSTRAINT appointments_valid_range CHECK (start_minute >= 0 AND end_minute <= 1440 AND start_minute < end_minute)`,
		},
		{
			name:  "visits_previous_visit_fk",
			query: `ALTER TABLE clinical.visits ADD CONSTRAINT visits_previous_visit_fk FOREIGN KEY (previous_visit_id) REFERENCES clinical.visits (id)`,
		},
	}

	for _, c := range constraints {
		var exists bool
		if err := db.Raw(`SELECT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = ?)`, c.name).Scan(&exists).Error; err != nil {
			return fmt.Errorf("checking constraint %s: %w", c.name, err)
		}
		if exists {
			continue
		}
		if err := db.Exec(c.query).Error; err != nil {
			return fmt.Errorf("adding constraint %s: %w", c.name, err)
		}
	}
	return nil
}

func createIndexes(db *gorm.DB, log *zap.Logger) error {
	indexes := []struct {
		name  string
		query string
	}{
		{
			name:  "idx_appointments_doctor_schedule",
			query: `CREATE INDEX IF NOT EXISTS idx_appointments_doctor_schedule ON clinical.appointments (doctor_id, appointment_date, start_minute) WHERE status NOT IN ('cancelled', 'no_show')`,
		},
		// Patient search: trigram index on the full name
		{
			name:  "idx_patients_name_trgm",
			query: `CREATE INDEX IF NOT EXISTS idx_patients_name_trgm ON clinical.patients USING gin ((first_name || ' ' || last_name) gin_trgm_ops)`,
		},
		{
			name:  "idx_visits_patient_timeline",
			query: `CREATE INDEX IF NOT EXISTS idx_visits_patient_timeline ON clinical.visits (patient_id, visit_date DESC, created_at DESC)`,
		},
		{
			name:  "idx_outbox_pending",
			query: `CREATE INDEX IF NOT EXISTS idx_outbox_pending ON clinical.outbox (created_at) WHERE delivered_at IS NULL`,
		},
	}

	// Indexes only speed reads, so a failure is logged rather than fatal.
	for _, idx := range indexes {
		if err := db.Exec(idx.query).Error; err != nil {
			log.Warn("could not create index", zap.String("index", idx.name), zap.Error(err))
		}
	}

	return nil
}
