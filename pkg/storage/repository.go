package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/earlycare-ai/gateway/pkg/common/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrDecisionNotFound = errors.New("decision not found")
	ErrRecordNotFound   = errors.New("patient record not found")
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type DecisionModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	RequestID    string    `gorm:"uniqueIndex"`
	PatientID    string    `gorm:"index"`
	UrgencyLevel string    `gorm:"index"`
	TriageScore  float64
	Payload      datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time
}

func (DecisionModel) TableName() string {
	return "decisions"
}

type RecordModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	EncounterID string    `gorm:"uniqueIndex"`
	PatientID   string    `gorm:"index"`
	Priority    string
	Payload     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt   time.Time
}

func (RecordModel) TableName() string {
	return "patient_records"
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&DecisionModel{}, &RecordModel{})
}

// SaveDecision persists a decision keyed by request ID. The save is
// idempotent: a second save with the same request ID is a no-op.
func (r *Repository) SaveDecision(ctx context.Context, decision *models.DecisionSupport) error {
	var existing int64
	if err := r.db.WithContext(ctx).Model(&DecisionModel{}).
		Where("request_id = ?", decision.RequestID).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	payload, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("failed to marshal decision: %w", err)
	}

	row := DecisionModel{
		ID:           uuid.New(),
		RequestID:    decision.RequestID,
		PatientID:    decision.PatientID,
		UrgencyLevel: string(decision.UrgencyLevel),
		TriageScore:  decision.TriageScore,
		Payload:      datatypes.JSON(payload),
		CreatedAt:    time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *Repository) GetDecision(ctx context.Context, requestID string) (*models.DecisionSupport, error) {
	var row DecisionModel
	err := r.db.WithContext(ctx).Where("request_id = ?", requestID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDecisionNotFound
	}
	if err != nil {
		return nil, err
	}

	var decision models.DecisionSupport
	if err := json.Unmarshal(row.Payload, &decision); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decision %s: %w", requestID, err)
	}
	return &decision, nil
}

// ListPatientDecisions returns the most recent decisions for a patient,
// newest first.
func (r *Repository) ListPatientDecisions(ctx context.Context, patientID string, limit int) ([]*models.DecisionSupport, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows []DecisionModel
	err := r.db.WithContext(ctx).Where("patient_id = ?", patientID).
		Order("created_at DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]*models.DecisionSupport, 0, len(rows))
	for _, row := range rows {
		var decision models.DecisionSupport
		if err := json.Unmarshal(row.Payload, &decision); err != nil {
			return nil, fmt.Errorf("failed to unmarshal decision %s: %w", row.RequestID, err)
		}
		out = append(out, &decision)
	}
	return out, nil
}

// SaveRecord persists the incoming encounter keyed by encounter ID,
// idempotently.
func (r *Repository) SaveRecord(ctx context.Context, record *models.PatientRecord) error {
	encounterID := record.EncounterID
	if encounterID == "" {
		encounterID = uuid.New().String()
		record.EncounterID = encounterID
	}

	var existing int64
	if err := r.db.WithContext(ctx).Model(&RecordModel{}).
		Where("encounter_id = ?", encounterID).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	patientID := ""
	if record.Patient != nil {
		patientID = record.Patient.PatientID
	}

	row := RecordModel{
		ID:          uuid.New(),
		EncounterID: encounterID,
		PatientID:   patientID,
		Priority:    string(record.Priority),
		Payload:     datatypes.JSON(payload),
		CreatedAt:   time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *Repository) GetRecord(ctx context.Context, encounterID string) (*models.PatientRecord, error) {
	var row RecordModel
	err := r.db.WithContext(ctx).Where("encounter_id = ?", encounterID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	var record models.PatientRecord
	if err := json.Unmarshal(row.Payload, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record %s: %w", encounterID, err)
	}
	return &record, nil
}
