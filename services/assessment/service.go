package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tech-arch1tect/ecostep/services/logging"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrIncomplete = errors.New("assessment is missing answers")
	ErrNoResult   = errors.New("no assessment result")
)

type Service struct {
	db            *gorm.DB
	questionnaire *Questionnaire
	logger        *logging.Service
}

func NewService(db *gorm.DB, questionnaire *Questionnaire, logger *logging.Service) *Service {
	return &Service{
		db:            db,
		questionnaire: questionnaire,
		logger:        logger.Named("assessment"),
	}
}

func (s *Service) Questionnaire() *Questionnaire {
	return s.questionnaire
}

// Submit stores a completed assessment with its computed breakdown.
func (s *Service) Submit(ctx context.Context, accountID uint, answers Answers) (*Result, error) {
	if !s.questionnaire.Complete(answers) {
		return nil, ErrIncomplete
	}

	raw, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode answers: %w", err)
	}

	b := s.questionnaire.Footprint(answers)
	result := &Result{
		AccountID: accountID,
		Answers:   datatypes.JSON(raw),
		Transport: b.Transport,
		Energy:    b.Energy,
		Food:      b.Food,
		Total:     b.Total,
	}

	if err := s.db.WithContext(ctx).Create(result).Error; err != nil {
		return nil, fmt.Errorf("failed to save assessment: %w", err)
	}

	s.logger.Info("assessment submitted",
		zap.Uint("account_id", accountID),
		zap.Float64("total", b.Total))
	return result, nil
}

func (s *Service) Latest(ctx context.Context, accountID uint) (*Result, error) {
	var result Result
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC, id DESC").
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoResult
		}
		return nil, fmt.Errorf("failed to load assessment: %w", err)
	}
	return &result, nil
}

func (s *Service) History(ctx context.Context, accountID uint, limit int) ([]Result, error) {
	var results []Result
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&results).Error
	return results, err
}
