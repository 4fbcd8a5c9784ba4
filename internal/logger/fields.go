package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldProvider is the structured log field key for the AI provider name.
	FieldProvider = "ai_provider"
	// FieldModel is the structured log field key for the AI model identifier.
	FieldModel = "ai_model"

	FieldQuerySkills     = "query_skills"
	FieldQueryTitle      = "query_title"
	FieldQueryExperience = "query_experience"
	FieldPostingID       = "job_id"
	FieldCompanyID       = "company_id"
)

// queryPreviewLength bounds free-text query values in log entries.
const queryPreviewLength = 120

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches fields to the logger, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// CommonFields returns standard zap fields that describe the AI provider and model.
func CommonFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

// WithCommonFields attaches the common AI fields to the provided logger.
func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, CommonFields(provider, model)...)
}

// QueryFields describes a recommendation query. Long free text is shortened.
func QueryFields(skills, title string, experience int) []zap.Field {
	fields := StringFields(
		StringField{Key: FieldQuerySkills, Value: truncate(skills)},
		StringField{Key: FieldQueryTitle, Value: truncate(title)},
	)
	return append(fields, zap.Int(FieldQueryExperience, experience))
}

// PostingFields identifies a posting in log entries.
func PostingFields(postingID, companyID string) []zap.Field {
	return StringFields(
		StringField{Key: FieldPostingID, Value: postingID},
		StringField{Key: FieldCompanyID, Value: companyID},
	)
}

func truncate(s string) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= queryPreviewLength {
		return string(runes)
	}
	return string(runes[:queryPreviewLength]) + "..."
}
