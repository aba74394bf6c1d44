package authService

import (
	"context"
	"errors"
	"regexp"
	"strings"

	authRepository "FaceAuthIdP/internal/api/auth/repository"
	"FaceAuthIdP/internal/entity"
	"FaceAuthIdP/internal/pipeline"
	"FaceAuthIdP/pkg/textract"

	"github.com/sirupsen/logrus"
)

// resolveCard tries every active template against the card image and accepts
// the first one whose required fields all extract cleanly. Templates come
// back from the repository in a stable order, so first-match wins is
// deterministic.
func (s *authService) resolveCard(ctx context.Context, repo authRepository.Client, requestID string, cardImage []byte) (entity.EmployeeInfo, error) {
	templates, err := repo.Templates.GetActive(ctx)
	if err != nil {
		return entity.EmployeeInfo{}, pipeline.Fail(pipeline.KindGenericError, "ocr_extract", err)
	}
	if len(templates) == 0 {
		return entity.EmployeeInfo{}, pipeline.Fail(pipeline.KindCardFormatMismatch, "ocr_extract",
			errors.New("no active card templates"))
	}

	for _, template := range templates {
		if err := template.Validate(); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"pattern_id": template.PatternID,
				"error":      err.Error(),
			}).Warn("Skipping malformed card template")
			continue
		}

		queries := make([]textract.Query, 0, len(template.Fields))
		for _, f := range template.Fields {
			queries = append(queries, textract.Query{Text: f.QueryPhrase, Alias: f.FieldName})
		}

		results, err := s.ocr.AnalyzeCard(ctx, cardImage, queries)
		if errors.Is(err, textract.ErrUnsupportedDocument) {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"pattern_id": template.PatternID,
			}).Warn("Document rejected by OCR engine")
			continue
		}
		if err != nil {
			return entity.EmployeeInfo{}, pipeline.Fail(pipeline.KindGenericError, "ocr_extract", err)
		}

		info, ok := s.buildEmployeeInfo(template, results)
		if !ok {
			continue
		}

		threshold := template.ConfidenceThreshold
		if threshold == 0 {
			threshold = s.cfg.OCRConfidenceThreshold
		}
		if err := info.Validate(threshold); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"pattern_id": template.PatternID,
				"error":      err.Error(),
			}).Warn("Extraction did not validate against template")
			continue
		}

		return info, nil
	}

	return entity.EmployeeInfo{}, pipeline.FailWithContext(pipeline.KindCardFormatMismatch, "ocr_extract",
		errors.New("no template matched"),
		map[string]interface{}{"templates_tried": len(templates)})
}

// buildEmployeeInfo applies per-field confidence and format checks. A missing
// or malformed required field disqualifies the whole template. Aggregated
// confidence is the required-field recovery rate plus a small bonus per
// optional field, capped at 1.0.
func (s *authService) buildEmployeeInfo(template entity.CardTemplate, results map[string]textract.FieldResult) (entity.EmployeeInfo, bool) {
	values := make(map[string]string, len(template.Fields))
	requiredTotal, requiredHit, optionalHit := 0, 0, 0

	for _, field := range template.Fields {
		if field.Required {
			requiredTotal++
		}

		result, ok := results[field.FieldName]
		if !ok || result.Confidence < s.cfg.OCRConfidenceThreshold {
			if field.Required {
				return entity.EmployeeInfo{}, false
			}
			continue
		}

		text := strings.TrimSpace(result.Text)
		if field.ExpectedFormat != "" {
			re, err := regexp.Compile(field.ExpectedFormat)
			if err != nil || !re.MatchString(text) {
				if field.Required {
					return entity.EmployeeInfo{}, false
				}
				continue
			}
		}

		values[field.FieldName] = text
		if field.Required {
			requiredHit++
		} else {
			optionalHit++
		}
	}

	if requiredTotal == 0 || requiredHit < requiredTotal {
		return entity.EmployeeInfo{}, false
	}

	confidence := float64(requiredHit)/float64(requiredTotal) + 0.05*float64(optionalHit)
	if confidence > 1 {
		confidence = 1
	}

	return entity.EmployeeInfo{
		EmployeeID:           values["employee_id"],
		Name:                 values["name"],
		Department:           values["department"],
		CardType:             template.CardType,
		ExtractionConfidence: confidence,
	}, true
}
